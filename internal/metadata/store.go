package metadata

import (
	"sync"
	"sync/atomic"

	"github.com/woxQAQ/config-props-lsp/internal/index"
)

// Snapshot is an immutable index paired with its version.
type Snapshot struct {
	Index   *index.Index
	Version uint64
}

// Store holds the current snapshot and tells subscribers when it changes.
// Readers never block writers: Current is a single atomic load.
type Store struct {
	current atomic.Pointer[Snapshot]

	mu     sync.Mutex
	subs   map[uint64]chan uint64
	nextID uint64
}

// NewStore creates a store holding an empty version 0 snapshot.
func NewStore() *Store {
	s := &Store{subs: make(map[uint64]chan uint64)}
	s.current.Store(&Snapshot{Index: index.MustNew()})
	return s
}

// Current returns the latest snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Publish installs idx as a new snapshot and notifies subscribers.
func (s *Store) Publish(idx *index.Index) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{Index: idx, Version: s.current.Load().Version + 1}
	s.current.Store(snap)

	for _, ch := range s.subs {
		// Subscribers only need the latest version: replace an unread one.
		select {
		case <-ch:
		default:
		}
		ch <- snap.Version
	}
	return snap
}

// Subscribe returns a channel receiving the version of every published
// snapshot, coalescing versions the subscriber has not read yet. cancel
// unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan uint64, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan uint64, 1)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}
