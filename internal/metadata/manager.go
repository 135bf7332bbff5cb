package metadata

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/woxQAQ/config-props-lsp/internal/index"
)

// Manager discovers descriptors, builds index snapshots and publishes them to
// its Store.
type Manager struct {
	loader *Loader
	store  *Store
	logger *zap.Logger
	group  singleflight.Group

	mu    sync.RWMutex
	paths []string
}

// NewManager creates a metadata manager.
func NewManager(paths []string, loader *Loader, store *Store, logger *zap.Logger) *Manager {
	return &Manager{
		loader: loader,
		store:  store,
		paths:  append([]string(nil), paths...),
		logger: logger.With(zap.String("component", "metadata-manager")),
	}
}

// SetPaths replaces the descriptor search paths used by the next Reload.
func (m *Manager) SetPaths(paths []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append([]string(nil), paths...)
}

// Paths returns the descriptor search paths.
func (m *Manager) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.paths...)
}

// Reload rebuilds the index from disk and publishes it. Concurrent calls
// share one reload. Finding no descriptors publishes an empty index.
func (m *Manager) Reload(ctx context.Context) (*Snapshot, error) {
	v, err, shared := m.group.Do("reload", func() (any, error) {
		return m.reload(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.logger.Debug("Joined in-flight metadata reload")
	}
	return v.(*Snapshot), nil
}

func (m *Manager) reload(ctx context.Context) (*Snapshot, error) {
	paths := m.Paths()
	m.logger.Info("Loading metadata", zap.Strings("paths", paths))

	descriptors, err := m.loader.Discover(ctx, paths)
	if err != nil {
		var notFound *NoDescriptorsFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		m.logger.Warn("No metadata descriptors found in configured paths",
			zap.Strings("paths", paths),
		)
	}

	idx, err := BuildIndex(descriptors, m.logger)
	if err != nil {
		return nil, err
	}
	snap := m.store.Publish(idx)

	m.logger.Info("Metadata loaded successfully",
		zap.Int("descriptors", len(descriptors)),
		zap.Int("properties", idx.Len()),
		zap.Uint64("version", snap.Version),
	)
	return snap, nil
}

// Store returns the store snapshots are published to.
func (m *Manager) Store() *Store {
	return m.store
}

// Current returns the index of the latest snapshot.
func (m *Manager) Current() *index.Index {
	return m.store.Current().Index
}
