package metadata

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/config-props-lsp/internal/index"
)

func TestStore_Publish(t *testing.T) {
	s := NewStore()
	if s.Current().Version != 0 || s.Current().Index.Len() != 0 {
		t.Fatalf("expected empty version 0 snapshot, got %+v", s.Current())
	}

	updates, cancel := s.Subscribe()
	defer cancel()

	snap := s.Publish(index.MustNew(&index.PropertyInfo{ID: "a"}))
	if snap.Version != 1 || s.Current() != snap {
		t.Errorf("expected version 1 to be current, got %+v", s.Current())
	}
	if v := <-updates; v != 1 {
		t.Errorf("expected notification for version 1, got %d", v)
	}

	// Unread versions coalesce to the latest.
	s.Publish(index.MustNew())
	s.Publish(index.MustNew())
	if v := <-updates; v != 3 {
		t.Errorf("expected coalesced version 3, got %d", v)
	}
}

func TestStore_Cancel(t *testing.T) {
	s := NewStore()
	updates, cancel := s.Subscribe()
	cancel()
	cancel()

	if _, ok := <-updates; ok {
		t.Error("channel should be closed after cancel")
	}
	s.Publish(index.MustNew())
}

func TestManager_Reload(t *testing.T) {
	logger := zaptest.NewLogger(t)
	store := NewStore()
	m := NewManager([]string{filepath.Join("testdata", "descriptors")}, NewLoader(nil, logger), store, logger)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = m.Reload(context.Background())
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("Reload() failed: %v", err)
		}
	}

	if m.Current().Len() != 8 {
		t.Errorf("expected 8 properties, got %d", m.Current().Len())
	}
	if v := store.Current().Version; v < 1 || v > 4 {
		t.Errorf("unexpected version %d", v)
	}
}

func TestManager_ReloadEmpty(t *testing.T) {
	logger := zap.NewNop()
	m := NewManager([]string{t.TempDir()}, NewLoader(nil, logger), NewStore(), logger)

	snap, err := m.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	if snap.Index.Len() != 0 || snap.Version != 1 {
		t.Errorf("expected empty version 1 snapshot, got %+v", snap)
	}

	m.SetPaths([]string{filepath.Join("testdata", "invalid")})
	if _, err := m.Reload(context.Background()); err == nil {
		t.Error("Reload() should fail when every descriptor is invalid")
	}
}
