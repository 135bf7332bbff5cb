// Package engine answers completion, hover and reconcile requests for a
// configuration document against one metadata snapshot.
//
// Every entry point is a pure function of the document and the index the
// Engine was built with. A cancelled context makes a call return nil; callers
// drop the result and ask again with fresh inputs.
package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/woxQAQ/config-props-lsp/internal/index"
	"github.com/woxQAQ/config-props-lsp/internal/proppath"
)

// Engine binds an index snapshot. It holds no per-document state and is safe
// for concurrent use.
type Engine struct {
	idx        *index.Index
	logger     *zap.Logger
	maxResults int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The engine only logs at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxResults caps the number of completion proposals. Zero means no cap.
func WithMaxResults(n int) Option {
	return func(e *Engine) {
		e.maxResults = n
	}
}

// New creates an engine over idx.
func New(idx *index.Index, opts ...Option) *Engine {
	e := &Engine{
		idx:    idx,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "engine"))
	return e
}

// Index returns the snapshot the engine answers from.
func (e *Engine) Index() *index.Index {
	return e.idx
}

func cancelled(ctx context.Context) bool {
	return ctx.Err() != nil
}

// keyNames returns the segment names of a path made of keys only.
func keyNames(p proppath.Path) ([]string, bool) {
	names := make([]string, 0, len(p))
	for _, s := range p {
		if s.Kind != proppath.Key {
			return nil, false
		}
		names = append(names, s.Name)
	}
	return names, true
}
