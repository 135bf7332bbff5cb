package lsp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"

	"github.com/woxQAQ/config-props-lsp/internal/config"
	"github.com/woxQAQ/config-props-lsp/internal/engine"
	"github.com/woxQAQ/config-props-lsp/internal/metadata"
)

// Version is reported to clients in the initialize result.
var Version = "dev"

type Server struct {
	cfg      *config.ServerConfig
	logger   *zap.Logger
	metadata *metadata.Manager
	docs     *documentCache
}

func NewServer(ctx context.Context, cfg *config.ServerConfig, manager *metadata.Manager, logger *zap.Logger) (*Server, error) {
	docs, err := newDocumentCache(cfg.DocumentCacheBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create document cache: %w", err)
	}

	// The server stays usable with the previous (initially empty) index when
	// descriptors fail to load; the next successful reload replaces it.
	if _, err := manager.Reload(ctx); err != nil {
		logger.Error("Failed to load metadata", zap.Error(err))
	}

	logger.Info("LSP server initialized",
		zap.Strings("metadata_paths", manager.Paths()),
		zap.Int("properties", manager.Current().Len()),
		zap.Duration("reconcile_debounce", cfg.ReconcileDebounce()),
	)

	return &Server{
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "lsp")),
		metadata: manager,
		docs:     docs,
	}, nil
}

// Close gracefully shuts down the server.
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down LSP server")
	s.docs.Close()
	s.logger.Info("LSP server shutdown complete")
	return nil
}

// engine returns an engine over the current metadata snapshot.
func (s *Server) engine() *engine.Engine {
	return engine.New(s.metadata.Current(),
		engine.WithLogger(s.logger),
		engine.WithMaxResults(s.cfg.Completion.MaxResults),
	)
}

type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return nil }

func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("Serving on stdio")
	return s.serve(ctx, stdio{})
}

func (s *Server) ServeTCP(ctx context.Context, port int) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}
	s.logger.Info("Serving on TCP", zap.String("addr", ln.Addr().String()))

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			remote := c.RemoteAddr().String()
			s.logger.Info("Client connected", zap.String("remote", remote))
			if err := s.serve(ctx, c); err != nil {
				s.logger.Warn("Connection closed with error", zap.String("remote", remote), zap.Error(err))
			}
		}()
	}
}

// serve runs one client session on rwc until the client exits, the stream
// ends or ctx is cancelled.
func (s *Server) serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	sess := newSession(ctx, s, conn)
	sess.closeConn = conn.Close
	defer sess.close()

	conn.Go(ctx, sess.handle)
	go sess.watchMetadata()

	select {
	case <-ctx.Done():
		conn.Close()
		<-conn.Done()
		return nil
	case <-conn.Done():
	}

	if sess.exitedCleanly() {
		return nil
	}
	if err := conn.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
