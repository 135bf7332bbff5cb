package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/woxQAQ/config-props-lsp/internal/config"
	"github.com/woxQAQ/config-props-lsp/internal/lsp"
	"github.com/woxQAQ/config-props-lsp/internal/metadata"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// newLogger builds a logger writing to stderr, which stays free while stdout
// carries the protocol.
func newLogger(level string) (*zap.Logger, error) {
	var cfg zap.Config
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	port := flag.Int("port", 0, "TCP port for LSP server (0 for stdio)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		// No logger yet: the level comes from the config.
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	// Initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("failed to create logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting config-props-lsp",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)
	lsp.Version = version

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache, err := metadata.OpenDescriptorCache(cfg.SnapshotCacheDir)
	if err != nil {
		logger.Warn("Descriptor cache disabled", zap.Error(err))
	}
	manager := metadata.NewManager(cfg.MetadataPaths, metadata.NewLoader(cache, logger), metadata.NewStore(), logger)

	// Initialize LSP server
	server, err := lsp.NewServer(ctx, cfg, manager, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}
	defer server.Close(context.Background())

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	// Start server (stdio or TCP)
	if *port > 0 {
		if err := server.ServeTCP(ctx, *port); err != nil {
			logger.Error("TCP server error", zap.Error(err))
			return
		}
	} else {
		if err := server.ServeStdio(ctx); err != nil {
			logger.Error("Stdio server error", zap.Error(err))
			return
		}
	}

	logger.Info("Server shutdown complete")
}
