package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/woxQAQ/config-props-lsp/internal/engine"
	"github.com/woxQAQ/config-props-lsp/internal/metadata"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "propcheck",
	Short:         "Check configuration property files against metadata",
	Long:          `propcheck validates .properties and YAML configuration files against property metadata descriptors and exposes completion and hover for scripting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errProblemsFound makes the process exit with status 1 without printing an
// extra error line.
var errProblemsFound = errors.New("problems found")

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(hoverCmd)

	rootCmd.PersistentFlags().StringSliceP("metadata", "m", []string{"./metadata"}, "metadata descriptor files or directories")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "do not read or write the descriptor cache")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log metadata loading to stderr")
}

func main() {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errProblemsFound) {
			fmt.Fprintln(os.Stderr, "propcheck:", err)
		}
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func useColor(cmd *cobra.Command) (bool, error) {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch mode {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		return os.Getenv("NO_COLOR") == "" && isTerminal(os.Stdout), nil
	default:
		return false, fmt.Errorf("unknown color mode %q (want auto, on or off)", mode)
	}
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

// loadEngine builds an engine over the descriptors named by --metadata.
func loadEngine(cmd *cobra.Command) (*engine.Engine, error) {
	paths, err := cmd.Flags().GetStringSlice("metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata flag: %w", err)
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}

	var cache *metadata.DescriptorCache
	if !noCache {
		if cache, err = metadata.OpenDescriptorCache(""); err != nil {
			logger.Warn("Descriptor cache disabled", zap.Error(err))
		}
	}

	descs, err := metadata.NewLoader(cache, logger).Discover(cmd.Context(), paths)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	idx, err := metadata.BuildIndex(descs, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	return engine.New(idx, engine.WithLogger(logger)), nil
}
