package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/woxQAQ/config-props-lsp/internal/document"
	"github.com/woxQAQ/config-props-lsp/pkg/protocol"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <file>...",
	Short: "Report unknown, mistyped and deprecated properties",
	Long:  `Reconcile each file against the metadata and print its diagnostics. Exits with status 1 when an error is found.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Bool("no-warnings", false, "do not print warnings")
	checkCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
}

func runCheck(cmd *cobra.Command, args []string) error {
	noWarnings, err := cmd.Flags().GetBool("no-warnings")
	if err != nil {
		return fmt.Errorf("failed to get no-warnings flag: %w", err)
	}
	warningsAsErrors, err := cmd.Flags().GetBool("warnings-as-errors")
	if err != nil {
		return fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}
	if noWarnings && warningsAsErrors {
		return fmt.Errorf("no-warnings and warnings-as-errors flags cannot be used together")
	}
	colored, err := useColor(cmd)
	if err != nil {
		return err
	}

	eng, err := loadEngine(cmd)
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout(), colored)
	var sum summary
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read '%s': %w", path, err)
		}
		doc := document.New(string(data), document.SyntaxForPath(path))
		sum.files++

		for _, d := range eng.Reconcile(cmd.Context(), doc) {
			if d.Severity == protocol.SeverityWarning {
				if noWarnings {
					continue
				}
				if warningsAsErrors {
					d.Severity = protocol.SeverityError
				}
			}
			p.diagnostic(path, doc, d)
			sum.add(d.Severity)
		}
	}
	p.summary(sum)

	if sum.errors > 0 {
		return errProblemsFound
	}
	return nil
}
