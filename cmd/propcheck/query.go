package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/woxQAQ/config-props-lsp/internal/document"
)

var completeCmd = &cobra.Command{
	Use:   "complete [flags] <file>",
	Short: "Print completion proposals at an offset",
	Args:  cobra.ExactArgs(1),
	RunE:  runComplete,
}

var hoverCmd = &cobra.Command{
	Use:   "hover [flags] <file>",
	Short: "Print documentation of the property at an offset",
	Args:  cobra.ExactArgs(1),
	RunE:  runHover,
}

func init() {
	for _, c := range []*cobra.Command{completeCmd, hoverCmd} {
		c.Flags().Int("offset", -1, "byte offset of the cursor (-1 for end of file)")
		c.Flags().Bool("json", false, "print results as JSON")
	}
}

// queryInput reads the file argument and resolves the cursor offset.
func queryInput(cmd *cobra.Command, path string) (*document.Document, int, bool, error) {
	offset, err := cmd.Flags().GetInt("offset")
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to get offset flag: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to get json flag: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to read '%s': %w", path, err)
	}
	doc := document.New(string(data), document.SyntaxForPath(path))
	if offset < 0 || offset > doc.Len() {
		offset = doc.Len()
	}
	return doc, offset, asJSON, nil
}

func runComplete(cmd *cobra.Command, args []string) error {
	doc, offset, asJSON, err := queryInput(cmd, args[0])
	if err != nil {
		return err
	}
	eng, err := loadEngine(cmd)
	if err != nil {
		return err
	}

	proposals := eng.Complete(cmd.Context(), doc, offset)
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(proposals)
	}
	for _, p := range proposals {
		fmt.Fprintf(out, "%q\t%s\n", p.InsertText, p.DisplayLabel)
	}
	return nil
}

func runHover(cmd *cobra.Command, args []string) error {
	doc, offset, asJSON, err := queryInput(cmd, args[0])
	if err != nil {
		return err
	}
	eng, err := loadEngine(cmd)
	if err != nil {
		return err
	}

	info, ok := eng.Hover(cmd.Context(), doc, offset)
	if !ok {
		return nil
	}
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(out, info.Markdown)
	return nil
}
