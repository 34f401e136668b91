package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/medtriage/internal/corpus"
)

// conversationID is the --id flag shared by analyze and schedule.
var conversationID string

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&conversationID, "id", "", "conversation id (default: content hash)")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|-]",
	Short: "Extract terms and classify the risk of one conversation",
	Long: `Analyze a single conversation read from a file or stdin.

Examples:
  # Analyze a transcript
  medtriage analyze visit.txt

  # Analyze from stdin as JSON
  echo "fever and dyspnea" | medtriage analyze --json -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

// readInput reads the conversation from args[0], or stdin for "-" or no args.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	var (
		content []byte
		err     error
	)
	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}

	text := string(content)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no conversation text")
	}
	return text, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	analysis, err := a.engine.Analyze(cmd.Context(), corpus.Conversation{ID: conversationID, Text: text})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), analysis)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), renderAnalysis(analysis))
	return err
}
