package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medtriage/internal/corpus"
)

var (
	statsTop     int
	statsBuckets int
	statsMaxRows int
)

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVar(&statsTop, "top", 10, "number of symptoms and diseases to list (0 = all)")
	statsCmd.Flags().IntVar(&statsBuckets, "buckets", 10, "conversation length histogram buckets")
	statsCmd.Flags().IntVar(&statsMaxRows, "max-rows", 0, "rows to read (default corpus.max_rows)")
}

var statsCmd = &cobra.Command{
	Use:   "stats [csv]",
	Short: "Aggregate statistics over a conversation corpus",
	Long: `Read a conversation CSV, analyze every row and print the corpus statistics:
term frequencies, risk tier and gender distributions and conversation lengths.

Examples:
  # Use corpus.path from the config
  medtriage stats

  # Top 5 terms of a specific file, as JSON
  medtriage stats --top 5 --json convdata.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsBuckets < 1 {
		return fmt.Errorf("--buckets must be at least 1")
	}

	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	path := a.cfg.Corpus.Path
	if len(args) == 1 {
		path = args[0]
	}
	opts := corpus.OptionsFromConfig(a.cfg.Corpus)
	if statsMaxRows > 0 {
		opts.MaxRows = statsMaxRows
	}

	convs, err := corpus.LoadFile(path, opts)
	if err != nil {
		return err
	}
	st, err := a.engine.Load(cmd.Context(), convs)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	a.logger.Info(cmd.Context(), "corpus analyzed",
		zap.String("path", path), zap.Int("conversations", st.Total()))

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), st.Summary())
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), renderSummary(st, statsTop, statsBuckets))
	return err
}
