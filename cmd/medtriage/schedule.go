package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/medtriage/internal/corpus"
	"github.com/fyrsmithlabs/medtriage/internal/pipeline"
	"github.com/fyrsmithlabs/medtriage/internal/scheduling"
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().StringVar(&conversationID, "id", "", "conversation id, also the idempotency key (default: content hash)")
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [file|-]",
	Short: "Analyze a conversation and book its follow-up on Google Calendar",
	Long: `Analyze a conversation and book a follow-up whose start depends on the
risk tier: High in 1 day, Moderate in 3 days, Low in 7 days.

The first run opens the Google consent flow unless a stored credential exists
(see "medtriage auth").

Examples:
  medtriage schedule --id patient-42 visit.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchedule,
}

// scheduleOutput is the --json form of a schedule run.
type scheduleOutput struct {
	Analysis      pipeline.Analysis `json:"analysis"`
	Event         *scheduling.Event `json:"event,omitempty"`
	ScheduleError string            `json:"schedule_error,omitempty"`
}

func runSchedule(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), appOptions{withScheduling: true, authOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.engine.AnalyzeAndSchedule(cmd.Context(), corpus.Conversation{ID: conversationID, Text: text})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := writeJSON(out, scheduleOutput{
			Analysis:      report.Analysis,
			Event:         report.Event,
			ScheduleError: report.ScheduleError(),
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, renderAnalysis(report.Analysis))
		if report.Event != nil {
			fmt.Fprint(out, "\n"+renderEvent(report.Event))
		}
	}

	if report.ScheduleErr != nil {
		return fmt.Errorf("follow-up not scheduled: %w", report.ScheduleErr)
	}
	return nil
}
