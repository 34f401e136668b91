package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medtriage/internal/corpus"
	"github.com/fyrsmithlabs/medtriage/internal/logging"
	"github.com/fyrsmithlabs/medtriage/internal/scheduling"
	"github.com/fyrsmithlabs/medtriage/internal/vocabulary"
)

const summaryRunes = 200

// Report is the outcome of analyzing one conversation and booking its
// follow-up. Analysis is always filled in; a booking failure is reported in
// ScheduleErr and never hides the analysis.
type Report struct {
	Analysis    Analysis          `json:"analysis"`
	Event       *scheduling.Event `json:"event,omitempty"`
	ScheduleErr error             `json:"-"`
}

// ScheduleError returns the booking failure message, or "".
func (r Report) ScheduleError() string {
	if r.ScheduleErr == nil {
		return ""
	}
	return r.ScheduleErr.Error()
}

// AnalyzeAndSchedule analyzes conv and books a follow-up for its tier.
// The returned error only covers analysis failures.
func (e *Engine) AnalyzeAndSchedule(ctx context.Context, conv corpus.Conversation) (Report, error) {
	ctx = logging.WithConversationID(ctx, conv.ID)

	analysis, err := e.Analyze(ctx, conv)
	if err != nil {
		return Report{}, err
	}
	report := Report{Analysis: analysis}

	if e.scheduler == nil {
		report.ScheduleErr = ErrSchedulingDisabled
		return report, nil
	}

	ev, err := e.scheduler.Schedule(ctx, scheduling.Request{
		ConversationID: conv.ID,
		Key:            conv.Key(),
		Text:           conv.Text,
		Tier:           analysis.Tier,
		Description:    Description(conv.Text, analysis.Extraction),
	})
	if err != nil {
		e.logger.Warn(ctx, "follow-up not scheduled", zap.Error(err))
		report.ScheduleErr = err
		return report, nil
	}
	report.Event = ev
	return report, nil
}

// Description is the calendar event body: the extracted terms followed by
// the first 200 characters of the conversation.
func Description(text string, ext vocabulary.Result) string {
	var b strings.Builder
	b.WriteString("Symptoms: ")
	b.WriteString(strings.Join(ext.Symptoms, ", "))
	b.WriteString("\nDiseases: ")
	b.WriteString(strings.Join(ext.Diseases, ", "))
	b.WriteString("\nConversation Summary: ")
	b.WriteString(truncateRunes(text, summaryRunes))
	return b.String()
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
