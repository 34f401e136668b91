package http

import (
	"github.com/fyrsmithlabs/medtriage/internal/pipeline"
	"github.com/fyrsmithlabs/medtriage/internal/scheduling"
	"github.com/fyrsmithlabs/medtriage/internal/stats"
	"github.com/fyrsmithlabs/medtriage/internal/telemetry"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status        string                  `json:"status"`
	Conversations int                     `json:"conversations"`
	Telemetry     *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// TermCountResponse is the response body for a single tag lookup.
type TermCountResponse struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
	Total int    `json:"total_conversations"`
}

// CooccurrenceResponse is the response body for GET /api/v1/stats/cooccurrence.
type CooccurrenceResponse struct {
	Symptom string `json:"symptom"`
	Disease string `json:"disease"`
	Count   int    `json:"count"`
}

// LengthsResponse is the response body for GET /api/v1/stats/lengths.
type LengthsResponse struct {
	Total   int            `json:"total_conversations"`
	Buckets []stats.Bucket `json:"buckets"`
}

// AnalyzeRequest is the request body for POST /api/v1/analyze and
// POST /api/v1/schedule.
type AnalyzeRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// AnalyzeResponse is the response body for POST /api/v1/analyze.
type AnalyzeResponse struct {
	pipeline.Analysis
	// Mentions counts every occurrence of each matched term.
	Mentions map[string]int `json:"mentions"`
}

// IngestRequest is the request body for POST /api/v1/conversations.
type IngestRequest struct {
	Conversations []AnalyzeRequest `json:"conversations"`
}

// ScheduleResponse carries the analysis and, separately, the booking result.
type ScheduleResponse struct {
	Analysis          pipeline.Analysis `json:"analysis"`
	Event             *scheduling.Event `json:"event,omitempty"`
	ScheduleError     string            `json:"schedule_error,omitempty"`
	ScheduleErrorKind string            `json:"schedule_error_kind,omitempty"`
}
