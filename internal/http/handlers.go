package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/medtriage/internal/corpus"
	"github.com/fyrsmithlabs/medtriage/internal/pipeline"
	"github.com/fyrsmithlabs/medtriage/internal/scheduling"
	"github.com/fyrsmithlabs/medtriage/internal/stats"
	"github.com/fyrsmithlabs/medtriage/internal/vocabulary"
)

const defaultLengthBuckets = 30

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Conversations: s.engine.Stats().Total()}
	if s.telemetry != nil {
		h := s.telemetry.Health()
		resp.Telemetry = &h
		if h.Degraded {
			resp.Status = "degraded"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Stats().Summary())
}

func (s *Server) handleSymptoms(c echo.Context) error {
	n, err := intParam(c, "top", 0)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.engine.Stats().TopSymptoms(n))
}

func (s *Server) handleDiseases(c echo.Context) error {
	n, err := intParam(c, "top", 0)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.engine.Stats().TopDiseases(n))
}

func (s *Server) handleSymptom(c echo.Context) error {
	term, ok := canonical(s.engine.Matcher().Symptoms(), c.Param("tag"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown symptom")
	}
	st := s.engine.Stats()
	return c.JSON(http.StatusOK, TermCountResponse{Term: term, Count: st.SymptomCount(term), Total: st.Total()})
}

func (s *Server) handleDisease(c echo.Context) error {
	term, ok := canonical(s.engine.Matcher().Diseases(), c.Param("tag"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown disease")
	}
	st := s.engine.Stats()
	return c.JSON(http.StatusOK, TermCountResponse{Term: term, Count: st.DiseaseCount(term), Total: st.Total()})
}

func (s *Server) handleCooccurrence(c echo.Context) error {
	symptom, ok := canonical(s.engine.Matcher().Symptoms(), c.QueryParam("symptom"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "symptom query parameter must name a known symptom")
	}
	disease, ok := canonical(s.engine.Matcher().Diseases(), c.QueryParam("disease"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "disease query parameter must name a known disease")
	}
	return c.JSON(http.StatusOK, CooccurrenceResponse{
		Symptom: symptom,
		Disease: disease,
		Count:   s.engine.Stats().Cooccurrence(symptom, disease),
	})
}

func (s *Server) handleCooccurrenceMatrix(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Stats().CooccurrenceMatrix())
}

func (s *Server) handleLengths(c echo.Context) error {
	n, err := intParam(c, "buckets", defaultLengthBuckets)
	if err != nil {
		return err
	}
	if n < 1 || n > 1000 {
		return echo.NewHTTPError(http.StatusBadRequest, "buckets must be between 1 and 1000")
	}
	st := s.engine.Stats()
	buckets := st.LengthBuckets(n)
	if buckets == nil {
		buckets = []stats.Bucket{}
	}
	return c.JSON(http.StatusOK, LengthsResponse{Total: st.Total(), Buckets: buckets})
}

func (s *Server) handleGender(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Stats().GenderCounts())
}

func (s *Server) handleRisk(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Stats().RiskCounts())
}

func (s *Server) bindConversation(c echo.Context) (corpus.Conversation, error) {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid analyze request", zap.Error(err))
		return corpus.Conversation{}, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return corpus.Conversation{}, echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}
	return corpus.Conversation{ID: strings.TrimSpace(req.ID), Text: req.Text}, nil
}

func (s *Server) handleAnalyze(c echo.Context) error {
	conv, err := s.bindConversation(c)
	if err != nil {
		return err
	}
	analysis, err := s.engine.Analyze(c.Request().Context(), conv)
	if err != nil {
		s.logger.Error(c.Request().Context(), "analysis failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "classification failed")
	}
	return c.JSON(http.StatusOK, AnalyzeResponse{
		Analysis: analysis,
		Mentions: s.engine.Matcher().Mentions(conv.Text),
	})
}

func (s *Server) handleIngest(c echo.Context) error {
	ctx := c.Request().Context()
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid ingest request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Conversations) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "conversations must not be empty")
	}

	convs := make([]corpus.Conversation, 0, len(req.Conversations))
	for i, r := range req.Conversations {
		if strings.TrimSpace(r.Text) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("conversation %d has no text", i))
		}
		id := strings.TrimSpace(r.ID)
		if id == "" {
			id = corpus.ContentID(r.Text)
		}
		convs = append(convs, corpus.Conversation{ID: id, Text: r.Text})
	}

	st, err := s.engine.Ingest(ctx, convs)
	if err != nil {
		s.logger.Error(ctx, "ingest failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "classification failed")
	}
	s.logger.Info(ctx, "conversations ingested",
		zap.Int("count", len(convs)),
		zap.Int("total", st.Total()))
	return c.JSON(http.StatusOK, st.Summary())
}

func (s *Server) handleSchedule(c echo.Context) error {
	conv, err := s.bindConversation(c)
	if err != nil {
		return err
	}
	report, err := s.engine.AnalyzeAndSchedule(c.Request().Context(), conv)
	if err != nil {
		s.logger.Error(c.Request().Context(), "analysis failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "classification failed")
	}

	resp := ScheduleResponse{Analysis: report.Analysis, Event: report.Event}
	if report.ScheduleErr != nil {
		resp.ScheduleError = report.ScheduleError()
		resp.ScheduleErrorKind = errorKind(report.ScheduleErr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListEvents(c echo.Context) error {
	if s.events == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "scheduling is not configured")
	}
	return c.JSON(http.StatusOK, s.events.List())
}

func (s *Server) handleGetEvent(c echo.Context) error {
	if s.events == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "scheduling is not configured")
	}
	ev, ok := s.events.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no active follow-up")
	}
	return c.JSON(http.StatusOK, ev)
}

func (s *Server) handleCancelEvent(c echo.Context) error {
	if s.events == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "scheduling is not configured")
	}
	if err := s.events.Cancel(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(statusFor(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// canonical resolves a user supplied tag to its vocabulary spelling.
func canonical(ts *vocabulary.TermSet, tag string) (string, bool) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", false
	}
	for _, term := range ts.Terms() {
		if strings.EqualFold(term, tag) {
			return term, true
		}
	}
	return "", false
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}

func errorKind(err error) string {
	if errors.Is(err, pipeline.ErrSchedulingDisabled) {
		return "disabled"
	}
	if kind, ok := scheduling.KindOf(err); ok {
		return kind.String()
	}
	return "unknown"
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, scheduling.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scheduling.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, scheduling.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusBadGateway
}
