// Package pipeline runs extraction and risk classification over conversations
// and publishes corpus statistics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/medtriage/internal/config"
	"github.com/fyrsmithlabs/medtriage/internal/corpus"
	"github.com/fyrsmithlabs/medtriage/internal/logging"
	"github.com/fyrsmithlabs/medtriage/internal/risk"
	"github.com/fyrsmithlabs/medtriage/internal/scheduling"
	"github.com/fyrsmithlabs/medtriage/internal/stats"
	"github.com/fyrsmithlabs/medtriage/internal/vocabulary"
)

const instrumentationName = "github.com/fyrsmithlabs/medtriage/internal/pipeline"

// ErrSchedulingDisabled is reported when no scheduler is configured.
var ErrSchedulingDisabled = errors.New("scheduling is not configured")

// Scheduler books follow-ups. *scheduling.Service implements it.
type Scheduler interface {
	Schedule(ctx context.Context, req scheduling.Request) (*scheduling.Event, error)
}

// Analysis is the result for one conversation.
type Analysis struct {
	ConversationID string            `json:"conversation_id"`
	Extraction     vocabulary.Result `json:"extraction"`
	Tier           risk.Tier         `json:"risk_tier"`
	Strategy       risk.Strategy     `json:"strategy"`
	FellBack       bool              `json:"fell_back,omitempty"`
	Length         int               `json:"length"`
}

// Record converts the analysis into an aggregation input.
func (a Analysis) Record() stats.Record {
	return stats.Record{Extraction: a.Extraction, Length: a.Length, Tier: a.Tier}
}

// Config bounds the engine's fan-out.
type Config struct {
	// Workers bounds parallel extraction and lexical classification.
	Workers int
	// SentimentConcurrency bounds parallel calls when the classifier uses
	// the external sentiment model.
	SentimentConcurrency int
}

// ConfigFrom converts the pipeline section.
func ConfigFrom(cfg config.PipelineConfig) Config {
	return Config{Workers: cfg.Workers, SentimentConcurrency: cfg.SentimentConcurrency}
}

// Engine analyzes conversations and holds the current corpus snapshot.
type Engine struct {
	matcher    *vocabulary.Matcher
	classifier risk.Classifier
	scheduler  Scheduler
	cfg        Config
	store      *corpus.Store
	current    atomic.Pointer[stats.Stats]
	writeMu    sync.Mutex
	logger     *logging.Logger

	analyzed  metric.Int64Counter
	published metric.Int64Counter
}

// New creates an engine. scheduler may be nil, in which case
// AnalyzeAndSchedule reports ErrSchedulingDisabled.
func New(matcher *vocabulary.Matcher, classifier risk.Classifier, scheduler Scheduler, cfg Config, logger *logging.Logger) (*Engine, error) {
	if matcher == nil {
		return nil, errors.New("matcher is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SentimentConcurrency < 1 {
		cfg.SentimentConcurrency = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	e := &Engine{
		matcher:    matcher,
		classifier: classifier,
		scheduler:  scheduler,
		cfg:        cfg,
		store:      corpus.NewStore(),
		logger:     logger,
	}
	e.current.Store(stats.Empty())
	e.initMetrics()
	return e, nil
}

func (e *Engine) initMetrics() {
	meter := otel.Meter(instrumentationName)
	var err error

	e.analyzed, err = meter.Int64Counter(
		"medtriage.pipeline.conversations_analyzed",
		metric.WithDescription("Conversations run through extraction and classification"),
		metric.WithUnit("{conversation}"),
	)
	if err != nil {
		e.logger.Warn(context.Background(), "failed to create analyzed counter", zap.Error(err))
	}

	e.published, err = meter.Int64Counter(
		"medtriage.pipeline.snapshots_published",
		metric.WithDescription("Statistics snapshots published"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		e.logger.Warn(context.Background(), "failed to create published counter", zap.Error(err))
	}
}

// Stats returns the published snapshot. It is never nil.
func (e *Engine) Stats() *stats.Stats {
	return e.current.Load()
}

// Store returns the conversation store backing the snapshot.
func (e *Engine) Store() *corpus.Store {
	return e.store
}

// Matcher returns the engine's vocabulary matcher.
func (e *Engine) Matcher() *vocabulary.Matcher {
	return e.matcher
}

// Analyze extracts and classifies one conversation.
func (e *Engine) Analyze(ctx context.Context, conv corpus.Conversation) (Analysis, error) {
	ext := e.matcher.Extract(conv.Text)
	out, err := risk.Detailed(ctx, e.classifier, conv.Text)
	if err != nil {
		return Analysis{}, fmt.Errorf("classifying %s: %w", conv.ID, err)
	}
	if e.analyzed != nil {
		e.analyzed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("strategy", string(out.Strategy)),
			attribute.String("tier", out.Tier.String()),
		))
	}
	rec := stats.NewRecord(conv.Text, ext, out.Tier)
	return Analysis{
		ConversationID: conv.ID,
		Extraction:     ext,
		Tier:           out.Tier,
		Strategy:       out.Strategy,
		FellBack:       out.FellBack,
		Length:         rec.Length,
	}, nil
}

// concurrency is the errgroup limit for the configured classifier.
func (e *Engine) concurrency() int {
	if e.classifier.Name() == risk.StrategySentiment && e.cfg.SentimentConcurrency < e.cfg.Workers {
		return e.cfg.SentimentConcurrency
	}
	return e.cfg.Workers
}

// AnalyzeAll analyzes convs in parallel. Results keep input order. Each
// worker aggregates its own chunk and the partial aggregates are merged.
func (e *Engine) AnalyzeAll(ctx context.Context, convs []corpus.Conversation) ([]Analysis, *stats.Stats, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "pipeline.analyze_all")
	defer span.End()
	span.SetAttributes(attribute.Int("conversations", len(convs)))

	analyses := make([]Analysis, len(convs))
	if len(convs) == 0 {
		return analyses, stats.Empty(), nil
	}

	limit := e.concurrency()
	chunks := limit
	if chunks > len(convs) {
		chunks = len(convs)
	}
	partials := make([]*stats.Stats, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for c := 0; c < chunks; c++ {
		lo := c * len(convs) / chunks
		hi := (c + 1) * len(convs) / chunks
		g.Go(func() error {
			records := make([]stats.Record, 0, hi-lo)
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				a, err := e.Analyze(gctx, convs[i])
				if err != nil {
					return err
				}
				analyses[i] = a
				records = append(records, a.Record())
			}
			partials[c] = stats.Aggregate(records)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	total := stats.Empty()
	for _, p := range partials {
		total = stats.Merge(total, p)
	}
	return analyses, total, nil
}

// Load replaces the corpus with convs and publishes fresh statistics.
func (e *Engine) Load(ctx context.Context, convs []corpus.Conversation) (*stats.Stats, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	_, snapshot, err := e.AnalyzeAll(ctx, convs)
	if err != nil {
		return nil, err
	}
	e.store.Replace(convs)
	e.publish(ctx, snapshot)
	return snapshot, nil
}

// Ingest adds convs to the corpus and publishes the merged statistics.
// Repeated IDs within convs collapse to the last one, as in the store.
// Conversations whose ID is already present are replaced, which requires a
// full rebuild.
func (e *Engine) Ingest(ctx context.Context, convs []corpus.Conversation) (*stats.Stats, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	convs = dedupeByID(convs)
	for _, c := range convs {
		if _, ok := e.store.Get(c.ID); ok {
			e.store.Add(convs...)
			return e.rebuild(ctx)
		}
	}

	_, partial, err := e.AnalyzeAll(ctx, convs)
	if err != nil {
		return nil, err
	}
	e.store.Add(convs...)
	next := stats.Merge(e.current.Load(), partial)
	e.publish(ctx, next)
	return next, nil
}

// dedupeByID keeps the first position and the last value of each non-empty
// ID, matching corpus.Store.Add.
func dedupeByID(convs []corpus.Conversation) []corpus.Conversation {
	out := make([]corpus.Conversation, 0, len(convs))
	seen := make(map[string]int, len(convs))
	for _, c := range convs {
		if i, ok := seen[c.ID]; ok && c.ID != "" {
			out[i] = c
			continue
		}
		seen[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}

func (e *Engine) rebuild(ctx context.Context) (*stats.Stats, error) {
	_, snapshot, err := e.AnalyzeAll(ctx, e.store.Snapshot())
	if err != nil {
		return nil, err
	}
	e.publish(ctx, snapshot)
	return snapshot, nil
}

func (e *Engine) publish(ctx context.Context, s *stats.Stats) {
	e.current.Store(s)
	if e.published != nil {
		e.published.Add(ctx, 1)
	}
	e.logger.Info(ctx, "statistics published",
		zap.Int("conversations", s.Total()),
		zap.Int("unique_symptoms", s.UniqueSymptoms()),
		zap.Int("unique_diseases", s.UniqueDiseases()))
}
