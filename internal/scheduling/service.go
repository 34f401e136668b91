// Package scheduling books follow-up calendar events for classified
// conversations.
//
// The Service is idempotent per key: a conversation that already has an
// active event gets that event back, and concurrent requests for the same key
// collapse into one booking. The backend sees a deterministic event ID per
// key, so a retried insert that the backend already applied is recognised
// rather than duplicated. Transient failures are retried exactly once.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/fyrsmithlabs/medtriage/internal/config"
	"github.com/fyrsmithlabs/medtriage/internal/logging"
)

const (
	instrumentationName = "github.com/fyrsmithlabs/medtriage/internal/scheduling"

	defaultRetryDelay  = 2 * time.Second
	maxRetryDelay      = 30 * time.Second
	defaultCallTimeout = 30 * time.Second
	maxAttempts        = 2
)

// Service schedules, looks up and cancels follow-up events.
type Service struct {
	booker      Booker
	credentials CredentialProvider
	ledger      *Ledger
	policy      Policy
	sem         *semaphore.Weighted
	retryDelay  time.Duration
	callTimeout time.Duration
	now         func() time.Time
	logger      *logging.Logger
	metrics     *Metrics

	group singleflight.Group
}

// Option customizes a Service.
type Option func(*Service)

// WithCredentials makes every booking obtain a credential first. An
// acquisition failure aborts the booking with ErrAuth.
func WithCredentials(p CredentialProvider) Option {
	return func(s *Service) { s.credentials = p }
}

// WithLedger shares a ledger between services.
func WithLedger(l *Ledger) Option {
	return func(s *Service) { s.ledger = l }
}

// WithPolicy replaces the timing and reminder policy.
func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRetryDelay sets the pause before the single retry, capped at 30s.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) { s.retryDelay = d }
}

// WithCallTimeout bounds each backend call.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) { s.callTimeout = d }
}

// WithMaxConcurrent bounds in-flight backend calls.
func WithMaxConcurrent(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service booking through booker.
func NewService(booker Booker, opts ...Option) *Service {
	s := &Service{
		booker:      booker,
		ledger:      NewLedger(),
		policy:      DefaultPolicy(),
		sem:         semaphore.NewWeighted(4),
		retryDelay:  defaultRetryDelay,
		callTimeout: defaultCallTimeout,
		now:         time.Now,
		logger:      logging.NewNop(),
		metrics:     NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retryDelay > maxRetryDelay {
		s.retryDelay = maxRetryDelay
	}
	if s.retryDelay < 0 {
		s.retryDelay = 0
	}
	if s.callTimeout <= 0 {
		s.callTimeout = defaultCallTimeout
	}
	return s
}

// OptionsFromConfig translates the scheduling section into options.
func OptionsFromConfig(cfg config.SchedulingConfig) []Option {
	return []Option{
		WithRetryDelay(cfg.RetryDelay),
		WithCallTimeout(cfg.CallTimeout),
		WithMaxConcurrent(cfg.MaxConcurrent),
	}
}

// Ledger exposes the service's event ledger.
func (s *Service) Ledger() *Ledger { return s.ledger }

// Get returns the active event for a conversation ID or idempotency key.
func (s *Service) Get(key string) (*Event, bool) {
	return s.ledger.Active(key)
}

// List returns the active events ordered by start time.
func (s *Service) List() []*Event {
	return s.ledger.List()
}

// Schedule books a follow-up for req, or returns the existing active event
// for its key.
func (s *Service) Schedule(ctx context.Context, req Request) (*Event, error) {
	start := time.Now()
	defer func() { s.metrics.Duration.Observe(time.Since(start).Seconds()) }()

	key := req.IdempotencyKey()
	ctx = logging.WithBookingKey(ctx, key)
	if req.ConversationID != "" {
		ctx = logging.WithConversationID(ctx, req.ConversationID)
	}

	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "scheduling.schedule")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.key", key),
		attribute.String("risk.tier", req.Tier.String()),
	)

	if !req.Tier.Valid() {
		err := newError("schedule", KindInvalid, fmt.Errorf("risk tier %s", req.Tier))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.Requests.WithLabelValues("failed").Inc()
		return nil, err
	}

	if ev, ok := s.ledger.Active(key); ok {
		span.SetAttributes(attribute.Bool("duplicate", true))
		s.metrics.Requests.WithLabelValues("duplicate").Inc()
		s.logger.Debug(ctx, "follow-up already scheduled", zap.String("event_id", ev.ID))
		return ev, nil
	}

	// The flight outlives any single caller; each caller stops waiting when
	// its own context ends.
	ch := s.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.flightTimeout())
		defer cancel()
		return s.book(flightCtx, key, req)
	})

	var (
		v   any
		err error
	)
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
		span.SetAttributes(attribute.Bool("shared", res.Shared))
	case <-ctx.Done():
		err = newError("schedule", KindTransient, ctx.Err())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.Requests.WithLabelValues("failed").Inc()
		s.logger.Error(ctx, "follow-up scheduling failed", zap.Error(err))
		return nil, err
	}

	ev := v.(*Event).clone()
	span.SetAttributes(
		attribute.String("event.id", ev.ID),
		attribute.Int("attempts", ev.Attempts),
	)
	return ev, nil
}

// flightTimeout bounds a booking flight: the credential check, two inserts
// and the pause between them.
func (s *Service) flightTimeout() time.Duration {
	return time.Duration(maxAttempts+1)*s.callTimeout + s.retryDelay
}

func (s *Service) book(ctx context.Context, key string, req Request) (*Event, error) {
	// A flight that finished between the caller's ledger check and this one
	// has already recorded the event.
	if ev, ok := s.ledger.Active(key); ok {
		s.metrics.Requests.WithLabelValues("duplicate").Inc()
		return ev, nil
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, newError("schedule", KindTransient, err)
	}
	defer s.sem.Release(1)

	if s.credentials != nil {
		if _, err := s.credentials.Token(ctx); err != nil {
			var se *Error
			if errors.As(err, &se) && se.Kind == KindAuth {
				return nil, err
			}
			return nil, newError("credentials", KindAuth, err)
		}
	}

	now := s.now()
	startAt, endAt, err := s.policy.Window(now, req.Tier)
	if err != nil {
		return nil, newError("schedule", KindInvalid, err)
	}

	summary := req.Summary
	if summary == "" {
		summary = DefaultSummary(req.Tier)
	}

	booking := Booking{
		EventID:     EventID(key, s.ledger.Generation(key)),
		Summary:     summary,
		Description: req.Description,
		Start:       startAt,
		End:         endAt,
		TimeZone:    s.policy.TimeZone,
		Reminders:   s.policy.Reminders,
	}

	conf, attempts, err := s.insertWithRetry(ctx, booking)
	if err != nil {
		return nil, err
	}

	ev := &Event{
		ID:              uuid.NewString(),
		ConversationID:  req.ConversationID,
		IdempotencyKey:  key,
		Tier:            req.Tier,
		Summary:         summary,
		Description:     req.Description,
		Start:           startAt,
		End:             endAt,
		Status:          StatusScheduled,
		CalendarEventID: conf.ID,
		HTMLLink:        conf.HTMLLink,
		Attempts:        attempts,
		CreatedAt:       now.UTC(),
	}
	if !s.ledger.Record(ev) {
		// Only possible if the ledger is shared with another service.
		existing, _ := s.ledger.Active(key)
		s.metrics.Requests.WithLabelValues("duplicate").Inc()
		return existing, nil
	}

	s.metrics.Requests.WithLabelValues("booked").Inc()
	s.logger.Info(ctx, "follow-up scheduled",
		zap.String("event_id", ev.ID),
		zap.String("calendar_event_id", ev.CalendarEventID),
		zap.String("tier", ev.Tier.String()),
		zap.Time("start", ev.Start),
		zap.Int("attempts", attempts))
	return ev, nil
}

// insertWithRetry makes at most two attempts; only ErrTransient is retried.
func (s *Service) insertWithRetry(ctx context.Context, b Booking) (Confirmation, int, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			s.metrics.Retries.Inc()
			s.logger.Warn(ctx, "retrying calendar insert",
				zap.Duration("delay", s.retryDelay), zap.Error(lastErr))
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return Confirmation{}, attempt - 1, newError("insert", KindTransient, ctx.Err())
			}
		}

		conf, err := s.insertOnce(ctx, b)
		if err == nil {
			s.metrics.Attempts.WithLabelValues("ok").Inc()
			return conf, attempt, nil
		}

		kind, ok := KindOf(err)
		if !ok {
			err = newError("insert", KindTransient, err)
		}
		s.metrics.Attempts.WithLabelValues(kind.String()).Inc()
		lastErr = err
		if kind != KindTransient || ctx.Err() != nil {
			return Confirmation{}, attempt, err
		}
	}
	return Confirmation{}, maxAttempts, lastErr
}

func (s *Service) insertOnce(ctx context.Context, b Booking) (Confirmation, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.booker.Insert(callCtx, b)
}

// Cancel deletes the active event for key and marks it cancelled, so a new
// booking can be made for the same conversation.
func (s *Service) Cancel(ctx context.Context, key string) error {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "scheduling.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("booking.key", key))
	ctx = logging.WithBookingKey(ctx, key)

	ev, ok := s.ledger.Active(key)
	if !ok {
		return newError("cancel", KindNotFound, fmt.Errorf("no active event for %q", key))
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return newError("cancel", KindTransient, err)
	}
	defer s.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	if err := s.booker.Delete(callCtx, ev.CalendarEventID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if _, ok := KindOf(err); !ok {
			err = newError("cancel", KindTransient, err)
		}
		return err
	}

	s.ledger.Cancel(key, s.now().UTC())
	s.logger.Info(ctx, "follow-up cancelled", zap.String("event_id", ev.ID))
	return nil
}
