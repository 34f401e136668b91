package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleCalendar books events through the Google Calendar v3 API.
type GoogleCalendar struct {
	svc        *calendar.Service
	calendarID string
	limiter    *rate.Limiter
}

// GoogleCalendarConfig configures the backend.
type GoogleCalendarConfig struct {
	CalendarID string
	// Endpoint overrides the API base URL.
	Endpoint string
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
}

// NewGoogleCalendar creates a backend authenticating with ts.
func NewGoogleCalendar(ctx context.Context, cfg GoogleCalendarConfig, ts oauth2.TokenSource, opts ...option.ClientOption) (*GoogleCalendar, error) {
	clientOpts := []option.ClientOption{option.WithTokenSource(ts)}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar client: %w", err)
	}
	return newGoogleCalendar(svc, cfg), nil
}

func newGoogleCalendar(svc *calendar.Service, cfg GoogleCalendarConfig) *GoogleCalendar {
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &GoogleCalendar{svc: svc, calendarID: calendarID, limiter: rate.NewLimiter(limit, 1)}
}

// Insert creates the event. A 409 means the deterministic ID already exists,
// so the existing event is fetched and returned.
func (g *GoogleCalendar) Insert(ctx context.Context, b Booking) (Confirmation, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return Confirmation{}, err
	}

	created, err := g.svc.Events.Insert(g.calendarID, toCalendarEvent(b)).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusConflict {
			return g.existing(ctx, b.EventID)
		}
		return Confirmation{}, classifyCalendarError("insert", err)
	}
	return confirmationFrom("insert", created)
}

func (g *GoogleCalendar) existing(ctx context.Context, eventID string) (Confirmation, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return Confirmation{}, err
	}
	ev, err := g.svc.Events.Get(g.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return Confirmation{}, classifyCalendarError("get", err)
	}
	if ev.Status == "cancelled" {
		return Confirmation{}, newError("insert", KindConflict,
			fmt.Errorf("event %s exists and is cancelled", eventID))
	}
	return confirmationFrom("get", ev)
}

// Delete removes the event. An event that is already gone counts as deleted.
func (g *GoogleCalendar) Delete(ctx context.Context, eventID string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	err := g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
			return nil
		}
		return classifyCalendarError("delete", err)
	}
	return nil
}

func toCalendarEvent(b Booking) *calendar.Event {
	tz := b.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	overrides := make([]*calendar.EventReminder, 0, len(b.Reminders))
	for _, r := range b.Reminders {
		overrides = append(overrides, &calendar.EventReminder{Method: r.Method, Minutes: int64(r.Minutes)})
	}
	return &calendar.Event{
		Id:          b.EventID,
		Summary:     b.Summary,
		Description: b.Description,
		Start:       &calendar.EventDateTime{DateTime: b.Start.UTC().Format(time.RFC3339), TimeZone: tz},
		End:         &calendar.EventDateTime{DateTime: b.End.UTC().Format(time.RFC3339), TimeZone: tz},
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

func confirmationFrom(op string, ev *calendar.Event) (Confirmation, error) {
	if ev == nil || ev.Id == "" {
		return Confirmation{}, newError(op, KindMalformed, errors.New("response carries no event id"))
	}
	return Confirmation{ID: ev.Id, HTMLLink: ev.HtmlLink, Status: ev.Status}, nil
}

// classifyCalendarError maps client and API failures onto a Kind.
func classifyCalendarError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newError(op, KindTransient, err)
	}

	var serr *Error
	if errors.As(err, &serr) {
		return newError(op, serr.Kind, err)
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return newError(op, KindAuth, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusUnauthorized:
			return newError(op, KindAuth, err)
		case gerr.Code == http.StatusForbidden && isRateLimitReason(gerr):
			return newError(op, KindTransient, err)
		case gerr.Code == http.StatusForbidden:
			return newError(op, KindAuth, err)
		case gerr.Code == http.StatusNotFound:
			return newError(op, KindNotFound, err)
		case gerr.Code == http.StatusTooManyRequests, gerr.Code >= 500:
			return newError(op, KindTransient, err)
		default:
			return newError(op, KindInvalid, err)
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return newError(op, KindTransient, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) {
		return newError(op, KindMalformed, err)
	}

	// Anything else is a transport failure.
	return newError(op, KindTransient, err)
}

func isRateLimitReason(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}
