package scheduling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/fyrsmithlabs/medtriage/internal/risk"
)

type calendarStub struct {
	mu       sync.Mutex
	requests []string
	bodies   []map[string]any
	handle   func(w http.ResponseWriter, r *http.Request)
}

func (c *calendarStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.requests = append(c.requests, r.Method+" "+r.URL.Path)
	if r.Body != nil && r.Method == http.MethodPost {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		c.bodies = append(c.bodies, body)
	}
	c.mu.Unlock()
	c.handle(w, r)
}

func newCalendarBackend(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) (*GoogleCalendar, *calendarStub) {
	t.Helper()
	stub := &calendarStub{handle: handle}
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "ya29.test"})
	g, err := NewGoogleCalendar(context.Background(), GoogleCalendarConfig{Endpoint: server.URL + "/"}, ts)
	require.NoError(t, err)
	return g, stub
}

func testBooking() Booking {
	start := time.Date(2024, 3, 2, 14, 30, 0, 0, time.UTC)
	return Booking{
		EventID:     EventID("c1", 0),
		Summary:     DefaultSummary(risk.TierHigh),
		Description: "Symptoms: fever",
		Start:       start,
		End:         start.Add(time.Hour),
		TimeZone:    "UTC",
		Reminders:   DefaultPolicy().Reminders,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGoogleCalendar_Insert(t *testing.T) {
	g, stub := newCalendarBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ya29.test", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"id":       EventID("c1", 0),
			"htmlLink": "https://calendar.google.com/event?eid=x",
			"status":   "confirmed",
		})
	})

	conf, err := g.Insert(context.Background(), testBooking())
	require.NoError(t, err)
	assert.Equal(t, EventID("c1", 0), conf.ID)
	assert.Equal(t, "confirmed", conf.Status)
	assert.Equal(t, []string{"POST /calendars/primary/events"}, stub.requests)

	body := stub.bodies[0]
	assert.Equal(t, EventID("c1", 0), body["id"])
	assert.Equal(t, "Follow-up Meeting for High-Risk Patient", body["summary"])
	assert.Equal(t, map[string]any{"dateTime": "2024-03-02T14:30:00Z", "timeZone": "UTC"}, body["start"])
	assert.Equal(t, map[string]any{"dateTime": "2024-03-02T15:30:00Z", "timeZone": "UTC"}, body["end"])
	assert.Equal(t, map[string]any{
		"useDefault": false,
		"overrides": []any{
			map[string]any{"method": "email", "minutes": 1440.0},
			map[string]any{"method": "popup", "minutes": 10.0},
		},
	}, body["reminders"])
}

func TestGoogleCalendar_InsertConflictFetchesExisting(t *testing.T) {
	id := EventID("c1", 0)
	g, stub := newCalendarBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error": map[string]any{"code": 409, "message": "The requested identifier already exists."},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": "confirmed"})
	})

	conf, err := g.Insert(context.Background(), testBooking())
	require.NoError(t, err)
	assert.Equal(t, id, conf.ID)
	assert.Equal(t, []string{
		"POST /calendars/primary/events",
		"GET /calendars/primary/events/" + id,
	}, stub.requests)
}

func TestGoogleCalendar_InsertConflictWithCancelledEvent(t *testing.T) {
	g, _ := newCalendarBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(w, http.StatusConflict, map[string]any{"error": map[string]any{"code": 409}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "x", "status": "cancelled"})
	})

	_, err := g.Insert(context.Background(), testBooking())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGoogleCalendar_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"code":401,"message":"Invalid Credentials"}}`, ErrAuth},
		{"forbidden", http.StatusForbidden, `{"error":{"code":403,"message":"Forbidden","errors":[{"reason":"forbidden"}]}}`, ErrAuth},
		{"rate limited 403", http.StatusForbidden, `{"error":{"code":403,"errors":[{"reason":"rateLimitExceeded"}]}}`, ErrTransient},
		{"too many requests", http.StatusTooManyRequests, `{"error":{"code":429}}`, ErrTransient},
		{"unavailable", http.StatusServiceUnavailable, `{"error":{"code":503}}`, ErrTransient},
		{"bad request", http.StatusBadRequest, `{"error":{"code":400,"message":"Invalid start time"}}`, ErrInvalidRequest},
		{"garbage body", http.StatusOK, `<html>oops</html>`, ErrMalformedResponse},
		{"missing id", http.StatusOK, `{"status":"confirmed"}`, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newCalendarBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := g.Insert(context.Background(), testBooking())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGoogleCalendar_Delete(t *testing.T) {
	g, stub := newCalendarBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/gone") {
			writeJSON(w, http.StatusGone, map[string]any{"error": map[string]any{"code": 410}})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, g.Delete(context.Background(), "abc"))
	require.NoError(t, g.Delete(context.Background(), "gone"))
	assert.Equal(t, "DELETE /calendars/primary/events/abc", stub.requests[0])
}

func TestService_WithGoogleCalendar_RetriesServerError(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	g, _ := newCalendarBackend(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			writeJSON(w, http.StatusBadGateway, map[string]any{"error": map[string]any{"code": 502}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": EventID("c9", 0), "status": "confirmed"})
	})

	svc := newTestService(g)
	ev, err := svc.Schedule(context.Background(), Request{ConversationID: "c9", Tier: risk.TierHigh})
	require.NoError(t, err)
	assert.Equal(t, 2, ev.Attempts)
	assert.Equal(t, EventID("c9", 0), ev.CalendarEventID)
}
