package scheduling

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/fyrsmithlabs/medtriage/internal/logging"
)

// LoadOAuthConfig reads a Google "installed application" client secret file
// and scopes it to calendar event access.
func LoadOAuthConfig(path string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading client secret: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret: %w", err)
	}
	return cfg, nil
}

// InstalledAppAuthorizer runs the OAuth installed-app flow: it prints the
// consent URL, waits for the browser to hit a loopback redirect and exchanges
// the code (with PKCE) for a token.
type InstalledAppAuthorizer struct {
	config *oauth2.Config
	port   int
	out    io.Writer
	logger *logging.Logger
}

// NewInstalledAppAuthorizer creates an authorizer listening on 127.0.0.1:port.
// Port 0 picks a free port.
func NewInstalledAppAuthorizer(cfg *oauth2.Config, port int, out io.Writer, logger *logging.Logger) *InstalledAppAuthorizer {
	if out == nil {
		out = os.Stderr
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &InstalledAppAuthorizer{config: cfg, port: port, out: out, logger: logger}
}

type callbackResult struct {
	code string
	err  error
}

// Authorize blocks until the user completes consent or ctx is done.
func (a *InstalledAppAuthorizer) Authorize(ctx context.Context) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(a.port)))
	if err != nil {
		return nil, fmt.Errorf("starting redirect listener: %w", err)
	}
	defer ln.Close()

	cfg := *a.config
	cfg.RedirectURL = "http://" + ln.Addr().String() + "/"

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	results := make(chan callbackResult, 1)

	srv := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn(ctx, "redirect listener stopped", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	fmt.Fprintf(a.out, "Open this URL in your browser to authorize calendar access:\n\n%s\n\n", authURL)

	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := cfg.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return tok, nil
}

func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("code") == "":
			res.err = errors.New("authorization response missing code")
		default:
			res.code = q.Get("code")
		}

		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
		}
		select {
		case results <- res:
		default:
		}
	})
}
