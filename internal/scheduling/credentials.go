package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/fyrsmithlabs/medtriage/internal/logging"
)

// ErrNoCredential is returned by a CredentialStore holding no token.
var ErrNoCredential = errors.New("no stored credential")

const (
	// expiryDelta treats tokens about to expire as expired.
	expiryDelta = time.Minute
	// acquireTimeout bounds one acquisition, interactive consent included.
	acquireTimeout = 5 * time.Minute
	// sourceTimeout bounds a token lookup made through TokenSource.
	sourceTimeout = 30 * time.Second
)

// CredentialStore persists the calendar OAuth token.
type CredentialStore interface {
	Load(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, tok *oauth2.Token) error
}

// Authorizer obtains a fresh token, usually interactively.
type Authorizer interface {
	Authorize(ctx context.Context) (*oauth2.Token, error)
}

// CredentialProvider hands out a valid access token.
type CredentialProvider interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// FileCredentialStore keeps the token as JSON in a 0600 file.
type FileCredentialStore struct {
	path string
	mu   sync.Mutex
}

// NewFileCredentialStore creates a store at path.
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

// Path returns the token file location.
func (s *FileCredentialStore) Path() string { return s.path }

// Load reads the token. A missing file yields ErrNoCredential.
func (s *FileCredentialStore) Load(_ context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("reading credential: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decoding credential: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, ErrNoCredential
	}
	return &tok, nil
}

// Save writes the token atomically.
func (s *FileCredentialStore) Save(_ context.Context, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("nil token")
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating credential dir: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("writing credential: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming credential: %w", err)
	}
	return nil
}

// TokenManager owns the credential lifecycle: load from the store on first
// use, refresh when expired, run the authorizer when there is nothing to
// refresh, and persist every new token before handing it out. Concurrent
// callers share a single acquisition.
type TokenManager struct {
	store      CredentialStore
	authorizer Authorizer
	oauth      *oauth2.Config
	logger     *logging.Logger
	metrics    *Metrics
	now        func() time.Time

	acquireTimeout time.Duration
	sourceTimeout  time.Duration

	group singleflight.Group
	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenManager creates a manager. oauthCfg is used for refreshing and may
// be nil when tokens are never refreshed; authorizer may be nil when only
// stored tokens are acceptable.
func NewTokenManager(store CredentialStore, authorizer Authorizer, oauthCfg *oauth2.Config, logger *logging.Logger) *TokenManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TokenManager{
		store:      store,
		authorizer: authorizer,
		oauth:      oauthCfg,
		logger:     logger,
		metrics:    NewMetrics(),
		now:        time.Now,

		acquireTimeout: acquireTimeout,
		sourceTimeout:  sourceTimeout,
	}
}

// Token returns a valid token, acquiring one if needed. Failures wrap ErrAuth.
// The acquisition is not tied to ctx: a caller that gives up leaves it
// running for the callers still waiting.
func (m *TokenManager) Token(ctx context.Context) (*oauth2.Token, error) {
	if tok := m.cached(); tok != nil {
		return tok, nil
	}

	ch := m.group.DoChan("credential", func() (any, error) {
		acquireCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.acquireTimeout)
		defer cancel()
		return m.acquire(acquireCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	case <-ctx.Done():
		return nil, newError("credentials", KindAuth, ctx.Err())
	}
}

// TokenSource adapts the manager for clients that take an oauth2.TokenSource.
// oauth2 transports pass no context, so each lookup is bounded by
// sourceTimeout. Service.Schedule acquires the token under the booking's
// context before inserting, so this path normally hits the cache.
func (m *TokenManager) TokenSource() oauth2.TokenSource {
	return managedSource{m: m}
}

type managedSource struct{ m *TokenManager }

func (s managedSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.m.sourceTimeout)
	defer cancel()
	return s.m.Token(ctx)
}

func (m *TokenManager) cached() *oauth2.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.valid(m.token) {
		return m.token
	}
	return nil
}

func (m *TokenManager) valid(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return true
	}
	return tok.Expiry.After(m.now().Add(expiryDelta))
}

func (m *TokenManager) acquire(ctx context.Context) (*oauth2.Token, error) {
	// Another flight may have finished while this caller waited.
	if tok := m.cached(); tok != nil {
		return tok, nil
	}

	m.mu.Lock()
	tok := m.token
	m.mu.Unlock()

	if tok == nil {
		stored, err := m.store.Load(ctx)
		switch {
		case errors.Is(err, ErrNoCredential):
		case err != nil:
			m.logger.Warn(ctx, "stored credential unreadable", zap.Error(err))
		default:
			tok = stored
		}
	}

	if m.valid(tok) {
		m.set(tok)
		return tok, nil
	}

	if tok != nil && tok.RefreshToken != "" && m.oauth != nil {
		refreshed, err := m.oauth.TokenSource(ctx, tok).Token()
		if err == nil {
			m.metrics.CredentialRefreshes.WithLabelValues("refreshed").Inc()
			return m.persist(ctx, refreshed)
		}
		m.metrics.CredentialRefreshes.WithLabelValues("refresh_failed").Inc()
		m.logger.Warn(ctx, "credential refresh failed", zap.Error(err))
	}

	if m.authorizer == nil {
		return nil, newError("credentials", KindAuth, errors.New("no valid credential and no authorizer configured"))
	}

	m.logger.Info(ctx, "authorizing calendar access")
	fresh, err := m.authorizer.Authorize(ctx)
	if err != nil {
		m.metrics.CredentialRefreshes.WithLabelValues("authorize_failed").Inc()
		return nil, newError("credentials", KindAuth, err)
	}
	if fresh == nil || fresh.AccessToken == "" {
		return nil, newError("credentials", KindAuth, errors.New("authorizer returned an empty token"))
	}
	m.metrics.CredentialRefreshes.WithLabelValues("authorized").Inc()
	return m.persist(ctx, fresh)
}

func (m *TokenManager) persist(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	if err := m.store.Save(ctx, tok); err != nil {
		return nil, newError("credentials", KindAuth, fmt.Errorf("persisting credential: %w", err))
	}
	m.set(tok)
	return tok, nil
}

func (m *TokenManager) set(tok *oauth2.Token) {
	m.mu.Lock()
	m.token = tok
	m.mu.Unlock()
}
