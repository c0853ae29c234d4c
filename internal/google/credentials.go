package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/drivepicker/internal/instrumentation"
	"github.com/teemow/drivepicker/internal/logging"
)

var (
	// ErrNotAuthenticated is returned when no credential is held.
	ErrNotAuthenticated = errors.New("not authenticated: run the authenticate tool first")

	// ErrNoRefreshToken is returned when the access token expired and
	// there is no refresh token to renew it.
	ErrNoRefreshToken = errors.New("access token expired and no refresh token is available: authenticate again")

	// ErrNoOAuthClient is returned when a code exchange or refresh needs an
	// OAuth client and none is configured.
	ErrNoOAuthClient = errors.New("OAuth client is not configured")
)

// AuthExchangeError is returned when Google rejects an authorization code.
type AuthExchangeError struct {
	Err error
}

func (e *AuthExchangeError) Error() string {
	return fmt.Sprintf("failed to exchange authorization code: %v", e.Err)
}

func (e *AuthExchangeError) Unwrap() error {
	return e.Err
}

// storedCredential is the on-disk form of the credential.
type storedCredential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
}

// CredentialStatus describes the held credential without exposing it.
type CredentialStatus struct {
	Authenticated   bool
	HasRefreshToken bool
	Expiry          time.Time
	Path            string
}

// CredentialStore owns the OAuth credential and its backing file.
//
// SECURITY: token values are never logged. The file is written with 0600
// permissions inside a 0700 directory.
type CredentialStore struct {
	mu      sync.Mutex
	path    string
	config  *oauth2.Config
	token   *oauth2.Token
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// NewCredentialStore creates an empty store persisting to path. An empty
// path disables persistence. Call Load to read an existing credential.
func NewCredentialStore(path string, config *oauth2.Config) *CredentialStore {
	return &CredentialStore{
		path:   path,
		config: config,
		logger: logging.WithComponent(slog.Default(), "credentials"),
	}
}

// SetMetrics enables OAuth metrics. A nil recorder disables them.
func (s *CredentialStore) SetMetrics(m *instrumentation.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// SetLogger replaces the logger.
func (s *CredentialStore) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logging.WithComponent(logger, "credentials")
}

// Config returns the OAuth configuration used for exchange and refresh.
func (s *CredentialStore) Config() *oauth2.Config {
	return s.config
}

// Path returns the credential file location.
func (s *CredentialStore) Path() string {
	return s.path
}

// Load reads the credential file. A missing or unreadable file leaves the
// store empty; it never fails. Load reports whether a credential was loaded.
func (s *CredentialStore) Load() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
	if s.path == "" {
		return false
	}

	data, err := os.ReadFile(s.path) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read credential file", logging.Path(s.path), logging.Err(err))
		}
		return false
	}

	var stored storedCredential
	if err := json.Unmarshal(data, &stored); err != nil {
		s.logger.Warn("ignoring unreadable credential file", logging.Path(s.path), logging.Err(err))
		return false
	}
	if stored.AccessToken == "" {
		return false
	}

	s.token = &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    stored.TokenType,
		Expiry:       stored.Expiry,
	}
	s.logger.Debug("loaded credential",
		logging.Path(s.path),
		slog.Bool("has_refresh_token", stored.RefreshToken != ""))
	return true
}

// ExchangeCode trades an authorization code for a credential and persists it.
func (s *CredentialStore) ExchangeCode(ctx context.Context, code string) error {
	if code == "" {
		return &AuthExchangeError{Err: errors.New("authorization code is empty")}
	}
	if s.config == nil {
		return &AuthExchangeError{Err: ErrNoOAuthClient}
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		s.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return &AuthExchangeError{Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Google omits the refresh token when consent was already granted.
	if token.RefreshToken == "" && s.token != nil {
		token.RefreshToken = s.token.RefreshToken
	}
	s.token = token
	s.persistLocked()
	s.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)

	s.logger.Info("stored new credential",
		slog.Bool("has_refresh_token", token.RefreshToken != ""),
		slog.Time("expiry", token.Expiry))
	return nil
}

// SetDirect stores a credential obtained elsewhere and persists it.
func (s *CredentialStore) SetDirect(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return errors.New("access token is required")
	}

	t := *token
	if t.TokenType == "" {
		t.TokenType = "Bearer"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = &t
	s.persistLocked()
	s.logger.Info("stored credential", logging.Status(instrumentation.StatusSuccess))
	return nil
}

// Token returns a valid token, refreshing and persisting it when the access
// token has expired.
func (s *CredentialStore) Token(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == nil || s.token.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	if s.token.Valid() {
		t := *s.token
		return &t, nil
	}
	if s.token.RefreshToken == "" {
		s.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultExpired)
		return nil, ErrNoRefreshToken
	}
	if s.config == nil {
		s.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("failed to refresh access token: %w", ErrNoOAuthClient)
	}

	refreshed, err := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: s.token.RefreshToken}).Token()
	if err != nil {
		s.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = s.token.RefreshToken
	}

	s.token = refreshed
	s.persistLocked()
	s.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
	s.logger.Debug("refreshed access token", slog.Time("expiry", refreshed.Expiry))

	t := *refreshed
	return &t, nil
}

// AccessToken returns a currently valid access token.
func (s *CredentialStore) AccessToken(ctx context.Context) (string, error) {
	t, err := s.Token(ctx)
	if err != nil {
		return "", err
	}
	return t.AccessToken, nil
}

// IsAuthenticated reports whether a credential with an access token is held.
// It does not check expiry.
func (s *CredentialStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != nil && s.token.AccessToken != ""
}

// Status describes the held credential.
func (s *CredentialStore) Status() CredentialStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := CredentialStatus{Path: s.path}
	if s.token != nil && s.token.AccessToken != "" {
		st.Authenticated = true
		st.HasRefreshToken = s.token.RefreshToken != ""
		st.Expiry = s.token.Expiry
	}
	return st
}

// TokenSource adapts the store to oauth2.TokenSource.
func (s *CredentialStore) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &storeTokenSource{ctx: ctx, store: s}
}

type storeTokenSource struct {
	ctx   context.Context
	store *CredentialStore
}

func (ts *storeTokenSource) Token() (*oauth2.Token, error) {
	return ts.store.Token(ts.ctx)
}

// Clear forgets the credential and removes the file.
func (s *CredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}

// persistLocked writes the credential file. Failures are logged and
// otherwise ignored. Must be called with mu held.
func (s *CredentialStore) persistLocked() {
	if s.path == "" || s.token == nil {
		return
	}
	if err := s.writeFile(); err != nil {
		s.logger.Warn("failed to persist credential, keeping it in memory only",
			logging.Path(s.path),
			logging.Err(err))
	}
}

func (s *CredentialStore) writeFile() error {
	stored := storedCredential{
		AccessToken:  s.token.AccessToken,
		RefreshToken: s.token.RefreshToken,
		TokenType:    s.token.TokenType,
		Expiry:       s.token.Expiry,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}
