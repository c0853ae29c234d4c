package google

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"
)

// CallbackTimeout is how long to wait for the OAuth callback.
const CallbackTimeout = 10 * time.Minute

//go:embed templates/callback_success.html
var callbackSuccessHTML string

//go:embed templates/callback_error.html
var callbackErrorHTML string

var (
	successTemplate = template.Must(template.New("success").Parse(callbackSuccessHTML))
	errorTemplate   = template.Must(template.New("error").Parse(callbackErrorHTML))
)

// ExchangeFunc completes the flow with the authorization code.
type ExchangeFunc func(ctx context.Context, code string) error

// CallbackServer is a temporary loopback HTTP server that receives a single
// OAuth redirect, exchanges the code and shuts down.
type CallbackServer struct {
	port     int
	state    string
	exchange ExchangeFunc

	server    *http.Server
	listener  net.Listener
	resultCh  chan error
	once      sync.Once
	stopOnce  sync.Once
	serverURL string
}

// NewCallbackServer creates a callback server for the given port. Port 0
// picks a free port. Requests whose state differs from state are rejected.
func NewCallbackServer(port int, state string, exchange ExchangeFunc) *CallbackServer {
	return &CallbackServer{
		port:     port,
		state:    state,
		exchange: exchange,
		resultCh: make(chan error, 1),
	}
}

// Start listens on the loopback interface and returns the redirect URL.
// The server stops when ctx is cancelled.
func (s *CallbackServer) Start(ctx context.Context) (string, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.serverURL = fmt.Sprintf("http://localhost:%d", s.port)

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.resultCh <- fmt.Errorf("callback server failed: %w", err):
			default:
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return s.RedirectURL(), nil
}

// Wait blocks until the callback was handled, the server failed or ctx ends.
// It returns the exchange result.
func (s *CallbackServer) Wait(ctx context.Context) error {
	select {
	case err := <-s.resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	setSecurityHeaders(w)

	query := r.URL.Query()
	if query.Get("state") != s.state {
		renderError(w, http.StatusBadRequest, "invalid_state", "The sign-in request did not originate from this server.")
		return
	}

	handled := false
	s.once.Do(func() {
		handled = true
		err := s.process(r.Context(), query.Get("code"), query.Get("error"), query.Get("error_description"))
		if err != nil {
			renderError(w, http.StatusBadRequest, "authorization_failed", err.Error())
		} else {
			renderSuccess(w)
		}

		select {
		case s.resultCh <- err:
		default:
		}

		go func() {
			time.Sleep(time.Second)
			s.Stop()
		}()
	})

	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

func (s *CallbackServer) process(ctx context.Context, code, errCode, errDescription string) error {
	if errCode != "" {
		if errDescription != "" {
			return fmt.Errorf("authorization denied: %s: %s", errCode, errDescription)
		}
		return fmt.Errorf("authorization denied: %s", errCode)
	}
	if code == "" {
		return errors.New("authorization code missing from callback")
	}
	return s.exchange(ctx, code)
}

// Stop shuts the server down. It is safe to call more than once.
func (s *CallbackServer) Stop() {
	s.stopOnce.Do(func() {
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.server.Shutdown(ctx)
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}

// RedirectURL returns the redirect URL for the OAuth configuration.
func (s *CallbackServer) RedirectURL() string {
	return s.serverURL + CallbackPath
}

// Port returns the port the server is listening on.
func (s *CallbackServer) Port() int {
	return s.port
}

// HandleCallbackRequest serves an OAuth redirect on a long-lived server:
// it validates the state with validState, exchanges the code and renders the
// result page. It returns the exchange error, if any.
func HandleCallbackRequest(w http.ResponseWriter, r *http.Request, validState func(string) bool, exchange ExchangeFunc) error {
	setSecurityHeaders(w)

	query := r.URL.Query()
	if !validState(query.Get("state")) {
		renderError(w, http.StatusBadRequest, "invalid_state", "The sign-in request expired or did not originate from this server.")
		return errors.New("invalid OAuth state")
	}

	s := &CallbackServer{exchange: exchange}
	err := s.process(r.Context(), query.Get("code"), query.Get("error"), query.Get("error_description"))
	if err != nil {
		renderError(w, http.StatusBadRequest, "authorization_failed", err.Error())
		return err
	}
	renderSuccess(w)
	return nil
}

func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
}

func renderSuccess(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := successTemplate.Execute(w, nil); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func renderError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = errorTemplate.Execute(w, map[string]string{
		"Error":       code,
		"Description": description,
	})
}
