package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"

	"github.com/teemow/drivepicker/internal/drive"
	"github.com/teemow/drivepicker/internal/google"
	"github.com/teemow/drivepicker/internal/instrumentation"
	"github.com/teemow/drivepicker/internal/logging"
)

// Mode is the transport the server runs with. It is fixed for the process
// lifetime and decides the OAuth redirect target and the tool set.
type Mode string

const (
	ModeStdio Mode = "stdio"
	ModeHTTP  Mode = "http"
)

// PickerConfig holds the Google Picker settings rendered into /picker.
type PickerConfig struct {
	APIKey string
	AppID  string
}

// Options configures a ServerContext.
type Options struct {
	Mode         Mode
	BaseURL      string
	CallbackPort int
	ReadOnly     bool
	Picker       PickerConfig

	Credentials *google.CredentialStore

	// DriveOptions are appended to every Drive client, e.g. an endpoint override.
	DriveOptions []option.ClientOption

	Metrics     *instrumentation.Metrics
	AuditLogger *instrumentation.AuditLogger
	Logger      *slog.Logger
}

// ServerContext holds the state shared by tool handlers and HTTP routes.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	mode         Mode
	baseURL      string
	callbackPort int
	readOnly     bool
	picker       PickerConfig
	creds        *google.CredentialStore
	driveOpts    []option.ClientOption
	metrics      *instrumentation.Metrics
	auditLogger  *instrumentation.AuditLogger
	logger       *slog.Logger
	states       *StateStore

	mu       sync.RWMutex
	callback *google.CallbackServer
	shutdown bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.Credentials == nil {
		return nil, errors.New("credential store is required")
	}

	switch opts.Mode {
	case ModeStdio:
	case ModeHTTP:
		if opts.BaseURL == "" {
			return nil, errors.New("base URL is required in http mode")
		}
	default:
		return nil, fmt.Errorf("unsupported mode %q", opts.Mode)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:          shutdownCtx,
		cancel:       cancel,
		mode:         opts.Mode,
		baseURL:      strings.TrimSuffix(opts.BaseURL, "/"),
		callbackPort: opts.CallbackPort,
		readOnly:     opts.ReadOnly,
		picker:       opts.Picker,
		creds:        opts.Credentials,
		driveOpts:    opts.DriveOptions,
		metrics:      opts.Metrics,
		auditLogger:  opts.AuditLogger,
		logger:       logger,
		states:       NewStateStore(google.CallbackTimeout),
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Mode returns the transport mode.
func (sc *ServerContext) Mode() Mode {
	return sc.mode
}

// ReadOnly reports whether write tools are disabled.
func (sc *ServerContext) ReadOnly() bool {
	return sc.readOnly
}

// Credentials returns the credential store.
func (sc *ServerContext) Credentials() *google.CredentialStore {
	return sc.creds
}

// Picker returns the Google Picker settings.
func (sc *ServerContext) Picker() PickerConfig {
	return sc.picker
}

// Metrics returns the metrics recorder, or nil when metrics are disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// States returns the OAuth state store used by the HTTP login flow.
func (sc *ServerContext) States() *StateStore {
	return sc.states
}

// LoginURL is the HTTP transport's login page.
func (sc *ServerContext) LoginURL() string {
	return sc.baseURL + "/login"
}

// PickerURL is the HTTP transport's file picker page.
func (sc *ServerContext) PickerURL() string {
	return sc.baseURL + "/picker"
}

// DriveClient returns a Drive client authorized by the credential store. It
// fails with google.ErrNotAuthenticated or google.ErrNoRefreshToken before
// any Drive call is made when no usable credential is held.
func (sc *ServerContext) DriveClient(ctx context.Context) (*drive.Client, error) {
	if _, err := sc.creds.Token(ctx); err != nil {
		return nil, err
	}

	client, err := drive.NewClient(ctx, sc.creds.TokenSource(ctx), sc.driveOpts...)
	if err != nil {
		return nil, err
	}
	client.SetMetrics(sc.metrics)
	return client, nil
}

// StartLoopbackLogin starts a one-shot callback listener and returns the
// consent URL. A listener from an earlier call is replaced. The listener
// exits after one callback, after google.CallbackTimeout or on shutdown.
func (sc *ServerContext) StartLoopbackLogin() (string, error) {
	state := sc.states.Issue()
	conf := sc.creds.Config()
	if conf == nil {
		return "", errors.New("OAuth client is not configured")
	}

	cb := google.NewCallbackServer(sc.callbackPort, state, sc.creds.ExchangeCode)

	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return "", errors.New("server is shutting down")
	}
	if sc.callback != nil {
		sc.callback.Stop()
	}
	sc.callback = cb
	sc.mu.Unlock()

	ctx, cancel := context.WithTimeout(sc.ctx, google.CallbackTimeout)
	if _, err := cb.Start(ctx); err != nil {
		cancel()
		return "", err
	}

	go func() {
		defer cancel()
		start := time.Now()
		err := cb.Wait(ctx)
		cb.Stop()
		sc.states.Consume(state)

		if err != nil {
			sc.logger.Warn("loopback login did not complete",
				logging.Err(err),
				slog.Duration("waited", time.Since(start)))
			return
		}
		sc.logger.Info("loopback login completed", logging.Status(instrumentation.StatusSuccess))
	}()

	return google.AuthURL(conf, state), nil
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	if sc.callback != nil {
		sc.callback.Stop()
		sc.callback = nil
	}
	sc.cancel()
	return nil
}
