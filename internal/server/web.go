package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/drivepicker/internal/google"
	"github.com/teemow/drivepicker/internal/instrumentation"
	"github.com/teemow/drivepicker/internal/logging"
)

const (
	// MCPEndpointPath is where the streamable HTTP transport is mounted.
	MCPEndpointPath = "/mcp"

	// DefaultHTTPAddr is the default listen address of the http transport.
	DefaultHTTPAddr = ":8080"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	indexTemplate  = template.Must(template.ParseFS(templateFS, "templates/index.html"))
	pickerTemplate = template.Must(template.ParseFS(templateFS, "templates/picker.html"))
)

// pickerCSP allows the Google Picker scripts and frames on /picker.
const pickerCSP = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline' https://apis.google.com https://*.google.com; " +
	"frame-src https://docs.google.com https://drive.google.com https://*.google.com; " +
	"connect-src https://*.googleapis.com https://*.google.com; " +
	"img-src 'self' data: https://*.googleusercontent.com https://*.google.com https://*.gstatic.com; " +
	"style-src 'self' 'unsafe-inline' https://*.gstatic.com"

// WebServer is the http transport: the MCP endpoint plus the sign-in and
// picker pages and the health probes, on one listener.
type WebServer struct {
	sc         *ServerContext
	mcpServer  *mcpserver.MCPServer
	health     *HealthChecker
	addr       string
	httpServer *http.Server
}

// NewWebServer creates the http transport for mcpServer.
func NewWebServer(sc *ServerContext, mcpServer *mcpserver.MCPServer, addr string) *WebServer {
	if addr == "" {
		addr = DefaultHTTPAddr
	}
	return &WebServer{
		sc:        sc,
		mcpServer: mcpServer,
		health:    NewHealthChecker(sc),
		addr:      addr,
	}
}

// Health returns the health checker backing the probe endpoints.
func (s *WebServer) Health() *HealthChecker {
	return s.health
}

// Handler returns the routes wrapped by the HTTP metrics middleware.
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /login", s.handleLogin)
	mux.HandleFunc("GET "+google.CallbackPath, s.handleCallback)
	mux.HandleFunc("GET /picker", s.handlePicker)

	mux.Handle(MCPEndpointPath, mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(MCPEndpointPath),
	))

	s.health.RegisterHealthEndpoints(mux)

	return metricsMiddleware(s.sc.Metrics(), mux)
}

// Start listens on the configured address and blocks until Shutdown.
func (s *WebServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}

	s.sc.Logger().Info("starting http transport",
		slog.String("addr", s.addr),
		slog.String("base_url", s.sc.baseURL))

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown marks the server unready and drains open connections.
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the configured listen address.
func (s *WebServer) Addr() string {
	return s.addr
}

func (s *WebServer) handleIndex(w http.ResponseWriter, _ *http.Request) {
	setPageHeaders(w, "default-src 'self'; style-src 'unsafe-inline'")
	data := map[string]any{
		"Authenticated": s.sc.Credentials().IsAuthenticated(),
		"MCPURL":        s.sc.baseURL + MCPEndpointPath,
		"ReadOnly":      s.sc.ReadOnly(),
	}
	if err := indexTemplate.Execute(w, data); err != nil {
		s.sc.Logger().Error("failed to render index page", logging.Err(err))
	}
}

func (s *WebServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	conf := s.sc.Credentials().Config()
	if conf == nil {
		http.Error(w, "OAuth client is not configured", http.StatusServiceUnavailable)
		return
	}

	state := s.sc.States().Issue()
	http.Redirect(w, r, google.AuthURL(conf, state), http.StatusFound)
}

func (s *WebServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithComponent(s.sc.Logger(), "web")

	err := google.HandleCallbackRequest(w, r, s.sc.States().Consume, s.sc.Credentials().ExchangeCode)
	if err != nil {
		logger.Warn("sign-in failed", logging.Err(err))
		return
	}
	logger.Info("sign-in completed", logging.Status(instrumentation.StatusSuccess))
}

func (s *WebServer) handlePicker(w http.ResponseWriter, r *http.Request) {
	picker := s.sc.Picker()
	if picker.APIKey == "" {
		http.Error(w, "The file picker is not configured: set --picker-api-key", http.StatusServiceUnavailable)
		return
	}

	accessToken, err := s.sc.Credentials().AccessToken(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	setPageHeaders(w, pickerCSP)

	data := map[string]any{
		"AccessToken": accessToken,
		"APIKey":      picker.APIKey,
		"AppID":       picker.AppID,
	}
	if err := pickerTemplate.Execute(w, data); err != nil {
		s.sc.Logger().Error("failed to render picker page", logging.Err(err))
	}
}

func setPageHeaders(w http.ResponseWriter, csp string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", csp)
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
}

// statusRecorder captures the response status for the metrics middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent event streams on /mcp working through the wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// metricsMiddleware records http_requests_total and
// http_request_duration_seconds for every request.
func metricsMiddleware(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
