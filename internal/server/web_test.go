package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/oauth2"

	"github.com/teemow/drivepicker/internal/google"
	"github.com/teemow/drivepicker/internal/instrumentation"
)

type webEnv struct {
	sc     *ServerContext
	web    *WebServer
	ts     *httptest.Server
	reader *sdkmetric.ManualReader
}

// newTokenEndpoint fakes Google's token endpoint, accepting "good-code".
func newTokenEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "web-access",
			"refresh_token": "web-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newWebEnv(t *testing.T, picker PickerConfig) *webEnv {
	t.Helper()

	tokenEndpoint := newTokenEndpoint(t)
	conf := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.example.com/o/oauth2/auth",
			TokenURL: tokenEndpoint.URL,
		},
		RedirectURL: google.RedirectURL("http://localhost:8080"),
		Scopes:      google.DefaultOAuthScopes,
	}

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := instrumentation.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	sc, err := NewServerContext(context.Background(), Options{
		Mode:        ModeHTTP,
		BaseURL:     "http://localhost:8080/",
		Picker:      picker,
		Credentials: google.NewCredentialStore("", conf),
		Metrics:     metrics,
		Logger:      slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	mcpServer := mcpserver.NewMCPServer("drivepicker-test", "0.0.0", mcpserver.WithToolCapabilities(true))
	web := NewWebServer(sc, mcpServer, "")

	ts := httptest.NewServer(web.Handler())
	t.Cleanup(ts.Close)

	return &webEnv{sc: sc, web: web, ts: ts, reader: reader}
}

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		Timeout:       5 * time.Second,
	}
}

func get(t *testing.T, rawURL string) (*http.Response, string) {
	t.Helper()
	resp, err := noRedirectClient().Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestWebServer_Index(t *testing.T) {
	env := newWebEnv(t, PickerConfig{})

	resp, body := get(t, env.ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Not connected to Google Drive")
	assert.Contains(t, body, `href="/login"`)
	assert.Contains(t, body, "http://localhost:8080/mcp")

	resp, _ = get(t, env.ts.URL+"/unknown")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebServer_LoginAndCallback(t *testing.T) {
	env := newWebEnv(t, PickerConfig{})

	resp, _ := get(t, env.ts.URL+"/login")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.example.com", location.Host)
	assert.Equal(t, "offline", location.Query().Get("access_type"))
	assert.Equal(t, "http://localhost:8080/oauth/callback", location.Query().Get("redirect_uri"))
	state := location.Query().Get("state")
	require.NotEmpty(t, state)
	assert.Equal(t, 1, env.sc.States().Len())

	resp, body := get(t, env.ts.URL+"/oauth/callback?state=forged&code=good-code")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "invalid_state")
	assert.False(t, env.sc.Credentials().IsAuthenticated())

	resp, body = get(t, env.ts.URL+"/oauth/callback?state="+state+"&code=good-code")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Google Drive connected")
	assert.True(t, env.sc.Credentials().IsAuthenticated())

	resp, _ = get(t, env.ts.URL+"/oauth/callback?state="+state+"&code=good-code")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "state must not be reusable")
}

func TestWebServer_CallbackExchangeFailure(t *testing.T) {
	env := newWebEnv(t, PickerConfig{})
	state := env.sc.States().Issue()

	resp, body := get(t, env.ts.URL+"/oauth/callback?state="+state+"&code=bad-code")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Sign-in failed")
	assert.False(t, env.sc.Credentials().IsAuthenticated())
}

func TestWebServer_Picker(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		env := newWebEnv(t, PickerConfig{})
		resp, _ := get(t, env.ts.URL+"/picker")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("unauthenticated redirects to login", func(t *testing.T) {
		env := newWebEnv(t, PickerConfig{APIKey: "api-key"})
		resp, _ := get(t, env.ts.URL+"/picker")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/login", resp.Header.Get("Location"))
	})

	t.Run("authenticated", func(t *testing.T) {
		env := newWebEnv(t, PickerConfig{APIKey: "api-key", AppID: "4242"})
		require.NoError(t, env.sc.Credentials().SetDirect(&oauth2.Token{
			AccessToken: "picker-access",
			Expiry:      time.Now().Add(time.Hour),
		}))

		resp, body := get(t, env.ts.URL+"/picker")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `"picker-access"`)
		assert.Contains(t, body, `"api-key"`)
		assert.Contains(t, body, `"4242"`)
		assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "https://apis.google.com")
	})
}

func TestWebServer_Health(t *testing.T) {
	env := newWebEnv(t, PickerConfig{})

	resp, _ := get(t, env.ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := get(t, env.ts.URL+"/healthz/detailed")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var detailed DetailedHealthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &detailed))
	assert.Equal(t, "http", detailed.Mode)
	require.NotNil(t, detailed.Credentials)
	assert.False(t, detailed.Credentials.Authenticated)

	resp, body = get(t, env.ts.URL+"/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"credentials":"signed out"`)

	env.web.Health().SetReady(false)
	resp, _ = get(t, env.ts.URL+"/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	env.web.Health().SetReady(true)
	require.NoError(t, env.sc.Shutdown())
	resp, body = get(t, env.ts.URL+"/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, healthStatusShuttingDown)
}

func TestWebServer_MCPEndpoint(t *testing.T) {
	env := newWebEnv(t, PickerConfig{})

	payload := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`
	req, err := http.NewRequest(http.MethodPost, env.ts.URL+MCPEndpointPath, strings.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "drivepicker-test")
}

func TestWebServer_RecordsHTTPMetrics(t *testing.T) {
	env := newWebEnv(t, PickerConfig{})

	get(t, env.ts.URL+"/healthz")
	get(t, env.ts.URL+"/wp-login.php")

	var rm metricdata.ResourceMetrics
	require.NoError(t, env.reader.Collect(context.Background(), &rm))

	paths := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_requests_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				path, _ := dp.Attributes.Value("path")
				paths[path.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(1), paths["/healthz"])
	assert.Equal(t, int64(1), paths["other"])
}
