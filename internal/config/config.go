// Package config loads drivepicker settings from an optional YAML file and
// the environment. Command-line flags are applied on top by the cmd package.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teemow/drivepicker/internal/google"
	"github.com/teemow/drivepicker/internal/logging"
)

// Transport names.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	// transportStreamableHTTP is accepted as an alias of TransportHTTP.
	transportStreamableHTTP = "streamable-http"
)

const (
	appDir         = "drivepicker"
	configFileName = "config.yaml"
)

// Config holds every setting of the serve and auth commands.
type Config struct {
	Transport    string `yaml:"transport"`
	HTTPAddr     string `yaml:"http_addr"`
	BaseURL      string `yaml:"base_url"`
	CallbackPort int    `yaml:"callback_port"`

	TokenFile          string `yaml:"token_file"`
	OAuthKeysFile      string `yaml:"oauth_keys_file"`
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`

	// Google Picker settings for the /picker page
	PickerAPIKey string `yaml:"picker_api_key"`
	PickerAppID  string `yaml:"picker_app_id"`

	ReadOnly bool `yaml:"read_only"`
	Debug    bool `yaml:"debug"`

	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsAddr    string `yaml:"metrics_addr"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Transport:      TransportStdio,
		HTTPAddr:       ":8080",
		CallbackPort:   google.DefaultCallbackPort,
		TokenFile:      google.DefaultCredentialsPath(),
		MetricsEnabled: true,
		MetricsAddr:    ":9090",
	}
}

// DefaultPath returns the config file location in the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appDir, configFileName)
}

// Load reads the YAML file at path over the defaults. An empty path or a
// missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the --config flag
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("no config file found, using defaults", logging.Path(path))
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	slog.Debug("loaded config file", logging.Path(path))
	return cfg, nil
}

// ApplyEnv overrides settings with the environment variables that are set.
func (c *Config) ApplyEnv() {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("MCP_TRANSPORT", &c.Transport)
	str("MCP_HTTP_ADDR", &c.HTTPAddr)
	str("MCP_BASE_URL", &c.BaseURL)
	str("DRIVEPICKER_TOKEN_FILE", &c.TokenFile)
	str("GOOGLE_OAUTH_KEYS_FILE", &c.OAuthKeysFile)
	str("GOOGLE_CLIENT_ID", &c.GoogleClientID)
	str("GOOGLE_CLIENT_SECRET", &c.GoogleClientSecret)
	str("GOOGLE_PICKER_API_KEY", &c.PickerAPIKey)
	str("GOOGLE_PICKER_APP_ID", &c.PickerAppID)
	str("METRICS_ADDR", &c.MetricsAddr)
	boolean("DRIVEPICKER_READ_ONLY", &c.ReadOnly)
	boolean("METRICS_ENABLED", &c.MetricsEnabled)

	if v, ok := os.LookupEnv("OAUTH_CALLBACK_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			c.CallbackPort = port
		}
	}
}

// Normalize fills derived settings: the transport alias and, in HTTP mode,
// a base URL derived from the listen address.
func (c *Config) Normalize() {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	if c.Transport == transportStreamableHTTP {
		c.Transport = TransportHTTP
	}

	if c.Transport == TransportHTTP && c.BaseURL == "" {
		host := c.HTTPAddr
		if strings.HasPrefix(host, ":") {
			host = "localhost" + host
		}
		c.BaseURL = "http://" + host
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
}

// Validate checks the settings after Normalize.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("unsupported transport %q: use stdio or http", c.Transport)
	}

	if c.CallbackPort < 0 || c.CallbackPort > 65535 {
		return fmt.Errorf("invalid callback port %d", c.CallbackPort)
	}

	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid base URL %q: must be an absolute http(s) URL", c.BaseURL)
		}
	}

	if c.OAuthKeysFile == "" && (c.GoogleClientID == "" || c.GoogleClientSecret == "") {
		return errors.New("google OAuth client credentials are required: set --google-client-id and --google-client-secret or --oauth-keys-file")
	}
	return nil
}

// RedirectURL returns the OAuth redirect target for the configured transport.
func (c *Config) RedirectURL() string {
	if c.Transport == TransportHTTP {
		return google.RedirectURL(c.BaseURL)
	}
	return google.LoopbackRedirectURL(c.CallbackPort)
}
