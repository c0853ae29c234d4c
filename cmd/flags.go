package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/teemow/drivepicker/internal/config"
	"github.com/teemow/drivepicker/internal/google"
)

// configFlags are the command-line overrides of config.Config. Only flags
// the user actually set replace file and environment values.
type configFlags struct {
	transport          string
	httpAddr           string
	baseURL            string
	callbackPort       int
	tokenFile          string
	oauthKeysFile      string
	googleClientID     string
	googleClientSecret string
	pickerAPIKey       string
	pickerAppID        string
	readOnly           bool
	debug              bool
	metricsEnabled     bool
	metricsAddr        string
}

// registerOAuth adds the flags every command that talks to Google needs.
func (f *configFlags) registerOAuth(cmd *cobra.Command) {
	defaults := config.Default()

	cmd.Flags().StringVar(&f.tokenFile, "token-file", defaults.TokenFile, "Credential file. Can also use DRIVEPICKER_TOKEN_FILE env var.")
	cmd.Flags().StringVar(&f.oauthKeysFile, "oauth-keys-file", "", "OAuth client key file downloaded from the Google Cloud console. Can also use GOOGLE_OAUTH_KEYS_FILE env var.")
	cmd.Flags().StringVar(&f.googleClientID, "google-client-id", "", "Google OAuth client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&f.googleClientSecret, "google-client-secret", "", "Google OAuth client secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().IntVar(&f.callbackPort, "callback-port", defaults.CallbackPort, "Port of the local OAuth callback listener in stdio mode. Can also use OAUTH_CALLBACK_PORT env var.")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "Enable debug logging")
}

// registerServe adds the transport, picker and metrics flags.
func (f *configFlags) registerServe(cmd *cobra.Command) {
	defaults := config.Default()

	f.registerOAuth(cmd)
	cmd.Flags().StringVar(&f.transport, "transport", defaults.Transport, "Transport type: stdio or http. Can also use MCP_TRANSPORT env var.")
	cmd.Flags().StringVar(&f.httpAddr, "http-addr", defaults.HTTPAddr, "HTTP server address (http transport). Can also use MCP_HTTP_ADDR env var.")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Public base URL of the http transport, used for the OAuth redirect. Can also use MCP_BASE_URL env var. Example: https://drive.example.com")
	cmd.Flags().StringVar(&f.pickerAPIKey, "picker-api-key", "", "Google API key for the file picker (http transport). Can also use GOOGLE_PICKER_API_KEY env var.")
	cmd.Flags().StringVar(&f.pickerAppID, "picker-app-id", "", "Google Cloud project number for the file picker. Can also use GOOGLE_PICKER_APP_ID env var.")
	cmd.Flags().BoolVar(&f.readOnly, "read-only", false, "Only register tools that do not modify Drive. Can also use DRIVEPICKER_READ_ONLY env var.")
	cmd.Flags().BoolVar(&f.metricsEnabled, "metrics-enabled", defaults.MetricsEnabled, "Enable the metrics server on a dedicated port (http transport). Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", defaults.MetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
}

// apply copies the flags that were set on cmd into cfg.
func (f *configFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, apply func()) {
		if flag := cmd.Flags().Lookup(name); flag != nil && flag.Changed {
			apply()
		}
	}

	set("transport", func() { cfg.Transport = f.transport })
	set("http-addr", func() { cfg.HTTPAddr = f.httpAddr })
	set("base-url", func() { cfg.BaseURL = f.baseURL })
	set("callback-port", func() { cfg.CallbackPort = f.callbackPort })
	set("token-file", func() { cfg.TokenFile = f.tokenFile })
	set("oauth-keys-file", func() { cfg.OAuthKeysFile = f.oauthKeysFile })
	set("google-client-id", func() { cfg.GoogleClientID = f.googleClientID })
	set("google-client-secret", func() { cfg.GoogleClientSecret = f.googleClientSecret })
	set("picker-api-key", func() { cfg.PickerAPIKey = f.pickerAPIKey })
	set("picker-app-id", func() { cfg.PickerAppID = f.pickerAppID })
	set("read-only", func() { cfg.ReadOnly = f.readOnly })
	set("debug", func() { cfg.Debug = f.debug })
	set("metrics-enabled", func() { cfg.MetricsEnabled = f.metricsEnabled })
	set("metrics-addr", func() { cfg.MetricsAddr = f.metricsAddr })
}

// loadConfig resolves settings with precedence flags, environment, config
// file, defaults. The result is normalized but not validated.
func loadConfig(cmd *cobra.Command, f *configFlags) (config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	cfg.ApplyEnv()
	f.apply(cmd, &cfg)
	cfg.Normalize()
	return cfg, nil
}

// newOAuthConfig builds the OAuth client from the key file or the client
// id and secret.
func newOAuthConfig(cfg config.Config) (*oauth2.Config, error) {
	if cfg.OAuthKeysFile != "" {
		conf, err := google.LoadOAuthConfigFromFile(cfg.OAuthKeysFile, cfg.RedirectURL())
		if err != nil {
			return nil, fmt.Errorf("failed to load OAuth client: %w", err)
		}
		return conf, nil
	}
	return google.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.RedirectURL()), nil
}
