package google

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// CallbackPath is the redirect path in both transports.
	CallbackPath = "/oauth/callback"

	// DefaultCallbackPort is the loopback port used by the stdio transport.
	DefaultCallbackPort = 3000

	appDir          = "drivepicker"
	credentialsFile = "credentials.json"
)

// NewOAuthConfig returns the OAuth2 configuration for the drive.file scope.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       DefaultOAuthScopes,
	}
}

// LoadOAuthConfigFromFile reads an OAuth client key file downloaded from the
// Google Cloud console. redirectURL overrides whatever the file lists.
func LoadOAuthConfigFromFile(path, redirectURL string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read OAuth keys file: %w", err)
	}

	conf, err := google.ConfigFromJSON(data, DefaultOAuthScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OAuth keys file: %w", err)
	}
	conf.RedirectURL = redirectURL
	return conf, nil
}

// AuthURL returns the consent URL. Offline access with a forced consent
// prompt makes Google issue a refresh token on every login.
func AuthURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// LoopbackRedirectURL is the redirect target of the stdio transport.
func LoopbackRedirectURL(port int) string {
	return fmt.Sprintf("http://localhost:%d%s", port, CallbackPath)
}

// RedirectURL is the redirect target of the HTTP transport.
func RedirectURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + CallbackPath
}

// DefaultCredentialsPath returns the credential file location inside the
// user cache directory.
func DefaultCredentialsPath() string {
	return filepath.Join(userCacheDir(), appDir, credentialsFile)
}

func userCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return os.TempDir()
}
