package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/teemow/drivepicker/internal/config"
	"github.com/teemow/drivepicker/internal/google"
	"github.com/teemow/drivepicker/internal/logging"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored Google credential",
		Long: `Manage the Google credential drivepicker uses to call the Drive API.

The credential is stored in the token file (default:
<user cache dir>/drivepicker/credentials.json) and shared with the serve
command.`,
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthImportCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		flags     configFlags
		noBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google in the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			cfg.Transport = config.TransportStdio
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runAuthLogin(cmd.Context(), cmd.OutOrStdout(), cfg, !noBrowser)
		},
	}

	flags.registerOAuth(cmd)
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the sign-in URL without opening a browser")

	return cmd
}

func runAuthLogin(ctx context.Context, out io.Writer, cfg config.Config, openBrowser bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.New(os.Stderr, logging.Level(cfg.Transport, cfg.Debug))

	conf, err := newOAuthConfig(cfg)
	if err != nil {
		return err
	}
	creds := google.NewCredentialStore(cfg.TokenFile, conf)
	creds.SetLogger(logger)
	creds.Load()

	ctx, cancel := context.WithTimeout(ctx, google.CallbackTimeout)
	defer cancel()

	state := uuid.NewString()
	cb := google.NewCallbackServer(cfg.CallbackPort, state, creds.ExchangeCode)
	redirectURL, err := cb.Start(ctx)
	if err != nil {
		return err
	}
	defer cb.Stop()
	conf.RedirectURL = redirectURL

	authURL := google.AuthURL(conf, state)
	fmt.Fprintf(out, "Open this URL in your browser to grant access to Google Drive:\n\n%s\n\n", authURL)
	if openBrowser {
		if err := google.OpenBrowser(authURL); err != nil {
			logger.Warn("could not open a browser", logging.Err(err))
		}
	}
	fmt.Fprintln(out, "Waiting for the sign-in to complete...")

	if err := cb.Wait(ctx); err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}

	fmt.Fprintf(out, "Signed in. Credentials saved to %s\n", creds.Path())
	return nil
}

func newAuthStatusCmd() *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			creds := google.NewCredentialStore(cfg.TokenFile, nil)
			creds.Load()
			printStatus(cmd.OutOrStdout(), creds.Status(), time.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.tokenFile, "token-file", config.Default().TokenFile, "Credential file. Can also use DRIVEPICKER_TOKEN_FILE env var.")

	return cmd
}

func printStatus(out io.Writer, status google.CredentialStatus, now time.Time) {
	fmt.Fprintf(out, "Token file: %s\n", status.Path)
	if !status.Authenticated {
		fmt.Fprintln(out, "Status: not authenticated (run 'drivepicker auth login')")
		return
	}

	fmt.Fprintln(out, "Status: authenticated")
	fmt.Fprintf(out, "Refresh token: %t\n", status.HasRefreshToken)
	if !status.Expiry.IsZero() {
		state := "valid"
		if !now.Before(status.Expiry) {
			state = "expired"
		}
		fmt.Fprintf(out, "Access token expiry: %s (%s)\n", status.Expiry.Local().Format(time.RFC3339), state)
	}
}

func newAuthLogoutCmd() *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			creds := google.NewCredentialStore(cfg.TokenFile, nil)
			if err := creds.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", cfg.TokenFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.tokenFile, "token-file", config.Default().TokenFile, "Credential file. Can also use DRIVEPICKER_TOKEN_FILE env var.")

	return cmd
}

// importedToken is the accepted JSON shape: the credential file format,
// which is also what oauth2.Token marshals to.
type importedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
}

func newAuthImportCmd() *cobra.Command {
	var (
		flags        configFlags
		file         string
		accessToken  string
		refreshToken string
		expiresIn    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store a credential obtained elsewhere",
		Long: `Store a Google OAuth credential obtained outside drivepicker, for example
from the OAuth playground. Either pass --file with a JSON token
({"access_token", "refresh_token", "token_type", "expiry"}, "-" for stdin)
or --access-token and optionally --refresh-token.

A refresh token is only usable together with the OAuth client that issued it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}

			var token *oauth2.Token
			switch {
			case file != "" && accessToken != "":
				return errors.New("--file and --access-token are mutually exclusive")
			case file != "":
				token, err = readTokenFile(file, cmd.InOrStdin())
				if err != nil {
					return err
				}
			case accessToken != "":
				token = &oauth2.Token{AccessToken: accessToken, RefreshToken: refreshToken}
				if expiresIn > 0 {
					token.Expiry = time.Now().Add(expiresIn)
				}
			default:
				return errors.New("either --file or --access-token is required")
			}

			creds := google.NewCredentialStore(cfg.TokenFile, nil)
			if err := creds.SetDirect(token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credentials saved to %s\n", cfg.TokenFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.tokenFile, "token-file", config.Default().TokenFile, "Credential file. Can also use DRIVEPICKER_TOKEN_FILE env var.")
	cmd.Flags().StringVar(&file, "file", "", "JSON token file to import, or - for stdin")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "Access token to store")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token to store with --access-token")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "Lifetime of --access-token, e.g. 1h (default: unknown)")

	return cmd
}

func readTokenFile(path string, stdin io.Reader) (*oauth2.Token, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) // #nosec G304 -- path comes from the --file flag
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var t importedToken
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}, nil
}
