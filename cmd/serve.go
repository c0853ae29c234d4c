package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/drivepicker/internal/config"
	"github.com/teemow/drivepicker/internal/google"
	"github.com/teemow/drivepicker/internal/instrumentation"
	"github.com/teemow/drivepicker/internal/logging"
	"github.com/teemow/drivepicker/internal/server"
	"github.com/teemow/drivepicker/internal/tools/drive_tools"
)

func newServeCmd() *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server that gives AI assistants access
to Google Drive.

Supports two transports:
  - stdio: Standard input/output (default)
  - http: Streamable HTTP on /mcp, plus sign-in (/login) and file picker
    (/picker) pages

OAuth Configuration:
  An OAuth client is required, either as a key file (--oauth-keys-file) or as
  --google-client-id and --google-client-secret.

  STDIO Transport:
    The authenticate tool starts a local callback listener on
    --callback-port (default 3000). Register http://localhost:3000/oauth/callback
    as redirect URI of the OAuth client.

  HTTP Transport:
    Register <base-url>/oauth/callback as redirect URI. The base URL defaults
    to http://localhost<http-addr> for local development.

Settings are resolved from flags, then environment variables, then the
config file (--config), then built-in defaults.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	flags.registerServe(cmd)

	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// stdout carries the protocol in stdio mode, so logs always go to stderr.
	logger := logging.New(os.Stderr, logging.Level(cfg.Transport, cfg.Debug))
	slog.SetDefault(logger)

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	oauthConf, err := newOAuthConfig(cfg)
	if err != nil {
		return err
	}

	creds := google.NewCredentialStore(cfg.TokenFile, oauthConf)
	creds.SetMetrics(provider.Metrics())
	creds.SetLogger(logging.WithComponent(logger, "credentials"))
	if creds.Load() {
		logger.Info("loaded stored credential", logging.Path(cfg.TokenFile))
	} else {
		logger.Info("no stored credential, use the authenticate tool to sign in")
	}

	opts := server.Options{
		Mode:         server.Mode(cfg.Transport),
		CallbackPort: cfg.CallbackPort,
		ReadOnly:     cfg.ReadOnly,
		Picker: server.PickerConfig{
			APIKey: cfg.PickerAPIKey,
			AppID:  cfg.PickerAppID,
		},
		Credentials: creds,
		Metrics:     provider.Metrics(),
		AuditLogger: instrumentation.NewAuditLoggerWithConfig(logging.WithComponent(logger, "audit"), instrConfig.AuditLogging),
		Logger:      logger,
	}
	if cfg.Transport == config.TransportHTTP {
		opts.BaseURL = cfg.BaseURL
	}

	serverContext, err := server.NewServerContext(shutdownCtx, opts)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}()

	mcpSrv, err := newMCPServer(serverContext)
	if err != nil {
		return err
	}

	if cfg.ReadOnly {
		logger.Info("starting server in read-only mode")
	}

	switch cfg.Transport {
	case config.TransportStdio:
		return runStdioServer(mcpSrv, logger)
	case config.TransportHTTP:
		return runHTTPServer(shutdownCtx, cfg, serverContext, mcpSrv, provider, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, http)", cfg.Transport)
	}
}

// newMCPServer creates the MCP server with every tool for the context's mode.
func newMCPServer(sc *server.ServerContext) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("drivepicker", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := drive_tools.RegisterDriveTools(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register Drive tools: %w", err)
	}
	return mcpSrv, nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer, logger *slog.Logger) error {
	errorLogger := slog.NewLogLogger(logger.Handler(), slog.LevelError)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv, mcpserver.WithErrorLogger(errorLogger)); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// runHTTPServer runs the web server and, when enabled, the metrics server
// until ctx is cancelled or one of them fails.
func runHTTPServer(ctx context.Context, cfg config.Config, sc *server.ServerContext, mcpSrv *mcpserver.MCPServer, provider *instrumentation.Provider, logger *slog.Logger) error {
	web := server.NewWebServer(sc, mcpSrv, cfg.HTTPAddr)

	var metricsServer *server.MetricsServer
	if cfg.MetricsEnabled && provider.ServesPrometheus() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	logger.Info("starting drivepicker MCP server",
		logging.Mode(cfg.Transport),
		slog.String("mcp_url", cfg.BaseURL+server.MCPEndpointPath),
		slog.String("login_url", sc.LoginURL()))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(web.Start)
	if metricsServer != nil {
		g.Go(metricsServer.Start)
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()

		var errs []error
		if err := web.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown http server: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("failed to shutdown metrics server: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
