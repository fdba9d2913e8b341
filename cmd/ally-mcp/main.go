// Package main provides the MCP server entry point for the legal assistant.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/app"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/config"
	mcpserver "github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/mcp"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var (
		configPath string
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:   "ally-mcp",
		Short: "MCP server for contract search, policy lookup and compliance reports",
		Long: `Serves the legal assistant tools over MCP.

In stdio mode (default) the server talks MCP on stdin/stdout and exposes
/health on PORT. With SERVER_MODE=http it serves Streamable HTTP at /mcp.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			// MCP stdio uses stdout, so logs go to stderr.
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			return run(cmd.Context(), configPath, logger)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, logger *slog.Logger) error {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.EnsureIndexes(ctx); err != nil {
		return err
	}

	server := mcpserver.NewServer(&mcpserver.Config{
		Retriever: a.Retrieval,
		Embedder:  a.Intents,
		Reporter:  a.Compliance,
		Status:    a.Documents,
		Version:   version,
	})

	var cache mcpserver.HealthChecker
	if a.Cache != nil {
		cache = a.Cache
	}
	router := mcpserver.NewRouter(server,
		mcpserver.NewHealthHandler(a.Search, cache),
		&mcpserver.HTTPHandlerOptions{Stateless: cfg.Server.Stateless},
		logger,
	)
	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Server.Mode == config.ServerModeHTTP {
		logger.Info("Starting HTTP server", "addr", httpServer.Addr, "mcp", "/mcp", "health", "/health")
		return serve(ctx, httpServer)
	}

	// Stdio mode still exposes /health for local checks.
	go func() {
		logger.Info("Starting health server", "addr", httpServer.Addr)
		if err := serve(ctx, httpServer); err != nil {
			logger.Warn("Health server error", "error", err)
		}
	}()

	logger.Info("Starting legal assistant MCP server (stdio mode)")
	return server.Run(ctx)
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
