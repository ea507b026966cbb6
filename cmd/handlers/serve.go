package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/faisworld/fais-web-sub000/internal/config"
	"github.com/faisworld/fais-web-sub000/internal/logger"
	"github.com/faisworld/fais-web-sub000/internal/server"
)

const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the serve command for starting the HTTP server
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP server exposing the media and article generation
endpoints and the read-only blog API.

Media generation needs REPLICATE_API_TOKEN and BLOB_READ_WRITE_TOKEN; article
generation needs OPENAI_API_KEY or GEMINI_API_KEY. Without them the routes
stay mounted and answer 500.

Examples:
  # Start server on default port 8080
  fais serve

  # Start on custom port
  fais serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	cfg := config.Get()
	a := newApp(cfg)
	defer a.close()

	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	deps, err := serverDeps(ctx, a)
	if err != nil {
		return err
	}
	srv := server.New(serverCfg, deps)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		serverErrors <- srv.Start()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		logger.Info("Server shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", err)
			return err
		}
	}
	return nil
}

// serverDeps assembles the route collaborators. Missing credentials leave the
// matching dependency nil rather than failing startup.
func serverDeps(ctx context.Context, a *app) (server.Deps, error) {
	cfg := a.cfg
	deps := server.Deps{
		ContentDir: cfg.Content.Dir,
		Auth: server.AdminAuth{
			InternalAPIKey: cfg.Generation.InternalAPIKey,
			JWTSecret:      cfg.Server.AdminJWTSecret,
		},
	}

	idx, err := a.Index()
	if err != nil {
		return deps, err
	}
	deps.Index = idx

	if db, err := a.Database(ctx); err != nil {
		logger.Warn("Gallery database unavailable", "error", err.Error())
	} else if db != nil {
		deps.DB = db
	}

	media, err := a.Media(ctx)
	if err != nil {
		return deps, err
	}
	if media != nil {
		deps.Media = media
	} else {
		logger.Warn("Media generation disabled: REPLICATE_API_TOKEN or BLOB_READ_WRITE_TOKEN not set")
	}

	writer, err := a.Writer(ctx)
	if err != nil {
		return deps, fmt.Errorf("failed to create article writer: %w", err)
	}
	if writer != nil {
		deps.Writer = writer
	} else {
		logger.Warn("Article generation disabled: OPENAI_API_KEY or GEMINI_API_KEY not set")
	}

	return deps, nil
}
