package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/killallgit/voxscript/api"
	"github.com/killallgit/voxscript/api/types"
	"github.com/killallgit/voxscript/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the VoxScript API server with the configured settings.

The server accepts audio sources over HTTP, transcribes them in the
background and streams pipeline events over WebSocket.

Example:
  voxscript serve
  voxscript serve --port 9090
  voxscript serve --host 0.0.0.0 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	p, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Coordinator.LoadOnStart {
		if err := p.restore(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to restore archived document")
		}
	}
	p.cleanup.Start(ctx)

	srv := api.NewServer(cfg.Server)
	srv.SetDependencies(&types.Dependencies{
		DB:          p.db,
		Coordinator: p.coordinator,
		JobHistory:  p.history,
		Loader:      p.loader,
		Logger:      logger.Component(log, "api"),
		Version:     Version,
	})
	srv.SetRateLimit(cfg.RateLimiting)
	if err := srv.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	log.Info().Str("addr", srv.Addr()).Str("version", Version).Msg("Server is ready to handle requests")

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
	case err = <-serverErr:
		log.Error().Err(err).Msg("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("Server forced to shutdown")
		return shutdownErr
	}

	if cfg.Coordinator.AutoSave {
		if saveErr := p.coordinator.Save(shutdownCtx); saveErr != nil {
			log.Warn().Err(saveErr).Msg("Failed to save document on shutdown")
		}
	}

	log.Info().Msg("Server gracefully stopped")
	return err
}

// contextOf returns the command context, which is nil unless a caller set one
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
