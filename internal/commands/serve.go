package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankfeed/internal/handler"
	"github.com/cleared-dev/bankfeed/internal/server"
	"github.com/cleared-dev/bankfeed/internal/statement"
)

func newServeCommand(g *globalFlags) *cobra.Command {
	var host, port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the statement parsing HTTP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(g, host, port)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default from config)")
	cmd.Flags().StringVar(&port, "port", "", "listen port (default from config)")

	return cmd
}

func runServe(g *globalFlags, host, port string) error {
	cfg, log, err := g.load(g.configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	if host != "" {
		cfg.Server.Host = host
	}
	if port != "" {
		cfg.Server.Port = port
	}
	if _, err := statement.ParseFormat(cfg.Parse.DefaultFormat); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := statement.DefaultRegistry()
	statementHandler := handler.NewStatementHandler(statement.NewParser(registry), handler.StatementHandlerConfig{
		DefaultFormat:    cfg.Parse.DefaultFormat,
		ValidateBalances: cfg.Parse.ValidateBalances,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
	}, log)
	srv := server.New(cfg.Server, log, statementHandler, handler.NewHealthHandler(registry))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		log.Error(ctx, "HTTP server failed", "error", err)
		return err
	case <-ctx.Done():
		log.Info(context.Background(), "Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "HTTP server shutdown error", "error", err)
		return err
	}

	log.Info(context.Background(), "Server stopped gracefully")
	return nil
}
