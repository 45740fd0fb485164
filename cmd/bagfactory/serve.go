package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/api"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/auth"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/config"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/db"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/store"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface and RPC API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String(config.KeyAddr, ":8080", "listen address")
	cmd.Flags().String(config.KeyLog, "", "log file path (default: stdout/stderr only)")
	addStorageFlags(cmd)
	return cmd
}

// openStore connects to the configured backend. SQL schemas are created if
// missing.
func openStore(ctx context.Context, c *config.Config) (store.Bags, error) {
	switch c.Backend {
	case config.BackendSQLite:
		database, err := db.Open(c.SQLite.Path)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(database, db.SQLite); err != nil {
			database.Close()
			return nil, err
		}
		slog.Info("database ready", "backend", c.Backend, "path", c.SQLite.Path)
		return store.NewSQLBags(database, db.SQLite), nil

	case config.BackendPostgres:
		database, err := db.OpenPostgres(c.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(database, db.Postgres); err != nil {
			database.Close()
			return nil, err
		}
		slog.Info("database ready", "backend", c.Backend)
		return store.NewSQLBags(database, db.Postgres), nil

	case config.BackendMongo:
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		bags, err := store.ConnectMongo(ctx, c.Mongo.URI, c.Mongo.Database)
		if err != nil {
			return nil, err
		}
		slog.Info("database ready", "backend", c.Backend, "database", c.Mongo.Database)
		return bags, nil
	}
	return nil, fmt.Errorf("unknown backend %q", c.Backend)
}

// resolveAuth fills in a missing token secret. A generated secret is kept
// in the store when the backend supports it.
func resolveAuth(ctx context.Context, authCfg config.AuthConfig, bags store.Bags) (config.AuthConfig, error) {
	if !authCfg.Enabled() || authCfg.Secret != "" {
		return authCfg, nil
	}

	candidate, err := auth.GenerateSecret()
	if err != nil {
		return authCfg, fmt.Errorf("generating token secret: %w", err)
	}
	keeper, ok := bags.(store.SecretKeeper)
	if !ok {
		slog.Warn("auth.secret not set and the store cannot keep one; tokens will not survive a restart")
		authCfg.Secret = candidate
		return authCfg, nil
	}

	secret, err := keeper.TokenSecret(ctx, candidate)
	if err != nil {
		return authCfg, err
	}
	authCfg.Secret = secret
	return authCfg, nil
}

// newHandler mounts the API under /api/ and the pages on everything else.
func newHandler(bags store.Bags, authCfg config.AuthConfig) (http.Handler, error) {
	apiRouter := api.NewRouter(bags, authCfg)
	webRouter, err := web.NewRouter(bags, authCfg)
	if err != nil {
		return nil, fmt.Errorf("setting up web router: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(api.Prefix, apiRouter)
	mux.Handle("/", webRouter)
	return api.LoggingMiddleware(mux), nil
}

func runServe(ctx context.Context, c *config.Config) error {
	closeLog, err := setupLogger(os.Stdout, os.Stderr, c.LogPath)
	if err != nil {
		return err
	}
	defer closeLog()

	bags, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer bags.Close()

	authCfg, err := resolveAuth(ctx, c.Auth, bags)
	if err != nil {
		return err
	}

	handler, err := newHandler(bags, authCfg)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              c.Addr,
		Handler:           handler,
		ReadHeaderTimeout: c.Server.ReadHeaderTimeout,
		ReadTimeout:       c.Server.ReadTimeout,
		WriteTimeout:      c.Server.WriteTimeout,
		IdleTimeout:       c.Server.IdleTimeout,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), c.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", c.Addr, "auth", authCfg.Enabled())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		return err
	}

	slog.Info("server stopped, closing store")
	return nil
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the bags schema of the configured SQL backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Backend == config.BackendMongo {
				return errors.New("migrate: the mongo backend needs no schema")
			}
			bags, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer bags.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready (%s).\n", cfg.Backend)
			return nil
		},
	}
	addStorageFlags(cmd)
	return cmd
}
