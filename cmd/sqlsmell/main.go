package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql" // Import for side effects
	_ "github.com/mattn/go-sqlite3"    // Import for side effects
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yevheniidehtiar/sqlsmell"
	"github.com/yevheniidehtiar/sqlsmell/config"
	"github.com/yevheniidehtiar/sqlsmell/internal/demo"
	"github.com/yevheniidehtiar/sqlsmell/internal/loadtest"
	"github.com/yevheniidehtiar/sqlsmell/pkg/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "sqlsmell",
		Short: "SQL issue collector with a demo application and load-test harness",
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", ".", "directory containing config.yaml")

	root.AddCommand(newServeCmd(&cfgPath))
	root.AddCommand(newSeedCmd(&cfgPath))
	root.AddCommand(newLoadtestCmd(&cfgPath))

	return root
}

func newServeCmd(cfgPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the demo server with the collector middleware attached",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Demo.Addr = addr
			}

			agent, err := sqlsmell.New(&cfg)
			if err != nil {
				return err
			}
			defer agent.Close()
			logger := agent.Logger()

			db, err := agent.OpenDB(cfg.Demo.Driver, cfg.Demo.DSN)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := demo.InitSchema(ctx, db); err != nil {
				return err
			}
			seeded, err := demo.Seed(ctx, db, cfg.Demo)
			if err != nil {
				return err
			}
			if seeded {
				logger.Info("demo database seeded")
			}

			srv := demo.NewServer(db, cfg.Demo, logger)
			httpServer := &http.Server{
				Addr:    cfg.Demo.Addr,
				Handler: srv.Routes(agent.Middleware(), agent.Handler()),
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("demo server listening", zap.String("addr", cfg.Demo.Addr))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func newSeedCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo schema and populate it with sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}

			db, err := sql.Open(cfg.Demo.Driver, cfg.Demo.DSN)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			ctx := cmd.Context()
			if err := demo.InitSchema(ctx, db); err != nil {
				return err
			}
			seeded, err := demo.Seed(ctx, db, cfg.Demo)
			if err != nil {
				return err
			}

			if seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "seeded", cfg.Demo.DSN)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "already seeded", cfg.Demo.DSN)
			}
			return nil
		},
	}
}

func newLoadtestCmd(cfgPath *string) *cobra.Command {
	var baseURL string
	var users, durationS int

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive weighted traffic at a demo server and report issue stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if baseURL != "" {
				cfg.Loadtest.BaseURL = baseURL
			}
			if users > 0 {
				cfg.Loadtest.Users = users
			}
			if durationS > 0 {
				cfg.Loadtest.DurationS = durationS
			}

			logger, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return loadtest.NewRunner(cfg.Loadtest, logger).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "target server (overrides config)")
	cmd.Flags().IntVar(&users, "users", 0, "concurrent users (overrides config)")
	cmd.Flags().IntVar(&durationS, "duration", 0, "test duration in seconds (overrides config)")
	return cmd
}
