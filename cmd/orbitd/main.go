package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"orbitd/internal/api"
	"orbitd/internal/bus"
	"orbitd/internal/config"
	"orbitd/internal/db"
	"orbitd/internal/otel"
	"orbitd/internal/session"
	"orbitd/internal/store"
	"orbitd/internal/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "orbitd",
		Short:         "Orbit session scheduling service",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newSeedCommand())
	cmd.AddCommand(newSessionsCommand())
	return cmd
}

func setup(ctx context.Context) (config.Config, error) {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(ctx)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, fmt.Errorf("parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	return cfg, nil
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := setup(ctx)
	if err != nil {
		return err
	}

	cleanup, err := otel.Init(ctx, version.Name, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown otel")
		}
	}()

	if err := db.Migrate(ctx, cfg.DBDSN); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	database, err := db.Connect(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	pool, err := db.OpenPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open pgx pool: %w", err)
	}
	defer pool.Close()

	st, err := store.NewPostgres(database, pool)
	if err != nil {
		return err
	}

	opts := []session.Option{session.WithLogger(log.Logger)}
	if cfg.NATSURL != "" {
		events, err := bus.New(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer events.Close()
		opts = append(opts, session.WithPublisher(events))
	}
	svc := session.New(st, opts...)

	apiLayer, err := api.New(svc, st, log.Logger, api.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiLayer.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("starting orbitd")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
	return nil
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			if err := db.Migrate(cmd.Context(), cfg.DBDSN); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a workspace fixture into the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := setup(ctx)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.SeedFile
			}
			if file == "" {
				return errors.New("a fixture file is required (--file or SEED_FILE)")
			}

			fixture, err := db.LoadFixture(file)
			if err != nil {
				return err
			}

			if err := db.Migrate(ctx, cfg.DBDSN); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			database, err := db.Connect(ctx, cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer func() { _ = db.Close(database) }()

			if err := db.Seed(ctx, database, fixture); err != nil {
				return fmt.Errorf("seed database: %w", err)
			}
			log.Info().Str("file", file).Msg("fixture loaded")
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the fixture YAML")
	return cmd
}

func newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Session maintenance operations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newSessionsClearCommand())
	return cmd
}

func newSessionsClearCommand() *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every session and its participant rows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return errors.New("refusing to clear sessions without --yes")
			}

			ctx := cmd.Context()
			cfg, err := setup(ctx)
			if err != nil {
				return err
			}
			database, err := db.Connect(ctx, cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer func() { _ = db.Close(database) }()
			pool, err := db.OpenPool(ctx, cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("open pgx pool: %w", err)
			}
			defer pool.Close()

			st, err := store.NewPostgres(database, pool)
			if err != nil {
				return err
			}
			removed, err := st.ClearSessions(ctx)
			if err != nil {
				return err
			}
			log.Info().Int64("removed", removed).Msg("sessions cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the deletion")
	return cmd
}
