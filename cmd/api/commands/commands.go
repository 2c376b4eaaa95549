package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/notesapp/core/internal/adapters/kv"
	"github.com/notesapp/core/internal/adapters/repository"
	"github.com/notesapp/core/internal/application/coordinator"
	"github.com/notesapp/core/internal/application/services"
	"github.com/notesapp/core/internal/infrastructure/config"
	"github.com/notesapp/core/internal/infrastructure/database"
	"github.com/notesapp/core/internal/infrastructure/logger"
	"github.com/notesapp/core/internal/infrastructure/metrics"
	"github.com/notesapp/core/internal/infrastructure/server"
	"github.com/notesapp/core/internal/ports"
)

// Build information, set with -ldflags "-X".
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "development"
)

// NewRootCommand assembles the notes CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "notes",
		Short:         "Notes server and command line tools",
		Long:          `Notes serves a small single-user notes app and its JSON API, and manages the stored note list from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewCreateCommand())
	rootCmd.AddCommand(NewDeleteCommand())
	rootCmd.AddCommand(NewResetCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the notes server",
		Long:  "Start the web UI and the JSON API with all configured routes and middleware",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage the kv_store schema of the sqlite and postgres storage drivers (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, "up")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, "down")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showMigrationVersion(cmd)
		},
	})

	return migrateCmd
}

// NewListCommand prints the stored notes, newest first
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [query]",
		Short: "List notes, optionally filtered by a search query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			return withNoteService(cmd.Context(), func(ctx context.Context, svc ports.NoteService) error {
				notes, err := svc.List(ctx, query)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(notes) == 0 {
					fmt.Fprintln(out, "No notes found")
					return nil
				}
				for _, n := range notes {
					fmt.Fprintf(out, "%-36s  %-20s  %s\n", n.ID, n.UpdatedAt.Local().Format("2006-01-02 15:04:05"), n.DisplayTitle())
				}
				return nil
			})
		},
	}
}

// NewCreateCommand creates an untitled note
func NewCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new untitled note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNoteService(cmd.Context(), func(ctx context.Context, svc ports.NoteService) error {
				note, err := svc.Create(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created note %s\n", note.ID)
				return nil
			})
		},
	}
}

// NewDeleteCommand removes a note by id
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNoteService(cmd.Context(), func(ctx context.Context, svc ports.NoteService) error {
				if _, err := svc.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %s\n", args[0])
				return nil
			})
		},
	}
}

// NewResetCommand restores the demo notes
func NewResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Replace every stored note with the demo notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNoteService(cmd.Context(), func(ctx context.Context, svc ports.NoteService) error {
				if err := svc.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Notes reset to the demo list")
				return nil
			})
		},
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print Notes version",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Notes %s\n", Version)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	}
}

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	store, err := kv.Open(ctx, cfg)
	if err != nil {
		appLogger.Errorw("Failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		return err
	}
	defer store.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	repo := repository.NewNoteRepository(store, cfg.Storage.Key, repository.WithLogger(appLogger))
	noteService := services.NewNoteService(repo, cfg.Latency, appLogger, services.WithMetrics(m))
	coord := coordinator.New(noteService, appLogger)

	srv, err := server.New(cfg, store, noteService, coord, m, appLogger)
	if err != nil {
		appLogger.Errorw("Failed to initialize server", "error", err)
		return err
	}

	appLogger.Infow("Starting Notes server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"storage", cfg.Storage.Driver,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Errorw("Server stopped with error", "error", err)
		return err
	}

	appLogger.Info("Server stopped")
	return nil
}

// withNoteService opens the configured store and runs fn against a note service without
// artificial latency.
func withNoteService(ctx context.Context, fn func(context.Context, ports.NoteService) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	store, err := kv.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	repo := repository.NewNoteRepository(store, cfg.Storage.Key, repository.WithLogger(appLogger))
	return fn(ctx, services.NewNoteService(repo, config.LatencyConfig{}, appLogger))
}

func openMigrator() (*database.DB, *migrate.Migrate, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	switch cfg.Storage.Driver {
	case config.DriverSQLite, config.DriverPostgres:
	default:
		return nil, nil, fmt.Errorf("storage driver %q has no migrations", cfg.Storage.Driver)
	}

	db, err := database.NewConnection(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	m, err := db.Migrator()
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return db, m, nil
}

func runMigration(cmd *cobra.Command, direction string) error {
	db, m, err := openMigrator()
	if err != nil {
		return err
	}
	defer db.Close()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}

	out := cmd.OutOrStdout()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		fmt.Fprintln(out, "No migrations to run")
	case err != nil:
		return fmt.Errorf("migration failed: %w", err)
	default:
		fmt.Fprintf(out, "Migration %s completed successfully\n", direction)
	}
	return nil
}

func showMigrationVersion(cmd *cobra.Command) error {
	db, m, err := openMigrator()
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Fprintln(out, "No migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	fmt.Fprintf(out, "Current migration version: %d\n", version)
	fmt.Fprintf(out, "Dirty: %t\n", dirty)
	return nil
}
