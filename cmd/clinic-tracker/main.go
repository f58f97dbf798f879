package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinictracker/clinictracker/internal/config"
	"github.com/clinictracker/clinictracker/internal/domain/billing"
	"github.com/clinictracker/clinictracker/internal/domain/customfield"
	"github.com/clinictracker/clinictracker/internal/domain/qi"
	"github.com/clinictracker/clinictracker/internal/domain/reporting"
	"github.com/clinictracker/clinictracker/internal/domain/settings"
	"github.com/clinictracker/clinictracker/internal/domain/visit"
	"github.com/clinictracker/clinictracker/internal/domain/workday"
	"github.com/clinictracker/clinictracker/internal/platform/db"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-tracker",
		Short: "Clinic visit log and productivity statistics",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// app holds the wired services shared by the server and the offline commands.
type app struct {
	db       *db.DB
	catalog  *billing.Catalog
	settings *settings.Settings
	visits   *visit.Service
	reports  *reporting.Service
	fields   *customfield.Service
	workdays *workday.Service
	qi       *qi.Service
}

// openApp connects to the database, applies pending migrations and wires the
// domain services.
func openApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	catalog, err := billing.CatalogFromConfig(cfg.BillingCatalogFile)
	if err != nil {
		return nil, err
	}

	d, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	n, err := db.NewMigrator(d, db.EmbeddedMigrations(d.Dialect)).Up(ctx)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if n > 0 {
		logger.Info().Int("count", n).Msg("applied migrations")
	}

	st, err := settings.Load(ctx, settings.NewRepo(d), cfg.WRVUConversionRate)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}

	visits := visit.NewService(visit.NewRepo(d))
	return &app{
		db:       d,
		catalog:  catalog,
		settings: st,
		visits:   visits,
		reports:  reporting.NewService(visits, reporting.NewAggregator(catalog), st),
		fields:   customfield.NewService(customfield.NewRepo(d)),
		workdays: workday.NewService(workday.NewRepo(d)),
		qi:       qi.NewService(qi.NewRepo(d)),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, closeDB, err := openMigrator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			count, err := migrator.Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, closeDB, err := openMigrator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			statuses, err := migrator.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

func openMigrator(ctx context.Context) (*db.Migrator, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	d, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(d, db.EmbeddedMigrations(d.Dialect)), func() { d.Close() }, nil
}
