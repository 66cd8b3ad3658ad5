package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/pedsclinic/growth/internal/config"
	"github.com/pedsclinic/growth/internal/domain/growth"
	"github.com/pedsclinic/growth/internal/platform/db"
	"github.com/pedsclinic/growth/migrations"
)

func connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrations.FS, schema).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) to schema %s.\n", count, schema)
			return nil
		},
	}
	upCmd.Flags().String("schema", "public", "Target schema for migrations")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS, schema).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			writeMigrationStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
	statusCmd.Flags().String("schema", "public", "Target schema for migrations")
	cmd.AddCommand(statusCmd)

	return cmd
}

func writeMigrationStatus(out io.Writer, statuses []db.MigrationStatus) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	for _, s := range statuses {
		state, at := "pending", "-"
		if s.Applied {
			state = "applied"
			at = s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%03d\t%s\t%s\t%s\n", s.Version, s.Name, state, at)
	}
	tw.Flush()
}

// withReferences loads config, opens the requested backend (connecting to
// Postgres only when needed) and hands the repository to fn.
func withReferences(cmd *cobra.Command, backend string, fn func(cfg *config.Config, repo growth.ReferenceRepository) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if backend == "" {
		backend = cfg.ReferenceBackend
	}
	cfg.ReferenceBackend = backend
	if err := cfg.ValidateReference(); err != nil {
		return err
	}

	ctx := cmd.Context()
	var pool *pgxpool.Pool
	if backend == config.BackendPostgres {
		if pool, err = connect(ctx, cfg); err != nil {
			return err
		}
		defer pool.Close()
	}
	repo, closeRepo, err := openReferences(ctx, backend, cfg, pool)
	if err != nil {
		return err
	}
	defer closeRepo()
	return fn(cfg, repo)
}

func referenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Manage WHO reference tables",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load WHO z-score tables listed in a YAML manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifestPath, _ := cmd.Flags().GetString("manifest")
			target, _ := cmd.Flags().GetString("target")

			manifest, err := growth.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			return withReferences(cmd, target, func(cfg *config.Config, repo growth.ReferenceRepository) error {
				logger := newLogger(cfg, cmd.ErrOrStderr())
				imported, err := growth.NewImporter(repo, logger).Import(cmd.Context(), manifest)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d table(s) into %s.\n", len(imported), cfg.ReferenceBackend)
				return nil
			})
		},
	}
	importCmd.Flags().String("manifest", "who/manifest.yaml", "Path to the import manifest")
	importCmd.Flags().String("target", "", "Reference backend to write (postgres or sqlite); defaults to REFERENCE_BACKEND")
	cmd.AddCommand(importCmd)

	warmCmd := &cobra.Command{
		Use:   "warm",
		Short: "Load every reference series and report row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReferences(cmd, "", func(cfg *config.Config, repo growth.ReferenceRepository) error {
				logger := newLogger(cfg, cmd.ErrOrStderr())
				all, err := growth.NewReferenceStore(repo, logger).All(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SERIES\tROWS")
				for _, key := range growth.AllSeriesKeys() {
					fmt.Fprintf(tw, "%s\t%d\n", key, all[key].Len())
				}
				return tw.Flush()
			})
		},
	}
	cmd.AddCommand(warmCmd)

	return cmd
}

type calcArgs struct {
	Value   float64
	AgeDays int
	Gender  growth.Gender
	Type    growth.MeasurementType
}

func parseCalcArgs(value float64, ageDays int, gender, mtype string) (calcArgs, error) {
	g, err := growth.ParseGender(gender)
	if err != nil {
		return calcArgs{}, err
	}
	t, err := growth.ParseMeasurementType(mtype)
	if err != nil {
		return calcArgs{}, err
	}
	return calcArgs{Value: value, AgeDays: ageDays, Gender: g, Type: t}, nil
}

func calcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Score a single measurement against the WHO reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			value, _ := cmd.Flags().GetFloat64("value")
			ageDays, _ := cmd.Flags().GetInt("age-days")
			gender, _ := cmd.Flags().GetString("gender")
			mtype, _ := cmd.Flags().GetString("type")

			in, err := parseCalcArgs(value, ageDays, gender, mtype)
			if err != nil {
				return err
			}
			return withReferences(cmd, "", func(cfg *config.Config, repo growth.ReferenceRepository) error {
				engine := newEngine(cfg, repo, newLogger(cfg, cmd.ErrOrStderr()))
				res, err := engine.ZScore(cmd.Context(), in.Value, in.AgeDays, in.Gender, in.Type)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			})
		},
	}
	cmd.Flags().Float64("value", 0, "Measured value (kg or cm)")
	cmd.Flags().Int("age-days", 0, "Age in days at measurement")
	cmd.Flags().String("gender", "", "male or female")
	cmd.Flags().String("type", "", "weight, height or head_circumference")
	cmd.MarkFlagRequired("value")
	cmd.MarkFlagRequired("age-days")
	cmd.MarkFlagRequired("gender")
	cmd.MarkFlagRequired("type")
	return cmd
}
