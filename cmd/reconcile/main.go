package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"community-interaction-api/internal/cache"
	"community-interaction-api/internal/config"
	"community-interaction-api/internal/database"
	"community-interaction-api/internal/job"
)

func main() {
	app := &cli.Command{
		Name:  "reconcile",
		Usage: "Recompute vote tallies and roster counts from the underlying rows",
		Commands: []*cli.Command{
			{
				Name:   "tallies",
				Usage:  "Repair post, event and comment vote tallies",
				Flags:  commonFlags(),
				Action: runWith((*job.ReconcileJob).ReconcileTallies),
			},
			{
				Name:   "roster",
				Usage:  "Repair confirmed counts of events",
				Flags:  commonFlags(),
				Action: runWith((*job.ReconcileJob).ReconcileRosters),
			},
			{
				Name:   "all",
				Usage:  "Repair tallies and rosters",
				Flags:  commonFlags(),
				Action: runWith((*job.ReconcileJob).ReconcileAll),
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to the service configuration file",
			Value:   "configs/config.yaml",
			Aliases: []string{"c"},
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Report drift without writing repairs",
		},
	}
}

type reconcileFunc func(*job.ReconcileJob, context.Context) (*job.ReconcileReport, error)

func runWith(fn reconcileFunc) func(ctx context.Context, c *cli.Command) error {
	return func(ctx context.Context, c *cli.Command) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}

		logger, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Sync() //nolint:errcheck

		db, err := database.New(database.Config{
			DSN:             cfg.Database.GetDSN(),
			MaxOpenConns:    4,
			MaxIdleConns:    4,
			ConnMaxLifetime: time.Minute,
		})
		if err != nil {
			return err
		}
		defer database.Close(db) //nolint:errcheck

		// repaired tallies must not keep being served from redis
		var tallyCache cache.TallyCache
		if cfg.Cache.Enabled {
			redisClient, err := database.NewRedis(cfg.Redis, logger)
			if err != nil {
				logger.Warn("Redis unavailable, cached tallies expire on their own", zap.Error(err))
			} else {
				defer redisClient.Close()
				tallyCache = cache.NewRedisTallyCache(redisClient, cfg.Cache.TallyTTL, logger)
			}
		}

		dryRun := c.Bool("dry-run")
		reconciler := job.NewReconcileJob(db, database.NewTransactor(db, logger), tallyCache, nil, logger, dryRun)

		start := time.Now()
		report, err := fn(reconciler, ctx)
		if err != nil {
			return fmt.Errorf("reconcile failed: %w", err)
		}

		logger.Info("Reconcile finished",
			zap.Bool("dry_run", dryRun),
			zap.Int("repaired", report.Total()),
			zap.Int("rosters", report.Roster),
			zap.Any("tallies", report.Tallies),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}
}
