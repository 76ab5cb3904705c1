// Package main provides the flowbuilder execution worker.
package main

import (
	"context"
	"os"

	"github.com/atelierhq/flowbuilder/pkg/cmd"
	"github.com/atelierhq/flowbuilder/pkg/log"
	"github.com/atelierhq/flowbuilder/pkg/otelhelper"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "flowbuilder-worker",
		Usage:                 "Start workers to execute workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("worker").With("worker_id", workerID)
			logger.InfoContext(ctx, "Initializing Flowbuilder Worker")

			if _, err := otelhelper.NewTracer(ctx, "flowbuilder-worker"); err != nil {
				logger.WarnContext(ctx, "Tracer initialization failed, continuing without tracing", "error", err)
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "flowbuilder-worker", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			worker := NewWorker(workerID, persistence, eventBus, logger)

			if err := worker.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
