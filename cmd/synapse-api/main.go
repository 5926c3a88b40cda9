package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/synapse-flow/synapse/pkg/cmd"
	"github.com/synapse-flow/synapse/pkg/log"
	"github.com/synapse-flow/synapse/pkg/otelhelper"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "synapse-api",
		Usage:                 "Create and manage workflows and their event pipeline",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker list (empty runs degraded)",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "discord-bot-token",
				Usage:   "Bot token used for Discord dispatch",
				Sources: cli.EnvVars("DISCORD_BOT_TOKEN"),
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

			logger.InfoContext(ctx, "Initializing Synapse API")

			tracerProvider, err := otelhelper.InitTracer(ctx, "synapse-api")
			if err != nil {
				logger.WarnContext(ctx, "Tracing disabled", "error", err)
			} else {
				defer func() {
					if err := tracerProvider.Shutdown(ctx); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()
			}

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			sink := cmd.NewEventSink(command.String("kafka-brokers"), logger, "synapse-api")
			if sink != nil {
				defer func() {
					if err := sink.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event sink", "error", err)
					}
				}()
			}

			api := NewAPI(
				logger,
				store,
				sink,
				command.String("discord-bot-token"),
			)

			err = api.Start(ctx, command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
