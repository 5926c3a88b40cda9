// Package main provides the Synapse event consumer service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/synapse-flow/synapse/pkg/cmd"
	"github.com/synapse-flow/synapse/pkg/consumer"
	"github.com/synapse-flow/synapse/pkg/log"
	"github.com/synapse-flow/synapse/pkg/otelhelper"
)

func main() {
	logger := log.WithModule("consumer")

	command := &cli.Command{
		Name:                  "synapse-consumer",
		Usage:                 "Consume workflow lifecycle events from the broker",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker list (empty runs degraded)",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for event accounting counters (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "heartbeat-interval",
				Usage:   "Degraded-mode heartbeat interval",
				Value:   consumer.DefaultHeartbeatInterval,
				Sources: cli.EnvVars("HEARTBEAT_INTERVAL"),
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

			logger.InfoContext(ctx, "Initializing Synapse consumer")

			tracerProvider, err := otelhelper.InitTracer(ctx, "synapse-consumer")
			if err != nil {
				logger.WarnContext(ctx, "Tracing disabled", "error", err)
			} else {
				defer func() {
					if err := tracerProvider.Shutdown(ctx); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()
			}

			subscriber := cmd.NewSubscriber(command.String("kafka-brokers"), logger, "synapse-consumer")

			accounting := consumer.NewAccounting(command.String("redis-url"), logger)
			defer func() {
				if err := accounting.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close accounting", "error", err)
				}
			}()

			c := consumer.New(subscriber, logger,
				consumer.WithAccounting(accounting),
				consumer.WithHeartbeatInterval(command.Duration("heartbeat-interval")),
			)
			consumer.RegisterDefaultHandlers(c, logger)

			err = c.Start(ctx)
			if err != nil {
				return err
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			<-sigChan
			logger.InfoContext(ctx, "Shutting down consumer...")

			// Best-effort disconnect; the broker rebalances the group either way.
			done := make(chan struct{})
			go func() {
				c.Stop()
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(10 * time.Second):
				logger.WarnContext(ctx, "Consumer stop timed out, exiting anyway")
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
