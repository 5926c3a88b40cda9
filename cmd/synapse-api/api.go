// Package main provides the Synapse API server implementation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/synapse-flow/synapse/pkg/dispatch"
	"github.com/synapse-flow/synapse/pkg/eventbus"
	"github.com/synapse-flow/synapse/pkg/persistence"
	"github.com/synapse-flow/synapse/pkg/publisher"
	"github.com/synapse-flow/synapse/pkg/reconciler"
	"github.com/synapse-flow/synapse/pkg/services"
	"github.com/synapse-flow/synapse/pkg/web"
)

type API struct {
	logger          *slog.Logger
	persistence     persistence.Persistence
	sink            eventbus.EventSink
	discordBotToken string
	validate        *validator.Validate

	reconciler *reconciler.Reconciler
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	sink eventbus.EventSink,
	discordBotToken string,
) *API {
	return &API{
		logger:          logger,
		persistence:     store,
		sink:            sink,
		discordBotToken: discordBotToken,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App(ctx context.Context) (*fiber.App, error) {
	pub := publisher.New(a.sink, a.logger)

	workflowService, err := services.NewWorkflowService(a.persistence.WorkflowRepository(), pub, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow service: %w", err)
	}

	executionService := services.NewExecutionService(
		a.persistence.ExecutionRepository(),
		a.persistence.ActivityRepository(),
		a.logger,
	)

	a.reconciler = reconciler.New(a.persistence.ExecutionRepository(), executionService, a.logger)

	err = a.reconciler.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start reconciler: %w", err)
	}

	dispatchers := web.Dispatchers{
		Slack:           dispatch.NewSlackClient(a.logger),
		Discord:         dispatch.NewDiscordClient(a.logger),
		Notion:          dispatch.NewNotionClient(a.logger),
		DiscordBotToken: a.discordBotToken,
	}

	handlers := web.NewAPIHandlers(workflowService, executionService, pub, dispatchers, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Synapse API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.ListWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/publish", handlers.PublishWorkflow)
	w.Post("/:id/template", handlers.SaveTemplate)
	w.Get("/:id/nodes-edges", handlers.GetNodesEdges)
	w.Put("/:id/nodes-edges", handlers.UpdateNodesEdges)
	w.Get("/:id/channels/slack", handlers.ListSlackChannels)
	w.Post("/:id/notify", handlers.Notify)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	e := app.Group("/executions")
	e.Post("/", handlers.StartExecution)
	e.Post("/:id/complete", handlers.CompleteExecution)
	e.Post("/:id/activities", handlers.LogActivity)

	analytics := app.Group("/analytics")
	analytics.Get("/executions-today", handlers.ExecutionsToday)
	analytics.Get("/success-rate", handlers.SuccessRate)
	analytics.Get("/recent-activities", handlers.RecentActivities)

	app.Post("/events/test", handlers.PublishTestEvent)

	return app, nil
}

func (a *API) Start(ctx context.Context, port int) error {
	app, err := a.App(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if a.reconciler != nil {
			a.reconciler.Stop()
		}
	}()

	return app.Listen(":" + strconv.Itoa(port))
}
