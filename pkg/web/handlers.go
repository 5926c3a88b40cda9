// Package web provides the HTTP handlers for the workflow event pipeline API.
package web

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/synapse-flow/synapse/pkg/models"
	"github.com/synapse-flow/synapse/pkg/publisher"
	"github.com/synapse-flow/synapse/pkg/services"
)

const (
	defaultActivityLimit  = 10
	defaultExecutionLimit = 20
)

// SlackClient is the slice of the Slack dispatch client the handlers use.
type SlackClient interface {
	ListChannels(ctx context.Context, accessToken string) ([]models.ChannelOption, error)
	SendToChannels(ctx context.Context, accessToken string, channels []models.ChannelOption, content string) models.DispatchSummary
}

// DiscordClient is the slice of the Discord dispatch client the handlers use.
type DiscordClient interface {
	SendToChannels(ctx context.Context, botToken string, channels []models.ChannelOption, content string) models.DispatchSummary
}

// NotionClient is the slice of the Notion dispatch client the handlers use.
type NotionClient interface {
	AppendPage(ctx context.Context, accessToken, databaseID, content string) models.DispatchSummary
}

// Dispatchers groups the destination clients behind the notify and channel
// listing endpoints. A nil client disables its destination.
type Dispatchers struct {
	Slack           SlackClient
	Discord         DiscordClient
	Notion          NotionClient
	DiscordBotToken string
}

type APIHandlers struct {
	workflowService  *services.WorkflowService
	executionService *services.ExecutionService
	publisher        *publisher.Publisher
	dispatchers      Dispatchers
	validator        *validator.Validate
	logger           *slog.Logger
}

func NewAPIHandlers(
	workflowService *services.WorkflowService,
	executionService *services.ExecutionService,
	pub *publisher.Publisher,
	dispatchers Dispatchers,
	validate *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		workflowService:  workflowService,
		executionService: executionService,
		publisher:        pub,
		dispatchers:      dispatchers,
		validator:        validate,
		logger:           logger.With("module", "web"),
	}
}

// Workflows

func (h *APIHandlers) ListWorkflows(c fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return badRequest(c, "userId query parameter is required")
	}

	workflows, err := h.workflowService.List(c.Context(), userID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflowService.Create(c.Context(), req.Name, req.Description, req.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	err := h.workflowService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PublishWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req PublishWorkflowRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	message, err := h.workflowService.SetPublished(c.Context(), id, req.Published)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(MessageResponse{Message: message})
}

func (h *APIHandlers) SaveTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req SaveTemplateRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	message, err := h.workflowService.SaveTemplate(c.Context(), id, services.SaveTemplateInput{
		ChannelType: req.ChannelType,
		Content:     req.Content,
		Channels:    req.Channels,
		AccessToken: req.AccessToken,
		NotionDBID:  req.NotionDBID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(MessageResponse{Message: message})
}

func (h *APIHandlers) GetNodesEdges(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	document, err := h.workflowService.GetNodesEdges(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(document)
}

func (h *APIHandlers) UpdateNodesEdges(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req NodesEdgesRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	err := h.workflowService.UpdateNodesEdges(c.Context(), id, services.GraphDocument{
		Nodes: req.Nodes,
		Edges: req.Edges,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(MessageResponse{Message: "Workflow saved"})
}

// ListSlackChannels lists the Slack channels available to the workflow's
// stored token. Exhausted retries degrade to an empty selection so the
// destination picker stays usable.
func (h *APIHandlers) ListSlackChannels(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if h.dispatchers.Slack == nil || workflow.SlackAccessToken == "" {
		return c.JSON(fiber.Map{"channels": []models.ChannelOption{}})
	}

	channels, err := h.dispatchers.Slack.ListChannels(c.Context(), workflow.SlackAccessToken)
	if err != nil {
		h.logger.WarnContext(c.Context(), "Slack channel listing degraded to empty",
			"workflow_id", id,
			"error", err)

		channels = []models.ChannelOption{}
	}

	return c.JSON(fiber.Map{"channels": channels})
}

// Notify fans the workflow's stored templates out to every configured
// destination and reports one summary per destination kind.
func (h *APIHandlers) Notify(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req NotifyRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	workflow, err := h.workflowService.GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	response := NotifyResponse{Results: make(map[string]models.DispatchSummary)}

	if h.dispatchers.Discord != nil && h.dispatchers.DiscordBotToken != "" && workflow.DiscordTemplate != "" {
		response.Results[string(models.ChannelTypeDiscord)] = h.dispatchers.Discord.SendToChannels(
			c.Context(), h.dispatchers.DiscordBotToken, toChannelOptions(req.DiscordChannels), workflow.DiscordTemplate)
	}

	if h.dispatchers.Slack != nil && workflow.SlackAccessToken != "" && workflow.SlackTemplate != "" {
		response.Results[string(models.ChannelTypeSlack)] = h.dispatchers.Slack.SendToChannels(
			c.Context(), workflow.SlackAccessToken, toChannelOptions(workflow.SlackChannels), workflow.SlackTemplate)
	}

	if h.dispatchers.Notion != nil && workflow.NotionAccessToken != "" && workflow.NotionTemplate != "" {
		response.Results[string(models.ChannelTypeNotion)] = h.dispatchers.Notion.AppendPage(
			c.Context(), workflow.NotionAccessToken, workflow.NotionDBID, workflow.NotionTemplate)
	}

	return c.JSON(response)
}

// Executions

func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	var req StartExecutionRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	execution, err := h.executionService.StartExecution(c.Context(), req.WorkflowID, req.UserID, req.Metadata)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

func (h *APIHandlers) CompleteExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	var req CompleteExecutionRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	execution, err := h.executionService.CompleteExecution(c.Context(), id, req.Status, req.Error)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) LogActivity(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	var req LogActivityRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	activity := &models.Activity{
		ExecutionID:  id,
		UserID:       req.UserID,
		Type:         req.Type,
		Message:      req.Message,
		Service:      req.Service,
		WorkflowName: req.WorkflowName,
		Metadata:     req.Metadata,
	}

	err := h.executionService.LogActivity(c.Context(), activity)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(activity)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	limit := queryLimit(c, defaultExecutionLimit)
	executions := h.executionService.GetWorkflowExecutions(c.Context(), id, limit)

	return c.JSON(fiber.Map{"executions": executions})
}

// Analytics. Reads degrade inside the service, so these always answer 200.

func (h *APIHandlers) ExecutionsToday(c fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return badRequest(c, "userId query parameter is required")
	}

	stats := h.executionService.GetUserStats(c.Context(), userID)

	return c.JSON(fiber.Map{"executionsToday": stats.ExecutionsToday})
}

func (h *APIHandlers) SuccessRate(c fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return badRequest(c, "userId query parameter is required")
	}

	stats := h.executionService.GetUserStats(c.Context(), userID)

	return c.JSON(fiber.Map{
		"successRate":          stats.SuccessRate,
		"totalExecutions":      stats.TotalExecutions,
		"successfulExecutions": stats.SuccessfulExecutions,
	})
}

func (h *APIHandlers) RecentActivities(c fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return badRequest(c, "userId query parameter is required")
	}

	limit := queryLimit(c, defaultActivityLimit)
	activities := h.executionService.GetRecentActivities(c.Context(), userID, limit)

	return c.JSON(fiber.Map{"recentActivities": activities})
}

// Events

func (h *APIHandlers) PublishTestEvent(c fiber.Ctx) error {
	var req TestEventRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	h.publisher.PublishTestMessage(c.Context(), req.Message, req.UserID)

	return c.JSON(MessageResponse{Message: "Event accepted"})
}

func queryLimit(c fiber.Ctx, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}

	return limit
}

func toChannelOptions(values []string) []models.ChannelOption {
	options := make([]models.ChannelOption, 0, len(values))
	for _, value := range values {
		options = append(options, models.ChannelOption{Label: value, Value: value})
	}

	return options
}
