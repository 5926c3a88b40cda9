package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/synapse-flow/synapse/pkg/models"
	"github.com/synapse-flow/synapse/pkg/persistence"
	"github.com/synapse-flow/synapse/pkg/publisher"
)

// graphDocumentSchema constrains the nodes/edges document shape. Node and
// edge payloads stay opaque beyond the identifiers that make the document a
// graph.
const graphDocumentSchema = `{
	"type": "object",
	"required": ["nodes", "edges"],
	"properties": {
		"nodes": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id"],
				"properties": {"id": {"type": "string", "minLength": 1}}
			}
		},
		"edges": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["source", "target"],
				"properties": {
					"source": {"type": "string", "minLength": 1},
					"target": {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`

// GraphDocument is the nodes/edges payload accepted by UpdateNodesEdges.
type GraphDocument struct {
	Nodes json.RawMessage `json:"nodes"`
	Edges json.RawMessage `json:"edges"`
}

// WorkflowService owns workflow definitions, publish state, and destination
// templates. Every mutation emits a lifecycle event; event delivery never
// fails the operation itself.
type WorkflowService struct {
	workflows   persistence.WorkflowRepository
	publisher   *publisher.Publisher
	validate    *validator.Validate
	graphSchema *gojsonschema.Schema
	logger      *slog.Logger
}

func NewWorkflowService(workflows persistence.WorkflowRepository, pub *publisher.Publisher, logger *slog.Logger) (*WorkflowService, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(graphDocumentSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile graph document schema: %w", err)
	}

	return &WorkflowService{
		workflows:   workflows,
		publisher:   pub,
		validate:    validator.New(),
		graphSchema: schema,
		logger:      logger.With("module", "workflow_service"),
	}, nil
}

// Create persists a new workflow and emits workflow.created.
func (s *WorkflowService) Create(ctx context.Context, name, description, userID string) (*models.Workflow, error) {
	now := time.Now().UTC()

	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.validate.Struct(workflow)
	if err != nil {
		return nil, NewValidationError(err)
	}

	err = s.workflows.Create(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	s.publisher.PublishWorkflowCreated(ctx, workflow.ID, userID, name, description)

	return workflow, nil
}

// GetByID fetches one workflow.
func (s *WorkflowService) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	return s.workflows.GetByID(ctx, id)
}

// List returns the user's workflows, newest first.
func (s *WorkflowService) List(ctx context.Context, userID string) ([]*models.Workflow, error) {
	return s.workflows.ListByUser(ctx, userID)
}

// SetPublished flips the publish state and emits workflow.published.
func (s *WorkflowService) SetPublished(ctx context.Context, id string, published bool) (string, error) {
	workflow, err := s.workflows.Update(ctx, id, models.WorkflowPatch{Publish: &published})
	if err != nil {
		return "", err
	}

	s.publisher.PublishWorkflowPublished(ctx, workflow.ID, workflow.UserID, published)

	if published {
		return "Workflow published", nil
	}

	return "Workflow unpublished", nil
}

// SaveTemplateInput carries a destination template update. Channels and
// tokens only apply to the destination kinds that use them.
type SaveTemplateInput struct {
	ChannelType models.ChannelType
	Content     string
	Channels    []string
	AccessToken string
	NotionDBID  string
}

// SaveTemplate stores a destination template on the workflow and emits
// workflow.template_updated. Slack channel selections are union-merged with
// the stored set.
func (s *WorkflowService) SaveTemplate(ctx context.Context, id string, input SaveTemplateInput) (string, error) {
	var patch models.WorkflowPatch

	switch input.ChannelType {
	case models.ChannelTypeDiscord:
		patch.DiscordTemplate = &input.Content
	case models.ChannelTypeSlack:
		patch.SlackTemplate = &input.Content
		patch.SlackChannels = input.Channels

		if input.AccessToken != "" {
			patch.SlackAccessToken = &input.AccessToken
		}
	case models.ChannelTypeNotion:
		patch.NotionTemplate = &input.Content

		if input.AccessToken != "" {
			patch.NotionAccessToken = &input.AccessToken
		}

		if input.NotionDBID != "" {
			patch.NotionDBID = &input.NotionDBID
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownChannelType, input.ChannelType)
	}

	workflow, err := s.workflows.Update(ctx, id, patch)
	if err != nil {
		return "", err
	}

	s.publisher.PublishWorkflowTemplateUpdated(ctx, workflow.ID, workflow.UserID, string(input.ChannelType), input.Content)

	return fmt.Sprintf("%s template saved", input.ChannelType), nil
}

// GetNodesEdges returns the stored graph document, nil parts when absent.
func (s *WorkflowService) GetNodesEdges(ctx context.Context, id string) (*GraphDocument, error) {
	workflow, err := s.workflows.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &GraphDocument{Nodes: workflow.Nodes, Edges: workflow.Edges}, nil
}

// UpdateNodesEdges validates and stores a new graph document, then emits
// workflow.updated.
func (s *WorkflowService) UpdateNodesEdges(ctx context.Context, id string, document GraphDocument) error {
	raw, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to marshal graph document: %w", err)
	}

	result, err := s.graphSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGraphDocument, err)
	}

	if !result.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidGraphDocument, result.Errors()[0].String())
	}

	workflow, err := s.workflows.Update(ctx, id, models.WorkflowPatch{
		Nodes: document.Nodes,
		Edges: document.Edges,
	})
	if err != nil {
		return err
	}

	s.publisher.PublishWorkflowUpdated(ctx, workflow.ID, workflow.UserID, map[string]any{
		"nodes": true,
		"edges": true,
	})

	return nil
}

// Delete removes a workflow and emits workflow.deleted.
func (s *WorkflowService) Delete(ctx context.Context, id string) error {
	workflow, err := s.workflows.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.workflows.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	s.publisher.PublishWorkflowDeleted(ctx, workflow.ID, workflow.UserID)

	return nil
}
