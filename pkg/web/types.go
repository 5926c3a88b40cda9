// Package web provides the HTTP request and response types for the pipeline
// API.
package web

import (
	"encoding/json"

	"github.com/synapse-flow/synapse/pkg/models"
)

// CreateWorkflowRequest is the body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name        string `json:"name"        validate:"required,min=3"`
	Description string `json:"description"`
	UserID      string `json:"userId"      validate:"required"`
}

// PublishWorkflowRequest is the body for flipping a workflow's publish state.
type PublishWorkflowRequest struct {
	Published bool `json:"published"`
}

// SaveTemplateRequest is the body for saving a destination template.
type SaveTemplateRequest struct {
	ChannelType models.ChannelType `json:"channelType" validate:"required,oneof=Discord Slack Notion"`
	Content     string             `json:"content"`
	Channels    []string           `json:"channels,omitempty"`
	AccessToken string             `json:"accessToken,omitempty"`
	NotionDBID  string             `json:"notionDbId,omitempty"`
}

// NodesEdgesRequest is the body for replacing a workflow's graph document.
type NodesEdgesRequest struct {
	Nodes json.RawMessage `json:"nodes" validate:"required"`
	Edges json.RawMessage `json:"edges" validate:"required"`
}

// StartExecutionRequest is the body for recording an execution start.
type StartExecutionRequest struct {
	WorkflowID string         `json:"workflowId" validate:"required"`
	UserID     string         `json:"userId"     validate:"required"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// CompleteExecutionRequest is the body for recording an execution completion.
type CompleteExecutionRequest struct {
	Status models.ExecutionStatus `json:"status" validate:"required,oneof=SUCCESS FAILED CANCELLED"`
	Error  string                 `json:"error,omitempty"`
}

// LogActivityRequest is the body for appending one activity entry.
type LogActivityRequest struct {
	UserID       string              `json:"userId"  validate:"required"`
	Type         models.ActivityType `json:"type,omitempty"`
	Message      string              `json:"message" validate:"required"`
	Service      string              `json:"service,omitempty"`
	WorkflowName string              `json:"workflowName,omitempty"`
	Metadata     map[string]any      `json:"metadata,omitempty"`
}

// TestEventRequest is the body for publishing a diagnostic test message.
type TestEventRequest struct {
	Message string `json:"message" validate:"required"`
	UserID  string `json:"userId,omitempty"`
}

// NotifyRequest is the body for fanning a workflow's templates out to its
// destinations. Discord channel selection rides on the request because it is
// not stored with the workflow.
type NotifyRequest struct {
	DiscordChannels []string `json:"discordChannels,omitempty"`
}

// NotifyResponse groups dispatch summaries by destination kind.
type NotifyResponse struct {
	Results map[string]models.DispatchSummary `json:"results"`
}

// MessageResponse is a plain confirmation payload.
type MessageResponse struct {
	Message string `json:"message"`
}
