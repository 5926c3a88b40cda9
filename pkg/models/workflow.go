// Package models defines the core domain models for the workflow event pipeline.
package models

import (
	"encoding/json"
	"time"
)

// ChannelType identifies a destination kind a workflow template targets.
type ChannelType string

const (
	ChannelTypeDiscord ChannelType = "Discord"
	ChannelTypeSlack   ChannelType = "Slack"
	ChannelTypeNotion  ChannelType = "Notion"
)

// Workflow is a stored automation definition owned by a user. The node graph
// (Nodes/Edges) is an opaque document; the pipeline reports on its lifecycle
// but never interprets node semantics.
type Workflow struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"      validate:"required"`
	Name        string `json:"name"        validate:"required,min=3"`
	Description string `json:"description"`
	Publish     bool   `json:"publish"`

	DiscordTemplate   string   `json:"discordTemplate,omitempty"`
	SlackTemplate     string   `json:"slackTemplate,omitempty"`
	SlackAccessToken  string   `json:"slackAccessToken,omitempty"`
	SlackChannels     []string `json:"slackChannels,omitempty"`
	NotionTemplate    string   `json:"notionTemplate,omitempty"`
	NotionAccessToken string   `json:"notionAccessToken,omitempty"`
	NotionDBID        string   `json:"notionDbId,omitempty"`

	Nodes json.RawMessage `json:"nodes,omitempty"`
	Edges json.RawMessage `json:"edges,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WorkflowPatch carries partial updates to a workflow. Nil fields are left
// untouched. SlackChannels is union-merged with the stored selection,
// duplicates removed.
type WorkflowPatch struct {
	Publish           *bool
	DiscordTemplate   *string
	SlackTemplate     *string
	SlackAccessToken  *string
	SlackChannels     []string
	NotionTemplate    *string
	NotionAccessToken *string
	NotionDBID        *string
	Nodes             json.RawMessage
	Edges             json.RawMessage
}

// Apply merges the patch into the workflow in place.
func (p WorkflowPatch) Apply(workflow *Workflow) {
	if p.Publish != nil {
		workflow.Publish = *p.Publish
	}

	if p.DiscordTemplate != nil {
		workflow.DiscordTemplate = *p.DiscordTemplate
	}

	if p.SlackTemplate != nil {
		workflow.SlackTemplate = *p.SlackTemplate
	}

	if p.SlackAccessToken != nil {
		workflow.SlackAccessToken = *p.SlackAccessToken
	}

	if len(p.SlackChannels) > 0 {
		workflow.SlackChannels = UnionChannels(workflow.SlackChannels, p.SlackChannels)
	}

	if p.NotionTemplate != nil {
		workflow.NotionTemplate = *p.NotionTemplate
	}

	if p.NotionAccessToken != nil {
		workflow.NotionAccessToken = *p.NotionAccessToken
	}

	if p.NotionDBID != nil {
		workflow.NotionDBID = *p.NotionDBID
	}

	if p.Nodes != nil {
		workflow.Nodes = p.Nodes
	}

	if p.Edges != nil {
		workflow.Edges = p.Edges
	}
}

// UnionChannels merges two channel selections, dropping duplicates while
// keeping first-seen order.
func UnionChannels(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))

	for _, channel := range existing {
		if _, ok := seen[channel]; ok {
			continue
		}

		seen[channel] = struct{}{}
		merged = append(merged, channel)
	}

	for _, channel := range incoming {
		if _, ok := seen[channel]; ok {
			continue
		}

		seen[channel] = struct{}{}
		merged = append(merged, channel)
	}

	return merged
}
