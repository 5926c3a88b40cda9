package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/synapse-flow/synapse/pkg/models"
)

const (
	notionAPIBaseURL = "https://api.notion.com"
	notionAPIVersion = "2022-06-28"
)

// NotionClient appends entries to a Notion database via the pages API.
type NotionClient struct {
	httpClient *http.Client
	baseURL    string
	policy     RetryPolicy
	logger     *slog.Logger
}

// NotionOption configures a NotionClient.
type NotionOption func(*NotionClient)

// WithNotionHTTPClient overrides the HTTP client, mainly for tests.
func WithNotionHTTPClient(client *http.Client) NotionOption {
	return func(c *NotionClient) { c.httpClient = client }
}

// WithNotionBaseURL overrides the API base URL, mainly for tests.
func WithNotionBaseURL(baseURL string) NotionOption {
	return func(c *NotionClient) { c.baseURL = baseURL }
}

// WithNotionRetryPolicy overrides the retry policy parameters.
func WithNotionRetryPolicy(policy RetryPolicy) NotionOption {
	return func(c *NotionClient) { c.policy = policy }
}

func NewNotionClient(logger *slog.Logger, opts ...NotionOption) *NotionClient {
	client := &NotionClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    notionAPIBaseURL,
		policy:     DefaultRetryPolicy(),
		logger:     logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// AppendPage creates a page in the target database with the content as its
// title. Empty content and a missing database short-circuit without any
// network call.
func (c *NotionClient) AppendPage(ctx context.Context, accessToken, databaseID, content string) models.DispatchSummary {
	if content == "" {
		return models.DispatchSummary{Message: SummaryEmptyContent}
	}

	if databaseID == "" {
		return models.DispatchSummary{Message: SummaryNoChannels}
	}

	err := c.policy.Do(ctx, func() error {
		return c.createPage(ctx, accessToken, databaseID, content)
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to append page to Notion database",
			"database_id", databaseID,
			"error", err)

		return models.DispatchSummary{
			Message: SummarySendFailed,
			Results: []models.DispatchResult{{Destination: databaseID, Error: err.Error()}},
		}
	}

	return models.DispatchSummary{
		Message: SummarySuccess,
		Results: []models.DispatchResult{{Destination: databaseID, OK: true}},
	}
}

func (c *NotionClient) createPage(ctx context.Context, accessToken, databaseID, content string) error {
	body := map[string]any{
		"parent": map[string]string{"database_id": databaseID},
		"properties": map[string]any{
			"Name": map[string]any{
				"title": []map[string]any{
					{"text": map[string]string{"content": content}},
				},
			},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal notion request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/pages", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build notion request: %w", err)
	}

	request.Header.Set("Authorization", "Bearer "+accessToken)
	request.Header.Set("Notion-Version", notionAPIVersion)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("notion request failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryAfterHeader(response)}
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(response.Body, 4096))

		return fmt.Errorf("notion api error: status %d: %s", response.StatusCode, string(payload))
	}

	return nil
}
