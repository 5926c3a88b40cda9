package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/synapse-flow/synapse/pkg/models"
)

const slackAPIBaseURL = "https://slack.com/api"

// SlackClient talks to the Slack Web API. Rate-limit responses are retried
// per the shared policy using the server-provided delay.
type SlackClient struct {
	httpClient *http.Client
	baseURL    string
	policy     RetryPolicy
	logger     *slog.Logger
}

// SlackOption configures a SlackClient.
type SlackOption func(*SlackClient)

// WithSlackHTTPClient overrides the HTTP client, mainly for tests.
func WithSlackHTTPClient(client *http.Client) SlackOption {
	return func(c *SlackClient) { c.httpClient = client }
}

// WithSlackBaseURL overrides the API base URL, mainly for tests.
func WithSlackBaseURL(baseURL string) SlackOption {
	return func(c *SlackClient) { c.baseURL = baseURL }
}

// WithSlackRetryPolicy overrides the retry policy parameters.
func WithSlackRetryPolicy(policy RetryPolicy) SlackOption {
	return func(c *SlackClient) { c.policy = policy }
}

func NewSlackClient(logger *slog.Logger, opts ...SlackOption) *SlackClient {
	client := &SlackClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    slackAPIBaseURL,
		policy:     DefaultRetryPolicy(),
		logger:     logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

type slackChannel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsMember bool   `json:"is_member"`
}

type slackResponse struct {
	OK               bool           `json:"ok"`
	Error            string         `json:"error,omitempty"`
	Channels         []slackChannel `json:"channels,omitempty"`
	ResponseMetadata struct {
		RetryAfter float64 `json:"retry_after,omitempty"`
	} `json:"response_metadata,omitempty"`
}

// ListChannels lists the channels the bot is a member of, as label/value
// options.
func (c *SlackClient) ListChannels(ctx context.Context, accessToken string) ([]models.ChannelOption, error) {
	query := url.Values{
		"types": []string{"public_channel,private_channel"},
		"limit": []string{"200"},
	}

	listURL := c.baseURL + "/conversations.list?" + query.Encode()

	var options []models.ChannelOption

	err := c.policy.Do(ctx, func() error {
		response, err := c.call(ctx, http.MethodGet, listURL, accessToken, nil)
		if err != nil {
			return err
		}

		options = make([]models.ChannelOption, 0, len(response.Channels))

		for _, channel := range response.Channels {
			if !channel.IsMember {
				continue
			}

			options = append(options, models.ChannelOption{
				Label: channel.Name,
				Value: channel.ID,
			})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return options, nil
}

// SendToChannels dispatches content to all selected channels concurrently.
// Empty content and empty selections short-circuit without any network call.
func (c *SlackClient) SendToChannels(ctx context.Context, accessToken string, channels []models.ChannelOption, content string) models.DispatchSummary {
	if content == "" {
		return models.DispatchSummary{Message: SummaryEmptyContent}
	}

	if len(channels) == 0 {
		return models.DispatchSummary{Message: SummaryNoChannels}
	}

	results := make([]models.DispatchResult, len(channels))

	var wg sync.WaitGroup

	for i, channel := range channels {
		wg.Add(1)

		go func(i int, channel models.ChannelOption) {
			defer wg.Done()

			err := c.policy.Do(ctx, func() error {
				return c.postMessage(ctx, accessToken, channel.Value, content)
			})
			if err != nil {
				c.logger.ErrorContext(ctx, "Failed to post message to Slack channel",
					"channel", channel.Value,
					"error", err)

				results[i] = models.DispatchResult{Destination: channel.Value, Error: err.Error()}

				return
			}

			results[i] = models.DispatchResult{Destination: channel.Value, OK: true}
		}(i, channel)
	}

	wg.Wait()

	summary := models.DispatchSummary{Message: SummarySuccess, Results: results}
	if summary.Failed() {
		summary.Message = SummarySendFailed
	}

	return summary
}

func (c *SlackClient) postMessage(ctx context.Context, accessToken, channelID, content string) error {
	body := map[string]string{
		"channel": channelID,
		"text":    content,
	}

	_, err := c.call(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", accessToken, body)

	return err
}

// call performs one Slack Web API request and maps throttling signals (HTTP
// 429 or an api-level rate_limited error) to RateLimitError.
func (c *SlackClient) call(ctx context.Context, method, callURL, accessToken string, body any) (*slackResponse, error) {
	var payload *bytes.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal slack request: %w", err)
		}

		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}

	request, err := http.NewRequestWithContext(ctx, method, callURL, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build slack request: %w", err)
	}

	request.Header.Set("Authorization", "Bearer "+accessToken)

	if body != nil {
		request.Header.Set("Content-Type", "application/json;charset=utf-8")
	}

	httpResponse, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("slack request failed: %w", err)
	}
	defer func() { _ = httpResponse.Body.Close() }()

	if httpResponse.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{RetryAfter: retryAfterHeader(httpResponse)}
	}

	var response slackResponse

	err = json.NewDecoder(httpResponse.Body).Decode(&response)
	if err != nil {
		return nil, fmt.Errorf("failed to decode slack response: %w", err)
	}

	if !response.OK {
		if response.Error == "rate_limited" || response.Error == "ratelimited" {
			retryAfter := time.Duration(response.ResponseMetadata.RetryAfter * float64(time.Second))

			return nil, &RateLimitError{RetryAfter: retryAfter}
		}

		return nil, fmt.Errorf("slack api error: %s", response.Error)
	}

	return &response, nil
}

func retryAfterHeader(response *http.Response) time.Duration {
	header := response.Header.Get("Retry-After")
	if header == "" {
		return 0
	}

	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}
