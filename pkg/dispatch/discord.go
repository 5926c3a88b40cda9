package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/synapse-flow/synapse/pkg/models"
)

// discordSender is the slice of discordgo.Session the client depends on.
type discordSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordClient posts messages to Discord channels through a bot session.
type DiscordClient struct {
	newSession func(token string) (discordSender, error)
	policy     RetryPolicy
	logger     *slog.Logger
}

// DiscordOption configures a DiscordClient.
type DiscordOption func(*DiscordClient)

// WithDiscordSessionFactory overrides session creation, mainly for tests.
func WithDiscordSessionFactory(factory func(token string) (discordSender, error)) DiscordOption {
	return func(c *DiscordClient) { c.newSession = factory }
}

// WithDiscordRetryPolicy overrides the retry policy parameters.
func WithDiscordRetryPolicy(policy RetryPolicy) DiscordOption {
	return func(c *DiscordClient) { c.policy = policy }
}

func NewDiscordClient(logger *slog.Logger, opts ...DiscordOption) *DiscordClient {
	client := &DiscordClient{
		newSession: func(token string) (discordSender, error) {
			session, err := discordgo.New("Bot " + token)
			if err != nil {
				return nil, fmt.Errorf("failed to create discord session: %w", err)
			}

			return session, nil
		},
		policy: DefaultRetryPolicy(),
		logger: logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// SendToChannels dispatches content to all selected channels concurrently.
// Empty content and empty selections short-circuit without any network call.
func (c *DiscordClient) SendToChannels(ctx context.Context, botToken string, channels []models.ChannelOption, content string) models.DispatchSummary {
	if content == "" {
		return models.DispatchSummary{Message: SummaryEmptyContent}
	}

	if len(channels) == 0 {
		return models.DispatchSummary{Message: SummaryNoChannels}
	}

	session, err := c.newSession(botToken)
	if err != nil {
		results := make([]models.DispatchResult, len(channels))
		for i, channel := range channels {
			results[i] = models.DispatchResult{Destination: channel.Value, Error: err.Error()}
		}

		return models.DispatchSummary{Message: SummarySendFailed, Results: results}
	}

	results := make([]models.DispatchResult, len(channels))

	var wg sync.WaitGroup

	for i, channel := range channels {
		wg.Add(1)

		go func(i int, channel models.ChannelOption) {
			defer wg.Done()

			err := c.policy.Do(ctx, func() error {
				return c.send(session, channel.Value, content)
			})
			if err != nil {
				c.logger.ErrorContext(ctx, "Failed to post message to Discord channel",
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

func (c *DiscordClient) send(session discordSender, channelID, content string) error {
	_, err := session.ChannelMessageSend(channelID, content)
	if err != nil {
		var rateLimited *discordgo.RateLimitError
		if errors.As(err, &rateLimited) {
			return &RateLimitError{RetryAfter: rateLimited.RetryAfter}
		}

		return fmt.Errorf("discord send failed: %w", err)
	}

	return nil
}
