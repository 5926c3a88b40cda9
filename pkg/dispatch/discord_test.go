package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapse-flow/synapse/pkg/models"
)

type fakeDiscordSender struct {
	calls atomic.Int32
	fail  func(attempt int32) error
}

func (f *fakeDiscordSender) ChannelMessageSend(_, _ string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	attempt := f.calls.Add(1)

	if f.fail != nil {
		if err := f.fail(attempt); err != nil {
			return nil, err
		}
	}

	return &discordgo.Message{}, nil
}

func newTestDiscordClient(sender *fakeDiscordSender) *DiscordClient {
	return NewDiscordClient(testLogger(),
		WithDiscordSessionFactory(func(string) (discordSender, error) {
			return sender, nil
		}),
		WithDiscordRetryPolicy(RetryPolicy{MaxAttempts: 3, DefaultDelay: time.Millisecond}))
}

func TestDiscordSendSuccess(t *testing.T) {
	sender := &fakeDiscordSender{}
	client := newTestDiscordClient(sender)

	summary := client.SendToChannels(context.Background(), "bot-token",
		[]models.ChannelOption{{Label: "ops", Value: "123"}}, "deploy done")

	assert.Equal(t, SummarySuccess, summary.Message)
	assert.Equal(t, int32(1), sender.calls.Load())
}

func TestDiscordSendRetriesRateLimit(t *testing.T) {
	sender := &fakeDiscordSender{
		fail: func(attempt int32) error {
			if attempt < 3 {
				return &discordgo.RateLimitError{
					RateLimit: &discordgo.RateLimit{
						TooManyRequests: &discordgo.TooManyRequests{RetryAfter: time.Millisecond},
					},
				}
			}

			return nil
		},
	}
	client := newTestDiscordClient(sender)

	summary := client.SendToChannels(context.Background(), "bot-token",
		[]models.ChannelOption{{Label: "ops", Value: "123"}}, "deploy done")

	assert.Equal(t, SummarySuccess, summary.Message)
	assert.Equal(t, int32(3), sender.calls.Load())
}

func TestDiscordSendOtherErrorNotRetried(t *testing.T) {
	sender := &fakeDiscordSender{
		fail: func(int32) error {
			return errors.New("missing permissions")
		},
	}
	client := newTestDiscordClient(sender)

	summary := client.SendToChannels(context.Background(), "bot-token",
		[]models.ChannelOption{{Label: "ops", Value: "123"}}, "deploy done")

	assert.Equal(t, SummarySendFailed, summary.Message)
	require.Len(t, summary.Results, 1)
	assert.False(t, summary.Results[0].OK)
	assert.Equal(t, int32(1), sender.calls.Load())
}

func TestDiscordShortCircuits(t *testing.T) {
	sender := &fakeDiscordSender{}
	client := newTestDiscordClient(sender)

	empty := client.SendToChannels(context.Background(), "bot-token",
		[]models.ChannelOption{{Label: "ops", Value: "123"}}, "")
	assert.Equal(t, SummaryEmptyContent, empty.Message)

	noChannels := client.SendToChannels(context.Background(), "bot-token", nil, "hello")
	assert.Equal(t, SummaryNoChannels, noChannels.Message)

	assert.Equal(t, int32(0), sender.calls.Load())
}
