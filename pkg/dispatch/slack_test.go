package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapse-flow/synapse/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newTestSlackClient(t *testing.T, handler http.Handler) (*SlackClient, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewSlackClient(testLogger(),
		WithSlackBaseURL(server.URL),
		WithSlackHTTPClient(server.Client()),
		WithSlackRetryPolicy(RetryPolicy{MaxAttempts: 3, DefaultDelay: time.Millisecond}))

	return client, server
}

func TestListChannelsFiltersMembership(t *testing.T) {
	client, _ := newTestSlackClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations.list", r.URL.Path)
		assert.Equal(t, "Bearer xoxb-token", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"channels": []map[string]any{
				{"id": "C1", "name": "general", "is_member": true},
				{"id": "C2", "name": "random", "is_member": false},
				{"id": "C3", "name": "alerts", "is_member": true},
			},
		})
	}))

	channels, err := client.ListChannels(context.Background(), "xoxb-token")
	require.NoError(t, err)

	assert.Equal(t, []models.ChannelOption{
		{Label: "general", Value: "C1"},
		{Label: "alerts", Value: "C3"},
	}, channels)
}

func TestListChannelsRetriesOn429(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestSlackClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":       true,
			"channels": []map[string]any{{"id": "C1", "name": "general", "is_member": true}},
		})
	}))

	channels, err := client.ListChannels(context.Background(), "xoxb-token")
	require.NoError(t, err)
	assert.Len(t, channels, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestListChannelsTerminalAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestSlackClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.ListChannels(context.Background(), "xoxb-token")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendToChannelsEmptyContentShortCircuits(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestSlackClient(t, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))

	summary := client.SendToChannels(context.Background(), "xoxb-token",
		[]models.ChannelOption{{Label: "general", Value: "C1"}}, "")

	assert.Equal(t, SummaryEmptyContent, summary.Message)
	assert.Empty(t, summary.Results)
	assert.Equal(t, int32(0), calls.Load())
}

func TestSendToChannelsNoSelectionShortCircuits(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestSlackClient(t, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))

	summary := client.SendToChannels(context.Background(), "xoxb-token", nil, "hello")

	assert.Equal(t, SummaryNoChannels, summary.Message)
	assert.Equal(t, int32(0), calls.Load())
}

func TestSendToChannelsReportsPerDestination(t *testing.T) {
	client, _ := newTestSlackClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string

		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body["channel"] == "C-bad" {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))

	summary := client.SendToChannels(context.Background(), "xoxb-token", []models.ChannelOption{
		{Label: "good", Value: "C-good"},
		{Label: "bad", Value: "C-bad"},
	}, "deploy finished")

	assert.Equal(t, SummarySendFailed, summary.Message)
	require.Len(t, summary.Results, 2)

	byDestination := map[string]models.DispatchResult{}
	for _, result := range summary.Results {
		byDestination[result.Destination] = result
	}

	assert.True(t, byDestination["C-good"].OK)
	assert.False(t, byDestination["C-bad"].OK)
	assert.NotEmpty(t, byDestination["C-bad"].Error)
}

func TestSendToChannelsAllOK(t *testing.T) {
	client, _ := newTestSlackClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))

	summary := client.SendToChannels(context.Background(), "xoxb-token", []models.ChannelOption{
		{Label: "general", Value: "C1"},
		{Label: "alerts", Value: "C2"},
	}, "hello")

	assert.Equal(t, SummarySuccess, summary.Message)

	for _, result := range summary.Results {
		assert.True(t, result.OK)
	}
}
