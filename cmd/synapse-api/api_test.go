package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapse-flow/synapse/pkg/models"
	"github.com/synapse-flow/synapse/pkg/persistence/file"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	api := NewAPI(
		slog.Default(),
		file.NewPersistence(t.TempDir()),
		nil,
		"",
	)

	app, err := api.App(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() {
		if api.reconciler != nil {
			api.reconciler.Stop()
		}
	})

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, payload
}

func createWorkflow(t *testing.T, app *fiber.App) models.Workflow {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", map[string]any{
		"name":        "Daily digest",
		"description": "Sends a digest",
		"userId":      "user-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var workflow models.Workflow

	require.NoError(t, json.Unmarshal(body, &workflow))

	return workflow
}

func TestRootEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Synapse API", string(body))
}

func TestCreateAndGetWorkflow(t *testing.T) {
	app := setupTestApp(t)

	workflow := createWorkflow(t, app)
	assert.NotEmpty(t, workflow.ID)

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/"+workflow.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var loaded models.Workflow

	require.NoError(t, json.Unmarshal(body, &loaded))
	assert.Equal(t, "Daily digest", loaded.Name)
}

func TestCreateWorkflowValidation(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", map[string]any{
		"name":   "ab",
		"userId": "user-1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "validation_error")
}

func TestGetWorkflowNotFound(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "not_found")
}

func TestPublishWorkflow(t *testing.T) {
	app := setupTestApp(t)
	workflow := createWorkflow(t, app)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/publish",
		map[string]any{"published": true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Workflow published")
}

func TestSaveTemplate(t *testing.T) {
	app := setupTestApp(t)
	workflow := createWorkflow(t, app)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/template",
		map[string]any{
			"channelType": "Slack",
			"content":     "Hello {{name}}",
			"channels":    []string{"C1"},
			"accessToken": "xoxb-token",
		})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Slack template saved")

	// Channel selections union across saves.
	resp, _ = doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/template",
		map[string]any{
			"channelType": "Slack",
			"content":     "Hello again",
			"channels":    []string{"C1", "C2"},
		})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, payload := doJSON(t, app, http.MethodGet, "/workflows/"+workflow.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loaded models.Workflow

	require.NoError(t, json.Unmarshal(payload, &loaded))
	assert.Equal(t, []string{"C1", "C2"}, loaded.SlackChannels)
}

func TestNodesEdgesRoundTrip(t *testing.T) {
	app := setupTestApp(t)
	workflow := createWorkflow(t, app)

	resp, _ := doJSON(t, app, http.MethodPut, "/workflows/"+workflow.ID+"/nodes-edges",
		map[string]any{
			"nodes": []map[string]any{{"id": "n1"}},
			"edges": []map[string]any{{"source": "n1", "target": "n1"}},
		})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/"+workflow.ID+"/nodes-edges", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"n1"`)
}

func TestNodesEdgesRejectsMalformedGraph(t *testing.T) {
	app := setupTestApp(t)
	workflow := createWorkflow(t, app)

	resp, body := doJSON(t, app, http.MethodPut, "/workflows/"+workflow.ID+"/nodes-edges",
		map[string]any{
			"nodes": []map[string]any{{"label": "no id"}},
			"edges": []map[string]any{},
		})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "validation_error")
}

func TestExecutionLifecycleOverHTTP(t *testing.T) {
	app := setupTestApp(t)
	workflow := createWorkflow(t, app)

	resp, body := doJSON(t, app, http.MethodPost, "/executions", map[string]any{
		"workflowId": workflow.ID,
		"userId":     "user-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var execution models.Execution

	require.NoError(t, json.Unmarshal(body, &execution))
	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)

	resp, body = doJSON(t, app, http.MethodPost, "/executions/"+execution.ID+"/complete",
		map[string]any{"status": "SUCCESS"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var completed models.Execution

	require.NoError(t, json.Unmarshal(body, &completed))
	assert.Equal(t, models.ExecutionStatusSuccess, completed.Status)
	require.NotNil(t, completed.DurationMs)

	// A second completion is a conflict.
	resp, body = doJSON(t, app, http.MethodPost, "/executions/"+execution.ID+"/complete",
		map[string]any{"status": "FAILED"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "conflict")
}

func TestActivityAndAnalytics(t *testing.T) {
	app := setupTestApp(t)
	workflow := createWorkflow(t, app)

	resp, body := doJSON(t, app, http.MethodPost, "/executions", map[string]any{
		"workflowId": workflow.ID,
		"userId":     "user-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var execution models.Execution

	require.NoError(t, json.Unmarshal(body, &execution))

	resp, _ = doJSON(t, app, http.MethodPost, "/executions/"+execution.ID+"/activities",
		map[string]any{
			"userId":  "user-1",
			"type":    "SUCCESS",
			"message": "Posted to Slack",
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/executions/"+execution.ID+"/complete",
		map[string]any{"status": "SUCCESS"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/analytics/success-rate?userId=user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rate map[string]any

	require.NoError(t, json.Unmarshal(body, &rate))
	assert.InDelta(t, 100.0, rate["successRate"], 0.001)

	resp, body = doJSON(t, app, http.MethodGet, "/analytics/executions-today?userId=user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"executionsToday":1`)

	resp, body = doJSON(t, app, http.MethodGet, "/analytics/recent-activities?userId=user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Just now")

	resp, body = doJSON(t, app, http.MethodGet, "/workflows/"+workflow.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), execution.ID)
}

func TestAnalyticsRequireUserID(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/analytics/success-rate", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPublishTestEvent(t *testing.T) {
	app := setupTestApp(t)

	// No broker configured: the publisher degrades to the local log, and the
	// endpoint still accepts the message.
	resp, body := doJSON(t, app, http.MethodPost, "/events/test",
		map[string]any{"message": "ping"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Event accepted")
}
