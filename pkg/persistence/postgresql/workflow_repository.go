package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/synapse-flow/synapse/pkg/models"
	"github.com/synapse-flow/synapse/pkg/persistence"
)

// WorkflowRepository handles workflow rows.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `id, user_id, name, description, publish,
	discord_template, slack_template, slack_access_token, slack_channels,
	notion_template, notion_access_token, notion_db_id,
	nodes, edges, created_at, updated_at`

// Create inserts a new workflow row.
func (wr *WorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	channels, err := json.Marshal(workflow.SlackChannels)
	if err != nil {
		return fmt.Errorf("failed to marshal slack channels: %w", err)
	}

	query := `
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = wr.db.ExecContext(ctx, query,
		workflow.ID, workflow.UserID, workflow.Name, workflow.Description, workflow.Publish,
		nullString(workflow.DiscordTemplate), nullString(workflow.SlackTemplate),
		nullString(workflow.SlackAccessToken), channels,
		nullString(workflow.NotionTemplate), nullString(workflow.NotionAccessToken),
		nullString(workflow.NotionDBID),
		nullRaw(workflow.Nodes), nullRaw(workflow.Edges),
		workflow.CreatedAt, workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStoreError("Create", workflow.ID, err)
	}

	return nil
}

// GetByID retrieves a workflow by its id.
func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	workflow, err := scanWorkflow(wr.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewStoreError("GetByID", id, err)
	}

	return workflow, nil
}

// ListByUser returns the user's workflows, newest first.
func (wr *WorkflowRepository) ListByUser(ctx context.Context, userID string) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := wr.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, persistence.NewStoreError("ListByUser", userID, err)
	}
	defer func() { _ = rows.Close() }()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, persistence.NewStoreError("ListByUser", userID, err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError("ListByUser", userID, err)
	}

	return workflows, nil
}

// Update applies a patch to the stored workflow and returns the result.
// Channel selections union-merge in the application to keep the semantics
// identical across persistence backends.
func (wr *WorkflowRepository) Update(ctx context.Context, id string, patch models.WorkflowPatch) (*models.Workflow, error) {
	workflow, err := wr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(workflow)
	workflow.UpdatedAt = time.Now().UTC()

	channels, err := json.Marshal(workflow.SlackChannels)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal slack channels: %w", err)
	}

	query := `
		UPDATE workflows SET
			name = $2, description = $3, publish = $4,
			discord_template = $5, slack_template = $6, slack_access_token = $7,
			slack_channels = $8, notion_template = $9, notion_access_token = $10,
			notion_db_id = $11, nodes = $12, edges = $13, updated_at = $14
		WHERE id = $1
	`

	_, err = wr.db.ExecContext(ctx, query,
		workflow.ID, workflow.Name, workflow.Description, workflow.Publish,
		nullString(workflow.DiscordTemplate), nullString(workflow.SlackTemplate),
		nullString(workflow.SlackAccessToken), channels,
		nullString(workflow.NotionTemplate), nullString(workflow.NotionAccessToken),
		nullString(workflow.NotionDBID),
		nullRaw(workflow.Nodes), nullRaw(workflow.Edges),
		workflow.UpdatedAt,
	)
	if err != nil {
		return nil, persistence.NewStoreError("Update", id, err)
	}

	return workflow, nil
}

// Delete removes a workflow row. Deleting an absent workflow is a no-op.
func (wr *WorkflowRepository) Delete(ctx context.Context, id string) error {
	_, err := wr.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return persistence.NewStoreError("Delete", id, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow                            models.Workflow
		discordTemplate, slackTemplate      sql.NullString
		slackAccessToken, notionTemplate    sql.NullString
		notionAccessToken, notionDBID       sql.NullString
		channels                            []byte
		nodes, edges                        []byte
	)

	err := row.Scan(
		&workflow.ID, &workflow.UserID, &workflow.Name, &workflow.Description, &workflow.Publish,
		&discordTemplate, &slackTemplate, &slackAccessToken, &channels,
		&notionTemplate, &notionAccessToken, &notionDBID,
		&nodes, &edges, &workflow.CreatedAt, &workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.DiscordTemplate = discordTemplate.String
	workflow.SlackTemplate = slackTemplate.String
	workflow.SlackAccessToken = slackAccessToken.String
	workflow.NotionTemplate = notionTemplate.String
	workflow.NotionAccessToken = notionAccessToken.String
	workflow.NotionDBID = notionDBID.String
	workflow.Nodes = nodes
	workflow.Edges = edges

	if len(channels) > 0 {
		err = json.Unmarshal(channels, &workflow.SlackChannels)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal slack channels: %w", err)
		}
	}

	return &workflow, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullRaw(value json.RawMessage) []byte {
	if len(value) == 0 {
		return nil
	}

	return value
}
