package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id UUID PRIMARY KEY,
				user_id TEXT NOT NULL,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				publish BOOLEAN NOT NULL DEFAULT FALSE,
				discord_template TEXT,
				slack_template TEXT,
				slack_access_token TEXT,
				slack_channels JSONB NOT NULL DEFAULT '[]'::jsonb,
				notion_template TEXT,
				notion_access_token TEXT,
				notion_db_id TEXT,
				nodes JSONB,
				edges JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_user_id ON workflows(user_id);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS workflow_executions (
				id UUID PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				status TEXT NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				completed_at TIMESTAMP WITH TIME ZONE,
				duration_ms BIGINT,
				error TEXT,
				metadata JSONB NOT NULL DEFAULT '{}'::jsonb
			);

			CREATE INDEX IF NOT EXISTS idx_executions_workflow_id ON workflow_executions(workflow_id);
			CREATE INDEX IF NOT EXISTS idx_executions_user_id ON workflow_executions(user_id);
			CREATE INDEX IF NOT EXISTS idx_executions_status ON workflow_executions(status);
		`,
		3: `
			CREATE TABLE IF NOT EXISTS workflow_activities (
				id UUID PRIMARY KEY,
				execution_id UUID NOT NULL,
				user_id TEXT NOT NULL,
				type TEXT NOT NULL,
				message TEXT NOT NULL,
				service TEXT,
				workflow_name TEXT,
				metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
				timestamp TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_activities_execution_id ON workflow_activities(execution_id);
			CREATE INDEX IF NOT EXISTS idx_activities_user_id_timestamp ON workflow_activities(user_id, timestamp DESC);
		`,
	}
}
