package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger_type TEXT NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT FALSE,
				execution_count INTEGER NOT NULL DEFAULT 0,
				success_count INTEGER NOT NULL DEFAULT 0,
				nodes JSONB NOT NULL DEFAULT '[]',
				connections JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS executions (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				status TEXT NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE,
				error_message TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX IF NOT EXISTS idx_executions_workflow_started
				ON executions (workflow_id, started_at DESC);
		`,
	}
}
