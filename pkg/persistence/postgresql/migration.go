package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				version INT NOT NULL DEFAULT 1,
				workflow_group_id UUID,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'archived')),
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				published_at TIMESTAMP WITH TIME ZONE,
				archived_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_tenant_id ON workflows(tenant_id);
			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_group_id ON workflows(workflow_group_id);

			CREATE TABLE workflow_instances (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id),
				tenant_id VARCHAR(255) NOT NULL,
				lead_id VARCHAR(255) NOT NULL,
				current_node_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN (
					'running', 'waitingOnDelay', 'waitingOnCondition',
					'completed', 'failed', 'cancelled')),
				sub_status VARCHAR(50),
				entered_node_at TIMESTAMP WITH TIME ZONE NOT NULL,
				timer_fire_at TIMESTAMP WITH TIME ZONE,
				timer_kind VARCHAR(20),
				attempts INT NOT NULL DEFAULT 0,
				last_error TEXT,
				history JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- At most one non-terminal instance per (workflow, lead).
			CREATE UNIQUE INDEX idx_instances_single_active
				ON workflow_instances(workflow_id, lead_id)
				WHERE status IN ('running', 'waitingOnDelay', 'waitingOnCondition');

			CREATE INDEX idx_instances_lead ON workflow_instances(tenant_id, lead_id);
			CREATE INDEX idx_instances_workflow ON workflow_instances(workflow_id);
			CREATE INDEX idx_instances_timer
				ON workflow_instances(timer_kind, timer_fire_at)
				WHERE timer_fire_at IS NOT NULL;

			CREATE TABLE lead_activities (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				lead_id VARCHAR(255) NOT NULL,
				activity_type VARCHAR(100) NOT NULL,
				description TEXT NOT NULL,
				occurred_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_lead_activities_lead ON lead_activities(tenant_id, lead_id, occurred_at);
		`,
	}
}
