package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
)

func TestWorkflowDefinitionNodeByID(t *testing.T) {
	t.Parallel()

	def := &models.WorkflowDefinition{
		Nodes: []*models.Node{
			{ID: "t", Kind: models.NodeKindTrigger},
			{ID: "a", Kind: models.NodeKindAction, Name: "welcome"},
		},
	}

	node := def.NodeByID("a")
	require.NotNil(t, node)
	assert.Equal(t, "welcome", node.Name)

	assert.Nil(t, def.NodeByID("missing"))
}

func TestWorkflowDefinitionTriggerNodes(t *testing.T) {
	t.Parallel()

	def := &models.WorkflowDefinition{
		Nodes: []*models.Node{
			{ID: "t1", Kind: models.NodeKindTrigger},
			{ID: "a", Kind: models.NodeKindAction},
			{ID: "t2", Kind: models.NodeKindTrigger},
		},
	}

	triggers := def.TriggerNodes()
	require.Len(t, triggers, 2)
	assert.Equal(t, "t1", triggers[0].ID)
	assert.Equal(t, "t2", triggers[1].ID)
}
