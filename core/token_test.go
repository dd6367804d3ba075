package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilityTokenAllows(t *testing.T) {
	token := &CapabilityToken{
		Subject:  "alice",
		TenantID: "tenant-a",
		Capabilities: []Capability{
			{Resource: "workflows", Actions: []string{"create", "execute"}},
			{Resource: "data", Actions: []string{"process"}},
		},
	}

	assert.True(t, token.Allows("workflows", "create"))
	assert.True(t, token.Allows("data", "process"))
	assert.False(t, token.Allows("workflows", "delete"))
	assert.False(t, token.Allows("llm", "generate"))

	// Resource match is exact.
	assert.False(t, token.Allows("work", "create"))
}

func TestCapabilityTokenCovers(t *testing.T) {
	token := &CapabilityToken{
		TenantID: "tenant-a",
		Capabilities: []Capability{
			{Resource: "data", Actions: []string{"process"}},
			{Resource: "llm.generate", Actions: []string{"*"}},
		},
	}

	// Grant resource is a prefix of the required capability string.
	assert.True(t, token.Covers("data.process"))
	assert.True(t, token.Covers("data.transform"))
	assert.True(t, token.Covers("llm.generate"))
	assert.False(t, token.Covers("retrieval.search"))
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())

	assert.False(t, StatusIdle.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, StatusWaiting.Terminal())
}

func TestWorkflowTypeValid(t *testing.T) {
	for _, wt := range []WorkflowType{WorkflowSequential, WorkflowParallel, WorkflowConditional, WorkflowPipeline, WorkflowMapReduce} {
		assert.True(t, wt.Valid(), string(wt))
	}
	assert.False(t, WorkflowType("round_robin").Valid())
	assert.False(t, WorkflowType("").Valid())
}
