package nodeconfig

import (
	"fmt"
	"testing"

	"github.com/atelierhq/flowbuilder/pkg/graph"
	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTemplates struct {
	templates map[int]*EmailTemplate
}

func (f *fakeTemplates) EmailTemplate(id int) (*EmailTemplate, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return nil, fmt.Errorf("template %d not found", id)
	}

	return tpl, nil
}

func newTestTemplates() *fakeTemplates {
	return &fakeTemplates{templates: map[int]*EmailTemplate{
		7: {ID: 7, Subject: "Welcome aboard", Body: "Hi {{name}}, great to have you."},
		9: {ID: 9, Subject: "Proposal follow-up", Body: "Hello {{name}},"},
	}}
}

func openEmailPanel(t *testing.T) (*graph.Store, *Panel, *models.Node) {
	t.Helper()

	store := graph.NewStore(nil)

	node, err := store.AddNode(models.ActionSendEmail, 0, 0)
	require.NoError(t, err)

	panel := NewPanel(store, newTestTemplates())
	require.NoError(t, panel.Open(node.ID))

	return store, panel, node
}

func TestPanel_ApplyTemplate_PopulatesSubjectAndBody(t *testing.T) {
	_, panel, node := openEmailPanel(t)

	require.NoError(t, panel.ApplyTemplate(7))
	require.NoError(t, panel.Commit())

	assert.Equal(t, 7, node.Config["templateId"])
	assert.Equal(t, "Welcome aboard", node.Config["subject"])
	assert.Equal(t, "Hi {{name}}, great to have you.", node.Config["body"])
}

func TestPanel_ManualEditSurvivesTemplateReapply(t *testing.T) {
	_, panel, node := openEmailPanel(t)

	require.NoError(t, panel.ApplyTemplate(7))
	require.NoError(t, panel.SetField("subject", "Custom subject"))

	// Re-applying the already-applied template must not clobber the edit.
	require.NoError(t, panel.ApplyTemplate(7))
	require.NoError(t, panel.Commit())

	assert.Equal(t, "Custom subject", node.Config["subject"])
}

func TestPanel_SwitchingTemplateRepopulates(t *testing.T) {
	_, panel, node := openEmailPanel(t)

	require.NoError(t, panel.ApplyTemplate(7))
	require.NoError(t, panel.SetField("subject", "Custom subject"))
	require.NoError(t, panel.ApplyTemplate(9))
	require.NoError(t, panel.Commit())

	assert.Equal(t, "Proposal follow-up", node.Config["subject"])
	assert.Equal(t, 9, node.Config["templateId"])
}

func TestPanel_ReopenDoesNotRepopulate(t *testing.T) {
	store, panel, node := openEmailPanel(t)

	require.NoError(t, panel.ApplyTemplate(7))
	require.NoError(t, panel.SetField("subject", "Edited after apply"))
	require.NoError(t, panel.Commit())

	// A fresh panel over the same node sees the stored templateId and
	// treats it as already applied.
	reopened := NewPanel(store, newTestTemplates())
	require.NoError(t, reopened.Open(node.ID))
	require.NoError(t, reopened.ApplyTemplate(7))
	require.NoError(t, reopened.Commit())

	assert.Equal(t, "Edited after apply", node.Config["subject"])
}

func TestPanel_ApplyTemplate_Missing(t *testing.T) {
	_, panel, _ := openEmailPanel(t)

	err := panel.ApplyTemplate(404)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestPanel_HeadersJSONRecovery(t *testing.T) {
	store := graph.NewStore(nil)

	node, err := store.AddNode(models.ActionWebhook, 0, 0)
	require.NoError(t, err)

	panel := NewPanel(store, nil)
	require.NoError(t, panel.Open(node.ID))
	require.NoError(t, panel.SetField("url", "https://hooks.example.com/x"))

	require.NoError(t, panel.SetHeadersJSON(`{"X-Token": "abc"}`))

	// Broken input surfaces a recoverable error and keeps the last
	// valid headers value.
	err = panel.SetHeadersJSON(`{"X-Token": `)
	require.ErrorIs(t, err, ErrHeadersNotJSON)

	err = panel.SetHeadersJSON(`{"Retries": 3}`)
	require.ErrorIs(t, err, ErrHeadersNotJSON)

	require.NoError(t, panel.Commit())

	headers, ok := node.Config["headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"X-Token": "abc"}, headers)
}

func TestPanel_CommitBlockedByValidation(t *testing.T) {
	store := graph.NewStore(nil)

	node, err := store.AddNode(models.ActionDelay, 0, 0)
	require.NoError(t, err)

	panel := NewPanel(store, nil)
	require.NoError(t, panel.Open(node.ID))
	require.NoError(t, panel.SetField("value", 0))
	require.NoError(t, panel.SetField("unit", "minutes"))

	err = panel.Commit()
	require.True(t, IsValidationError(err))
	assert.Empty(t, node.Config, "invalid draft must not reach the store")

	require.NoError(t, panel.SetField("value", 10))
	require.NoError(t, panel.Commit())
	assert.Equal(t, 10, node.Config["value"])
}

func TestPanel_NestedFieldKeepsSiblings(t *testing.T) {
	store := graph.NewStore(nil)

	node, err := store.AddNode(models.ActionTriggerScheduled, 0, 0)
	require.NoError(t, err)

	panel := NewPanel(store, nil)
	require.NoError(t, panel.Open(node.ID))
	require.NoError(t, panel.SetField("schedule.type", "daily"))
	require.NoError(t, panel.SetField("schedule.hour", 9))
	require.NoError(t, panel.Commit())

	schedule, ok := node.Config["schedule"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "daily", schedule["type"])
	assert.Equal(t, 9, schedule["hour"])
}

func TestPanel_OperationsWithoutOpenNode(t *testing.T) {
	panel := NewPanel(graph.NewStore(nil), nil)

	assert.ErrorIs(t, panel.SetField("subject", "x"), ErrNoSelection)
	assert.ErrorIs(t, panel.ApplyTemplate(7), ErrNoSelection)
	assert.ErrorIs(t, panel.Commit(), ErrNoSelection)
}
