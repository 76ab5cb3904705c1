package nodeconfig

import (
	"testing"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_UnknownNodeType(t *testing.T) {
	err := Validate(models.ActionType("teleport"), map[string]any{})
	assert.Error(t, err)
	assert.False(t, IsValidationError(err))
}

func TestValidate_UnknownFieldRejected(t *testing.T) {
	err := Validate(models.ActionDelay, map[string]any{
		"value":   2,
		"unit":    "hours",
		"retries": 3,
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestValidate_Delay(t *testing.T) {
	err := Validate(models.ActionDelay, map[string]any{"value": 1, "unit": "minutes"})
	assert.NoError(t, err)

	err = Validate(models.ActionDelay, map[string]any{"value": 0, "unit": "minutes"})
	assert.True(t, IsValidationError(err))

	err = Validate(models.ActionDelay, map[string]any{"value": 5, "unit": "weeks"})
	assert.True(t, IsValidationError(err))

	err = Validate(models.ActionDelay, map[string]any{"unit": "hours"})
	assert.True(t, IsValidationError(err), "value is required")
}

func TestValidate_ScheduledTrigger(t *testing.T) {
	tests := []struct {
		name     string
		schedule map[string]any
		valid    bool
	}{
		{"hourly", map[string]any{"type": "hourly"}, true},
		{"daily with hour", map[string]any{"type": "daily", "hour": 9}, true},
		{"daily missing hour", map[string]any{"type": "daily"}, false},
		{"daily hour out of range", map[string]any{"type": "daily", "hour": 24}, false},
		{"weekly complete", map[string]any{"type": "weekly", "day": 1, "hour": 8}, true},
		{"weekly missing day", map[string]any{"type": "weekly", "hour": 8}, false},
		{"interval ok", map[string]any{"type": "interval", "minutes": 30}, true},
		{"interval too small", map[string]any{"type": "interval", "minutes": 2}, false},
		{"interval missing minutes", map[string]any{"type": "interval"}, false},
		{"bad type", map[string]any{"type": "fortnightly"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(models.ActionTriggerScheduled, map[string]any{"schedule": tc.schedule})
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsValidationError(err), "expected validation error, got %v", err)
			}
		})
	}
}

func TestValidate_Condition_ValueRequirement(t *testing.T) {
	base := map[string]any{"field": "status", "operator": "equals", "value": "new"}
	assert.NoError(t, Validate(models.ActionCondition, base))

	missingValue := map[string]any{"field": "status", "operator": "equals"}
	err := Validate(models.ActionCondition, missingValue)
	require.True(t, IsValidationError(err))

	fields := FieldErrors(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "value", fields[0].Field)

	emptiness := map[string]any{"field": "phone", "operator": "is_empty"}
	assert.NoError(t, Validate(models.ActionCondition, emptiness))
}

func TestValidate_Condition_FieldEnum(t *testing.T) {
	err := Validate(models.ActionCondition, map[string]any{
		"field":    "favorite_color",
		"operator": "equals",
		"value":    "blue",
	})
	assert.True(t, IsValidationError(err))
}

func TestValidate_Webhook(t *testing.T) {
	valid := map[string]any{
		"url":     "https://hooks.example.com/deploy",
		"method":  "POST",
		"headers": map[string]any{"X-Token": "abc"},
	}
	assert.NoError(t, Validate(models.ActionWebhook, valid))

	relative := map[string]any{"url": "/deploy", "method": "POST"}
	err := Validate(models.ActionWebhook, relative)
	require.True(t, IsValidationError(err))
	assert.Equal(t, "url", FieldErrors(err)[0].Field)

	badMethod := map[string]any{"url": "https://x.example.com", "method": "DELETE"}
	assert.True(t, IsValidationError(Validate(models.ActionWebhook, badMethod)))

	badHeader := map[string]any{
		"url":     "https://x.example.com",
		"headers": map[string]any{"Retries": 3},
	}
	assert.True(t, IsValidationError(Validate(models.ActionWebhook, badHeader)))
}

func TestValidate_UpdateLead_Allowlist(t *testing.T) {
	assert.NoError(t, Validate(models.ActionUpdateLead, map[string]any{"status": "qualified"}))
	assert.NoError(t, Validate(models.ActionUpdateLead, map[string]any{"priority": "high"}))

	// Absence means "don't change" and is itself valid.
	assert.NoError(t, Validate(models.ActionUpdateLead, map[string]any{}))

	// Fields outside the allowlist are rejected, not dropped.
	err := Validate(models.ActionUpdateLead, map[string]any{"email": "x@example.com"})
	assert.True(t, IsValidationError(err))

	err = Validate(models.ActionUpdateLead, map[string]any{"status": "abandoned"})
	assert.True(t, IsValidationError(err))
}

func TestValidate_UpdateClient_Allowlist(t *testing.T) {
	assert.NoError(t, Validate(models.ActionUpdateClient, map[string]any{"status": "archived"}))

	err := Validate(models.ActionUpdateClient, map[string]any{"priority": "high"})
	assert.True(t, IsValidationError(err), "clients have no priority field")
}

func TestValidate_CreateTask(t *testing.T) {
	assert.NoError(t, Validate(models.ActionCreateTask, map[string]any{
		"title":    "Follow up",
		"priority": "high",
		"dueDays":  0,
	}))

	err := Validate(models.ActionCreateTask, map[string]any{"priority": "high"})
	assert.True(t, IsValidationError(err), "title is required")

	err = Validate(models.ActionCreateTask, map[string]any{"title": "x", "dueDays": -1})
	assert.True(t, IsValidationError(err))
}

func TestValidate_AssignUser(t *testing.T) {
	assert.NoError(t, Validate(models.ActionAssignUser, map[string]any{"userId": 7}))
	assert.True(t, IsValidationError(Validate(models.ActionAssignUser, map[string]any{"userId": 0})))
	assert.True(t, IsValidationError(Validate(models.ActionAssignUser, map[string]any{})))
}

func TestValidate_SendNotification(t *testing.T) {
	assert.NoError(t, Validate(models.ActionSendNotification, map[string]any{
		"title":   "Deal won",
		"message": "{{name}} accepted the proposal",
		"type":    "success",
	}))

	err := Validate(models.ActionSendNotification, map[string]any{
		"title":   "Deal won",
		"message": "ok",
		"type":    "celebration",
	})
	assert.True(t, IsValidationError(err))
}

func TestValidate_SendEmail(t *testing.T) {
	assert.NoError(t, Validate(models.ActionSendEmail, map[string]any{
		"subject": "Welcome {{name}}",
		"body":    "Hi {{name}}, thanks for reaching out.",
	}))

	assert.NoError(t, Validate(models.ActionSendEmail, map[string]any{"templateId": 7}))
}

func TestValidate_EventTrigger_RejectsConfig(t *testing.T) {
	assert.NoError(t, Validate(models.ActionTriggerLeadCreated, map[string]any{}))

	err := Validate(models.ActionTriggerLeadCreated, map[string]any{"schedule": map[string]any{}})
	assert.True(t, IsValidationError(err), "event triggers carry no configuration")
}
