package registry

import "github.com/atelierhq/flowbuilder/pkg/models"

// Configuration schemas, one per action type. Every schema is closed:
// unknown fields are a validation error, never silently dropped.

func triggerSchema(t models.TriggerType) *models.JSONSchema {
	if t == models.TriggerScheduled {
		return &models.JSONSchema{
			Type:  "object",
			Title: "Schedule Trigger",
			Properties: map[string]*models.Property{
				"schedule": {
					Type: "object",
					Properties: map[string]*models.Property{
						"type": {
							Type: "string",
							Enum: []any{"hourly", "daily", "weekly", "monthly", "interval"},
						},
						"hour":    {Type: "integer", Minimum: models.Num(0), Maximum: models.Num(23)},
						"day":     {Type: "integer", Minimum: models.Num(0), Maximum: models.Num(6)},
						"minutes": {Type: "integer", Minimum: models.Num(models.MinIntervalMinutes)},
					},
					Required:             []string{"type"},
					AdditionalProperties: models.Closed(),
				},
			},
			Required: []string{"schedule"},
		}
	}

	// Event triggers carry no configuration of their own.
	return &models.JSONSchema{
		Type:  "object",
		Title: "Trigger",
	}
}

func sendEmailSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Send Email",
		Properties: map[string]*models.Property{
			"templateId": {Type: "integer", Description: "Email template to populate subject/body from"},
			"subject":    {Type: "string"},
			"body":       {Type: "string", Description: "Supports {{variable}} placeholders"},
			"toEmail":    {Type: "string", Description: "Override recipient; empty uses the triggering entity's email"},
		},
	}
}

func updateLeadSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Update Lead",
		Properties: map[string]*models.Property{
			"status": {
				Type: "string",
				Enum: []any{"new", "contacted", "qualified", "proposal", "won", "lost"},
			},
			"priority": {
				Type: "string",
				Enum: []any{"low", "medium", "high"},
			},
		},
	}
}

func updateClientSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Update Client",
		Properties: map[string]*models.Property{
			"status": {
				Type: "string",
				Enum: []any{"active", "inactive", "archived"},
			},
		},
	}
}

func createTaskSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Create Task",
		Properties: map[string]*models.Property{
			"title":       {Type: "string"},
			"description": {Type: "string"},
			"priority": {
				Type:    "string",
				Enum:    []any{"low", "medium", "high"},
				Default: "medium",
			},
			"dueDays": {Type: "integer", Minimum: models.Num(0), Default: 1},
		},
		Required: []string{"title"},
	}
}

func assignUserSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Assign Team Member",
		Properties: map[string]*models.Property{
			"userId": {Type: "integer", Minimum: models.Num(1)},
		},
		Required: []string{"userId"},
	}
}

func addNoteSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Add Note",
		Properties: map[string]*models.Property{
			"content": {Type: "string", Description: "Supports {{variable}} placeholders"},
		},
		Required: []string{"content"},
	}
}

func sendNotificationSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Send Notification",
		Properties: map[string]*models.Property{
			"title":   {Type: "string"},
			"message": {Type: "string"},
			"type": {
				Type:    "string",
				Enum:    []any{"info", "success", "warning", "error"},
				Default: "info",
			},
			"userId": {Type: "integer", Minimum: models.Num(1)},
		},
		Required: []string{"title", "message"},
	}
}

func webhookSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Webhook",
		Properties: map[string]*models.Property{
			"url": {Type: "string"},
			"method": {
				Type:    "string",
				Enum:    []any{"GET", "POST", "PUT", "PATCH"},
				Default: "POST",
			},
			"headers": {
				Type:                 "object",
				AdditionalProperties: stringValuedHeaders(),
			},
		},
		Required: []string{"url"},
	}
}

// stringValuedHeaders would ideally constrain header values to strings
// via an additionalProperties schema; gojsonschema accepts a boolean
// here, so value types are enforced in nodeconfig instead.
func stringValuedHeaders() *bool {
	open := true

	return &open
}

func delaySchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Delay",
		Properties: map[string]*models.Property{
			"value": {Type: "integer", Minimum: models.Num(1)},
			"unit": {
				Type: "string",
				Enum: []any{"minutes", "hours", "days"},
			},
		},
		Required: []string{"value", "unit"},
	}
}

func conditionSchema() *models.JSONSchema {
	fields := make([]any, 0, len(models.ConditionFields))
	for _, f := range models.ConditionFields {
		fields = append(fields, f)
	}

	operators := make([]any, 0, len(models.ConditionOperators))
	for _, op := range models.ConditionOperators {
		operators = append(operators, string(op))
	}

	return &models.JSONSchema{
		Type:  "object",
		Title: "Condition",
		Properties: map[string]*models.Property{
			"field":    {Type: "string", Enum: fields},
			"operator": {Type: "string", Enum: operators},
			"value":    {Type: "string"},
		},
		Required: []string{"field", "operator"},
	}
}
