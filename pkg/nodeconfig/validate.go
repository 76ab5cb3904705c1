package nodeconfig

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/registry"
	"github.com/xeipuuv/gojsonschema"
)

// Validate checks a full configuration document for an action type.
// Structure and field constraints come from the registry's JSON schema
// (unknown fields rejected). Rules a schema cannot express, like field
// presence conditional on another field's value or URL absoluteness,
// are layered on top.
func Validate(actionType models.ActionType, config map[string]any) error {
	def, err := registry.Get(actionType)
	if err != nil {
		return err
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaBytes, err := json.Marshal(def.Schema)
	if err != nil {
		return fmt.Errorf("marshal schema for %s: %w", actionType, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("validate config for %s: %w", actionType, err)
	}

	var fields []FieldError

	if !result.Valid() {
		for _, schemaErr := range result.Errors() {
			fields = append(fields, FieldError{
				Field:   schemaErr.Field(),
				Message: schemaErr.Description(),
			})
		}
	}

	fields = append(fields, crossFieldErrors(actionType, config)...)

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	return nil
}

func crossFieldErrors(actionType models.ActionType, config map[string]any) []FieldError {
	switch actionType {
	case models.ActionTriggerScheduled:
		return scheduleErrors(config)
	case models.ActionCondition:
		return conditionErrors(config)
	case models.ActionWebhook:
		return webhookErrors(config)
	default:
		return nil
	}
}

func scheduleErrors(config map[string]any) []FieldError {
	schedule, ok := config["schedule"].(map[string]any)
	if !ok {
		return nil // missing schedule object is already a schema error
	}

	scheduleType, _ := schedule["type"].(string)

	var fields []FieldError

	switch models.ScheduleType(scheduleType) {
	case models.ScheduleDaily:
		if _, present := schedule["hour"]; !present {
			fields = append(fields, FieldError{"schedule.hour", "required for daily schedules"})
		}
	case models.ScheduleWeekly:
		if _, present := schedule["hour"]; !present {
			fields = append(fields, FieldError{"schedule.hour", "required for weekly schedules"})
		}

		if _, present := schedule["day"]; !present {
			fields = append(fields, FieldError{"schedule.day", "required for weekly schedules"})
		}
	case models.ScheduleInterval:
		if _, present := schedule["minutes"]; !present {
			fields = append(fields, FieldError{"schedule.minutes", "required for interval schedules"})
		}
	}

	return fields
}

func conditionErrors(config map[string]any) []FieldError {
	operator, _ := config["operator"].(string)
	if operator == "" {
		return nil // schema already requires the operator
	}

	if !models.ConditionOperator(operator).NeedsValue() {
		return nil
	}

	value, present := config["value"]
	if !present || value == "" {
		return []FieldError{{"value", fmt.Sprintf("required for operator %q", operator)}}
	}

	return nil
}

func webhookErrors(config map[string]any) []FieldError {
	var fields []FieldError

	if raw, present := config["url"]; present {
		target, _ := raw.(string)

		parsed, err := url.Parse(target)
		if err != nil || !parsed.IsAbs() || parsed.Host == "" {
			fields = append(fields, FieldError{"url", "must be an absolute URL"})
		}
	}

	if raw, present := config["headers"]; present {
		headers, ok := raw.(map[string]any)
		if !ok {
			fields = append(fields, FieldError{"headers", "must be an object"})
		} else {
			for name, value := range headers {
				if _, isString := value.(string); !isString {
					fields = append(fields, FieldError{
						Field:   "headers." + name,
						Message: "header values must be strings",
					})
				}
			}
		}
	}

	return fields
}
