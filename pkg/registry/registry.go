// Package registry provides the static node-type table for the workflow
// builder: display metadata, category, handle layout, and the
// configuration schema for every action type.
package registry

import (
	"fmt"

	"github.com/atelierhq/flowbuilder/pkg/models"
)

// ErrUnknownNodeType indicates a lookup for an unregistered action
// type. The editor constructs nodes only from registered types, so
// hitting this is a data-integrity error, not user error.
var ErrUnknownNodeType = fmt.Errorf("unknown node type")

// Definition holds everything the editor needs to render and validate a
// node of a given action type.
type Definition struct {
	Type         models.ActionType
	DisplayLabel string
	ColorClass   string
	Kind         models.NodeKind
	Schema       *models.JSONSchema
}

// OutputHandles returns the named output handles the node kind exposes,
// in rendering order. Condition nodes branch, everything else has one
// default output.
func (d Definition) OutputHandles() []string {
	if d.Kind == models.NodeKindCondition {
		return []string{models.HandleTrue, models.HandleFalse}
	}

	return []string{models.HandleDefault}
}

// InputCount returns how many inbound handles the node kind accepts.
// Triggers are entry points and accept none.
func (d Definition) InputCount() int {
	if d.Kind == models.NodeKindTrigger {
		return 0
	}

	return 1
}

var definitions = buildDefinitions()

func buildDefinitions() map[models.ActionType]Definition {
	defs := make(map[models.ActionType]Definition)

	register := func(d Definition) {
		defs[d.Type] = d
	}

	for _, triggerType := range models.TriggerTypes {
		register(Definition{
			Type:         models.TriggerActionType(triggerType),
			DisplayLabel: triggerLabels[triggerType],
			ColorClass:   "node-trigger",
			Kind:         models.NodeKindTrigger,
			Schema:       triggerSchema(triggerType),
		})
	}

	register(Definition{
		Type:         models.ActionSendEmail,
		DisplayLabel: "Send Email",
		ColorClass:   "node-action",
		Kind:         models.NodeKindAction,
		Schema:       sendEmailSchema(),
	})
	register(Definition{
		Type:         models.ActionUpdateLead,
		DisplayLabel: "Update Lead",
		ColorClass:   "node-action",
		Kind:         models.NodeKindAction,
		Schema:       updateLeadSchema(),
	})
	register(Definition{
		Type:         models.ActionUpdateClient,
		DisplayLabel: "Update Client",
		ColorClass:   "node-action",
		Kind:         models.NodeKindAction,
		Schema:       updateClientSchema(),
	})
	register(Definition{
		Type:         models.ActionCreateTask,
		DisplayLabel: "Create Task",
		ColorClass:   "node-action",
		Kind:         models.NodeKindAction,
		Schema:       createTaskSchema(),
	})
	register(Definition{
		Type:         models.ActionAssignUser,
		DisplayLabel: "Assign Team Member",
		ColorClass:   "node-action",
		Kind:         models.NodeKindAction,
		Schema:       assignUserSchema(),
	})
	register(Definition{
		Type:         models.ActionAddNote,
		DisplayLabel: "Add Note",
		ColorClass:   "node-action",
		Kind:         models.NodeKindAction,
		Schema:       addNoteSchema(),
	})
	register(Definition{
		Type:         models.ActionSendNotification,
		DisplayLabel: "Send Notification",
		ColorClass:   "node-action",
		Kind:         models.NodeKindAction,
		Schema:       sendNotificationSchema(),
	})
	register(Definition{
		Type:         models.ActionWebhook,
		DisplayLabel: "Webhook",
		ColorClass:   "node-action",
		Kind:         models.NodeKindAction,
		Schema:       webhookSchema(),
	})
	register(Definition{
		Type:         models.ActionDelay,
		DisplayLabel: "Delay",
		ColorClass:   "node-delay",
		Kind:         models.NodeKindDelay,
		Schema:       delaySchema(),
	})
	register(Definition{
		Type:         models.ActionCondition,
		DisplayLabel: "Condition",
		ColorClass:   "node-condition",
		Kind:         models.NodeKindCondition,
		Schema:       conditionSchema(),
	})

	return defs
}

var triggerLabels = map[models.TriggerType]string{
	models.TriggerLeadCreated:       "Lead Created",
	models.TriggerLeadStatusChanged: "Lead Status Changed",
	models.TriggerClientCreated:     "Client Created",
	models.TriggerFormSubmitted:     "Form Submitted",
	models.TriggerScheduled:         "Schedule",
}

// Get returns the definition for an action type, or ErrUnknownNodeType.
func Get(actionType models.ActionType) (Definition, error) {
	def, ok := definitions[actionType]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownNodeType, actionType)
	}

	return def, nil
}

// All returns every registered definition. Order is not guaranteed.
func All() []Definition {
	defs := make([]Definition, 0, len(definitions))
	for _, def := range definitions {
		defs = append(defs, def)
	}

	return defs
}
