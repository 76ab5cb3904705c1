package models

// NodeKind categorizes a node. The kind, not the label, governs the
// node's handle layout: triggers accept no inbound connections,
// conditions expose "true"/"false" outputs, everything else exposes a
// single "default" output.
type NodeKind string

const (
	NodeKindTrigger   NodeKind = "trigger"
	NodeKindAction    NodeKind = "action"
	NodeKindCondition NodeKind = "condition"
	NodeKindDelay     NodeKind = "delay"
)

// ActionType is the closed enumeration of node behaviors. Trigger
// variants are prefixed so a workflow's trigger type maps directly onto
// its trigger node's action type.
type ActionType string

const (
	ActionTriggerLeadCreated       ActionType = "trigger:lead_created"
	ActionTriggerLeadStatusChanged ActionType = "trigger:lead_status_changed"
	ActionTriggerClientCreated     ActionType = "trigger:client_created"
	ActionTriggerFormSubmitted     ActionType = "trigger:form_submitted"
	ActionTriggerScheduled         ActionType = "trigger:scheduled"

	ActionSendEmail        ActionType = "send_email"
	ActionUpdateLead       ActionType = "update_lead"
	ActionUpdateClient     ActionType = "update_client"
	ActionCreateTask       ActionType = "create_task"
	ActionAssignUser       ActionType = "assign_user"
	ActionAddNote          ActionType = "add_note"
	ActionSendNotification ActionType = "send_notification"
	ActionWebhook          ActionType = "webhook"
	ActionDelay            ActionType = "delay"
	ActionCondition        ActionType = "condition"
)

// TriggerActionType returns the action type of the trigger node for a
// given workflow trigger type.
func TriggerActionType(t TriggerType) ActionType {
	return ActionType("trigger:" + string(t))
}

// Node is a single step in a workflow graph. Its ID is client-generated
// until the first save assigns a stable server identifier; the editor
// never rewrites ids in place (the persistence adapter keeps a remap
// table instead).
type Node struct {
	ID         string         `json:"id"          validate:"required"`
	Kind       NodeKind       `json:"kind"        validate:"required"`
	ActionType ActionType     `json:"action_type" validate:"required"`
	Label      string         `json:"label"`
	PositionX  float64        `json:"position_x"`
	PositionY  float64        `json:"position_y"`
	Config     map[string]any `json:"config"`
}

func (n *Node) IsTrigger() bool {
	return n.Kind == NodeKindTrigger
}

func (n *Node) IsCondition() bool {
	return n.Kind == NodeKindCondition
}

// Output handle names. Condition nodes branch on true/false; every
// other node emits on the default handle.
const (
	HandleDefault = "default"
	HandleTrue    = "true"
	HandleFalse   = "false"
)

// Connection is a directed edge from a source node's output handle to a
// target node's input. The (source, target, handle) triple is unique
// within a graph and both endpoints always reference live nodes.
type Connection struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	SourceHandle string `json:"source_handle"`
}
