package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/atelierhq/flowbuilder/pkg/models"
	"github.com/atelierhq/flowbuilder/pkg/template"
)

// EffectKind names a side effect an action produced.
type EffectKind string

const (
	EffectEmailSent        EffectKind = "email_sent"
	EffectLeadUpdated      EffectKind = "lead_updated"
	EffectClientUpdated    EffectKind = "client_updated"
	EffectTaskCreated      EffectKind = "task_created"
	EffectUserAssigned     EffectKind = "user_assigned"
	EffectNoteAdded        EffectKind = "note_added"
	EffectNotificationSent EffectKind = "notification_sent"
	EffectWebhookCalled    EffectKind = "webhook_called"
	EffectDelayed          EffectKind = "delayed"
)

// Effect is one recorded side effect.
type Effect struct {
	Kind    EffectKind     `json:"kind"`
	NodeID  string         `json:"node_id"`
	Details map[string]any `json:"details,omitempty"`
}

// Fields an update action is allowed to touch. Anything outside the
// list is rejected at config validation time, so the runner only has to
// apply what it sees.
var (
	leadUpdateFields   = map[string]bool{"status": true, "priority": true}
	clientUpdateFields = map[string]bool{"status": true}
)

func (t *traversal) runAction(ctx context.Context, node *models.Node) error {
	switch node.ActionType {
	case models.ActionSendEmail:
		return t.sendEmail(node)
	case models.ActionUpdateLead:
		return t.updateEntity(node, EffectLeadUpdated, leadUpdateFields)
	case models.ActionUpdateClient:
		return t.updateEntity(node, EffectClientUpdated, clientUpdateFields)
	case models.ActionCreateTask:
		return t.createTask(node)
	case models.ActionAssignUser:
		return t.assignUser(node)
	case models.ActionAddNote:
		return t.addNote(node)
	case models.ActionSendNotification:
		return t.sendNotification(node)
	case models.ActionWebhook:
		return t.callWebhook(ctx, node)
	default:
		return fmt.Errorf("unsupported action type %q", node.ActionType)
	}
}

func (t *traversal) sendEmail(node *models.Node) error {
	subject := configString(node.Config, "subject")
	body := configString(node.Config, "body")

	if id := configInt(node.Config, "templateId"); id > 0 {
		if t.executor.templates == nil {
			return fmt.Errorf("template %d referenced but no template source configured", id)
		}

		tpl, err := t.executor.templates.EmailTemplate(id)
		if err != nil {
			return fmt.Errorf("resolving template %d: %w", id, err)
		}

		if subject == "" {
			subject = tpl.Subject
		}

		if body == "" {
			body = tpl.Body
		}
	}

	to := configString(node.Config, "toEmail")
	if to == "" {
		to = stringAttr(t.entity, "email")
	}

	if to == "" {
		return fmt.Errorf("no recipient: node has no toEmail and entity has no email attribute")
	}

	t.effects = append(t.effects, Effect{
		Kind:   EffectEmailSent,
		NodeID: node.ID,
		Details: map[string]any{
			"to":      to,
			"subject": template.Render(subject, t.entity),
			"body":    template.Render(body, t.entity),
		},
	})

	return nil
}

// updateEntity applies the configured fields onto the entity. Fields
// absent from the config stay untouched.
func (t *traversal) updateEntity(node *models.Node, kind EffectKind, allowed map[string]bool) error {
	changed := map[string]any{}

	for field := range allowed {
		value, ok := node.Config[field]
		if !ok {
			continue
		}

		t.entity[field] = value
		changed[field] = value
	}

	if len(changed) == 0 {
		return fmt.Errorf("no updatable fields configured")
	}

	t.effects = append(t.effects, Effect{Kind: kind, NodeID: node.ID, Details: changed})

	return nil
}

func (t *traversal) createTask(node *models.Node) error {
	title := configString(node.Config, "title")
	if title == "" {
		return fmt.Errorf("task title is required")
	}

	dueDays := configInt(node.Config, "dueDays")
	if _, ok := node.Config["dueDays"]; !ok {
		dueDays = 1
	}

	priority := configString(node.Config, "priority")
	if priority == "" {
		priority = "medium"
	}

	t.effects = append(t.effects, Effect{
		Kind:   EffectTaskCreated,
		NodeID: node.ID,
		Details: map[string]any{
			"title":    template.Render(title, t.entity),
			"priority": priority,
			"due_date": time.Now().UTC().AddDate(0, 0, dueDays).Format("2006-01-02"),
		},
	})

	return nil
}

func (t *traversal) assignUser(node *models.Node) error {
	userID := configInt(node.Config, "userId")
	if userID < 1 {
		return fmt.Errorf("userId is required")
	}

	t.entity["assigned_user_id"] = userID
	t.effects = append(t.effects, Effect{
		Kind:    EffectUserAssigned,
		NodeID:  node.ID,
		Details: map[string]any{"user_id": userID},
	})

	return nil
}

func (t *traversal) addNote(node *models.Node) error {
	content := configString(node.Config, "content")
	if content == "" {
		return fmt.Errorf("note content is required")
	}

	t.effects = append(t.effects, Effect{
		Kind:    EffectNoteAdded,
		NodeID:  node.ID,
		Details: map[string]any{"content": template.Render(content, t.entity)},
	})

	return nil
}

func (t *traversal) sendNotification(node *models.Node) error {
	message := configString(node.Config, "message")
	if message == "" {
		return fmt.Errorf("notification message is required")
	}

	t.effects = append(t.effects, Effect{
		Kind:    EffectNotificationSent,
		NodeID:  node.ID,
		Details: map[string]any{"message": template.Render(message, t.entity)},
	})

	return nil
}

func (t *traversal) callWebhook(ctx context.Context, node *models.Node) error {
	url := configString(node.Config, "url")
	if url == "" {
		return fmt.Errorf("webhook url is required")
	}

	method := configString(node.Config, "method")
	if method == "" {
		method = http.MethodPost
	}

	var body *bytes.Reader

	if method == http.MethodPost || method == http.MethodPut {
		payload, err := json.Marshal(t.entity)
		if err != nil {
			return fmt.Errorf("encoding webhook payload: %w", err)
		}

		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if headers, ok := node.Config["headers"].(map[string]any); ok {
		for key, value := range headers {
			if str, ok := value.(string); ok {
				req.Header.Set(key, str)
			}
		}
	}

	resp, err := t.executor.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling webhook: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	t.effects = append(t.effects, Effect{
		Kind:   EffectWebhookCalled,
		NodeID: node.ID,
		Details: map[string]any{
			"url":    url,
			"method": method,
			"status": resp.StatusCode,
		},
	})

	return nil
}

func stringAttr(entity models.Entity, key string) string {
	value, _ := entity[key].(string)

	return value
}
