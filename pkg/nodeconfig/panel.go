package nodeconfig

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atelierhq/flowbuilder/pkg/graph"
	"github.com/atelierhq/flowbuilder/pkg/models"
)

// EmailTemplate is a stored email template referenced by send_email
// nodes. When a template is applied, subject and body become derived
// values rather than independently authored ones.
type EmailTemplate struct {
	ID      int
	Subject string
	Body    string
}

// TemplateSource resolves email template ids. The backend owns the
// templates; the panel only reads them.
type TemplateSource interface {
	EmailTemplate(id int) (*EmailTemplate, error)
}

// Panel edits the selected node's configuration as a draft and commits
// it through the graph store once it validates. It renders exactly the
// fields of the node's action type; everything else is rejected.
type Panel struct {
	store     *graph.Store
	templates TemplateSource

	nodeID     string
	actionType models.ActionType
	draft      map[string]any

	// appliedTemplateID tracks which email template last populated
	// subject/body, so re-applying the same template never clobbers
	// manual edits made since.
	appliedTemplateID int
}

// NewPanel creates a configuration panel over a graph store.
func NewPanel(store *graph.Store, templates TemplateSource) *Panel {
	return &Panel{store: store, templates: templates}
}

// Open loads a node's configuration into the draft. Editing a different
// node discards any uncommitted draft.
func (p *Panel) Open(nodeID string) error {
	node := p.store.Node(nodeID)
	if node == nil {
		return fmt.Errorf("open config panel: node %s not found", nodeID)
	}

	p.nodeID = nodeID
	p.actionType = node.ActionType
	p.draft = copyConfig(node.Config)
	p.appliedTemplateID = templateIDFrom(p.draft)

	return nil
}

// Close discards the draft and detaches from the node.
func (p *Panel) Close() {
	p.nodeID = ""
	p.actionType = ""
	p.draft = nil
	p.appliedTemplateID = 0
}

// SetField writes a draft value at a dotted path ("schedule.hour").
// Intermediate objects are created as needed; sibling values are kept.
func (p *Panel) SetField(path string, value any) error {
	if p.draft == nil {
		return ErrNoSelection
	}

	parts := strings.Split(path, ".")
	target := p.draft

	for _, part := range parts[:len(parts)-1] {
		nested, ok := target[part].(map[string]any)
		if !ok {
			nested = map[string]any{}
			target[part] = nested
		}

		target = nested
	}

	target[parts[len(parts)-1]] = value

	return nil
}

// Field reads a draft value at a dotted path, or nil.
func (p *Panel) Field(path string) any {
	parts := strings.Split(path, ".")
	var current any = p.draft

	for _, part := range parts {
		asMap, ok := current.(map[string]any)
		if !ok {
			return nil
		}

		current = asMap[part]
	}

	return current
}

// ApplyTemplate populates subject and body from an email template.
// Population happens once per template change: applying the template
// that is already applied leaves manual edits intact.
func (p *Panel) ApplyTemplate(templateID int) error {
	if p.draft == nil {
		return ErrNoSelection
	}

	if p.templates == nil {
		return ErrTemplateNotFound
	}

	if templateID == p.appliedTemplateID {
		return nil
	}

	tpl, err := p.templates.EmailTemplate(templateID)
	if err != nil {
		return fmt.Errorf("%w: id %d", ErrTemplateNotFound, templateID)
	}

	p.draft["templateId"] = templateID
	p.draft["subject"] = tpl.Subject
	p.draft["body"] = tpl.Body
	p.appliedTemplateID = templateID

	return nil
}

// SetHeadersJSON parses webhook header input. A parse failure is
// recoverable: the error is surfaced and the last valid headers value
// stays in the draft untouched.
func (p *Panel) SetHeadersJSON(raw string) error {
	if p.draft == nil {
		return ErrNoSelection
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return fmt.Errorf("%w: %s", ErrHeadersNotJSON, err)
	}

	headers := make(map[string]any, len(parsed))

	for name, value := range parsed {
		asString, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: value of %q is not a string", ErrHeadersNotJSON, name)
		}

		headers[name] = asString
	}

	p.draft["headers"] = headers

	return nil
}

// Commit validates the draft and writes it through to the graph store.
// A validation failure blocks the write and keeps the draft editable.
func (p *Panel) Commit() error {
	if p.draft == nil {
		return ErrNoSelection
	}

	if err := Validate(p.actionType, p.draft); err != nil {
		return err
	}

	p.store.SetNodeConfig(p.nodeID, p.draft)

	return nil
}

func copyConfig(config map[string]any) map[string]any {
	copied := make(map[string]any, len(config))

	for key, value := range config {
		if nested, ok := value.(map[string]any); ok {
			copied[key] = copyConfig(nested)

			continue
		}

		copied[key] = value
	}

	return copied
}

func templateIDFrom(config map[string]any) int {
	switch id := config["templateId"].(type) {
	case int:
		return id
	case float64:
		return int(id)
	default:
		return 0
	}
}
