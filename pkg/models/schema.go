package models

// JSONSchema describes the configuration document a node type accepts.
// The registry marshals these for gojsonschema validation; unknown
// fields are rejected by setting AdditionalProperties to false.
type JSONSchema struct {
	Type                 string               `json:"type"`
	Properties           map[string]*Property `json:"properties,omitempty"`
	Required             []string             `json:"required,omitempty"`
	Title                string               `json:"title,omitempty"`
	Description          string               `json:"description,omitempty"`
	AdditionalProperties bool                 `json:"additionalProperties"`
}

// Property represents a single JSON Schema property.
type Property struct {
	Type                 string               `json:"type,omitempty"`
	Description          string               `json:"description,omitempty"`
	Enum                 []any                `json:"enum,omitempty"`
	Default              any                  `json:"default,omitempty"`
	Minimum              *float64             `json:"minimum,omitempty"`
	Maximum              *float64             `json:"maximum,omitempty"`
	Properties           map[string]*Property `json:"properties,omitempty"`
	Required             []string             `json:"required,omitempty"`
	AdditionalProperties *bool                `json:"additionalProperties,omitempty"`
}

// Num is a convenience for schema bounds.
func Num(f float64) *float64 { return &f }

// Closed marks a nested object as rejecting unknown fields.
func Closed() *bool {
	closed := false

	return &closed
}
