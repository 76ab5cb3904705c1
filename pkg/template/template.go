// Package template renders {{identifier}} placeholders in workflow text
// fields against the triggering entity's attributes. The backend is the
// authoritative resolver at run time; the editor only renders in
// preview contexts and the runner when simulating executions.
package template

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/atelierhq/flowbuilder/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Render substitutes every {{identifier}} in input with the entity's
// attribute of that name. Unknown identifiers render as an empty
// string, matching the execution engine's behavior.
func Render(input string, entity models.Entity) string {
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]

		value, ok := entity[name]
		if !ok || value == nil {
			return ""
		}

		switch v := value.(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		default:
			return fmt.Sprintf("%v", v)
		}
	})
}

// Placeholders returns the distinct identifiers referenced by input, in
// order of first appearance.
func Placeholders(input string) []string {
	seen := make(map[string]bool)

	var names []string

	for _, match := range placeholderPattern.FindAllStringSubmatch(input, -1) {
		name := match[1]
		if seen[name] {
			continue
		}

		seen[name] = true
		names = append(names, name)
	}

	return names
}
