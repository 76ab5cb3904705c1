// Package models provides condition evaluation against entity attributes.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Entity is the flat attribute map of the record that triggered a
// workflow (a lead, client, form submission...). Condition nodes
// evaluate against it and placeholder rendering reads from it.
type Entity map[string]any

// ConditionOperator enumerates the comparisons a condition node supports.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorIsEmpty     ConditionOperator = "is_empty"
	OperatorIsNotEmpty  ConditionOperator = "is_not_empty"
)

// ConditionOperators lists every valid operator.
var ConditionOperators = []ConditionOperator{
	OperatorEquals,
	OperatorNotEquals,
	OperatorContains,
	OperatorGreaterThan,
	OperatorLessThan,
	OperatorIsEmpty,
	OperatorIsNotEmpty,
}

// NeedsValue reports whether the operator requires a comparison value.
// The two emptiness checks operate on the field alone.
func (op ConditionOperator) NeedsValue() bool {
	return op != OperatorIsEmpty && op != OperatorIsNotEmpty
}

// ConditionFields lists the entity attributes a condition may inspect.
var ConditionFields = []string{"status", "priority", "email", "name", "phone", "source"}

// EvaluateCondition compares the entity's field against value using the
// given operator. Comparisons are loose in the way the execution engine
// is: numeric strings compare numerically for ordering operators,
// everything else compares on its string form.
func EvaluateCondition(entity Entity, field string, op ConditionOperator, value string) (bool, error) {
	raw, present := entity[field]

	switch op {
	case OperatorIsEmpty:
		return !present || stringify(raw) == "", nil
	case OperatorIsNotEmpty:
		return present && stringify(raw) != "", nil
	case OperatorEquals:
		return stringify(raw) == value, nil
	case OperatorNotEquals:
		return stringify(raw) != value, nil
	case OperatorContains:
		return strings.Contains(stringify(raw), value), nil
	case OperatorGreaterThan, OperatorLessThan:
		left, err := toFloat(raw)
		if err != nil {
			return false, fmt.Errorf("field %q: %w", field, err)
		}

		right, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return false, fmt.Errorf("comparison value %q is not numeric", value)
		}

		if op == OperatorGreaterThan {
			return left > right, nil
		}

		return left < right, nil
	default:
		return false, fmt.Errorf("unsupported operator %q", op)
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to number", t)
		}

		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}
