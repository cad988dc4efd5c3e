// Package models provides condition predicate evaluation over lead snapshots.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ConditionOperator is the comparison applied by a condition node.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "notEquals"
	OperatorContains    ConditionOperator = "contains"
	OperatorGreaterThan ConditionOperator = "greaterThan"
	OperatorLessThan    ConditionOperator = "lessThan"
	OperatorIsEmpty     ConditionOperator = "isEmpty"
	OperatorIsNotEmpty  ConditionOperator = "isNotEmpty"
)

// KnownOperator reports whether op is a supported condition operator.
func KnownOperator(op ConditionOperator) bool {
	switch op {
	case OperatorEquals, OperatorNotEquals, OperatorContains,
		OperatorGreaterThan, OperatorLessThan, OperatorIsEmpty, OperatorIsNotEmpty:
		return true
	default:
		return false
	}
}

// Evaluate applies a condition to a lead snapshot. It is a total function
// over any lead shape: missing or ambiguous fields behave as empty, and
// comparisons that cannot be coerced evaluate false rather than erroring.
func Evaluate(cond ConditionConfig, lead LeadSnapshot) bool {
	value, present := lead.Field(cond.Field)
	empty := !present || isEmptyValue(value)

	switch cond.Operator {
	case OperatorIsEmpty:
		return empty
	case OperatorIsNotEmpty:
		return !empty
	case OperatorEquals:
		return !empty && asString(value) == asString(cond.Value)
	case OperatorNotEquals:
		return empty || asString(value) != asString(cond.Value)
	case OperatorContains:
		return !empty && strings.Contains(asString(value), asString(cond.Value))
	case OperatorGreaterThan:
		left, right, ok := asNumbers(value, cond.Value)

		return ok && left > right
	case OperatorLessThan:
		left, right, ok := asNumbers(value, cond.Value)

		return ok && left < right
	default:
		return false
	}
}

func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asNumbers(left, right any) (float64, float64, bool) {
	l, ok := asFloat(left)
	if !ok {
		return 0, 0, false
	}

	r, ok := asFloat(right)
	if !ok {
		return 0, 0, false
	}

	return l, r, true
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)

		return parsed, err == nil
	default:
		return 0, false
	}
}
