package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func lead(fields map[string]any) LeadSnapshot {
	return LeadSnapshot{TenantID: "t-1", LeadID: "lead-1", Fields: fields}
}

func TestEvaluate_Equals(t *testing.T) {
	snapshot := lead(map[string]any{"status": "replied", "budget": 50000.0})

	assert.True(t, Evaluate(ConditionConfig{Field: "status", Operator: OperatorEquals, Value: "replied"}, snapshot))
	assert.False(t, Evaluate(ConditionConfig{Field: "status", Operator: OperatorEquals, Value: "new"}, snapshot))

	// Numeric equality works across string/float representations.
	assert.True(t, Evaluate(ConditionConfig{Field: "budget", Operator: OperatorEquals, Value: "50000"}, snapshot))
}

func TestEvaluate_NotEquals(t *testing.T) {
	snapshot := lead(map[string]any{"status": "replied"})

	assert.True(t, Evaluate(ConditionConfig{Field: "status", Operator: OperatorNotEquals, Value: "new"}, snapshot))
	assert.False(t, Evaluate(ConditionConfig{Field: "status", Operator: OperatorNotEquals, Value: "replied"}, snapshot))

	// An absent field is not equal to anything.
	assert.True(t, Evaluate(ConditionConfig{Field: "missing", Operator: OperatorNotEquals, Value: "x"}, snapshot))
}

func TestEvaluate_Contains(t *testing.T) {
	snapshot := lead(map[string]any{"location": "Bengaluru North"})

	assert.True(t, Evaluate(ConditionConfig{Field: "location", Operator: OperatorContains, Value: "North"}, snapshot))
	assert.False(t, Evaluate(ConditionConfig{Field: "location", Operator: OperatorContains, Value: "South"}, snapshot))
	assert.False(t, Evaluate(ConditionConfig{Field: "missing", Operator: OperatorContains, Value: "x"}, snapshot))
}

func TestEvaluate_NumericComparisons(t *testing.T) {
	snapshot := lead(map[string]any{"budget": 75000.0, "source": "website"})

	assert.True(t, Evaluate(ConditionConfig{Field: "budget", Operator: OperatorGreaterThan, Value: 50000}, snapshot))
	assert.False(t, Evaluate(ConditionConfig{Field: "budget", Operator: OperatorLessThan, Value: 50000}, snapshot))

	// String numbers coerce.
	assert.True(t, Evaluate(ConditionConfig{Field: "budget", Operator: OperatorLessThan, Value: "100000"}, snapshot))

	// Non-numeric comparisons are false, never an error.
	assert.False(t, Evaluate(ConditionConfig{Field: "source", Operator: OperatorGreaterThan, Value: 10}, snapshot))
	assert.False(t, Evaluate(ConditionConfig{Field: "missing", Operator: OperatorGreaterThan, Value: 10}, snapshot))
}

func TestEvaluate_Emptiness(t *testing.T) {
	snapshot := lead(map[string]any{
		"status":   "new",
		"notes":    "",
		"tags":     []any{},
		"metadata": nil,
	})

	for _, field := range []string{"notes", "tags", "metadata", "unknown"} {
		assert.True(t, Evaluate(ConditionConfig{Field: field, Operator: OperatorIsEmpty}, snapshot), field)
		assert.False(t, Evaluate(ConditionConfig{Field: field, Operator: OperatorIsNotEmpty}, snapshot), field)
	}

	assert.False(t, Evaluate(ConditionConfig{Field: "status", Operator: OperatorIsEmpty}, snapshot))
	assert.True(t, Evaluate(ConditionConfig{Field: "status", Operator: OperatorIsNotEmpty}, snapshot))
}

func TestEvaluate_UnknownOperator(t *testing.T) {
	snapshot := lead(map[string]any{"status": "new"})

	assert.False(t, Evaluate(ConditionConfig{Field: "status", Operator: "matches"}, snapshot))
}

func TestDelaySpec_ToDuration(t *testing.T) {
	assert.Equal(t, "30s", DelaySpec{Duration: 30, Unit: UnitSeconds}.ToDuration().String())
	assert.Equal(t, "15m0s", DelaySpec{Duration: 15, Unit: UnitMinutes}.ToDuration().String())
	assert.Equal(t, "2h0m0s", DelaySpec{Duration: 2, Unit: UnitHours}.ToDuration().String())
	assert.Equal(t, "24h0m0s", DelaySpec{Duration: 1, Unit: UnitDays}.ToDuration().String())
	assert.Zero(t, DelaySpec{Duration: 5, Unit: "weeks"}.ToDuration())
}
