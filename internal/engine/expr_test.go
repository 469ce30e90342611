package engine

import (
	"errors"
	"testing"
)

func TestEvaluateExpression_NumericOrder(t *testing.T) {
	ectx := NewExecutionContext(map[string]any{
		"amount": float64(150),
		"ratio":  0.5,
		"count":  10,
	})

	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{
			name:       "greater than, true",
			expression: "input.amount > 100",
			expected:   true,
		},
		{
			name:       "greater than, false",
			expression: "input.amount > 200",
			expected:   false,
		},
		{
			name:       "less than",
			expression: "input.amount < 200",
			expected:   true,
		},
		{
			name:       "greater or equal on boundary",
			expression: "input.amount >= 150",
			expected:   true,
		},
		{
			name:       "less or equal on boundary",
			expression: "input.amount <= 150",
			expected:   true,
		},
		{
			name:       "decimal literal",
			expression: "input.ratio >= 0.5",
			expected:   true,
		},
		{
			name:       "bare path defaults to input",
			expression: "amount > 100",
			expected:   true,
		},
		{
			name:       "quoted numeric string is cast for ordering",
			expression: "input.count > '5'",
			expected:   true,
		},
		{
			name:       "int value against float literal",
			expression: "input.count < 10.5",
			expected:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EvaluateExpression(tt.expression, ectx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("%s: expected %v, got %v", tt.expression, tt.expected, result)
			}
		})
	}
}

func TestEvaluateExpression_Equality(t *testing.T) {
	ectx := NewExecutionContext(map[string]any{
		"status":  "active",
		"enabled": true,
		"count":   float64(5),
	})
	ectx.RecordOutput("A", map[string]any{"enqueued": true, "jobId": "job-1"})

	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{
			name:       "string equality with single quotes",
			expression: "input.status == 'active'",
			expected:   true,
		},
		{
			name:       "string equality with double quotes",
			expression: `input.status == "active"`,
			expected:   true,
		},
		{
			name:       "string inequality",
			expression: "input.status != 'disabled'",
			expected:   true,
		},
		{
			name:       "boolean literal",
			expression: "input.enabled == true",
			expected:   true,
		},
		{
			name:       "step output lookup",
			expression: "steps.A.enqueued == true",
			expected:   true,
		},
		{
			name:       "step output string field",
			expression: "steps.A.jobId == 'job-1'",
			expected:   true,
		},
		{
			name:       "missing path equals null",
			expression: "input.missing == null",
			expected:   true,
		},
		{
			name:       "present path is not null",
			expression: "input.status != null",
			expected:   true,
		},
		{
			name:       "numeric kinds compare by value",
			expression: "input.count == 5",
			expected:   true,
		},
		{
			name:       "equality does not cast strings to numbers",
			expression: "input.count == '5'",
			expected:   false,
		},
		{
			name:       "boolean is not a number in equality",
			expression: "input.enabled == 1",
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EvaluateExpression(tt.expression, ectx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("%s: expected %v, got %v", tt.expression, tt.expected, result)
			}
		})
	}
}

func TestEvaluateExpression_NonNumericOrderIsFalse(t *testing.T) {
	ectx := NewExecutionContext(map[string]any{"name": "abc"})

	tests := []struct {
		name       string
		expression string
	}{
		{name: "string value", expression: "input.name > 100"},
		{name: "missing path", expression: "input.ghost > 1"},
		{name: "non-numeric literal", expression: "input.name < 'xyz'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EvaluateExpression(tt.expression, ectx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result {
				t.Errorf("%s: expected false for non-numeric comparison", tt.expression)
			}
		})
	}
}

func TestEvaluateExpression_Invalid(t *testing.T) {
	ectx := NewExecutionContext(nil)

	tests := []struct {
		name       string
		expression string
	}{
		{name: "no operator", expression: "input.amount"},
		{name: "empty string", expression: ""},
		{name: "missing left side", expression: "== 5"},
		{name: "missing right side", expression: "input.amount =="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EvaluateExpression(tt.expression, ectx)
			if err == nil {
				t.Fatalf("expected error for %q", tt.expression)
			}
			if !errors.Is(err, ErrInvalidExpression) {
				t.Errorf("expected ErrInvalidExpression, got %v", err)
			}
		})
	}
}

func TestEvaluateExpression_OperatorPrecedence(t *testing.T) {
	// ">=" должен распознаваться раньше ">", иначе литерал начнётся с "=".
	ectx := NewExecutionContext(map[string]any{"n": float64(5)})

	result, err := EvaluateExpression("input.n >= 5", ectx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result {
		t.Error("expected input.n >= 5 to be true")
	}
}
