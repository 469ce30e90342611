package engine

import (
	"reflect"
	"testing"
)

func TestInterpolatePayload_ExactPlaceholder(t *testing.T) {
	ectx := NewExecutionContext(map[string]any{
		"bar":   "baz",
		"count": float64(5),
		"flag":  true,
	})

	payload := map[string]any{
		"foo":    "{{ input.bar }}",
		"number": "{{ input.count }}",
		"bool":   "{{ input.flag }}",
		"plain":  "untouched",
	}

	result := InterpolatePayload(payload, ectx)

	if result["foo"] != "baz" {
		t.Errorf("expected baz, got %v", result["foo"])
	}
	// Точный плейсхолдер подставляет значение как есть, сохраняя тип.
	if result["number"] != float64(5) {
		t.Errorf("expected float64(5), got %v (%T)", result["number"], result["number"])
	}
	if result["bool"] != true {
		t.Errorf("expected true, got %v", result["bool"])
	}
	if result["plain"] != "untouched" {
		t.Errorf("expected untouched, got %v", result["plain"])
	}
}

func TestInterpolatePayload_PartialMatchUnchanged(t *testing.T) {
	ectx := NewExecutionContext(map[string]any{"bar": "baz"})

	tests := []struct {
		name  string
		value string
	}{
		{name: "prefix text", value: "x-{{input.bar}}"},
		{name: "suffix text", value: "{{input.bar}}-y"},
		{name: "both sides", value: "x-{{input.bar}}-y"},
		{name: "only opening braces", value: "{{input.bar"},
		{name: "only closing braces", value: "input.bar}}"},
		{name: "too short", value: "{{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := InterpolatePayload(map[string]any{"v": tt.value}, ectx)
			if result["v"] != tt.value {
				t.Errorf("expected %q unchanged, got %v", tt.value, result["v"])
			}
		})
	}
}

func TestInterpolatePayload_WhitespaceInsideBraces(t *testing.T) {
	ectx := NewExecutionContext(map[string]any{"bar": "baz"})

	tests := []string{
		"{{input.bar}}",
		"{{ input.bar }}",
		"{{  input.bar  }}",
	}

	for _, tpl := range tests {
		result := InterpolatePayload(map[string]any{"v": tpl}, ectx)
		if result["v"] != "baz" {
			t.Errorf("%q: expected baz, got %v", tpl, result["v"])
		}
	}
}

func TestInterpolatePayload_NestedMaps(t *testing.T) {
	ectx := NewExecutionContext(map[string]any{"user": map[string]any{"id": "u-1"}})
	ectx.RecordOutput("A", map[string]any{"jobId": "job-7"})

	payload := map[string]any{
		"meta": map[string]any{
			"userId": "{{ input.user.id }}",
			"job":    "{{ steps.A.jobId }}",
			"inner": map[string]any{
				"again": "{{ input.user.id }}",
			},
		},
	}

	result := InterpolatePayload(payload, ectx)

	meta := result["meta"].(map[string]any)
	if meta["userId"] != "u-1" {
		t.Errorf("expected u-1, got %v", meta["userId"])
	}
	if meta["job"] != "job-7" {
		t.Errorf("expected job-7, got %v", meta["job"])
	}
	inner := meta["inner"].(map[string]any)
	if inner["again"] != "u-1" {
		t.Errorf("expected u-1, got %v", inner["again"])
	}
}

func TestInterpolatePayload_ArraysPassThrough(t *testing.T) {
	ectx := NewExecutionContext(map[string]any{"bar": "baz"})

	list := []any{"{{ input.bar }}", "plain"}
	payload := map[string]any{"items": list}

	result := InterpolatePayload(payload, ectx)

	// Массивы не обходятся: плейсхолдеры внутри остаются буквальными.
	got, ok := result["items"].([]any)
	if !ok {
		t.Fatalf("expected []any, got %T", result["items"])
	}
	if !reflect.DeepEqual(got, []any{"{{ input.bar }}", "plain"}) {
		t.Errorf("array should pass through unchanged, got %v", got)
	}
}

func TestInterpolatePayload_MissingPathYieldsNil(t *testing.T) {
	ectx := NewExecutionContext(nil)

	result := InterpolatePayload(map[string]any{"v": "{{ input.ghost }}"}, ectx)

	if result["v"] != nil {
		t.Errorf("expected nil for missing path, got %v", result["v"])
	}
}

func TestInterpolatePayload_WholeStepOutput(t *testing.T) {
	ectx := NewExecutionContext(nil)
	ectx.RecordOutput("A", map[string]any{"enqueued": true})

	result := InterpolatePayload(map[string]any{"v": "{{ steps.A }}"}, ectx)

	out, ok := result["v"].(map[string]any)
	if !ok {
		t.Fatalf("expected step output map, got %T", result["v"])
	}
	if out["enqueued"] != true {
		t.Errorf("expected enqueued=true, got %v", out)
	}
}

func TestInterpolatePayload_NilAndEmpty(t *testing.T) {
	ectx := NewExecutionContext(nil)

	// nil шаблон нормализуется в пустую карту.
	got := InterpolatePayload(nil, ectx)
	if got == nil {
		t.Fatal("nil payload should become an empty map")
	}
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}
