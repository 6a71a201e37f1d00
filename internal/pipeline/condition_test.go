package pipeline

import (
	"testing"
	"time"

	"github.com/ShayCichocki/maestro/pkg/models"
)

func storeWith(t *testing.T, name string, payload models.Payload) *models.ResultStore {
	t.Helper()
	store := models.NewResultStore()
	err := store.Put(&models.StepResult{
		StepName:  name,
		Result:    payload,
		Timestamp: time.Now(),
		ModelUsed: "test",
	})
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestEvaluateCondition(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		store *models.ResultStore
		want  bool
	}{
		{"empty expression passes", "", models.NewResultStore(), true},
		{"absent step fails", "plan.ok", models.NewResultStore(), false},
		{"absent field fails", "plan.ok", storeWith(t, "plan", models.Payload{"text": "x"}), false},
		{"true bool", "plan.ok", storeWith(t, "plan", models.Payload{"ok": true}), true},
		{"false bool", "plan.ok", storeWith(t, "plan", models.Payload{"ok": false}), false},
		{"nonempty string", "plan.function_call", storeWith(t, "plan", models.Payload{"function_call": "create_plan"}), true},
		{"empty string", "plan.function_call", storeWith(t, "plan", models.Payload{"function_call": ""}), false},
		{"zero number", "plan.count", storeWith(t, "plan", models.Payload{"count": float64(0)}), false},
		{"nonzero number", "plan.count", storeWith(t, "plan", models.Payload{"count": float64(3)}), true},
		{"nil value", "plan.maybe", storeWith(t, "plan", models.Payload{"maybe": nil}), false},
		{"empty list", "plan.items", storeWith(t, "plan", models.Payload{"items": []any{}}), false},
		{"nonempty list", "plan.items", storeWith(t, "plan", models.Payload{"items": []any{"a"}}), true},
		{"empty map", "plan.args", storeWith(t, "plan", models.Payload{"args": map[string]any{}}), false},
		{"nonempty map", "plan.args", storeWith(t, "plan", models.Payload{"args": map[string]any{"k": 1}}), true},
		{"malformed expression fails open", "a.b.c", models.NewResultStore(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateCondition(tt.expr, tt.store); got != tt.want {
				t.Errorf("EvaluateCondition(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}
