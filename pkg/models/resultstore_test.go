package models

import (
	"testing"
	"time"
)

func TestResultStore_PutAndGet(t *testing.T) {
	store := NewResultStore()

	result := &StepResult{
		StepName:  "plan",
		Result:    Payload{"text": "do the thing"},
		Timestamp: time.Now(),
		ModelUsed: "claude-sonnet-4-20250514",
	}
	if err := store.Put(result); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := store.Get("plan")
	if !ok {
		t.Fatal("Get returned ok=false for stored step")
	}
	if got.Result.Text() != "do the thing" {
		t.Errorf("Text() = %q, want %q", got.Result.Text(), "do the thing")
	}

	if _, ok := store.Get("missing"); ok {
		t.Error("Get returned ok=true for absent step")
	}
}

func TestResultStore_RejectsRewrite(t *testing.T) {
	store := NewResultStore()

	first := &StepResult{StepName: "plan", Result: Payload{"text": "a"}}
	if err := store.Put(first); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	second := &StepResult{StepName: "plan", Result: Payload{"text": "b"}}
	if err := store.Put(second); err == nil {
		t.Fatal("expected error when rewriting an existing entry")
	}

	got, _ := store.Get("plan")
	if got.Result.Text() != "a" {
		t.Errorf("entry was rewritten: got %q", got.Result.Text())
	}
}

func TestResultStore_NamesInCompletionOrder(t *testing.T) {
	store := NewResultStore()
	for _, name := range []string{"c", "a", "b"} {
		if err := store.Put(&StepResult{StepName: name, Result: Payload{}}); err != nil {
			t.Fatalf("Put(%s) failed: %v", name, err)
		}
	}

	names := store.Names()
	want := []string{"c", "a", "b"}
	if len(names) != len(want) {
		t.Fatalf("Names() returned %d entries, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestResultStore_SnapshotIsCopy(t *testing.T) {
	store := NewResultStore()
	if err := store.Put(&StepResult{StepName: "a", Result: Payload{}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	snap := store.Snapshot()
	delete(snap, "a")

	if _, ok := store.Get("a"); !ok {
		t.Error("mutating a snapshot affected the store")
	}
}

func TestPayload_Field(t *testing.T) {
	p := Payload{"y": "42", "z": "no"}

	if got := p.Field("y"); got != "42" {
		t.Errorf("Field(y) = %v, want 42", got)
	}

	// Absent field falls back to the whole payload.
	got := p.Field("missing")
	whole, ok := got.(Payload)
	if !ok {
		t.Fatalf("Field(missing) = %T, want Payload", got)
	}
	if whole["z"] != "no" {
		t.Errorf("fallback payload missing original keys: %v", whole)
	}
}

func TestPayload_FunctionCall(t *testing.T) {
	p := Payload{"function_call": "create_plan", "args": map[string]any{"goal": "x"}}

	name, ok := p.FunctionCall()
	if !ok || name != "create_plan" {
		t.Errorf("FunctionCall() = %q, %v; want create_plan, true", name, ok)
	}
	if p.Args()["goal"] != "x" {
		t.Errorf("Args() = %v, want goal=x", p.Args())
	}

	if _, ok := (Payload{"text": "hi"}).FunctionCall(); ok {
		t.Error("FunctionCall() = true for a text payload")
	}
}
