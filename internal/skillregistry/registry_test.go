package skillregistry

import (
	"context"
	"strings"
	"testing"

	"github.com/caseflow/agentd/pkg/models"
)

type stubSkill struct {
	name   string
	result *models.SkillResult
	err    error
}

func (s *stubSkill) Name() string { return s.name }

func (s *stubSkill) Execute(ctx context.Context, sc *models.SkillContext) (*models.SkillResult, error) {
	return s.result, s.err
}

func TestRegisterAndExecute(t *testing.T) {
	r := New()
	r.Register(&stubSkill{name: "query", result: &models.SkillResult{Success: true, SkillName: "query"}})

	result, err := r.Execute(context.Background(), "query", &models.SkillContext{Query: "hi"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !result.Success || result.SkillName != "query" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestExecuteUnknownSkillReturnsFailedResultNotError(t *testing.T) {
	r := New()
	result, err := r.Execute(context.Background(), "nonexistent", &models.SkillContext{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Success {
		t.Error("expected Success=false for unknown skill")
	}
}

func TestRegisterReplacesExistingSkill(t *testing.T) {
	r := New()
	r.Register(&stubSkill{name: "query", result: &models.SkillResult{Message: "first"}})
	r.Register(&stubSkill{name: "query", result: &models.SkillResult{Message: "second"}})

	result, _ := r.Execute(context.Background(), "query", &models.SkillContext{})
	if result.Message != "second" {
		t.Errorf("expected replaced skill to win, got %q", result.Message)
	}
}

func TestUnregister(t *testing.T) {
	r := New()
	r.Register(&stubSkill{name: "query"})
	r.Unregister("query")

	if _, ok := r.Get("query"); ok {
		t.Error("expected query skill to be unregistered")
	}
}

func TestExecuteRejectsOverlongName(t *testing.T) {
	r := New()
	longName := strings.Repeat("a", MaxSkillNameLength+1)
	result, err := r.Execute(context.Background(), longName, &models.SkillContext{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Success {
		t.Error("expected failure for overlong skill name")
	}
}

func TestNamesListsAllRegistered(t *testing.T) {
	r := New()
	r.Register(&stubSkill{name: "query"})
	r.Register(&stubSkill{name: "mutate"})

	names := r.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d", len(names))
	}
}
