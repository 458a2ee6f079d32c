// Package skillregistry is the thread-safe name→Skill lookup the
// orchestrator's routing step dispatches through. Generalized from
// the teacher's ToolRegistry (internal/agent/tool_registry.go): same
// RWMutex-guarded map, same register/get/execute shape, narrowed to
// this domain's single Execute signature instead of raw JSON params.
package skillregistry

import (
	"context"
	"fmt"
	"sync"

	"github.com/caseflow/agentd/pkg/models"
)

// Skill is one dispatchable unit of behavior: a query variant, a
// mutation (create/update/delete), or a utility skill like chit-chat.
type Skill interface {
	Name() string
	Execute(ctx context.Context, sc *models.SkillContext) (*models.SkillResult, error)
}

// MaxSkillNameLength bounds a lookup name to prevent pathological
// input from a malformed planner output.
const MaxSkillNameLength = 256

// Registry is a thread-safe name→Skill map.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{skills: make(map[string]Skill)}
}

// Register adds a skill, replacing any existing skill with the same
// name.
func (r *Registry) Register(skill Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills[skill.Name()] = skill
}

// Unregister removes a skill by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.skills, name)
}

// Get returns a skill by name.
func (r *Registry) Get(name string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	skill, ok := r.skills[name]
	return skill, ok
}

// Names returns every registered skill name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.skills))
	for name := range r.skills {
		names = append(names, name)
	}
	return names
}

// Execute looks up name and runs it against sc, returning a failed
// SkillResult (not an error) when the name isn't registered, so the
// orchestrator can render a response without a type switch on err.
func (r *Registry) Execute(ctx context.Context, name string, sc *models.SkillContext) (*models.SkillResult, error) {
	if len(name) > MaxSkillNameLength {
		return &models.SkillResult{
			Success: false,
			Message: fmt.Sprintf("skill name exceeds maximum length of %d characters", MaxSkillNameLength),
		}, nil
	}

	r.mu.RLock()
	skill, ok := r.skills[name]
	r.mu.RUnlock()
	if !ok {
		return &models.SkillResult{
			Success: false,
			Message: "skill not found: " + name,
		}, nil
	}
	return skill.Execute(ctx, sc)
}
