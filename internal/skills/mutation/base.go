// Package mutation implements the create/update/delete mutation skills
// (spec component #8): the two-phase propose/commit protocol, grounded
// on the teacher's tool-dispatch shape in internal/agent/tool_registry.go
// the same way internal/skills/query is, generalized here to writes
// instead of reads.
package mutation

import (
	"context"
	"time"

	"github.com/caseflow/agentd/internal/bitable"
	"github.com/caseflow/agentd/internal/fieldformat"
	"github.com/caseflow/agentd/internal/idempotency"
	"github.com/caseflow/agentd/internal/llmfacade"
	"github.com/caseflow/agentd/internal/observability"
	"github.com/caseflow/agentd/pkg/models"
)

// pendingActionState is the narrow slice of *convstate.Manager every
// mutation skill depends on: proposing and resolving the single
// pending_action slot, and persisting the active table/record on a
// successful commit.
type pendingActionState interface {
	SetPendingAction(ctx context.Context, userID string, action models.PendingAction, ttl time.Duration) error
	GetPendingAction(ctx context.Context, userID string) (*models.PendingAction, error)
	ConfirmPendingAction(ctx context.Context, userID string) (*models.PendingAction, error)
	CancelPendingAction(ctx context.Context, userID string) (*models.PendingAction, error)
	SetActiveRecord(ctx context.Context, userID string, record models.ActiveRecord) error
	SetActiveTable(ctx context.Context, userID string, table models.TableRef) error
}

// base bundles the dependencies shared by Create, Update, and Delete.
type base struct {
	client    bitable.Client
	schema    *bitable.SchemaCache
	formatter *fieldformat.Formatter
	state     pendingActionState
	llm       llmfacade.Facade // optional; nil disables LLM-assisted field extraction
	idem      *idempotency.Store
	metrics   *observability.Metrics
	appToken  string
	cfg       Config
}

// Deps bundles a mutation skill's constructor dependencies. All three
// skills in this package share the same Deps shape.
type Deps struct {
	Client      bitable.Client
	Schema      *bitable.SchemaCache
	Formatter   *fieldformat.Formatter
	State       pendingActionState
	LLM         llmfacade.Facade
	Idempotency *idempotency.Store
	Metrics     *observability.Metrics
	AppToken    string
	Config      Config
}

func newBase(deps Deps) base {
	return base{
		client:    deps.Client,
		schema:    deps.Schema,
		formatter: deps.Formatter,
		state:     deps.State,
		llm:       deps.LLM,
		idem:      deps.Idempotency,
		metrics:   deps.Metrics,
		appToken:  deps.AppToken,
		cfg:       deps.Config,
	}
}

const pendingActionTTL = 300 * time.Second
