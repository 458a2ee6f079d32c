// Package query implements the query skill (spec component #7): the
// 12-stage query-resolution pipeline from table disambiguation through
// post-processing, grounded on the teacher's tool-dispatch shape in
// internal/agent/tool_registry.go generalized to this domain's search
// semantics.
package query

import (
	"context"
	"fmt"

	"github.com/caseflow/agentd/internal/bitable"
	"github.com/caseflow/agentd/internal/fieldformat"
	"github.com/caseflow/agentd/internal/llmfacade"
	"github.com/caseflow/agentd/internal/observability"
	"github.com/caseflow/agentd/pkg/models"
)

// Name is this skill's registry name, also used as SkillResult.SkillName.
const Name = "query"

// stateWriter is the narrow slice of *convstate.Manager the query
// skill needs: persisting active table/record and last-result on a
// successful resolution.
type stateWriter interface {
	SetActiveTable(ctx context.Context, userID string, table models.TableRef) error
	SetActiveRecord(ctx context.Context, userID string, record models.ActiveRecord) error
	SetLastResult(ctx context.Context, userID string, records []models.Record, query string) error
}

// Skill implements skillregistry.Skill for table queries.
type Skill struct {
	client    bitable.Client
	schema    *bitable.SchemaCache
	formatter *fieldformat.Formatter
	state     stateWriter
	llm       llmfacade.Facade // optional; nil disables planner-output and LLM table disambiguation
	metrics   *observability.Metrics
	appToken  string
	cfg       Config
}

// Deps bundles Skill's constructor dependencies.
type Deps struct {
	Client    bitable.Client
	Schema    *bitable.SchemaCache
	Formatter *fieldformat.Formatter
	State     stateWriter
	LLM       llmfacade.Facade
	Metrics   *observability.Metrics
	AppToken  string
	Config    Config
}

// New creates a query Skill.
func New(deps Deps) *Skill {
	return &Skill{
		client:    deps.Client,
		schema:    deps.Schema,
		formatter: deps.Formatter,
		state:     deps.State,
		llm:       deps.LLM,
		metrics:   deps.Metrics,
		appToken:  deps.AppToken,
		cfg:       deps.Config.WithDefaults(),
	}
}

// Name implements skillregistry.Skill.
func (s *Skill) Name() string { return Name }

// Execute runs the full pipeline: table resolution, plan compilation,
// execution with filter-not-supported fallback, and post-processing.
func (s *Skill) Execute(ctx context.Context, sc *models.SkillContext) (*models.SkillResult, error) {
	resolution, err := s.resolveTable(ctx, sc)
	if err != nil {
		return nil, err
	}
	if resolution.NeedConfirm != nil {
		return resolution.NeedConfirm, nil
	}

	plan, trace := s.compilePlan(ctx, sc, resolution.TableID, resolution.TableName)

	execResult, err := s.execute(ctx, plan, resolution.TableID)
	if err != nil {
		return nil, err
	}

	records, err := s.postprocess(ctx, sc, resolution.TableID, resolution.TableName, plan, execResult.Search)
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"records": records,
		"debug":   trace,
	}
	if execResult.UsedFallback {
		data["debug_fallback"] = true
	}

	return &models.SkillResult{
		Success:   true,
		SkillName: Name,
		Data:      data,
		ReplyText: summarize(records, resolution.Notice),
	}, nil
}

func summarize(records []models.Record, notice string) string {
	prefix := ""
	if notice != "" {
		prefix = notice + "\n"
	}
	switch len(records) {
	case 0:
		return prefix + "没有找到匹配的记录。"
	case 1:
		return prefix + "找到 1 条匹配记录。"
	default:
		return prefix + fmt.Sprintf("共找到 %d 条匹配记录。", len(records))
	}
}
