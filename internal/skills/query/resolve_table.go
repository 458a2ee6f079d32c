package query

import (
	"context"
	"strings"

	"github.com/caseflow/agentd/internal/llmfacade"
	"github.com/caseflow/agentd/pkg/models"
)

// tableResolution is stage 1's outcome: either a resolved table, or a
// needConfirm result the caller should return immediately.
type tableResolution struct {
	TableID     string
	TableName   string
	Notice      string
	NeedConfirm *models.SkillResult
}

// resolveTable implements spec §4.7 stage 1, trying each source in
// order and stopping at the first that resolves a table.
func (s *Skill) resolveTable(ctx context.Context, sc *models.SkillContext) (*tableResolution, error) {
	if tableID, _ := sc.Extra["active_table_id"].(string); tableID != "" {
		tableName, _ := sc.Extra["active_table_name"].(string)
		return &tableResolution{TableID: tableID, TableName: tableName}, nil
	}

	queryLower := strings.ToLower(sc.Query)

	for alias, tableName := range s.cfg.TableAliases {
		if strings.Contains(queryLower, strings.ToLower(alias)) {
			tableID, err := s.tableIDByName(ctx, tableName)
			if err != nil {
				return nil, err
			}
			if tableID != "" {
				return &tableResolution{TableID: tableID, TableName: tableName}, nil
			}
		}
	}

	tables, err := s.client.ListTables(ctx, s.appToken)
	if err != nil {
		return nil, err
	}
	for _, table := range tables {
		if strings.Contains(queryLower, strings.ToLower(table.TableName)) {
			return &tableResolution{TableID: table.TableID, TableName: table.TableName}, nil
		}
	}

	for hint, tableName := range s.cfg.DomainHints {
		if strings.Contains(sc.Query, hint) {
			tableID, err := s.tableIDByName(ctx, tableName)
			if err != nil {
				return nil, err
			}
			if tableID != "" {
				return &tableResolution{TableID: tableID, TableName: tableName}, nil
			}
		}
	}

	if s.llm == nil {
		return &tableResolution{NeedConfirm: s.disambiguationResult(nil)}, nil
	}

	names := tableNames(tables)
	intent, err := llmfacade.ClassifyIntent(ctx, s.llm, sc.Query, names)
	if err != nil || intent == nil {
		return &tableResolution{NeedConfirm: s.disambiguationResult(nil)}, nil
	}

	switch {
	case intent.Confidence >= s.cfg.AcceptConfidence:
		tableID, lookupErr := s.tableIDByName(ctx, intent.TableName)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if tableID != "" {
			return &tableResolution{TableID: tableID, TableName: intent.TableName}, nil
		}
	case intent.Confidence >= s.cfg.ConfirmConfidence:
		tableID, lookupErr := s.tableIDByName(ctx, intent.TableName)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if tableID != "" {
			return &tableResolution{
				TableID:   tableID,
				TableName: intent.TableName,
				Notice:    "已按最匹配的表「" + intent.TableName + "」查询，如不正确请告诉我正确的表名。",
			}, nil
		}
	}

	return &tableResolution{NeedConfirm: s.disambiguationResult(intent.Candidates)}, nil
}

func (s *Skill) tableIDByName(ctx context.Context, name string) (string, error) {
	tables, err := s.client.ListTables(ctx, s.appToken)
	if err != nil {
		return "", err
	}
	for _, table := range tables {
		if table.TableName == name {
			return table.TableID, nil
		}
	}
	return "", nil
}

func tableNames(tables []models.TableRef) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.TableName
	}
	return names
}

// disambiguationResult builds the need_confirm result stage 1 returns
// when no source resolved a table with sufficient confidence; the
// candidates are stashed so a follow-up turn naming one commits it.
func (s *Skill) disambiguationResult(candidates []string) *models.SkillResult {
	text := "没有确定您要查询哪张表，请说明具体的表名。"
	if len(candidates) > 0 {
		text = "您是想查询以下哪一个？" + strings.Join(candidates, "、")
	}
	return &models.SkillResult{
		Success:   false,
		SkillName: Name,
		ReplyText: text,
		Data: map[string]any{
			"need_confirm": true,
			"candidates":   candidates,
		},
	}
}
