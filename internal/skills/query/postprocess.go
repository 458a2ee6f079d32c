package query

import (
	"context"
	"sort"
	"strings"

	"github.com/caseflow/agentd/internal/bitable"
	"github.com/caseflow/agentd/pkg/models"
)

// titleWeightFields are matched against each record's fields to decide
// which ones count 3x toward relevance scoring; anything else counts
// 1x.
var titleWeightFields = []string{"标题", "案号", "项目编号", "title", "case_no"}

// postprocess implements stage 4: organization-keyword post-filter,
// relevance scoring and reorder, schema-aware formatting, and
// active-table/active-record persistence on a single match.
func (s *Skill) postprocess(
	ctx context.Context,
	sc *models.SkillContext,
	tableID, tableName string,
	plan *queryPlan,
	search *bitable.SearchResult,
) ([]models.Record, error) {
	records := search.Records

	if plan.orgShapedKeyword != "" && len(s.cfg.HighPriorityPartyFields) > 0 {
		records = filterByHighPriorityParty(records, s.cfg.HighPriorityPartyFields, plan.orgShapedKeyword)
	}

	scored := make([]scoredRecord, len(records))
	for i, record := range records {
		scored[i] = scoredRecord{record: record, score: relevanceScore(record, plan.fallbackKeyword)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	records = make([]models.Record, len(scored))
	for i, sr := range scored {
		records[i] = sr.record
	}

	for i := range records {
		fields, err := s.schema.Fields(ctx, s.appToken, tableID)
		if err != nil {
			return nil, err
		}
		metaByName := make(map[string]bitable.FieldMeta, len(fields))
		for _, f := range fields {
			metaByName[f.Name] = f
		}
		records[i].FieldsText = make(map[string]string, len(records[i].Fields))
		for name, value := range records[i].Fields {
			text, _ := s.formatter.Format(value, metaByName[name])
			records[i].FieldsText[name] = text
		}
		records[i].TableID = tableID
		records[i].TableName = tableName
	}

	if len(records) == 1 {
		if err := s.state.SetActiveTable(ctx, sc.UserID, models.TableRef{TableID: tableID, TableName: tableName}); err != nil {
			return nil, err
		}
		if err := s.state.SetActiveRecord(ctx, sc.UserID, models.ActiveRecord{
			RecordID:  records[0].RecordID,
			Record:    &records[0],
			TableID:   tableID,
			TableName: tableName,
			Source:    "query_single_match",
		}); err != nil {
			return nil, err
		}
	}
	if err := s.state.SetLastResult(ctx, sc.UserID, records, sc.Query); err != nil {
		return nil, err
	}

	return records, nil
}

type scoredRecord struct {
	record models.Record
	score  int
}

func relevanceScore(record models.Record, keyword string) int {
	if keyword == "" {
		return 0
	}
	score := 0
	for name, text := range record.FieldsText {
		if !strings.Contains(text, keyword) {
			continue
		}
		if isTitleWeightField(name) {
			score += 3
		} else {
			score++
		}
	}
	return score
}

func isTitleWeightField(name string) bool {
	for _, candidate := range titleWeightFields {
		if name == candidate {
			return true
		}
	}
	return false
}

func filterByHighPriorityParty(records []models.Record, fields []string, keyword string) []models.Record {
	var kept []models.Record
	for _, record := range records {
		for _, field := range fields {
			if value, ok := record.Fields[field]; ok && fieldValueContains(value, keyword) {
				kept = append(kept, record)
				break
			}
		}
	}
	return kept
}

func fieldValueContains(value models.FieldValue, keyword string) bool {
	switch value.Kind {
	case models.FieldValueString, models.FieldValueRichText:
		return strings.Contains(value.Str, keyword)
	case models.FieldValueOptions, models.FieldValuePersons:
		for _, opt := range value.Options {
			if strings.Contains(opt.Name, keyword) {
				return true
			}
		}
	}
	return false
}
