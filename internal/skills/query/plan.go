package query

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/caseflow/agentd/internal/bitable"
	"github.com/caseflow/agentd/internal/llmfacade"
	"github.com/caseflow/agentd/pkg/models"
)

// queryPlan is stage 2's compiled output: a runnable search call plus
// the source label recorded in the resolution trace and
// query_resolution_total metric.
type queryPlan struct {
	source string
	run    func(ctx context.Context) (*bitable.SearchResult, error)

	// orgShapedKeyword is set when the plan's keyword looked
	// organization-shaped, so stage 4 post-processing knows to apply
	// the high-priority-party-field filter.
	orgShapedKeyword string

	// fallbackKeyword, when non-empty, is the literal value stage 3's
	// local-fallback pagination filters records against after a
	// filter-not-supported error. Populated by plans built around a
	// single search value; left empty for structural/full-scan plans,
	// whose fallback is an unfiltered local page.
	fallbackKeyword string

	// fallbackFields lists which record fields the local fallback
	// checks fallbackKeyword against; empty means "any field".
	fallbackFields []string
}

var (
	identifierLabelRe   = regexp.MustCompile(`(?:案号|项目ID|编号)\s*[:：是=]\s*([A-Za-z0-9\-]{4,})`)
	identifierBareRe    = regexp.MustCompile(`[A-Za-z]{2,}-\d{4,}`)
	exactMatchRe        = regexp.MustCompile(`(案号|项目ID|编号)\s*[=是]\s*([^\s，,。]+)`)
	namedEntityRe       = regexp.MustCompile(`(.+?)(?:的案件|的项目)`)
	partyLabelRe        = regexp.MustCompile(`(?:对方当事人|被告|原告|客户)\s*(?:是|为|[:：])?\s*([^\s，,。]+)`)
	hearingKeywordRe    = regexp.MustCompile(`开庭`)
	deadlineKeywordRe   = regexp.MustCompile(`截止|到期`)
	firstPersonPossRe   = regexp.MustCompile(`我的|我方|本人的`)
	stopwords           = []string{"请问", "帮我", "查询", "查一下", "查下", "的", "是什么", "有哪些", "？", "?", "。"}
	orgSuffixRe         = regexp.MustCompile(`(公司|集团|有限|事务所|银行|法院)$`)
)

// compilePlan implements stage 2: try each source in documented order,
// returning the first compilable plan.
func (s *Skill) compilePlan(ctx context.Context, sc *models.SkillContext, tableID, tableName string) (*queryPlan, []models.ResolutionTraceEntry) {
	var trace []models.ResolutionTraceEntry
	record := func(source, status string) {
		trace = append(trace, models.ResolutionTraceEntry{Source: source, Status: status})
		s.metrics.RecordQueryResolution(source, status)
	}

	if plan := s.paginationContinuation(sc, tableID); plan != nil {
		record("pagination_continuation", "hit")
		return plan, trace
	}
	record("pagination_continuation", "miss")

	if plan := s.plannerOutput(ctx, sc, tableID); plan != nil {
		record("planner_output", "hit")
		return plan, trace
	}
	record("planner_output", "miss")

	if plan := s.classificationRule(sc, tableID, tableName); plan != nil {
		record("classification_rule", "hit")
		return plan, trace
	}
	record("classification_rule", "miss")

	if plan := s.semanticSlotExtraction(sc, tableID); plan != nil {
		record("semantic_slot_extraction", "hit")
		return plan, trace
	}
	record("semantic_slot_extraction", "miss")

	if plan := s.structuredPhrases(sc, tableID); plan != nil {
		record("structured_query_phrases", "hit")
		return plan, trace
	}
	record("structured_query_phrases", "miss")

	if plan := s.myXDetection(sc, tableID, tableName); plan != nil {
		record("my_x_detection", "hit")
		return plan, trace
	}
	record("my_x_detection", "miss")

	if plan := s.namedEntityKeyword(sc, tableID); plan != nil {
		record("named_entity_keyword", "hit")
		return plan, trace
	}
	record("named_entity_keyword", "miss")

	if plan := s.dateRange(sc, tableID); plan != nil {
		record("date_range", "hit")
		return plan, trace
	}
	record("date_range", "miss")

	if plan := s.unlabeledIdentifierToken(sc, tableID); plan != nil {
		record("unlabeled_identifier_token", "hit")
		return plan, trace
	}
	record("unlabeled_identifier_token", "miss")

	if plan := s.exactMatch(ctx, sc, tableID); plan != nil {
		record("exact_match", "hit")
		return plan, trace
	}
	record("exact_match", "miss")

	if plan := s.bareKeyword(sc, tableID); plan != nil {
		record("bare_keyword", "hit")
		return plan, trace
	}
	record("bare_keyword", "miss")

	record("full_scan", "hit")
	return s.fullScan(sc, tableID), trace
}

// 1. Pagination continuation.
func (s *Skill) paginationContinuation(sc *models.SkillContext, tableID string) *queryPlan {
	raw, ok := sc.Extra["pagination"]
	if !ok {
		return nil
	}
	pagination, ok := raw.(*models.PaginationSlot)
	if !ok || pagination == nil || pagination.PageToken == "" {
		return nil
	}
	return &queryPlan{
		source: "pagination_continuation",
		run: func(ctx context.Context) (*bitable.SearchResult, error) {
			return s.client.Search(ctx, tableID, "", true, s.cfg.DefaultPageSize, pagination.PageToken)
		},
	}
}

// 2. Planner output: an LLM-extracted {field, value} slot pair, only
// retained if both slots are present.
func (s *Skill) plannerOutput(ctx context.Context, sc *models.SkillContext, tableID string) *queryPlan {
	if s.llm == nil {
		return nil
	}
	slots, err := llmfacade.ExtractSlots(ctx, s.llm, sc.Query, map[string]string{
		"field": "the backend field name to search, if the user named one explicitly",
		"value": "the value to search for",
	})
	if err != nil || slots == nil {
		return nil
	}
	field, _ := slots["field"].(string)
	value, _ := slots["value"].(string)
	if field == "" || value == "" {
		return nil
	}
	return &queryPlan{
		source: "planner_output",
		run: func(ctx context.Context) (*bitable.SearchResult, error) {
			return s.client.SearchExact(ctx, tableID, field, value)
		},
		fallbackKeyword: value,
		fallbackFields:  []string{field},
	}
}

// 3. Classification rule: a known case-category alias with no "my"
// pronoun searches the table's classification fields by keyword.
func (s *Skill) classificationRule(sc *models.SkillContext, tableID, tableName string) *queryPlan {
	if firstPersonPossRe.MatchString(sc.Query) {
		return nil
	}
	fields := s.cfg.ClassificationFields[tableName]
	if len(fields) == 0 {
		return nil
	}
	for alias, category := range s.cfg.ClassificationAliases {
		if strings.Contains(sc.Query, alias) {
			return &queryPlan{
				source: "classification_rule",
				run: func(ctx context.Context) (*bitable.SearchResult, error) {
					return s.client.SearchKeyword(ctx, tableID, category, fields)
				},
				fallbackKeyword: category,
				fallbackFields:  fields,
			}
		}
	}
	return nil
}

// 4. Semantic slot extraction: a labeled or bare case identifier, or a
// party/client label, confidence-gated.
func (s *Skill) semanticSlotExtraction(sc *models.SkillContext, tableID string) *queryPlan {
	if len(s.cfg.IdentifierFields) > 0 {
		if m := identifierLabelRe.FindStringSubmatch(sc.Query); m != nil {
			identifier := m[1]
			return &queryPlan{
				source: "semantic_slot_extraction",
				run: func(ctx context.Context) (*bitable.SearchResult, error) {
					return s.client.SearchKeyword(ctx, tableID, identifier, s.cfg.IdentifierFields)
				},
				fallbackKeyword: identifier,
				fallbackFields:  s.cfg.IdentifierFields,
			}
		}
	}

	if len(s.cfg.PartyFields) > 0 {
		if m := partyLabelRe.FindStringSubmatch(sc.Query); m != nil {
			party := m[1]
			org := organizationShaped(party)
			return &queryPlan{
				source: "semantic_slot_extraction",
				run: func(ctx context.Context) (*bitable.SearchResult, error) {
					return s.client.SearchKeyword(ctx, tableID, party, s.cfg.PartyFields)
				},
				orgShapedKeyword: orgKeywordOrEmpty(org, party),
				fallbackKeyword:  party,
				fallbackFields:   s.cfg.PartyFields,
			}
		}
	}

	s.metrics.RecordQuerySemanticFallback("no_slot_matched")
	return nil
}

// 5. Structured query phrases: labelled patterns compiling to a
// keyword search with a specific field list, or a date-range search
// anchored on today.
func (s *Skill) structuredPhrases(sc *models.SkillContext, tableID string) *queryPlan {
	if m := partyLabelRe.FindStringSubmatch(sc.Query); m != nil && strings.Contains(sc.Query, "对方当事人") {
		value := m[1]
		return &queryPlan{
			source: "structured_query_phrases",
			run: func(ctx context.Context) (*bitable.SearchResult, error) {
				return s.client.SearchKeyword(ctx, tableID, value, s.cfg.PartyFields)
			},
			fallbackKeyword: value,
			fallbackFields:  s.cfg.PartyFields,
		}
	}
	if strings.Contains(sc.Query, "已开过庭") {
		field := s.cfg.HearingDateField
		from := time.Time{}
		to := time.Now()
		return &queryPlan{
			source: "structured_query_phrases",
			run: func(ctx context.Context) (*bitable.SearchResult, error) {
				return s.client.SearchDateRange(ctx, tableID, field, from, to, "", "")
			},
		}
	}
	return nil
}

// 6. "My X" detection: dispatch a person-field search against the
// table's registered identity fields, trying each in order.
func (s *Skill) myXDetection(sc *models.SkillContext, tableID, tableName string) *queryPlan {
	if !firstPersonPossRe.MatchString(sc.Query) {
		return nil
	}
	openID, _ := sc.Extra["open_id"].(string)
	userName, _ := sc.Extra["user_name"].(string)
	if openID == "" {
		return nil
	}
	identityFields := s.cfg.IdentityFields[tableName]
	if len(identityFields) == 0 {
		return nil
	}
	return &queryPlan{
		source: "my_x_detection",
		run: func(ctx context.Context) (*bitable.SearchResult, error) {
			var lastErr error
			for _, field := range identityFields {
				result, err := s.client.SearchPerson(ctx, tableID, field, openID, userName)
				if err != nil {
					lastErr = err
					continue
				}
				if len(result.Records) > 0 {
					return result, nil
				}
			}
			if lastErr != nil {
				return nil, lastErr
			}
			return &bitable.SearchResult{}, nil
		},
		fallbackKeyword: userName,
		fallbackFields:  identityFields,
	}
}

// 7. Named-entity keyword: "X的案件/项目" extracts X; an
// organization-shaped X is flagged for stage 4's post-filter.
func (s *Skill) namedEntityKeyword(sc *models.SkillContext, tableID string) *queryPlan {
	m := namedEntityRe.FindStringSubmatch(sc.Query)
	if m == nil {
		return nil
	}
	keyword := strings.TrimSpace(m[1])
	if keyword == "" {
		return nil
	}
	return &queryPlan{
		source: "named_entity_keyword",
		run: func(ctx context.Context) (*bitable.SearchResult, error) {
			return s.client.SearchKeyword(ctx, tableID, keyword, s.cfg.PartyFields)
		},
		orgShapedKeyword: orgKeywordOrEmpty(organizationShaped(keyword), keyword),
		fallbackKeyword:  keyword,
		fallbackFields:   s.cfg.PartyFields,
	}
}

// 8. Date range: field guessed from keywords, otherwise hearing date.
func (s *Skill) dateRange(sc *models.SkillContext, tableID string) *queryPlan {
	from, ok := sc.Extra["date_range_from"].(time.Time)
	if !ok {
		return nil
	}
	to, ok := sc.Extra["date_range_to"].(time.Time)
	if !ok {
		to = time.Now()
	}

	field := s.cfg.HearingDateField
	switch {
	case deadlineKeywordRe.MatchString(sc.Query):
		field = s.cfg.DeadlineDateField
	case hearingKeywordRe.MatchString(sc.Query):
		field = s.cfg.HearingDateField
	}

	return &queryPlan{
		source: "date_range",
		run: func(ctx context.Context) (*bitable.SearchResult, error) {
			return s.client.SearchDateRange(ctx, tableID, field, from, to, "", "")
		},
	}
}

// 9. Unlabeled identifier token.
func (s *Skill) unlabeledIdentifierToken(sc *models.SkillContext, tableID string) *queryPlan {
	if len(s.cfg.IdentifierFields) == 0 {
		return nil
	}
	token := identifierBareRe.FindString(sc.Query)
	if token == "" {
		return nil
	}
	return &queryPlan{
		source: "unlabeled_identifier_token",
		run: func(ctx context.Context) (*bitable.SearchResult, error) {
			return s.client.SearchKeyword(ctx, tableID, token, s.cfg.IdentifierFields)
		},
		fallbackKeyword: token,
		fallbackFields:  s.cfg.IdentifierFields,
	}
}

// 10. Exact match: a regex-labelled "案号/项目ID/编号 = X"; degrades to
// keyword search if the resolved field is person-typed but the value
// looks organizational.
func (s *Skill) exactMatch(ctx context.Context, sc *models.SkillContext, tableID string) *queryPlan {
	m := exactMatchRe.FindStringSubmatch(sc.Query)
	if m == nil {
		return nil
	}
	label, value := m[1], m[2]

	fieldMeta, found, err := s.schema.FieldMetaByName(ctx, s.appToken, tableID, label)
	if err != nil || !found {
		fieldMeta = bitable.FieldMeta{Name: label, Type: "text"}
	}

	if fieldMeta.Type == "person" && organizationShaped(value) {
		return &queryPlan{
			source: "exact_match",
			run: func(ctx context.Context) (*bitable.SearchResult, error) {
				return s.client.SearchKeyword(ctx, tableID, value, []string{fieldMeta.Name})
			},
			fallbackKeyword: value,
			fallbackFields:  []string{fieldMeta.Name},
		}
	}

	return &queryPlan{
		source: "exact_match",
		run: func(ctx context.Context) (*bitable.SearchResult, error) {
			return s.client.SearchExact(ctx, tableID, fieldMeta.Name, value)
		},
		fallbackKeyword: value,
		fallbackFields:  []string{fieldMeta.Name},
	}
}

// 11. Bare keyword: after stripping question/action stopwords,
// whatever residue remains is keyword-searched across identifier and
// party fields.
func (s *Skill) bareKeyword(sc *models.SkillContext, tableID string) *queryPlan {
	residue := sc.Query
	for _, stop := range stopwords {
		residue = strings.ReplaceAll(residue, stop, "")
	}
	residue = strings.TrimSpace(residue)
	if residue == "" {
		return nil
	}
	fields := append(append([]string{}, s.cfg.IdentifierFields...), s.cfg.PartyFields...)
	if len(fields) == 0 {
		return nil
	}
	return &queryPlan{
		source: "bare_keyword",
		run: func(ctx context.Context) (*bitable.SearchResult, error) {
			return s.client.SearchKeyword(ctx, tableID, residue, fields)
		},
		fallbackKeyword: residue,
		fallbackFields:  fields,
	}
}

// 12. Full scan: no discriminator found; ignore_default_view is set
// unless the query explicitly references the current view.
func (s *Skill) fullScan(sc *models.SkillContext, tableID string) *queryPlan {
	ignoreDefaultView := !strings.Contains(sc.Query, "当前视图")
	return &queryPlan{
		source: "full_scan",
		run: func(ctx context.Context) (*bitable.SearchResult, error) {
			return s.client.Search(ctx, tableID, "", ignoreDefaultView, s.cfg.DefaultPageSize, "")
		},
	}
}

func organizationShaped(value string) bool {
	return orgSuffixRe.MatchString(value)
}

func orgKeywordOrEmpty(isOrg bool, keyword string) string {
	if isOrg {
		return keyword
	}
	return ""
}
