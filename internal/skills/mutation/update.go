package mutation

import (
	"context"
	"time"

	"github.com/caseflow/agentd/internal/agenterr"
	"github.com/caseflow/agentd/internal/idempotency"
	"github.com/caseflow/agentd/pkg/models"
)

// UpdateName is the update skill's registry name. It covers both
// plain field updates and close (a field update whose target is a
// configured status field, picked by keyword).
const UpdateName = "update"

// Update implements the propose/commit flow for updating an existing
// record, including the close-profile sub-path.
type Update struct{ base }

// NewUpdate builds the update skill.
func NewUpdate(deps Deps) *Update { return &Update{base: newBase(deps)} }

// Name implements skillregistry.Skill.
func (u *Update) Name() string { return UpdateName }

// Execute proposes either a plain field update or, when the utterance
// matches one of the table's close keywords, a close.
func (u *Update) Execute(ctx context.Context, sc *models.SkillContext) (*models.SkillResult, error) {
	table, err := u.resolveTable(sc)
	if err != nil {
		return nil, err
	}
	tc := u.cfg.tableConfig(table.TableName)

	record, err := u.resolveTargetRecord(ctx, sc, table.TableID)
	if err != nil {
		return nil, err
	}

	if isCloseIntent(sc.Query, tc) {
		return u.proposeClose(ctx, sc, table, tc, record)
	}
	return u.proposeUpdate(ctx, sc, table, tc, record)
}

// isCloseIntent fires on the table's generic close keywords or on any
// of its close profiles' own keyword aliases — a profile-specific
// alias like "执行终本" implies closing just as much as a generic
// "结案"/"关闭" does.
func isCloseIntent(query string, tc TableConfig) bool {
	for _, kw := range tc.CloseKeywords {
		if containsFold(query, kw) {
			return true
		}
	}
	for _, profile := range tc.CloseProfiles {
		for _, alias := range profile.KeywordAliases {
			if containsFold(query, alias) {
				return true
			}
		}
	}
	return false
}

func (u *Update) proposeUpdate(ctx context.Context, sc *models.SkillContext, table models.TableRef, tc TableConfig, record *models.Record) (*models.SkillResult, error) {
	fields, err := u.schema.Fields(ctx, u.appToken, table.TableID)
	if err != nil {
		return nil, err
	}

	extracted, err := u.extractFields(ctx, sc, fields)
	if err != nil {
		return nil, err
	}
	normalized := validateAndDefault(fields, extracted, nil)

	diffs, resolved := buildDiff(record.FieldsText, normalized, tc.AppendFields, time.Now())
	if len(diffs) == 0 {
		return &models.SkillResult{
			Success:   false,
			SkillName: UpdateName,
			ReplyText: "没有检测到任何变更，请明确要修改哪个字段。",
		}, nil
	}

	payload := map[string]any{
		"table_id":   table.TableID,
		"table_name": table.TableName,
		"record_id":  record.RecordID,
		"fields":     resolved,
		"diff":       diffToData(diffs),
	}

	action := models.PendingAction{Action: "update_record", Payload: payload}
	if err := u.state.SetPendingAction(ctx, sc.UserID, action, pendingActionTTL); err != nil {
		return nil, err
	}

	return &models.SkillResult{
		Success:   true,
		SkillName: UpdateName,
		Data:      map[string]any{"pending_action": true, "diff": diffToData(diffs)},
		ReplyText: "请确认以下修改。",
	}, nil
}

func (u *Update) proposeClose(ctx context.Context, sc *models.SkillContext, table models.TableRef, tc TableConfig, record *models.Record) (*models.SkillResult, error) {
	profile := resolveCloseProfile(tc, sc.Query)
	if tc.StatusField == "" {
		return nil, agenterr.MissingParams("table has no configured status field for close", nil)
	}

	oldStatus := record.FieldsText[tc.StatusField]
	diffs := []diffEntry{{Field: tc.StatusField, Old: oldStatus, New: profile.StatusValue, Mode: "replace"}}

	payload := map[string]any{
		"table_id":              table.TableID,
		"table_name":            table.TableName,
		"record_id":             record.RecordID,
		"fields":                map[string]any{tc.StatusField: profile.StatusValue},
		"diff":                  diffToData(diffs),
		"close_semantic":        profile.Semantic,
		"removes_from_open_view": profile.RemovesFromOpenView,
		"cancels_reminder":      profile.CancelsReminder,
	}

	action := models.PendingAction{Action: "close_record", Payload: payload}
	if err := u.state.SetPendingAction(ctx, sc.UserID, action, pendingActionTTL); err != nil {
		return nil, err
	}

	return &models.SkillResult{
		Success:   true,
		SkillName: UpdateName,
		Data:      map[string]any{"pending_action": true, "diff": diffToData(diffs), "close_semantic": profile.Semantic},
		ReplyText: "请确认结案操作。",
	}, nil
}

// Commit executes a confirmed update_record or close_record pending
// action.
func (u *Update) Commit(ctx context.Context, sc *models.SkillContext) (*models.SkillResult, error) {
	pending, err := u.state.GetPendingAction(ctx, sc.UserID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, agenterr.PendingActionNotFound("no pending update action")
	}
	if pending.Action != "update_record" && pending.Action != "close_record" {
		return nil, agenterr.PendingActionNotFound("pending action is not an update or close")
	}

	tableID, _ := pending.Payload["table_id"].(string)
	tableName, _ := pending.Payload["table_name"].(string)
	recordID, _ := pending.Payload["record_id"].(string)
	normalized, _ := pending.Payload["fields"].(map[string]any)

	metaByName, err := u.schema.RefreshBeforeWrite(ctx, u.appToken, tableID, fieldNames(normalized))
	if err != nil {
		return nil, err
	}
	fieldValues := buildFieldValues(normalized, metaByName)

	idemKey := idempotency.BusinessKey(tableID, recordID, normalized)
	if u.idem != nil && u.idem.IsDuplicateBusinessKey(idemKey) {
		return nil, agenterr.General("duplicate update request already applied", nil)
	}

	record, err := u.client.RecordUpdate(ctx, tableID, recordID, fieldValues, idemKey)
	if err != nil {
		return nil, err
	}
	if u.idem != nil {
		u.idem.MarkBusinessKey(idemKey)
	}

	if _, err := u.state.ConfirmPendingAction(ctx, sc.UserID); err != nil {
		return nil, err
	}
	if err := u.state.SetActiveRecord(ctx, sc.UserID, models.ActiveRecord{
		RecordID: recordID, Record: record, TableID: tableID, TableName: tableName, Source: "mutation_commit",
	}); err != nil {
		return nil, err
	}

	replyText := "记录已更新。"
	if pending.Action == "close_record" {
		replyText = "记录已结案。"
	}

	return &models.SkillResult{
		Success:   true,
		SkillName: UpdateName,
		Data:      map[string]any{"record": *record},
		ReplyText: replyText,
	}, nil
}
