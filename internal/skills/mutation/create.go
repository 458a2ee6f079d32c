package mutation

import (
	"context"

	"github.com/caseflow/agentd/internal/agenterr"
	"github.com/caseflow/agentd/internal/idempotency"
	"github.com/caseflow/agentd/pkg/models"
)

// CreateName is the create skill's registry name.
const CreateName = "create"

// Create implements the propose/commit flow for creating a new record.
type Create struct{ base }

// NewCreate builds the create skill.
func NewCreate(deps Deps) *Create { return &Create{base: newBase(deps)} }

// Name implements skillregistry.Skill.
func (c *Create) Name() string { return CreateName }

// Execute proposes a create: extract fields, validate against the
// schema, default what's missing, run duplicate-detection against the
// table's registered dedupe field, and persist a pending_action.
func (c *Create) Execute(ctx context.Context, sc *models.SkillContext) (*models.SkillResult, error) {
	table, err := c.resolveTable(sc)
	if err != nil {
		return nil, err
	}
	tc := c.cfg.tableConfig(table.TableName)

	fields, err := c.schema.Fields(ctx, c.appToken, table.TableID)
	if err != nil {
		return nil, err
	}

	extracted, err := c.extractFields(ctx, sc, fields)
	if err != nil {
		return nil, err
	}
	normalized := validateAndDefault(fields, extracted, tc.Defaults)

	if missing := missingRequired(normalized, tc.RequiredCreateFields); len(missing) > 0 {
		return nil, agenterr.MissingParams("missing required fields: "+joinStrings(missing), nil)
	}

	duplicateWarning := false
	var duplicateRecordID string
	if tc.DedupeField != "" {
		if dedupeValue, ok := normalized[tc.DedupeField]; ok {
			result, err := c.client.SearchExact(ctx, table.TableID, tc.DedupeField, dedupeValue)
			if err == nil && result != nil && len(result.Records) > 0 {
				duplicateWarning = true
				duplicateRecordID = result.Records[0].RecordID
			}
		}
	}

	payload := map[string]any{
		"table_id":   table.TableID,
		"table_name": table.TableName,
		"fields":     normalized,
	}
	if duplicateWarning {
		payload["duplicate_warning"] = true
		payload["duplicate_record_id"] = duplicateRecordID
	}

	action := models.PendingAction{Action: "create_record", Payload: payload}
	if err := c.state.SetPendingAction(ctx, sc.UserID, action, pendingActionTTL); err != nil {
		return nil, err
	}

	data := map[string]any{"pending_action": true, "fields": normalized}
	if duplicateWarning {
		data["duplicate_warning"] = true
	}

	return &models.SkillResult{
		Success:   true,
		SkillName: CreateName,
		Data:      data,
		ReplyText: "请确认新增的记录信息。",
	}, nil
}

// Commit executes a confirmed create_record pending action: writes the
// record, syncs the active-record slot, and confirms the pending
// action's lifecycle.
func (c *Create) Commit(ctx context.Context, sc *models.SkillContext) (*models.SkillResult, error) {
	pending, err := c.state.GetPendingAction(ctx, sc.UserID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, agenterr.PendingActionNotFound("no pending create action")
	}
	if pending.Action != "create_record" {
		return nil, agenterr.PendingActionNotFound("pending action is not a create")
	}

	tableID, _ := pending.Payload["table_id"].(string)
	tableName, _ := pending.Payload["table_name"].(string)
	normalized, _ := pending.Payload["fields"].(map[string]any)

	metaByName, err := c.schema.RefreshBeforeWrite(ctx, c.appToken, tableID, fieldNames(normalized))
	if err != nil {
		return nil, err
	}
	fieldValues := buildFieldValues(normalized, metaByName)

	idemKey := idempotency.BusinessKey(tableID, "", normalized)
	if c.idem != nil && c.idem.IsDuplicateBusinessKey(idemKey) {
		return nil, agenterr.General("duplicate create request already applied", nil)
	}

	record, err := c.client.RecordCreate(ctx, tableID, fieldValues, idemKey)
	if err != nil {
		return nil, err
	}
	if c.idem != nil {
		c.idem.MarkBusinessKey(idemKey)
	}

	if _, err := c.state.ConfirmPendingAction(ctx, sc.UserID); err != nil {
		return nil, err
	}
	if err := c.state.SetActiveTable(ctx, sc.UserID, models.TableRef{TableID: tableID, TableName: tableName}); err != nil {
		return nil, err
	}
	if err := c.state.SetActiveRecord(ctx, sc.UserID, models.ActiveRecord{
		RecordID: record.RecordID, Record: record, TableID: tableID, TableName: tableName, Source: "mutation_commit",
	}); err != nil {
		return nil, err
	}

	return &models.SkillResult{
		Success:   true,
		SkillName: CreateName,
		Data:      map[string]any{"record": *record},
		ReplyText: "记录已新增。",
	}, nil
}

func joinStrings(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "、"
		}
		out += p
	}
	return out
}
