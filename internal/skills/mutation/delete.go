package mutation

import (
	"context"
	"strings"

	"github.com/caseflow/agentd/internal/agenterr"
	"github.com/caseflow/agentd/internal/idempotency"
	"github.com/caseflow/agentd/pkg/models"
)

// DeleteName is the delete skill's registry name.
const DeleteName = "delete"

// Delete implements the propose/commit flow for deleting a record.
type Delete struct{ base }

// NewDelete builds the delete skill.
func NewDelete(deps Deps) *Delete { return &Delete{base: newBase(deps)} }

// Name implements skillregistry.Skill.
func (d *Delete) Name() string { return DeleteName }

// Execute proposes a delete: resolve the target record and build a
// delete.confirm payload carrying the table's configured warning text,
// suggested alternative, and danger button styling.
func (d *Delete) Execute(ctx context.Context, sc *models.SkillContext) (*models.SkillResult, error) {
	table, err := d.resolveTable(sc)
	if err != nil {
		return nil, err
	}
	tc := d.cfg.tableConfig(table.TableName)

	record, err := d.resolveTargetRecord(ctx, sc, table.TableID)
	if err != nil {
		return nil, err
	}

	summary := buildSummary(record, tc.SummaryFields)

	payload := map[string]any{
		"table_id":              table.TableID,
		"table_name":            table.TableName,
		"record_id":             record.RecordID,
		"summary":               summary,
		"warning_text":          tc.Delete.WarningText,
		"suggested_alternative": tc.Delete.SuggestedAlternative,
		"confirm_button_type":   tc.Delete.ConfirmButtonType,
	}

	action := models.PendingAction{Action: "delete_record", Payload: payload}
	if err := d.state.SetPendingAction(ctx, sc.UserID, action, pendingActionTTL); err != nil {
		return nil, err
	}

	return &models.SkillResult{
		Success:   true,
		SkillName: DeleteName,
		Data: map[string]any{
			"pending_delete":        true,
			"summary":               summary,
			"warning_text":          tc.Delete.WarningText,
			"suggested_alternative": tc.Delete.SuggestedAlternative,
		},
		ReplyText: "请确认删除该记录：" + summary,
	}, nil
}

func buildSummary(record *models.Record, fields []string) string {
	if len(fields) == 0 {
		return record.RecordID
	}
	var parts []string
	for _, f := range fields {
		if text := record.FieldsText[f]; text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return record.RecordID
	}
	return strings.Join(parts, " / ")
}

// Commit executes a confirmed delete_record pending action.
func (d *Delete) Commit(ctx context.Context, sc *models.SkillContext) (*models.SkillResult, error) {
	pending, err := d.state.GetPendingAction(ctx, sc.UserID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, agenterr.PendingActionNotFound("no pending delete action")
	}
	if pending.Action != "delete_record" {
		return nil, agenterr.PendingActionNotFound("pending action is not a delete")
	}

	tableID, _ := pending.Payload["table_id"].(string)
	recordID, _ := pending.Payload["record_id"].(string)
	summary, _ := pending.Payload["summary"].(string)

	idemKey := idempotency.BusinessKey(tableID, recordID, map[string]any{"deleted": true})
	if d.idem != nil && d.idem.IsDuplicateBusinessKey(idemKey) {
		return nil, agenterr.General("duplicate delete request already applied", nil)
	}

	if err := d.client.RecordDelete(ctx, tableID, recordID, idemKey); err != nil {
		return nil, err
	}
	if d.idem != nil {
		d.idem.MarkBusinessKey(idemKey)
	}

	if _, err := d.state.ConfirmPendingAction(ctx, sc.UserID); err != nil {
		return nil, err
	}

	return &models.SkillResult{
		Success:   true,
		SkillName: DeleteName,
		ReplyText: "记录已删除：" + summary,
	}, nil
}

// Cancel cancels a proposed delete without executing it.
func (d *Delete) Cancel(ctx context.Context, sc *models.SkillContext) (*models.SkillResult, error) {
	cancelled, err := d.state.CancelPendingAction(ctx, sc.UserID)
	if err != nil {
		return nil, err
	}
	if cancelled == nil {
		return nil, agenterr.PendingActionNotFound("no pending delete action to cancel")
	}
	return &models.SkillResult{
		Success:   true,
		SkillName: DeleteName,
		Data:      map[string]any{"cancelled": true},
		ReplyText: "已取消删除。",
	}, nil
}
