package models

import (
	"testing"
	"time"
)

func TestConversationStateIsEmpty(t *testing.T) {
	var s *ConversationState
	if !s.IsEmpty() {
		t.Error("nil state should be empty")
	}

	s = &ConversationState{UserID: "u1"}
	if !s.IsEmpty() {
		t.Error("state with no slots set should be empty")
	}

	s.ActiveTable = &TableRef{TableID: "tbl1"}
	if s.IsEmpty() {
		t.Error("state with an active table should not be empty")
	}
}

func TestConversationStateCloneIsolatesSlots(t *testing.T) {
	original := &ConversationState{
		UserID: "u1",
		PendingActionSlot: &PendingAction{
			Action:    "create_record",
			Payload:   map[string]any{"field": "value"},
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(5 * time.Minute),
			Status:    PendingActionProposed,
		},
		LastResult: &LastResultSlot{
			Records: []Record{{RecordID: "rec1"}},
			Query:   "open matters",
		},
	}

	clone := original.Clone()

	clone.PendingActionSlot.Payload["field"] = "mutated"
	clone.LastResult.Records[0].RecordID = "rec2"

	if original.PendingActionSlot.Payload["field"] != "value" {
		t.Error("mutating clone's pending action payload leaked into original")
	}
	if original.LastResult.Records[0].RecordID != "rec1" {
		t.Error("mutating clone's last result leaked into original")
	}
}

func TestPendingActionIsBatch(t *testing.T) {
	single := &PendingAction{Action: "create_record"}
	if single.IsBatch() {
		t.Error("single-record action should not report as batch")
	}

	batch := &PendingAction{
		Action:     "batch_close_records",
		Operations: []OperationEntry{{Index: 0, Status: OperationPending}},
	}
	if !batch.IsBatch() {
		t.Error("action with operations should report as batch")
	}
}
