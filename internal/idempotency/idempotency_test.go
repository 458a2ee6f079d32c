package idempotency

import (
	"testing"
	"time"
)

func TestEventDedup(t *testing.T) {
	s := New(Options{})

	if s.IsDuplicateEvent("evt1") {
		t.Error("unseen event should not be a duplicate")
	}

	s.MarkEvent("evt1")
	if !s.IsDuplicateEvent("evt1") {
		t.Error("marked event should be a duplicate")
	}
}

func TestBusinessKeyDedup(t *testing.T) {
	s := New(Options{})

	key := BusinessKey("cases", "rec1", map[string]any{"status": "closed"})
	if s.IsDuplicateBusinessKey(key) {
		t.Error("unseen business key should not be a duplicate")
	}

	s.MarkBusinessKey(key)
	if !s.IsDuplicateBusinessKey(key) {
		t.Error("marked business key should be a duplicate")
	}
}

func TestBusinessKeyIsOrderIndependent(t *testing.T) {
	a := BusinessKey("cases", "rec1", map[string]any{"status": "closed", "owner": "alice"})
	b := BusinessKey("cases", "rec1", map[string]any{"owner": "alice", "status": "closed"})

	if a != b {
		t.Error("business key should not depend on map iteration order")
	}
}

func TestBusinessKeyDiffersOnValue(t *testing.T) {
	a := BusinessKey("cases", "rec1", map[string]any{"status": "closed"})
	b := BusinessKey("cases", "rec1", map[string]any{"status": "open"})

	if a == b {
		t.Error("different changed values should produce different business keys")
	}
}

func TestEmptyKeysAreNeverDuplicates(t *testing.T) {
	s := New(Options{})
	s.MarkEvent("")
	s.MarkBusinessKey("")

	if s.IsDuplicateEvent("") || s.IsDuplicateBusinessKey("") {
		t.Error("empty keys should never register as duplicates")
	}
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	s := New(Options{EventTTL: time.Second, BusinessTTL: time.Second})
	s.MarkEvent("evt1")

	removed := s.Sweep(time.Now().Add(2 * time.Second))
	if removed == 0 {
		t.Error("expected sweep to remove the expired event entry")
	}
	if s.IsDuplicateEvent("evt1") {
		t.Error("expected event to no longer register as duplicate after sweep")
	}
}
