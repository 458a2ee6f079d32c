package llmfacade

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type fakeFacade struct {
	name string
	resp json.RawMessage
	err  error
	fn   func(ctx context.Context, system, user string) (json.RawMessage, error)
}

func (f *fakeFacade) Name() string { return f.name }

func (f *fakeFacade) ChatJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	if f.fn != nil {
		return f.fn(ctx, system, user)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestClassifyIntentParsesResponse(t *testing.T) {
	fake := &fakeFacade{name: "fake", resp: json.RawMessage(`{"table_name":"cases","confidence":0.9,"candidates":["cases","matters"]}`)}

	result, err := ClassifyIntent(context.Background(), fake, "show my cases", []string{"cases", "matters"})
	if err != nil {
		t.Fatalf("ClassifyIntent error: %v", err)
	}
	if result.TableName != "cases" || result.Confidence != 0.9 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestClassifyIntentPropagatesFacadeError(t *testing.T) {
	fake := &fakeFacade{name: "fake", err: errors.New("boom")}
	_, err := ClassifyIntent(context.Background(), fake, "query", nil)
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestExtractSlotsOmitsMissingKeys(t *testing.T) {
	fake := &fakeFacade{name: "fake", resp: json.RawMessage(`{"case_id":"ABCD-1234"}`)}
	result, err := ExtractSlots(context.Background(), fake, "case ABCD-1234", map[string]string{
		"case_id": "case identifier",
		"party":   "opposing party name",
	})
	if err != nil {
		t.Fatalf("ExtractSlots error: %v", err)
	}
	if _, ok := result["party"]; ok {
		t.Error("expected 'party' to be absent, not nulled")
	}
	if result["case_id"] != "ABCD-1234" {
		t.Errorf("unexpected case_id: %v", result["case_id"])
	}
}

func TestExtractJSONHandlesMarkdownFence(t *testing.T) {
	raw, err := extractJSON("```json\n{\"a\": 1}\n```")
	if err != nil {
		t.Fatalf("extractJSON error: %v", err)
	}
	var parsed map[string]any
	json.Unmarshal(raw, &parsed)
	if parsed["a"] != float64(1) {
		t.Errorf("unexpected parsed value: %+v", parsed)
	}
}

func TestExtractJSONHandlesLeadingSentence(t *testing.T) {
	raw, err := extractJSON(`Sure, here is the answer: {"table_name": "cases"}`)
	if err != nil {
		t.Fatalf("extractJSON error: %v", err)
	}
	var parsed map[string]any
	json.Unmarshal(raw, &parsed)
	if parsed["table_name"] != "cases" {
		t.Errorf("unexpected parsed value: %+v", parsed)
	}
}

func TestExtractJSONRejectsNoJSON(t *testing.T) {
	_, err := extractJSON("no json here")
	if err == nil {
		t.Fatal("expected error for text without JSON")
	}
}

func TestFallbackFacadeTriesNextOnError(t *testing.T) {
	primary := &fakeFacade{name: "primary", err: errors.New("down")}
	secondary := &fakeFacade{name: "secondary", resp: json.RawMessage(`{"ok":true}`)}
	fallback := NewFallbackFacade([]Facade{primary, secondary}, time.Minute, nil)

	raw, err := fallback.ChatJSON(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("ChatJSON error: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Errorf("unexpected response: %s", raw)
	}
}

func TestFallbackFacadeSkipsUnhealthyBackend(t *testing.T) {
	calls := 0
	primary := &fakeFacade{name: "primary", fn: func(ctx context.Context, system, user string) (json.RawMessage, error) {
		calls++
		return nil, errors.New("down")
	}}
	secondary := &fakeFacade{name: "secondary", resp: json.RawMessage(`{"ok":true}`)}
	fallback := NewFallbackFacade([]Facade{primary, secondary}, time.Minute, nil)

	fallback.ChatJSON(context.Background(), "sys", "user")
	fallback.ChatJSON(context.Background(), "sys", "user")

	if calls != 1 {
		t.Errorf("expected primary to be skipped on second call once unhealthy, got %d calls", calls)
	}
}

func TestFallbackFacadeReturnsErrorWhenAllFail(t *testing.T) {
	primary := &fakeFacade{name: "primary", err: errors.New("down")}
	secondary := &fakeFacade{name: "secondary", err: errors.New("also down")}
	fallback := NewFallbackFacade([]Facade{primary, secondary}, 0, nil)

	_, err := fallback.ChatJSON(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("expected error when all backends fail")
	}
}
