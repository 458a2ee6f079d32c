package bitable

import (
	"testing"

	"github.com/caseflow/agentd/pkg/models"
)

func TestToFieldValueScalars(t *testing.T) {
	cases := []struct {
		name string
		in   any
		kind models.FieldValueKind
	}{
		{"nil", nil, models.FieldValueNil},
		{"string", "hello", models.FieldValueString},
		{"bool", true, models.FieldValueBool},
		{"small number", float64(42), models.FieldValueNumber},
		{"large number as timestamp", float64(1735689600000), models.FieldValueMillisTimestamp},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := toFieldValue(tc.in)
			if got.Kind != tc.kind {
				t.Errorf("expected kind %v, got %v", tc.kind, got.Kind)
			}
		})
	}
}

func TestToFieldValueMultiSelectOptions(t *testing.T) {
	raw := []any{
		map[string]any{"id": "opt1", "name": "Open"},
		map[string]any{"id": "opt2", "name": "Closed"},
	}
	got := toFieldValue(raw)
	if got.Kind != models.FieldValueOptions {
		t.Fatalf("expected Options kind, got %v", got.Kind)
	}
	if len(got.Options) != 2 || got.Options[0].Name != "Open" {
		t.Errorf("unexpected options: %+v", got.Options)
	}
}

func TestToFieldValuePersonArray(t *testing.T) {
	raw := []any{
		map[string]any{"open_id": "ou_1", "name": "Alice"},
	}
	got := toFieldValue(raw)
	if got.Kind != models.FieldValuePersons {
		t.Fatalf("expected Persons kind, got %v", got.Kind)
	}
	if got.Options[0].Name != "Alice" {
		t.Errorf("expected Alice, got %q", got.Options[0].Name)
	}
}

func TestToFieldValueRichText(t *testing.T) {
	raw := map[string]any{"text": "full text body"}
	got := toFieldValue(raw)
	if got.Kind != models.FieldValueRichText || got.Str != "full text body" {
		t.Errorf("unexpected rich text conversion: %+v", got)
	}
}

func TestFromFieldValueRoundTripsScalars(t *testing.T) {
	fv := models.FieldValue{Kind: models.FieldValueString, Str: "abc"}
	if got := fromFieldValue(fv); got != "abc" {
		t.Errorf("expected abc, got %v", got)
	}

	fv = models.FieldValue{Kind: models.FieldValueMillisTimestamp, MillisTS: 1735689600000}
	if got := fromFieldValue(fv); got != int64(1735689600000) {
		t.Errorf("expected millis timestamp round trip, got %v", got)
	}
}

func TestFromFieldValueOptionsProducesNameList(t *testing.T) {
	fv := models.FieldValue{
		Kind: models.FieldValueOptions,
		Options: []models.FieldOption{
			{ID: "opt1", Name: "Open"},
			{ID: "opt2", Name: "Closed"},
		},
	}
	got := fromFieldValue(fv)
	names, ok := got.([]string)
	if !ok || len(names) != 2 || names[0] != "Open" {
		t.Errorf("unexpected option round trip: %+v", got)
	}
}

func TestToFieldValuesMapConversion(t *testing.T) {
	raw := map[string]any{
		"title": "Case A",
		"count": float64(3),
	}
	got := toFieldValues(raw)
	if len(got) != 2 {
		t.Fatalf("expected 2 converted fields, got %d", len(got))
	}
	if got["title"].Str != "Case A" {
		t.Errorf("unexpected title conversion: %+v", got["title"])
	}
}
