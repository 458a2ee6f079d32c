package mutation

import (
	"context"

	"github.com/caseflow/agentd/internal/agenterr"
	"github.com/caseflow/agentd/internal/bitable"
	"github.com/caseflow/agentd/internal/llmfacade"
	"github.com/caseflow/agentd/pkg/models"
)

// extractFields implements propose step 1: ask the LLM facade (when
// configured) for a flat slot map describing which schema fields the
// utterance sets, keyed by field name. Without an LLM facade callers
// fall back to whatever slots sc.Extra already carries under
// "extracted_fields" — useful for tests and for channel adapters that
// pre-parse structured input (forms, slash-command args).
func (b *base) extractFields(ctx context.Context, sc *models.SkillContext, fields []bitable.FieldMeta) (map[string]any, error) {
	if b.llm == nil {
		if pre, ok := sc.Extra["extracted_fields"].(map[string]any); ok {
			return pre, nil
		}
		return map[string]any{}, nil
	}

	schema := make(map[string]string, len(fields))
	for _, f := range fields {
		schema[f.Name] = f.Type
	}
	return llmfacade.ExtractSlots(ctx, b.llm, sc.Query, schema)
}

// validateAndDefault implements propose step 2: drop any extracted
// slot that doesn't name a real schema field, then populate any
// configured default the slot set still leaves unset.
func validateAndDefault(fields []bitable.FieldMeta, extracted map[string]any, defaults map[string]string) map[string]any {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Name] = true
	}

	normalized := make(map[string]any, len(extracted)+len(defaults))
	for name, value := range extracted {
		if known[name] {
			normalized[name] = value
		}
	}
	for name, value := range defaults {
		if _, set := normalized[name]; !set {
			normalized[name] = value
		}
	}
	return normalized
}

// missingRequired returns the subset of required that normalized still
// leaves unset, for the create-proposal validation step.
func missingRequired(normalized map[string]any, required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := normalized[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// toFieldValue coerces a raw extracted slot value (string/float64/bool
// from JSON, or a pre-typed models.FieldValue from a channel adapter)
// into the typed FieldValue the backend write path expects. meta is
// unused for now — every known schema text type writes as plain
// FieldValueString — but kept in the signature so a future field type
// needing special coercion doesn't require touching every call site.
func toFieldValue(value any, meta bitable.FieldMeta) models.FieldValue {
	switch v := value.(type) {
	case models.FieldValue:
		return v
	case nil:
		return models.FieldValue{Kind: models.FieldValueNil}
	case string:
		return models.FieldValue{Kind: models.FieldValueString, Str: v}
	case float64:
		return models.FieldValue{Kind: models.FieldValueNumber, Num: v}
	case bool:
		return models.FieldValue{Kind: models.FieldValueBool, Bool: v}
	default:
		return models.FieldValue{Kind: models.FieldValueRaw, Raw: v}
	}
}

// buildFieldValues converts every entry of normalized into a typed
// FieldValue, looking up each field's schema metadata by name.
func buildFieldValues(normalized map[string]any, metaByName map[string]bitable.FieldMeta) map[string]models.FieldValue {
	out := make(map[string]models.FieldValue, len(normalized))
	for name, value := range normalized {
		out[name] = toFieldValue(value, metaByName[name])
	}
	return out
}

// fieldNames returns the keys of normalized, used to drive
// SchemaCache.RefreshBeforeWrite ahead of a commit's backend write.
func fieldNames(normalized map[string]any) []string {
	names := make([]string, 0, len(normalized))
	for name := range normalized {
		names = append(names, name)
	}
	return names
}

// resolveTargetRecord implements propose step 3 for update/close/delete:
// prefer the conversation's active_record slot, falling back to a fresh
// point query by record id carried in sc.Extra["target_record_id"].
func (b *base) resolveTargetRecord(ctx context.Context, sc *models.SkillContext, tableID string) (*models.Record, error) {
	if active, ok := sc.Extra["active_record"].(models.ActiveRecord); ok && active.Record != nil && active.TableID == tableID {
		return active.Record, nil
	}
	recordID, _ := sc.Extra["target_record_id"].(string)
	if recordID == "" {
		return nil, agenterr.MissingParams("no active record or target_record_id to operate on", nil)
	}
	record, err := b.client.RecordGet(ctx, tableID, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, agenterr.RecordNotFound("record not found", nil)
	}
	return record, nil
}
