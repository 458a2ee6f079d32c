package bitable

import "github.com/caseflow/agentd/pkg/models"

// toFieldValues converts a raw decoded JSON fields map into the closed
// models.FieldValue variant type, so downstream code (field formatter,
// query resolution) never type-switches over bare any values.
func toFieldValues(raw map[string]any) map[string]models.FieldValue {
	out := make(map[string]models.FieldValue, len(raw))
	for name, value := range raw {
		out[name] = toFieldValue(value)
	}
	return out
}

func toFieldValue(value any) models.FieldValue {
	switch typed := value.(type) {
	case nil:
		return models.FieldValue{Kind: models.FieldValueNil}
	case string:
		return models.FieldValue{Kind: models.FieldValueString, Str: typed}
	case bool:
		return models.FieldValue{Kind: models.FieldValueBool, Bool: typed}
	case float64:
		if typed > 1e12 {
			return models.FieldValue{Kind: models.FieldValueMillisTimestamp, MillisTS: int64(typed)}
		}
		return models.FieldValue{Kind: models.FieldValueNumber, Num: typed}
	case int64:
		if typed > 1e12 {
			return models.FieldValue{Kind: models.FieldValueMillisTimestamp, MillisTS: typed}
		}
		return models.FieldValue{Kind: models.FieldValueNumber, Num: float64(typed)}
	case []any:
		return toFieldValueList(typed)
	case map[string]any:
		return toFieldValueObject(typed)
	default:
		return models.FieldValue{Kind: models.FieldValueRaw, Raw: value}
	}
}

func toFieldValueList(items []any) models.FieldValue {
	if len(items) == 0 {
		return models.FieldValue{Kind: models.FieldValueOptions, Options: nil}
	}

	options := make([]models.FieldOption, 0, len(items))
	allOptionShaped := true
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			allOptionShaped = false
			break
		}
		id, _ := obj["id"].(string)
		name, _ := obj["name"].(string)
		if name == "" {
			name, _ = obj["text"].(string)
		}
		options = append(options, models.FieldOption{ID: id, Name: name})
	}
	if allOptionShaped {
		kind := models.FieldValueOptions
		if hasOpenIDShape(items) {
			kind = models.FieldValuePersons
		}
		return models.FieldValue{Kind: kind, Options: options}
	}

	// Plain string array (multi_select without id/name wrapper) or
	// rich-text run array: preserve as raw, formatter decides.
	return models.FieldValue{Kind: models.FieldValueRaw, Raw: items}
}

func hasOpenIDShape(items []any) bool {
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := obj["open_id"]; ok {
			return true
		}
		if _, ok := obj["en_name"]; ok {
			return true
		}
	}
	return false
}

func toFieldValueObject(obj map[string]any) models.FieldValue {
	if text, ok := obj["text"].(string); ok {
		return models.FieldValue{Kind: models.FieldValueRichText, Str: text}
	}
	if name, ok := obj["name"].(string); ok {
		return models.FieldValue{Kind: models.FieldValueString, Str: name}
	}
	return models.FieldValue{Kind: models.FieldValueRaw, Raw: obj}
}

// fromFieldValues converts the closed variant type back into a raw map
// suitable for JSON-encoding on the write path.
func fromFieldValues(fields map[string]models.FieldValue) map[string]any {
	out := make(map[string]any, len(fields))
	for name, value := range fields {
		out[name] = fromFieldValue(value)
	}
	return out
}

func fromFieldValue(value models.FieldValue) any {
	switch value.Kind {
	case models.FieldValueNil:
		return nil
	case models.FieldValueString, models.FieldValueRichText:
		return value.Str
	case models.FieldValueNumber:
		return value.Num
	case models.FieldValueBool:
		return value.Bool
	case models.FieldValueMillisTimestamp:
		return value.MillisTS
	case models.FieldValueOptions, models.FieldValuePersons:
		names := make([]string, 0, len(value.Options))
		for _, opt := range value.Options {
			names = append(names, opt.Name)
		}
		return names
	case models.FieldValueRaw:
		return value.Raw
	default:
		return value.Raw
	}
}
