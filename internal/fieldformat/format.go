// Package fieldformat implements the field formatter (spec component
// #6): a pure coercion from a backend-native field value plus its
// schema metadata into the text form the query skill and card renderer
// display.
package fieldformat

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caseflow/agentd/internal/bitable"
	"github.com/caseflow/agentd/internal/observability"
	"github.com/caseflow/agentd/pkg/models"
)

// Status classifies the outcome of a Format call.
type Status string

const (
	StatusOK          Status = "ok"
	StatusMissingMeta Status = "missing_meta"
	StatusMalformed   Status = "malformed"
)

// agentTimezone is the agent's fixed display timezone (UTC+8), used for
// every millisecond-timestamp coercion regardless of server locale.
var agentTimezone = time.FixedZone("UTC+8", 8*60*60)

// Formatter turns FieldValue/FieldMeta pairs into display text,
// recording a field_format_total{type,status} observation per call.
type Formatter struct {
	metrics *observability.Metrics
}

// New creates a Formatter. metrics may be nil in tests.
func New(metrics *observability.Metrics) *Formatter {
	return &Formatter{metrics: metrics}
}

// Format coerces value into display text given its field metadata.
// meta.Type may be empty, in which case the value's own Kind still
// drives the coercion but the returned status is missing_meta.
func (f *Formatter) Format(value models.FieldValue, meta bitable.FieldMeta) (text string, status Status) {
	defer func() {
		if f.metrics != nil {
			typeLabel := meta.Type
			if typeLabel == "" {
				typeLabel = "unknown"
			}
			f.metrics.RecordFieldFormat(typeLabel, string(status))
		}
	}()

	if meta.Type == "" {
		text, ok := formatValue(value)
		if !ok {
			return "", StatusMalformed
		}
		return text, StatusMissingMeta
	}

	text, ok := formatValue(value)
	if !ok {
		return "", StatusMalformed
	}
	return text, StatusOK
}

// formatValue does the actual Kind-driven coercion, independent of
// schema metadata. Returns ok=false for a Raw value this formatter
// can't make sense of.
func formatValue(value models.FieldValue) (string, bool) {
	switch value.Kind {
	case models.FieldValueNil:
		return "", true
	case models.FieldValueString, models.FieldValueRichText:
		return value.Str, true
	case models.FieldValueNumber:
		return strconv.FormatFloat(value.Num, 'f', -1, 64), true
	case models.FieldValueBool:
		if value.Bool {
			return "是", true
		}
		return "否", true
	case models.FieldValueMillisTimestamp:
		return formatMillisTimestamp(value.MillisTS), true
	case models.FieldValueOptions, models.FieldValuePersons:
		return formatOptions(value.Options), true
	case models.FieldValueRaw:
		return formatRaw(value.Raw)
	default:
		return "", false
	}
}

func formatMillisTimestamp(millis int64) string {
	t := time.UnixMilli(millis).In(agentTimezone)
	return t.Format("2006-01-02 15:04")
}

func formatOptions(options []models.FieldOption) string {
	names := make([]string, 0, len(options))
	for _, opt := range options {
		names = append(names, opt.Name)
	}
	return strings.Join(names, ", ")
}

// formatRaw handles the shapes convert.go couldn't classify as
// Options/Persons/RichText: plain string arrays (multi_select without
// id/name wrapper) and dict-shaped values carrying text/name.
func formatRaw(raw any) (string, bool) {
	switch typed := raw.(type) {
	case nil:
		return "", true
	case string:
		return typed, true
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			switch v := item.(type) {
			case string:
				parts = append(parts, v)
			case map[string]any:
				if s, ok := nestedTextOrName(v); ok {
					parts = append(parts, s)
				}
			default:
				parts = append(parts, fmt.Sprintf("%v", v))
			}
		}
		return strings.Join(parts, ", "), true
	case map[string]any:
		if s, ok := nestedTextOrName(typed); ok {
			return s, true
		}
		return "", false
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case bool:
		if typed {
			return "是", true
		}
		return "否", true
	default:
		return fmt.Sprintf("%v", typed), true
	}
}

func nestedTextOrName(obj map[string]any) (string, bool) {
	if text, ok := obj["text"].(string); ok {
		return text, true
	}
	if name, ok := obj["name"].(string); ok {
		return name, true
	}
	return "", false
}
