// Package bitable implements the backend client (spec component #4)
// and schema cache (component #5): typed operations against the
// external low-code record store, with schema metadata cached per
// (app_token, table_id) and refreshed on invalidation, on a search
// response carrying schema, or lazily before a write.
package bitable

import (
	"context"
	"time"

	"github.com/caseflow/agentd/pkg/models"
)

// SearchResult is the common envelope every search-family operation
// returns: records plus paging state.
type SearchResult struct {
	Records   []models.Record
	HasMore   bool
	PageToken string
	Total     int
}

// AdvancedCondition is one {field, op, value} triple combined by
// search_advanced's conjunction.
type AdvancedCondition struct {
	Field string
	Op    string // "is" | "contains" | "isGreater" | "isLess" | ...
	Value any
}

// Conjunction controls how search_advanced combines its conditions.
type Conjunction string

const (
	ConjunctionAnd Conjunction = "and"
	ConjunctionOr  Conjunction = "or"
)

// FieldMeta is the schema metadata for one field: its declared type,
// used by the field formatter (internal/fieldformat) and by the write
// path to coerce user-supplied values.
type FieldMeta struct {
	Name string
	Type string // "text" | "number" | "date" | "single_select" | "multi_select" | "person" | ...
}

// Client is the narrow, typed interface the query and mutation skills
// depend on. A concrete implementation talks to the actual low-code
// backend over HTTP; tests use an in-memory fake.
type Client interface {
	ListTables(ctx context.Context, appToken string) ([]models.TableRef, error)
	ListFields(ctx context.Context, tableID string) ([]FieldMeta, error)

	Search(ctx context.Context, tableID string, view string, ignoreDefaultView bool, pageSize int, pageToken string) (*SearchResult, error)
	SearchExact(ctx context.Context, tableID, field string, value any) (*SearchResult, error)
	SearchKeyword(ctx context.Context, tableID, keyword string, fields []string) (*SearchResult, error)
	SearchPerson(ctx context.Context, tableID, field, openID, userName string) (*SearchResult, error)
	SearchDateRange(ctx context.Context, tableID, field string, from, to time.Time, timeFrom, timeTo string) (*SearchResult, error)
	SearchAdvanced(ctx context.Context, tableID string, conditions []AdvancedCondition, conjunction Conjunction) (*SearchResult, error)

	RecordGet(ctx context.Context, tableID, recordID string) (*models.Record, error)
	RecordCreate(ctx context.Context, tableID string, fields map[string]models.FieldValue, idempotencyKey string) (*models.Record, error)
	RecordUpdate(ctx context.Context, tableID, recordID string, fields map[string]models.FieldValue, idempotencyKey string) (*models.Record, error)
	RecordDelete(ctx context.Context, tableID, recordID string, idempotencyKey string) error
}
