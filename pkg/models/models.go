// Package models holds the value types shared across the orchestrator,
// skills, card renderer, and callback handler: the per-request context,
// per-response result, the conversation state slots, and the backend
// record shape.
package models

import "time"

// SkillContext is the per-request value passed into a skill's Execute
// call. It carries the raw user text plus a snapshot of resolved
// conversation context taken at request start; skills never read the
// conversation state store directly.
type SkillContext struct {
	// Query is the raw user text for this turn.
	Query string

	// UserID is channel-scoped. For group chats it is namespaced as
	// "channel:group:{chat_id}:user:{open_id}" so per-user state stays
	// isolated within a shared group conversation.
	UserID string

	// LastResult is the most recent skill data payload, if any.
	LastResult map[string]any

	// LastSkill names the skill that produced LastResult.
	LastSkill string

	// Extra holds resolved context: active_table_id/name, active_record,
	// pending_action snapshot, chat metadata, user profile, resolved
	// date range, planner plan, pagination cursor, complexity/route
	// labels.
	Extra map[string]any
}

// ReplyType distinguishes a plain-text reply from a structured card
// reply.
type ReplyType string

const (
	ReplyText ReplyType = "text"
	ReplyCard ReplyType = "card"
)

// SkillResult is the per-response value a skill returns to the
// orchestrator.
type SkillResult struct {
	Success bool

	SkillName string

	// Data is the structured payload: records, pagination, pending
	// action, close_semantic, error_code, and skill-specific fields.
	Data map[string]any

	// Message is internal/log-oriented, not shown to the end user.
	Message string

	// ReplyText is the human-oriented plaintext fallback.
	ReplyText string

	ReplyType ReplyType

	// ReplyCard is set when ReplyType is ReplyCard; it carries whatever
	// structured card payload the card renderer assembled.
	ReplyCard map[string]any
}

// TableRef identifies a table by id and display name.
type TableRef struct {
	TableID   string
	TableName string
}

// ActiveRecord is the conversation-state slot set when a query returns
// exactly one record, or immediately after a create/update commits.
type ActiveRecord struct {
	RecordID  string
	Record    *Record
	TableID   string
	TableName string

	// Source names which operation populated this slot, e.g.
	// "query_single_match" or "mutation_commit".
	Source string
}

// PendingDelete is the legacy single-record delete confirmation slot,
// kept alongside the general PendingAction protocol for the plain
// "delete this record" path that doesn't build a full diff payload.
type PendingDelete struct {
	RecordID string
	Summary  string
	TableID  string
}

// LastResultSlot stores the records from the last successful query
// alongside the query text that produced them, so a later turn ("show
// me the third one") can be resolved against it.
type LastResultSlot struct {
	Records []Record
	Query   string
}

// PaginationSlot tracks a resumable multi-page query.
type PaginationSlot struct {
	Tool        string
	Params      map[string]any
	PageToken   string
	CurrentPage int
	Total       int
}

// ReplyPreferences holds the per-user personalization knobs read by the
// card renderer's personalization pass.
type ReplyPreferences struct {
	Tone   string
	Length string
}

// PendingActionStatus is the lifecycle state of a PendingAction.
type PendingActionStatus string

const (
	PendingActionProposed    PendingActionStatus = "proposed"
	PendingActionExecuted    PendingActionStatus = "executed"
	PendingActionInvalidated PendingActionStatus = "invalidated"
)

// OperationStatus is the lifecycle state of one entry within a batch
// PendingAction.
type OperationStatus string

const (
	OperationPending   OperationStatus = "pending"
	OperationSucceeded OperationStatus = "succeeded"
	OperationFailed    OperationStatus = "failed"
	OperationSkipped   OperationStatus = "skipped"
)

// OperationEntry is one item of a batch PendingAction's Operations list.
// Indices are dense (0..n-1) for the lifetime of the batch.
type OperationEntry struct {
	Index   int
	Payload map[string]any
	Status  OperationStatus

	ErrorCode   string
	ErrorDetail string

	ExecutedAt *time.Time
}

// PendingAction is the confirmation-protocol heart of the state
// machine: a proposed mutation awaiting explicit user confirmation.
//
// Invariants enforced by internal/convstate, not by this type itself:
// at most one pending_action per user; expires_at > created_at; confirm
// or cancel transitions status and moves the entry to history; batch
// retries only reset failed/skipped entries, never succeeded ones.
type PendingAction struct {
	// Action names the mutation kind: "create_record", "update_record",
	// "close_record", "delete_record", "create_reminder",
	// "batch_update_records", "batch_close_records",
	// "batch_delete_records".
	Action string

	// Payload is the action-specific proposal: fields, diff, record_id,
	// and whatever else the proposing skill attached.
	Payload map[string]any

	// Operations is empty for a single-record action and populated for
	// a batch action.
	Operations []OperationEntry

	CreatedAt time.Time
	ExpiresAt time.Time
	Status    PendingActionStatus
}

// IsBatch reports whether this PendingAction carries per-operation
// entries rather than acting on Payload directly.
func (p *PendingAction) IsBatch() bool {
	return len(p.Operations) > 0
}

// FieldValueKind discriminates the variant held by a FieldValue.
type FieldValueKind int

const (
	FieldValueNil FieldValueKind = iota
	FieldValueString
	FieldValueNumber
	FieldValueBool
	FieldValueMillisTimestamp
	FieldValueOptions
	FieldValuePersons
	FieldValueRichText
	FieldValueRaw
)

// FieldOption is one entry of a single/multi-select or person field.
type FieldOption struct {
	ID   string
	Name string
}

// FieldValue is a closed tagged-variant type modeling the backend's
// polymorphic field value shapes (strings, numbers, option arrays,
// person tuples, millisecond timestamps, rich-text blobs), in place of
// an untyped map/any so the field formatter can exhaustively switch
// over Kind instead of type-asserting blindly.
type FieldValue struct {
	Kind FieldValueKind

	Str      string
	Num      float64
	Bool     bool
	MillisTS int64
	Options  []FieldOption

	// Raw holds anything that didn't fit a known shape, preserved
	// verbatim so formatting can fall back to a generic stringify
	// without losing data.
	Raw any
}

// Record is one row returned from or written to the backend.
type Record struct {
	RecordID  string
	RecordURL string

	// Fields carries backend-native values keyed by field name.
	Fields map[string]FieldValue

	// FieldsText is the text-coerced rendering of Fields produced by
	// the schema-aware formatter (internal/fieldformat).
	FieldsText map[string]string

	TableID   string
	TableName string
}

// Block is one rendering primitive of a RenderedResponse. Exactly one
// of Paragraph or KVList is populated, discriminated by Kind.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockKVList    BlockKind = "kv_list"
)

// KVItem is one key/value row of a BlockKVList.
type KVItem struct {
	Key   string
	Value string
}

type Block struct {
	Kind BlockKind

	// Text is populated when Kind is BlockParagraph.
	Text string

	// Items is populated when Kind is BlockKVList.
	Items []KVItem
}

// CardTemplateRef selects and parameterizes a card template for
// channels that render structured cards rather than plain text.
type CardTemplateRef struct {
	TemplateID string
	Version    string
	Params     map[string]any
}

// RenderedResponse is the terminal output of the orchestrator pipeline.
// The channel adapter renders Blocks+CardTemplate when the channel
// supports cards, falling back to TextFallback otherwise.
type RenderedResponse struct {
	TextFallback string
	Blocks       []Block
	Meta         map[string]any
	CardTemplate *CardTemplateRef
}

// ResolutionTraceEntry records one stage of the query-resolution
// pipeline's attempt sequence, surfaced in SkillResult.Data["debug"]
// for observability and test assertions.
type ResolutionTraceEntry struct {
	Source     string
	Status     string
	DurationMS int64
}
