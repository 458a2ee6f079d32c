package convstate

import (
	"context"
	"time"

	"github.com/caseflow/agentd/internal/observability"
	"github.com/caseflow/agentd/pkg/models"
)

const (
	defaultSessionTTL       = 2 * time.Hour
	defaultLastResultTTL    = 600 * time.Second
	defaultPendingDeleteTTL = 300 * time.Second
	defaultPendingActionTTL = 300 * time.Second
	defaultPaginationTTL    = 600 * time.Second
)

// Clock abstracts time.Now so manager tests can control expiry without
// sleeping.
type Clock func() time.Time

// Manager wraps a Store with slot-level operations. It is the sole
// writer of conversation-state slots; skills only ever read a
// SkillContext.Extra snapshot taken at request start (spec §4.2).
type Manager struct {
	store  Store
	clock  Clock
	logger *observability.Logger

	sessionTTL       time.Duration
	lastResultTTL    time.Duration
	pendingDeleteTTL time.Duration
	pendingActionTTL time.Duration
	paginationTTL    time.Duration
}

// Config overrides the manager's default slot TTLs; zero values fall
// back to the spec §3.3 defaults.
type Config struct {
	SessionTTL       time.Duration
	LastResultTTL    time.Duration
	PendingDeleteTTL time.Duration
	PendingActionTTL time.Duration
	PaginationTTL    time.Duration
}

// NewManager creates a Manager over the given store.
func NewManager(store Store, cfg Config, logger *observability.Logger) *Manager {
	m := &Manager{
		store:            store,
		clock:            time.Now,
		logger:           logger,
		sessionTTL:       orDefault(cfg.SessionTTL, defaultSessionTTL),
		lastResultTTL:    orDefault(cfg.LastResultTTL, defaultLastResultTTL),
		pendingDeleteTTL: orDefault(cfg.PendingDeleteTTL, defaultPendingDeleteTTL),
		pendingActionTTL: orDefault(cfg.PendingActionTTL, defaultPendingActionTTL),
		paginationTTL:    orDefault(cfg.PaginationTTL, defaultPaginationTTL),
	}
	return m
}

func orDefault(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

// WithClock overrides the manager's time source; used by tests.
func (m *Manager) WithClock(c Clock) *Manager {
	m.clock = c
	return m
}

// load fetches state and expires any slot whose deadline has passed,
// per spec §4.2 step 2. An expired pending_action is appended to
// pending_action_history with status invalidated before the slot is
// cleared.
func (m *Manager) load(ctx context.Context, userID string) (*models.ConversationState, error) {
	state, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &models.ConversationState{UserID: userID}
	}

	now := m.clock()

	if state.LastResult != nil && !state.LastResultAt.IsZero() && now.After(state.LastResultAt.Add(m.lastResultTTL)) {
		state.LastResult = nil
	}
	if state.ActiveTable != nil && !state.ActiveTableAt.IsZero() && now.After(state.ActiveTableAt.Add(m.sessionTTL)) {
		state.ActiveTable = nil
	}
	if state.ActiveRecordSlot != nil && !state.ActiveRecordAt.IsZero() && now.After(state.ActiveRecordAt.Add(m.sessionTTL)) {
		state.ActiveRecordSlot = nil
	}
	if state.PendingDeleteSlot != nil && !state.PendingDeleteAt.IsZero() && now.After(state.PendingDeleteAt.Add(m.pendingDeleteTTL)) {
		state.PendingDeleteSlot = nil
	}
	if state.PaginationSlot != nil && !state.PaginationSlotAt.IsZero() && now.After(state.PaginationSlotAt.Add(m.paginationTTL)) {
		state.PaginationSlot = nil
	}
	if state.LastSkill != "" && !state.LastSkillAt.IsZero() && now.After(state.LastSkillAt.Add(m.sessionTTL)) {
		state.LastSkill = ""
	}
	if state.ReplyPreferencesSlot != nil && !state.ReplyPreferencesAt.IsZero() && now.After(state.ReplyPreferencesAt.Add(m.sessionTTL)) {
		state.ReplyPreferencesSlot = nil
	}

	if pa := state.PendingActionSlot; pa != nil && now.After(pa.ExpiresAt) {
		invalidated := *pa
		invalidated.Status = models.PendingActionInvalidated
		state.PendingActionHistory = append(state.PendingActionHistory, invalidated)
		state.PendingActionSlot = nil
		if m.logger != nil {
			m.logger.Info(ctx, "pending action expired", "user_id", userID, "action", pa.Action)
		}
	}

	return state, nil
}

func (m *Manager) writeBack(ctx context.Context, userID string, state *models.ConversationState) error {
	return m.store.Set(ctx, userID, state)
}

// GetActiveExtra builds the SkillContext.Extra snapshot a skill reads:
// active table/record, pending action, and pagination, after expiry
// has been applied.
func (m *Manager) GetActiveExtra(ctx context.Context, userID string) (map[string]any, error) {
	state, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := m.writeBack(ctx, userID, state); err != nil {
		return nil, err
	}

	extra := make(map[string]any)
	if state.ActiveTable != nil {
		extra["active_table_id"] = state.ActiveTable.TableID
		extra["active_table_name"] = state.ActiveTable.TableName
	}
	if state.ActiveRecordSlot != nil {
		extra["active_record"] = state.ActiveRecordSlot
	}
	if state.PendingActionSlot != nil {
		extra["pending_action"] = state.PendingActionSlot
	}
	if state.PaginationSlot != nil {
		extra["pagination"] = state.PaginationSlot
	}
	if state.ReplyPreferencesSlot != nil {
		extra["reply_preferences"] = state.ReplyPreferencesSlot
	}
	return extra, nil
}

// SetLastSkill records the most recently dispatched skill name.
func (m *Manager) SetLastSkill(ctx context.Context, userID, skill string) error {
	state, err := m.load(ctx, userID)
	if err != nil {
		return err
	}
	state.LastSkill = skill
	state.LastSkillAt = m.clock()
	return m.writeBack(ctx, userID, state)
}

// SetLastResult records the records from a successful query plus the
// query text that produced them.
func (m *Manager) SetLastResult(ctx context.Context, userID string, records []models.Record, query string) error {
	state, err := m.load(ctx, userID)
	if err != nil {
		return err
	}
	state.LastResult = &models.LastResultSlot{Records: records, Query: query}
	state.LastResultAt = m.clock()
	return m.writeBack(ctx, userID, state)
}

// SetActiveTable records the table most recently queried or mutated.
func (m *Manager) SetActiveTable(ctx context.Context, userID string, table models.TableRef) error {
	state, err := m.load(ctx, userID)
	if err != nil {
		return err
	}
	state.ActiveTable = &table
	state.ActiveTableAt = m.clock()
	return m.writeBack(ctx, userID, state)
}

// SetActiveRecord records the single record a query/mutation resolved
// to.
func (m *Manager) SetActiveRecord(ctx context.Context, userID string, record models.ActiveRecord) error {
	state, err := m.load(ctx, userID)
	if err != nil {
		return err
	}
	state.ActiveRecordSlot = &record
	state.ActiveRecordAt = m.clock()
	return m.writeBack(ctx, userID, state)
}

// SetPagination records a resumable multi-page query cursor.
func (m *Manager) SetPagination(ctx context.Context, userID string, pagination models.PaginationSlot) error {
	state, err := m.load(ctx, userID)
	if err != nil {
		return err
	}
	state.PaginationSlot = &pagination
	state.PaginationSlotAt = m.clock()
	return m.writeBack(ctx, userID, state)
}

// SetReplyPreferences records the user's tone/length personalization
// knobs.
func (m *Manager) SetReplyPreferences(ctx context.Context, userID string, prefs models.ReplyPreferences) error {
	state, err := m.load(ctx, userID)
	if err != nil {
		return err
	}
	state.ReplyPreferencesSlot = &prefs
	state.ReplyPreferencesAt = m.clock()
	return m.writeBack(ctx, userID, state)
}

// SetPendingAction proposes a new pending action. Invariant 1 (spec
// §3.4): at most one pending_action per user. If an unexpired one
// already exists it is replaced and appended to history with status
// invalidated.
func (m *Manager) SetPendingAction(ctx context.Context, userID string, action models.PendingAction, ttl time.Duration) error {
	state, err := m.load(ctx, userID)
	if err != nil {
		return err
	}

	if state.PendingActionSlot != nil {
		invalidated := *state.PendingActionSlot
		invalidated.Status = models.PendingActionInvalidated
		state.PendingActionHistory = append(state.PendingActionHistory, invalidated)
	}

	now := m.clock()
	effectiveTTL := ttl
	if effectiveTTL <= 0 {
		effectiveTTL = m.pendingActionTTL
	}
	action.CreatedAt = now
	action.ExpiresAt = now.Add(effectiveTTL)
	action.Status = models.PendingActionProposed

	state.PendingActionSlot = &action
	return m.writeBack(ctx, userID, state)
}

// GetPendingAction returns the live pending action for userID, or nil
// if none exists or the existing one has lapsed (in which case load
// has already moved it to history).
func (m *Manager) GetPendingAction(ctx context.Context, userID string) (*models.PendingAction, error) {
	state, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := m.writeBack(ctx, userID, state); err != nil {
		return nil, err
	}
	return state.PendingActionSlot, nil
}

// ConfirmPendingAction transitions the live pending action to executed
// and moves it to history. Returns agenterr-classified nil, nil if
// there was nothing to confirm (caller maps that to
// pending_action_not_found / pending_action_expired).
func (m *Manager) ConfirmPendingAction(ctx context.Context, userID string) (*models.PendingAction, error) {
	state, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state.PendingActionSlot == nil {
		if err := m.writeBack(ctx, userID, state); err != nil {
			return nil, err
		}
		return nil, nil
	}

	confirmed := *state.PendingActionSlot
	confirmed.Status = models.PendingActionExecuted
	state.PendingActionHistory = append(state.PendingActionHistory, confirmed)
	state.PendingActionSlot = nil

	if err := m.writeBack(ctx, userID, state); err != nil {
		return nil, err
	}
	return &confirmed, nil
}

// CancelPendingAction transitions the live pending action to
// invalidated and moves it to history.
func (m *Manager) CancelPendingAction(ctx context.Context, userID string) (*models.PendingAction, error) {
	state, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state.PendingActionSlot == nil {
		if err := m.writeBack(ctx, userID, state); err != nil {
			return nil, err
		}
		return nil, nil
	}

	cancelled := *state.PendingActionSlot
	cancelled.Status = models.PendingActionInvalidated
	state.PendingActionHistory = append(state.PendingActionHistory, cancelled)
	state.PendingActionSlot = nil

	if err := m.writeBack(ctx, userID, state); err != nil {
		return nil, err
	}
	return &cancelled, nil
}

// UpdatePendingActionOperations overwrites the live pending action's
// Operations list, used by the callback handler to record per-entry
// succeeded/failed/skipped transitions during batch execution (and on
// retry, per invariant 5: only failed/skipped entries are reset to
// pending, succeeded entries are never touched).
func (m *Manager) UpdatePendingActionOperations(ctx context.Context, userID string, operations []models.OperationEntry) error {
	state, err := m.load(ctx, userID)
	if err != nil {
		return err
	}
	if state.PendingActionSlot == nil {
		return m.writeBack(ctx, userID, state)
	}
	state.PendingActionSlot.Operations = operations
	return m.writeBack(ctx, userID, state)
}

// RetryPendingAction resets only failed/skipped operations to pending,
// leaving succeeded ones untouched (invariant 5).
func RetryPendingAction(action *models.PendingAction) {
	for i := range action.Operations {
		switch action.Operations[i].Status {
		case models.OperationFailed, models.OperationSkipped:
			action.Operations[i].Status = models.OperationPending
			action.Operations[i].ErrorCode = ""
			action.Operations[i].ErrorDetail = ""
		}
	}
}

// SetPendingDelete records the legacy single-record delete
// confirmation slot.
func (m *Manager) SetPendingDelete(ctx context.Context, userID string, pd models.PendingDelete) error {
	state, err := m.load(ctx, userID)
	if err != nil {
		return err
	}
	state.PendingDeleteSlot = &pd
	state.PendingDeleteAt = m.clock()
	return m.writeBack(ctx, userID, state)
}

// ClearPendingDelete removes the legacy pending-delete slot after it
// has been acted on.
func (m *Manager) ClearPendingDelete(ctx context.Context, userID string) error {
	state, err := m.load(ctx, userID)
	if err != nil {
		return err
	}
	state.PendingDeleteSlot = nil
	return m.writeBack(ctx, userID, state)
}

// Delete removes all state held for userID.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	return m.store.Delete(ctx, userID)
}
