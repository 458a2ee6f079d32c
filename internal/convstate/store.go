// Package convstate implements the conversation state store and
// manager (spec component #5, §4.2): per-user state with
// independently-expiring slots, and the slot-level operations that
// enforce the PendingAction lifecycle invariants from spec §3.4.
package convstate

import (
	"context"
	"sync"

	"github.com/caseflow/agentd/pkg/models"
)

// Store is the minimal persistence contract for conversation state.
// The interface admits a network-backed implementation (see
// RedisStore); InMemoryStore is sufficient for a single process.
type Store interface {
	Get(ctx context.Context, userID string) (*models.ConversationState, error)
	Set(ctx context.Context, userID string, state *models.ConversationState) error
	Delete(ctx context.Context, userID string) error
}

// InMemoryStore is a mutex-guarded map implementation of Store.
type InMemoryStore struct {
	mu     sync.RWMutex
	states map[string]*models.ConversationState
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[string]*models.ConversationState)}
}

func (s *InMemoryStore) Get(_ context.Context, userID string) (*models.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[userID]
	if !ok {
		return &models.ConversationState{UserID: userID}, nil
	}
	return state.Clone(), nil
}

func (s *InMemoryStore) Set(_ context.Context, userID string, state *models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state == nil || state.IsEmpty() {
		delete(s.states, userID)
		return nil
	}
	s.states[userID] = state.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}

// Len reports the number of users currently holding non-empty state,
// used by the orchestrator's sweep step to update the active_sessions
// gauge.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// Range calls fn for every user currently holding state. fn must not
// call back into the store.
func (s *InMemoryStore) Range(fn func(userID string, state *models.ConversationState)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for userID, state := range s.states {
		fn(userID, state)
	}
}
