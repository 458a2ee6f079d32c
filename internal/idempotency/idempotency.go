// Package idempotency implements the idempotency store (spec component
// #2): two monotonic TTL sets guarding against re-processing the same
// inbound event twice and against re-applying the same business
// mutation twice, per the at-least-once-delivery contract.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/caseflow/agentd/internal/ttlcache"
)

const (
	defaultEventTTL    = 10 * time.Minute
	defaultBusinessTTL = 10 * time.Minute
)

// Store tracks two independent "seen key" sets. Stores are monotonic:
// there is no explicit delete, only TTL expiry via Sweep.
type Store struct {
	events    *ttlcache.Cache
	business  *ttlcache.Cache
	eventTTL  time.Duration
	bizTTL    time.Duration
}

// Options configures the event and business key TTLs.
type Options struct {
	EventTTL    time.Duration
	BusinessTTL time.Duration
	MaxSize     int
	Clock       ttlcache.Clock
}

// New creates an idempotency Store.
func New(opts Options) *Store {
	eventTTL := opts.EventTTL
	if eventTTL <= 0 {
		eventTTL = defaultEventTTL
	}
	bizTTL := opts.BusinessTTL
	if bizTTL <= 0 {
		bizTTL = defaultBusinessTTL
	}

	return &Store{
		events:   ttlcache.New(ttlcache.Options{MaxSize: opts.MaxSize, Clock: opts.Clock}),
		business: ttlcache.New(ttlcache.Options{MaxSize: opts.MaxSize, Clock: opts.Clock}),
		eventTTL: eventTTL,
		bizTTL:   bizTTL,
	}
}

// IsDuplicateEvent reports whether eventID was already marked, without
// extending its TTL.
func (s *Store) IsDuplicateEvent(eventID string) bool {
	if eventID == "" {
		return false
	}
	return s.events.Contains(eventID)
}

// MarkEvent records eventID as seen for the event TTL window.
func (s *Store) MarkEvent(eventID string) {
	if eventID == "" {
		return
	}
	s.events.Set(eventID, true, s.eventTTL)
}

// IsDuplicateBusinessKey reports whether the business key was already
// marked, without extending its TTL.
func (s *Store) IsDuplicateBusinessKey(key string) bool {
	if key == "" {
		return false
	}
	return s.business.Contains(key)
}

// MarkBusinessKey records key as seen for the business TTL window.
func (s *Store) MarkBusinessKey(key string) {
	if key == "" {
		return
	}
	s.business.Set(key, true, s.bizTTL)
}

// Sweep evicts expired entries from both sets, returning the combined
// count removed. Intended to be driven by internal/scheduler.
func (s *Store) Sweep(now time.Time) int {
	return s.events.Sweep(now) + s.business.Sweep(now)
}

// BusinessKey builds the hash of (table, record, changed-field-map)
// used to detect semantically duplicate mutations: two callbacks that
// differ only in event id but propose the identical change collapse
// to the same business key.
func BusinessKey(table, record string, changedFields map[string]any) string {
	names := make([]string, 0, len(changedFields))
	for k := range changedFields {
		names = append(names, k)
	}
	sort.Strings(names)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|", table, record)
	for _, name := range names {
		fmt.Fprintf(h, "%s=%v;", name, changedFields[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}
