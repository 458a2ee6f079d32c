package llmfacade

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/caseflow/agentd/internal/observability"
)

// FallbackFacade tries a primary Facade and falls back to the next one
// in order on error, marking a failing backend unhealthy for a cooldown
// window so repeated calls don't keep paying its latency. Generalized
// from routing.Router's candidate-list-with-health-cooldown pattern
// (internal/agent/routing/router.go), collapsed from N rule-matched
// candidates down to a simple ordered list since this facade has no
// per-request routing rules to evaluate.
type FallbackFacade struct {
	facades  []Facade
	cooldown time.Duration
	metrics  *observability.Metrics

	mu        sync.Mutex
	unhealthy map[string]time.Time
}

// NewFallbackFacade builds a FallbackFacade trying facades in order.
// cooldown of zero disables health tracking (every call tries facades
// in the same fixed order).
func NewFallbackFacade(facades []Facade, cooldown time.Duration, metrics *observability.Metrics) *FallbackFacade {
	return &FallbackFacade{
		facades:   facades,
		cooldown:  cooldown,
		metrics:   metrics,
		unhealthy: make(map[string]time.Time),
	}
}

func (f *FallbackFacade) Name() string {
	if len(f.facades) == 0 {
		return "fallback"
	}
	return "fallback:" + f.facades[0].Name()
}

func (f *FallbackFacade) ChatJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	var lastErr error
	for _, facade := range f.facades {
		if !f.isHealthy(facade.Name()) {
			continue
		}
		raw, err := facade.ChatJSON(ctx, system, user)
		if err == nil {
			return raw, nil
		}
		f.markUnhealthy(facade.Name())
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("llmfacade: no healthy backend available")
}

func (f *FallbackFacade) isHealthy(name string) bool {
	if f.cooldown <= 0 {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	until, ok := f.unhealthy[name]
	if !ok {
		return true
	}
	if time.Now().After(until) {
		delete(f.unhealthy, name)
		return true
	}
	return false
}

func (f *FallbackFacade) markUnhealthy(name string) {
	if f.cooldown <= 0 {
		return
	}
	f.mu.Lock()
	f.unhealthy[name] = time.Now().Add(f.cooldown)
	f.mu.Unlock()
}
