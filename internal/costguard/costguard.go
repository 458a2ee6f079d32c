// Package costguard implements the cost and rate guard (spec
// component #12): a rolling-window cost counter per (skill, hour) and
// (skill, day), with an optional circuit breaker that disables all LLM
// calls for the rest of the window once a failure threshold is
// crossed.
package costguard

import (
	"fmt"
	"sync"
	"time"

	"github.com/caseflow/agentd/internal/observability"
)

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

// PriceTable maps a price key (e.g. "anthropic:claude-sonnet-4") to
// per-token prices in the same currency unit as the configured limits.
type PriceTable struct {
	PromptTokenPrice     float64
	CompletionTokenPrice float64
}

// Usage is the LLM facade's call-cost metadata.
type Usage struct {
	PriceKey         string
	PromptTokens     int
	CompletionTokens int
}

// Decision is the outcome of CheckCallAllowed.
type Decision struct {
	Allowed   bool
	Guidance  string
	Tripped   bool // true when this check found the circuit breaker open
}

// Config bounds the guard's thresholds.
type Config struct {
	HourlyLimit      float64
	DailyLimit       float64
	CircuitBreakerOn bool
	FailureThreshold int
	CooldownPeriod   time.Duration
	Prices           map[string]PriceTable
}

type window struct {
	cost        float64
	resetAt     time.Time
	failures    int
	breakerUntil time.Time
}

// Guard is the rolling-window cost and rate guard.
type Guard struct {
	cfg     Config
	clock   Clock
	metrics *observability.Metrics

	mu      sync.Mutex
	hourly  map[string]*window
	daily   map[string]*window
}

// New creates a Guard. clock defaults to time.Now when nil.
func New(cfg Config, metrics *observability.Metrics, clock Clock) *Guard {
	if clock == nil {
		clock = time.Now
	}
	return &Guard{
		cfg:     cfg,
		clock:   clock,
		metrics: metrics,
		hourly:  make(map[string]*window),
		daily:   make(map[string]*window),
	}
}

// CheckCallAllowed reports whether skill may make an LLM call right
// now, given its rolling hourly/daily cost and (if enabled) a tripped
// circuit breaker.
func (g *Guard) CheckCallAllowed(skill string) Decision {
	if !g.cfg.CircuitBreakerOn && g.cfg.HourlyLimit <= 0 && g.cfg.DailyLimit <= 0 {
		g.recordDecision(skill, true)
		return Decision{Allowed: true}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	hourly := g.windowFor(g.hourly, skill, now, time.Hour)
	daily := g.windowFor(g.daily, skill, now, 24*time.Hour)

	if g.cfg.CircuitBreakerOn {
		if now.Before(hourly.breakerUntil) || now.Before(daily.breakerUntil) {
			g.recordDecisionLocked(skill, false)
			return Decision{Allowed: false, Guidance: "请求过于频繁，系统暂时限制了此操作，请稍后再试", Tripped: true}
		}
	}

	if g.cfg.HourlyLimit > 0 && hourly.cost >= g.cfg.HourlyLimit {
		g.recordDecisionLocked(skill, false)
		return Decision{Allowed: false, Guidance: "本小时的调用额度已用尽，请稍后再试"}
	}
	if g.cfg.DailyLimit > 0 && daily.cost >= g.cfg.DailyLimit {
		g.recordDecisionLocked(skill, false)
		return Decision{Allowed: false, Guidance: "今日的调用额度已用尽，请明天再试"}
	}

	g.recordDecisionLocked(skill, true)
	return Decision{Allowed: true}
}

// RecordUsage adds a successful call's cost to skill's rolling windows,
// trips the circuit breaker if this push crosses FailureThreshold
// consecutive over-limit recordings, and resets the failure counter on
// an under-limit recording.
func (g *Guard) RecordUsage(skill string, usage Usage) float64 {
	cost := g.cost(usage)

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	hourly := g.windowFor(g.hourly, skill, now, time.Hour)
	daily := g.windowFor(g.daily, skill, now, 24*time.Hour)

	hourly.cost += cost
	daily.cost += cost

	if g.cfg.CircuitBreakerOn && g.cfg.FailureThreshold > 0 {
		overLimit := (g.cfg.HourlyLimit > 0 && hourly.cost >= g.cfg.HourlyLimit) ||
			(g.cfg.DailyLimit > 0 && daily.cost >= g.cfg.DailyLimit)
		if overLimit {
			hourly.failures++
			daily.failures++
			if hourly.failures >= g.cfg.FailureThreshold {
				hourly.breakerUntil = now.Add(g.cfg.CooldownPeriod)
			}
			if daily.failures >= g.cfg.FailureThreshold {
				daily.breakerUntil = now.Add(g.cfg.CooldownPeriod)
			}
		} else {
			hourly.failures = 0
			daily.failures = 0
		}
	}

	return cost
}

func (g *Guard) cost(usage Usage) float64 {
	price, ok := g.cfg.Prices[usage.PriceKey]
	if !ok {
		return 0
	}
	return float64(usage.PromptTokens)*price.PromptTokenPrice + float64(usage.CompletionTokens)*price.CompletionTokenPrice
}

func (g *Guard) windowFor(buckets map[string]*window, skill string, now time.Time, period time.Duration) *window {
	key := bucketKey(skill, now, period)
	w, ok := buckets[key]
	if !ok {
		w = &window{resetAt: bucketStart(now, period).Add(period)}
		buckets[key] = w
	}
	return w
}

func bucketKey(skill string, now time.Time, period time.Duration) string {
	return fmt.Sprintf("%s:%d", skill, bucketStart(now, period).Unix())
}

func bucketStart(now time.Time, period time.Duration) time.Time {
	if period >= 24*time.Hour {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
}

func (g *Guard) recordDecision(skill string, allowed bool) {
	g.mu.Lock()
	g.recordDecisionLocked(skill, allowed)
	g.mu.Unlock()
}

func (g *Guard) recordDecisionLocked(skill string, allowed bool) {
	if g.metrics == nil {
		return
	}
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	g.metrics.RecordCostGuardDecision(skill, decision)
}
