package costguard

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestCheckCallAllowedWithNoLimitsConfigured(t *testing.T) {
	g := New(Config{}, nil, fixedClock(time.Now()))
	decision := g.CheckCallAllowed("query")
	if !decision.Allowed {
		t.Error("expected allowed when no limits configured")
	}
}

func TestHourlyLimitBlocksOnceExceeded(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	g := New(Config{
		HourlyLimit: 10,
		Prices:      map[string]PriceTable{"test": {PromptTokenPrice: 1, CompletionTokenPrice: 1}},
	}, nil, fixedClock(now))

	g.RecordUsage("query", Usage{PriceKey: "test", PromptTokens: 5, CompletionTokens: 5})

	decision := g.CheckCallAllowed("query")
	if decision.Allowed {
		t.Error("expected hourly limit to block the call")
	}
	if decision.Guidance == "" {
		t.Error("expected a guidance message")
	}
}

func TestDifferentSkillsHaveIndependentWindows(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	g := New(Config{
		HourlyLimit: 10,
		Prices:      map[string]PriceTable{"test": {PromptTokenPrice: 1, CompletionTokenPrice: 1}},
	}, nil, fixedClock(now))

	g.RecordUsage("query", Usage{PriceKey: "test", PromptTokens: 10, CompletionTokens: 0})

	if g.CheckCallAllowed("query").Allowed {
		t.Error("expected query skill to be blocked")
	}
	if !g.CheckCallAllowed("mutate").Allowed {
		t.Error("expected mutate skill to remain allowed")
	}
}

func TestWindowResetsInNextHour(t *testing.T) {
	hour1 := time.Date(2026, 1, 1, 10, 30, 0, 0, time.UTC)
	g := New(Config{
		HourlyLimit: 10,
		Prices:      map[string]PriceTable{"test": {PromptTokenPrice: 1, CompletionTokenPrice: 1}},
	}, nil, fixedClock(hour1))

	g.RecordUsage("query", Usage{PriceKey: "test", PromptTokens: 10, CompletionTokens: 0})
	if g.CheckCallAllowed("query").Allowed {
		t.Fatal("expected blocked within the same hour")
	}

	hour2 := time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC)
	g.clock = fixedClock(hour2)
	if !g.CheckCallAllowed("query").Allowed {
		t.Error("expected allowed again in the next hour window")
	}
}

func TestCircuitBreakerTripsAfterFailureThreshold(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	g := New(Config{
		HourlyLimit:      10,
		CircuitBreakerOn: true,
		FailureThreshold: 2,
		CooldownPeriod:   time.Minute,
		Prices:           map[string]PriceTable{"test": {PromptTokenPrice: 1, CompletionTokenPrice: 1}},
	}, nil, fixedClock(now))

	g.RecordUsage("query", Usage{PriceKey: "test", PromptTokens: 10, CompletionTokens: 0})
	g.RecordUsage("query", Usage{PriceKey: "test", PromptTokens: 10, CompletionTokens: 0})

	decision := g.CheckCallAllowed("query")
	if decision.Allowed || !decision.Tripped {
		t.Errorf("expected circuit breaker to be tripped, got %+v", decision)
	}
}

func TestRecordUsageComputesCostFromPriceTable(t *testing.T) {
	now := time.Now()
	g := New(Config{
		Prices: map[string]PriceTable{"anthropic:claude": {PromptTokenPrice: 0.01, CompletionTokenPrice: 0.02}},
	}, nil, fixedClock(now))

	cost := g.RecordUsage("query", Usage{PriceKey: "anthropic:claude", PromptTokens: 100, CompletionTokens: 50})
	want := 100*0.01 + 50*0.02
	if cost != want {
		t.Errorf("expected cost %v, got %v", want, cost)
	}
}

func TestUnknownPriceKeyCostsZero(t *testing.T) {
	g := New(Config{Prices: map[string]PriceTable{}}, nil, fixedClock(time.Now()))
	cost := g.RecordUsage("query", Usage{PriceKey: "unknown", PromptTokens: 100, CompletionTokens: 50})
	if cost != 0 {
		t.Errorf("expected zero cost for unknown price key, got %v", cost)
	}
}
