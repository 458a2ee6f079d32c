// Package llmfacade defines the narrow LLM-access surface the skills
// use for intent classification and slot extraction: ChatJSON,
// ClassifyIntent, ExtractSlots. Generalized from the teacher's
// agent.LLMProvider (internal/agent/provider_types.go), collapsing its
// streaming-chunk model down to a single parsed JSON response since
// nothing here needs token-by-token delivery.
package llmfacade

import (
	"context"
	"encoding/json"
	"fmt"
)

// Facade is the interface the query skill's planner/classifier stages
// and the mutation skills' slot extraction depend on.
type Facade interface {
	// Name identifies the backend for routing, metrics, and logging.
	Name() string

	// ChatJSON sends a system+user prompt pair and returns the raw JSON
	// text of the model's response, trusting the caller to unmarshal it
	// into whatever shape the prompt asked for.
	ChatJSON(ctx context.Context, system, user string) (json.RawMessage, error)
}

// IntentResult is ClassifyIntent's parsed response shape, mirroring
// spec §4.7 stage 1's table-disambiguation LLM call contract.
type IntentResult struct {
	TableName  string   `json:"table_name"`
	Confidence float64  `json:"confidence"`
	Candidates []string `json:"candidates"`
}

// ClassifyIntent asks f to pick the best-matching category for query
// out of categories, returning a confidence score and runner-up
// candidates. categories is rendered into the prompt verbatim; the
// model is instructed to respond with IntentResult-shaped JSON only.
func ClassifyIntent(ctx context.Context, f Facade, query string, categories []string) (*IntentResult, error) {
	system := "You are a strict classifier. Respond with a single JSON object matching " +
		`{"table_name": string, "confidence": number between 0 and 1, "candidates": string[]}` +
		". Do not include any other text."
	user := fmt.Sprintf("Categories: %v\nQuery: %s", categories, query)

	raw, err := f.ChatJSON(ctx, system, user)
	if err != nil {
		return nil, err
	}
	var result IntentResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("llmfacade: classify intent response was not valid JSON: %w", err)
	}
	return &result, nil
}

// ExtractSlots asks f to pull named slots out of query according to a
// field-name → description schema, returning a flat map of whatever
// slots it found. Missing slots are simply absent from the map, not
// nulled, so callers can use plain key lookups to test for presence.
func ExtractSlots(ctx context.Context, f Facade, query string, schema map[string]string) (map[string]any, error) {
	system := "You extract structured slots from a user query. Respond with a single flat JSON " +
		"object whose keys are exactly the requested slot names. Omit a key entirely if its value " +
		"isn't present in the query. Do not include any other text."
	user := fmt.Sprintf("Slots to extract (name: description): %v\nQuery: %s", schema, query)

	raw, err := f.ChatJSON(ctx, system, user)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("llmfacade: extract slots response was not valid JSON: %w", err)
	}
	return result, nil
}
