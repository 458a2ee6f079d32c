package llmfacade

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/caseflow/agentd/internal/agenterr"
	"github.com/caseflow/agentd/internal/observability"
)

// OpenAIFacade implements Facade against the Chat Completions API.
type OpenAIFacade struct {
	client  *openai.Client
	model   string
	metrics *observability.Metrics
}

// OpenAIConfig configures an OpenAIFacade.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// NewOpenAIFacade creates an OpenAIFacade.
func NewOpenAIFacade(cfg OpenAIConfig, metrics *observability.Metrics) (*OpenAIFacade, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llmfacade: openai API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIFacade{
		client:  openai.NewClient(cfg.APIKey),
		model:   model,
		metrics: metrics,
	}, nil
}

func (f *OpenAIFacade) Name() string { return "openai" }

func (f *OpenAIFacade) ChatJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	start := time.Now()
	resp, err := f.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: f.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if f.metrics != nil {
		f.metrics.RecordIntentParse("openai", time.Since(start).Seconds())
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, agenterr.Timeout("openai chat call timed out", err)
		}
		return nil, agenterr.ConnectionError("openai chat call failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, agenterr.General("openai chat call returned no choices", nil)
	}
	return extractJSON(resp.Choices[0].Message.Content)
}
