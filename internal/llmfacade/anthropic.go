package llmfacade

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/caseflow/agentd/internal/agenterr"
	"github.com/caseflow/agentd/internal/observability"
)

// AnthropicFacade implements Facade against Claude's Messages API.
type AnthropicFacade struct {
	client  anthropic.Client
	model   string
	metrics *observability.Metrics
}

// AnthropicConfig configures an AnthropicFacade.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewAnthropicFacade creates an AnthropicFacade.
func NewAnthropicFacade(cfg AnthropicConfig, metrics *observability.Metrics) (*AnthropicFacade, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llmfacade: anthropic API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicFacade{
		client:  anthropic.NewClient(options...),
		model:   model,
		metrics: metrics,
	}, nil
}

func (f *AnthropicFacade) Name() string { return "anthropic" }

func (f *AnthropicFacade) ChatJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	start := time.Now()
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(f.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		System: []anthropic.TextBlockParam{{Type: "text", Text: system}},
	}

	message, err := f.client.Messages.New(ctx, params)
	if f.metrics != nil {
		f.metrics.RecordIntentParse("anthropic", time.Since(start).Seconds())
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, agenterr.Timeout("anthropic chat call timed out", err)
		}
		return nil, agenterr.ConnectionError("anthropic chat call failed", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return extractJSON(text.String())
}
