package analyst

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentdesk/agentdesk/pkg/types"
)

// AnthropicConfig configures the Anthropic recommender
type AnthropicConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int64
	// MaxRetries overrides the SDK default when >= 0
	MaxRetries int
}

// AnthropicRecommender asks a Claude model for a recommendation
type AnthropicRecommender struct {
	client anthropic.Client
	config AnthropicConfig
}

func NewAnthropicRecommender(config AnthropicConfig) (*AnthropicRecommender, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	if config.Model == "" {
		config.Model = "claude-3-5-haiku-latest"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 300
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(config.MaxRetries))
	}
	return &AnthropicRecommender{
		client: anthropic.NewClient(opts...),
		config: config,
	}, nil
}

func (a *AnthropicRecommender) Name() string { return "anthropic:" + a.config.Model }

func (a *AnthropicRecommender) Recommend(ctx context.Context, req *types.JobRequest) (*types.Recommendation, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.config.Model),
		MaxTokens: a.config.MaxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(req))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	rec, err := parseRecommendation(text.String())
	if err != nil {
		return nil, err
	}
	return capToHoldings(rec, req), nil
}
