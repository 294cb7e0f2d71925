package analyst

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/agentdesk/agentdesk/pkg/types"
)

// OpenAIConfig configures the OpenAI recommender
type OpenAIConfig struct {
	APIKey      string
	Model       string  // defaults to gpt-4o-mini
	BaseURL     string  // optional, for proxies and tests
	Temperature float32 // defaults to 0.2
	MaxTokens   int     // defaults to 300
}

// OpenAIRecommender asks a chat completion model for a recommendation
type OpenAIRecommender struct {
	client *openai.Client
	config OpenAIConfig
}

func NewOpenAIRecommender(config OpenAIConfig) (*OpenAIRecommender, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 300
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIRecommender{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

func (o *OpenAIRecommender) Name() string { return "openai:" + o.config.Model }

func (o *OpenAIRecommender) Recommend(ctx context.Context, req *types.JobRequest) (*types.Recommendation, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
		Temperature: o.config.Temperature,
		MaxTokens:   o.config.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	rec, err := parseRecommendation(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return capToHoldings(rec, req), nil
}
