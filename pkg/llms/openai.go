package llms

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements Provider against the real OpenAI chat
// completions API via the official SDK.
type OpenAIProvider struct {
	client openai.Client
	apiKey string
	models []ModelInfo
}

// NewOpenAIProvider creates a new OpenAI provider with the given API key.
// Returns nil if apiKey is empty, so callers can skip registering it.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	if apiKey == "" {
		if Logger.Debug().Enabled() {
			Logger.Debug().Msg("empty API key provided to OpenAI provider")
		}
		return nil
	}
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		apiKey: apiKey,
	}
}

func (p *OpenAIProvider) GetName() string { return "openai" }

func (p *OpenAIProvider) GetDescription() string {
	return "OpenAI chat completions API (GPT-4o and related models)"
}

func (p *OpenAIProvider) RequiresAPIKey() bool { return true }

// GetAvailableModels lists models from the OpenAI API, caching the result
// for the lifetime of the provider.
func (p *OpenAIProvider) GetAvailableModels(ctx context.Context) []ModelInfo {
	if len(p.models) > 0 {
		return p.models
	}

	page, err := p.client.Models.List(ctx)
	if err != nil {
		Logger.Error().Err(err).Msg("failed to list OpenAI models")
		return nil
	}

	var models []ModelInfo
	for _, m := range page.Data {
		models = append(models, ModelInfo{
			ID:           m.ID,
			Name:         m.ID,
			ProviderName: p.GetName(),
		})
	}
	p.models = models
	return models
}

// Complete sends a single-turn chat completion request, with an optional
// system prompt, and returns the assistant's reply.
func (p *OpenAIProvider) Complete(ctx context.Context, request CompletionRequest) (CompletionResponse, error) {
	if p.apiKey == "" {
		return CompletionResponse{}, errors.New("openai provider not initialized: missing API key")
	}
	if request.Prompt == "" {
		return CompletionResponse{}, fmt.Errorf("%w: prompt cannot be empty", ErrInvalidRequest)
	}

	model := request.Model
	if model == "" {
		model = openai.ChatModelGPT4o
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if request.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(request.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(request.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}
	if request.Temperature >= 0 {
		params.Temperature = openai.Float(request.Temperature)
	}
	if request.TopP > 0 {
		params.TopP = openai.Float(request.TopP)
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(request.MaxTokens))
	}
	if len(request.StopSequences) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: request.StopSequences}
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return CompletionResponse{}, errors.New("openai returned no choices")
	}

	choice := completion.Choices[0]
	return CompletionResponse{
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: TokenUsage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
		Model:    string(completion.Model),
		Provider: p.GetName(),
	}, nil
}
