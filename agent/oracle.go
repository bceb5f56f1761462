package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Planner providers.
const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

// ErrMissingAPIKey is returned by an OpenAI oracle configured without a key.
var ErrMissingAPIKey = errors.New("no api key")

// Oracle turns a system and user message into model text.
type Oracle interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewOracle builds the oracle selected by cfg.Provider.
func NewOracle(ctx context.Context, cfg Config) (Oracle, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		return NewOpenAIOracle(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model), nil
	case ProviderBedrock:
		return NewBedrockOracle(ctx, cfg.BedrockRegion, cfg.Model, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unsupported planner provider: %s", cfg.Provider)
	}
}

// Unavailable is an oracle whose every request fails with err, so a run
// without a usable model still goes through the fallback path.
func Unavailable(err error) Oracle {
	return unavailableOracle{err: err}
}

type unavailableOracle struct {
	err error
}

func (u unavailableOracle) Complete(ctx context.Context, system, user string) (string, error) {
	return "", u.err
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIOracle calls an OpenAI-compatible chat completions endpoint.
type OpenAIOracle struct {
	client chatCompleter
	model  string
	hasKey bool
}

// NewOpenAIOracle creates an oracle for model. baseURL may be empty.
func NewOpenAIOracle(apiKey, baseURL, model string) *OpenAIOracle {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIOracle{
		client: openai.NewClientWithConfig(config),
		model:  model,
		hasKey: apiKey != "",
	}
}

// Complete sends one deterministic chat completion request.
func (o *OpenAIOracle) Complete(ctx context.Context, system, user string) (string, error) {
	if !o.hasKey {
		return "", ErrMissingAPIKey
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		// go-openai drops a zero temperature from the request.
		Temperature: math.SmallestNonzeroFloat32,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
