// Package openai generates answers with an OpenAI-compatible chat
// completions endpoint.
package openai

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hieu7404/nlp-rag/internal/errs"
	"github.com/hieu7404/nlp-rag/internal/generator"
)

// Config holds the chat endpoint configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional; empty means api.openai.com
	generator.Options
}

// Generator sends the prompt as a single user message.
type Generator struct {
	client *openai.Client
	opts   generator.Options
}

func New(cfg Config) (*Generator, error) {
	if cfg.Model == "" {
		return nil, errs.New(errs.CodeGenerationRequestInvalid, "openai generator: model is required")
	}
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errs.New(errs.CodeGenerationRequestInvalid, "openai generator: missing api key", errs.FieldModel(cfg.Model))
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		opts:   cfg.Options.WithDefaults(),
	}, nil
}

func (g *Generator) Name() string { return "openai/" + g.opts.Model }

// Generate returns the content of the first choice.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   g.opts.MaxTokens,
		Temperature: float32(g.opts.Temperature),
	})
	if err != nil {
		return "", errs.Wrap(err, errs.CodeGenerationUpstreamFailure, "chat completion failed", errs.FieldModel(g.opts.Model))
	}
	if len(resp.Choices) == 0 {
		return "", errs.New(errs.CodeGenerationResponseInvalid, "chat completion returned no choices", errs.FieldModel(g.opts.Model))
	}
	return resp.Choices[0].Message.Content, nil
}
