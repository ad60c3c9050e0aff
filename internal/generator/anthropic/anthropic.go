// Package anthropic generates answers with the Anthropic Messages API.
package anthropic

import (
	"context"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hieu7404/nlp-rag/internal/errs"
	"github.com/hieu7404/nlp-rag/internal/generator"
)

// Config holds Anthropic generator configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
	generator.Options
}

type Generator struct {
	client anthropicsdk.Client
	opts   generator.Options
}

// New creates a generator. Returns an error if the API key or model is missing.
func New(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errs.New(errs.CodeGenerationRequestInvalid, "anthropic generator: missing api key")
	}
	if cfg.Model == "" {
		return nil, errs.New(errs.CodeGenerationRequestInvalid, "anthropic generator: model is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Generator{
		client: anthropicsdk.NewClient(opts...),
		opts:   cfg.Options.WithDefaults(),
	}, nil
}

func (g *Generator) Name() string { return "anthropic/" + g.opts.Model }

// Generate sends prompt as one user turn and concatenates the text blocks
// of the reply.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(g.opts.Model),
		MaxTokens: int64(g.opts.MaxTokens),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
		},
		Temperature: anthropicsdk.Float(g.opts.Temperature),
	}
	msg, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeGenerationUpstreamFailure, "messages request failed", errs.FieldModel(g.opts.Model))
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errs.New(errs.CodeGenerationResponseInvalid, "messages response has no text", errs.FieldModel(g.opts.Model))
	}
	return b.String(), nil
}
