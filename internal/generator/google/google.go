// Package google generates answers with the Gemini API.
package google

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/hieu7404/nlp-rag/internal/errs"
	"github.com/hieu7404/nlp-rag/internal/generator"
)

// Config holds Gemini generator configuration.
type Config struct {
	APIKey  string
	BaseURL string
	generator.Options
}

type Generator struct {
	client *genai.Client
	opts   generator.Options
}

// New creates a generator. Returns an error if the API key or model is missing.
func New(ctx context.Context, cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errs.New(errs.CodeGenerationRequestInvalid, "google generator: missing api key")
	}
	if cfg.Model == "" {
		return nil, errs.New(errs.CodeGenerationRequestInvalid, "google generator: model is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeGenerationUpstreamFailure, "google generator: creating client")
	}
	return &Generator{client: client, opts: cfg.Options.WithDefaults()}, nil
}

func (g *Generator) Name() string { return "google/" + g.opts.Model }

// Generate sends prompt as a single user turn and joins the text parts of
// the first candidate.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.opts.Temperature)),
		MaxOutputTokens: int32(g.opts.MaxTokens),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.opts.Model, genai.Text(prompt), config)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeGenerationUpstreamFailure, "generate content request failed", errs.FieldModel(g.opts.Model))
	}
	var b strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", errs.New(errs.CodeGenerationResponseInvalid, "generate content response has no text", errs.FieldModel(g.opts.Model))
	}
	return b.String(), nil
}
