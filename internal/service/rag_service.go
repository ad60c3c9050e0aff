// Package service wires the retrieval core to generators, batch files and
// index builds.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hieu7404/nlp-rag/internal/domain"
	"github.com/hieu7404/nlp-rag/internal/errs"
	"github.com/hieu7404/nlp-rag/internal/generator"
	"github.com/hieu7404/nlp-rag/internal/records"
	"github.com/hieu7404/nlp-rag/internal/retriever"
)

// Options control how questions are answered.
type Options struct {
	// UseRAG augments the question with retrieved context. Without it the bare
	// question goes to the generator.
	UseRAG bool
	TopK   int
}

// Result is the outcome of answering one question.
type Result struct {
	Question string
	Passages []domain.Passage
	Prompt   string
	Answer   string
}

// RAGService answers questions with a retriever and a generator. It holds no
// per-query state.
type RAGService struct {
	retriever *retriever.Retriever
	generator domain.Generator
	opts      Options
}

func NewRAGService(r *retriever.Retriever, g domain.Generator, opts Options) (*RAGService, error) {
	if r == nil || g == nil {
		return nil, errs.New(errs.CodeConfigValidateInvalidValue, "service requires a retriever and a generator")
	}
	return &RAGService{retriever: r, generator: g, opts: opts}, nil
}

func (s *RAGService) Retriever() *retriever.Retriever { return s.retriever }

func (s *RAGService) Generator() domain.Generator { return s.generator }

// Retrieve returns the cleaned passages for question.
func (s *RAGService) Retrieve(ctx context.Context, question string, topK int) ([]domain.Passage, error) {
	if topK <= 0 {
		topK = s.opts.TopK
	}
	return s.retriever.Retrieve(ctx, question, topK)
}

// Prompt returns the passages and the augmented prompt for question.
func (s *RAGService) Prompt(ctx context.Context, question string, topK int) ([]domain.Passage, string, error) {
	passages, err := s.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, "", err
	}
	prompt, err := s.retriever.BuildPrompt(question, passages)
	if err != nil {
		return nil, "", err
	}
	return passages, prompt, nil
}

// Answer runs retrieval and generation for question. When retrieval finds
// nothing the fallback string is both prompt and answer and the generator
// is not called.
func (s *RAGService) Answer(ctx context.Context, question string, topK int) (Result, error) {
	res := Result{Question: question}
	if !s.opts.UseRAG {
		res.Prompt = question
		answer, err := s.generate(ctx, question)
		if err != nil {
			return res, err
		}
		res.Answer = answer
		return res, nil
	}

	passages, prompt, err := s.Prompt(ctx, question, topK)
	if err != nil {
		return res, err
	}
	res.Passages = passages
	res.Prompt = prompt
	if len(passages) == 0 {
		res.Answer = s.retriever.Fallback()
		return res, nil
	}

	if g, ok := s.generator.(generator.Grounded); ok {
		answer, err := g.Answer(ctx, question, passages)
		if err != nil {
			return res, err
		}
		res.Answer = answer
		return res, nil
	}
	answer, err := s.generate(ctx, prompt)
	if err != nil {
		return res, err
	}
	res.Answer = answer
	return res, nil
}

func (s *RAGService) generate(ctx context.Context, prompt string) (string, error) {
	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return generator.ExtractAnswer(raw, s.retriever.AnswerCue()), nil
}

// BatchConfig names the files of a batch run.
type BatchConfig struct {
	Questions  string
	Results    string
	Answers    string
	SkipFailed bool
}

// BatchReport counts the outcome of a batch run.
type BatchReport struct {
	Total  int
	Failed int
}

// RunBatch answers every record in order, filling RAGPrompt and RAGAnswer.
// The first failure stops the run unless skipFailed is set, in which case
// the record keeps an empty answer.
func (s *RAGService) RunBatch(ctx context.Context, recs []records.Record, skipFailed bool) (BatchReport, error) {
	report := BatchReport{Total: len(recs)}
	for i := range recs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := s.Answer(ctx, recs[i].Question, 0)
		if err != nil {
			if !skipFailed {
				return report, errs.Annotate(err, fmt.Sprintf("question %d", i), errs.Field("index", i))
			}
			report.Failed++
			slog.Warn("question failed, continuing", "index", i, "error", err)
			recs[i].RAGPrompt = res.Prompt
			recs[i].RAGAnswer = ""
			continue
		}
		recs[i].RAGPrompt = res.Prompt
		recs[i].RAGAnswer = res.Answer
		slog.Debug("question answered", "index", i, "answer", res.Answer)
	}
	return report, nil
}

// RunFiles reads the questions file, answers it and writes the results and
// answers files.
func (s *RAGService) RunFiles(ctx context.Context, cfg BatchConfig) (BatchReport, error) {
	recs, err := records.Load(cfg.Questions)
	if err != nil {
		return BatchReport{}, err
	}
	slog.Info("questions loaded", "path", cfg.Questions, "count", len(recs))
	report, err := s.RunBatch(ctx, recs, cfg.SkipFailed)
	if err != nil {
		return report, err
	}
	if cfg.Results != "" {
		if err := records.WriteResults(cfg.Results, recs); err != nil {
			return report, err
		}
	}
	if cfg.Answers != "" {
		if err := records.WriteAnswers(cfg.Answers, recs); err != nil {
			return report, err
		}
	}
	slog.Info("batch finished", "total", report.Total, "failed", report.Failed,
		"results", cfg.Results, "answers", cfg.Answers)
	return report, nil
}
