package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hieu7404/nlp-rag/internal/domain"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, s.handleHealth)

	huma.Register(s.api, huma.Operation{
		OperationID: "retrieve",
		Method:      http.MethodPost,
		Path:        "/v1/retrieve",
		Summary:     "Retrieve the passages closest to a question",
		Tags:        []string{"rag"},
	}, s.handleRetrieve)

	huma.Register(s.api, huma.Operation{
		OperationID: "prompt",
		Method:      http.MethodPost,
		Path:        "/v1/prompt",
		Summary:     "Build the augmented prompt for a question",
		Tags:        []string{"rag"},
	}, s.handlePrompt)

	huma.Register(s.api, huma.Operation{
		OperationID: "answer",
		Method:      http.MethodPost,
		Path:        "/v1/answer",
		Summary:     "Answer a question",
		Tags:        []string{"rag"},
	}, s.handleAnswer)
}

// --- Request/Response types for huma ---

type healthOutput struct {
	Body struct {
		Status string `json:"status" example:"ok"`
		Chunks int    `json:"chunks"`
		Model  string `json:"model"`
	}
}

type questionInput struct {
	Body struct {
		Question string `json:"question" minLength:"1" doc:"Question to answer"`
		TopK     int    `json:"top_k,omitempty" minimum:"0" doc:"Number of passages; 0 selects the server default"`
	}
}

// PassageView is one retrieved passage in API responses.
type PassageView struct {
	Rank     int     `json:"rank"`
	Position int     `json:"position"`
	Distance float32 `json:"distance"`
	Text     string  `json:"text"`
}

type retrieveOutput struct {
	Body struct {
		Passages []PassageView `json:"passages"`
	}
}

type promptOutput struct {
	Body struct {
		Prompt   string        `json:"prompt"`
		Passages []PassageView `json:"passages"`
	}
}

type answerOutput struct {
	Body struct {
		Prompt   string        `json:"prompt"`
		Answer   string        `json:"answer"`
		Passages []PassageView `json:"passages"`
	}
}

func passageViews(passages []domain.Passage) []PassageView {
	out := make([]PassageView, len(passages))
	for i, p := range passages {
		out[i] = PassageView{Rank: p.Rank, Position: p.Position, Distance: p.Distance, Text: p.Text}
	}
	return out
}

func (s *Server) handleHealth(_ context.Context, _ *struct{}) (*healthOutput, error) {
	out := &healthOutput{}
	out.Body.Status = "ok"
	out.Body.Chunks = s.cfg.Chunks
	out.Body.Model = s.cfg.Model
	return out, nil
}

func (s *Server) handleRetrieve(ctx context.Context, in *questionInput) (*retrieveOutput, error) {
	passages, err := s.rag.Retrieve(ctx, in.Body.Question, in.Body.TopK)
	if err != nil {
		return nil, apiError(err)
	}
	out := &retrieveOutput{}
	out.Body.Passages = passageViews(passages)
	return out, nil
}

func (s *Server) handlePrompt(ctx context.Context, in *questionInput) (*promptOutput, error) {
	passages, prompt, err := s.rag.Prompt(ctx, in.Body.Question, in.Body.TopK)
	if err != nil {
		return nil, apiError(err)
	}
	out := &promptOutput{}
	out.Body.Prompt = prompt
	out.Body.Passages = passageViews(passages)
	return out, nil
}

func (s *Server) handleAnswer(ctx context.Context, in *questionInput) (*answerOutput, error) {
	res, err := s.rag.Answer(ctx, in.Body.Question, in.Body.TopK)
	if err != nil {
		return nil, apiError(err)
	}
	out := &answerOutput{}
	out.Body.Prompt = res.Prompt
	out.Body.Answer = res.Answer
	out.Body.Passages = passageViews(res.Passages)
	return out, nil
}
