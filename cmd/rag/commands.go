package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hieu7404/nlp-rag/internal/errs"
	"github.com/hieu7404/nlp-rag/internal/evaluate"
	"github.com/hieu7404/nlp-rag/internal/records"
	"github.com/hieu7404/nlp-rag/internal/server"
	"github.com/hieu7404/nlp-rag/internal/service"
	"github.com/hieu7404/nlp-rag/internal/tui"
)

func newIndexCmd(a *app) *cobra.Command {
	var out, backend string
	cmd := &cobra.Command{
		Use:   "index [files...]",
		Short: "Chunk and embed a corpus and write the index",
		Long:  "Reads .txt and .pdf files (glob patterns allowed), chunks and embeds them and replaces the configured index.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out != "" {
				a.cfg.Index.Path = out
			}
			if backend != "" {
				a.cfg.Index.Backend = backend
			}
			ix, err := buildIndexer(a.cfg)
			if err != nil {
				return err
			}
			report, err := ix.Build(cmd.Context(), args)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Indexed %d document(s) into %d chunk(s) in %s\n", report.Documents, report.Chunks, report.Elapsed.Round(time.Millisecond))
			fmt.Fprintf(w, "Model: %s (dimension %d)\n", report.Model, report.Dimension)
			fmt.Fprintf(w, "Index: %s [%s]\n", report.Path, report.Backend)
			if report.Summary != "" {
				fmt.Fprintf(w, "\nSummary:\n%s\n", report.Summary)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "index path (overrides index.path)")
	cmd.Flags().StringVar(&backend, "backend", "", "index backend: flat or sqlite (overrides index.backend)")
	return cmd
}

func newQueryCmd(a *app) *cobra.Command {
	var topK int
	var promptOnly, showPassages bool
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer one question against the index",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := requireArg(args, "question")
			if err != nil {
				return err
			}
			rt, err := openRuntime(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			w := cmd.OutOrStdout()
			if promptOnly {
				_, prompt, err := rt.svc.Prompt(cmd.Context(), question, topK)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, prompt)
				return nil
			}
			res, err := rt.svc.Answer(cmd.Context(), question, topK)
			if err != nil {
				return err
			}
			if showPassages {
				for _, p := range res.Passages {
					fmt.Fprintf(w, "[%d] position=%d distance=%.4f %s\n", p.Rank, p.Position, p.Distance, p.Text)
				}
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, res.Answer)
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "passages to retrieve (default retriever.top_k)")
	cmd.Flags().BoolVar(&promptOnly, "prompt-only", false, "print the augmented prompt instead of answering")
	cmd.Flags().BoolVar(&showPassages, "passages", false, "print the retrieved passages before the answer")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var questions, results, answers string
	var skipFailed bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Answer every question of a batch file",
		Long:  "Reads a JSON array of {question, reference_answer, ...} records, answers them in order and writes the results and answers files.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			batch := service.BatchConfig{
				Questions:  a.cfg.Batch.Questions,
				Results:    a.cfg.Batch.Results,
				Answers:    a.cfg.Batch.Answers,
				SkipFailed: a.cfg.Batch.SkipFailed || skipFailed,
			}
			if questions != "" {
				batch.Questions = questions
			}
			if results != "" {
				batch.Results = results
			}
			if answers != "" {
				batch.Answers = answers
			}
			rt, err := openRuntime(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			report, err := rt.svc.RunFiles(cmd.Context(), batch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Answered %d question(s), %d failed\nResults: %s\nAnswers: %s\n",
				report.Total-report.Failed, report.Failed, batch.Results, batch.Answers)
			return nil
		},
	}
	cmd.Flags().StringVar(&questions, "questions", "", "questions file (overrides batch.questions)")
	cmd.Flags().StringVar(&results, "results", "", "results file (overrides batch.results)")
	cmd.Flags().StringVar(&answers, "answers", "", "answers file (overrides batch.answers)")
	cmd.Flags().BoolVar(&skipFailed, "skip-failed", false, "continue past questions that fail")
	return cmd
}

func newEvalCmd(a *app) *cobra.Command {
	var questions, answers string
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Compare predicted answers with reference answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if questions == "" {
				questions = a.cfg.Batch.Questions
			}
			if answers == "" {
				answers = a.cfg.Batch.Answers
			}
			recs, err := records.Load(questions)
			if err != nil {
				return err
			}
			refs := make([]string, len(recs))
			for i, r := range recs {
				refs[i] = r.ReferenceAnswer
			}
			preds, err := records.ReadAnswers(answers)
			if err != nil {
				return err
			}
			report, err := evaluate.Compare(refs, preds)
			if err != nil {
				// reported, the command itself succeeds
				if errs.HasCode(err, errs.CodeEvalCountMismatch) {
					fmt.Fprintf(cmd.OutOrStdout(), "Cannot evaluate: %d reference answer(s) but %d prediction(s)\n", len(refs), len(preds))
					return nil
				}
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), evaluate.Render(report))
			return nil
		},
	}
	cmd.Flags().StringVar(&questions, "questions", "", "questions file with reference answers (overrides batch.questions)")
	cmd.Flags().StringVar(&answers, "answers", "", "answers file (overrides batch.answers)")
	return cmd
}

func newChatCmd(a *app) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			meta := rt.store.Meta()
			summary := fmt.Sprintf("%d chunks | model %s | generator %s", rt.store.Len(), meta.Model, rt.svc.Generator().Name())
			m := tui.New(cmd.Context(), rt.svc, topK, summary)
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "passages to retrieve (default retriever.top_k)")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the retrieval API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := openRuntime(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv, err := server.New(rt.svc, server.Config{
				ListenAddr:  addr,
				CORSOrigins: a.cfg.Server.CORSOrigins,
				Version:     version,
				Chunks:      rt.store.Len(),
				Model:       rt.store.Meta().Model,
			})
			if err != nil {
				return err
			}
			return srv.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", a.cfgPath, strings.TrimLeft(a.cfg.String(), "\n"))
			return nil
		},
	}
}
