package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hieu7404/nlp-rag/internal/config"
	"github.com/hieu7404/nlp-rag/internal/errs"
)

// app carries state shared by the subcommands once the root pre-run has
// loaded the configuration.
type app struct {
	cfgPath string
	verbose bool
	cfg     *config.AppConfig
}

// NewRootCmd creates the root rag command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "rag",
		Short:         "rag - chunk, index and answer questions over a text corpus",
		Long:          "rag builds a vector index over a document corpus and answers questions with retrieved context.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "path to config file (default ./config.yaml or ~/.config/rag/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newIndexCmd(a),
		newQueryCmd(a),
		newRunCmd(a),
		newEvalCmd(a),
		newChatCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(logOut io.Writer) error {
	// a missing .env is fine
	_ = godotenv.Load()

	var err error
	if a.cfgPath == "" {
		a.cfg, a.cfgPath, err = config.LoadDefault()
	} else {
		a.cfg, err = config.Load(a.cfgPath)
	}
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(logOut, a.cfg.Log, a.verbose))
	slog.Debug("config loaded", "path", a.cfgPath)
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func requireArg(args []string, what string) (string, error) {
	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" {
		return "", errs.New(errs.CodeCLIInputInvalid, what+" is required")
	}
	return q, nil
}
