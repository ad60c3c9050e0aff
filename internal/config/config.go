package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/hieu7404/nlp-rag/internal/embedding/hashing"
	"github.com/hieu7404/nlp-rag/internal/errs"
	"github.com/hieu7404/nlp-rag/internal/retriever"
)

// EnvModelEmbedding names the embedding model when set, overriding the file.
const EnvModelEmbedding = "MODEL_EMBEDDING"

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type  string `mapstructure:"type" yaml:"type"`
	Model string `mapstructure:"model" yaml:"model"`
	// Dimension is the bucket count of the hashing embedder, or the truncated
	// size requested from the API. 0 selects the default.
	Dimension int           `mapstructure:"dimension" yaml:"dimension"`
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKeyEnv string        `mapstructure:"api_key_env" yaml:"api_key_env"`
	BatchSize int           `mapstructure:"batch_size" yaml:"batch_size"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// TokenizerConfig selects the tokenizer used for chunking.
type TokenizerConfig struct {
	Type     string `mapstructure:"type" yaml:"type"`
	Encoding string `mapstructure:"encoding" yaml:"encoding,omitempty"`
}

// ChunkerConfig configures how the corpus is split into chunks.
type ChunkerConfig struct {
	ChunkSize     int     `mapstructure:"chunk_size" yaml:"chunk_size"`
	OverflowRatio float64 `mapstructure:"overflow_ratio" yaml:"overflow_ratio"`
	MaxDepth      int     `mapstructure:"max_depth" yaml:"max_depth"`
}

// IndexConfig selects the index backend and where the artifact lives.
type IndexConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// RetrieverConfig controls retrieval and prompt assembly.
type RetrieverConfig struct {
	TopK            int    `mapstructure:"top_k" yaml:"top_k"`
	MaxContextChars int    `mapstructure:"max_context_chars" yaml:"max_context_chars"`
	Language        string `mapstructure:"language" yaml:"language"`
	Template        string `mapstructure:"template" yaml:"template,omitempty"`
	Fallback        string `mapstructure:"fallback" yaml:"fallback,omitempty"`
	AnswerCue       string `mapstructure:"answer_cue" yaml:"answer_cue,omitempty"`
}

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	Type        string  `mapstructure:"type" yaml:"type"`
	Model       string  `mapstructure:"model" yaml:"model,omitempty"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKeyEnv   string  `mapstructure:"api_key_env" yaml:"api_key_env,omitempty"`
	UseRAG      bool    `mapstructure:"use_rag" yaml:"use_rag"`
}

// SummarizerConfig configures the corpus summary printed after a build.
type SummarizerConfig struct {
	MaxSentences int `mapstructure:"max_sentences" yaml:"max_sentences"`
}

// BatchConfig names the files of a batch run.
type BatchConfig struct {
	Questions  string `mapstructure:"questions" yaml:"questions"`
	Results    string `mapstructure:"results" yaml:"results"`
	Answers    string `mapstructure:"answers" yaml:"answers"`
	SkipFailed bool   `mapstructure:"skip_failed" yaml:"skip_failed"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr        string   `mapstructure:"addr" yaml:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder   EmbedderConfig   `mapstructure:"embedder" yaml:"embedder"`
	Tokenizer  TokenizerConfig  `mapstructure:"tokenizer" yaml:"tokenizer"`
	Chunker    ChunkerConfig    `mapstructure:"chunker" yaml:"chunker"`
	Index      IndexConfig      `mapstructure:"index" yaml:"index"`
	Retriever  RetrieverConfig  `mapstructure:"retriever" yaml:"retriever"`
	Generator  GeneratorConfig  `mapstructure:"generator" yaml:"generator"`
	Summarizer SummarizerConfig `mapstructure:"summarizer" yaml:"summarizer"`
	Batch      BatchConfig      `mapstructure:"batch" yaml:"batch"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("embedder.type", "hashing")
	v.SetDefault("embedder.model", "hashing-384")
	v.SetDefault("embedder.dimension", 0)
	v.SetDefault("embedder.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("embedder.batch_size", 32)
	v.SetDefault("embedder.timeout", 30*time.Second)
	v.SetDefault("tokenizer.type", "word")
	v.SetDefault("tokenizer.encoding", "cl100k_base")
	v.SetDefault("chunker.chunk_size", 256)
	v.SetDefault("chunker.overflow_ratio", 1.1)
	v.SetDefault("chunker.max_depth", 64)
	v.SetDefault("index.backend", "flat")
	v.SetDefault("index.path", filepath.Join("data", "index.bin"))
	v.SetDefault("retriever.top_k", 3)
	v.SetDefault("retriever.max_context_chars", 256)
	v.SetDefault("retriever.language", "en")
	v.SetDefault("generator.type", "extractive")
	v.SetDefault("generator.max_tokens", 128)
	v.SetDefault("generator.temperature", 0.2)
	v.SetDefault("generator.use_rag", true)
	v.SetDefault("summarizer.max_sentences", 5)
	v.SetDefault("batch.questions", filepath.Join("data", "questions.json"))
	v.SetDefault("batch.results", filepath.Join("data", "results.json"))
	v.SetDefault("batch.answers", filepath.Join("data", "answers.txt"))
	v.SetDefault("batch.skip_failed", false)
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from path (defaults only when path is empty) with
// environment overrides: RAG_ prefixed keys, e.g. RAG_INDEX_PATH, and
// MODEL_EMBEDDING for the embedding model.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("embedder.model", "RAG_EMBEDDER_MODEL", EnvModelEmbedding); err != nil {
		return nil, errs.Wrap(err, errs.CodeConfigLoadReadFailure, "binding environment")
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
				return nil, errs.Wrap(err, errs.CodeConfigLoadReadFailure, "config file not found", errs.FieldPath(path))
			}
			return nil, errs.Wrap(err, errs.CodeConfigParseInvalidFormat, "reading config", errs.FieldPath(path))
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(err, errs.CodeConfigParseInvalidFormat, "unmarshalling config", errs.FieldPath(path))
	}
	if list := cfg.Validate(); len(list) > 0 {
		return nil, errs.Errorf(errs.CodeConfigValidateInvalidValue, "validating config: %v", errors.Join(list...))
	}
	return &cfg, nil
}

// Default returns the built-in configuration, ignoring files and environment.
func Default() *AppConfig {
	v := viper.New()
	setDefaults(v)
	var cfg AppConfig
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// LoadDefault tries ./config.yaml first, then ~/.config/rag/config.yaml.
// If neither exists, it writes defaults to ~/.config/rag/config.yaml and
// loads them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	if err := Save(userPath, Default()); err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(err, errs.CodeConfigLoadReadFailure, "creating config directory", errs.FieldPath(path))
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errs.Wrap(err, errs.CodeConfigParseInvalidFormat, "encoding config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.Wrap(err, errs.CodeConfigLoadReadFailure, "writing config", errs.FieldPath(path))
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errs.Wrap(err, errs.CodeConfigLoadReadFailure, "locating home directory")
	}
	return filepath.Join(home, ".config", "rag", "config.yaml"), nil
}

// Validate checks the configuration for logical errors, collecting every
// problem rather than stopping at the first one.
func (c *AppConfig) Validate() []error {
	var list []error
	list = append(list, c.validateEmbedder()...)
	list = append(list, c.validateChunking()...)
	list = append(list, c.validateRetrieval()...)
	list = append(list, c.validateGenerator()...)
	list = append(list, c.validateLog()...)
	return list
}

func invalid(format string, args ...any) error {
	return errs.Errorf(errs.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

func oneOf(key, got string, allowed ...string) error {
	for _, a := range allowed {
		if got == a {
			return nil
		}
	}
	return invalid("%s must be one of [%s], got %q", key, strings.Join(allowed, ", "), got)
}

func (c *AppConfig) validateEmbedder() []error {
	var list []error
	if err := oneOf("embedder.type", c.Embedder.Type, "hashing", "openai"); err != nil {
		list = append(list, err)
	}
	if strings.TrimSpace(c.Embedder.Model) == "" {
		list = append(list, invalid("embedder.model must not be empty (set it in the config file or %s)", EnvModelEmbedding))
	}
	if c.Embedder.Dimension < 0 {
		list = append(list, invalid("embedder.dimension must not be negative, got %d", c.Embedder.Dimension))
	}
	if n, ok := hashing.ModelDimension(c.Embedder.Model); ok && c.Embedder.Type == "hashing" &&
		c.Embedder.Dimension != 0 && c.Embedder.Dimension != n {
		list = append(list, invalid("embedder.dimension %d disagrees with embedder.model %q; set the model to hashing-%d or leave dimension at 0",
			c.Embedder.Dimension, c.Embedder.Model, c.Embedder.Dimension))
	}
	if c.Embedder.BatchSize < 0 {
		list = append(list, invalid("embedder.batch_size must not be negative, got %d", c.Embedder.BatchSize))
	}
	return list
}

func (c *AppConfig) validateChunking() []error {
	var list []error
	if err := oneOf("tokenizer.type", c.Tokenizer.Type, "word", "tiktoken"); err != nil {
		list = append(list, err)
	}
	if c.Chunker.ChunkSize <= 0 {
		list = append(list, invalid("chunker.chunk_size must be greater than 0, got %d", c.Chunker.ChunkSize))
	}
	if c.Chunker.OverflowRatio < 1 {
		list = append(list, invalid("chunker.overflow_ratio must be at least 1, got %g", c.Chunker.OverflowRatio))
	}
	if c.Chunker.MaxDepth <= 0 {
		list = append(list, invalid("chunker.max_depth must be greater than 0, got %d", c.Chunker.MaxDepth))
	}
	if err := oneOf("index.backend", c.Index.Backend, "flat", "sqlite"); err != nil {
		list = append(list, err)
	}
	if c.Index.Path == "" {
		list = append(list, invalid("index.path must not be empty"))
	}
	return list
}

func (c *AppConfig) validateRetrieval() []error {
	var list []error
	if c.Retriever.TopK <= 0 {
		list = append(list, invalid("retriever.top_k must be greater than 0, got %d", c.Retriever.TopK))
	}
	if c.Retriever.MaxContextChars < 0 {
		list = append(list, invalid("retriever.max_context_chars must not be negative, got %d", c.Retriever.MaxContextChars))
	}
	if _, ok := retriever.LookupLanguage(c.Retriever.Language); !ok {
		list = append(list, invalid("retriever.language must be one of [%s], got %q",
			strings.Join(retriever.Languages(), ", "), c.Retriever.Language))
	}
	return list
}

func (c *AppConfig) validateGenerator() []error {
	var list []error
	if err := oneOf("generator.type", c.Generator.Type, "extractive", "openai", "anthropic", "google"); err != nil {
		list = append(list, err)
	}
	if c.Generator.Type != "extractive" && c.Generator.Model == "" {
		list = append(list, invalid("generator.model must not be empty for the %s generator", c.Generator.Type))
	}
	if c.Generator.MaxTokens < 0 {
		list = append(list, invalid("generator.max_tokens must not be negative, got %d", c.Generator.MaxTokens))
	}
	if c.Generator.Temperature < 0 || c.Generator.Temperature > 2 {
		list = append(list, invalid("generator.temperature must be between 0 and 2, got %g", c.Generator.Temperature))
	}
	return list
}

func (c *AppConfig) validateLog() []error {
	var list []error
	if err := oneOf("log.level", strings.ToLower(c.Log.Level), "debug", "info", "warn", "error"); err != nil {
		list = append(list, err)
	}
	if err := oneOf("log.format", c.Log.Format, "text", "json"); err != nil {
		list = append(list, err)
	}
	return list
}

// APIKey resolves the key named by env, or "" when env is empty.
func APIKey(env string) string {
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

// String renders the config as YAML for display.
func (c *AppConfig) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(data)
}
