package errs

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
// The last dot-separated segment is the reason used by the Is* helpers.
type Code string

const (
	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeChunkerConfigInvalid Code = "chunker.config.invalid_value"

	CodeTokenizerLoadFailure Code = "tokenizer.load.failure"

	CodeEmbeddingRequestInvalid  Code = "embedding.request.invalid_input"
	CodeEmbeddingUpstreamFailure Code = "embedding.upstream.failure"
	CodeEmbeddingResponseInvalid Code = "embedding.response.invalid"

	CodeIndexBuildInvalid         Code = "index.build.invalid_input"
	CodeIndexSearchDimension      Code = "index.search.dimension_mismatch"
	CodeIndexLoadNotFound         Code = "index.load.not_found"
	CodeIndexLoadFailure          Code = "index.load.failure"
	CodeIndexLoadCorrupt          Code = "index.load.corrupt"
	CodeIndexSaveFailure          Code = "index.save.failure"
	CodeIndexBackendUnsupported   Code = "index.backend.unsupported"
	CodeChunkStorePositionInvalid Code = "chunkstore.get.not_found"

	CodeCorpusReadFailure Code = "corpus.read.failure"
	CodeCorpusNotFound    Code = "corpus.read.not_found"

	CodeGenerationRequestInvalid  Code = "generation.request.invalid_input"
	CodeGenerationUpstreamFailure Code = "generation.upstream.failure"
	CodeGenerationResponseInvalid Code = "generation.response.invalid"

	CodeRecordsReadFailure   Code = "records.read.failure"
	CodeRecordsParseInvalid  Code = "records.parse.invalid_format"
	CodeRecordsWriteFailure  Code = "records.write.failure"
	CodeEvalCountMismatch    Code = "eval.count.mismatch"
	CodeEvalInputFailure     Code = "eval.input.failure"
	CodeServerRequestInvalid Code = "server.request.invalid"
	CodeServerInternal       Code = "server.internal.failure"
	CodeCLIInputInvalid      Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldPath(value string) Attr {
	return Field("path", value)
}

func FieldModel(value string) Attr {
	return Field("model", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

// Annotate adds a message and fields to err without setting a code, so the
// cause's code (or none) is what CodeOf reports.
func Annotate(err error, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).Wrapf(err, format, args...)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}
	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}
	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err), HasCode(err, CodeIndexSearchDimension):
		return http.StatusBadRequest
	case IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}
	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
