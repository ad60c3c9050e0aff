// Package records reads question batches and writes the answered batch back,
// keeping every input field and its order.
package records

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hieu7404/nlp-rag/internal/errs"
)

const (
	keyQuestion  = "question"
	keyReference = "reference_answer"
	keyPrompt    = "rag_prompt"
	keyAnswer    = "rag_answer"
)

type field struct {
	key   string
	value json.RawMessage
}

// Record is one batch entry. Fields other than the ones below are carried
// through unchanged.
type Record struct {
	Question        string
	ReferenceAnswer string
	RAGPrompt       string
	RAGAnswer       string

	fields []field
}

// UnmarshalJSON decodes a JSON object, remembering key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("record must be a JSON object")
	}
	*r = Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		switch key {
		case keyQuestion:
			if err := json.Unmarshal(raw, &r.Question); err != nil {
				return errors.New(`"question" must be a string`)
			}
		case keyReference:
			// non-string references are kept as raw fields only
			_ = json.Unmarshal(raw, &r.ReferenceAnswer)
		case keyPrompt:
			_ = json.Unmarshal(raw, &r.RAGPrompt)
			continue
		case keyAnswer:
			_ = json.Unmarshal(raw, &r.RAGAnswer)
			continue
		}
		r.fields = append(r.fields, field{key: key, value: raw})
	}
	_, err = dec.Token()
	return err
}

// MarshalJSON writes the input fields in their original order followed by
// rag_prompt and rag_answer. HTML characters are not escaped.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, value []byte) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := encode(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(value)
	}
	seen := false
	for _, f := range r.fields {
		if f.key == keyQuestion {
			seen = true
		}
		write(f.key, f.value)
	}
	if !seen {
		q, err := encode(r.Question)
		if err != nil {
			return nil, err
		}
		write(keyQuestion, q)
	}
	for _, kv := range []struct{ key, value string }{{keyPrompt, r.RAGPrompt}, {keyAnswer, r.RAGAnswer}} {
		v, err := encode(kv.value)
		if err != nil {
			return nil, err
		}
		write(kv.key, v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Load reads a JSON array of records. Every record needs a non-empty question.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(err, errs.CodeRecordsReadFailure, "questions file not found", errs.FieldPath(path))
		}
		return nil, errs.Wrap(err, errs.CodeRecordsReadFailure, "reading questions file", errs.FieldPath(path))
	}
	return Parse(data, path)
}

// Parse decodes a JSON array of records; source names the input in errors.
func Parse(data []byte, source string) ([]Record, error) {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, errs.Wrap(err, errs.CodeRecordsParseInvalid, "questions must be a JSON array of objects", errs.FieldPath(source))
	}
	for i, r := range recs {
		if strings.TrimSpace(r.Question) == "" {
			return nil, errs.New(errs.CodeRecordsParseInvalid, "record has no question",
				errs.FieldPath(source), errs.Field("index", i))
		}
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// WriteResults writes records as an indented JSON array.
func WriteResults(path string, recs []Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if recs == nil {
		recs = []Record{}
	}
	if err := enc.Encode(recs); err != nil {
		return errs.Wrap(err, errs.CodeRecordsWriteFailure, "encoding results", errs.FieldPath(path))
	}
	return writeFile(path, buf.Bytes())
}

// WriteAnswers writes one answer per line in record order. Line breaks
// inside an answer become spaces so that line i is always record i.
func WriteAnswers(path string, recs []Record) error {
	var buf bytes.Buffer
	for _, r := range recs {
		buf.WriteString(strings.Join(strings.Fields(r.RAGAnswer), " "))
		buf.WriteByte('\n')
	}
	return writeFile(path, buf.Bytes())
}

// ReadAnswers returns the trimmed non-empty lines of an answers file.
func ReadAnswers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeRecordsReadFailure, "opening answers file", errs.FieldPath(path))
	}
	defer func() { _ = f.Close() }()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(err, errs.CodeRecordsReadFailure, "reading answers file", errs.FieldPath(path))
	}
	return out, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(err, errs.CodeRecordsWriteFailure, "creating output directory", errs.FieldPath(dir))
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.Wrap(err, errs.CodeRecordsWriteFailure, "writing output file", errs.FieldPath(path))
	}
	return nil
}
