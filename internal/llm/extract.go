package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON indicates the completion text contained no extractable JSON value
var ErrNoJSON = errors.New("no JSON value found in response")

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON pulls a JSON value out of completion text. Models are told to
// answer with bare JSON but routinely wrap it in a fenced code block or
// surrounding prose, so extraction falls back in that order:
//  1. parse the whole text directly
//  2. parse the contents of the first fenced (```json) block
//  3. decode one value starting at the first brace or bracket
func ExtractJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) && trimmed != "" {
		return json.RawMessage(trimmed), nil
	}

	if m := fencedBlockPattern.FindStringSubmatch(text); m != nil {
		if raw, err := decodeFirstValue(m[1]); err == nil {
			return raw, nil
		}
	}

	if raw, err := decodeFirstValue(text); err == nil {
		return raw, nil
	}

	return nil, ErrNoJSON
}

// DecodeJSON extracts a JSON value from completion text and unmarshals it into v
func DecodeJSON(text string, v interface{}) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// decodeFirstValue decodes exactly one JSON object or array starting at the
// first brace/bracket in the text, tolerating trailing prose after it
func decodeFirstValue(text string) (json.RawMessage, error) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return nil, ErrNoJSON
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text[start:])))
	var v json.RawMessage
	if err := dec.Decode(&v); err != nil {
		return nil, ErrNoJSON
	}
	return v, nil
}
