package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/livetune/internal/jsonc"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ModePath addresses the conversation mode inside a document.
const ModePath = "data.turn_detection.type"

// DefaultDocument is used when the store holds no document.
const DefaultDocument = `{
  "event_type": "chat.update",
  "data": {
    "turn_detection": {
      "type": "server_vad"
    }
  }
}`

var (
	// ErrStructuredWriteOnInvalidDocument rejects path writes into a buffer that does not parse.
	ErrStructuredWriteOnInvalidDocument = errors.New("cannot write field into malformed document")
	errNotObject                        = errors.New("document root must be a JSON object")
)

// MalformedDocumentError reports where a raw edit stopped parsing.
type MalformedDocumentError struct {
	Line   int
	Column int
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed document at line %d column %d: %v", e.Line, e.Column, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

// Validate parses text as exactly one JSON value.
func Validate(text string) error {
	var doc json.RawMessage
	err := jsonc.Decode(text, &doc, false)
	if err == nil {
		return nil
	}

	var posErr *jsonc.PositionError
	if errors.As(err, &posErr) {
		return &MalformedDocumentError{Line: posErr.Line, Column: posErr.Column, Err: posErr.Err}
	}
	return &MalformedDocumentError{Line: 1, Column: 1, Err: err}
}

// readMode returns the conversation mode in text, or server_vad when the path
// is missing or not a string.
func readMode(text string) ConversationMode {
	value := gjson.Get(text, ModePath)
	if value.Type != gjson.String {
		return ConversationModeServerVAD
	}
	return ConversationMode(value.Str)
}

// setPath writes value at path, replacing non-object intermediates, and
// re-serializes with 2-space indentation preserving key order.
func setPath(text string, path string, value string) (string, error) {
	if !gjson.Parse(text).IsObject() {
		return "", errNotObject
	}

	segments := strings.Split(path, ".")
	for i := 1; i < len(segments); i++ {
		prefix := strings.Join(segments[:i], ".")
		existing := gjson.Get(text, prefix)
		if !existing.Exists() || existing.IsObject() {
			continue
		}
		var err error
		if text, err = sjson.SetRaw(text, prefix, "{}"); err != nil {
			return "", fmt.Errorf("replace %s: %w", prefix, err)
		}
	}

	updated, err := sjson.Set(text, path, value)
	if err != nil {
		return "", fmt.Errorf("set %s: %w", path, err)
	}
	return format(updated)
}

func format(text string) (string, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(text)); err != nil {
		return "", fmt.Errorf("compact document: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return "", fmt.Errorf("indent document: %w", err)
	}
	return out.String(), nil
}
