// Package jsonc decodes JSON and JSON-with-comments documents with line/column errors.
package jsonc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Normalize strips comments and trailing commas so content decodes as plain JSON.
// Byte offsets are preserved for error positions.
func Normalize(content string) (string, error) {
	withoutComments, err := stripComments(content)
	if err != nil {
		return "", err
	}
	return stripTrailingCommas(withoutComments), nil
}

func stripComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

// PositionError locates a decode failure inside the source text.
type PositionError struct {
	Line   int
	Column int
	Err    error
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("line %d column %d: %v", e.Line, e.Column, e.Err)
}

func (e *PositionError) Unwrap() error {
	return e.Err
}

// Decode reads exactly one JSON value from content into v. With strict set,
// unknown object fields are rejected.
func Decode(content string, v any, strict bool) error {
	decoder := json.NewDecoder(strings.NewReader(content))
	if strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(v); err != nil {
		return locate(content, err)
	}
	if err := ensureSingleValue(decoder); err != nil {
		return locate(content, err)
	}
	return nil
}

func ensureSingleValue(decoder *json.Decoder) error {
	start := decoder.InputOffset()
	var extra json.RawMessage
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return &extraValueError{offset: start + 1}
	}
	return err
}

type extraValueError struct {
	offset int64
}

func (e *extraValueError) Error() string {
	return "multiple JSON values are not allowed"
}

func locate(content string, err error) error {
	var extra *extraValueError
	if errors.As(err, &extra) {
		offset := extra.offset
		for int(offset) <= len(content) && isWhitespace(content[offset-1]) {
			offset++
		}
		line, col := LineCol(content, offset)
		return &PositionError{Line: line, Column: col, Err: err}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := LineCol(content, syntaxErr.Offset)
		return &PositionError{Line: line, Column: col, Err: err}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := LineCol(content, typeErr.Offset)
		return &PositionError{Line: line, Column: col, Err: err}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		line, col := LineCol(content, int64(len(content)))
		return &PositionError{Line: line, Column: col, Err: errors.New("unexpected end of JSON input")}
	}

	return err
}

// LineCol converts a 1-based decoder offset into a line and column.
func LineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
