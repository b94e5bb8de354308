// Package json provides JSON extraction utilities for parsing LLM responses.
//
// Vision models often return JSON embedded in prose, wrapped in markdown
// fences, or written as Python dict literals. This package finds the first
// well-formed JSON object in such text and decodes it.
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrNoJSONObject is returned when a response contains no well-formed JSON object.
var ErrNoJSONObject = errors.New("no JSON object found")

// extractJSON returns the first balanced, well-formed JSON object in response.
// It handles common LLM response patterns:
// 1. Pure JSON response - returns the trimmed response
// 2. JSON wrapped in markdown code blocks (```json ... ```)
// 3. JSON object embedded in text, possibly followed by more braces
//
// Brace matching is string-aware, so braces inside JSON strings do not
// confuse the scan. Only objects are returned, never arrays.
func extractJSON(response string) (string, error) {
	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	start := strings.IndexByte(response, '{')
	for start != -1 {
		if end := matchBrace(response, start); end != -1 {
			candidate := response[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
		next := strings.IndexByte(response[start+1:], '{')
		if next == -1 {
			break
		}
		start += next + 1
	}

	return "", fmt.Errorf("%w in response: %q", ErrNoJSONObject, preview(response, 100))
}

// matchBrace returns the index of the brace closing the object that opens at
// start, or -1 if the object is unbalanced.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func preview(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

// ExtractJSONFromResponse extracts and parses JSON from an LLM response.
// Returns the parsed value or an error if extraction fails.
func ExtractJSONFromResponse[T any](response string) (T, error) {
	var result T
	jsonStr, err := extractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// ExtractJSON extracts the JSON portion from a response string.
// Returns the raw JSON string suitable for further processing.
func ExtractJSON(response string) (string, error) {
	return extractJSON(response)
}

// Field is one key/value pair of a JSON object, in document order.
type Field struct {
	Key   string
	Value json.RawMessage
}

// String renders the value as plain text: strings unquoted, everything else as JSON.
func (f Field) String() string {
	var s string
	if err := json.Unmarshal(f.Value, &s); err == nil {
		return s
	}
	return string(f.Value)
}

// Fields decodes a JSON object into its fields, preserving key order.
func Fields(object string) ([]Field, error) {
	dec := json.NewDecoder(strings.NewReader(object))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: value is not an object", ErrNoJSONObject)
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON key: %w", err)
		}
		key, _ := keyTok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to read value of %q: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to close JSON object: %w", err)
	}
	return fields, nil
}

// ExtractLiteral returns the first object in response that is valid JSON once
// written in JSON syntax. Each candidate is normalized from its opening brace
// on, so apostrophes in surrounding prose never open a string.
func ExtractLiteral(response string) (string, error) {
	start := strings.IndexByte(response, '{')
	for start != -1 {
		normalized := NormalizeLiteral(response[start:])
		if end := matchBrace(normalized, 0); end != -1 {
			candidate := normalized[:end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
		next := strings.IndexByte(response[start+1:], '{')
		if next == -1 {
			break
		}
		start += next + 1
	}

	return "", fmt.Errorf("%w in response: %q", ErrNoJSONObject, preview(response, 100))
}

// NormalizeLiteral rewrites a Python dict literal into JSON.
// Single-quoted strings become double-quoted, None/True/False become
// null/true/false and tuples become arrays. Valid JSON passes through unchanged.
func NormalizeLiteral(s string) string {
	var out bytes.Buffer
	out.Grow(len(s))

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"':
			end := scanQuoted(s, i, '"')
			out.WriteString(s[i:end])
			i = end
		case c == '\'':
			end := scanQuoted(s, i, '\'')
			body := s[i+1 : max(i+1, end-1)]
			body = strings.ReplaceAll(body, `\'`, `'`)
			quoted, _ := json.Marshal(unescapeBackslashes(body))
			out.Write(quoted)
			i = end
		case c == '(':
			out.WriteByte('[')
			i++
		case c == ')':
			out.WriteByte(']')
			i++
		case isIdentStart(c):
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			switch word := s[i:j]; word {
			case "None":
				out.WriteString("null")
			case "True":
				out.WriteString("true")
			case "False":
				out.WriteString("false")
			default:
				out.WriteString(word)
			}
			i = j
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// scanQuoted returns the index just past the closing quote of the string
// starting at start, or len(s) if it never closes.
func scanQuoted(s string, start int, quote byte) int {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		}
	}
	return len(s)
}

func unescapeBackslashes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var unquoted string
	if err := json.Unmarshal([]byte(`"`+strings.ReplaceAll(s, `"`, `\"`)+`"`), &unquoted); err == nil {
		return unquoted
	}
	return s
}

func isIdentStart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c))
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || unicode.IsDigit(rune(c))
}
