// Package reply turns free-form agent text into typed values: it strips
// markdown code fences, decodes JSON and validates the result.
package reply

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hupe1980/beanmesh/core"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseError reports reply text that is not valid JSON for the target type.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: parse %q: %v", core.ErrMalformedReply, truncate(e.Text, 200), e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{core.ErrMalformedReply, e.Err} }

// ValidationError reports decoded JSON that misses required fields or carries
// values outside the allowed set.
type ValidationError struct {
	Text string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: validate: %v", core.ErrMalformedReply, e.Err)
}

func (e *ValidationError) Unwrap() []error { return []error{core.ErrMalformedReply, e.Err} }

// StripFence removes a leading "```json" fence (plus following whitespace)
// and an optional trailing "```" fence. Text without fences is returned
// trimmed.
func StripFence(text string) string {
	s := strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(s, "```json"); ok {
		s = strings.TrimLeft(rest, " \t\r\n")
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Decode strips fences from text, unmarshals the JSON into v and validates
// struct tags. Failures satisfy errors.Is(err, core.ErrMalformedReply).
func Decode(text string, v any) error {
	body := StripFence(text)

	if err := json.Unmarshal([]byte(body), v); err != nil {
		return &ParseError{Text: text, Err: err}
	}

	if err := Validate(v); err != nil {
		return &ValidationError{Text: text, Err: err}
	}

	return nil
}

// As is the generic form of Decode.
func As[T any](text string) (T, error) {
	var out T
	err := Decode(text, &out)
	return out, err
}

// Validate runs struct tag validation; non-struct values pass.
func Validate(v any) error {
	err := validate.Struct(v)
	if _, ok := err.(*validator.InvalidValidationError); ok {
		return nil
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
