// Package dto provides Data Transfer Objects for API requests/responses.
// Request DTOs are the only place where external field aliases are folded
// onto canonical names.
package dto

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// --- List Response ---

// ListResponse wraps list results with paging metadata.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- Simple Responses ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// OKResponse acknowledges an operation without data.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- Flexible scalars ---

// Flex is a JSON scalar accepted either as a number or as a string. The
// text is kept as-is until the caller asks for a concrete type, so a bad
// value becomes a domain error instead of a decode failure.
type Flex struct {
	raw string
	set bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flex) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = Flex{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	*f = Flex{raw: strings.TrimSpace(s), set: true}
	return nil
}

// NewFlex builds a set Flex from text.
func NewFlex(s string) Flex {
	return Flex{raw: s, set: true}
}

// IsSet reports whether the field was present and not null.
func (f Flex) IsSet() bool {
	return f.set
}

// String returns the raw text.
func (f Flex) String() string {
	return f.raw
}

// StringPtr returns nil for an unset or empty value.
func (f Flex) StringPtr() *string {
	if !f.set || f.raw == "" {
		return nil
	}
	s := f.raw
	return &s
}

// Decimal parses the text as a decimal number.
func (f Flex) Decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(f.raw)
}

// --- Alias lookup ---

// pick returns the first alias present in raw. Later aliases are ignored
// when an earlier one is present.
func pick(raw map[string]json.RawMessage, aliases ...string) (json.RawMessage, bool) {
	for _, a := range aliases {
		if v, ok := raw[a]; ok {
			return v, true
		}
	}
	return nil, false
}

// pickInto decodes the first present alias into dst.
func pickInto(raw map[string]json.RawMessage, dst any, aliases ...string) (bool, error) {
	v, ok := pick(raw, aliases...)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return true, &FieldError{Field: aliases[0], Err: err}
	}
	return true, nil
}

func isNull(v json.RawMessage) bool {
	return strings.TrimSpace(string(v)) == "null"
}

// FieldError reports a request field that could not be decoded.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
