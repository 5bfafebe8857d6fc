package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNoJSON means the reply held no span that could be JSON.
var ErrNoJSON = errors.New("no JSON found in response")

// Greedy spans: first opening bracket to the last closing one.
var (
	objectSpan = regexp.MustCompile(`\{[\s\S]*\}`)
	arraySpan  = regexp.MustCompile(`\[[\s\S]*\]`)
)

// Result is either a structured value recovered from a model reply or the
// raw reply text when no structure could be recovered.
type Result[T any] struct {
	value  T
	raw    string
	parsed bool
}

func Parsed[T any](v T, raw string) Result[T] {
	return Result[T]{value: v, raw: raw, parsed: true}
}

func Raw[T any](text string) Result[T] {
	return Result[T]{raw: text}
}

// Structured returns the parsed value and whether parsing succeeded.
func (r Result[T]) Structured() (T, bool) {
	return r.value, r.parsed
}

// RawText is the reply as the model sent it.
func (r Result[T]) RawText() string {
	return r.raw
}

// Value returns the parsed value, or fallback applied to the raw text.
func (r Result[T]) Value(fallback func(raw string) T) T {
	if r.parsed {
		return r.value
	}
	return fallback(r.raw)
}

// ExtractObject decodes the greedy {...} span of text into T.
func ExtractObject[T any](text string) (Result[T], error) {
	return extract[T](objectSpan, text)
}

// ExtractArray decodes the greedy [...] span of text into a slice of E.
func ExtractArray[E any](text string) (Result[[]E], error) {
	return extract[[]E](arraySpan, text)
}

func extract[T any](span *regexp.Regexp, text string) (Result[T], error) {
	match := span.FindString(text)
	if match == "" {
		return Raw[T](text), ErrNoJSON
	}
	var v T
	if err := json.Unmarshal([]byte(match), &v); err != nil {
		return Raw[T](text), fmt.Errorf("decode model JSON: %w", err)
	}
	return Parsed(v, text), nil
}

var jsonNull = []byte("null")

// FlexString accepts a JSON string, number, boolean or null.
type FlexString struct {
	Value string
	Valid bool
}

func NewFlexString(s string) FlexString {
	return FlexString{Value: s, Valid: true}
}

func (f FlexString) String() string { return f.Value }

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, jsonNull) {
		*f = FlexString{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = NewFlexString(s)
		return nil
	}
	var scalar any
	if err := json.Unmarshal(b, &scalar); err != nil {
		return err
	}
	switch scalar.(type) {
	case float64, bool:
		*f = NewFlexString(string(b))
	default:
		*f = FlexString{}
	}
	return nil
}

func (f FlexString) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return jsonNull, nil
	}
	return json.Marshal(f.Value)
}

// FlexStrings accepts a JSON array of FlexString values, a single scalar
// standing in for a one-element list, or null.
type FlexStrings []FlexString

func (fs *FlexStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, jsonNull):
		*fs = nil
		return nil
	case b[0] == '[':
		var items []FlexString
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*fs = items
		return nil
	case b[0] == '{':
		*fs = nil
		return nil
	}
	var one FlexString
	if err := one.UnmarshalJSON(b); err != nil {
		return err
	}
	*fs = FlexStrings{one}
	return nil
}

// Strings drops null entries.
func (fs FlexStrings) Strings() []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		if f.Valid {
			out = append(out, f.Value)
		}
	}
	return out
}

// FlexNumber accepts a JSON number, a numeric string such as "₹1,23,456.50",
// or null. A string that is not numeric is kept as Text.
type FlexNumber struct {
	Amount decimal.Decimal
	Valid  bool
	Text   string
}

func NewFlexNumber(d decimal.Decimal) FlexNumber {
	return FlexNumber{Amount: d, Valid: true}
}

var numericNoise = strings.NewReplacer("₹", "", ",", "", " ", "", "INR", "", "Rs.", "", "Rs", "")

func (f *FlexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*f = FlexNumber{}
	if bytes.Equal(b, jsonNull) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if d, err := decimal.NewFromString(numericNoise.Replace(strings.TrimSpace(s))); err == nil {
			*f = NewFlexNumber(d)
		} else {
			f.Text = s
		}
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		// objects, arrays and booleans carry no amount
		return nil
	}
	*f = NewFlexNumber(d)
	return nil
}

func (f FlexNumber) MarshalJSON() ([]byte, error) {
	switch {
	case f.Valid:
		return []byte(f.Amount.String()), nil
	case f.Text != "":
		return json.Marshal(f.Text)
	default:
		return jsonNull, nil
	}
}
