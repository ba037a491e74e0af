package chart

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ScalarKind discriminates the variants of a Scalar.
type ScalarKind int

const (
	// KindEmpty is an explicitly unset value. Distinct from zero.
	KindEmpty ScalarKind = iota
	// KindNumber is a numeric value.
	KindNumber
	// KindText is a residual string that did not parse as a number
	// ("n/a", "~12"). Retained verbatim, never zeroed out.
	KindText
)

// Scalar is a single chart value: a number, residual text, or explicitly
// empty. The zero Scalar is the empty value.
type Scalar struct {
	Kind ScalarKind
	Num  float64
	Text string
}

// Number returns a numeric Scalar.
func Number(v float64) Scalar {
	return Scalar{Kind: KindNumber, Num: v}
}

// Text returns a textual Scalar.
func Text(s string) Scalar {
	return Scalar{Kind: KindText, Text: s}
}

// ParseScalar applies the coercion policy shared by normalization and
// user edits: empty input stays explicitly empty, numeric input becomes
// a number, anything else is kept as text unchanged.
func ParseScalar(raw string) Scalar {
	if raw == "" {
		return Scalar{}
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return Number(n)
	}
	return Text(raw)
}

// IsEmpty reports whether the scalar is the explicit empty value.
func (s Scalar) IsEmpty() bool {
	return s.Kind == KindEmpty
}

// String renders the scalar for display and delimited export. Empty
// renders as "".
func (s Scalar) String() string {
	switch s.Kind {
	case KindNumber:
		return strconv.FormatFloat(s.Num, 'f', -1, 64)
	case KindText:
		return s.Text
	default:
		return ""
	}
}

// Value returns the scalar as a native Go value (float64, string, or ""
// for empty), suitable for spreadsheet cell assignment.
func (s Scalar) Value() any {
	switch s.Kind {
	case KindNumber:
		return s.Num
	case KindText:
		return s.Text
	default:
		return ""
	}
}

// MarshalJSON round-trips numbers as JSON numbers and text verbatim, so
// the structured export reproduces the inference wire shape exactly.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case KindNumber:
		return json.Marshal(s.Num)
	case KindText:
		return json.Marshal(s.Text)
	default:
		return []byte(`""`), nil
	}
}

// UnmarshalJSON accepts any JSON value defensively.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = scalarFromAny(v)
	return nil
}

// scalarFromAny coerces a decoded JSON value into a Scalar. Strings go
// through ParseScalar so numeric text collapses to a number; unexpected
// shapes are stringified rather than dropped.
func scalarFromAny(v any) Scalar {
	switch t := v.(type) {
	case nil:
		return Scalar{}
	case float64:
		return Number(t)
	case string:
		return ParseScalar(t)
	case bool:
		return Text(strconv.FormatBool(t))
	default:
		return Text(fmt.Sprint(t))
	}
}
