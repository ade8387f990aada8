// Package params provides the ordered parameter maps exchanged between the
// input and target vocabularies, with a closed scalar value type and explicit
// coercion at storage and display boundaries.
package params

import (
	"math"
	"strconv"
	"strings"
)

// NullSentinel is the storage representation of a missing or empty value.
const NullSentinel = "<NULL>"

// Kind discriminates the scalar variants a parameter value can hold.
type Kind int

// Value kinds.
const (
	KindString Kind = iota
	KindNumber
	KindBool
)

// Value is a closed scalar variant: string, number, or boolean.
// The zero Value is the empty string.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
}

// String creates a string value.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Number creates a numeric value.
func Number(n float64) Value {
	return Value{kind: KindNumber, n: n}
}

// Bool creates a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Kind returns the variant this value holds.
func (v Value) Kind() Kind {
	return v.kind
}

// Text renders the value for comparison and display.
// Numbers drop a trailing ".0"; booleans render as 1/0 to match the
// downstream worksheet convention.
func (v Value) Text() string {
	switch v.kind {
	case KindNumber:
		if v.n == math.Trunc(v.n) && math.Abs(v.n) < 1e15 {
			return strconv.FormatInt(int64(v.n), 10)
		}
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		if v.b {
			return "1"
		}
		return "0"
	default:
		return v.s
	}
}

// Float returns the numeric interpretation of the value.
// String values are parsed; the second return reports success.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
}

// IsNull reports whether the value is absent for translation purposes:
// empty or whitespace-only text, or one of the null sentinels carried over
// from upstream exports.
func (v Value) IsNull() bool {
	if v.kind != KindString {
		return false
	}
	switch strings.TrimSpace(v.s) {
	case "", NullSentinel, "<NONE>", "None":
		return true
	}
	return false
}

// Storage renders the value for the durable row format: null values become
// the NullSentinel, everything else renders as Text.
func (v Value) Storage() string {
	if v.IsNull() {
		return NullSentinel
	}
	return v.Text()
}
