// Package translate applies a learned mapping to one input parameter map.
package translate

import (
	"math"
	"strconv"
	"strings"

	"github.com/ordermap/ordermap-server/internal/mapping"
	"github.com/ordermap/ordermap-server/internal/params"
)

// Placeholder values emitted for unresolvable inputs.
const (
	// MissingValue stands in for an absent or null source value.
	MissingValue = "-"
	// ManualValue stands in for a key the oracle marked as needing a human.
	ManualValue = "?"
)

// Result is the outcome of translating one record.
type Result struct {
	Output *params.Map
	// LowConfidence names output keys produced from oracle suggestions
	// rather than learned rules.
	LowConfidence map[string]bool
}

// Translate produces the target parameter map for input under m. It is total:
// every key the mapping knows about gets a value, bad data degrades to
// placeholders or raw pass-through, and no input can make it fail.
//
// Constants are seeded first. Each rule resolves its source key exactly, then
// case-insensitively; absent or null values ("", "<NULL>", "<NONE>", "None")
// yield "-". divide10 divides a numeric value by ten, keeping integers whole
// and rounding the rest to two decimals, and passes non-numeric values
// through unchanged. lookup falls back to the raw value when the table has no
// entry. Oracle suggestions apply the same way with their own value tables,
// except manual ones, which yield "?".
func Translate(input *params.Map, m *mapping.Mapping) Result {
	out := params.NewMap()
	low := make(map[string]bool)

	for _, key := range m.OutputKeys() {
		if c, ok := m.Constants[key]; ok {
			out.Set(key, params.String(c))
			continue
		}
		if rule, ok := m.KeyMap[key]; ok {
			out.Set(key, apply(input, rule.Source, rule.Transform, m.ValueMap[key]))
			continue
		}
		if sug, ok := m.OracleSuggestions[key]; ok {
			low[key] = true
			if sug.Transform == mapping.TransformManual || sug.Source == "manual" {
				out.Set(key, params.String(ManualValue))
				continue
			}
			out.Set(key, apply(input, sug.Source, sug.Transform, sug.ValueMap))
		}
	}

	return Result{Output: out, LowConfidence: low}
}

func apply(input *params.Map, source string, transform mapping.Transform, lut map[string]string) params.Value {
	v, ok := input.ResolveFold(source)
	if !ok || v.IsNull() {
		return params.String(MissingValue)
	}
	raw := strings.TrimSpace(v.Text())

	switch transform {
	case mapping.TransformCopy:
		if v.Kind() == params.KindString {
			return params.String(raw)
		}
		return v
	case mapping.TransformDivide10:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return params.String(raw)
		}
		d := n / 10.0
		if d == math.Trunc(d) {
			return params.Number(d)
		}
		return params.Number(math.Round(d*100) / 100)
	case mapping.TransformLookup:
		if mapped, ok := lut[raw]; ok {
			return params.String(mapped)
		}
		return params.String(raw)
	default:
		return params.String(raw)
	}
}
