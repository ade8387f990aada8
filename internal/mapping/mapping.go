// Package mapping defines the learned schema mapping for one product
// category and the learner that derives it from historical training pairs.
//
// A Mapping records, per target key, how the value is produced from an input
// parameter map: copied verbatim, divided by ten, or remapped through a value
// lookup table. Keys whose value never varies are constants; keys the learner
// could not resolve are kept with diagnostic samples for the suggestion
// oracle. Once persisted a Mapping is read-only and is superseded, never
// merged, by re-learning.
package mapping

import (
	"slices"

	"github.com/ordermap/ordermap-server/internal/params"
)

// Transform identifies how a target value is derived from its source.
type Transform string

// Transform kinds. The string values are part of the persisted mapping
// document contract and must not change.
const (
	TransformCopy     Transform = "copy"
	TransformDivide10 Transform = "divide10"
	TransformLookup   Transform = "lookup"
	// TransformManual marks an oracle suggestion that needs a human; the
	// translator emits "?" for it.
	TransformManual Transform = "manual"
)

// KeyRule names the input key a target key is derived from and the transform
// to apply.
type KeyRule struct {
	Source    string    `json:"source"`
	Transform Transform `json:"transform"`
}

// UnmappedKey carries diagnostics for a target key the learner could not
// resolve: a few observed target values and full input snapshots from pairs
// that contained the key.
type UnmappedKey struct {
	SampleValues []string            `json:"sample_values"`
	SampleInputs []map[string]string `json:"sample_inputs"`
}

// Confidence labels an oracle suggestion.
type Confidence string

// Confidence labels accepted from the oracle. Anything else normalizes to
// ConfidenceLow.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// NormalizeConfidence maps a free-form oracle label onto the closed set.
func NormalizeConfidence(s string) Confidence {
	switch Confidence(s) {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return Confidence(s)
	}
	return ConfidenceLow
}

// Suggestion is a mapping rule proposed by the suggestion oracle for an
// unmapped target key. It stays separate from KeyMap so translate-time code
// can flag its output as low-trust.
type Suggestion struct {
	Source      string            `json:"source"`
	Transform   Transform         `json:"transform"`
	ValueMap    map[string]string `json:"value_map,omitempty"`
	Confidence  Confidence        `json:"confidence"`
	Description string            `json:"description,omitempty"`
	Reason      string            `json:"reason,omitempty"`
}

// Mapping is the learned translation schema for one category.
//
// Invariant: a target key appears in at most one of KeyMap and Constants;
// Unmapped and OracleSuggestions are keyed by the residual set.
type Mapping struct {
	Category string `json:"category"`

	KeyMap    map[string]KeyRule           `json:"key_map"`
	ValueMap  map[string]map[string]string `json:"value_map"`
	Constants map[string]string            `json:"constants"`

	Unmapped          map[string]UnmappedKey `json:"unmapped,omitempty"`
	OracleSuggestions map[string]Suggestion  `json:"oracle_suggestions,omitempty"`

	// TargetOrder preserves the first-seen order of target keys across the
	// training data, for stable column layout downstream.
	TargetOrder []string `json:"target_order,omitempty"`
}

// TrainingPair is one historical example: the input parameter map and the
// target parameter map produced for it. Immutable once ingested.
type TrainingPair struct {
	Input  *params.Map
	Output *params.Map
}

// New returns an empty mapping for category.
func New(category string) *Mapping {
	return &Mapping{
		Category:  category,
		KeyMap:    make(map[string]KeyRule),
		ValueMap:  make(map[string]map[string]string),
		Constants: make(map[string]string),
	}
}

// OutputKeys returns every key a translation of this mapping will emit:
// the union of constants, learned rules, and oracle suggestions, in
// TargetOrder where known.
func (m *Mapping) OutputKeys() []string {
	seen := make(map[string]bool, len(m.KeyMap)+len(m.Constants)+len(m.OracleSuggestions))
	keys := make([]string, 0, len(m.KeyMap)+len(m.Constants)+len(m.OracleSuggestions))
	emits := func(k string) bool {
		_, c := m.Constants[k]
		_, r := m.KeyMap[k]
		_, s := m.OracleSuggestions[k]
		return c || r || s
	}
	for _, k := range m.TargetOrder {
		if emits(k) && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	// Keys outside TargetOrder (oracle-added or hand-edited documents) go
	// last, sorted for stable output.
	var rest []string
	for k := range m.Constants {
		if !seen[k] {
			seen[k] = true
			rest = append(rest, k)
		}
	}
	for k := range m.KeyMap {
		if !seen[k] {
			seen[k] = true
			rest = append(rest, k)
		}
	}
	for k := range m.OracleSuggestions {
		if !seen[k] {
			seen[k] = true
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}
