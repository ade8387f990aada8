package mapping

import (
	"math"
	"strconv"

	"github.com/ordermap/ordermap-server/internal/params"
)

const (
	// maxSampleValues caps the observed target values kept per unmapped key.
	maxSampleValues = 5
	// maxSampleInputs caps how many leading training pairs contribute an
	// input snapshot to an unmapped key.
	maxSampleInputs = 5
)

// Learn derives a Mapping for category from historical training pairs.
//
// Target keys whose observed value never varies become constants. For every
// other target key each input key is scored three ways across the pairs:
// exact value equality (copy), input/10 numeric equality within 0.01
// (divide10), and a value lookup table, which is disqualified outright when
// the same input value maps to two different target values. Pairs where the
// target value is empty or "-" do not score. The highest-scoring candidate
// wins; on a tie the earlier candidate in first-seen input-key order is
// kept, so the result is deterministic for a given pair sequence. Keys no
// candidate scores on are recorded in Unmapped with a few sample values and
// input snapshots for the suggestion oracle.
//
// Zero pairs yield an empty mapping.
func Learn(category string, pairs []TrainingPair) *Mapping {
	m := New(category)
	if len(pairs) == 0 {
		return m
	}

	// Observed values per target key, and both key orders as first seen
	// across the training data.
	outVals := make(map[string][]string)
	var outOrder []string
	for _, p := range pairs {
		for _, k := range p.Output.Keys() {
			v, _ := p.Output.Get(k)
			if _, ok := outVals[k]; !ok {
				outOrder = append(outOrder, k)
			}
			outVals[k] = append(outVals[k], v.Text())
		}
	}

	seenIn := make(map[string]bool)
	var inOrder []string
	for _, p := range pairs {
		for _, k := range p.Input.Keys() {
			if !seenIn[k] {
				seenIn[k] = true
				inOrder = append(inOrder, k)
			}
		}
	}

	m.TargetOrder = outOrder

	for _, outKey := range outOrder {
		vals := outVals[outKey]
		if allSame(vals) {
			m.Constants[outKey] = vals[0]
			continue
		}

		var (
			bestKey       string
			bestScore     int
			bestTransform Transform
			bestLookup    map[string]string
		)

		for _, inKey := range inOrder {
			copyScore, div10Score := 0, 0
			lookup := make(map[string]string)
			consistent := true
			scorable := 0

			for _, p := range pairs {
				inVal := textOf(p.Input, inKey)
				outVal := textOf(p.Output, outKey)

				if outVal == "" || outVal == "-" {
					continue
				}
				scorable++

				if inVal == outVal {
					copyScore++
				}
				if iv, err := strconv.ParseFloat(inVal, 64); err == nil {
					if ov, err := strconv.ParseFloat(outVal, 64); err == nil {
						if math.Abs(iv/10.0-ov) < 0.01 {
							div10Score++
						}
					}
				}
				if prev, ok := lookup[inVal]; ok {
					if prev != outVal {
						consistent = false
					}
				} else {
					lookup[inVal] = outVal
				}
			}

			if scorable == 0 {
				continue
			}

			score, transform := copyScore, TransformCopy
			if div10Score > copyScore {
				score, transform = div10Score, TransformDivide10
			}

			// A consistent lookup table wins over copy and scale only
			// when it covers strictly more pairs.
			if consistent && len(lookup) > 0 {
				lookupScore := 0
				for _, p := range pairs {
					inVal := textOf(p.Input, inKey)
					if want, ok := lookup[inVal]; ok && want == textOf(p.Output, outKey) {
						lookupScore++
					}
				}
				if lookupScore > score {
					score, transform = lookupScore, TransformLookup
				}
			}

			if score > bestScore {
				bestKey = inKey
				bestScore = score
				bestTransform = transform
				if transform == TransformLookup {
					bestLookup = lookup
				} else {
					bestLookup = nil
				}
			}
		}

		if bestKey != "" && bestScore > 0 {
			m.KeyMap[outKey] = KeyRule{Source: bestKey, Transform: bestTransform}
			if bestTransform == TransformLookup && len(bestLookup) > 0 {
				m.ValueMap[outKey] = bestLookup
			}
		}
	}

	for _, outKey := range outOrder {
		if _, ok := m.KeyMap[outKey]; ok {
			continue
		}
		if _, ok := m.Constants[outKey]; ok {
			continue
		}
		u := UnmappedKey{SampleValues: outVals[outKey]}
		if len(u.SampleValues) > maxSampleValues {
			u.SampleValues = u.SampleValues[:maxSampleValues]
		}
		for _, p := range pairs[:min(len(pairs), maxSampleInputs)] {
			if _, ok := p.Output.Get(outKey); ok {
				u.SampleInputs = append(u.SampleInputs, snapshot(p.Input))
			}
		}
		if m.Unmapped == nil {
			m.Unmapped = make(map[string]UnmappedKey)
		}
		m.Unmapped[outKey] = u
	}

	return m
}

func allSame(vals []string) bool {
	for _, v := range vals[1:] {
		if v != vals[0] {
			return false
		}
	}
	return true
}

// textOf reads key from m as its text form, empty when absent.
func textOf(m *params.Map, key string) string {
	v, ok := m.Get(key)
	if !ok {
		return ""
	}
	return v.Text()
}

// snapshot copies an input map into plain strings for diagnostics.
func snapshot(m *params.Map) map[string]string {
	out := make(map[string]string, m.Len())
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		out[k] = v.Text()
	}
	return out
}
