package params

import (
	"bytes"
	"encoding/json/jsontext"
	"fmt"
	"slices"
	"strings"
)

// metadataSuffixes mark companion keys exported alongside each parameter in
// upstream order dumps. They carry display metadata, not parameter values,
// and are stripped during flattening. Order matters: longer suffixes first so
// "_ALIAS___DESCRIPTION" is not consumed as "_ALIAS".
var metadataSuffixes = []string{
	"_ALIAS___DESCRIPTION",
	"___DESCRIPTION",
	"___TITLE",
	"___VISIBLE",
	"___DICT",
	"_ALIAS",
}

// isMetadataKey reports whether key is a metadata companion rather than a
// parameter value.
func isMetadataKey(key string) bool {
	for _, s := range metadataSuffixes {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	return false
}

// Parse splits a "KEY=VAL, KEY=VAL" parameter string into a Map.
// Segments are comma separated and whitespace trimmed; a segment without '='
// is silently skipped. Values split on the first '=' only, so values may
// contain '='.
func Parse(s string) *Map {
	m := NewMap()
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		m.Set(strings.TrimSpace(key), String(strings.TrimSpace(val)))
	}
	return m
}

// Flatten converts a decoded record parameter object into a flat Map.
// Metadata companion keys are dropped. Nested objects contribute dotted
// sub-keys ("PARENT.SUB"), with their own metadata keys dropped too.
// Key order follows the supplied order slice so repeated flattens of the
// same record agree.
func Flatten(raw map[string]any, order []string) *Map {
	flat := NewMap()
	for _, key := range order {
		if isMetadataKey(key) {
			continue
		}
		val, ok := raw[key]
		if !ok {
			continue
		}
		nested, isObj := val.(map[string]any)
		if !isObj {
			flat.Set(key, fromAny(val))
			continue
		}
		subOrder := sortedAnyKeys(nested)
		for _, sub := range subOrder {
			if isMetadataKey(sub) {
				continue
			}
			if _, deeper := nested[sub].(map[string]any); deeper {
				continue
			}
			flat.Set(key+"."+sub, fromAny(nested[sub]))
		}
	}
	return flat
}

// sortedAnyKeys returns map keys in a stable order. Nested objects lose their
// document order during decode, so lexicographic order keeps flattening
// deterministic.
func sortedAnyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// objectKeyOrder token-scans a JSON object and returns its keys in document
// order.
func objectKeyOrder(data []byte) ([]string, error) {
	dec := jsontext.NewDecoder(bytes.NewReader(data))
	tok, err := dec.ReadToken()
	if err != nil {
		return nil, err
	}
	if tok.Kind() != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok.Kind())
	}
	var keys []string
	for {
		tok, err = dec.ReadToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind() == '}' {
			return keys, nil
		}
		keys = append(keys, tok.String())
		if err := dec.SkipValue(); err != nil {
			return nil, err
		}
	}
}
