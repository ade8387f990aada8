// Package id generates prefixed unique identifiers for stored entities.
// Every persisted object carries one, e.g. "batch-V1StGXR8_Z5jdHi6B-myT"
// for an ingested training batch or "rec-..." for a translation record.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate returns "prefix-<nanoid>" using the default 21-character
// URL-safe NanoID alphabet. The prefix makes IDs self-describing in
// logs and API responses.
func Generate(prefix string) (string, error) {
	suffix, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + suffix, nil
}

// MustGenerate is Generate but panics when the system entropy source
// fails. Suitable for request paths where such a failure is fatal anyway.
func MustGenerate(prefix string) string {
	generated, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return generated
}
