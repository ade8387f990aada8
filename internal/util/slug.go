// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"
)

var (
	// Matches characters that are not word characters, whitespace, or dashes.
	nonWordRe = regexp.MustCompile(`[^\w\s-]`)
	// Matches runs of whitespace (for replacement with underscores).
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CategorySlug converts a category name to the filename-safe slug used for
// its persisted mapping document. Case is preserved so the files stay
// recognizable next to the category names they came from.
//
// Normalization rules:
//  1. Replace non-word characters (except whitespace and dashes) with
//     underscores
//  2. Trim surrounding whitespace
//  3. Replace whitespace runs with underscores
//
// Examples:
//
//	"Roller Blinds"    → "Roller_Blinds"
//	"Blinds / Premium" → "Blinds___Premium"
//	"  Pleats  25mm "  → "Pleats_25mm"
func CategorySlug(input string) string {
	s := nonWordRe.ReplaceAllString(input, "_")
	s = strings.TrimSpace(s)
	return whitespaceRe.ReplaceAllString(s, "_")
}

// SlugWords reverses CategorySlug far enough for fuzzy comparison: every
// underscore becomes a space and the result is lowercased. The original
// category name is not recoverable, only comparable.
func SlugWords(slug string) string {
	return strings.ToLower(strings.ReplaceAll(slug, "_", " "))
}
