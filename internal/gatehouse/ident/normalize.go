// Package ident canonicalizes scanned credential identifiers (RFID UIDs).
//
// Readers and historical imports have written the same physical card into the
// directory in several encodings: upper/lower case, with or without byte
// separators, sometimes with a hex prefix. Normalize produces the one
// canonical form; Variants enumerates the encodings a lookup should try so
// that old rows keep resolving without a data migration.
package ident

import (
	"errors"
	"strings"
	"unicode"
)

// ErrNotHex is returned when an identifier contains characters that are not
// hex digits after separators are stripped.
var ErrNotHex = errors.New("identifier is not hexadecimal")

// minWidth is the minimum canonical width in hex characters. Short UIDs are
// left-padded with zeros so "63 99 C2 2F" and "6399c22f" and "0x6399C22F"
// all canonicalize identically.
const minWidth = 8

// Normalize returns the canonical form of a raw identifier: hex prefix
// stripped, separators removed, upper-cased, zero-padded to minWidth.
// The input is never mutated; callers decide whether to persist the result.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		// Embedded line breaks show up in paste-imported identifier lists,
		// so any whitespace counts as a separator, not just spaces.
		if unicode.IsSpace(r) {
			continue
		}
		switch r {
		case ':', '-', '.':
			continue
		}
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'a' && r <= 'f':
			b.WriteRune(r - ('a' - 'A'))
		case r >= 'A' && r <= 'F':
			b.WriteRune(r)
		default:
			return "", ErrNotHex
		}
	}

	out := b.String()
	if out == "" {
		return "", ErrNotHex
	}
	if len(out) < minWidth {
		out = strings.Repeat("0", minWidth-len(out)) + out
	}
	return out, nil
}

// Variants returns the ordered set of encodings to try when looking up raw
// against the directory: the canonical form first, then the lower-case form,
// then byte-pair groupings joined by space, colon and dash in both cases.
// Duplicates are removed preserving first-seen order.
//
// If raw does not normalize, the single-element set {raw} is returned so a
// lookup degrades to an exact-string match instead of failing outright.
func Variants(raw string) []string {
	canonical, err := Normalize(raw)
	if err != nil {
		return []string{raw}
	}

	lower := strings.ToLower(canonical)
	candidates := []string{
		canonical,
		lower,
		groupPairs(canonical, " "),
		groupPairs(canonical, ":"),
		groupPairs(canonical, "-"),
		groupPairs(lower, " "),
		groupPairs(lower, ":"),
		groupPairs(lower, "-"),
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// groupPairs splits s into 2-character groups joined by sep. An odd trailing
// character becomes its own group.
func groupPairs(s, sep string) string {
	if len(s) <= 2 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(s)/2*len(sep))
	for i := 0; i < len(s); i += 2 {
		if i > 0 {
			b.WriteString(sep)
		}
		end := i + 2
		if end > len(s) {
			end = len(s)
		}
		b.WriteString(s[i:end])
	}
	return b.String()
}
