// Package resolve maps respondent names from the source dataset to
// registered clients using normalized exact, no-space, suffix-fragment, and
// partial matching strategies.
package resolve

import (
	"regexp"
	"strings"
)

// legalSuffixes lists legal entity suffixes stripped during normalization.
// Longer punctuated variants come first so they win over their bare forms.
var legalSuffixes = []string{
	" L.L.C.", " L.L.C", " LLC.", " LLC",
	" INCORPORATED", " INC.", " INC",
	" CORPORATION", " CORP.", " CORP",
	" LIMITED", " LTD.", " LTD",
	" CO.", " CO",
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// Normalize standardizes an entity name for matching by:
//  1. Trimming whitespace
//  2. Lowercasing
//  3. Removing a trailing legal suffix (LLC, Inc, Corp, Co, Ltd and
//     punctuated variants)
//  4. Stripping punctuation
//  5. Collapsing internal whitespace
//
// Total: empty or whitespace-only input yields "".
func Normalize(name string) string {
	name = CoreName(name)
	if name == "" {
		return ""
	}

	name = strings.ToLower(name)

	name = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		"\"", "",
		"&", " and ",
		"-", " ",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// CoreName trims a name, collapses runs of whitespace, and strips one
// trailing legal suffix, preserving the original casing and punctuation of
// what remains. The fetcher derives search terms from core names so the
// source's LIKE filter sees the name as published, minus the suffix noise.
func CoreName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = multiSpaceRe.ReplaceAllString(name, " ")

	upper := strings.ToUpper(name)
	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(upper, suffix) {
			name = strings.TrimSpace(name[:len(name)-len(suffix)])
			break
		}
	}
	return name
}

// NoSpace returns the normalized name with all spaces removed. Source
// records frequently arrive with arbitrary spacing ("J&B TOWING" vs
// "J & B TOWING"), so every lookup key is also registered space-free.
func NoSpace(normalized string) string {
	return strings.ReplaceAll(normalized, " ", "")
}
