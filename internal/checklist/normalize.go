package checklist

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CollapseSpace trims s and collapses every run of Unicode whitespace to
// a single ASCII space.
func CollapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// CleanTitle is the display form of a task title: NFC, whitespace collapsed.
func CleanTitle(s string) string {
	return CollapseSpace(norm.NFC.String(s))
}

// TitleKey is the matching key for a title: NFC normalized, Unicode case
// folded, whitespace collapsed. Titles that differ only in case or spacing
// share a key.
func TitleKey(s string) string {
	folded := cases.Fold().String(norm.NFC.String(s))
	return CollapseSpace(folded)
}
