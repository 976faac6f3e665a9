// Package parser converts between edge lists and the single-line strings
// used while a note is being edited.
package parser

import (
	"slices"
	"strings"
)

// Delimiters separates words in an edit string.
const Delimiters = " ,"

// ParseWords splits words on any character in Delimiters, drops empty tokens
// and returns the remaining words sorted and de-duplicated.
func ParseWords(words string) []string {
	keys := strings.FieldsFunc(words, func(r rune) bool {
		return strings.ContainsRune(Delimiters, r)
	})
	slices.Sort(keys)
	return slices.Compact(keys)
}

// JoinWords renders titles as an edit string. Every word is preceded by a
// single space, so a non-empty result always starts with the separator.
func JoinWords(titles []string) string {
	var b strings.Builder
	for _, t := range titles {
		b.WriteByte(' ')
		b.WriteString(t)
	}
	return b.String()
}
