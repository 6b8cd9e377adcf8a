package doctree

import (
	"strings"
	"unicode"
)

// Tokens splits text into word tokens. A token is either a maximal run of
// letters, digits and combining marks, or a single other non-space rune.
func Tokens(text string) []string {
	var toks []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			toks = append(toks, word.String())
			word.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r):
			word.WriteRune(r)
		default:
			flush()
			toks = append(toks, string(r))
		}
	}
	flush()
	return toks
}

// CountTokens returns len(Tokens(text)) without building the slice.
func CountTokens(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r):
			if !inWord {
				n++
				inWord = true
			}
		default:
			n++
			inWord = false
		}
	}
	return n
}
