// Package abacus turns abacus drill questions into the tokens revealed one at a time,
// and computes their answers.
package abacus

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	TimesGlyph  = "×"
	DivideGlyph = "÷"
)

// a token is an optional operator followed by a number, eg: "12", "+2", "-3.5", "*2", "÷4".
var tokenRegex = regexp.MustCompile(`[+\-*/×÷]?\d+(?:\.\d+)?`)

// Tokenize splits a question into its ordered tokens, matched greedily left to right.
// Characters that are not part of a token are skipped.
//
//	"1+2-3*2" -> ["1", "+2", "-3", "*2"]
func Tokenize(question string) []string {
	matches := tokenRegex.FindAllString(question, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}

// Join rebuilds the expression played back by `tokens`.
func Join(tokens []string) string {
	return strings.Join(tokens, "")
}

var displayReplacer = strings.NewReplacer("*", "x", "/", DivideGlyph)

// FormatForDisplay renders a token the way it is shown on the flash card.
func FormatForDisplay(token string) string {
	return displayReplacer.Replace(token)
}

// QuestionLabel returns the letter naming the i-th (0 based) question: A, B, C...
func QuestionLabel(i int) string {
	if i >= 0 && i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("Q%d", i+1)
}
