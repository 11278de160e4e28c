package application

import (
	"strings"
	"unicode"

	"handsfree/internal/domain"
)

type ruleKind int

const (
	ruleAction ruleKind = iota + 1
	ruleDigit
	ruleCancel
)

type vocabularyEntry struct {
	kind   ruleKind
	action domain.ActionKind
	digit  byte
}

// vocabulary maps a normalized utterance to the rule it triggers. Matching is
// against the whole utterance, so one turn yields at most one digit.
var vocabulary = map[string]vocabularyEntry{
	"text":   {kind: ruleAction, action: domain.ActionText},
	"call":   {kind: ruleAction, action: domain.ActionCall},
	"photos": {kind: ruleAction, action: domain.ActionPhotos},

	"stop":   {kind: ruleCancel},
	"cancel": {kind: ruleCancel},

	"zero":  {kind: ruleDigit, digit: '0'},
	"one":   {kind: ruleDigit, digit: '1'},
	"two":   {kind: ruleDigit, digit: '2'},
	"three": {kind: ruleDigit, digit: '3'},
	"four":  {kind: ruleDigit, digit: '4'},
	"five":  {kind: ruleDigit, digit: '5'},
	"six":   {kind: ruleDigit, digit: '6'},
	"seven": {kind: ruleDigit, digit: '7'},
	"eight": {kind: ruleDigit, digit: '8'},
	"nine":  {kind: ruleDigit, digit: '9'},
	"0":     {kind: ruleDigit, digit: '0'},
	"1":     {kind: ruleDigit, digit: '1'},
	"2":     {kind: ruleDigit, digit: '2'},
	"3":     {kind: ruleDigit, digit: '3'},
	"4":     {kind: ruleDigit, digit: '4'},
	"5":     {kind: ruleDigit, digit: '5'},
	"6":     {kind: ruleDigit, digit: '6'},
	"7":     {kind: ruleDigit, digit: '7'},
	"8":     {kind: ruleDigit, digit: '8'},
	"9":     {kind: ruleDigit, digit: '9'},
}

// normalize lower-cases the utterance. Punctuation is kept.
func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// lastDigit returns the final decimal digit of token, if it has any.
// Recognizers often render spoken digits as numerals ("5", "55").
func lastDigit(token string) (string, bool) {
	idx := strings.LastIndexFunc(token, unicode.IsDigit)
	if idx < 0 {
		return "", false
	}
	return token[idx : idx+1], true
}

func lookup(token string, collecting domain.CollectionKind) (vocabularyEntry, bool) {
	if collecting == domain.CollectDestinationNumber {
		if digit, ok := lastDigit(token); ok {
			token = digit
		}
	}
	entry, ok := vocabulary[token]
	return entry, ok
}
