package store

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// nonTokenRegex matches everything that is not a word character, whitespace or hyphen.
var nonTokenRegex = regexp.MustCompile(`[^\p{L}\p{N}_\s-]+`)

// creditCodes are two-letter codes kept even when they collide with stop words.
var creditCodes = map[string]struct{}{
	"ea": {}, "we": {}, "mr": {}, "eq": {}, "ss": {}, "lt": {}, "in": {}, "rp": {}, "ip": {},
	"nc": {}, "cs": {}, "bd": {}, "id": {}, "om": {}, "nd": {},
}

// DefaultStopWords are dropped from indexed text and queries.
// Two-letter credit codes are never stop words.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "can", "do", "does", "for",
	"from", "has", "have", "how", "is", "it", "its", "of", "on", "or", "should",
	"that", "the", "their", "this", "to", "was", "what", "when", "which", "with",
}

var defaultStopWordMap = BuildStopWordMap(DefaultStopWords)

// TokenizeText lowercases text and splits it into index terms.
// Hyphenated credit identifiers like "EA-p2" are kept whole and also emitted
// as their parts, so both "ea-p2" and "ea" match. Tokens shorter than two
// characters and stop words are dropped.
func TokenizeText(text string) []string {
	cleaned := nonTokenRegex.ReplaceAllString(strings.ToLower(text), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		word = strings.Trim(word, "-_")
		if !keepToken(word) {
			continue
		}
		tokens = append(tokens, word)

		if strings.Contains(word, "-") {
			for _, part := range strings.Split(word, "-") {
				if keepToken(part) {
					tokens = append(tokens, part)
				}
			}
		}
	}

	return tokens
}

func keepToken(tok string) bool {
	if _, ok := creditCodes[tok]; ok {
		return true
	}
	if utf8.RuneCountInString(tok) < 2 {
		return false
	}
	_, stop := defaultStopWordMap[tok]
	return !stop
}

// BuildStopWordMap converts a slice of stop words to a map for efficient lookup.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}

// uniqueTerms returns tokens with duplicates removed, preserving first occurrence.
func uniqueTerms(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
