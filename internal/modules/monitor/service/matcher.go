package service

import (
	"regexp"
	"strings"
)

// wordPattern splits text into Unicode word tokens, the Go equivalent of
// the \b\w+\b scan the matching semantics are defined against.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// matchKeywords returns every keyword that equals one of the lower-cased
// word tokens of text. A keyword occurring only inside a longer token is not
// a match ("cat" does not match "category"). Keywords are expected to be
// normalized (trimmed, lower-cased) already.
func matchKeywords(text string, keywords []string) []string {
	if text == "" || len(keywords) == 0 {
		return nil
	}

	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		seen[token] = struct{}{}
	}

	var found []string
	for _, kw := range keywords {
		if _, ok := seen[kw]; ok {
			found = append(found, kw)
		}
	}
	return found
}
