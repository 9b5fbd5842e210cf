package search

import "strings"

// Stop words filtered out of verbatim match checks. The corpus is
// predominantly Russian regulatory text with occasional English terms.
var stopWords = map[string]bool{
	"и": true, "в": true, "во": true, "на": true, "с": true, "со": true,
	"по": true, "для": true, "не": true, "что": true, "как": true,
	"из": true, "к": true, "о": true, "об": true, "а": true, "от": true,
	"при": true, "до": true, "за": true, "или": true, "это": true,
	"the": true, "a": true, "an": true, "of": true, "to": true,
	"in": true, "for": true, "and": true, "is": true, "are": true,
}

// Normalize canonicalizes a query for embedding and cache keying:
// lowercase, ё folded to е, and whitespace collapsed to single spaces.
// Two queries that normalize identically share a cache entry.
func Normalize(query string) string {
	lowered := strings.ToLower(query)
	lowered = strings.ReplaceAll(lowered, "ё", "е")
	return strings.Join(strings.Fields(lowered), " ")
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation,
// and removes stop words.
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"«»-()[]{}"))
		cleaned = strings.ReplaceAll(cleaned, "ё", "е")
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// containsAllQueryWords checks if all query words (after filtering) appear
// in the chunk text.
func containsAllQueryWords(text, query string) bool {
	queryWords := tokenizeAndFilter(query)
	if len(queryWords) == 0 {
		return false
	}

	textWords := tokenizeAndFilter(text)
	textWordSet := make(map[string]bool, len(textWords))
	for _, word := range textWords {
		textWordSet[word] = true
	}

	for _, qWord := range queryWords {
		if !textWordSet[qWord] {
			return false
		}
	}

	return true
}
