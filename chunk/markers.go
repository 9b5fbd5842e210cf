package chunk

import (
	"regexp"
	"strings"
)

// Pattern rules for the regulatory-document domain: numbered clauses
// ("5", "5.2", "5.2.1"), appendices and named parts of Russian normative
// texts (СП, СНиП, ГОСТ).
var (
	// clauseLineRe matches a line that opens a numbered clause at any depth.
	clauseLineRe = regexp.MustCompile(`(?m)^\s*(\d+(?:\.\d+)*)\.?\s+\S`)

	// appendixLineRe matches appendix and section headers.
	appendixLineRe = regexp.MustCompile(`(?m)^\s*(Приложение\s+[А-ЯA-Z0-9]+|Раздел\s+\d+|Таблица\s+[\d.]+)`)

	// sentenceRe splits unstructured text into sentence-ish pieces.
	sentenceRe = regexp.MustCompile(`[^.!?\n]+[.!?\n]?`)

	// entityRe captures references to other normative documents.
	entityRe = regexp.MustCompile(`(?:ГОСТ|СП|СНиП|СанПиН|ГЭСН)\s*Р?\s*\d+(?:\.\d+)*(?:-\d+)?`)
)

// marker is a structural boundary found in a text segment.
type marker struct {
	offset int    // byte offset of the marker line within the segment
	label  string // clause number or appendix name
	depth  int    // 1 for "5", 2 for "5.2", ...
}

// findMarkers locates structural boundaries of the requested depth.
// Depth 1 finds top-level clauses and appendices; deeper levels find
// numbered subclauses nested under the given parent label.
func findMarkers(text string, depth int, parentLabel string) []marker {
	var markers []marker

	for _, loc := range clauseLineRe.FindAllStringSubmatchIndex(text, -1) {
		label := text[loc[2]:loc[3]]
		d := strings.Count(label, ".") + 1
		if d != depth {
			continue
		}
		if parentLabel != "" && !strings.HasPrefix(label, parentLabel+".") {
			continue
		}
		markers = append(markers, marker{offset: loc[0], label: label, depth: d})
	}

	if depth == 1 {
		for _, loc := range appendixLineRe.FindAllStringSubmatchIndex(text, -1) {
			markers = append(markers, marker{
				offset: loc[0],
				label:  strings.Join(strings.Fields(text[loc[2]:loc[3]]), " "),
				depth:  1,
			})
		}
		sortMarkers(markers)
	}

	return markers
}

func sortMarkers(markers []marker) {
	for i := 1; i < len(markers); i++ {
		for j := i; j > 0 && markers[j].offset < markers[j-1].offset; j-- {
			markers[j], markers[j-1] = markers[j-1], markers[j]
		}
	}
}

// detectEntities returns the unique normative references mentioned in text,
// in order of first appearance.
func detectEntities(text string) []string {
	matches := entityRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	entities := make([]string, 0, len(matches))
	for _, m := range matches {
		normalized := strings.Join(strings.Fields(m), " ")
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		entities = append(entities, normalized)
	}
	return entities
}

// isClauseStart reports whether a sentence opens with a clause marker.
func isClauseStart(sentence string) bool {
	return clauseLineRe.MatchString(sentence) || appendixLineRe.MatchString(sentence)
}
