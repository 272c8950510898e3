// Package usecases contains application business rules.
// Usecases orchestrate entities and depend on port interfaces only.
package usecases

import "strings"

// Segment splits text into paragraphs. Consecutive non-blank lines form one
// paragraph, joined with single spaces; blank lines end a paragraph. The
// result is deterministic and every paragraph is non-empty with internal
// whitespace collapsed.
func Segment(text string) []string {
	var (
		paragraphs []string
		buffer     []string
	)

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		paragraphs = append(paragraphs, strings.Join(buffer, " "))
		buffer = buffer[:0]
	}

	for raw := range strings.Lines(text) {
		line := strings.Join(strings.Fields(raw), " ")
		if line == "" {
			flush()
			continue
		}
		buffer = append(buffer, line)
	}
	flush()

	return paragraphs
}
