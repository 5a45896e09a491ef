package subtitle

import "strings"

// Chunk groups whole lines into pieces no longer than maxLen characters,
// counting the newlines that join them. A line that is itself longer than
// maxLen is emitted alone and left oversized.
func Chunk(text string, maxLen int) []string {
	if text == "" {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0
	for _, line := range strings.Split(text, "\n") {
		lineLen := len([]rune(line))
		next := lineLen
		if len(current) > 0 {
			next = currentLen + 1 + lineLen
		}
		if len(current) > 0 && next > maxLen {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = current[:0]
			next = lineLen
		}
		current = append(current, line)
		currentLen = next
	}
	return append(chunks, strings.Join(current, "\n"))
}
