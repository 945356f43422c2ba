package normalizer

import (
	"regexp"
	"strings"
)

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// splitIntoChunks implements the sentence-boundary chunking algorithm:
// split on sentence-ending punctuation, reassemble sentences into
// chunks no larger than maxChunkSize (re-appending a period), and
// truncate any single sentence that alone exceeds maxChunkSize. At most
// maxChunks chunks are returned; a maxChunks of 0 means unlimited.
func splitIntoChunks(text string, maxChunkSize, maxChunks int) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, raw := range sentenceBoundary.Split(text, -1) {
		sentence := strings.TrimSpace(raw)
		if sentence == "" {
			continue
		}
		sentence += "."

		if len(sentence) > maxChunkSize {
			flush()
			chunks = append(chunks, truncateWithEllipsis(sentence, maxChunkSize))
			continue
		}

		if current.Len() > 0 && current.Len()+1+len(sentence) > maxChunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}
	flush()

	if maxChunks > 0 && len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}
	return chunks
}

func truncateWithEllipsis(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func ellipsize(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return strings.TrimSpace(s[:maxLen]) + "..."
}
