// Package normalizer implements the Response Normalizer: it turns an
// oversized string tool result into a bounded, structured summary
// instead of handing the full payload back to the caller.
package normalizer

import (
	"fmt"
	"strings"
)

// Section priorities, used by callers deciding how much of a
// ChunkedContent result to surface.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Section is one piece of a ChunkedContent result.
type Section struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Importance string `json:"importance"`
}

// Metadata captures what a ChunkedContent summarized away.
type Metadata struct {
	OriginalLength  int    `json:"original_length"`
	ProcessedLength int    `json:"processed_length"`
	URL             string `json:"url,omitempty"`
	Title           string `json:"title,omitempty"`
}

// ChunkedContent is the normal-path output: a bounded set of sections
// summarizing an oversized result.
type ChunkedContent struct {
	Type     string    `json:"type"`
	Tool     string    `json:"tool"`
	Summary  string    `json:"summary"`
	Sections []Section `json:"sections"`
	Metadata Metadata  `json:"metadata"`
}

// Kind reports the outputKind metrics label for a ChunkedContent value.
func (c ChunkedContent) Kind() string { return c.Type }

// TruncatedResponse is the fallback output when normalization itself
// cannot make sense of the result.
type TruncatedResponse struct {
	Type           string `json:"type"`
	Tool           string `json:"tool"`
	Content        string `json:"content"`
	Note           string `json:"note"`
	OriginalLength int    `json:"original_length"`
}

// Kind reports the outputKind metrics label for a TruncatedResponse value.
func (t TruncatedResponse) Kind() string { return t.Type }

const truncatedResponseLimit = 3000

// Normalize dispatches content to a toolName-specific strategy and
// returns a ChunkedContent summary. Dispatch is purely by substring
// match on toolName: "fetch" gets HTML-aware extraction, "search" or
// "crawl" tries a JSON results array first, and anything else falls
// back to plain sentence chunking. A panic anywhere in a strategy
// (malformed input defeating a defensive assumption) is recovered into
// a TruncatedResponse rather than propagating.
func Normalize(toolName, content string) (result interface{}) {
	defer func() {
		if r := recover(); r != nil {
			result = truncatedResponse(toolName, content, fmt.Sprintf("normalization failed: %v", r))
		}
	}()

	lower := strings.ToLower(toolName)
	switch {
	case strings.Contains(lower, "fetch"):
		return normalizeFetch(toolName, content)
	case strings.Contains(lower, "search") || strings.Contains(lower, "crawl"):
		return normalizeSearch(toolName, content)
	default:
		return normalizeGeneric(toolName, content)
	}
}

func truncatedResponse(toolName, content, note string) TruncatedResponse {
	limit := truncatedResponseLimit
	if limit > len(content) {
		limit = len(content)
	}
	return TruncatedResponse{
		Type:           "truncated_response",
		Tool:           toolName,
		Content:        content[:limit],
		Note:           note,
		OriginalLength: len(content),
	}
}

func normalizeGeneric(toolName, content string) ChunkedContent {
	const maxChunkSize = 2000
	const maxChunks = 3

	chunks := splitIntoChunks(content, maxChunkSize, maxChunks)
	sections := make([]Section, len(chunks))
	for i, c := range chunks {
		importance := PriorityMedium
		if i == 0 {
			importance = PriorityHigh
		}
		sections[i] = Section{Title: fmt.Sprintf("Chunk %d", i+1), Content: c, Importance: importance}
	}
	summary := ellipsize(content, fetchSummaryLen)
	return ChunkedContent{
		Type:     "chunked_response",
		Tool:     toolName,
		Summary:  summary,
		Sections: sections,
		Metadata: chunkedMetadata(content, sections),
	}
}

// chunkedMetadata reports the original length of the normalized content and
// the length actually retained across every section's content.
func chunkedMetadata(original string, sections []Section) Metadata {
	processed := 0
	for _, s := range sections {
		processed += len(s.Content)
	}
	return Metadata{OriginalLength: len(original), ProcessedLength: processed}
}
