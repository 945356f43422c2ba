package normalizer

import (
	"encoding/json"
	"fmt"
)

const searchTextChunkSize = 1500
const searchTextMaxChunks = 4
const searchMaxResults = 5

// normalizeSearch handles both "search" and "crawl" tools: a JSON
// payload with a `.results` array gets a summary plus one section per
// result; anything else is treated as plain text.
func normalizeSearch(toolName, content string) ChunkedContent {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(content), &parsed); err == nil {
		if results, ok := parsed["results"].([]interface{}); ok {
			return searchResultSections(toolName, content, results)
		}
	}

	sections := make([]Section, 0, searchTextMaxChunks)
	for i, chunk := range splitIntoChunks(content, searchTextChunkSize, searchTextMaxChunks) {
		importance := PriorityMedium
		if i == 0 {
			importance = PriorityHigh
		}
		sections = append(sections, Section{Title: fmt.Sprintf("Result %d", i+1), Content: chunk, Importance: importance})
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

func searchResultSections(toolName, content string, results []interface{}) ChunkedContent {
	summary := fmt.Sprintf("%d results found", len(results))
	sections := []Section{
		{Title: "Summary", Content: summary, Importance: PriorityHigh},
	}

	limit := searchMaxResults
	if limit > len(results) {
		limit = len(results)
	}
	for i := 0; i < limit; i++ {
		importance := PriorityLow
		if i < 2 {
			importance = PriorityMedium
		}
		sections = append(sections, Section{
			Title:      fmt.Sprintf("Result %d", i+1),
			Content:    resultToText(results[i]),
			Importance: importance,
		})
	}
	return ChunkedContent{
		Type:     "chunked_response",
		Tool:     toolName,
		Summary:  summary,
		Sections: sections,
		Metadata: chunkedMetadata(content, sections),
	}
}

func resultToText(v interface{}) string {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(encoded)
}
