package normalizer

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNormalizeFetchExtractsTitleSummaryAndHeadings(t *testing.T) {
	html := `<html><head><title>Example Domain</title>
<meta name="description" content="An example page for illustration">
</head><body><h1>Welcome</h1><h2>Details</h2><script>ignored()</script>
<p>` + strings.Repeat("This is body content. ", 200) + `</p></body></html>`

	result := Normalize("web_fetch", html)
	cc, ok := result.(ChunkedContent)
	if !ok {
		t.Fatalf("expected ChunkedContent, got %T", result)
	}
	if cc.Sections[0].Title != "Page Title" || cc.Sections[0].Content != "Example Domain" {
		t.Fatalf("unexpected title section: %+v", cc.Sections[0])
	}
	if cc.Sections[1].Content != "An example page for illustration" {
		t.Fatalf("expected meta description as summary, got %q", cc.Sections[1].Content)
	}
	foundKeySections := false
	for _, s := range cc.Sections {
		if s.Title == "Key Sections" {
			foundKeySections = true
			if !strings.Contains(s.Content, "Welcome") || !strings.Contains(s.Content, "Details") {
				t.Fatalf("expected both headings bulleted, got %q", s.Content)
			}
		}
		if strings.Contains(s.Content, "ignored()") {
			t.Fatal("expected script content to be stripped")
		}
	}
	if !foundKeySections {
		t.Fatal("expected a Key Sections entry for extracted headings")
	}
}

func TestNormalizeFetchFallsBackToWebPageTitle(t *testing.T) {
	result := Normalize("fetch_page", `<html><body><p>no title here</p></body></html>`)
	cc := result.(ChunkedContent)
	if cc.Sections[0].Content != "Web Page" {
		t.Fatalf("expected fallback title, got %q", cc.Sections[0].Content)
	}
}

func TestNormalizeFetchSummaryFallsBackToContentWhenNoMetaDescription(t *testing.T) {
	body := strings.Repeat("Sentence number content here. ", 30)
	result := Normalize("fetch_doc", `<html><body><p>`+body+`</p></body></html>`)
	cc := result.(ChunkedContent)
	if cc.Sections[1].Content == "" {
		t.Fatal("expected a derived summary when no meta description is present")
	}
	if len(cc.Sections[1].Content) > 303 {
		t.Fatalf("expected summary ellipsized near 300 chars, got length %d", len(cc.Sections[1].Content))
	}
}

func TestNormalizeSearchWithResultsArrayEmitsSummaryAndPerResultSections(t *testing.T) {
	payload, _ := json.Marshal(map[string]interface{}{
		"results": []interface{}{
			map[string]interface{}{"title": "first"},
			map[string]interface{}{"title": "second"},
			map[string]interface{}{"title": "third"},
		},
	})

	result := Normalize("web_search", string(payload))
	cc := result.(ChunkedContent)
	if cc.Sections[0].Title != "Summary" || cc.Sections[0].Content != "3 results found" {
		t.Fatalf("expected summary section, got %+v", cc.Sections[0])
	}
	if len(cc.Sections) != 4 {
		t.Fatalf("expected summary + 3 results, got %d sections", len(cc.Sections))
	}
	if cc.Sections[1].Importance != PriorityMedium || cc.Sections[3].Importance != PriorityLow {
		t.Fatalf("expected first two results medium and rest low, got %+v", cc.Sections)
	}
}

func TestNormalizeSearchCapsAtFiveResults(t *testing.T) {
	items := make([]interface{}, 8)
	for i := range items {
		items[i] = map[string]interface{}{"n": i}
	}
	payload, _ := json.Marshal(map[string]interface{}{"results": items})

	result := Normalize("crawl_site", string(payload))
	cc := result.(ChunkedContent)
	if len(cc.Sections) != 1+5 {
		t.Fatalf("expected summary + 5 results, got %d", len(cc.Sections))
	}
}

func TestNormalizeSearchNonJSONFallsBackToTextChunks(t *testing.T) {
	text := strings.Repeat("Some unstructured search text. ", 200)
	result := Normalize("search_tool", text)
	cc := result.(ChunkedContent)
	if len(cc.Sections) == 0 || len(cc.Sections) > 4 {
		t.Fatalf("expected up to 4 chunks, got %d", len(cc.Sections))
	}
	if cc.Sections[0].Importance != PriorityHigh {
		t.Fatalf("expected first text chunk high priority, got %s", cc.Sections[0].Importance)
	}
}

func TestNormalizeGenericProducesUpToThreeChunks(t *testing.T) {
	text := strings.Repeat("Generic tool output sentence. ", 400)
	result := Normalize("some_other_tool", text)
	cc := result.(ChunkedContent)
	if len(cc.Sections) > 3 {
		t.Fatalf("expected at most 3 chunks, got %d", len(cc.Sections))
	}
	if cc.Metadata.OriginalLength != len(text) {
		t.Fatalf("expected metadata.original_length=%d, got %d", len(text), cc.Metadata.OriginalLength)
	}
	if cc.Metadata.ProcessedLength == 0 {
		t.Fatal("expected metadata.processed_length to reflect the retained section content")
	}
	if cc.Sections[0].Importance != PriorityHigh {
		t.Fatalf("expected first chunk high priority, got %s", cc.Sections[0].Importance)
	}
	for _, s := range cc.Sections {
		if len(s.Content) > 2000 {
			t.Fatalf("expected chunk content bounded to 2000 chars, got %d", len(s.Content))
		}
	}
}

func TestSplitIntoChunksTruncatesOverlongSentence(t *testing.T) {
	oneGiantSentence := strings.Repeat("x", 5000)
	chunks := splitIntoChunks(oneGiantSentence+".", 2000, 0)
	if len(chunks) != 1 {
		t.Fatalf("expected one truncated chunk, got %d", len(chunks))
	}
	if len(chunks[0]) != 2000 {
		t.Fatalf("expected truncated chunk capped at 2000 chars, got %d", len(chunks[0]))
	}
	if !strings.HasSuffix(chunks[0], "...") {
		t.Fatalf("expected ellipsis suffix, got %q", chunks[0][len(chunks[0])-10:])
	}
}

func TestSplitIntoChunksRespectsMaxChunksLimit(t *testing.T) {
	text := strings.Repeat("Short sentence. ", 500)
	chunks := splitIntoChunks(text, 500, 3)
	if len(chunks) != 3 {
		t.Fatalf("expected exactly 3 chunks, got %d", len(chunks))
	}
}

func TestTruncatedResponsePreservesOriginalLength(t *testing.T) {
	content := strings.Repeat("z", 4000)
	got := truncatedResponse("anything", content, "forced failure")
	if got.OriginalLength != 4000 {
		t.Fatalf("expected original_length=4000, got %d", got.OriginalLength)
	}
	if len(got.Content) != 3000 {
		t.Fatalf("expected content capped at 3000 chars, got %d", len(got.Content))
	}
	if got.Type != "truncated_response" {
		t.Fatalf("expected type=truncated_response, got %s", got.Type)
	}
}

func TestTruncatedResponseHandlesContentShorterThanLimit(t *testing.T) {
	content := "short content"
	got := truncatedResponse("anything", content, "note")
	if got.Content != content {
		t.Fatalf("expected content unchanged when shorter than the limit, got %q", got.Content)
	}
	if got.OriginalLength != len(content) {
		t.Fatalf("expected original_length=%d, got %d", len(content), got.OriginalLength)
	}
}

func TestKindMethodsReportType(t *testing.T) {
	if (ChunkedContent{Type: "chunked_response"}).Kind() != "chunked_response" {
		t.Fatal("expected ChunkedContent.Kind() to report its Type field")
	}
	if (TruncatedResponse{Type: "truncated_response"}).Kind() != "truncated_response" {
		t.Fatal("expected TruncatedResponse.Kind() to report its Type field")
	}
}
