package normalizer

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

const fetchChunkSize = 2000
const fetchMaxChunks = 3
const maxHeadings = 8
const fetchSummaryLen = 300

var (
	titleTagRe    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	headingTagRe  = regexp.MustCompile(`(?is)<h[1-6][^>]*>(.*?)</h[1-6]>`)
	metaDescRe    = regexp.MustCompile(`(?is)<meta[^>]+name=["']description["'][^>]+content=["']([^"']*)["']`)
	firstURLRe    = regexp.MustCompile(`https?://[^\s"'<>]+`)
	stripBlockRe  = regexp.MustCompile(`(?is)<(script|style|nav|footer|header)[^>]*>.*?</(script|style|nav|footer|header)>`)
	anyTagRe      = regexp.MustCompile(`<[^>]+>`)
	collapseWSRe  = regexp.MustCompile(`\s+`)
)

// normalizeFetch extracts title/heading/meta-description structure out
// of an HTML document before falling back to plain-text chunking for
// the remaining body.
func normalizeFetch(toolName, content string) ChunkedContent {
	title := cleanInlineOr(firstSubmatch(titleTagRe, content), "Web Page")
	metaDescription := cleanInlineOr(firstSubmatch(metaDescRe, content), "")
	headings := extractHeadings(content)
	sourceURL := firstURLRe.FindString(content)

	body := stripBlockRe.ReplaceAllString(content, " ")
	body = anyTagRe.ReplaceAllString(body, " ")
	body = collapseWSRe.ReplaceAllString(html.UnescapeString(body), " ")
	body = strings.TrimSpace(body)

	summary := metaDescription
	if summary == "" {
		summary = ellipsize(body, fetchSummaryLen)
	}

	sections := []Section{
		{Title: "Page Title", Content: title, Importance: PriorityHigh},
		{Title: "Summary", Content: summary, Importance: PriorityHigh},
	}
	if len(headings) > 0 {
		bulleted := make([]string, len(headings))
		for i, h := range headings {
			bulleted[i] = "- " + h
		}
		sections = append(sections, Section{
			Title:      "Key Sections",
			Content:    strings.Join(bulleted, "\n"),
			Importance: PriorityMedium,
		})
	}
	if sourceURL != "" {
		sections = append(sections, Section{Title: "Source URL", Content: sourceURL, Importance: PriorityLow})
	}

	for i, chunk := range splitIntoChunks(body, fetchChunkSize, fetchMaxChunks) {
		importance := PriorityLow
		if i == 0 {
			importance = PriorityMedium
		}
		sections = append(sections, Section{Title: fmt.Sprintf("Content %d", i+1), Content: chunk, Importance: importance})
	}

	meta := chunkedMetadata(content, sections)
	meta.URL = sourceURL
	meta.Title = title

	return ChunkedContent{
		Type:     "chunked_response",
		Tool:     toolName,
		Summary:  summary,
		Sections: sections,
		Metadata: meta,
	}
}

func extractHeadings(content string) []string {
	matches := headingTagRe.FindAllStringSubmatch(content, -1)
	headings := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(headings) >= maxHeadings {
			break
		}
		if len(m) < 2 {
			continue
		}
		cleaned := cleanInline(m[1])
		if cleaned == "" {
			continue
		}
		headings = append(headings, cleaned)
	}
	return headings
}

func firstSubmatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func cleanInline(s string) string {
	s = anyTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = collapseWSRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func cleanInlineOr(s, fallback string) string {
	cleaned := cleanInline(s)
	if cleaned == "" {
		return fallback
	}
	return cleaned
}
