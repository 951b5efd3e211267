package summarize

import "strings"

// parseTaggedSpans extracts the content between <DESC>...</DESC> and
// <TAGS>...</TAGS>. Missing tags yields a nil slice; missing description
// yields an empty string (the caller substitutes the thread's title).
func parseTaggedSpans(text string) *Summary {
	return &Summary{
		Description: extractSpan(text, "<DESC>", "</DESC>"),
		Tags:        splitTags(extractSpan(text, "<TAGS>", "</TAGS>")),
	}
}

func extractSpan(text, open, close string) string {
	start := strings.Index(text, open)
	if start == -1 {
		return ""
	}
	start += len(open)
	end := strings.Index(text[start:], close)
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(text[start : start+end])
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
