package workflow

// NormalizeSource reduces a raw source map (as a tool or the LLM might
// produce it) to the common NormalizedSource shape, truncating the
// snippet to maxSnippetChars. Keys are read defensively: any missing
// or wrong-typed field is left at its zero value rather than panicking.
func NormalizeSource(raw map[string]interface{}, maxSnippetChars int) NormalizedSource {
	out := NormalizedSource{
		DocumentID:  stringField(raw, "document_id"),
		Title:       stringField(raw, "title"),
		URL:         stringField(raw, "url"),
		Collection:  stringField(raw, "collection"),
		AccessLevel: stringField(raw, "access_level"),
	}
	if score, ok := raw["score"].(float64); ok {
		out.Score = score
	}
	out.Snippet = truncateRunes(stringField(raw, "snippet"), maxSnippetChars)
	return out
}

// truncateRunes truncates s to at most maxChars runes, never splitting
// a multibyte UTF-8 rune.
func truncateRunes(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}

func stringField(raw map[string]interface{}, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

// dedupeKey returns the first non-null of url, document_id, title —
// the key used to deduplicate across sources from multiple agents.
func dedupeKey(s NormalizedSource) (string, bool) {
	switch {
	case s.URL != "":
		return s.URL, true
	case s.DocumentID != "":
		return s.DocumentID, true
	case s.Title != "":
		return s.Title, true
	default:
		return "", false
	}
}

// MergeAndDedupeSources unions any number of source lists and removes
// duplicates by dedupeKey, keeping the first occurrence. Running this
// on its own output is a no-op (§8 invariant 7 / property test 3),
// since every surviving entry already has a unique key.
func MergeAndDedupeSources(lists ...[]NormalizedSource) []NormalizedSource {
	seen := make(map[string]bool)
	var out []NormalizedSource
	for _, list := range lists {
		for _, s := range list {
			key, ok := dedupeKey(s)
			if !ok {
				// No identifying field at all: keep it, it can never
				// collide with anything, including itself twice.
				out = append(out, s)
				continue
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}
