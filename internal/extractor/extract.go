// extract.go

package extractor

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Framings of the streaming-render push call, tried in priority order. Each
// slices the document differently; captures that fail every decode are
// dropped, so a framing that over- or under-matches costs nothing.
var pushFramings = []*regexp.Regexp{
	regexp.MustCompile(`self\.__next_f\.push\(\[1,"([^"]+)"\]\)`),
	regexp.MustCompile(`(?s)self\.__next_f\.push\(\[1,"(b:\[.*?\])"\]\)`),
	regexp.MustCompile(`(?s)self\.__next_f\.push\(\[(.*?)\]\)`),
}

var (
	scriptRe     = regexp.MustCompile(`(?s)<script[^>]*>(.*?self\.__next_f\.push.*?)</script>`)
	manualPushRe = regexp.MustCompile(`(?s)self\.__next_f\.push\(\[(.*)\]\)`)
	pairedArgsRe = regexp.MustCompile(`(\d+),"(b:\[.*\])"`)
)

// Extract pulls every decodable payload out of the push calls embedded in a
// course page. The primary regex pass handles the common framings; when it
// finds nothing at all, a conservative script-by-script pass takes over.
func Extract(html string) []any {
	candidates := extractPrimary(html)
	if len(candidates) == 0 {
		candidates = extractManual(html)
	}
	return candidates
}

func extractPrimary(html string) []any {
	var candidates []any

	for _, framing := range pushFramings {
		for _, match := range framing.FindAllStringSubmatch(html, -1) {
			fragment := match[1]
			if v, ok := decodeBFormat(fragment); ok {
				candidates = appendCandidate(candidates, v)
			}
			if v, ok := decodeDirect(fragment); ok {
				candidates = appendCandidate(candidates, v)
			}
			if v, ok := decodeArrayWrap(fragment); ok {
				candidates = appendCandidate(candidates, v)
			}
		}
	}

	return candidates
}

// extractManual isolates each script body first, so the greedy argument
// capture stays inside one push call. This recovers payloads that defeat the
// primary framings, typically a literal "])" inside a JSON string value.
func extractManual(html string) []any {
	var candidates []any

	for _, script := range scriptRe.FindAllStringSubmatch(html, -1) {
		for _, push := range manualPushRe.FindAllStringSubmatch(script[1], -1) {
			argList := push[1]

			if m := pairedArgsRe.FindStringSubmatch(argList); m != nil {
				if v, ok := decodeBFormat(m[2]); ok {
					candidates = appendCandidate(candidates, v)
					continue
				}
			}

			if v, ok := decodeArrayWrap(argList); ok {
				candidates = appendCandidate(candidates, v)
			}
		}
	}

	return candidates
}

// decodeBFormat handles the "b:" sentinel: skip two characters, parse the
// remainder as a JSON array, and take index 3 as the payload.
func decodeBFormat(s string) (any, bool) {
	if !strings.HasPrefix(s, "b:") {
		return nil, false
	}

	var arr []any
	if err := json.Unmarshal([]byte(s[2:]), &arr); err != nil || len(arr) < 4 {
		return nil, false
	}

	return arr[3], true
}

func decodeDirect(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// decodeArrayWrap re-frames a bare argument list as a JSON array. The
// payload string re-enters a JSON string literal here, which is what
// resolves one level of escaping before the b-format decode runs.
func decodeArrayWrap(s string) (any, bool) {
	var arr []any
	if err := json.Unmarshal([]byte("["+s+"]"), &arr); err != nil || len(arr) < 2 {
		return nil, false
	}

	payload, ok := arr[1].(string)
	if !ok || !strings.HasPrefix(payload, "b:") {
		return nil, false
	}

	return decodeBFormat(payload)
}

// appendCandidate accumulates a decoded value. Array results flatten one
// level and empty values are dropped, so stray scalars from a framing
// mismatch neither pollute the list nor mask the manual pass trigger.
func appendCandidate(candidates []any, v any) []any {
	switch t := v.(type) {
	case nil:
		return candidates
	case string:
		if t == "" {
			return candidates
		}
	case float64:
		if t == 0 {
			return candidates
		}
	case bool:
		if !t {
			return candidates
		}
	case map[string]any:
		if len(t) == 0 {
			return candidates
		}
	case []any:
		if len(t) == 0 {
			return candidates
		}
		return append(candidates, t...)
	}
	return append(candidates, v)
}

// FindCourseRecord scans candidates in order for the first one shaped like a
// course: slug and content at the top level, or a nested content.content
// object carrying slug or title. A miss is an expected outcome when the page
// layout changes, so it is reported through ok rather than an error.
func FindCourseRecord(candidates []any) (map[string]any, bool) {
	for _, c := range candidates {
		record, ok := c.(map[string]any)
		if !ok {
			continue
		}

		if _, hasSlug := record["slug"]; hasSlug {
			if _, hasContent := record["content"]; hasContent {
				return record, true
			}
		}

		if content, ok := record["content"].(map[string]any); ok {
			if inner, ok := content["content"].(map[string]any); ok {
				_, hasSlug := inner["slug"]
				_, hasTitle := inner["title"]
				if hasSlug || hasTitle {
					return record, true
				}
			}
		}
	}

	return nil, false
}
