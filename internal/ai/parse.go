package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Pre-compiled patterns for cleaning model output before JSON decoding.
var (
	// ```json\n{...}\n``` at the start/end, or anywhere in the text.
	fenceWholeRegex = regexp.MustCompile(`(?s)^` + "`" + `{3}(?:json|html)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}\s*$`)
	fenceAnyRegex   = regexp.MustCompile(`(?s)` + "`" + `{3}(?:json|html)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}`)

	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)

	// Greedy so nested structures are captured whole.
	objectRegex = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	arrayRegex  = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
)

// Decode parses model output into T, working around the formatting quirks
// LLMs produce around JSON. Strategies, in order:
//
//  1. Direct JSON parse
//  2. Strip markdown code fences and retry
//  3. Remove trailing commas and retry
//  4. Extract the JSON object or array from surrounding prose and retry
func Decode[T any](text string) (T, error) {
	var out T

	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out, nil
	}

	cleaned := stripFences(text)
	if err := json.Unmarshal([]byte(cleaned), &out); err == nil {
		return out, nil
	}

	cleaned = trailingCommaRegex.ReplaceAllString(cleaned, "$1")
	if err := json.Unmarshal([]byte(cleaned), &out); err == nil {
		return out, nil
	}

	if extracted := extractJSON(cleaned); extracted != "" {
		extracted = trailingCommaRegex.ReplaceAllString(extracted, "$1")
		if err := json.Unmarshal([]byte(extracted), &out); err == nil {
			return out, nil
		}
	}

	var zero T
	return zero, fmt.Errorf("no valid JSON found in model output (%d bytes)", len(text))
}

// stripFences removes markdown code fences around the payload.
func stripFences(text string) string {
	cleaned := fenceWholeRegex.ReplaceAllString(text, "$1")
	if cleaned == text {
		cleaned = fenceAnyRegex.ReplaceAllString(text, "$1")
	}
	return strings.TrimSpace(cleaned)
}

// extractJSON pulls a JSON object or array out of mixed content. The first
// JSON-like character decides which shape to look for, so an array of
// objects is not mistaken for its first element.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") {
		return arrayRegex.FindString(text)
	}
	if strings.HasPrefix(trimmed, "{") {
		return objectRegex.FindString(text)
	}
	if match := objectRegex.FindString(text); match != "" {
		return match
	}
	return arrayRegex.FindString(text)
}
