package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// thinkTagPattern matches <think>...</think> tags that reasoning models
// may emit at the start of a response.
var thinkTagPattern = regexp.MustCompile(`(?s)^[\s]*<think>.*?</think>[\s]*`)

// codeFencePattern matches a fenced code block with an optional language tag.
var codeFencePattern = regexp.MustCompile("(?s)```(?:sql|json)?\\s*(.*?)```")

// ExtractSQL pulls a SQL statement out of a model response that may be
// wrapped in markdown fences, prefixed with thinking tags, or surrounded
// by commentary. The result keeps its original casing.
func ExtractSQL(response string) string {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")

	if matches := codeFencePattern.FindStringSubmatch(cleaned); len(matches) >= 2 {
		cleaned = matches[1]
	}

	cleaned = strings.TrimSpace(cleaned)

	// Models sometimes prepend a sentence before the statement. Keep
	// everything from the first SELECT onward.
	if idx := strings.Index(strings.ToUpper(cleaned), "SELECT"); idx > 0 {
		cleaned = cleaned[idx:]
	}

	return strings.TrimSpace(cleaned)
}

// ExtractJSON extracts JSON content from a model response that may
// contain <think> tags, markdown code blocks, or other formatting.
func ExtractJSON(response string) (string, error) {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")

	objStart := strings.IndexByte(cleaned, '{')
	arrStart := strings.IndexByte(cleaned, '[')

	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		if jsonStr, ok := extractBalancedJSON(cleaned, '{', '}'); ok {
			if json.Valid([]byte(jsonStr)) {
				return jsonStr, nil
			}
		}
	}

	if arrStart >= 0 {
		if jsonStr, ok := extractBalancedJSON(cleaned, '[', ']'); ok {
			if json.Valid([]byte(jsonStr)) {
				return jsonStr, nil
			}
		}
	}

	trimmed := strings.TrimSpace(cleaned)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	return "", fmt.Errorf("no valid JSON found in response")
}

// extractBalancedJSON finds the first balanced JSON structure starting
// with openChar, counting bracket depth and skipping string contents.
func extractBalancedJSON(s string, openChar, closeChar byte) (string, bool) {
	start := strings.IndexByte(s, openChar)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}

		if c == '\\' && inString {
			escaped = true
			continue
		}

		if c == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if c == openChar {
			depth++
		} else if c == closeChar {
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// ParseJSONResponse extracts JSON from a response and unmarshals it into the target.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}

	return result, nil
}
