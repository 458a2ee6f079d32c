package llmfacade

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON pulls the first balanced JSON object or array out of
// text, tolerating a model that wraps its answer in a markdown code
// fence or a leading sentence despite being asked for JSON only.
func extractJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := strings.IndexAny(trimmed, "{[")
	if start == -1 {
		return nil, fmt.Errorf("llmfacade: no JSON object found in response")
	}

	open := trimmed[start]
	closeChar := byte('}')
	if open == '[' {
		closeChar = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(trimmed); i++ {
		c := trimmed[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closeChar:
			depth--
			if depth == 0 {
				candidate := trimmed[start : i+1]
				if !json.Valid([]byte(candidate)) {
					return nil, fmt.Errorf("llmfacade: extracted candidate was not valid JSON")
				}
				return json.RawMessage(candidate), nil
			}
		}
	}
	return nil, fmt.Errorf("llmfacade: unbalanced JSON in response")
}
