package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

const fence = "```"

// StripFences removes a Markdown code fence (optionally tagged json) wrapped around the content
func StripFences(content string) string {
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, fence+"json") {
		text = text[len(fence+"json"):]
	} else if strings.HasPrefix(text, fence) {
		text = text[len(fence):]
	}
	text = strings.TrimSuffix(text, fence)
	return strings.TrimSpace(text)
}

// ParseContent decodes the JSON object of a provider completion once its fences are stripped.
// On failure the returned *Error carries the untouched content as RawContent.
func ParseContent(content string) (map[string]any, error) {
	text := StripFences(content)

	doc, err := decodeObject(text)
	if err != nil {
		parseErr := newError(CodeParse, err)
		parseErr.RawContent = content
		return nil, parseErr
	}

	return doc, nil
}

func decodeObject(text string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	if rest := strings.TrimSpace(text[dec.InputOffset():]); rest != "" {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", v)
	}
	return doc, nil
}
