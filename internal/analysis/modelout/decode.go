// Package modelout turns free-form generative model output into typed values.
package modelout

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoObject is returned when the output contains no JSON object at all.
var ErrNoObject = errors.New("missing json object")

// DecodeObject extracts the outermost JSON object from content and decodes it
// into v. Slightly malformed objects (trailing commas, single quotes, missing
// closing braces inside the span) are repaired before giving up.
func DecodeObject(content string, v any) error {
	span, err := objectSpan(content)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(span), v); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(span)
	if err != nil {
		return fmt.Errorf("repair json: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("decode repaired json: %w", err)
	}
	return nil
}

func objectSpan(content string) (string, error) {
	trimmed := strings.TrimSpace(stripFences(content))
	start := strings.Index(trimmed, "{")
	if start == -1 {
		return "", ErrNoObject
	}
	end := strings.LastIndex(trimmed, "}")
	if end <= start {
		// unterminated object, let the repair step try to close it
		return trimmed[start:], nil
	}
	return trimmed[start : end+1], nil
}

func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl != -1 {
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
