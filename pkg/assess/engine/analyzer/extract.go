package analyzer

import (
	"encoding/json"

	"github.com/tigerroll/scorin/pkg/assess/core/application/port"
)

// responseText locates the assessment text within a provider response.
// Providers differ in envelope shape; the well-known text fields are tried
// in order and the raw body is the fallback.
func responseText(resp *port.AIResponse) string {
	if resp == nil {
		return ""
	}
	for _, key := range []string{"text", "content", "output", "result"} {
		if text, ok := stringField(resp.Payload, key); ok {
			return text
		}
	}
	if len(resp.Payload) > 0 {
		if data, err := json.Marshal(resp.Payload); err == nil {
			return string(data)
		}
	}
	return string(resp.Raw)
}

// stringField resolves payload[key] to a string, descending one level
// into a nested object's "text" field when present.
func stringField(payload map[string]interface{}, key string) (string, bool) {
	value, ok := payload[key]
	if !ok {
		return "", false
	}
	switch v := value.(type) {
	case string:
		if v != "" {
			return v, true
		}
	case map[string]interface{}:
		if text, ok := v["text"].(string); ok && text != "" {
			return text, true
		}
	}
	return "", false
}
