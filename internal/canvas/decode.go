package canvas

import (
	"encoding/json"
	"fmt"
)

// DecodeList decodes a list endpoint body. Canvas answers these endpoints
// with either a JSON array or an error envelope of the form
// {"status": "...", ...}; the envelope becomes a StatusError.
func DecodeList[T any](body []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}

	var envelope struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Status != "" {
		return nil, &StatusError{Status: envelope.Status}
	}

	return nil, fmt.Errorf("canvas: list payload is neither an array nor a status envelope: %s", truncate(body, 120))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
