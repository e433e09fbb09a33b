package utils

import (
	"encoding/json"
	"fmt"
)

// SliceToJSONText converts a slice to a JSON string for a text column.
func SliceToJSONText[T any](items []T) string {
	if len(items) == 0 {
		return "[]"
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// JSONTextToSlice reads a text column written by SliceToJSONText.
func JSONTextToSlice[T any](s string) ([]T, error) {
	if s == "" || s == "[]" {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode json text: %w", err)
	}
	return out, nil
}
