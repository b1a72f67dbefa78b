package cart

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EncodeMirror serializes entries as a JSON object with keys in ascending
// order, so equal carts always produce equal mirrors.
func EncodeMirror(entries Entries) (string, error) {
	if entries == nil {
		entries = Entries{}
	}
	payload, err := json.Marshal(map[string]int(entries))
	if err != nil {
		return "", fmt.Errorf("failed to encode cart mirror: %w", err)
	}
	return string(payload), nil
}

// DecodeMirror parses a stored mirror. An empty mirror decodes to an empty
// cart. Quantities may be JSON numbers or numeric strings.
func DecodeMirror(mirror string) (Entries, error) {
	mirror = strings.TrimSpace(mirror)
	if mirror == "" {
		return Entries{}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(mirror), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode cart mirror: %w", err)
	}

	entries := make(Entries, len(raw))
	for id, value := range raw {
		qty, err := decodeQuantity(value)
		if err != nil {
			return nil, fmt.Errorf("failed to decode cart mirror quantity for %q: %w", id, err)
		}
		entries[id] = qty
	}
	return entries, nil
}

func decodeQuantity(value json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(value, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return 0, fmt.Errorf("unsupported quantity %s", string(value))
	}
	return strconv.Atoi(strings.TrimSpace(s))
}
