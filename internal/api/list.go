package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// listKeys are the wrapper fields the backend has been seen to put list results under.
var listKeys = []string{"data", "items"}

// decodeList accepts either a bare JSON array or an object wrapping the array under one of
// keys or listKeys. A wrapper with none of them decodes as an empty list.
func decodeList[T any](data []byte, keys ...string) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []T{}, nil
	}

	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return items, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("decode list wrapper: %w", err)
	}
	for _, key := range append(keys, listKeys...) {
		raw, ok := wrapper[key]
		if !ok {
			continue
		}
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode list %q: %w", key, err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	}
	return []T{}, nil
}
