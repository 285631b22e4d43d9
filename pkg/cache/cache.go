// Package cache holds the tiny serialization helpers shared by the
// Redis-backed repositories.
package cache

import (
	"encoding/json"
	"fmt"
)

func Key(prefix string, parts ...string) string {
	key := prefix
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func Serialize(data any) ([]byte, error) {
	res, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("cache.Serialize: marshal: %w", err)
	}
	return res, nil
}

func Deserialize(data []byte, output any) error {
	if err := json.Unmarshal(data, output); err != nil {
		return fmt.Errorf("cache.Deserialize: unmarshal: %w", err)
	}
	return nil
}
