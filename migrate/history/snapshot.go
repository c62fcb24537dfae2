package history

import (
	"encoding/json"
	"fmt"

	"github.com/schemaforge/schemaforge/schema"
)

// SerializeSnapshot encodes a schema for storage in the ledger.
func SerializeSnapshot(s *schema.Schema) (string, error) {
	if s == nil {
		return "", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("serializing schema snapshot: %w", err)
	}
	return string(data), nil
}

// DeserializeSnapshot decodes a stored ledger snapshot.
func DeserializeSnapshot(raw string) (*schema.Schema, error) {
	if raw == "" {
		return nil, nil
	}
	var s schema.Schema
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("deserializing schema snapshot: %w", err)
	}
	return &s, nil
}
