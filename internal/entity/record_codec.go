package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

type storedRecord struct {
	ObservedAt time.Time         `json:"observed_at"`
	Fields     map[string]string `json:"fields"`
}

// MarshalRecord encodes a record for hand-off between stage processes.
func MarshalRecord(record *Record) ([]byte, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(storedRecord{ObservedAt: record.ObservedAt, Fields: record.Map()})
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return data, nil
}

// UnmarshalRecord restores a record against schema. Fields absent from
// data stay "", fields unknown to schema are rejected.
func UnmarshalRecord(data []byte, schema *Schema) (*Record, error) {
	var stored storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	record := NewRecord(schema, stored.ObservedAt)
	for name, value := range stored.Fields {
		if err := record.Set(name, value); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
	}
	return record, nil
}
