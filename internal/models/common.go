package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSON stores free-form metadata, used by ledger entries to carry
// context that has no column of its own
type JSON map[string]interface{}

// Value serialises the map for storage; a nil map stores SQL NULL
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan restores the map from its stored form
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported source type for JSON column")
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return err
	}
	*j = result
	return nil
}
