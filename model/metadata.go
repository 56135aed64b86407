package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata is free-form note metadata stored as JSONB.
type Metadata map[string]interface{}

// Value implements driver.Valuer for database storage.
func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for database retrieval. A NULL column scans
// into an empty map.
func (m *Metadata) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	case Metadata:
		*m = v
		return nil
	default:
		return fmt.Errorf("metadata scan: type assertion to []byte failed, got %T", value)
	}
}
