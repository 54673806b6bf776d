package domain

import (
	"database/sql/driver"
	"encoding/json"
)

// StringMap is a JSON-encoded map column, used for the format-to-path map
// of produced files.
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}

	if len(data) == 0 || string(data) == "null" {
		*m = nil
		return nil
	}

	return json.Unmarshal(data, m)
}
