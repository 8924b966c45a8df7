package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Annotations is a list of soft flags stored as JSONB. It implements
// sql.Scanner and driver.Valuer so it round-trips through PostgreSQL
// without manual marshaling at call sites.
type Annotations []string

// Scan implements the sql.Scanner interface.
func (a *Annotations) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return errors.New("unsupported type for Annotations")
	}

	if len(data) == 0 {
		*a = Annotations{}
		return nil
	}

	return json.Unmarshal(data, a)
}

// Value implements the driver.Valuer interface.
func (a Annotations) Value() (driver.Value, error) {
	if len(a) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}
