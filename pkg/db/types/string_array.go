package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringArray persists an ordered list of strings as a JSON array. It maps to
// jsonb on Postgres and TEXT on SQLite.
type StringArray []string

func (a *StringArray) Scan(src any) error {
	if src == nil {
		*a = StringArray{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("StringArray: unsupported Scan type %T", src)
	}
	if len(raw) == 0 {
		*a = StringArray{}
		return nil
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("StringArray: decode: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*a = StringArray(out)
	return nil
}

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Clone returns an independent copy so snapshots never share backing arrays.
func (a StringArray) Clone() StringArray {
	out := make(StringArray, len(a))
	copy(out, a)
	return out
}
