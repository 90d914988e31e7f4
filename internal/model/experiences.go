package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Custom implementation of the []Experience serializer

type Experience struct {
	Organization string `json:"organization,omitempty" validate:"omitempty,max=200"`
	Designation  string `json:"designation,omitempty" validate:"omitempty,max=200"`
	From         string `json:"from,omitempty"`
	To           string `json:"to,omitempty"`
}

type Experiences []Experience

// Value implements the driver.Valuer interface.
// The list is kept as a JSON text column so both sqlite and postgres can hold it.
func (e Experiences) Value() (driver.Value, error) {
	if len(e) == 0 {
		return "[]", nil
	}

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode experiences, %w", err)
	}

	return string(b), nil
}

// Scan implements the sql.Scanner intterface.
// This defines how the database value is converted back into go.
func (e *Experiences) Scan(value interface{}) error {
	if value == nil {
		*e = Experiences{}
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("failed to scan Experiences, %v", value)
	}

	if len(b) == 0 {
		*e = Experiences{}
		return nil
	}

	return json.Unmarshal(b, e)
}

// GormDataType keeps the column a plain text field
func (Experiences) GormDataType() string {
	return "text"
}
