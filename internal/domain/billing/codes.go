package billing

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Codes is the billing-code field of a visit: either one code or an ordered
// list of codes. The shape is decided once, at ingestion, so consumers never
// inspect the raw text.
type Codes struct {
	list  []string
	multi bool
}

// Single returns a one-code value.
func Single(code string) Codes {
	if code == "" {
		return Codes{}
	}
	return Codes{list: []string{code}}
}

// Multiple returns an ordered multi-code value. Duplicates are kept.
func Multiple(codes ...string) Codes {
	return Codes{list: append([]string(nil), codes...), multi: true}
}

// ParseCodes interprets a legacy text field. Text whose first non-space
// character is '[' is decoded as a JSON array of codes; when that fails the
// whole text is one code. Never fails.
func ParseCodes(raw string) Codes {
	if raw == "" {
		return Codes{}
	}
	if strings.HasPrefix(strings.TrimLeft(raw, " \t\r\n"), "[") {
		if list, err := decodeList([]byte(raw)); err == nil {
			return Codes{list: list, multi: true}
		}
	}
	return Single(raw)
}

// decodeList accepts array elements that are strings or numbers; numbers keep
// their literal text.
func decodeList(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after code list")
	}
	list := make([]string, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			list = append(list, v)
		case json.Number:
			list = append(list, v.String())
		default:
			return nil, fmt.Errorf("unsupported code list element %T", it)
		}
	}
	return list, nil
}

// List returns the individual codes, trimmed, with empty tokens dropped.
func (c Codes) List() []string {
	out := make([]string, 0, len(c.list))
	for _, code := range c.list {
		if code = strings.TrimSpace(code); code != "" {
			out = append(out, code)
		}
	}
	return out
}

// Multi reports whether the value is a code list rather than a single code.
func (c Codes) Multi() bool { return c.multi }

// IsZero reports whether no billing code was recorded.
func (c Codes) IsZero() bool { return len(c.list) == 0 && !c.multi }

// String returns the storage form: the code itself, or a JSON array.
func (c Codes) String() string {
	if !c.multi {
		if len(c.list) == 0 {
			return ""
		}
		return c.list[0]
	}
	b, _ := json.Marshal(c.rawList())
	return string(b)
}

func (c Codes) rawList() []string {
	if c.list == nil {
		return []string{}
	}
	return c.list
}

// MarshalJSON writes a string for a single code and an array for a list.
func (c Codes) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return []byte("null"), nil
	}
	if c.multi {
		return json.Marshal(c.rawList())
	}
	return json.Marshal(c.list[0])
}

// UnmarshalJSON accepts null, a string (legacy array text is sniffed), or an
// array of strings or numbers.
func (c *Codes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*c = Codes{}
		return nil
	case len(trimmed) > 0 && trimmed[0] == '[':
		list, err := decodeList(trimmed)
		if err != nil {
			return fmt.Errorf("billing_code: %w", err)
		}
		*c = Codes{list: list, multi: true}
		return nil
	default:
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return errors.New("billing_code must be a string or a list of strings")
		}
		*c = ParseCodes(s)
		return nil
	}
}

// Value implements driver.Valuer. A zero value is stored as NULL.
func (c Codes) Value() (driver.Value, error) {
	if c.IsZero() {
		return nil, nil
	}
	return c.String(), nil
}

// Scan implements sql.Scanner over the legacy text column.
func (c *Codes) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = Codes{}
	case string:
		*c = ParseCodes(v)
	case []byte:
		*c = ParseCodes(string(v))
	default:
		return fmt.Errorf("billing codes: cannot scan %T", src)
	}
	return nil
}
