package customfield

import "time"

// Field types a visit form can render.
const (
	TypeText        = "text"
	TypeNumber      = "number"
	TypeSelect      = "select"
	TypeMultiselect = "multiselect"
	TypeCheckbox    = "checkbox"
	TypeDate        = "date"
	TypeTime        = "time"
	TypeTextarea    = "textarea"
)

var validTypes = map[string]bool{
	TypeText:        true,
	TypeNumber:      true,
	TypeSelect:      true,
	TypeMultiselect: true,
	TypeCheckbox:    true,
	TypeDate:        true,
	TypeTime:        true,
	TypeTextarea:    true,
}

// Definition maps to the custom_fields table. Options are present only for
// selection types.
type Definition struct {
	ID        int64     `json:"id"`
	FieldName string    `json:"field_name"`
	FieldType string    `json:"field_type"`
	Options   []string  `json:"options,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasOptions reports whether the field type takes a list of allowed values.
func (d *Definition) HasOptions() bool {
	return d.FieldType == TypeSelect || d.FieldType == TypeMultiselect
}
