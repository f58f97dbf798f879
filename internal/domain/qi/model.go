package qi

import "time"

// Variable is one column of a QI project's data-collection schema.
type Variable struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required,omitempty"`
}

// Project maps to the qi_projects table. EntryCount is filled by List and
// Entries by Get.
type Project struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Variables   []Variable `json:"variables"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	EntryCount  *int       `json:"entry_count,omitempty"`
	Entries     []*Entry   `json:"entries,omitempty"`
}

// Entry maps to the qi_project_data table: one free-form record keyed by
// variable name.
type Entry struct {
	ID        int64          `json:"id"`
	ProjectID int64          `json:"project_id"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}
