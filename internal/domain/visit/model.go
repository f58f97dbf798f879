package visit

import (
	"time"

	"github.com/clinictracker/clinictracker/internal/domain/billing"
)

// DateLayout is the storage and wire format of visit dates.
const DateLayout = "2006-01-02"

// Visit maps to the visits table.
//
// DayOfWeek is derived from Date when the visit is created. Date is not
// patchable, so the two cannot drift; any future date edit must recompute it.
type Visit struct {
	ID             int64          `json:"id"`
	Date           string         `json:"date"`
	StartTime      string         `json:"start_time"`
	EndTime        *string        `json:"end_time,omitempty"`
	ActiveDuration int            `json:"active_duration"`
	VisitType      *string        `json:"visit_type,omitempty"`
	BillingCode    billing.Codes  `json:"billing_code"`
	Comments       *string        `json:"comments,omitempty"`
	CustomFields   map[string]any `json:"custom_fields"`
	DayOfWeek      string         `json:"day_of_week,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Type returns the visit type, or "" when none was recorded.
func (v *Visit) Type() string { return strPtrVal(v.VisitType) }

// Patch is a sparse update. Nil fields are left unchanged; date and
// day_of_week cannot be patched.
type Patch struct {
	EndTime        *string         `json:"end_time,omitempty"`
	ActiveDuration *int            `json:"active_duration,omitempty"`
	VisitType      *string         `json:"visit_type,omitempty"`
	BillingCode    *billing.Codes  `json:"billing_code,omitempty"`
	Comments       *string         `json:"comments,omitempty"`
	CustomFields   *map[string]any `json:"custom_fields,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.EndTime == nil && p.ActiveDuration == nil && p.VisitType == nil &&
		p.BillingCode == nil && p.Comments == nil && p.CustomFields == nil
}

// Filter selects visits by inclusive date bounds. Empty bounds are open.
type Filter struct {
	StartDate string
	EndDate   string
}

// WeekdayOf returns the full English weekday name of a YYYY-MM-DD date.
func WeekdayOf(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", err
	}
	return t.Weekday().String(), nil
}

func strPtrVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
