package reporting

import (
	"encoding/json"
	"fmt"

	"github.com/clinictracker/clinictracker/internal/domain/billing"
	"github.com/clinictracker/clinictracker/internal/domain/visit"
)

// Summary is the statistics computed over a set of visits. Durations are in
// seconds. Maps are never nil, so an empty summary serializes as {} rather
// than null.
type Summary struct {
	TotalVisits      int                       `json:"total_visits"`
	AvgDuration      float64                   `json:"avg_duration"`
	TotalDuration    int                       `json:"total_duration"`
	BillingCodes     map[string]int            `json:"billing_codes"`
	VisitTypes       map[string]int            `json:"visit_types"`
	AvgByType        map[string]float64        `json:"avg_by_type"`
	DaysOfWeek       map[string]int            `json:"days_of_week"`
	CustomFieldStats map[string]map[string]int `json:"custom_field_stats"`
	TotalWRVU        float64                   `json:"total_wrvu"`
	AvgWRVU          float64                   `json:"avg_wrvu"`
}

func emptySummary() Summary {
	return Summary{
		BillingCodes:     map[string]int{},
		VisitTypes:       map[string]int{},
		AvgByType:        map[string]float64{},
		DaysOfWeek:       map[string]int{},
		CustomFieldStats: map[string]map[string]int{},
	}
}

// Aggregator computes summaries against a fixed billing catalog. It holds no
// mutable state and is safe for concurrent use.
type Aggregator struct {
	catalog *billing.Catalog
}

func NewAggregator(catalog *billing.Catalog) *Aggregator {
	return &Aggregator{catalog: catalog}
}

// Aggregate summarizes visits. It never fails: unknown codes weigh zero and
// visits without a type, weekday or custom fields are left out of those
// breakdowns.
func (a *Aggregator) Aggregate(visits []*visit.Visit) Summary {
	s := emptySummary()
	durationByType := map[string]int{}

	for _, v := range visits {
		s.TotalVisits++
		s.TotalDuration += v.ActiveDuration

		for _, code := range v.BillingCode.List() {
			s.BillingCodes[code]++
		}
		s.TotalWRVU += a.catalog.WRVU(v.BillingCode)

		if t := v.Type(); t != "" {
			s.VisitTypes[t]++
			durationByType[t] += v.ActiveDuration
		}

		if v.DayOfWeek != "" {
			s.DaysOfWeek[v.DayOfWeek]++
		}

		for name, value := range v.CustomFields {
			counts, ok := s.CustomFieldStats[name]
			if !ok {
				counts = map[string]int{}
				s.CustomFieldStats[name] = counts
			}
			counts[FieldValueString(value)]++
		}
	}

	if s.TotalVisits > 0 {
		s.AvgDuration = float64(s.TotalDuration) / float64(s.TotalVisits)
		s.AvgWRVU = s.TotalWRVU / float64(s.TotalVisits)
	}
	for t, total := range durationByType {
		s.AvgByType[t] = float64(total) / float64(s.VisitTypes[t])
	}
	return s
}

// FieldValueString is the bucket key for a custom-field value. Strings are
// used as-is; every other value is rendered as compact JSON, so lists keep
// their order, map keys are sorted and numbers keep their literal text.
func FieldValueString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
