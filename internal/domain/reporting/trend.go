package reporting

import (
	"fmt"

	"github.com/clinictracker/clinictracker/internal/domain/visit"
)

// GroupByDate summarizes each calendar date independently, keyed by date.
func (a *Aggregator) GroupByDate(visits []*visit.Visit) map[string]Summary {
	byDate := map[string][]*visit.Visit{}
	for _, v := range visits {
		byDate[v.Date] = append(byDate[v.Date], v)
	}
	out := make(map[string]Summary, len(byDate))
	for date, dayVisits := range byDate {
		out[date] = a.Aggregate(dayVisits)
	}
	return out
}

// FormatDuration renders seconds as zero-padded MM:SS. Minutes do not roll
// over into hours; non-positive input renders as 00:00.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "00:00"
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
