package reporting

import (
	"errors"
	"fmt"
	"time"

	"github.com/clinictracker/clinictracker/internal/domain/visit"
)

// Period is a symbolic reporting window.
type Period string

const (
	PeriodToday   Period = "today"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodLast30  Period = "last30"
	PeriodAllTime Period = "alltime"
	PeriodCustom  Period = "custom"
)

// ErrInvalidRange is returned for a custom period whose bounds are missing,
// malformed or inverted.
var ErrInvalidRange = errors.New("invalid date range")

// Range is an inclusive pair of YYYY-MM-DD dates. Empty bounds are open.
type Range struct {
	Start string `json:"start_date"`
	End   string `json:"end_date"`
}

// Filter converts r into a visit query.
func (r Range) Filter() visit.Filter {
	return visit.Filter{StartDate: r.Start, EndDate: r.End}
}

// Resolve maps p to concrete dates relative to today. PeriodAllTime resolves
// to an open range; callers fetch everything and narrow it with Span.
// Unknown periods behave like PeriodToday.
func Resolve(p Period, custom Range, today time.Time) (Range, error) {
	day := func(t time.Time) string { return t.Format(visit.DateLayout) }
	end := day(today)

	switch p {
	case PeriodWeek:
		offset := (int(today.Weekday()) + 6) % 7
		return Range{Start: day(today.AddDate(0, 0, -offset)), End: end}, nil
	case PeriodMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return Range{Start: day(first), End: end}, nil
	case PeriodLast30:
		return Range{Start: day(today.AddDate(0, 0, -30)), End: end}, nil
	case PeriodAllTime:
		return Range{}, nil
	case PeriodCustom:
		return validateCustom(custom)
	default:
		return Range{Start: end, End: end}, nil
	}
}

func validateCustom(r Range) (Range, error) {
	if r.Start == "" || r.End == "" {
		return Range{}, fmt.Errorf("%w: start_date and end_date are required", ErrInvalidRange)
	}
	start, err := time.Parse(visit.DateLayout, r.Start)
	if err != nil {
		return Range{}, fmt.Errorf("%w: start_date %q is not YYYY-MM-DD", ErrInvalidRange, r.Start)
	}
	end, err := time.Parse(visit.DateLayout, r.End)
	if err != nil {
		return Range{}, fmt.Errorf("%w: end_date %q is not YYYY-MM-DD", ErrInvalidRange, r.End)
	}
	if end.Before(start) {
		return Range{}, fmt.Errorf("%w: start_date %s is after end_date %s", ErrInvalidRange, r.Start, r.End)
	}
	return r, nil
}

// Span returns the earliest and latest visit dates, or today/today when
// visits is empty.
func Span(visits []*visit.Visit, today time.Time) Range {
	if len(visits) == 0 {
		d := today.Format(visit.DateLayout)
		return Range{Start: d, End: d}
	}
	r := Range{Start: visits[0].Date, End: visits[0].Date}
	for _, v := range visits[1:] {
		if v.Date < r.Start {
			r.Start = v.Date
		}
		if v.Date > r.End {
			r.End = v.Date
		}
	}
	return r
}
