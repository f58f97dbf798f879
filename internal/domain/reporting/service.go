package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/clinictracker/clinictracker/internal/domain/visit"
)

// VisitSource is the storage collaborator the reports read from.
type VisitSource interface {
	FetchVisits(ctx context.Context, f visit.Filter) ([]*visit.Visit, error)
}

// RateSource supplies the dollars-per-wRVU conversion rate.
type RateSource interface {
	ConversionRate() float64
}

// Dashboard is the payload of the dashboard endpoint.
type Dashboard struct {
	Stats                 Summary            `json:"stats"`
	DailyStats            map[string]Summary `json:"daily_stats"`
	StartDate             string             `json:"start_date"`
	EndDate               string             `json:"end_date"`
	ConversionRate        float64            `json:"conversion_rate"`
	EstimatedCompensation float64            `json:"estimated_compensation"`
}

// Daily is one day's visits together with their summary.
type Daily struct {
	Date   string         `json:"date"`
	Visits []*visit.Visit `json:"visits"`
	Stats  Summary        `json:"stats"`
}

type Service struct {
	visits VisitSource
	agg    *Aggregator
	rate   RateSource
	now    func() time.Time
}

func NewService(visits VisitSource, agg *Aggregator, rate RateSource) *Service {
	return &Service{visits: visits, agg: agg, rate: rate, now: time.Now}
}

// Dashboard resolves the period, reads the matching visits once and
// summarizes them overall and per date.
func (s *Service) Dashboard(ctx context.Context, p Period, custom Range) (*Dashboard, error) {
	today := s.now()
	r, err := Resolve(p, custom, today)
	if err != nil {
		return nil, err
	}
	visits, err := s.visits.FetchVisits(ctx, r.Filter())
	if err != nil {
		return nil, fmt.Errorf("fetch visits: %w", err)
	}
	if p == PeriodAllTime {
		r = Span(visits, today)
	}

	stats := s.agg.Aggregate(visits)
	d := &Dashboard{
		Stats:      stats,
		DailyStats: s.agg.GroupByDate(visits),
		StartDate:  r.Start,
		EndDate:    r.End,
	}
	if s.rate != nil {
		d.ConversionRate = s.rate.ConversionRate()
		d.EstimatedCompensation = stats.TotalWRVU * d.ConversionRate
	}
	return d, nil
}

// Daily summarizes a single date; an empty date means today.
func (s *Service) Daily(ctx context.Context, date string) (*Daily, error) {
	if date == "" {
		date = s.now().Format(visit.DateLayout)
	}
	if _, err := time.Parse(visit.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidRange, date)
	}
	visits, err := s.visits.FetchVisits(ctx, visit.Filter{StartDate: date, EndDate: date})
	if err != nil {
		return nil, fmt.Errorf("fetch visits: %w", err)
	}
	return &Daily{Date: date, Visits: visits, Stats: s.agg.Aggregate(visits)}, nil
}

// Summarize reads the visits in r and aggregates them. Open bounds in r are
// replaced by the span of the data found.
func (s *Service) Summarize(ctx context.Context, r Range) ([]*visit.Visit, Summary, Range, error) {
	visits, err := s.visits.FetchVisits(ctx, r.Filter())
	if err != nil {
		return nil, Summary{}, r, fmt.Errorf("fetch visits: %w", err)
	}
	span := Span(visits, s.now())
	if r.Start == "" {
		r.Start = span.Start
	}
	if r.End == "" {
		r.End = span.End
	}
	return visits, s.agg.Aggregate(visits), r, nil
}
