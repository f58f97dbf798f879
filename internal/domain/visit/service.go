package visit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalid wraps every validation failure so handlers can map it to 400.
var ErrInvalid = errors.New("invalid visit")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) CreateVisit(ctx context.Context, v *Visit) error {
	if v.Date == "" {
		return invalidf("date is required")
	}
	dow, err := WeekdayOf(v.Date)
	if err != nil {
		return invalidf("date must be YYYY-MM-DD: %s", v.Date)
	}
	if v.ActiveDuration < 0 {
		return invalidf("active_duration must be >= 0")
	}
	if v.CustomFields == nil {
		v.CustomFields = map[string]any{}
	}
	v.DayOfWeek = dow
	v.CreatedAt = s.now().UTC()
	return s.repo.Create(ctx, v)
}

func (s *Service) GetVisit(ctx context.Context, id int64) (*Visit, error) {
	return s.repo.GetByID(ctx, id)
}

// FetchVisits returns every visit within the optional inclusive bounds,
// newest first.
func (s *Service) FetchVisits(ctx context.Context, f Filter) ([]*Visit, error) {
	return s.repo.Fetch(ctx, f)
}

func (s *Service) ListVisits(ctx context.Context, f Filter, limit, offset int) ([]*Visit, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// UpdateVisit applies a sparse patch and returns the stored result.
func (s *Service) UpdateVisit(ctx context.Context, id int64, p Patch) (*Visit, error) {
	if p.ActiveDuration != nil && *p.ActiveDuration < 0 {
		return nil, invalidf("active_duration must be >= 0")
	}
	if !p.Empty() {
		if err := s.repo.Update(ctx, id, p); err != nil {
			return nil, err
		}
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) DeleteVisit(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
