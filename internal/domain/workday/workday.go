package workday

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clinictracker/clinictracker/internal/platform/db"
)

const dateLayout = "2006-01-02"

var (
	ErrNotFound    = errors.New("work day not started")
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")
)

// WorkDay maps to the work_days table. EndedAt is nil while the day is open.
type WorkDay struct {
	ID      int64      `json:"id"`
	Date    string     `json:"date"`
	Notes   *string    `json:"notes,omitempty"`
	EndedAt *time.Time `json:"ended_at,omitempty"`
}

type Repository interface {
	// Start records date; starting an existing day is a no-op.
	Start(ctx context.Context, date string) error
	End(ctx context.Context, date string, notes *string, endedAt time.Time) error
	Get(ctx context.Context, date string) (*WorkDay, error)
}

type repoSQL struct {
	db *db.DB
}

func NewRepo(d *db.DB) Repository {
	return &repoSQL{db: d}
}

func (r *repoSQL) Start(ctx context.Context, date string) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx, r.db.Rebind(`
		INSERT INTO work_days (date) VALUES (?)
		ON CONFLICT (date) DO NOTHING`), date)
	if err != nil {
		return fmt.Errorf("start work day %s: %w", date, err)
	}
	return nil
}

func (r *repoSQL) End(ctx context.Context, date string, notes *string, endedAt time.Time) error {
	res, err := r.db.Conn(ctx).ExecContext(ctx, r.db.Rebind(`
		UPDATE work_days SET ended_at = ?, notes = ? WHERE date = ?`),
		db.FormatTime(endedAt), notes, date)
	if err != nil {
		return fmt.Errorf("end work day %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoSQL) Get(ctx context.Context, date string) (*WorkDay, error) {
	var (
		w       WorkDay
		notes   sql.NullString
		endedAt sql.NullString
	)
	err := r.db.Conn(ctx).QueryRowContext(ctx, r.db.Rebind(`
		SELECT id, date, notes, ended_at FROM work_days WHERE date = ?`), date,
	).Scan(&w.ID, &w.Date, &notes, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get work day %s: %w", date, err)
	}
	if notes.Valid {
		w.Notes = &notes.String
	}
	if endedAt.Valid {
		t := db.ParseTime(endedAt.String)
		w.EndedAt = &t
	}
	return &w, nil
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// resolveDate defaults an empty date to today.
func (s *Service) resolveDate(date string) (string, error) {
	if date == "" {
		return s.now().Format(dateLayout), nil
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return date, nil
}

func (s *Service) StartDay(ctx context.Context, date string) (*WorkDay, error) {
	date, err := s.resolveDate(date)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Start(ctx, date); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, date)
}

func (s *Service) EndDay(ctx context.Context, date string, notes *string) (*WorkDay, error) {
	date, err := s.resolveDate(date)
	if err != nil {
		return nil, err
	}
	if err := s.repo.End(ctx, date, notes, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, date)
}

func (s *Service) GetDay(ctx context.Context, date string) (*WorkDay, error) {
	date, err := s.resolveDate(date)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, date)
}
