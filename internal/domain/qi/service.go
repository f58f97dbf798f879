package qi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalid = errors.New("invalid qi project")

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func validateProject(p *Project) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if len(p.Variables) == 0 {
		return fmt.Errorf("%w: at least one variable is required", ErrInvalid)
	}
	seen := make(map[string]bool, len(p.Variables))
	for i := range p.Variables {
		v := &p.Variables[i]
		v.Name = strings.TrimSpace(v.Name)
		if v.Name == "" {
			return fmt.Errorf("%w: variable %d has no name", ErrInvalid, i+1)
		}
		if v.Type == "" {
			return fmt.Errorf("%w: variable %s has no type", ErrInvalid, v.Name)
		}
		if seen[v.Name] {
			return fmt.Errorf("%w: duplicate variable %s", ErrInvalid, v.Name)
		}
		seen[v.Name] = true
	}
	return nil
}

func (s *Service) CreateProject(ctx context.Context, p *Project) error {
	if err := validateProject(p); err != nil {
		return err
	}
	ts := s.now().UTC()
	p.CreatedAt, p.UpdatedAt = ts, ts
	return s.repo.Create(ctx, p)
}

// GetProject returns the project with its entries, newest first.
func (s *Service) GetProject(ctx context.Context, id int64) (*Project, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Entries = entries
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.repo.List(ctx)
}

// UpdateProject replaces name, description and variables. Existing entries
// are kept even when their keys no longer match a variable.
func (s *Service) UpdateProject(ctx context.Context, p *Project) error {
	if err := validateProject(p); err != nil {
		return err
	}
	p.UpdatedAt = s.now().UTC()
	return s.repo.Update(ctx, p)
}

func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) AddEntry(ctx context.Context, projectID int64, data map[string]any) (*Entry, error) {
	if data == nil {
		data = map[string]any{}
	}
	e := &Entry{ProjectID: projectID, Data: data, CreatedAt: s.now().UTC()}
	if err := s.repo.CreateEntry(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) DeleteEntry(ctx context.Context, projectID, entryID int64) error {
	return s.repo.DeleteEntry(ctx, projectID, entryID)
}
