package customfield

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalid   = errors.New("invalid custom field")
	ErrDuplicate = errors.New("custom field already exists")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateField(ctx context.Context, d *Definition) error {
	d.FieldName = strings.TrimSpace(d.FieldName)
	if d.FieldName == "" {
		return fmt.Errorf("%w: field_name is required", ErrInvalid)
	}
	if !validTypes[d.FieldType] {
		return fmt.Errorf("%w: unknown field_type %q", ErrInvalid, d.FieldType)
	}

	if d.HasOptions() {
		opts := make([]string, 0, len(d.Options))
		for _, o := range d.Options {
			if o = strings.TrimSpace(o); o != "" {
				opts = append(opts, o)
			}
		}
		if len(opts) == 0 {
			return fmt.Errorf("%w: %s fields need at least one option", ErrInvalid, d.FieldType)
		}
		d.Options = opts
	} else {
		d.Options = nil
	}

	_, err := s.repo.GetByName(ctx, d.FieldName)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrDuplicate, d.FieldName)
	case !errors.Is(err, ErrNotFound):
		return err
	}

	d.CreatedAt = time.Now().UTC()
	return s.repo.Create(ctx, d)
}

// ListFields returns every definition in creation order.
func (s *Service) ListFields(ctx context.Context) ([]*Definition, error) {
	return s.repo.List(ctx)
}

func (s *Service) DeleteField(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
