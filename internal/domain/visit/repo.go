package visit

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a visit does not exist.
var ErrNotFound = errors.New("visit not found")

type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id int64) (*Visit, error)
	Update(ctx context.Context, id int64, p Patch) error
	Delete(ctx context.Context, id int64) error

	// Fetch returns every visit matching f, newest first by (date, start_time).
	Fetch(ctx context.Context, f Filter) ([]*Visit, error)
	// List is the paginated form of Fetch.
	List(ctx context.Context, f Filter, limit, offset int) ([]*Visit, int, error)
}
