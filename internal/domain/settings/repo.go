package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clinictracker/clinictracker/internal/platform/db"
)

// ErrNotFound is returned when a setting has never been stored.
var ErrNotFound = errors.New("setting not found")

// Repository persists settings as key/value text.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
}

type repoSQL struct {
	db  *db.DB
	now func() time.Time
}

func NewRepo(d *db.DB) Repository {
	return &repoSQL{db: d, now: time.Now}
}

func (r *repoSQL) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.Conn(ctx).QueryRowContext(ctx, r.db.Rebind(`SELECT value FROM settings WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

func (r *repoSQL) Put(ctx context.Context, key, value string) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx, r.db.Rebind(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		key, value, db.FormatTime(r.now()))
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}
