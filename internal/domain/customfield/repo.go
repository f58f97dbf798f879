package customfield

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clinictracker/clinictracker/internal/platform/db"
)

var ErrNotFound = errors.New("custom field not found")

type Repository interface {
	Create(ctx context.Context, d *Definition) error
	GetByName(ctx context.Context, name string) (*Definition, error)
	List(ctx context.Context) ([]*Definition, error)
	Delete(ctx context.Context, id int64) error
}

type repoSQL struct {
	db *db.DB
}

func NewRepo(d *db.DB) Repository {
	return &repoSQL{db: d}
}

const fieldCols = `id, field_name, field_type, options, created_at`

func (r *repoSQL) Create(ctx context.Context, d *Definition) error {
	var options *string
	if len(d.Options) > 0 {
		b, err := json.Marshal(d.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		s := string(b)
		options = &s
	}
	err := r.db.Conn(ctx).QueryRowContext(ctx, r.db.Rebind(`
		INSERT INTO custom_fields (field_name, field_type, options, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`),
		d.FieldName, d.FieldType, options, db.FormatTime(d.CreatedAt),
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("insert custom field: %w", err)
	}
	return nil
}

func (r *repoSQL) GetByName(ctx context.Context, name string) (*Definition, error) {
	row := r.db.Conn(ctx).QueryRowContext(ctx, r.db.Rebind(`SELECT `+fieldCols+` FROM custom_fields WHERE field_name = ?`), name)
	d, err := scanField(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (r *repoSQL) List(ctx context.Context) ([]*Definition, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, `SELECT `+fieldCols+` FROM custom_fields ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query custom fields: %w", err)
	}
	defer rows.Close()

	fields := []*Definition{}
	for rows.Next() {
		d, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		fields = append(fields, d)
	}
	return fields, rows.Err()
}

func (r *repoSQL) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Conn(ctx).ExecContext(ctx, r.db.Rebind(`DELETE FROM custom_fields WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete custom field %d: %w", id, err)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanField(row scanner) (*Definition, error) {
	var (
		d         Definition
		options   sql.NullString
		createdAt string
	)
	if err := row.Scan(&d.ID, &d.FieldName, &d.FieldType, &options, &createdAt); err != nil {
		return nil, err
	}
	if options.Valid && options.String != "" {
		if err := json.Unmarshal([]byte(options.String), &d.Options); err != nil {
			return nil, fmt.Errorf("custom field %s options: %w", d.FieldName, err)
		}
	}
	d.CreatedAt = db.ParseTime(createdAt)
	return &d, nil
}
