package visit

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clinictracker/clinictracker/internal/platform/db"
)

type repoSQL struct {
	db *db.DB
}

func NewRepo(d *db.DB) Repository {
	return &repoSQL{db: d}
}

const visitCols = `id, date, start_time, end_time, active_duration, visit_type,
	billing_code, comments, custom_fields, day_of_week, created_at`

const visitOrder = ` ORDER BY date DESC, start_time DESC, id DESC`

func (r *repoSQL) Create(ctx context.Context, v *Visit) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	fields, err := encodeCustomFields(v.CustomFields)
	if err != nil {
		return err
	}
	err = r.db.Conn(ctx).QueryRowContext(ctx, r.db.Rebind(`
		INSERT INTO visits (
			date, start_time, end_time, active_duration, visit_type,
			billing_code, comments, custom_fields, day_of_week, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?)
		RETURNING id`),
		v.Date, v.StartTime, v.EndTime, v.ActiveDuration, v.VisitType,
		v.BillingCode, v.Comments, fields, nullIfEmpty(v.DayOfWeek), db.FormatTime(v.CreatedAt),
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

func (r *repoSQL) GetByID(ctx context.Context, id int64) (*Visit, error) {
	row := r.db.Conn(ctx).QueryRowContext(ctx, r.db.Rebind(`SELECT `+visitCols+` FROM visits WHERE id = ?`), id)
	v, err := scanVisit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

// Update applies p with one fixed statement: each column has a "set" flag
// and a value, so absent patch fields keep their stored value.
func (r *repoSQL) Update(ctx context.Context, id int64, p Patch) error {
	var fields *string
	if p.CustomFields != nil {
		s, err := encodeCustomFields(*p.CustomFields)
		if err != nil {
			return err
		}
		fields = &s
	}
	var codes any
	if p.BillingCode != nil {
		codes = *p.BillingCode
	}

	res, err := r.db.Conn(ctx).ExecContext(ctx, r.db.Rebind(`
		UPDATE visits SET
			end_time = CASE WHEN ? THEN ? ELSE end_time END,
			active_duration = CASE WHEN ? THEN ? ELSE active_duration END,
			visit_type = CASE WHEN ? THEN ? ELSE visit_type END,
			billing_code = CASE WHEN ? THEN ? ELSE billing_code END,
			comments = CASE WHEN ? THEN ? ELSE comments END,
			custom_fields = CASE WHEN ? THEN ? ELSE custom_fields END
		WHERE id = ?`),
		p.EndTime != nil, p.EndTime,
		p.ActiveDuration != nil, p.ActiveDuration,
		p.VisitType != nil, p.VisitType,
		p.BillingCode != nil, codes,
		p.Comments != nil, p.Comments,
		fields != nil, fields,
		id,
	)
	if err != nil {
		return fmt.Errorf("update visit %d: %w", id, err)
	}
	return requireRow(res)
}

func (r *repoSQL) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Conn(ctx).ExecContext(ctx, r.db.Rebind(`DELETE FROM visits WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete visit %d: %w", id, err)
	}
	return requireRow(res)
}

func (r *repoSQL) Fetch(ctx context.Context, f Filter) ([]*Visit, error) {
	where, args := filterClause(f)
	rows, err := r.db.Conn(ctx).QueryContext(ctx, r.db.Rebind(`SELECT `+visitCols+` FROM visits`+where+visitOrder), args...)
	if err != nil {
		return nil, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()
	return collectVisits(rows)
}

func (r *repoSQL) List(ctx context.Context, f Filter, limit, offset int) ([]*Visit, int, error) {
	where, args := filterClause(f)

	var total int
	if err := r.db.Conn(ctx).QueryRowContext(ctx, r.db.Rebind(`SELECT COUNT(*) FROM visits`+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count visits: %w", err)
	}

	rows, err := r.db.Conn(ctx).QueryContext(ctx,
		r.db.Rebind(`SELECT `+visitCols+` FROM visits`+where+visitOrder+` LIMIT ? OFFSET ?`),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()
	visits, err := collectVisits(rows)
	return visits, total, err
}

// filterClause renders inclusive date bounds. Dates are YYYY-MM-DD text, so
// lexical comparison matches calendar order.
func filterClause(f Filter) (string, []any) {
	var conds []string
	var args []any
	switch {
	case f.StartDate != "" && f.EndDate != "":
		conds = append(conds, "date BETWEEN ? AND ?")
		args = append(args, f.StartDate, f.EndDate)
	case f.StartDate != "":
		conds = append(conds, "date >= ?")
		args = append(args, f.StartDate)
	case f.EndDate != "":
		conds = append(conds, "date <= ?")
		args = append(args, f.EndDate)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVisit(row scanner) (*Visit, error) {
	var (
		v         Visit
		endTime   sql.NullString
		visitType sql.NullString
		comments  sql.NullString
		fields    sql.NullString
		dayOfWeek sql.NullString
		createdAt string
	)
	if err := row.Scan(&v.ID, &v.Date, &v.StartTime, &endTime, &v.ActiveDuration, &visitType,
		&v.BillingCode, &comments, &fields, &dayOfWeek, &createdAt); err != nil {
		return nil, err
	}
	v.EndTime = nullStr(endTime)
	v.VisitType = nullStr(visitType)
	v.Comments = nullStr(comments)
	v.DayOfWeek = dayOfWeek.String
	v.CreatedAt = db.ParseTime(createdAt)

	cf, err := decodeCustomFields(fields.String)
	if err != nil {
		return nil, fmt.Errorf("visit %d custom_fields: %w", v.ID, err)
	}
	v.CustomFields = cf
	return &v, nil
}

func collectVisits(rows *sql.Rows) ([]*Visit, error) {
	visits := []*Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visits: %w", err)
	}
	return visits, nil
}

func encodeCustomFields(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode custom_fields: %w", err)
	}
	return string(b), nil
}

// decodeCustomFields keeps numbers as json.Number so their text survives.
func decodeCustomFields(s string) (map[string]any, error) {
	out := map[string]any{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
