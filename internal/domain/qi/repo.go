package qi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clinictracker/clinictracker/internal/platform/db"
)

var (
	ErrNotFound      = errors.New("project not found")
	ErrEntryNotFound = errors.New("entry not found")
)

type Repository interface {
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, id int64) (*Project, error)
	// List returns projects with EntryCount set, most recently updated first.
	List(ctx context.Context) ([]*Project, error)
	Update(ctx context.Context, p *Project) error
	// Delete removes a project and its entries in one transaction.
	Delete(ctx context.Context, id int64) error

	// CreateEntry inserts e and touches the project's updated_at in one
	// transaction.
	CreateEntry(ctx context.Context, e *Entry) error
	ListEntries(ctx context.Context, projectID int64) ([]*Entry, error)
	DeleteEntry(ctx context.Context, projectID, entryID int64) error
}

type repoSQL struct {
	db *db.DB
}

func NewRepo(d *db.DB) Repository {
	return &repoSQL{db: d}
}

const projectCols = `id, name, description, variables, created_at, updated_at`

func (r *repoSQL) Create(ctx context.Context, p *Project) error {
	vars, err := json.Marshal(p.Variables)
	if err != nil {
		return fmt.Errorf("encode variables: %w", err)
	}
	err = r.db.Conn(ctx).QueryRowContext(ctx, r.db.Rebind(`
		INSERT INTO qi_projects (name, description, variables, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`),
		p.Name, p.Description, string(vars), db.FormatTime(p.CreatedAt), db.FormatTime(p.UpdatedAt),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert qi project: %w", err)
	}
	return nil
}

func (r *repoSQL) Get(ctx context.Context, id int64) (*Project, error) {
	row := r.db.Conn(ctx).QueryRowContext(ctx, r.db.Rebind(`SELECT `+projectCols+` FROM qi_projects WHERE id = ?`), id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *repoSQL) List(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, `
		SELECT `+projectCols+`,
			(SELECT COUNT(*) FROM qi_project_data d WHERE d.project_id = qi_projects.id)
		FROM qi_projects
		ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query qi projects: %w", err)
	}
	defer rows.Close()

	projects := []*Project{}
	for rows.Next() {
		var count int
		p, err := scanProject(rows, &count)
		if err != nil {
			return nil, err
		}
		p.EntryCount = &count
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *repoSQL) Update(ctx context.Context, p *Project) error {
	vars, err := json.Marshal(p.Variables)
	if err != nil {
		return fmt.Errorf("encode variables: %w", err)
	}
	res, err := r.db.Conn(ctx).ExecContext(ctx, r.db.Rebind(`
		UPDATE qi_projects SET name = ?, description = ?, variables = ?, updated_at = ?
		WHERE id = ?`),
		p.Name, p.Description, string(vars), db.FormatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("update qi project %d: %w", p.ID, err)
	}
	return requireRow(res, ErrNotFound)
}

func (r *repoSQL) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		conn := r.db.Conn(ctx)
		if _, err := conn.ExecContext(ctx, r.db.Rebind(`DELETE FROM qi_project_data WHERE project_id = ?`), id); err != nil {
			return fmt.Errorf("delete qi entries: %w", err)
		}
		res, err := conn.ExecContext(ctx, r.db.Rebind(`DELETE FROM qi_projects WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete qi project %d: %w", id, err)
		}
		return requireRow(res, ErrNotFound)
	})
}

func (r *repoSQL) CreateEntry(ctx context.Context, e *Entry) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("encode entry data: %w", err)
	}
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		conn := r.db.Conn(ctx)
		res, err := conn.ExecContext(ctx, r.db.Rebind(`UPDATE qi_projects SET updated_at = ? WHERE id = ?`),
			db.FormatTime(e.CreatedAt), e.ProjectID)
		if err != nil {
			return fmt.Errorf("touch qi project %d: %w", e.ProjectID, err)
		}
		if err := requireRow(res, ErrNotFound); err != nil {
			return err
		}
		err = conn.QueryRowContext(ctx, r.db.Rebind(`
			INSERT INTO qi_project_data (project_id, data, created_at)
			VALUES (?, ?, ?)
			RETURNING id`),
			e.ProjectID, string(data), db.FormatTime(e.CreatedAt),
		).Scan(&e.ID)
		if err != nil {
			return fmt.Errorf("insert qi entry: %w", err)
		}
		return nil
	})
}

func (r *repoSQL) ListEntries(ctx context.Context, projectID int64) ([]*Entry, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, r.db.Rebind(`
		SELECT id, project_id, data, created_at FROM qi_project_data
		WHERE project_id = ?
		ORDER BY created_at DESC, id DESC`), projectID)
	if err != nil {
		return nil, fmt.Errorf("query qi entries: %w", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		var (
			e         Entry
			data      string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &data, &createdAt); err != nil {
			return nil, err
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(data)))
		dec.UseNumber()
		if err := dec.Decode(&e.Data); err != nil {
			return nil, fmt.Errorf("qi entry %d data: %w", e.ID, err)
		}
		if e.Data == nil {
			e.Data = map[string]any{}
		}
		e.CreatedAt = db.ParseTime(createdAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *repoSQL) DeleteEntry(ctx context.Context, projectID, entryID int64) error {
	res, err := r.db.Conn(ctx).ExecContext(ctx, r.db.Rebind(`
		DELETE FROM qi_project_data WHERE id = ? AND project_id = ?`), entryID, projectID)
	if err != nil {
		return fmt.Errorf("delete qi entry %d: %w", entryID, err)
	}
	return requireRow(res, ErrEntryNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner, extra ...any) (*Project, error) {
	var (
		p         Project
		vars      string
		createdAt string
		updatedAt string
	)
	dest := append([]any{&p.ID, &p.Name, &p.Description, &vars, &createdAt, &updatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(vars), &p.Variables); err != nil {
		return nil, fmt.Errorf("qi project %d variables: %w", p.ID, err)
	}
	p.CreatedAt = db.ParseTime(createdAt)
	p.UpdatedAt = db.ParseTime(updatedAt)
	return &p, nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
