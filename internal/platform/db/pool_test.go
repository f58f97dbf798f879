package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		url     string
		dialect Dialect
		dsn     string
		wantErr bool
	}{
		{"postgres://u:p@localhost:5432/clinic", Postgres, "postgres://u:p@localhost:5432/clinic", false},
		{"postgresql://localhost/clinic", Postgres, "postgresql://localhost/clinic", false},
		{"sqlite://data/clinic.db", SQLite, "data/clinic.db", false},
		{"file:clinic.db?cache=shared", SQLite, "file:clinic.db?cache=shared", false},
		{"clinic_tracker.db", SQLite, "clinic_tracker.db", false},
		{"mysql://localhost/clinic", "", "", true},
		{"   ", "", "", true},
	}
	for _, tt := range tests {
		dialect, dsn, err := ParseURL(tt.url)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseURL(%q): expected error", tt.url)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseURL(%q): unexpected error: %v", tt.url, err)
			continue
		}
		if dialect != tt.dialect || dsn != tt.dsn {
			t.Errorf("ParseURL(%q) = (%s, %s), want (%s, %s)", tt.url, dialect, dsn, tt.dialect, tt.dsn)
		}
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: Postgres}
	got := pg.Rebind(`SELECT * FROM visits WHERE date BETWEEN ? AND ? AND id = ?`)
	want := `SELECT * FROM visits WHERE date BETWEEN $1 AND $2 AND id = $3`
	if got != want {
		t.Errorf("Rebind() = %q, want %q", got, want)
	}

	lite := &DB{Dialect: SQLite}
	q := `SELECT * FROM visits WHERE id = ?`
	if lite.Rebind(q) != q {
		t.Errorf("sqlite Rebind should be a no-op, got %q", lite.Rebind(q))
	}
}

func TestWithTx_CommitAndRollback(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	if _, err := d.ExecContext(ctx, `CREATE TABLE t (v INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	err := d.WithTx(ctx, func(ctx context.Context) error {
		if TxFromContext(ctx) == nil {
			t.Error("expected transaction in context")
		}
		_, err := d.Conn(ctx).ExecContext(ctx, `INSERT INTO t (v) VALUES (1)`)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() error: %v", err)
	}

	boom := errors.New("boom")
	err = d.WithTx(ctx, func(ctx context.Context) error {
		if _, err := d.Conn(ctx).ExecContext(ctx, `INSERT INTO t (v) VALUES (2)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int
	if err := d.QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 committed row, got %d", count)
	}
}

func TestParseTime(t *testing.T) {
	if ParseTime("2024-03-15 08:30:00").IsZero() {
		t.Error("expected sqlite CURRENT_TIMESTAMP format to parse")
	}
	if ParseTime("2024-03-15T08:30:00Z").IsZero() {
		t.Error("expected RFC 3339 to parse")
	}
	if !ParseTime("garbage").IsZero() {
		t.Error("expected zero time for unparseable input")
	}
}

func TestFormatTime_SortsChronologically(t *testing.T) {
	base := time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(1500 * time.Microsecond),
		base.Add(time.Second),
		base.Add(time.Hour).In(time.FixedZone("EST", -5*3600)),
	}
	prev := ""
	for i, tm := range times {
		s := FormatTime(tm)
		if len(s) != len(timeLayout) {
			t.Errorf("FormatTime(%v) = %q, want fixed width %d", tm, s, len(timeLayout))
		}
		if i > 0 && s <= prev {
			t.Errorf("expected %q to sort after %q", s, prev)
		}
		if got := ParseTime(s); !got.Equal(tm) {
			t.Errorf("ParseTime(%q) = %v, want %v", s, got, tm)
		}
		prev = s
	}
}
