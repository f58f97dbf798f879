package visit

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/clinictracker/clinictracker/internal/domain/billing"
)

// ErrUnsupportedFile is returned for uploads that are neither CSV nor XLSX.
var ErrUnsupportedFile = errors.New("Unsupported file type. Please upload CSV or Excel (.xlsx) file")

// ImportResult is the outcome of one import. Rows that fail are reported in
// Errors and do not stop the batch.
type ImportResult struct {
	Success  bool     `json:"success"`
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

// Columns with a fixed meaning; any other column is a custom field.
var knownColumns = map[string]bool{
	"date":            true,
	"start_time":      true,
	"end_time":        true,
	"active_duration": true,
	"visit_type":      true,
	"billing_code":    true,
	"comments":        true,
	"day_of_week":     true,
}

// ReadTable decodes an upload into a header row followed by data rows. The
// format is chosen by the file extension.
func ReadTable(name string, r io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		rows, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		return rows, nil
	case ".xlsx":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %w", err)
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		rows, err := f.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
		}
		return rows, nil
	default:
		return nil, ErrUnsupportedFile
	}
}

// Import creates one visit per data row of the uploaded table.
func (s *Service) Import(ctx context.Context, name string, r io.Reader) (*ImportResult, error) {
	table, err := ReadTable(name, r)
	if err != nil {
		return nil, err
	}
	res := &ImportResult{Success: true, Errors: []string{}}
	if len(table) == 0 {
		return res, nil
	}

	header := make([]string, len(table[0]))
	for i, h := range table[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	n := 0
	for _, cells := range table[1:] {
		if blankRow(cells) {
			continue
		}
		n++
		v, err := rowToVisit(header, cells)
		if err == nil {
			err = s.CreateVisit(ctx, v)
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %s", n, err))
			continue
		}
		res.Imported++
	}
	return res, nil
}

func rowToVisit(header, cells []string) (*Visit, error) {
	get := func(col string) string {
		for i, h := range header {
			if h == col && i < len(cells) {
				return strings.TrimSpace(cells[i])
			}
		}
		return ""
	}

	date, start := normalizeDate(get("date")), get("start_time")
	if date == "" || start == "" {
		return nil, errors.New("Missing required fields (date or start_time)")
	}

	dur, err := parseDuration(get("active_duration"))
	if err != nil {
		return nil, err
	}

	v := &Visit{
		Date:           date,
		StartTime:      start,
		EndTime:        nonBlank(get("end_time")),
		ActiveDuration: dur,
		VisitType:      nonBlank(get("visit_type")),
		BillingCode:    billing.ParseCodes(get("billing_code")),
		Comments:       nonBlank(get("comments")),
		CustomFields:   map[string]any{},
	}
	for i, h := range header {
		if h == "" || knownColumns[h] || i >= len(cells) {
			continue
		}
		if val := strings.TrimSpace(cells[i]); val != "" {
			v.CustomFields[h] = val
		}
	}
	return v, nil
}

// parseDuration accepts integer or decimal seconds; decimals are truncated.
func parseDuration(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid active_duration %q", s)
	}
	return int(f), nil
}

var importDateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
}

// normalizeDate rewrites spreadsheet renderings of a date as YYYY-MM-DD.
// Unrecognized text is returned as-is and rejected later by validation.
func normalizeDate(s string) string {
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout)
		}
	}
	return s
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func nonBlank(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
