package reporting

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/clinictracker/clinictracker/internal/domain/visit"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetVisits     = "Visits"
	sheetStatistics = "Statistics"
)

// Column names match the import format so an export can be re-imported.
var visitColumns = []string{
	"date", "start_time", "end_time", "active_duration",
	"visit_type", "billing_code", "comments",
}

// ExportFilename names the workbook for r.
func ExportFilename(r Range) string {
	return fmt.Sprintf("clinic_visits_%s_to_%s.xlsx", r.Start, r.End)
}

// Export builds the workbook for the visits in r and returns it with its
// file name.
func (s *Service) Export(ctx context.Context, r Range) (string, []byte, error) {
	visits, stats, r, err := s.Summarize(ctx, r)
	if err != nil {
		return "", nil, err
	}
	f, err := BuildWorkbook(visits, stats)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return "", nil, fmt.Errorf("write workbook: %w", err)
	}
	return ExportFilename(r), buf.Bytes(), nil
}

// BuildWorkbook renders the raw visits on one sheet and the summary on a
// second.
func BuildWorkbook(visits []*visit.Visit, stats Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetVisits); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeVisitsSheet(f, visits); err != nil {
		f.Close()
		return nil, fmt.Errorf("write %s sheet: %w", sheetVisits, err)
	}
	if _, err := f.NewSheet(sheetStatistics); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeStatisticsSheet(f, stats); err != nil {
		f.Close()
		return nil, fmt.Errorf("write %s sheet: %w", sheetStatistics, err)
	}
	return f, nil
}

func writeVisitsSheet(f *excelize.File, visits []*visit.Visit) error {
	keys := customFieldKeys(visits)

	header := make([]any, 0, len(visitColumns)+len(keys))
	for _, c := range visitColumns {
		header = append(header, c)
	}
	for _, k := range keys {
		header = append(header, k)
	}
	if err := setRow(f, sheetVisits, 1, header); err != nil {
		return err
	}

	for i, v := range visits {
		row := []any{
			v.Date,
			v.StartTime,
			deref(v.EndTime),
			v.ActiveDuration,
			v.Type(),
			v.BillingCode.String(),
			deref(v.Comments),
		}
		for _, k := range keys {
			val, ok := v.CustomFields[k]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, FieldValueString(val))
		}
		if err := setRow(f, sheetVisits, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeStatisticsSheet(f *excelize.File, s Summary) error {
	rows := [][]any{
		{"Metric", "Value"},
		{"Total Visits", s.TotalVisits},
		{"Average Duration (min)", s.AvgDuration / 60},
		{"Total Duration (min)", float64(s.TotalDuration) / 60},
		{"Total wRVU", s.TotalWRVU},
		{"Average wRVU", s.AvgWRVU},
		{"", ""},
		{"Visit Types", "Count"},
	}
	for _, k := range sortedKeys(s.VisitTypes) {
		rows = append(rows, []any{k, s.VisitTypes[k]})
	}
	rows = append(rows, []any{"", ""}, []any{"Billing Codes", "Count"})
	for _, k := range sortedKeys(s.BillingCodes) {
		rows = append(rows, []any{k, s.BillingCodes[k]})
	}

	for i, row := range rows {
		if err := setRow(f, sheetStatistics, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func customFieldKeys(visits []*visit.Visit) []string {
	seen := map[string]bool{}
	var keys []string
	for _, v := range visits {
		for k := range v.CustomFields {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
