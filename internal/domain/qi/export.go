package qi

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNoData is returned when exporting a project without entries.
var ErrNoData = errors.New("No data to export")

// ExportCSV renders a project's entries as CSV, one column per variable, and
// returns it with its file name.
func (s *Service) ExportCSV(ctx context.Context, id int64) (string, []byte, error) {
	p, err := s.GetProject(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if len(p.Entries) == 0 {
		return "", nil, ErrNoData
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Entry ID", "Created At"}
	for _, v := range p.Variables {
		header = append(header, v.Name)
	}
	if err := w.Write(header); err != nil {
		return "", nil, err
	}
	for _, e := range p.Entries {
		row := []string{strconv.FormatInt(e.ID, 10), e.CreatedAt.Format(time.RFC3339)}
		for _, v := range p.Variables {
			row = append(row, cellValue(e.Data[v.Name]))
		}
		if err := w.Write(row); err != nil {
			return "", nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, fmt.Errorf("write csv: %w", err)
	}

	name := fmt.Sprintf("qi_project_%s_%s.csv",
		strings.ReplaceAll(p.Name, " ", "_"), s.now().Format("20060102_150405"))
	return name, buf.Bytes(), nil
}

// cellValue renders one entry value. Lists are joined with "; ", missing
// values are blank and objects are written as compact JSON.
func cellValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = cellValue(item)
		}
		return strings.Join(parts, "; ")
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
