package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/clinictracker/clinictracker/internal/domain/reporting"
)

func statsCmd() *cobra.Command {
	var period, start, end string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print visit statistics for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer a.Close()

			dash, err := a.reports.Dashboard(cmd.Context(), reporting.Period(period), reporting.Range{Start: start, End: end})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderDashboard(dash, useColor(out)))
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", string(reporting.PeriodToday), "today, week, month, last30, alltime or custom")
	cmd.Flags().StringVar(&start, "start", "", "first day for --period custom (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last day for --period custom (YYYY-MM-DD)")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import visits from a CSV or XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			a, err := openApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := a.visits.Import(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			for _, msg := range res.Errors {
				logger.Warn().Str("file", args[0]).Msg(msg)
			}
			logger.Info().Int("imported", res.Imported).Int("failed", len(res.Errors)).Msg("import finished")
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var start, end, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export visits and statistics to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			a, err := openApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			name, data, err := a.reports.Export(cmd.Context(), reporting.Range{Start: start, End: end})
			if err != nil {
				return err
			}
			if out == "" {
				out = name
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			logger.Info().Str("file", out).Int("bytes", len(data)).Msg("export written")
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day to include (YYYY-MM-DD), default earliest visit")
	cmd.Flags().StringVar(&end, "end", "", "last day to include (YYYY-MM-DD), default latest visit")
	cmd.Flags().StringVar(&out, "out", "", "output path, default clinic_visits_<start>_to_<end>.xlsx")
	return cmd
}

func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF7CCB"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	valueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FDFF8C"))
)

// renderDashboard formats a dashboard for the terminal. Styling is applied
// only when color is true so piped output stays plain.
func renderDashboard(d *reporting.Dashboard, color bool) string {
	style := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}
	line := func(label, value string) string {
		return fmt.Sprintf("  %s %s\n", style(labelStyle, fmt.Sprintf("%-22s", label)), style(valueStyle, value))
	}

	s := d.Stats
	var b strings.Builder
	b.WriteString(style(titleStyle, fmt.Sprintf("Visits %s to %s", d.StartDate, d.EndDate)))
	b.WriteString("\n\n")
	b.WriteString(line("Total visits", fmt.Sprint(s.TotalVisits)))
	b.WriteString(line("Active time", reporting.FormatDuration(s.TotalDuration)))
	b.WriteString(line("Average visit", reporting.FormatDuration(int(s.AvgDuration))))
	b.WriteString(line("Total wRVU", fmt.Sprintf("%.2f", s.TotalWRVU)))
	b.WriteString(line("Average wRVU", fmt.Sprintf("%.2f", s.AvgWRVU)))
	b.WriteString(line("Estimated compensation", fmt.Sprintf("$%.2f at $%.2f/wRVU", d.EstimatedCompensation, d.ConversionRate)))

	section := func(title string, counts map[string]int) {
		if len(counts) == 0 {
			return
		}
		b.WriteString("\n" + style(titleStyle, title) + "\n")
		for _, k := range byCount(counts) {
			b.WriteString(line(k, fmt.Sprint(counts[k])))
		}
	}
	section("Visit types", s.VisitTypes)
	section("Billing codes", s.BillingCodes)
	section("Days of week", s.DaysOfWeek)

	if len(d.DailyStats) > 1 {
		b.WriteString("\n" + style(titleStyle, "By day") + "\n")
		for _, day := range sortedDays(d.DailyStats) {
			ds := d.DailyStats[day]
			b.WriteString(line(day, fmt.Sprintf("%d visits, %s, %.2f wRVU",
				ds.TotalVisits, reporting.FormatDuration(ds.TotalDuration), ds.TotalWRVU)))
		}
	}
	return b.String()
}

// byCount orders keys by descending count, then name.
func byCount(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

func sortedDays(m map[string]reporting.Summary) []string {
	days := make([]string, 0, len(m))
	for d := range m {
		days = append(days, d)
	}
	// YYYY-MM-DD sorts chronologically as text.
	sort.Strings(days)
	return days
}
