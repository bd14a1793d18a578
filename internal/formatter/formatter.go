// package formatter renders sync results and run history to various formats (plain text, JSON, CSV)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/windsync/internal/models"
	"github.com/desertthunder/windsync/internal/shared"
	"github.com/desertthunder/windsync/internal/tasks"
)

// ReportToText renders a run result as the human-readable summary block
// printed at the end of a sync.
func ReportToText(result *tasks.SyncRunResult) []byte {
	var buf bytes.Buffer

	buf.WriteString("Sync complete")
	if result.Cancelled {
		buf.WriteString(" (cancelled)")
	}
	buf.WriteString("\n\n")

	buf.WriteString(fmt.Sprintf("  Listed:      %d\n", result.Total))
	buf.WriteString(fmt.Sprintf("  Submitted:   %d\n", result.Submitted))
	buf.WriteString(fmt.Sprintf("  Succeeded:   %d\n", result.Succeeded))
	buf.WriteString(fmt.Sprintf("  Failed:      %d\n", result.Failed))
	buf.WriteString(fmt.Sprintf("  Skipped:     %d\n", result.Skipped))
	buf.WriteString(fmt.Sprintf("  Transferred: %s\n", shared.FormatSize(result.Bytes)))
	buf.WriteString(fmt.Sprintf("  Elapsed:     %s\n", shared.FormatDuration(result.Elapsed)))

	if len(result.Failures) > 0 {
		buf.WriteString("\nFailures:\n")
		for _, f := range result.Failures {
			buf.WriteString(fmt.Sprintf("  %s: %s\n", f.Name, f.Cause))
		}
	}
	if result.LedgerErr != nil {
		buf.WriteString(fmt.Sprintf("\nWARNING: final ledger checkpoint failed: %v\n", result.LedgerErr))
		buf.WriteString("Some completed transfers may be retried on the next run.\n")
	}

	return buf.Bytes()
}

// runReport is the JSON shape of a run result.
type runReport struct {
	Total     int                 `json:"total"`
	Submitted int                 `json:"submitted"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Skipped   int                 `json:"skipped"`
	Bytes     int64               `json:"bytes_transferred"`
	Cancelled bool                `json:"cancelled"`
	ElapsedMS int64               `json:"elapsed_ms"`
	Failures  []tasks.ItemFailure `json:"failures,omitempty"`
}

// ReportToJSON renders a run result as pretty-printed JSON.
func ReportToJSON(result *tasks.SyncRunResult) ([]byte, error) {
	report := runReport{
		Total:     result.Total,
		Submitted: result.Submitted,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
		Bytes:     result.Bytes,
		Cancelled: result.Cancelled,
		ElapsedMS: result.Elapsed.Milliseconds(),
		Failures:  result.Failures,
	}
	return shared.MarshalJSON(report, true)
}

// FailuresToCSV converts failed items to CSV format with columns: Name, Cause
func FailuresToCSV(failures []tasks.ItemFailure) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Name", "Cause"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, f := range failures {
		if err := writer.Write([]string{f.Name, f.Cause}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteFailureReport writes the failed items of a run to a CSV file.
//
// Defaults to failures.csv when no path is given. Returns the path written.
func WriteFailureReport(result *tasks.SyncRunResult, path string) (string, error) {
	if path == "" {
		path = "failures.csv"
	}

	data, err := FailuresToCSV(result.Failures)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return path, nil
}

// HistoryToText renders run history as an aligned plain text table, newest first.
func HistoryToText(runs []*models.SyncRun) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%-4s %-20s %-10s %-9s %6s %6s %6s %6s  %s\n",
		"#", "Started", "Status", "Dedup", "Total", "OK", "Fail", "Skip", "Scope"))
	for _, run := range runs {
		started := "-"
		if !run.StartedAt().IsZero() {
			started = run.StartedAt().Format("2006-01-02 15:04:05")
		}
		buf.WriteString(fmt.Sprintf("%-4d %-20s %-10s %-9s %6d %6d %6d %6d  %s\n",
			run.Sequence(),
			started,
			run.Status(),
			run.DedupMode(),
			run.ItemsTotal(),
			run.ItemsSucceeded(),
			run.ItemsFailed(),
			run.ItemsSkipped(),
			run.SourceScope(),
		))
	}

	return buf.Bytes()
}

// HistoryToCSV converts run history to CSV format.
func HistoryToCSV(runs []*models.SyncRun) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "Status", "Scope", "DedupMode", "Workers", "Total", "Succeeded", "Failed", "Skipped", "Bytes", "StartedAt", "CompletedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, run := range runs {
		record := []string{
			strconv.Itoa(run.Sequence()),
			run.Status(),
			run.SourceScope(),
			run.DedupMode(),
			strconv.Itoa(run.Workers()),
			strconv.Itoa(run.ItemsTotal()),
			strconv.Itoa(run.ItemsSucceeded()),
			strconv.Itoa(run.ItemsFailed()),
			strconv.Itoa(run.ItemsSkipped()),
			strconv.FormatInt(run.BytesTransferred(), 10),
			formatTimeCSV(run.StartedAt()),
			formatTimeCSV(run.CompletedAt()),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// CacheToText renders the filename cache status line plus its contents.
func CacheToText(names []string, asOf time.Time, showNames bool) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Filename cache: %d names", len(names)))
	if !asOf.IsZero() {
		buf.WriteString(fmt.Sprintf(" (built %s)", asOf.Format("2006-01-02 15:04:05")))
	}
	buf.WriteString("\n")

	if showNames {
		for _, name := range names {
			buf.WriteString(name + "\n")
		}
	}

	return buf.Bytes()
}

func formatTimeCSV(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
