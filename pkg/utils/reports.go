// =============================================================================
// RFFA Reconciler - Text Reports
// =============================================================================
//
// Plain-text artefacts of a reconciliation run:
//   - the non-duplicate RSBSA list, grouped by sheet
//   - the run summary log
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultNonDuplicateReportName is the file name offered for the
// non-duplicate list.
const DefaultNonDuplicateReportName = "Non_Duplicate_RSBSA_Numbers.txt"

// WriteNonDuplicateReport writes the non-duplicate identifiers of each sheet
// to a text file, one block per sheet in the given order.
//
// PARAMETERS:
//   - path: The destination file. An existing file is overwritten.
//   - order: Sheet names in processing order.
//   - bySheet: Identifiers per sheet. Sheets absent from the map are skipped.
func WriteNonDuplicateReport(path string, order []string, bySheet map[string][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return ClassifyFileError(path, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintln(writer, "Non-duplicate RSBSA Reference Numbers:")
	fmt.Fprintln(writer)

	for _, sheet := range order {
		ids, ok := bySheet[sheet]
		if !ok {
			continue
		}
		fmt.Fprintf(writer, "Sheet: %s\n", sheet)
		for _, id := range ids {
			fmt.Fprintln(writer, id)
		}
		fmt.Fprintln(writer)
	}

	if err := writer.Flush(); err != nil {
		return ClassifyFileError(path, fmt.Errorf("failed to flush report: %w", err))
	}
	return nil
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about a reconciliation run.
type RunSummary struct {
	StartTime            time.Time
	EndTime              time.Time
	PrimaryFile          string
	SecondaryFile        string
	Sheets               []SheetSummary
	TotalDuplicates      int
	TotalNonDuplicates   int
	UniqueDuplicates     int
	InvalidFarmAreas     int
	TotalEndorsed        int
	SecondaryHighlighted int
	BackupCreated        bool
}

// SheetSummary holds the counts of one processed sheet.
type SheetSummary struct {
	Name          string
	Duplicates    int
	NonDuplicates int
}

// WriteSummaryLog writes a run summary to a timestamped file in outputDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary RunSummary, outputDir string) (string, error) {
	timestamp := summary.EndTime.Format("20060102_150405")
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("reconciliation_summary_%s.txt", timestamp))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", ClassifyFileError(summaryPath, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "RFFA Reconciler - Run Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  RFFA File:      %s\n"+
		"  IMP Top-up:     %s\n"+
		"  Backup Created: %t\n\n"+
		"Statistics:\n"+
		"  Duplicates:             %d\n"+
		"  Unique Duplicates:      %d\n"+
		"  Non-Duplicates:         %d\n"+
		"  Invalid Farm Areas:     %d\n"+
		"  Total Endorsed:         %d\n"+
		"  IMP Top-up Highlighted: %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.Round(time.Millisecond).String(),
		summary.PrimaryFile,
		summary.SecondaryFile,
		summary.BackupCreated,
		summary.TotalDuplicates,
		summary.UniqueDuplicates,
		summary.TotalNonDuplicates,
		summary.InvalidFarmAreas,
		summary.TotalEndorsed,
		summary.SecondaryHighlighted)

	if len(summary.Sheets) > 0 {
		fmt.Fprintln(writer, "Sheets:")
		fmt.Fprintln(writer, "--------------------------------------------------------------------------------")
		for _, s := range summary.Sheets {
			fmt.Fprintf(writer, "  %-30s duplicates: %6d   non-duplicates: %6d\n", s.Name, s.Duplicates, s.NonDuplicates)
		}
		fmt.Fprintln(writer)
	}

	fmt.Fprint(writer, "================================================================================\n"+
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", ClassifyFileError(summaryPath, fmt.Errorf("failed to flush summary file: %w", err))
	}

	return summaryPath, nil
}
