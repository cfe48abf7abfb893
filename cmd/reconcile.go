// =============================================================================
// RFFA Reconciler - Reconcile Command
// =============================================================================
//
// This file defines the 'reconcile' command, the main command of the tool.
// It cross-references the selected RFFA sheets against the IMP Top-up
// roster and annotates both workbooks.
//
// COMMAND USAGE:
//   rffa reconcile --primary RFFA.xlsx --secondary IMP.xlsx [flags]
//
// FLAGS:
//   --sheet            : Sheet to process, repeatable, in processing order
//   --all              : Process every visible sheet except earlier
//                        Duplicates sheets
//   --backup           : Back up both inputs first (default from preferences)
//   --no-backup        : Never back up
//   --non-duplicates   : Write the non-duplicate RSBSA list to this file
//   --history          : Export the run history to this workbook
//   --invalid-report   : Write Invalid_Farm_Areas.xlsx into this directory
//   --summary          : Write a run summary text file into this directory
//   --review           : Step through the invalid farm areas interactively
//
// PROCESSING PIPELINE:
//   1. Resolve the sheet selection and backup preference
//   2. Pre-flight: both files exist and are not open elsewhere
//   3. Run the reconciliation in the background, streaming progress
//   4. Print the summary and write the requested reports
//   5. Optionally review the invalid farm areas
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/rffa-reconciler/internal/history"
	"github.com/ginjaninja78/rffa-reconciler/internal/logger"
	"github.com/ginjaninja78/rffa-reconciler/internal/reconcile"
	"github.com/ginjaninja78/rffa-reconciler/internal/validation"
	"github.com/ginjaninja78/rffa-reconciler/pkg/utils"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	recPrimary       string
	recSecondary     string
	recSheets        []string
	recAll           bool
	recBackup        bool
	recNoBackup      bool
	recNonDuplicates string
	recHistory       string
	recInvalidReport string
	recSummaryDir    string
	recReview        bool
)

// =============================================================================
// RECONCILE COMMAND DEFINITION
// =============================================================================

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Find RFFA farmers who also appear in the IMP Top-up roster",
	Long: `The reconcile command reads the RSBSA numbers of the IMP Top-up roster and
checks every row of the selected RFFA sheets against them.

In the RFFA workbook:
  - matching rows are highlighted and copied to a new Duplicates sheet
  - farm areas that are zero, negative or above the limit are highlighted

In the IMP Top-up workbook:
  - rows whose RSBSA number matched are highlighted

Both files are saved in place. Use --backup to keep a copy of the originals.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconcile(cmd)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(reconcileCmd)

	f := reconcileCmd.Flags()
	f.StringVar(&recPrimary, "primary", "", "Path to the RFFA workbook")
	f.StringVar(&recSecondary, "secondary", "", "Path to the IMP Top-up workbook")
	f.StringArrayVar(&recSheets, "sheet", nil, "RFFA sheet to process (repeatable)")
	f.BoolVar(&recAll, "all", false, "Process every visible sheet")
	f.BoolVar(&recBackup, "backup", true, "Back up both files before processing")
	f.BoolVar(&recNoBackup, "no-backup", false, "Do not back up the files")
	f.StringVar(&recNonDuplicates, "non-duplicates", "", "Write the non-duplicate RSBSA numbers to this text file")
	f.StringVar(&recHistory, "history", "", "Export the run history to this .xlsx file")
	f.StringVar(&recInvalidReport, "invalid-report", "", "Write the invalid farm area report into this directory")
	f.StringVar(&recSummaryDir, "summary", "", "Write a run summary into this directory")
	f.BoolVar(&recReview, "review", false, "Review the invalid farm areas interactively")

	reconcileCmd.MarkFlagsMutuallyExclusive("sheet", "all")
	reconcileCmd.MarkFlagsMutuallyExclusive("backup", "no-backup")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runReconcile(cmd *cobra.Command) error {
	log := logger.Component(rootLog, "reconcile")

	// =========================================================================
	// STEP 1: SELECTION AND BACKUP PREFERENCE
	// =========================================================================

	sheets := recSheets
	if recAll && recPrimary != "" {
		names, err := visibleSheetNames(recPrimary)
		if err != nil {
			return err
		}
		sheets = withoutDuplicatesSheets(names, mainConfig.Sheets.DuplicatesName)
	}

	createBackup := prefs.AlwaysCreateBackup()
	switch {
	case recNoBackup:
		createBackup = false
	case cmd.Flags().Changed("backup"):
		createBackup = recBackup
	}

	req := reconcile.Request{
		PrimaryPath:   recPrimary,
		SecondaryPath: recSecondary,
		Sheets:        sheets,
		CreateBackup:  createBackup,
	}

	// =========================================================================
	// STEP 2: PRE-FLIGHT
	// =========================================================================

	hist := history.NewLog()
	engine := reconcile.New(mainConfig, hist, log)
	if err := engine.Preflight(req); err != nil {
		return err
	}

	// =========================================================================
	// STEP 3: RUN
	// =========================================================================

	fmt.Println("=== RFFA Reconciler ===")
	fmt.Printf("RFFA file:       %s\n", req.PrimaryPath)
	fmt.Printf("IMP Top-up file: %s\n", req.SecondaryPath)
	fmt.Printf("Sheets:          %s\n\n", strings.Join(req.Sheets, ", "))

	msgs := make(chan string, 64)
	task := engine.Start(context.Background(), req, func(msg string) { msgs <- msg })

wait:
	for {
		select {
		case msg := <-msgs:
			fmt.Println(msg)
		case <-task.Done():
			for {
				select {
				case msg := <-msgs:
					fmt.Println(msg)
				default:
					break wait
				}
			}
		}
	}

	res, err := task.Wait()
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 4: SUMMARY AND REPORTS
	// =========================================================================

	printSummary(res)

	exportDir := mainConfig.ExportDir
	if exportDir == "" {
		exportDir = res.SaveLocation
	}

	if recNonDuplicates != "" {
		if err := utils.WriteNonDuplicateReport(recNonDuplicates, res.SheetOrder, res.NonDuplicatesBySheet); err != nil {
			return err
		}
		fmt.Printf("Non-duplicate list written to %s\n", recNonDuplicates)
	}
	if recHistory != "" {
		if err := hist.Export(recHistory, mainConfig, log); err != nil {
			return err
		}
		fmt.Printf("History exported to %s\n", recHistory)
	}
	if recInvalidReport != "" {
		path, err := validation.ExportReport(res.InvalidFarmAreas, recInvalidReport, mainConfig, log)
		if err != nil {
			return err
		}
		fmt.Printf("Invalid farm area report written to %s\n", path)
	}
	if recSummaryDir != "" {
		path, err := utils.WriteSummaryLog(res.Summary(req), recSummaryDir)
		if err != nil {
			return err
		}
		fmt.Printf("Summary written to %s\n", path)
	}

	// =========================================================================
	// STEP 5: REVIEW
	// =========================================================================

	if recReview && len(res.InvalidFarmAreas) > 0 {
		tracker := validation.NewTracker(res.InvalidFarmAreas, req.PrimaryPath, mainConfig, logger.Component(rootLog, "validation"))
		return runReview(tracker, os.Stdin, os.Stdout, exportDir)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func printSummary(res *reconcile.Result) {
	fmt.Println("\n=== Processing Complete ===")
	for _, s := range res.Sheets {
		fmt.Printf("  %-24s duplicates: %-6d non-duplicates: %d\n", s.Name, len(s.Duplicates), len(s.NonDuplicates))
	}
	fmt.Printf("Duplicates found:          %d\n", res.TotalDuplicates)
	fmt.Printf("Unique duplicates:         %d\n", len(res.DuplicateList))
	fmt.Printf("Non-duplicates:            %d\n", res.TotalNonDuplicates)
	fmt.Printf("Invalid farm areas:        %d\n", len(res.InvalidFarmAreas))
	fmt.Printf("Total endorsed:            %d\n", res.TotalEndorsed())
	fmt.Printf("IMP Top-up rows marked:    %d\n", res.SecondaryHighlighted)
	fmt.Printf("Duplicates sheet:          %s\n", res.DuplicatesSheet)
	fmt.Printf("Time elapsed:              %s\n", res.Duration)
	for _, b := range res.Backups {
		fmt.Printf("Backup:                    %s\n", filepath.Base(b))
	}
}

// withoutDuplicatesSheets drops the sheets an earlier run added, so --all
// does not reconcile a Duplicates sheet against itself.
func withoutDuplicatesSheets(names []string, base string) []string {
	prefix := strings.ToLower(base)
	var kept []string
	for _, name := range names {
		if strings.HasPrefix(strings.ToLower(name), prefix) {
			continue
		}
		kept = append(kept, name)
	}
	return kept
}
