// =============================================================================
// RFFA Reconciler - Export Command
// =============================================================================
//
// This file defines the 'export' command, which copies the IMP Top-up rows
// matched by a reconciliation run into a batch report.
//
// COMMAND USAGE:
//   rffa export --primary RFFA.xlsx --secondary IMP.xlsx --municipality M
//               (--batch N --province P [--out DIR] | --existing REPORT.xlsx)
//
// MODES:
//   Without --existing (or when it names no file) a new report
//   BATCH_{N}_{P}.xlsx is created. With --existing the report is updated:
//   a new municipality sheet and a new Metadata row are appended.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"

	"github.com/ginjaninja78/rffa-reconciler/internal/batch"
	"github.com/ginjaninja78/rffa-reconciler/internal/logger"
	"github.com/spf13/cobra"
)

var exportReq batch.Request

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export matched IMP Top-up rows into a batch report",
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter := batch.New(mainConfig, logger.Component(rootLog, "batch"))

		fmt.Println("Exporting batch file. This may take a moment...")
		out, err := exporter.Export(context.Background(), exportReq)
		if err != nil {
			return err
		}

		fmt.Printf("Added %d duplicate rows to the batch export.\n", out.Records)
		fmt.Printf("Report (%s): %s\n", out.Mode, out.Path)
		fmt.Printf("Sheet:  %s\n", out.Sheet)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	f := exportCmd.Flags()
	f.StringVar(&exportReq.PrimaryPath, "primary", "", "Path to the reconciled RFFA workbook")
	f.StringVar(&exportReq.SecondaryPath, "secondary", "", "Path to the IMP Top-up workbook")
	f.StringVar(&exportReq.BatchNumber, "batch", "", "Batch number (required for a new report)")
	f.StringVar(&exportReq.Province, "province", "", "Province (required for a new report)")
	f.StringVar(&exportReq.Municipality, "municipality", "", "Municipality, used as the sheet name")
	f.StringVar(&exportReq.ExistingReportPath, "existing", "", "Update this existing batch report")
	f.StringVar(&exportReq.OutputDir, "out", "", "Directory for a new report (default: the RFFA file's directory)")
}
