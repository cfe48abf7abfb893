package validation

import (
	"os"
	"path/filepath"

	"github.com/ginjaninja78/rffa-reconciler/internal/config"
	"github.com/ginjaninja78/rffa-reconciler/internal/spreadsheet"
	"github.com/ginjaninja78/rffa-reconciler/pkg/utils"
	"github.com/rs/zerolog"
)

const (
	// ReportFileName is the fixed name of the invalid farm area report.
	ReportFileName = "Invalid_Farm_Areas.xlsx"
	// ReportSheetName is the single worksheet of the report.
	ReportSheetName = "Invalid Farm Areas"
)

var reportHeader = []any{
	"Sheet Name", "RSBSA Number", "Last Name", "First Name", "Middle Name", "Farm Area (Ha)", "Row Number",
}

var reportWidths = []float64{20, 22, 18, 18, 18, 15, 12}

// Export writes every record, active or dismissed, to the report in dir.
func (t *Tracker) Export(dir string) (string, error) {
	return ExportReport(t.Records(), dir, t.cfg, t.log)
}

// ExportReport writes records to dir/Invalid_Farm_Areas.xlsx, replacing any
// existing report without asking.
//
// LAYOUT:
//   Sheet Name | RSBSA Number | Last Name | First Name | Middle Name |
//   Farm Area (Ha) | Row Number
//   Farm areas use the "0.00" format. Rows above the maximum are filled
//   orange, rows below the low threshold red.
func ExportReport(records []*Record, dir string, cfg *config.MainConfig, log zerolog.Logger) (string, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", utils.ClassifyFileError(dir, err)
	}
	path := filepath.Join(dir, ReportFileName)

	wb := spreadsheet.New(path, log)
	defer wb.Close()

	if err := wb.RenameSheet(wb.FirstSheet(), ReportSheetName); err != nil {
		return "", err
	}
	if err := wb.SetRow(ReportSheetName, 1, reportHeader); err != nil {
		return "", err
	}
	if err := wb.StyleHeader(ReportSheetName, len(reportHeader), cfg.Colors.Header); err != nil {
		return "", err
	}

	for i, rec := range records {
		row := i + 2
		values := []any{rec.Sheet, rec.ID.String(), rec.LastName, rec.FirstName, rec.MiddleName, rec.FarmArea, rec.Row}
		if err := wb.SetRow(ReportSheetName, row, values); err != nil {
			return "", err
		}
		if err := wb.SetNumberFormat(ReportSheetName, row, 6, "0.00"); err != nil {
			return "", err
		}

		switch {
		case rec.FarmArea > cfg.Validation.MaxFarmArea:
			err := wb.SetFill(ReportSheetName, row, 1, len(reportHeader), cfg.Colors.ReportHigh)
			if err != nil {
				return "", err
			}
		case rec.FarmArea < cfg.Validation.ReportLowThreshold:
			err := wb.SetFill(ReportSheetName, row, 1, len(reportHeader), cfg.Colors.ReportLow)
			if err != nil {
				return "", err
			}
		}
	}

	if err := wb.SetColumnWidths(ReportSheetName, reportWidths); err != nil {
		return "", err
	}

	if err := wb.Save(); err != nil {
		return "", utils.ClassifyFileError(path, err)
	}

	log.Info().Str("path", path).Int("records", len(records)).Msg("invalid farm area report exported")
	return path, nil
}
