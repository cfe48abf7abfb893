// =============================================================================
// RFFA Reconciler - Batch Export Engine
// =============================================================================
//
// This module copies the IMP Top-up rows that matched the RFFA roster into a
// batch report, one worksheet per municipality, with a Metadata ledger that
// records every export made into the report.
//
// EXPORT PIPELINE:
//   1. Validate the request and pick create or update mode
//   2. Collect the candidate identifiers from the RFFA workbook
//      (Duplicates sheet, else highlighted rows of the other sheets)
//   3. Open the existing report or start a new one
//   4. Append a row to the Metadata sheet (kept first)
//   5. Add the municipality sheet and copy the matching IMP Top-up rows
//   6. Back-fill the record count and save through a temporary file
//
// MODES:
//   create: BATCH_{batch}_{province}.xlsx in the output directory. Batch
//           number (numeric), province and municipality are required.
//   update: an existing report named by ExistingReportPath. Only the
//           municipality is required.
//
// =============================================================================

package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/rffa-reconciler/internal/apperrors"
	"github.com/ginjaninja78/rffa-reconciler/internal/columns"
	"github.com/ginjaninja78/rffa-reconciler/internal/config"
	"github.com/ginjaninja78/rffa-reconciler/internal/spreadsheet"
	"github.com/ginjaninja78/rffa-reconciler/internal/types"
	"github.com/ginjaninja78/rffa-reconciler/pkg/utils"
	"github.com/hashicorp/go-set/v2"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
)

// ExportTimeLayout formats the Export Date column of the Metadata sheet.
const ExportTimeLayout = "2006-01-02 15:04:05"

// MetadataHeader is row 1 of the Metadata sheet.
var MetadataHeader = []any{"Sheet Name", "Municipality", "Province", "Batch Number", "Export Date", "Record Count"}

// recordCountColumn is the 1-based Metadata column back-filled after the copy.
const recordCountColumn = 6

// =============================================================================
// REQUEST
// =============================================================================

// Mode tells whether an export creates a report or appends to one.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

func (m Mode) String() string {
	if m == ModeUpdate {
		return "update"
	}
	return "create"
}

// Request describes one export.
type Request struct {
	BatchNumber  string
	Province     string
	Municipality string

	// ExistingReportPath selects update mode when it names an existing file.
	ExistingReportPath string

	// PrimaryPath is the reconciled RFFA workbook.
	PrimaryPath string

	// SecondaryPath is the IMP Top-up workbook the rows are copied from.
	SecondaryPath string

	// OutputDir receives new reports. Empty means the RFFA file's directory.
	OutputDir string
}

// Validate checks the request without touching any workbook and returns
// the mode the export will run in.
func (r Request) Validate() (Mode, error) {
	if strings.TrimSpace(r.Municipality) == "" {
		return ModeCreate, apperrors.Validation("Please enter a municipality.")
	}
	if r.PrimaryPath == "" {
		return ModeCreate, apperrors.Validation("Please select the RFFA file.")
	}
	if r.SecondaryPath == "" {
		return ModeCreate, apperrors.Validation("Please select the IMP Topup file.")
	}

	if r.ExistingReportPath != "" && utils.FileExists(r.ExistingReportPath) {
		return ModeUpdate, nil
	}

	if _, err := strconv.ParseUint(strings.TrimSpace(r.BatchNumber), 10, 64); err != nil {
		return ModeCreate, apperrors.Validation("Please enter a valid batch number.")
	}
	if strings.TrimSpace(r.Province) == "" {
		return ModeCreate, apperrors.Validation("Please enter a province.")
	}
	return ModeCreate, nil
}

// FileName returns the report name used in create mode.
func (r Request) FileName() string {
	return fmt.Sprintf("BATCH_%s_%s.xlsx", strings.TrimSpace(r.BatchNumber), utils.SanitizeFileName(r.Province))
}

// Outcome describes a finished export.
type Outcome struct {
	// Path is the report that was written.
	Path string

	// Sheet is the municipality worksheet added by this export.
	Sheet string

	// Records is the number of rows copied.
	Records int

	Mode Mode
}

// =============================================================================
// EXPORTER
// =============================================================================

// Exporter writes batch reports.
type Exporter struct {
	cfg *config.MainConfig
	log zerolog.Logger
	now func() time.Time
}

// New creates an Exporter. nil cfg means config.Default().
func New(cfg *config.MainConfig, log zerolog.Logger) *Exporter {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Exporter{cfg: cfg, log: log, now: time.Now}
}

// Export runs one export.
//
// PARAMETERS:
//   - ctx: Checked once before anything is opened.
//   - req: The export request.
//
// RETURNS:
//   - The Outcome on success.
//   - An AppError: VALIDATION, FILE_LOCKED, PERMISSION_DENIED,
//     SOURCE_MISSING, SOURCE_EMPTY or IO.
func (e *Exporter) Export(ctx context.Context, req Request) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 1: MODE AND DESTINATION
	// =========================================================================

	mode, err := req.Validate()
	if err != nil {
		return nil, err
	}

	dest, err := e.destination(req, mode)
	if err != nil {
		return nil, err
	}
	e.log.Info().Str("mode", mode.String()).Str("path", dest).Msg("exporting batch report")

	// =========================================================================
	// STEP 2: CANDIDATE MATCH SET
	// =========================================================================

	candidates, err := e.candidates(req.PrimaryPath)
	if err != nil {
		return nil, err
	}
	e.log.Debug().Int("candidates", candidates.Size()).Msg("collected RFFA matches")

	// =========================================================================
	// STEP 3: SOURCE ROWS
	// =========================================================================

	src, err := spreadsheet.Open(req.SecondaryPath, e.log)
	if err != nil {
		return nil, utils.ClassifyFileError(req.SecondaryPath, err)
	}
	defer src.Close()

	srcSheet := src.FirstSheet()
	var grid [][]string
	if srcSheet != "" {
		if grid, err = src.Rows(srcSheet); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeIO, "failed to read the IMP Top-up file")
		}
	}
	rows, width := spreadsheet.GridDimensions(grid)
	if rows == 0 || width == 0 {
		return nil, apperrors.New(apperrors.CodeSourceEmpty, "The IMP Top-up file appears to be empty.")
	}

	// =========================================================================
	// STEP 4: REPORT AND METADATA
	// =========================================================================

	report, err := e.openReport(dest, mode)
	if err != nil {
		return nil, err
	}
	defer report.Close()

	metaRow, err := e.appendMetadata(report, req)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 5: MUNICIPALITY SHEET
	// =========================================================================

	sheet := report.UniqueSheetName(spreadsheet.SanitizeSheetName(req.Municipality), "_")
	if err := report.AddSheet(sheet); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeIO, "failed to add the municipality sheet")
	}
	if err := report.SetCellValue(e.cfg.Sheets.MetadataName, metaRow, 1, sheet); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeIO, "failed to write the Metadata row")
	}

	if err := src.CopyRow(srcSheet, 1, report, sheet, 1, width); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeIO, "failed to copy the IMP Top-up header")
	}
	if err := report.StyleHeader(sheet, width, e.cfg.Colors.Header); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to style the header")
	}

	refCol, _ := columns.Resolve(grid[0], e.cfg.Columns.ReferenceAliases)
	if refCol == columns.NotFound {
		refCol = e.cfg.Columns.SecondaryReferenceColumn
	}

	copied := set.New[types.Identifier](candidates.Size())
	dstRow := 2
	for row := 2; row <= rows; row++ {
		id := types.NewIdentifier(cellAt(grid, row, refCol))
		if id.IsEmpty() || !candidates.Contains(id) || !copied.Insert(id) {
			continue
		}
		if err := src.CopyRow(srcSheet, row, report, sheet, dstRow, width); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeIO, "failed to copy a matching row")
		}
		dstRow++
	}
	records := copied.Size()

	// =========================================================================
	// STEP 6: RECORD COUNT AND SAVE
	// =========================================================================

	if err := report.SetCellValue(e.cfg.Sheets.MetadataName, metaRow, recordCountColumn, records); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeIO, "failed to write the record count")
	}

	err = utils.AtomicReplace(dest, func(tmp string) error {
		return report.SaveAs(tmp)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().Str("path", dest).Str("sheet", sheet).Int("records", records).Msg("batch report saved")
	return &Outcome{Path: dest, Sheet: sheet, Records: records, Mode: mode}, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// destination resolves the report path and refuses one that is held open.
func (e *Exporter) destination(req Request, mode Mode) (string, error) {
	if mode == ModeUpdate {
		if err := utils.CheckExclusiveAccess(req.ExistingReportPath); err != nil {
			return "", err
		}
		return req.ExistingReportPath, nil
	}

	dir := req.OutputDir
	if dir == "" {
		dir = filepath.Dir(req.PrimaryPath)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", utils.ClassifyFileError(dir, err)
	}

	dest := filepath.Join(dir, req.FileName())
	if utils.FileExists(dest) {
		if err := utils.CheckExclusiveAccess(dest); err != nil {
			return "", err
		}
		e.log.Warn().Str("path", dest).Msg("overwriting existing batch report")
	}
	return dest, nil
}

// candidates returns the identifiers the RFFA workbook marks as matched.
// The first worksheet whose name starts with the Duplicates base name
// (any case) is read in full. When it yields nothing, every other sheet is
// scanned for rows carrying a fill in their leading columns.
func (e *Exporter) candidates(path string) (*set.Set[types.Identifier], error) {
	wb, err := spreadsheet.Open(path, e.log)
	if err != nil {
		return nil, utils.ClassifyFileError(path, err)
	}
	defer wb.Close()

	fold := cases.Fold()
	prefix := fold.String(e.cfg.Sheets.DuplicatesName)
	isDuplicates := func(name string) bool {
		return strings.HasPrefix(fold.String(name), prefix)
	}

	found := set.New[types.Identifier](0)
	for _, name := range wb.SheetNames() {
		if !isDuplicates(name) {
			continue
		}
		grid, err := wb.Rows(name)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeIO, fmt.Sprintf("failed to read sheet '%s'", name))
		}
		col := e.referenceColumn(grid)
		for row := 2; row <= len(grid); row++ {
			if id := types.NewIdentifier(cellAt(grid, row, col)); !id.IsEmpty() {
				found.Insert(id)
			}
		}
		break
	}
	if found.Size() > 0 {
		return found, nil
	}

	probe := e.cfg.Sheets.HighlightProbeColumns
	for _, name := range wb.SheetNames() {
		if isDuplicates(name) {
			continue
		}
		grid, err := wb.Rows(name)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeIO, fmt.Sprintf("failed to read sheet '%s'", name))
		}
		col := e.referenceColumn(grid)
		for row := 2; row <= len(grid); row++ {
			id := types.NewIdentifier(cellAt(grid, row, col))
			if id.IsEmpty() {
				continue
			}
			highlighted, err := wb.RowHasFill(name, row, probe)
			if err != nil {
				return nil, apperrors.Wrap(err, apperrors.CodeIO, fmt.Sprintf("failed to read the fills of sheet '%s'", name))
			}
			if highlighted {
				found.Insert(id)
			}
		}
	}
	e.log.Debug().Int("matches", found.Size()).Msg("no Duplicates sheet entries, used highlighted rows")
	return found, nil
}

func (e *Exporter) referenceColumn(grid [][]string) int {
	var header []string
	if len(grid) > 0 {
		header = grid[0]
	}
	return columns.ResolveWithFallback(header, e.cfg.Columns.ReferenceAliases, e.cfg.Columns.ReferenceFallback).Column
}

// openReport opens the existing report or starts a new one whose only
// sheet is the Metadata sheet.
func (e *Exporter) openReport(dest string, mode Mode) (*spreadsheet.Workbook, error) {
	if mode == ModeUpdate {
		wb, err := spreadsheet.Open(dest, e.log)
		if err != nil {
			return nil, utils.ClassifyFileError(dest, err)
		}
		return wb, nil
	}

	wb := spreadsheet.New(dest, e.log)
	if err := wb.RenameSheet(wb.FirstSheet(), e.cfg.Sheets.MetadataName); err != nil {
		wb.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to create the Metadata sheet")
	}
	return wb, nil
}

// appendMetadata makes sure the Metadata sheet exists, has its header and
// is first, then writes this export's row. The record count is filled in
// later. It returns the row written.
func (e *Exporter) appendMetadata(wb *spreadsheet.Workbook, req Request) (int, error) {
	name := e.cfg.Sheets.MetadataName
	if !wb.HasSheet(name) {
		if err := wb.AddSheet(name); err != nil {
			return 0, apperrors.Wrap(err, apperrors.CodeIO, "failed to add the Metadata sheet")
		}
	}
	if err := wb.MoveToFront(name); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to move the Metadata sheet")
	}

	rows, _, err := wb.Dimensions(name)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeIO, "failed to read the Metadata sheet")
	}
	if rows == 0 {
		if err := wb.SetRow(name, 1, MetadataHeader); err != nil {
			return 0, apperrors.Wrap(err, apperrors.CodeIO, "failed to write the Metadata header")
		}
		if err := wb.StyleHeader(name, len(MetadataHeader), e.cfg.Colors.Header); err != nil {
			return 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to style the Metadata header")
		}
		if err := wb.SetColumnWidths(name, []float64{25, 20, 20, 14, 20, 14}); err != nil {
			return 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to size the Metadata columns")
		}
		rows = 1
	}

	row := rows + 1
	values := []any{
		"",
		strings.TrimSpace(req.Municipality),
		strings.TrimSpace(req.Province),
		strings.TrimSpace(req.BatchNumber),
		e.now().Format(ExportTimeLayout),
		0,
	}
	if err := wb.SetRow(name, row, values); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeIO, "failed to write the Metadata row")
	}
	return row, nil
}

// cellAt returns the 1-based (row, col) cell of a grid, or "" when it lies
// outside the stored cells.
func cellAt(grid [][]string, row, col int) string {
	if row < 1 || row > len(grid) || col < 1 {
		return ""
	}
	cells := grid[row-1]
	if col > len(cells) {
		return ""
	}
	return cells[col-1]
}
