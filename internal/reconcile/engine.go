// =============================================================================
// RFFA Reconciler - Reconciliation Engine
// =============================================================================
//
// This module contains the core reconciliation logic. It cross-references the
// RFFA (primary) roster against the IMP Top-up (secondary) roster by RSBSA
// number and annotates both workbooks in place.
//
// RECONCILIATION PIPELINE (strict order):
//   1. Back up both input files (optional, failure is only a warning)
//   2. Read the IMP Top-up identifiers into the cross-reference set
//   3. Open the RFFA workbook and add a uniquely named Duplicates sheet
//   4. For each selected sheet:
//      a. Resolve the reference, farm-area and name columns
//      b. On the first sheet, copy the header row into Duplicates
//      c. Classify each row as duplicate / non-duplicate, highlight and
//         copy duplicates
//      d. Flag farm areas outside (0, max]
//      e. Append a history entry
//   5. Style the Duplicates header and save the RFFA workbook
//   6. Highlight matching rows of the IMP Top-up workbook and save it
//   7. Build the Result
//
// CONCURRENCY:
//   An Engine runs one reconciliation at a time; callers serialize runs.
//   Once started a run is not interrupted. The context is checked only
//   before anything is touched.
//
// =============================================================================

package reconcile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/rffa-reconciler/internal/apperrors"
	"github.com/ginjaninja78/rffa-reconciler/internal/columns"
	"github.com/ginjaninja78/rffa-reconciler/internal/config"
	"github.com/ginjaninja78/rffa-reconciler/internal/history"
	"github.com/ginjaninja78/rffa-reconciler/internal/spreadsheet"
	"github.com/ginjaninja78/rffa-reconciler/internal/types"
	"github.com/ginjaninja78/rffa-reconciler/internal/validation"
	"github.com/ginjaninja78/rffa-reconciler/pkg/utils"
	"github.com/hashicorp/go-set/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc receives free-text milestones while a run is in progress.
// It is called from the goroutine executing the run.
type ProgressFunc func(msg string)

// =============================================================================
// REQUEST
// =============================================================================

// Request names the inputs of one reconciliation run.
type Request struct {
	// PrimaryPath is the RFFA workbook that gets the Duplicates sheet.
	PrimaryPath string

	// SecondaryPath is the IMP Top-up workbook used as the reference set.
	SecondaryPath string

	// Sheets are the RFFA worksheets to process, in processing order.
	Sheets []string

	// CreateBackup copies both inputs before anything is modified.
	CreateBackup bool
}

// Validate refuses a request that cannot start.
func (r Request) Validate() error {
	if r.PrimaryPath == "" {
		return apperrors.Validation("Please select the RFFA file.")
	}
	if r.SecondaryPath == "" {
		return apperrors.Validation("Please select the IMP Topup file.")
	}
	if len(r.Sheets) == 0 {
		return apperrors.Validation("Please select at least one sheet to process.")
	}
	return nil
}

// =============================================================================
// ENGINE STRUCTURE
// =============================================================================

// Engine performs reconciliation runs.
type Engine struct {
	cfg     *config.MainConfig
	history history.Recorder
	log     zerolog.Logger
	now     func() time.Time
}

// New creates an Engine.
//
// PARAMETERS:
//   - cfg: Column aliases, colours and limits. nil means config.Default().
//   - rec: Receives one entry per processed sheet. May be nil.
//   - log: The component logger.
//
// RETURNS:
//   - A new Engine instance.
func New(cfg *config.MainConfig, rec history.Recorder, log zerolog.Logger) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Engine{cfg: cfg, history: rec, log: log, now: time.Now}
}

// Preflight validates the request and makes sure neither input is held
// open by another program. Nothing is modified.
func (e *Engine) Preflight(req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	for _, path := range []string{req.PrimaryPath, req.SecondaryPath} {
		if err := utils.CheckExclusiveAccess(path); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Reconcile executes the pipeline described at the top of this file.
//
// PARAMETERS:
//   - ctx: Checked once before the run starts.
//   - req: The inputs.
//   - progress: Receives milestones. May be nil.
//
// RETURNS:
//   - The Result on success.
//   - An AppError on failure. Saves already flushed to disk are kept.
func (e *Engine) Reconcile(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r := &run{
		Engine:   e,
		req:      req,
		progress: progress,
		result:   newResult(filepath.Dir(req.PrimaryPath)),
		start:    e.now(),
	}
	r.result.StartTime = r.start
	r.report("Starting processing...")

	// =========================================================================
	// STEP 1: BACKUPS
	// =========================================================================

	if req.CreateBackup {
		r.createBackups()
	} else {
		r.report("Proceeding without creating backups (as per user preference).")
	}

	// =========================================================================
	// STEP 2: CROSS-REFERENCE SET
	// =========================================================================

	r.report("Reading IMP Topup file...")
	refs, err := r.readCrossReferences()
	if err != nil {
		return nil, err
	}
	r.report("Found %d entries in IMP Topup file", refs.Size())

	// =========================================================================
	// STEPS 3-5: ANNOTATE THE RFFA WORKBOOK
	// =========================================================================

	if err := r.processPrimary(refs); err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 6: HIGHLIGHT THE IMP TOP-UP WORKBOOK
	// =========================================================================

	r.report("\nHighlighting duplicates in IMP Topup file...")
	highlighted, err := r.highlightSecondary()
	if err != nil {
		return nil, err
	}
	r.result.SecondaryHighlighted = highlighted
	r.report("Highlighted %d duplicate entries in IMP Topup file", highlighted)

	// =========================================================================
	// STEP 7: RESULT
	// =========================================================================

	r.result.Duration = e.now().Sub(r.start)
	e.log.Info().
		Int("duplicates", r.result.TotalDuplicates).
		Int("non_duplicates", r.result.TotalNonDuplicates).
		Int("invalid_farm_areas", len(r.result.InvalidFarmAreas)).
		Int("secondary_highlighted", highlighted).
		Dur("duration", r.result.Duration).
		Msg("reconciliation complete")

	return r.result, nil
}

// =============================================================================
// RUN STATE
// =============================================================================

// run holds the state of one Reconcile call.
type run struct {
	*Engine
	req      Request
	progress ProgressFunc
	result   *Result
	start    time.Time
}

func (r *run) report(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.log.Debug().Msg(msg)
	if r.progress != nil {
		r.progress(msg)
	}
}

func (r *run) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.log.Warn().Msg(msg)
	if r.progress != nil {
		r.progress("Warning: " + msg)
	}
}

// createBackups copies both inputs concurrently. Each failure is reported
// as a warning and never stops the run.
func (r *run) createBackups() {
	inputs := []struct{ label, path string }{
		{"RFFA", r.req.PrimaryPath},
		{"IMP Topup", r.req.SecondaryPath},
	}
	backups := make([]string, len(inputs))
	errs := make([]error, len(inputs))

	var g errgroup.Group
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			backups[i], errs[i] = utils.BackupFile(in.path, r.cfg.BackupPrefix)
			return errs[i]
		})
	}
	_ = g.Wait()

	for i, in := range inputs {
		if errs[i] != nil {
			r.warn("Failed to create backup: %v", errs[i])
			continue
		}
		r.result.Backups = append(r.result.Backups, backups[i])
		r.report("Created backup of %s file: %s", in.label, filepath.Base(backups[i]))
	}
}

// readCrossReferences loads the trimmed, non-empty identifiers of the
// secondary roster's first worksheet, skipping the header row.
func (r *run) readCrossReferences() (*set.Set[types.Identifier], error) {
	wb, err := spreadsheet.Open(r.req.SecondaryPath, r.log)
	if err != nil {
		return nil, utils.ClassifyFileError(r.req.SecondaryPath, err)
	}
	defer wb.Close()

	sheet := wb.FirstSheet()
	if sheet == "" {
		return nil, apperrors.New(apperrors.CodeSourceEmpty, "The IMP Top-up file has no worksheets.")
	}
	grid, err := wb.Rows(sheet)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeIO, "failed to read the IMP Top-up file")
	}

	refs := set.New[types.Identifier](len(grid))
	for row := 2; row <= len(grid); row++ {
		id := types.NewIdentifier(cellAt(grid, row, r.cfg.Columns.SecondaryReferenceColumn))
		if !id.IsEmpty() {
			refs.Insert(id)
		}
	}
	return refs, nil
}

// processPrimary runs steps 3 to 5 against the RFFA workbook.
func (r *run) processPrimary(refs *set.Set[types.Identifier]) error {
	wb, err := spreadsheet.Open(r.req.PrimaryPath, r.log)
	if err != nil {
		return utils.ClassifyFileError(r.req.PrimaryPath, err)
	}
	defer wb.Close()

	dupSheet := wb.UniqueSheetName(r.cfg.Sheets.DuplicatesName, "_")
	if err := wb.AddSheet(dupSheet); err != nil {
		return apperrors.Wrap(err, apperrors.CodeIO, "failed to create the Duplicates sheet")
	}
	r.result.DuplicatesSheet = dupSheet

	out := &duplicatesWriter{wb: wb, sheet: dupSheet, next: 1}
	seen := set.New[types.Identifier](0)

	for _, name := range r.req.Sheets {
		r.report("\nProcessing sheet: %s", name)
		if !wb.HasSheet(name) {
			r.warn("Sheet '%s' not found. Skipping.", name)
			continue
		}

		stats, err := r.processSheet(wb, name, refs, out)
		if err != nil {
			return err
		}

		r.result.addSheet(stats, seen)
		r.report("Sheet '%s': Found %d duplicates, %d non-duplicates", name, len(stats.Duplicates), len(stats.NonDuplicates))
		if n := len(stats.InvalidFarmAreas); n > 0 {
			r.report("Found %d records with farm area outside range 0-%.1f Ha", n, r.cfg.Validation.MaxFarmArea)
		}
		if r.history != nil {
			r.history.Add(history.Entry{
				Time:          r.now(),
				Sheet:         name,
				Duplicates:    len(stats.Duplicates),
				NonDuplicates: len(stats.NonDuplicates),
			})
		}
	}

	// =========================================================================
	// STEP 5: STYLE AND SAVE
	// =========================================================================

	if err := wb.StyleHeader(dupSheet, max(out.width, 1), r.cfg.Colors.Header); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to style the Duplicates header")
	}
	if err := wb.Save(); err != nil {
		return utils.ClassifyFileError(r.req.PrimaryPath, err)
	}
	r.report("Saved changes to RFFA file with highlighted duplicates and new Duplicates sheet")
	return nil
}

// sheetColumns are the resolved columns of one roster sheet.
type sheetColumns struct {
	ref, farm, last, first, middle int
}

func (r *run) resolveColumns(sheet string, header []string) sheetColumns {
	cc := r.cfg.Columns

	ref := columns.ResolveWithFallback(header, cc.ReferenceAliases, cc.ReferenceFallback)
	switch ref.Resolution {
	case columns.ResolvedAlias:
		r.warn("%s column not found in sheet '%s'. Using '%s' instead.", firstOr(cc.ReferenceAliases, "RSBSA NUMBER"), sheet, ref.Alias)
	case columns.ResolvedFallback:
		col, _ := spreadsheet.ColumnName(ref.Column)
		r.warn("RSBSA column not found in sheet '%s'. Using column %s as fallback.", sheet, col)
	}

	farm := columns.ResolveWithFallback(header, cc.FarmAreaAliases, columns.NotFound)
	switch farm.Resolution {
	case columns.ResolvedAlias:
		r.warn("%s column not found in sheet '%s'. Using '%s' instead.", firstOr(cc.FarmAreaAliases, "TOTAL FARM AREA (Ha)"), sheet, farm.Alias)
	case columns.Unresolved:
		r.warn("Could not find farm area column in sheet '%s'. Farm area validation will be skipped.", sheet)
	}

	last, _ := columns.Resolve(header, cc.LastNameAliases)
	first, _ := columns.Resolve(header, cc.FirstNameAliases)
	middle, _ := columns.Resolve(header, cc.MiddleNameAliases)

	return sheetColumns{ref: ref.Column, farm: farm.Column, last: last, first: first, middle: middle}
}

// processSheet runs step 4 for one worksheet.
func (r *run) processSheet(wb *spreadsheet.Workbook, name string, refs *set.Set[types.Identifier], out *duplicatesWriter) (SheetStats, error) {
	stats := SheetStats{Name: name}

	grid, err := wb.Rows(name)
	if err != nil {
		return stats, apperrors.Wrap(err, apperrors.CodeIO, fmt.Sprintf("failed to read sheet '%s'", name))
	}
	rows, width := spreadsheet.GridDimensions(grid)

	var header []string
	if rows > 0 {
		header = grid[0]
	}
	cols := r.resolveColumns(name, header)

	// 4b: the first processed sheet provides the Duplicates header.
	if out.next == 1 {
		if err := wb.CopyRow(name, 1, wb, out.sheet, 1, width); err != nil {
			return stats, apperrors.Wrap(err, apperrors.CodeIO, "failed to copy the header row")
		}
		r.result.DuplicatesHeader = columns.HeaderIndex(header)
		out.width = width
		out.next = 2
	}

	maxArea := r.cfg.Validation.MaxFarmArea
	for row := 2; row <= rows; row++ {
		line := types.RosterRow{
			ID:    types.NewIdentifier(cellAt(grid, row, cols.ref)),
			Sheet: name,
			Row:   row,
		}
		if line.ID.IsEmpty() {
			continue
		}

		// 4c
		if refs.Contains(line.ID) {
			stats.Duplicates = append(stats.Duplicates, line.ID)
			if err := wb.SetFill(name, row, 1, width, r.cfg.Colors.DuplicateRow); err != nil {
				return stats, apperrors.Wrap(err, apperrors.CodeInternal, "failed to highlight a duplicate row")
			}
			if err := out.append(name, row, width); err != nil {
				return stats, apperrors.Wrap(err, apperrors.CodeIO, "failed to copy a duplicate row")
			}
		} else {
			stats.NonDuplicates = append(stats.NonDuplicates, line.ID)
		}

		// 4d
		if cols.farm == columns.NotFound {
			continue
		}
		line.FarmArea = cellAt(grid, row, cols.farm)
		line.LastName = cellAt(grid, row, cols.last)
		line.FirstName = cellAt(grid, row, cols.first)
		line.MiddleName = cellAt(grid, row, cols.middle)
		if rec := validation.Check(line, maxArea); rec != nil {
			stats.InvalidFarmAreas = append(stats.InvalidFarmAreas, rec)
			if err := wb.SetFill(name, row, cols.farm, cols.farm, r.cfg.Colors.InvalidCell); err != nil {
				return stats, apperrors.Wrap(err, apperrors.CodeInternal, "failed to highlight an invalid farm area")
			}
		}
	}

	r.log.Debug().Str("sheet", name).Int("rows", rows).Int("columns", width).
		Int("duplicates", len(stats.Duplicates)).Msg("sheet processed")
	return stats, nil
}

// highlightSecondary runs step 6: fills every IMP Top-up row whose
// identifier is in the duplicate list and saves the workbook.
func (r *run) highlightSecondary() (int, error) {
	if len(r.result.DuplicateList) == 0 {
		return 0, nil
	}
	dups := set.From(r.result.DuplicateList)

	wb, err := spreadsheet.Open(r.req.SecondaryPath, r.log)
	if err != nil {
		return 0, utils.ClassifyFileError(r.req.SecondaryPath, err)
	}
	defer wb.Close()

	sheet := wb.FirstSheet()
	grid, err := wb.Rows(sheet)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeIO, "failed to read the IMP Top-up file")
	}
	rows, width := spreadsheet.GridDimensions(grid)
	width = min(width, r.cfg.Sheets.SecondaryHighlightColumns)

	highlighted := 0
	for row := 2; row <= rows; row++ {
		id := types.NewIdentifier(cellAt(grid, row, r.cfg.Columns.SecondaryReferenceColumn))
		if id.IsEmpty() || !dups.Contains(id) {
			continue
		}
		if err := wb.SetFill(sheet, row, 1, width, r.cfg.Colors.SecondaryMatch); err != nil {
			return 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to highlight an IMP Top-up row")
		}
		highlighted++
	}

	if err := wb.Save(); err != nil {
		return 0, utils.ClassifyFileError(r.req.SecondaryPath, err)
	}
	return highlighted, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// duplicatesWriter appends rows to the Duplicates sheet.
type duplicatesWriter struct {
	wb    *spreadsheet.Workbook
	sheet string
	next  int
	// width is the widest row written so far, header included.
	width int
}

func (d *duplicatesWriter) append(srcSheet string, srcRow, width int) error {
	if err := d.wb.CopyRow(srcSheet, srcRow, d.wb, d.sheet, d.next, width); err != nil {
		return err
	}
	d.next++
	d.width = max(d.width, width)
	return nil
}

// cellAt returns the 1-based (row, col) cell of a grid read by
// Workbook.Rows, or "" when it lies outside the stored cells.
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

func firstOr(list []string, def string) string {
	if len(list) > 0 {
		return list[0]
	}
	return def
}
