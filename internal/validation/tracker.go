package validation

import (
	"fmt"
	"sync"

	"github.com/ginjaninja78/rffa-reconciler/internal/apperrors"
	"github.com/ginjaninja78/rffa-reconciler/internal/columns"
	"github.com/ginjaninja78/rffa-reconciler/internal/config"
	"github.com/ginjaninja78/rffa-reconciler/internal/spreadsheet"
	"github.com/ginjaninja78/rffa-reconciler/pkg/utils"
	"github.com/rs/zerolog"
)

// Observer is called after a record changes state.
type Observer func(*Record)

// Tracker is a navigable cursor over the violations of one reconciliation
// run. It is safe for concurrent use.
type Tracker struct {
	mu          sync.Mutex
	records     []*Record
	index       int
	primaryPath string
	cfg         *config.MainConfig
	log         zerolog.Logger
	observers   []Observer
}

// NewTracker creates a tracker positioned on the first record.
//
// PARAMETERS:
//   - records: The violations in discovery order.
//   - primaryPath: The RFFA workbook the violations were found in.
//   - cfg: Supplies the farm-area aliases and report colours.
func NewTracker(records []*Record, primaryPath string, cfg *config.MainConfig, log zerolog.Logger) *Tracker {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Tracker{
		records:     records,
		primaryPath: primaryPath,
		cfg:         cfg,
		log:         log,
	}
}

// Subscribe registers an observer for record state changes.
func (t *Tracker) Subscribe(fn Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

func (t *Tracker) notify(rec *Record) {
	t.mu.Lock()
	observers := append([]Observer(nil), t.observers...)
	t.mu.Unlock()
	for _, fn := range observers {
		fn(rec)
	}
}

// Len returns the number of records.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Index returns the cursor position.
func (t *Tracker) Index() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index
}

// Records returns every record, active or not.
func (t *Tracker) Records() []*Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Record(nil), t.records...)
}

// ActiveCount returns how many records are still flagged.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, r := range t.records {
		if r.Active {
			n++
		}
	}
	return n
}

// Current returns the record under the cursor.
func (t *Tracker) Current() (*Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.records) == 0 {
		return nil, false
	}
	return t.records[t.index], true
}

// Next moves the cursor forward. It is a no-op on the last record.
func (t *Tracker) Next() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.index >= len(t.records)-1 {
		return false
	}
	t.index++
	return true
}

// Previous moves the cursor back. It is a no-op on the first record.
func (t *Tracker) Previous() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.index <= 0 {
		return false
	}
	t.index--
	return true
}

// Goto moves the cursor to i when it is in range.
func (t *Tracker) Goto(i int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.records) {
		return false
	}
	t.index = i
	return true
}

// AcceptAndIgnore dismisses a violation without touching the workbook.
func (t *Tracker) AcceptAndIgnore(rec *Record) {
	if rec == nil {
		return
	}
	t.mu.Lock()
	rec.Active = false
	t.mu.Unlock()

	t.log.Info().Str("sheet", rec.Sheet).Int("row", rec.Row).Str("rsbsa", rec.ID.String()).Msg("farm area accepted")
	t.notify(rec)
}

// ClearHighlight removes the violation fill from the record's farm-area cell
// in the RFFA workbook and saves it. The record is deactivated only when the
// save succeeds.
func (t *Tracker) ClearHighlight(rec *Record) error {
	if rec == nil {
		return apperrors.Validation("no record selected")
	}
	if t.primaryPath == "" {
		return apperrors.New(apperrors.CodeSourceMissing, "the RFFA file for this run is not known")
	}

	wb, err := spreadsheet.Open(t.primaryPath, t.log)
	if err != nil {
		return utils.ClassifyFileError(t.primaryPath, err)
	}
	defer wb.Close()

	if !wb.HasSheet(rec.Sheet) {
		return apperrors.Newf(apperrors.CodeSheetNotFound, "sheet '%s' was not found in the RFFA file", rec.Sheet)
	}

	header, err := wb.Header(rec.Sheet)
	if err != nil {
		return utils.ClassifyFileError(t.primaryPath, err)
	}
	col, _ := columns.Resolve(header, t.cfg.Columns.FarmAreaAliases)
	if col == columns.NotFound {
		return apperrors.Newf(apperrors.CodeValidation, "no farm area column found in sheet '%s'", rec.Sheet)
	}

	if err := wb.ClearFill(rec.Sheet, rec.Row, col); err != nil {
		return fmt.Errorf("failed to clear highlight: %w", err)
	}
	if err := wb.Save(); err != nil {
		return utils.ClassifyFileError(t.primaryPath, err)
	}

	t.mu.Lock()
	rec.Active = false
	t.mu.Unlock()

	t.log.Info().Str("sheet", rec.Sheet).Int("row", rec.Row).Str("rsbsa", rec.ID.String()).Msg("farm area highlight cleared")
	t.notify(rec)
	return nil
}
