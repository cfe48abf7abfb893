package reconcile

import (
	"time"

	"github.com/ginjaninja78/rffa-reconciler/internal/types"
	"github.com/ginjaninja78/rffa-reconciler/internal/validation"
	"github.com/ginjaninja78/rffa-reconciler/pkg/utils"
	"github.com/hashicorp/go-set/v2"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result is the outcome of one reconciliation run.
type Result struct {
	// TotalDuplicates is the sum of the per-sheet duplicate counts. An
	// identifier that is a duplicate on two sheets counts twice.
	TotalDuplicates int

	// TotalNonDuplicates is the sum of the per-sheet non-duplicate counts.
	TotalNonDuplicates int

	// NonDuplicatesBySheet holds the non-duplicate identifiers of each
	// processed sheet in row order. Sheets without any are absent.
	NonDuplicatesBySheet map[string][]string

	// SheetOrder lists the processed sheets in processing order. Skipped
	// sheets are absent.
	SheetOrder []string

	// DuplicateList holds every duplicate identifier once, first-seen order.
	DuplicateList []types.Identifier

	// InvalidFarmAreas holds the farm-area violations of every sheet.
	InvalidFarmAreas []*validation.Record

	// SecondaryHighlighted is the number of IMP Top-up rows that were
	// filled. It can differ from len(DuplicateList).
	SecondaryHighlighted int

	// SaveLocation is the directory of the RFFA file; reports default to it.
	SaveLocation string

	// DuplicatesSheet is the name of the sheet added to the RFFA workbook.
	DuplicatesSheet string

	// DuplicatesHeader maps the Duplicates header names to their columns.
	DuplicatesHeader map[string]int

	// Backups lists the backup copies that were written.
	Backups []string

	// Sheets holds the per-sheet figures in processing order.
	Sheets []SheetStats

	// StartTime is when the run began; Duration is its wall time.
	StartTime time.Time
	Duration  time.Duration
}

// SheetStats are the figures of one processed sheet.
type SheetStats struct {
	Name             string
	Duplicates       []types.Identifier
	NonDuplicates    []types.Identifier
	InvalidFarmAreas []*validation.Record
}

func newResult(saveLocation string) *Result {
	return &Result{
		NonDuplicatesBySheet: make(map[string][]string),
		SaveLocation:         saveLocation,
	}
}

// addSheet folds one sheet's figures into the totals. seen tracks the
// identifiers already in DuplicateList.
func (r *Result) addSheet(s SheetStats, seen *set.Set[types.Identifier]) {
	r.Sheets = append(r.Sheets, s)
	r.SheetOrder = append(r.SheetOrder, s.Name)
	r.TotalDuplicates += len(s.Duplicates)
	r.TotalNonDuplicates += len(s.NonDuplicates)

	if len(s.NonDuplicates) > 0 {
		ids := make([]string, len(s.NonDuplicates))
		for i, id := range s.NonDuplicates {
			ids[i] = id.String()
		}
		r.NonDuplicatesBySheet[s.Name] = ids
	}

	for _, id := range s.Duplicates {
		if seen.Insert(id) {
			r.DuplicateList = append(r.DuplicateList, id)
		}
	}
	r.InvalidFarmAreas = append(r.InvalidFarmAreas, s.InvalidFarmAreas...)
}

// TotalEndorsed is the number of duplicates that passed farm-area
// validation, as shown in the run summary.
func (r *Result) TotalEndorsed() int {
	return max(r.TotalDuplicates-len(r.InvalidFarmAreas), 0)
}

// Summary converts the result into the run summary written by
// utils.WriteSummaryLog.
func (r *Result) Summary(req Request) utils.RunSummary {
	s := utils.RunSummary{
		StartTime:            r.StartTime,
		EndTime:              r.StartTime.Add(r.Duration),
		PrimaryFile:          req.PrimaryPath,
		SecondaryFile:        req.SecondaryPath,
		TotalDuplicates:      r.TotalDuplicates,
		TotalNonDuplicates:   r.TotalNonDuplicates,
		UniqueDuplicates:     len(r.DuplicateList),
		InvalidFarmAreas:     len(r.InvalidFarmAreas),
		TotalEndorsed:        r.TotalEndorsed(),
		SecondaryHighlighted: r.SecondaryHighlighted,
		BackupCreated:        len(r.Backups) > 0,
	}
	for _, sheet := range r.Sheets {
		s.Sheets = append(s.Sheets, utils.SheetSummary{
			Name:          sheet.Name,
			Duplicates:    len(sheet.Duplicates),
			NonDuplicates: len(sheet.NonDuplicates),
		})
	}
	return s
}
