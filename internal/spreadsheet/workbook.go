// =============================================================================
// RFFA Reconciler - Spreadsheet Access Adapter
// =============================================================================
//
// This module is the only place that talks to excelize. The engine sees a
// narrow contract:
//   - open / create / save / save-as / close a workbook
//   - enumerate worksheets and their visibility
//   - read and write cell values by 1-based (row, column)
//   - apply, clear and query a solid fill on a cell range
//   - add a worksheet under a unique name, move a worksheet to the front
//
// COORDINATES:
//   Rows and columns are 1-based everywhere, matching what the operator
//   sees in Excel. Conversion to "A1" references happens here.
//
// VALUES:
//   Cells are read raw (no number formatting applied), so a farm area of
//   1.5 stored with a "0.00" format reads back as "1.5" and a numeric
//   RSBSA number reads back without exponent notation.
//
// =============================================================================

package spreadsheet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/rffa-reconciler/internal/types"
	"github.com/hashicorp/go-set/v2"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
)

// MaxSheetNameLength is the worksheet name limit imposed by Excel.
const MaxSheetNameLength = 31

// =============================================================================
// WORKBOOK
// =============================================================================

// Workbook is an open xlsx file.
type Workbook struct {
	path   string
	file   *excelize.File
	styles *styleCache
	log    zerolog.Logger
}

// Open opens an existing workbook. The caller must Close it.
//
// PARAMETERS:
//   - path: The .xlsx file to open.
//   - log: Receives warning-level notes (e.g. unreadable visibility).
//
// RETURNS:
//   - The workbook.
//   - An error wrapping the OS error if the file cannot be opened.
func Open(path string, log zerolog.Logger) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	return &Workbook{path: path, file: f, styles: newStyleCache(), log: log}, nil
}

// New creates an empty in-memory workbook that will be written to path.
// excelize seeds it with a single "Sheet1".
func New(path string, log zerolog.Logger) *Workbook {
	return &Workbook{path: path, file: excelize.NewFile(), styles: newStyleCache(), log: log}
}

// Path returns the file the workbook was opened from or will be saved to.
func (w *Workbook) Path() string {
	return w.path
}

// Close releases the workbook's resources.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// Save writes the workbook back to its own path.
func (w *Workbook) Save() error {
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", w.path, err)
	}
	return nil
}

// SaveAs writes the workbook to path without changing Path().
func (w *Workbook) SaveAs(path string) error {
	if err := w.file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// WORKSHEETS
// =============================================================================

// Sheets lists every worksheet in workbook order. A sheet whose visibility
// cannot be read is reported visible.
func (w *Workbook) Sheets() []types.SheetInfo {
	names := w.file.GetSheetList()
	sheets := make([]types.SheetInfo, 0, len(names))
	for _, name := range names {
		visible, err := w.file.GetSheetVisible(name)
		if err != nil {
			w.log.Warn().Err(err).Str("sheet", name).Msg("could not read sheet visibility, assuming visible")
			visible = true
		}
		sheets = append(sheets, types.SheetInfo{Name: name, Visible: visible})
	}
	return sheets
}

// SheetNames lists worksheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// FirstSheet returns the name of the first worksheet, or "" for a workbook
// without sheets.
func (w *Workbook) FirstSheet() string {
	names := w.file.GetSheetList()
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// HasSheet reports whether a worksheet with exactly this name exists.
func (w *Workbook) HasSheet(name string) bool {
	for _, existing := range w.file.GetSheetList() {
		if existing == name {
			return true
		}
	}
	return false
}

// AddSheet creates a worksheet. The name must not already exist.
func (w *Workbook) AddSheet(name string) error {
	if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("failed to add sheet %q: %w", name, err)
	}
	return nil
}

// RenameSheet renames a worksheet.
func (w *Workbook) RenameSheet(from, to string) error {
	if err := w.file.SetSheetName(from, to); err != nil {
		return fmt.Errorf("failed to rename sheet %q to %q: %w", from, to, err)
	}
	return nil
}

// UniqueSheetName returns base if no worksheet has that name (ignoring
// case), otherwise base+sep+N for the smallest N >= 1 that is free.
func (w *Workbook) UniqueSheetName(base, sep string) string {
	fold := cases.Fold()
	taken := set.New[string](len(w.file.GetSheetList()))
	for _, name := range w.file.GetSheetList() {
		taken.Insert(fold.String(name))
	}

	base = truncateSheetName(base, 0)
	if !taken.Contains(fold.String(base)) {
		return base
	}
	for n := 1; ; n++ {
		suffix := sep + strconv.Itoa(n)
		candidate := truncateSheetName(base, len(suffix)) + suffix
		if !taken.Contains(fold.String(candidate)) {
			return candidate
		}
	}
}

// MoveToFront makes name the first worksheet and the active one.
func (w *Workbook) MoveToFront(name string) error {
	first := w.FirstSheet()
	if first == "" || first == name {
		return nil
	}
	if err := w.file.MoveSheet(name, first); err != nil {
		return fmt.Errorf("failed to move sheet %q to the front: %w", name, err)
	}
	w.file.SetActiveSheet(0)
	return nil
}

// DeleteSheet removes a worksheet.
func (w *Workbook) DeleteSheet(name string) error {
	if err := w.file.DeleteSheet(name); err != nil {
		return fmt.Errorf("failed to delete sheet %q: %w", name, err)
	}
	return nil
}

// =============================================================================
// CELL VALUES
// =============================================================================

// Rows returns the raw cell text of a worksheet, one slice per row, starting
// at row 1. Trailing empty cells of each row are omitted by excelize.
func (w *Workbook) Rows(sheet string) ([][]string, error) {
	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// Header returns the trimmed text of row 1.
func (w *Workbook) Header(sheet string) ([]string, error) {
	rows, err := w.Rows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = strings.TrimSpace(cell)
	}
	return header, nil
}

// Dimensions returns the used extent of a worksheet: the last row and the
// widest row that hold a value.
func (w *Workbook) Dimensions(sheet string) (rows, cols int, err error) {
	grid, err := w.Rows(sheet)
	if err != nil {
		return 0, 0, err
	}
	rows, cols = GridDimensions(grid)
	return rows, cols, nil
}

// GridDimensions returns the extent of an already-read grid.
func GridDimensions(grid [][]string) (rows, cols int) {
	rows = len(grid)
	for _, row := range grid {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return rows, cols
}

// CellValue returns the raw text of one cell.
func (w *Workbook) CellValue(sheet string, row, col int) (string, error) {
	ref, err := CellRef(row, col)
	if err != nil {
		return "", err
	}
	v, err := w.file.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		return "", fmt.Errorf("failed to read %s!%s: %w", sheet, ref, err)
	}
	return v, nil
}

// SetCellValue writes a value. Numbers, bools and strings keep their type.
func (w *Workbook) SetCellValue(sheet string, row, col int, value any) error {
	ref, err := CellRef(row, col)
	if err != nil {
		return err
	}
	if err := w.file.SetCellValue(sheet, ref, value); err != nil {
		return fmt.Errorf("failed to write %s!%s: %w", sheet, ref, err)
	}
	return nil
}

// SetRow writes values into a row starting at column 1.
func (w *Workbook) SetRow(sheet string, row int, values []any) error {
	ref, err := CellRef(row, 1)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(sheet, ref, &values); err != nil {
		return fmt.Errorf("failed to write row %d of sheet %q: %w", row, sheet, err)
	}
	return nil
}

// TypedValue returns the cell as a Go value suitable for SetCellValue on
// another sheet: float64 for numbers, bool for booleans, string otherwise,
// nil for an empty cell.
func (w *Workbook) TypedValue(sheet string, row, col int) (any, error) {
	ref, err := CellRef(row, col)
	if err != nil {
		return nil, err
	}
	raw, err := w.file.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s!%s: %w", sheet, ref, err)
	}
	if raw == "" {
		return nil, nil
	}
	cellType, err := w.file.GetCellType(sheet, ref)
	if err != nil {
		return raw, nil
	}
	switch cellType {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "TRUE"), nil
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f, nil
		}
	}
	return raw, nil
}

// CopyRow copies the first width cells of srcRow in srcSheet to dstRow of
// dstSheet in dst, which may be the same workbook. Values keep their type;
// styles are not copied.
func (w *Workbook) CopyRow(srcSheet string, srcRow int, dst *Workbook, dstSheet string, dstRow, width int) error {
	for col := 1; col <= width; col++ {
		v, err := w.TypedValue(srcSheet, srcRow, col)
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}
		if err := dst.SetCellValue(dstSheet, dstRow, col, v); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// LAYOUT
// =============================================================================

// SetColumnWidths sets the width of columns 1..len(widths).
func (w *Workbook) SetColumnWidths(sheet string, widths []float64) error {
	for i, width := range widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := w.file.SetColWidth(sheet, name, name, width); err != nil {
			return fmt.Errorf("failed to set width of column %s: %w", name, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// CellRef converts 1-based (row, col) to an "A1" reference.
func CellRef(row, col int) (string, error) {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", fmt.Errorf("invalid cell coordinates (%d, %d): %w", row, col, err)
	}
	return ref, nil
}

// ColumnName converts a 1-based column number to its letter, e.g. 2 to "B".
func ColumnName(col int) (string, error) {
	return excelize.ColumnNumberToName(col)
}

// SanitizeSheetName replaces characters Excel forbids in sheet names with
// '_' and trims the result to the length limit. An empty result becomes
// "Sheet".
func SanitizeSheetName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, "'")
	if name == "" {
		return "Sheet"
	}
	return truncateSheetName(name, 0)
}

func truncateSheetName(name string, reserve int) string {
	limit := MaxSheetNameLength - reserve
	runes := []rune(name)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return name
}
