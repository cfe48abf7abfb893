package spreadsheet

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// solidPattern is excelize's pattern index for a solid fill.
const solidPattern = 1

// styleKey identifies a derived style: the cell's existing style plus the
// change applied on top of it.
type styleKey struct {
	base   int
	fill   string
	bold   bool
	numFmt string
}

// styleCache maps derived styles to style ids so repeated highlighting of
// the same kind of cell reuses one xf record.
type styleCache struct {
	ids map[styleKey]int
}

func newStyleCache() *styleCache {
	return &styleCache{ids: make(map[styleKey]int)}
}

// derive returns the id of base's style with mutate applied.
func (w *Workbook) derive(key styleKey, mutate func(*excelize.Style)) (int, error) {
	if id, ok := w.styles.ids[key]; ok {
		return id, nil
	}
	style, err := w.file.GetStyle(key.base)
	if err != nil || style == nil {
		style = &excelize.Style{}
	}
	mutate(style)
	id, err := w.file.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("failed to create style: %w", err)
	}
	w.styles.ids[key] = id
	return id, nil
}

// restyle applies a derived style to every cell of a row span. Cells whose
// current style already satisfies applied keep their style id, so repeating
// an operation adds no xf records, even after the workbook is reopened.
func (w *Workbook) restyle(sheet string, row, fromCol, toCol int, key styleKey, applied func(*excelize.Style) bool, mutate func(*excelize.Style)) error {
	for col := fromCol; col <= toCol; col++ {
		ref, err := CellRef(row, col)
		if err != nil {
			return err
		}
		base, err := w.file.GetCellStyle(sheet, ref)
		if err != nil {
			return fmt.Errorf("failed to read style of %s!%s: %w", sheet, ref, err)
		}
		if current, err := w.file.GetStyle(base); err == nil && current != nil && applied(current) {
			continue
		}
		key.base = base
		id, err := w.derive(key, mutate)
		if err != nil {
			return err
		}
		if id == base {
			continue
		}
		if err := w.file.SetCellStyle(sheet, ref, ref, id); err != nil {
			return fmt.Errorf("failed to style %s!%s: %w", sheet, ref, err)
		}
	}
	return nil
}

// SetFill paints cells fromCol..toCol of row with a solid RGB fill. Other
// formatting of each cell is kept. Applying the same fill twice leaves the
// cell unchanged.
func (w *Workbook) SetFill(sheet string, row, fromCol, toCol int, rgb string) error {
	color := normalizeColor(rgb)
	return w.restyle(sheet, row, fromCol, toCol, styleKey{fill: color}, func(s *excelize.Style) bool {
		return hasSolidFill(s, color)
	}, func(s *excelize.Style) {
		s.Fill = excelize.Fill{Type: "pattern", Pattern: solidPattern, Color: []string{color}}
	})
}

// ClearFill removes any fill from one cell.
func (w *Workbook) ClearFill(sheet string, row, col int) error {
	return w.restyle(sheet, row, col, col, styleKey{fill: "none"}, func(s *excelize.Style) bool {
		return s.Fill.Type == "" || (s.Fill.Type == "pattern" && s.Fill.Pattern == 0)
	}, func(s *excelize.Style) {
		s.Fill = excelize.Fill{}
	})
}

// hasSolidFill reports whether s is a solid fill of the normalized colour.
func hasSolidFill(s *excelize.Style, color string) bool {
	return s.Fill.Type == "pattern" && s.Fill.Pattern == solidPattern &&
		len(s.Fill.Color) > 0 && normalizeColor(s.Fill.Color[0]) == color
}

// HasFill reports whether a cell carries a solid fill.
func (w *Workbook) HasFill(sheet string, row, col int) (bool, error) {
	ref, err := CellRef(row, col)
	if err != nil {
		return false, err
	}
	id, err := w.file.GetCellStyle(sheet, ref)
	if err != nil {
		return false, fmt.Errorf("failed to read style of %s!%s: %w", sheet, ref, err)
	}
	if id == 0 {
		return false, nil
	}
	style, err := w.file.GetStyle(id)
	if err != nil || style == nil {
		return false, nil
	}
	return style.Fill.Type == "pattern" && style.Fill.Pattern == solidPattern, nil
}

// FillColor returns the RGB of a cell's solid fill, or "" when it has none.
func (w *Workbook) FillColor(sheet string, row, col int) (string, error) {
	filled, err := w.HasFill(sheet, row, col)
	if err != nil || !filled {
		return "", err
	}
	ref, _ := CellRef(row, col)
	id, _ := w.file.GetCellStyle(sheet, ref)
	style, err := w.file.GetStyle(id)
	if err != nil || style == nil || len(style.Fill.Color) == 0 {
		return "", nil
	}
	return normalizeColor(style.Fill.Color[0]), nil
}

// RowHasFill reports whether any of the first width cells of row is filled.
func (w *Workbook) RowHasFill(sheet string, row, width int) (bool, error) {
	for col := 1; col <= width; col++ {
		filled, err := w.HasFill(sheet, row, col)
		if err != nil {
			return false, err
		}
		if filled {
			return true, nil
		}
	}
	return false, nil
}

// StyleHeader makes cells 1..cols of row 1 bold with a solid fill.
func (w *Workbook) StyleHeader(sheet string, cols int, rgb string) error {
	if cols < 1 {
		return nil
	}
	color := normalizeColor(rgb)
	return w.restyle(sheet, 1, 1, cols, styleKey{fill: color, bold: true}, func(s *excelize.Style) bool {
		return s.Font != nil && s.Font.Bold && hasSolidFill(s, color)
	}, func(s *excelize.Style) {
		font := excelize.Font{Bold: true}
		if s.Font != nil {
			font = *s.Font
			font.Bold = true
		}
		s.Font = &font
		s.Fill = excelize.Fill{Type: "pattern", Pattern: solidPattern, Color: []string{color}}
	})
}

// SetNumberFormat applies a custom number format such as "0.00" to a cell.
func (w *Workbook) SetNumberFormat(sheet string, row, col int, format string) error {
	return w.restyle(sheet, row, col, col, styleKey{numFmt: format}, func(s *excelize.Style) bool {
		return s.CustomNumFmt != nil && *s.CustomNumFmt == format
	}, func(s *excelize.Style) {
		f := format
		s.CustomNumFmt = &f
	})
}

// normalizeColor upper-cases an RGB hex colour and strips '#' and an alpha
// prefix.
func normalizeColor(rgb string) string {
	c := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(rgb), "#"))
	if len(c) == 8 {
		c = c[2:]
	}
	return c
}
