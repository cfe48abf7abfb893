package spreadsheet

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestWorkbook(t *testing.T) (*Workbook, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.xlsx")
	wb := New(path, zerolog.Nop())
	t.Cleanup(func() { _ = wb.Close() })
	return wb, path
}

func TestSheetsReportsVisibility(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vis.xlsx")
	f := excelize.NewFile()
	_, err := f.NewSheet("Hidden")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetVisible("Hidden", false))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	wb, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer wb.Close()

	sheets := wb.Sheets()
	require.Len(t, sheets, 2)
	assert.Equal(t, "Sheet1", sheets[0].Name)
	assert.True(t, sheets[0].Visible)
	assert.Equal(t, "Hidden", sheets[1].Name)
	assert.False(t, sheets[1].Visible)
}

func TestUniqueSheetName(t *testing.T) {
	wb, _ := newTestWorkbook(t)

	assert.Equal(t, "Duplicates", wb.UniqueSheetName("Duplicates", "_"))

	require.NoError(t, wb.AddSheet("duplicates"))
	assert.Equal(t, "Duplicates_1", wb.UniqueSheetName("Duplicates", "_"))

	require.NoError(t, wb.AddSheet("Duplicates_1"))
	assert.Equal(t, "Duplicates_2", wb.UniqueSheetName("Duplicates", "_"))
}

func TestUniqueSheetNameRespectsLengthLimit(t *testing.T) {
	wb, _ := newTestWorkbook(t)
	long := "SAN JOSE DE BUENAVISTA MUNICIPALITY"
	first := wb.UniqueSheetName(long, "_")
	assert.Len(t, []rune(first), MaxSheetNameLength)

	require.NoError(t, wb.AddSheet(first))
	second := wb.UniqueSheetName(long, "_")
	assert.Len(t, []rune(second), MaxSheetNameLength)
	assert.Equal(t, "_1", second[len(second)-2:])
}

func TestSanitizeSheetName(t *testing.T) {
	assert.Equal(t, "Naga_City", SanitizeSheetName(" Naga/City "))
	assert.Equal(t, "Sheet", SanitizeSheetName("   "))
	assert.Equal(t, "a_b_c_", SanitizeSheetName("a[b]c?"))
}

func TestCellValuesAndCopyRow(t *testing.T) {
	wb, _ := newTestWorkbook(t)
	require.NoError(t, wb.SetRow("Sheet1", 1, []any{"RSBSA NUMBER", "AREA", "ACTIVE"}))
	require.NoError(t, wb.SetRow("Sheet1", 2, []any{"05-17-01", 1.5, true}))
	require.NoError(t, wb.AddSheet("Copy"))

	require.NoError(t, wb.CopyRow("Sheet1", 2, wb, "Copy", 3, 3))

	v, err := wb.TypedValue("Copy", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)

	s, err := wb.CellValue("Copy", 3, 1)
	require.NoError(t, err)
	assert.Equal(t, "05-17-01", s)

	b, err := wb.TypedValue("Copy", 3, 3)
	require.NoError(t, err)
	assert.Equal(t, true, b)

	rows, cols, err := wb.Dimensions("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)

	header, err := wb.Header("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, []string{"RSBSA NUMBER", "AREA", "ACTIVE"}, header)
}

func TestSetFillIsIdempotentAndKeepsFormat(t *testing.T) {
	wb, path := newTestWorkbook(t)
	require.NoError(t, wb.SetCellValue("Sheet1", 1, 1, 1.25))
	require.NoError(t, wb.SetNumberFormat("Sheet1", 1, 1, "0.00"))

	require.NoError(t, wb.SetFill("Sheet1", 1, 1, 3, "77dfd8"))
	ref, _ := CellRef(1, 1)
	firstID, err := wb.file.GetCellStyle("Sheet1", ref)
	require.NoError(t, err)

	require.NoError(t, wb.SetFill("Sheet1", 1, 1, 3, "#77DFD8"))
	secondID, err := wb.file.GetCellStyle("Sheet1", ref)
	require.NoError(t, err)
	assert.Equal(t, firstID, secondID)

	style, err := wb.file.GetStyle(secondID)
	require.NoError(t, err)
	require.NotNil(t, style.CustomNumFmt)
	assert.Equal(t, "0.00", *style.CustomNumFmt)

	require.NoError(t, wb.Save())
	reopened, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	for col := 1; col <= 3; col++ {
		filled, err := reopened.HasFill("Sheet1", 1, col)
		require.NoError(t, err)
		assert.True(t, filled, "column %d", col)
	}
	filled, err := reopened.HasFill("Sheet1", 1, 4)
	require.NoError(t, err)
	assert.False(t, filled)

	color, err := reopened.FillColor("Sheet1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "77DFD8", color)
}

func TestSetFillAcrossSavesKeepsStyleID(t *testing.T) {
	wb, path := newTestWorkbook(t)
	require.NoError(t, wb.SetCellValue("Sheet1", 2, 1, "A100"))
	require.NoError(t, wb.StyleHeader("Sheet1", 2, "D3D3D3"))
	require.NoError(t, wb.Save())

	ref, _ := CellRef(2, 1)
	headerRef, _ := CellRef(1, 1)
	var ids, headerIDs []int
	for n := 0; n < 4; n++ {
		reopened, err := Open(path, zerolog.Nop())
		require.NoError(t, err)
		require.NoError(t, reopened.SetFill("Sheet1", 2, 1, 1, "77DFD8"))
		require.NoError(t, reopened.StyleHeader("Sheet1", 2, "D3D3D3"))
		require.NoError(t, reopened.Save())

		id, err := reopened.file.GetCellStyle("Sheet1", ref)
		require.NoError(t, err)
		headerID, err := reopened.file.GetCellStyle("Sheet1", headerRef)
		require.NoError(t, err)
		ids = append(ids, id)
		headerIDs = append(headerIDs, headerID)
		require.NoError(t, reopened.Close())
	}

	assert.Equal(t, []int{ids[0], ids[0], ids[0], ids[0]}, ids)
	assert.Equal(t, []int{headerIDs[0], headerIDs[0], headerIDs[0], headerIDs[0]}, headerIDs)
}

func TestClearFillAndRowHasFill(t *testing.T) {
	wb, _ := newTestWorkbook(t)
	require.NoError(t, wb.SetCellValue("Sheet1", 2, 4, "x"))
	require.NoError(t, wb.SetFill("Sheet1", 2, 4, 4, "FF9999"))

	hit, err := wb.RowHasFill("Sheet1", 2, 5)
	require.NoError(t, err)
	assert.True(t, hit)

	hit, err = wb.RowHasFill("Sheet1", 2, 3)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, wb.ClearFill("Sheet1", 2, 4))
	filled, err := wb.HasFill("Sheet1", 2, 4)
	require.NoError(t, err)
	assert.False(t, filled)

	v, err := wb.CellValue("Sheet1", 2, 4)
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestStyleHeaderAndMoveToFront(t *testing.T) {
	wb, _ := newTestWorkbook(t)
	require.NoError(t, wb.SetRow("Sheet1", 1, []any{"A", "B"}))
	require.NoError(t, wb.StyleHeader("Sheet1", 2, "D3D3D3"))

	ref, _ := CellRef(1, 2)
	id, err := wb.file.GetCellStyle("Sheet1", ref)
	require.NoError(t, err)
	style, err := wb.file.GetStyle(id)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)

	require.NoError(t, wb.AddSheet("Metadata"))
	require.NoError(t, wb.MoveToFront("Metadata"))
	assert.Equal(t, []string{"Metadata", "Sheet1"}, wb.SheetNames())
	assert.Equal(t, "Metadata", wb.FirstSheet())
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.xlsx"), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open workbook")
}
