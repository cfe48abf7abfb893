package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ginjaninja78/rffa-reconciler/internal/apperrors"
	"github.com/ginjaninja78/rffa-reconciler/internal/config"
	"github.com/ginjaninja78/rffa-reconciler/internal/spreadsheet"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sheetData struct {
	name  string
	rows  [][]any
	fills []int
}

func writeWorkbook(t *testing.T, path string, sheets ...sheetData) {
	t.Helper()
	wb := spreadsheet.New(path, zerolog.Nop())
	defer wb.Close()

	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, wb.RenameSheet(wb.FirstSheet(), s.name))
		} else {
			require.NoError(t, wb.AddSheet(s.name))
		}
		for r, row := range s.rows {
			require.NoError(t, wb.SetRow(s.name, r+1, row))
		}
		for _, row := range s.fills {
			require.NoError(t, wb.SetFill(s.name, row, 1, 3, "FFF9AC"))
		}
	}
	require.NoError(t, wb.Save())
}

type fixture struct {
	dir       string
	primary   string
	secondary string
}

func newFixture(t *testing.T) fixture {
	dir := t.TempDir()
	f := fixture{
		dir:       dir,
		primary:   filepath.Join(dir, "RFFA.xlsx"),
		secondary: filepath.Join(dir, "IMP_Topup.xlsx"),
	}
	writeWorkbook(t, f.primary,
		sheetData{name: "Sheet1", rows: [][]any{{"NO", "RSBSA NUMBER"}, {1, "A100"}, {2, "A200"}, {3, "A101"}}},
		sheetData{name: "Duplicates", rows: [][]any{{"NO", "RSBSA NUMBER"}, {1, "A100"}, {3, " A101 "}}},
	)
	writeWorkbook(t, f.secondary,
		sheetData{name: "Topup", rows: [][]any{
			{"RSBSA", "NAME", "AMOUNT"},
			{"A100", "Alpha", 5000},
			{"A101", "Beta", 5000},
			{"A101", "Beta again", 5000},
			{"B500", "Gamma", 5000},
		}},
	)
	return f
}

func newExporter() *Exporter {
	e := New(config.Default(), zerolog.Nop())
	e.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local) }
	return e
}

func TestValidateRejectsNonNumericBatch(t *testing.T) {
	f := newFixture(t)
	req := Request{
		BatchNumber:   "abc",
		Province:      "Camarines Sur",
		Municipality:  "Magarao",
		PrimaryPath:   f.primary,
		SecondaryPath: f.secondary,
		OutputDir:     filepath.Join(f.dir, "out"),
	}

	_, err := req.Validate()
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = newExporter().Export(context.Background(), req)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	_, statErr := os.Stat(filepath.Join(f.dir, "out"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestValidateModes(t *testing.T) {
	f := newFixture(t)

	_, err := Request{BatchNumber: "1", Province: "P", PrimaryPath: f.primary, SecondaryPath: f.secondary}.Validate()
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation), "municipality is always required")

	_, err = Request{BatchNumber: "1", Municipality: "M", PrimaryPath: f.primary, SecondaryPath: f.secondary}.Validate()
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation), "province is required in create mode")

	mode, err := Request{Municipality: "M", ExistingReportPath: f.secondary, PrimaryPath: f.primary, SecondaryPath: f.secondary}.Validate()
	require.NoError(t, err)
	assert.Equal(t, ModeUpdate, mode)

	_, err = Request{Municipality: "M", ExistingReportPath: filepath.Join(f.dir, "gone.xlsx"), PrimaryPath: f.primary, SecondaryPath: f.secondary}.Validate()
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation), "a missing report falls back to create mode")

	unreadable := filepath.Join(f.secondary, "report.xlsx")
	mode, err = Request{Municipality: "M", BatchNumber: "2", Province: "P", ExistingReportPath: unreadable, PrimaryPath: f.primary, SecondaryPath: f.secondary}.Validate()
	require.NoError(t, err)
	assert.Equal(t, ModeCreate, mode, "a report path that cannot be stat'ed is not an existing report")
}

func TestExportCreatesReport(t *testing.T) {
	f := newFixture(t)
	out, err := newExporter().Export(context.Background(), Request{
		BatchNumber:   "7",
		Province:      "Camarines/Sur",
		Municipality:  "Magarao",
		PrimaryPath:   f.primary,
		SecondaryPath: f.secondary,
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.dir, "BATCH_7_Camarines_Sur.xlsx"), out.Path)
	assert.Equal(t, "Magarao", out.Sheet)
	assert.Equal(t, 2, out.Records)
	assert.Equal(t, ModeCreate, out.Mode)

	wb, err := spreadsheet.Open(out.Path, zerolog.Nop())
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Metadata", "Magarao"}, wb.SheetNames())

	meta, err := wb.Rows("Metadata")
	require.NoError(t, err)
	require.Len(t, meta, 2)
	assert.Equal(t, []string{"Sheet Name", "Municipality", "Province", "Batch Number", "Export Date", "Record Count"}, meta[0])
	assert.Equal(t, []string{"Magarao", "Magarao", "Camarines/Sur", "7", "2024-05-01 09:30:00", "2"}, meta[1])

	data, err := wb.Rows("Magarao")
	require.NoError(t, err)
	require.Len(t, data, 3)
	assert.Equal(t, []string{"RSBSA", "NAME", "AMOUNT"}, data[0])
	assert.Equal(t, []string{"A100", "Alpha", "5000"}, data[1])
	assert.Equal(t, []string{"A101", "Beta", "5000"}, data[2])

	amount, err := wb.TypedValue("Magarao", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, amount)

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "temp_")
	}
}

func TestExportUpdateAppendsMetadata(t *testing.T) {
	f := newFixture(t)
	e := newExporter()
	first, err := e.Export(context.Background(), Request{
		BatchNumber:   "3",
		Province:      "Camarines Sur",
		Municipality:  "Magarao",
		PrimaryPath:   f.primary,
		SecondaryPath: f.secondary,
	})
	require.NoError(t, err)

	second, err := e.Export(context.Background(), Request{
		Municipality:       "Magarao",
		ExistingReportPath: first.Path,
		PrimaryPath:        f.primary,
		SecondaryPath:      f.secondary,
	})
	require.NoError(t, err)

	assert.Equal(t, ModeUpdate, second.Mode)
	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, "Magarao_1", second.Sheet)
	assert.Equal(t, 2, second.Records, "dedup is scoped to one call")

	wb, err := spreadsheet.Open(first.Path, zerolog.Nop())
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Metadata", "Magarao", "Magarao_1"}, wb.SheetNames())
	meta, err := wb.Rows("Metadata")
	require.NoError(t, err)
	require.Len(t, meta, 3)
	assert.Equal(t, "Magarao", meta[1][0])
	assert.Equal(t, "Magarao_1", meta[2][0])
	assert.Equal(t, "2", meta[2][5])
}

func TestExportUpdateRefusesLockedReport(t *testing.T) {
	f := newFixture(t)
	report := filepath.Join(f.dir, "report.xlsx")
	writeWorkbook(t, report, sheetData{name: "Metadata"})
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "~$report.xlsx"), []byte("owner"), 0644))

	_, err := newExporter().Export(context.Background(), Request{
		Municipality:       "Magarao",
		ExistingReportPath: report,
		PrimaryPath:        f.primary,
		SecondaryPath:      f.secondary,
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeFileLocked))
}

func TestExportFallsBackToHighlightedRows(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "RFFA.xlsx")
	secondary := filepath.Join(dir, "IMP.xlsx")
	writeWorkbook(t, primary,
		sheetData{
			name:  "Sheet1",
			rows:  [][]any{{"NO", "RSBSA NUMBER"}, {1, "A100"}, {2, "A101"}, {3, "B500"}},
			fills: []int{3},
		},
	)
	writeWorkbook(t, secondary,
		sheetData{name: "Sheet1", rows: [][]any{{"RSBSA"}, {"A100"}, {"A101"}, {"B500"}}},
	)

	out, err := newExporter().Export(context.Background(), Request{
		BatchNumber:   "1",
		Province:      "P",
		Municipality:  "M",
		PrimaryPath:   primary,
		SecondaryPath: secondary,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Records)

	wb, err := spreadsheet.Open(out.Path, zerolog.Nop())
	require.NoError(t, err)
	defer wb.Close()
	id, err := wb.CellValue("M", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, "A101", id)
}

func TestExportSourceErrors(t *testing.T) {
	f := newFixture(t)
	req := Request{
		BatchNumber:   "1",
		Province:      "P",
		Municipality:  "M",
		PrimaryPath:   f.primary,
		SecondaryPath: filepath.Join(f.dir, "missing.xlsx"),
	}
	_, err := newExporter().Export(context.Background(), req)
	assert.True(t, apperrors.Is(err, apperrors.CodeSourceMissing))

	empty := filepath.Join(f.dir, "empty.xlsx")
	writeWorkbook(t, empty, sheetData{name: "Sheet1"})
	req.SecondaryPath = empty
	_, err = newExporter().Export(context.Background(), req)
	assert.True(t, apperrors.Is(err, apperrors.CodeSourceEmpty))
	assert.Equal(t, "The IMP Top-up file appears to be empty.", apperrors.UserMessage(err))
}
