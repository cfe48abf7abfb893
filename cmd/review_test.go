package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/rffa-reconciler/internal/config"
	"github.com/ginjaninja78/rffa-reconciler/internal/validation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewLoop(t *testing.T) {
	records := []*validation.Record{
		{Sheet: "Sheet1", Row: 2, ID: "A1", LastName: "Cruz", FirstName: "Ana", FarmArea: 3.0, Active: true},
		{Sheet: "Sheet1", Row: 5, ID: "A2", LastName: "Reyes", FirstName: "Ben", FarmArea: 0, Active: true},
	}
	tracker := validation.NewTracker(records, "", config.Default(), zerolog.Nop())
	dir := t.TempDir()

	in := strings.NewReader("n\na\np\ng 9\ne\nq\n")
	var out bytes.Buffer
	require.NoError(t, runReview(tracker, in, &out, dir))

	assert.True(t, records[0].Active)
	assert.False(t, records[1].Active)
	assert.Contains(t, out.String(), "[2/2] Sheet1 row 5: A2")
	assert.Contains(t, out.String(), "resolved: A2 (1 of 2 still active)")
	assert.Contains(t, out.String(), "no record 9")
	assert.Contains(t, out.String(), "exported to "+filepath.Join(dir, validation.ReportFileName))
}

func TestReviewClearWithoutWorkbookReportsError(t *testing.T) {
	records := []*validation.Record{{Sheet: "Sheet1", Row: 2, ID: "A1", FarmArea: 3.0, Active: true}}
	tracker := validation.NewTracker(records, "", config.Default(), zerolog.Nop())

	var out bytes.Buffer
	require.NoError(t, runReview(tracker, strings.NewReader("c\n"), &out, t.TempDir()))

	assert.True(t, records[0].Active)
	assert.Contains(t, out.String(), "RFFA file for this run is not known")
}

func TestWithoutDuplicatesSheets(t *testing.T) {
	got := withoutDuplicatesSheets([]string{"Sheet1", "Duplicates", "duplicates_1", "Summary"}, "Duplicates")
	assert.Equal(t, []string{"Sheet1", "Summary"}, got)
}
