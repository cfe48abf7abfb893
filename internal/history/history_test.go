package history

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ginjaninja78/rffa-reconciler/internal/spreadsheet"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAddAndSubscribe(t *testing.T) {
	l := NewLog()
	var got []Entry
	l.Subscribe(func(e Entry) { got = append(got, e) })

	now := time.Now()
	l.Add(Entry{Time: now, Sheet: "Sheet1", Duplicates: 1, NonDuplicates: 2})
	l.Add(Entry{Time: now, Sheet: "Sheet2", Duplicates: 0, NonDuplicates: 5})

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, "Sheet2", l.Entries()[1].Sheet)
	assert.Len(t, got, 2)

	l.Clear()
	assert.Equal(t, 0, l.Len())
}

func TestLogRemove(t *testing.T) {
	l := NewLog()
	l.Add(Entry{Sheet: "A"})
	l.Add(Entry{Sheet: "B"})
	l.Add(Entry{Sheet: "C"})
	before := l.Entries()

	assert.True(t, l.Remove(1))
	assert.False(t, l.Remove(2))
	assert.False(t, l.Remove(-1))

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].Sheet)
	assert.Equal(t, "C", entries[1].Sheet)
	assert.Equal(t, "B", before[1].Sheet)
}

func TestLogConcurrentAdd(t *testing.T) {
	l := NewLog()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Add(Entry{Sheet: "S"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, l.Len())
}

func TestLogExport(t *testing.T) {
	l := NewLog()
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	l.Add(Entry{Time: ts, Sheet: "MAGARAO", Duplicates: 4, NonDuplicates: 10})

	path := filepath.Join(t.TempDir(), "history.xlsx")
	require.NoError(t, l.Export(path, nil, zerolog.Nop()))

	wb, err := spreadsheet.Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{SheetName}, wb.SheetNames())
	rows, err := wb.Rows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Date/Time", "Sheet", "Duplicates", "Non-Duplicates"}, rows[0])
	assert.Equal(t, []string{"2024-03-09 14:05:07", "MAGARAO", "4", "10"}, rows[1])
}
