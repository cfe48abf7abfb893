// Package history keeps the in-memory log of per-sheet reconciliation
// results for the lifetime of the process and exports it to a workbook.
package history

import (
	"sync"
	"time"

	"github.com/ginjaninja78/rffa-reconciler/internal/config"
	"github.com/ginjaninja78/rffa-reconciler/internal/spreadsheet"
	"github.com/ginjaninja78/rffa-reconciler/pkg/utils"
	"github.com/rs/zerolog"
)

// SheetName is the worksheet written by Export.
const SheetName = "History"

// TimeLayout formats the Date/Time column.
const TimeLayout = "2006-01-02 15:04:05"

// Entry is the outcome of reconciling one sheet.
type Entry struct {
	Time          time.Time
	Sheet         string
	Duplicates    int
	NonDuplicates int
}

// Recorder is what the reconciliation engine needs from a history log.
type Recorder interface {
	Add(Entry)
}

// Observer is called after an entry is added.
type Observer func(Entry)

// Log is a concurrency-safe run history.
type Log struct {
	mu        sync.RWMutex
	entries   []Entry
	observers []Observer
}

// NewLog creates an empty history.
func NewLog() *Log {
	return &Log{}
}

// Add appends an entry and notifies observers.
func (l *Log) Add(e Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	observers := append([]Observer(nil), l.observers...)
	l.mu.Unlock()

	for _, fn := range observers {
		fn(e)
	}
}

// Subscribe registers fn to be called after every Add.
func (l *Log) Subscribe(fn Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

// Entries returns a copy of the history in insertion order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Remove deletes the entry at index i. It reports false when i is out of
// range.
func (l *Log) Remove(i int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.entries) {
		return false
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return true
}

// Clear drops every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Export writes the history to path as a single "History" worksheet with
// the columns Date/Time, Sheet, Duplicates, Non-Duplicates.
func (l *Log) Export(path string, cfg *config.MainConfig, log zerolog.Logger) error {
	if cfg == nil {
		cfg = config.Default()
	}
	entries := l.Entries()

	wb := spreadsheet.New(path, log)
	defer wb.Close()

	if err := wb.RenameSheet(wb.FirstSheet(), SheetName); err != nil {
		return err
	}
	header := []any{"Date/Time", "Sheet", "Duplicates", "Non-Duplicates"}
	if err := wb.SetRow(SheetName, 1, header); err != nil {
		return err
	}
	if err := wb.StyleHeader(SheetName, len(header), cfg.Colors.Header); err != nil {
		return err
	}
	for i, e := range entries {
		row := []any{e.Time.Format(TimeLayout), e.Sheet, e.Duplicates, e.NonDuplicates}
		if err := wb.SetRow(SheetName, i+2, row); err != nil {
			return err
		}
	}
	if err := wb.SetColumnWidths(SheetName, []float64{20, 25, 12, 15}); err != nil {
		return err
	}

	if err := wb.Save(); err != nil {
		return utils.ClassifyFileError(path, err)
	}
	log.Info().Str("path", path).Int("entries", len(entries)).Msg("history exported")
	return nil
}
