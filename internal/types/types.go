// =============================================================================
// RFFA Reconciler - Shared Types
// =============================================================================
//
// This package holds the small value types shared across the engine, the
// exporters and the CLI. It has no dependencies so every other package can
// import it.
//
// =============================================================================

package types

import "strings"

// Identifier is a trimmed RSBSA reference number. Two identifiers are equal
// iff their strings are byte-for-byte equal; there is no case folding.
type Identifier string

// NewIdentifier trims surrounding whitespace from raw.
func NewIdentifier(raw string) Identifier {
	return Identifier(strings.TrimSpace(raw))
}

// IsEmpty reports whether the identifier has no content.
func (id Identifier) IsEmpty() bool {
	return id == ""
}

// String returns the identifier text.
func (id Identifier) String() string {
	return string(id)
}

// RosterRow is one data row of a roster sheet as seen during a scan.
type RosterRow struct {
	ID         Identifier
	LastName   string
	FirstName  string
	MiddleName string
	// FarmArea is the raw farm-area cell text.
	FarmArea string
	Sheet    string
	// Row is the 1-based worksheet row.
	Row int
}

// SheetInfo describes one worksheet of a workbook.
type SheetInfo struct {
	Name    string
	Visible bool
}
