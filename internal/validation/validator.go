// =============================================================================
// RFFA Reconciler - Farm Area Validation
// =============================================================================
//
// This module decides whether a roster row's farm area is acceptable and
// describes a violation when it is not.
//
// PARSING:
//   Farm areas arrive as cell text. A comma is read as the decimal
//   separator ("1,5" == 1.5) and the value is parsed culture-invariantly.
//   Text that does not parse is not a violation; the row is skipped
//   silently.
//
// RULE:
//   A parsed value v is a violation iff v == 0, v < 0 or v > max, i.e.
//   v <= 0 || v > max. The default max is 2.0 hectares.
//
// =============================================================================

package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ginjaninja78/rffa-reconciler/internal/types"
)

// ParseFarmArea parses a farm-area cell. It reports false for empty or
// non-numeric text, NaN and infinities.
func ParseFarmArea(raw string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// IsViolation reports whether a farm area is outside (0, max].
func IsViolation(value, max float64) bool {
	if value == 0 {
		return true
	}
	if value < 0 {
		return true
	}
	return value > max
}

// =============================================================================
// VALIDATION RECORD
// =============================================================================

// Record is one farm-area violation found during reconciliation.
type Record struct {
	Sheet      string
	Row        int
	ID         types.Identifier
	LastName   string
	FirstName  string
	MiddleName string
	FarmArea   float64

	// Active is true while the violation is still flagged. Accepting or
	// clearing it sets Active to false; the record itself is kept.
	Active bool
}

// NewRecord builds an active record from a scanned row and its parsed area.
func NewRecord(row types.RosterRow, area float64) *Record {
	return &Record{
		Sheet:      row.Sheet,
		Row:        row.Row,
		ID:         row.ID,
		LastName:   row.LastName,
		FirstName:  row.FirstName,
		MiddleName: row.MiddleName,
		FarmArea:   area,
		Active:     true,
	}
}

// FullName renders "Last, First Middle".
func (r *Record) FullName() string {
	return strings.TrimSpace(fmt.Sprintf("%s, %s %s", r.LastName, r.FirstName, r.MiddleName))
}

// String is used in logs and the review screen.
func (r *Record) String() string {
	return fmt.Sprintf("%s row %d: %s (%s) farm area %.2f ha", r.Sheet, r.Row, r.ID, r.FullName(), r.FarmArea)
}

// Check validates one row. It returns a record when the row's farm area
// parses and violates the rule, and nil otherwise.
func Check(row types.RosterRow, max float64) *Record {
	if strings.TrimSpace(row.FarmArea) == "" {
		return nil
	}
	area, ok := ParseFarmArea(row.FarmArea)
	if !ok || !IsViolation(area, max) {
		return nil
	}
	return NewRecord(row, area)
}
