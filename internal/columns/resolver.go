// =============================================================================
// RFFA Reconciler - Column Resolver
// =============================================================================
//
// Roster files from different municipalities do not agree on header names.
// The resolver finds a logical field by trying a prioritised list of header
// aliases against row 1.
//
// MATCHING RULES:
//   - Header cells are compared trimmed and case-insensitively.
//   - Aliases are tried in priority order; each alias gets a full scan of
//     the header row. The first alias present anywhere wins, even when a
//     lower-priority alias appears further left.
//   - When no alias matches, the caller decides: use a fixed fallback
//     column (reference number) or skip the field (farm area, names).
//
// =============================================================================

package columns

import (
	"strings"

	"golang.org/x/text/cases"
)

// NotFound is returned as the column index when nothing matched.
const NotFound = -1

// Resolution records how a column was found.
type Resolution int

const (
	// ResolvedPrimary means the highest-priority alias matched.
	ResolvedPrimary Resolution = iota
	// ResolvedAlias means a lower-priority alias matched.
	ResolvedAlias
	// ResolvedFallback means no alias matched and the fixed fallback column
	// was used.
	ResolvedFallback
	// Unresolved means no alias matched and there is no fallback.
	Unresolved
)

// String returns a short label for logs.
func (r Resolution) String() string {
	switch r {
	case ResolvedPrimary:
		return "primary"
	case ResolvedAlias:
		return "alias"
	case ResolvedFallback:
		return "fallback"
	default:
		return "unresolved"
	}
}

// normalize trims and case-folds a header cell. A Caser keeps state, so
// each call gets its own.
func normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Resolve returns the 1-based column of the highest-priority alias present
// in header, and the alias that matched. It returns NotFound when no alias
// matches.
//
// PARAMETERS:
//   - header: The cells of row 1, column A first.
//   - aliases: Candidate header names, highest priority first.
func Resolve(header []string, aliases []string) (int, string) {
	normalized := make([]string, len(header))
	for i, cell := range header {
		normalized[i] = normalize(cell)
	}

	for _, alias := range aliases {
		want := normalize(alias)
		if want == "" {
			continue
		}
		for i, cell := range normalized {
			if cell == want {
				return i + 1, alias
			}
		}
	}
	return NotFound, ""
}

// Lookup is the outcome of resolving one field.
type Lookup struct {
	Column     int
	Alias      string
	Resolution Resolution
}

// Found reports whether the lookup produced a usable column.
func (l Lookup) Found() bool {
	return l.Column != NotFound
}

// ResolveWithFallback resolves aliases and, when none matches, falls back to
// the fixed column. A fallback of NotFound yields an Unresolved lookup.
func ResolveWithFallback(header []string, aliases []string, fallback int) Lookup {
	col, alias := Resolve(header, aliases)
	switch {
	case col == NotFound && fallback == NotFound:
		return Lookup{Column: NotFound, Resolution: Unresolved}
	case col == NotFound:
		return Lookup{Column: fallback, Resolution: ResolvedFallback}
	case len(aliases) > 0 && alias == aliases[0]:
		return Lookup{Column: col, Alias: alias, Resolution: ResolvedPrimary}
	default:
		return Lookup{Column: col, Alias: alias, Resolution: ResolvedAlias}
	}
}

// HeaderIndex maps each trimmed header name to its 1-based column. When a
// name repeats, the first occurrence wins.
func HeaderIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, cell := range header {
		name := strings.TrimSpace(cell)
		if name == "" {
			continue
		}
		if _, seen := index[name]; !seen {
			index[name] = i + 1
		}
	}
	return index
}
