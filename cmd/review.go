package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ginjaninja78/rffa-reconciler/internal/apperrors"
	"github.com/ginjaninja78/rffa-reconciler/internal/validation"
)

const reviewHelp = `Commands:
  n      next record
  p      previous record
  g N    go to record N
  a      accept the value and ignore the record
  c      clear the highlight in the RFFA file
  e      export Invalid_Farm_Areas.xlsx
  q      quit`

// runReview steps the operator through the farm-area violations of a run.
// Errors from clear and export are printed and the loop continues.
func runReview(t *validation.Tracker, in io.Reader, out io.Writer, exportDir string) error {
	t.Subscribe(func(rec *validation.Record) {
		fmt.Fprintf(out, "  resolved: %s (%d of %d still active)\n", rec.ID, t.ActiveCount(), t.Len())
	})

	fmt.Fprintf(out, "\n=== Farm Area Review: %d record(s) ===\n%s\n", t.Len(), reviewHelp)
	printCurrent(t, out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "n":
			if !t.Next() {
				fmt.Fprintln(out, "  already at the last record")
			}
			printCurrent(t, out)
		case "p":
			if !t.Previous() {
				fmt.Fprintln(out, "  already at the first record")
			}
			printCurrent(t, out)
		case "g":
			n := 0
			if len(fields) > 1 {
				n, _ = strconv.Atoi(fields[1])
			}
			if !t.Goto(n - 1) {
				fmt.Fprintf(out, "  no record %s\n", strings.Join(fields[1:], " "))
			}
			printCurrent(t, out)
		case "a":
			if rec, ok := t.Current(); ok {
				t.AcceptAndIgnore(rec)
			}
		case "c":
			if rec, ok := t.Current(); ok {
				if err := t.ClearHighlight(rec); err != nil {
					fmt.Fprintf(out, "  %s\n", apperrors.UserMessage(err))
				}
			}
		case "e":
			path, err := t.Export(exportDir)
			if err != nil {
				fmt.Fprintf(out, "  %s\n", apperrors.UserMessage(err))
				continue
			}
			fmt.Fprintf(out, "  exported to %s\n", path)
		case "q":
			return nil
		default:
			fmt.Fprintln(out, reviewHelp)
		}
	}
}

func printCurrent(t *validation.Tracker, out io.Writer) {
	rec, ok := t.Current()
	if !ok {
		fmt.Fprintln(out, "  no records")
		return
	}
	state := "active"
	if !rec.Active {
		state = "resolved"
	}
	fmt.Fprintf(out, "[%d/%d] %s [%s]\n", t.Index()+1, t.Len(), rec, state)
}
