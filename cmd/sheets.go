// =============================================================================
// RFFA Reconciler - Sheets Command
// =============================================================================
//
// Lists the worksheets of a roster so the operator can pick which ones to
// reconcile. Hidden sheets are left out unless --hidden is given.
//
// COMMAND USAGE:
//   rffa sheets --primary RFFA.xlsx [--hidden]
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/ginjaninja78/rffa-reconciler/internal/apperrors"
	"github.com/ginjaninja78/rffa-reconciler/internal/logger"
	"github.com/ginjaninja78/rffa-reconciler/internal/spreadsheet"
	"github.com/ginjaninja78/rffa-reconciler/internal/types"
	"github.com/ginjaninja78/rffa-reconciler/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	sheetsPrimary    string
	sheetsShowHidden bool
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "List the worksheets of an RFFA roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		sheets, err := listSheets(sheetsPrimary)
		if err != nil {
			return err
		}
		for _, s := range sheets {
			if !s.Visible && !sheetsShowHidden {
				continue
			}
			if s.Visible {
				fmt.Println(s.Name)
			} else {
				fmt.Printf("%s (hidden)\n", s.Name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sheetsCmd)

	sheetsCmd.Flags().StringVar(&sheetsPrimary, "primary", "", "Path to the RFFA workbook")
	sheetsCmd.Flags().BoolVar(&sheetsShowHidden, "hidden", false, "Also list hidden worksheets")
	sheetsCmd.MarkFlagRequired("primary")
}

// listSheets returns every worksheet of path with its visibility.
func listSheets(path string) ([]types.SheetInfo, error) {
	if path == "" {
		return nil, apperrors.Validation("Please select the RFFA file.")
	}
	wb, err := spreadsheet.Open(path, logger.Component(rootLog, "spreadsheet"))
	if err != nil {
		return nil, utils.ClassifyFileError(path, err)
	}
	defer wb.Close()
	return wb.Sheets(), nil
}

// visibleSheetNames returns the names of the visible worksheets of path.
func visibleSheetNames(path string) ([]string, error) {
	sheets, err := listSheets(path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, s := range sheets {
		if s.Visible {
			names = append(names, s.Name)
		}
	}
	return names, nil
}
