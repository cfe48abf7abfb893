package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var alwaysBackup bool

// preferencesCmd shows or changes the persisted operator preferences.
var preferencesCmd = &cobra.Command{
	Use:   "preferences",
	Short: "Show or change saved preferences",
	Example: `  rffa preferences
  rffa preferences --always-backup=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("always-backup") {
			if err := prefs.SetAlwaysCreateBackup(alwaysBackup); err != nil {
				return err
			}
		}
		fmt.Printf("Preferences file:     %s\n", prefs.Path())
		fmt.Printf("Always create backup: %t\n", prefs.AlwaysCreateBackup())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(preferencesCmd)
	preferencesCmd.Flags().BoolVar(&alwaysBackup, "always-backup", true, "Back up both files before every reconciliation")
}
