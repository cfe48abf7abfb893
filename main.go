// =============================================================================
// RFFA Reconciler - Main Entry Point
// =============================================================================
//
// This is the main entry point for the RFFA Reconciler CLI application.
// It delegates command execution to the cmd package.
//
// USAGE:
//   rffa sheets       - List the worksheets of an RFFA roster
//   rffa reconcile    - Cross-reference RFFA sheets against an IMP Top-up roster
//   rffa export       - Export matched rows into a batch report
//   rffa preferences  - Show or change saved preferences
//   rffa version      - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : Cobra command definitions (presentation only)
//   - internal/      : Reconciliation, validation and export logic
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/rffa-reconciler/cmd"
)

func main() {
	cmd.Execute()
}
