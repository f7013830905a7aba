// Package cmd defines the intune-export command tree.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "intune-export",
	Short: "Export Microsoft Intune reports to CSV or XLSX",
	Long: `intune-export fetches Microsoft Intune report datasets through the
Graph API with delegated permissions and writes them to CSV or XLSX files.

The usual way to run it is the local GUI:

  intune-export serve

which serves the report catalog, column picker and export history on a
loopback address. The export command drives the same flow headless once a
session has been persisted from a previous GUI sign-in:

  intune-export export Devices --out devices.csv
  intune-export export Malware --out malware.xlsx --columns DeviceName,MalwareName`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
