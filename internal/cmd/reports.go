package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/intunetools/intune-export/internal/domain/model"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List the report catalog",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(titleStyle.Render("Available reports"))
		for _, def := range model.Catalog() {
			kind := "direct"
			if def.Kind == model.ReportKindExportJob {
				kind = warnStyle.Render("export job")
			}
			fmt.Printf("  %s  %s\n", headerStyle.Render(def.Name), mutedStyle.Render("("+kind+")"))
			fmt.Printf("      %s\n", def.DisplayName)
			fmt.Printf("      requires %s\n", mutedStyle.Render(def.RequiredPermission))
		}
	},
}

func init() {
	rootCmd.AddCommand(reportsCmd)
}
