package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/intunetools/intune-export/internal/adapter/driven/exporter"
	"github.com/intunetools/intune-export/internal/adapter/driven/graph"
	"github.com/intunetools/intune-export/internal/adapter/driven/powerbi"
	sqliteadapter "github.com/intunetools/intune-export/internal/adapter/driven/sqlite"
	"github.com/intunetools/intune-export/internal/application"
	"github.com/intunetools/intune-export/internal/config"
	"github.com/intunetools/intune-export/internal/domain/model"
	"github.com/intunetools/intune-export/internal/domain/port/driven"
)

var (
	exportOut       string
	exportColumns   string
	exportOpenAfter bool
)

var exportCmd = &cobra.Command{
	Use:   "export <report>",
	Short: "Fetch a report and export it without the GUI",
	Long: `Fetch the named report and write it straight to the output file.

The session comes from a previously persisted sign-in (run "serve" once and
sign in with INTUNE_EXPORT_SECRET_KEY set). Without --columns the export
carries every column the dataset has.

Examples:
  intune-export export Devices --out devices.csv
  intune-export export Malware --out malware.xlsx --columns DeviceName,MalwareName`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Destination file (.csv or .xlsx)")
	exportCmd.Flags().StringVar(&exportColumns, "columns", "", "Comma-separated columns to keep (default: all)")
	exportCmd.Flags().BoolVar(&exportOpenAfter, "open", false, "Open the file after export")
	_ = exportCmd.MarkFlagRequired("out")
}

func runExport(_ *cobra.Command, args []string) error {
	reportName := args[0]
	if _, ok := model.LookupReport(reportName); !ok {
		return fmt.Errorf("unknown report %q (run \"intune-export reports\" for the catalog)", reportName)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	credStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	authenticator := graph.NewAuthenticator(cfg.ClientID, cfg.ClientSecret, cfg.TenantID, cfg.RedirectURL())
	authSvc := application.NewAuthService(authenticator, credStore)
	graphClient := graph.NewClient(authSvc.TokenSource(), cfg.ExportJobTimeout)
	authSvc.AttachGraph(graphClient)

	user, err := authSvc.RestoreSession(ctx)
	if err != nil {
		var authErr *model.AuthError
		if errors.As(err, &authErr) {
			return fmt.Errorf("no usable session: %s (sign in once via \"intune-export serve\")", authErr.Reason)
		}
		return err
	}
	fmt.Println(mutedStyle.Render("signed in as " + user.UserPrincipalName))

	reportSvc := application.NewReportService(graphClient, authSvc)

	var opener driven.DashboardOpener
	if exportOpenAfter {
		opener = powerbi.NewOpener()
	}
	exportSvc := application.NewExportService(exporter.NewWriter(), sqliteadapter.NewExportRepo(db), opener)

	fmt.Println(titleStyle.Render("Fetching " + reportName))
	table, err := reportSvc.Fetch(ctx, reportName)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", mutedStyle.Render(fmt.Sprintf("%d rows, %d columns", len(table.Rows), len(table.Columns))))

	var sel model.ColumnSelection
	if exportColumns == "" {
		sel = model.SelectAll(table)
	} else {
		keep := strings.Split(exportColumns, ",")
		for i := range keep {
			keep[i] = strings.TrimSpace(keep[i])
		}
		sel, err = reportSvc.Select(keep)
		if err != nil {
			return err
		}
	}

	result, err := exportSvc.Export(ctx, table, sel, exportOut, exportOpenAfter && opener != nil)
	if err != nil {
		return err
	}

	fmt.Println(okStyle.Render(fmt.Sprintf("wrote %s (%s, %d rows, %d columns, %d bytes)",
		result.Path, result.Format, result.Rows, result.Columns, result.SizeBytes)))
	return nil
}
