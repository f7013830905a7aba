package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/intunetools/intune-export/internal/adapter/driven/exporter"
	"github.com/intunetools/intune-export/internal/adapter/driven/graph"
	"github.com/intunetools/intune-export/internal/adapter/driven/powerbi"
	sqliteadapter "github.com/intunetools/intune-export/internal/adapter/driven/sqlite"
	httphandler "github.com/intunetools/intune-export/internal/adapter/driving/http"
	webhandler "github.com/intunetools/intune-export/internal/adapter/driving/web"
	"github.com/intunetools/intune-export/internal/application"
	"github.com/intunetools/intune-export/internal/config"
	"github.com/intunetools/intune-export/internal/domain/model"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local GUI and API server",
	Long: `Serve the report catalog, column picker and export history on the
configured loopback address. Sign-in happens in the browser; the OAuth2
callback is handled by this server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"tenant", cfg.TenantID,
		"job_timeout", cfg.ExportJobTimeout,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode) and migrate.
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 4. Wire driven adapters and services.
	credStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	exportStore := sqliteadapter.NewExportRepo(db)
	if cfg.SecretKey == nil {
		slog.Info("no encryption key configured, sessions will not survive restarts")
	}

	authenticator := graph.NewAuthenticator(cfg.ClientID, cfg.ClientSecret, cfg.TenantID, cfg.RedirectURL())
	authSvc := application.NewAuthService(authenticator, credStore)
	graphClient := graph.NewClient(authSvc.TokenSource(), cfg.ExportJobTimeout)
	authSvc.AttachGraph(graphClient)

	reportSvc := application.NewReportService(graphClient, authSvc)
	exportSvc := application.NewExportService(exporter.NewWriter(), exportStore, powerbi.NewOpener())

	// 5. Restore a persisted session when one exists.
	if user, err := authSvc.RestoreSession(ctx); err == nil {
		slog.Info("session restored", "user", user.UserPrincipalName)
	} else {
		var authErr *model.AuthError
		if errors.As(err, &authErr) {
			slog.Info("no restorable session, interactive sign-in required")
		} else {
			slog.Warn("session restore failed", "error", err)
		}
	}

	// 6. Register routes and apply middleware.
	mux := http.NewServeMux()

	apiHandler := httphandler.NewHandler(authSvc, reportSvc, exportSvc, slog.Default())
	httphandler.RegisterRoutes(mux, apiHandler)

	webHandler, err := webhandler.NewHandler(authSvc, reportSvc, exportSvc, slog.Default())
	if err != nil {
		return err
	}
	webhandler.RegisterRoutes(mux, webHandler)

	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Export-job fetches can hold a request for minutes.
		WriteTimeout: 35 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("intune-export started", "url", "http://"+cfg.ListenAddr+"/")

	// 7. Wait for shutdown signal, then drain.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
