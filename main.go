package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"inventory/auth"
	"inventory/config"
	"inventory/db"
	"inventory/form"
	"inventory/handlers"
	"inventory/i18n"
	"inventory/logging"

	"github.com/gorilla/csrf"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	addr       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "inventory",
		Short:         "Login and signup front door for the Inventory Management System",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.json", "path to the JSON config file")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (host:port), overrides the config")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := db.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	if err := config.LoadConfig(configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(config.AppConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)
	if config.AppConfig.SessionKeyGenerated() {
		logger.Warn("no session key configured, generating a random key; sessions will be invalidated on restart")
	}

	if err := i18n.LoadTranslations(); err != nil {
		return fmt.Errorf("loading translations: %w", err)
	}

	auth.InitStore()

	if err := db.InitDB(config.AppConfig.DBPath); err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.DB.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := buildOptions(ctx)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	handlers.RegisterHandlers(mux, opts)

	listen := config.AppConfig.Addr()
	if addr != "" {
		listen = addr
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           handlers.RequestLogMiddleware(handlers.SecurityHeadersMiddleware(handlers.CORSMiddleware(withCSRF(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", listen),
			zap.String("app", config.AppConfig.AppName),
			zap.String("auth_mode", config.AppConfig.AuthMode))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildOptions wires the form controller for the configured auth mode.
func buildOptions(ctx context.Context) (handlers.Options, error) {
	cfg := config.AppConfig

	var dashboard form.Dashboard = form.RouteDashboard{Path: "/dashboard"}
	if cfg.DashboardCommand != "" {
		dashboard = form.CommandDashboard{Command: cfg.DashboardCommand}
	}

	if cfg.AuthMode == config.AuthModeStore {
		if err := db.SeedAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return handlers.Options{}, err
		}
		accounts := db.Accounts{DB: db.DB}
		return handlers.Options{
			Controller: form.NewController(auth.StoreAuthenticator{Accounts: accounts}, accounts, dashboard),
			Accounts:   accounts,
		}, nil
	}

	static := auth.StaticAuthenticator{Username: cfg.AdminUsername, Password: cfg.AdminPassword}
	return handlers.Options{
		Controller: form.NewController(static, form.DiscardRecorder{}, dashboard),
	}, nil
}

// withCSRF protects the HTML forms. The JSON API authenticates with tokens
// and is left out.
func withCSRF(next http.Handler) http.Handler {
	key := sha256.Sum256([]byte(config.AppConfig.SessionKey + "csrf"))
	protect := csrf.Protect(
		key[:],
		csrf.Secure(config.AppConfig.SecureCookies),
		csrf.Path("/"),
	)
	protected := protect(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		if r.TLS == nil {
			r = csrf.PlaintextHTTPRequest(r)
		}
		protected.ServeHTTP(w, r)
	})
}
