package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/archive"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/config"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/database"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/events"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/metrics"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/server"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/views"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	tokenIssuerName   = "westernstar-backend"
	tokenAudienceName = "westernstar-admin"
	shutdownTimeout   = 10 * time.Second
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "westernstar-api",
		Short: "Western Star content backend service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newArchiveCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("archive-dir", defaults.GetString("archive.directory"), "Directory holding archived content files")
	cmd.PersistentFlags().String("archive-db", defaults.GetString("archive.database_path"), "SQLite archive database path (optional)")
	cmd.PersistentFlags().Bool("seed-defaults", defaults.GetBool("content.seed_defaults"), "Seed the store with the bundled default content")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "Admin token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("log-development", defaults.GetBool("log.development"), "Use development logging and report archive failures")
	cmd.PersistentFlags().String("signing-secret", "", "Admin token signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "archive.directory", "archive-dir")
	bindFlag(cmd, "archive.database_path", "archive-db")
	bindFlag(cmd, "content.seed_defaults", "seed-defaults")
	bindFlag(cmd, "auth.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.development", "log-development")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func newArchiveCommand() *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage archived content",
	}
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import archive files into the archive database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context())
		},
	}
	archiveCmd.AddCommand(importCmd)
	return archiveCmd
}

func runImport(ctx context.Context) error {
	archiveConfig, err := config.LoadArchive(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(archiveConfig.LogLevel, archiveConfig.LogDevelopment)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(archiveConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	loader := archive.NewLoader(archive.LoaderConfig{
		Sources:    []archive.Source{archive.NewDirectoryReader(os.DirFS(archiveConfig.Directory))},
		IDProvider: archive.NewUUIDProvider(),
		Logger:     logger,
	})
	importer, err := archive.NewImporter(archive.ImporterConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	result, importErr := importer.Import(ctx, loader)
	total := 0
	for _, count := range result {
		total += count
	}
	logger.Info("archive import complete",
		zap.String("source", archiveConfig.Directory),
		zap.Int("records", total))
	if importErr != nil {
		return fmt.Errorf("archive import finished with errors: %w", importErr)
	}
	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogDevelopment)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	sources := []archive.Source{archive.NewDirectoryReader(os.DirFS(appConfig.ArchiveDirectory))}
	if appConfig.ArchiveDatabasePath != "" {
		db, err := database.OpenSQLite(appConfig.ArchiveDatabasePath, logger)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		sources = append(sources, archive.NewDatabaseReader(db))
	}

	loader := archive.NewLoader(archive.LoaderConfig{
		Sources:    sources,
		IDProvider: archive.NewUUIDProvider(),
		Logger:     logger,
	})

	var seed *content.Snapshot
	if appConfig.SeedDefaults {
		defaults, err := archive.DefaultSeed()
		if err != nil {
			return err
		}
		seed = &defaults
	}

	bus := events.NewBus[content.Snapshot](logger)
	store := content.NewStore(content.StoreConfig{
		Publisher: bus,
		Archive:   loader,
		Clock:     time.Now,
		Logger:    logger,
		DevMode:   appConfig.LogDevelopment,
		Seed:      seed,
	})
	store.EnsureAllLoaded(ctx)

	recorder := metrics.NewRecorder(prometheus.NewRegistry())
	recorder.Attach(bus)
	defer recorder.Detach()
	recorder.Observe(store.Snapshot())

	homepage := views.NewHomepage(bus, store)
	defer homepage.Close()

	realtime := server.NewRealtimeDispatcher()
	realtimeSubscription := realtime.Attach(bus)
	defer realtimeSubscription.Unsubscribe()

	tokenManager, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        tokenIssuerName,
		Audience:      tokenAudienceName,
		TokenTTL:      appConfig.TokenTTL,
	})
	if err != nil {
		return err
	}
	credentials, err := auth.NewCredentialChecker(appConfig.AdminEmail, appConfig.AdminPassword)
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Store:          store,
		TokenManager:   tokenManager,
		Credentials:    credentials,
		Realtime:       realtime,
		Homepage:       homepage,
		Metrics:        recorder.Handler(),
		ResetSeed:      seed,
		Logger:         logger,
		CookieName:     appConfig.CookieName,
		SecureCookies:  appConfig.SecureCookies,
		AllowedOrigins: appConfig.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
