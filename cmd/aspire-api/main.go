package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aspirehq/aspire/backend/internal/auth"
	"github.com/aspirehq/aspire/backend/internal/config"
	"github.com/aspirehq/aspire/backend/internal/database"
	"github.com/aspirehq/aspire/backend/internal/habits"
	"github.com/aspirehq/aspire/backend/internal/logging"
	"github.com/aspirehq/aspire/backend/internal/notify"
	"github.com/aspirehq/aspire/backend/internal/prefs"
	"github.com/aspirehq/aspire/backend/internal/push"
	"github.com/aspirehq/aspire/backend/internal/report"
	"github.com/aspirehq/aspire/backend/internal/scheduler"
	"github.com/aspirehq/aspire/backend/internal/server"
	"github.com/aspirehq/aspire/backend/internal/store/localstore"
	"github.com/aspirehq/aspire/backend/internal/store/sqlstore"
	"github.com/aspirehq/aspire/backend/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aspire-api",
		Short: "Aspire habit tracking backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("data-backend", defaults.GetString("data.backend"), "Habit storage backend (sqlite or file)")
	cmd.PersistentFlags().String("data-file-path", defaults.GetString("data.file_path"), "JSON data file path for the file backend")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "Backend token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Backend signing secret (overrides env)")
	cmd.PersistentFlags().String("session-secret", "", "Hosted session signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "data.backend", "data-backend")
	bindFlag(cmd, "data.file_path", "data-file-path")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "auth.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "auth.session_secret", "session-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
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

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	habitStore, err := openHabitStore(appConfig, db)
	if err != nil {
		return err
	}

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "aspire-auth",
		Audience:      "aspire-api",
		TokenTTL:      appConfig.TokenTTL,
	})

	sessionValidator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(appConfig.SessionSecret),
		CookieName:    appConfig.SessionCookieName,
	})
	if err != nil {
		return err
	}

	accountService, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		return err
	}

	habitService, err := habits.NewService(habits.ServiceConfig{
		Store:      habitStore,
		Clock:      time.Now,
		IDProvider: habits.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	prefsService, err := prefs.NewService(db)
	if err != nil {
		return err
	}

	pushService, err := push.NewService(push.ServiceConfig{
		Database: db,
		Sender: push.NewWebPushSender(push.VAPIDConfig{
			PublicKey:  appConfig.VAPIDPublicKey,
			PrivateKey: appConfig.VAPIDPrivateKey,
			Subscriber: appConfig.PushSubscriber,
		}),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	transports := []notify.Transport{notify.NewWebPushTransport(pushService)}
	if appConfig.TelegramBotToken != "" {
		transports = append(transports, notify.NewTelegramTransport(appConfig.TelegramBotToken, ""))
	}
	if appConfig.WhatsAppAccessToken != "" {
		transports = append(transports, notify.NewWhatsAppTransport(appConfig.WhatsAppAccessToken, appConfig.WhatsAppPhoneID, ""))
	}
	notifier, err := notify.NewNotifier(notify.NotifierConfig{
		Prefs:      prefsService,
		Habits:     habitService,
		Transports: transports,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	var emailClient *report.EmailClient
	if appConfig.EmailAPIKey != "" {
		emailClient, err = report.NewEmailClient(report.EmailClientConfig{
			APIKey: appConfig.EmailAPIKey,
			From:   appConfig.EmailFrom,
		})
		if err != nil {
			return err
		}
	}

	dispatcher, err := scheduler.NewDispatcher(scheduler.DispatcherConfig{
		Push:   pushService,
		Prefs:  prefsService,
		Habits: habitService,
		Users:  accountService,
		Email:  emailClient,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	var coachKey *auth.APIKeyValidator
	if appConfig.CoachAPIKey != "" {
		coachKey, err = auth.NewAPIKeyValidator(appConfig.CoachAPIKey)
		if err != nil {
			return err
		}
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		SessionValidator: sessionValidator,
		TokenManager:     tokenManager,
		Accounts:         accountService,
		Habits:           habitService,
		Prefs:            prefsService,
		Push:             pushService,
		Notifier:         notifier,
		Dispatcher:       dispatcher,
		CoachKey:         coachKey,
		CronSecret:       appConfig.CronSecret,
		Logger:           logger,
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
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("data_backend", string(appConfig.DataBackend)))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func openHabitStore(appConfig config.AppConfig, db *gorm.DB) (habits.Store, error) {
	switch appConfig.DataBackend {
	case config.DataBackendFile:
		return localstore.Open(appConfig.DataFile)
	default:
		return sqlstore.New(db)
	}
}
