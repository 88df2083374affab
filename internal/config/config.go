package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "ASPIRE"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultDatabasePath = "aspire.db"
	defaultDataBackend  = "sqlite"
	defaultDataFilePath = "aspire-data.json"
	defaultLogLevel     = "info"
	defaultCookieName   = "app_session"
	defaultTokenTTLMin  = 60
	defaultNotifHour    = 8
)

// DataBackend selects which habit store implementation serves requests.
type DataBackend string

const (
	// DataBackendSQLite stores habits in the relational backend.
	DataBackendSQLite DataBackend = "sqlite"
	// DataBackendFile stores habits in a local JSON blob file.
	DataBackendFile DataBackend = "file"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress string
	DataBackend DataBackend
	DataFile    string

	DatabasePath string
	LogLevel     string

	SigningSecret     string
	SessionSecret     string
	SessionCookieName string
	TokenTTL          time.Duration

	CoachAPIKey string
	CronSecret  string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string

	TelegramBotToken    string
	WhatsAppAccessToken string
	WhatsAppPhoneID     string

	EmailAPIKey string
	EmailFrom   string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("data.backend", defaultDataBackend)
	configViper.SetDefault("data.file_path", defaultDataFilePath)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("auth.session_cookie", defaultCookieName)
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMin)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:         configViper.GetString("http.address"),
		DataBackend:         DataBackend(strings.ToLower(configViper.GetString("data.backend"))),
		DataFile:            configViper.GetString("data.file_path"),
		DatabasePath:        configViper.GetString("database.path"),
		LogLevel:            configViper.GetString("log.level"),
		SigningSecret:       configViper.GetString("auth.signing_secret"),
		SessionSecret:       configViper.GetString("auth.session_secret"),
		SessionCookieName:   configViper.GetString("auth.session_cookie"),
		TokenTTL:            time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		CoachAPIKey:         configViper.GetString("coach.api_key"),
		CronSecret:          configViper.GetString("cron.secret"),
		VAPIDPublicKey:      configViper.GetString("push.vapid_public"),
		VAPIDPrivateKey:     configViper.GetString("push.vapid_private"),
		PushSubscriber:      configViper.GetString("push.subscriber_email"),
		TelegramBotToken:    configViper.GetString("telegram.bot_token"),
		WhatsAppAccessToken: configViper.GetString("whatsapp.access_token"),
		WhatsAppPhoneID:     configViper.GetString("whatsapp.phone_number_id"),
		EmailAPIKey:         configViper.GetString("email.api_key"),
		EmailFrom:           configViper.GetString("email.from"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.SessionSecret) == "" {
		return fmt.Errorf("auth.session_secret is required")
	}
	if strings.TrimSpace(c.SessionCookieName) == "" {
		return fmt.Errorf("auth.session_cookie is required")
	}
	switch c.DataBackend {
	case DataBackendSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required for the sqlite backend")
		}
	case DataBackendFile:
		if strings.TrimSpace(c.DataFile) == "" {
			return fmt.Errorf("data.file_path is required for the file backend")
		}
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required for notification state")
		}
	default:
		return fmt.Errorf("data.backend must be sqlite or file, got %q", c.DataBackend)
	}
	return nil
}
