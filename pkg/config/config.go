package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config groups application configuration (read via Viper from env and
// optionally from a .env / config.env file).
type Config struct {
	App         AppConfig
	DB          DBConfig
	HTTP        HTTPConfig
	BSA         BSAConfig
	Source      SourceConfig
	Transmitter TransmitterConfig
}

// AppConfig general application settings.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig PostgreSQL settings. If DatabaseURL is non-empty it is used as the
// full connection string, otherwise the DSN is built from the parts.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString returns the DSN to use: DATABASE_URL when set, the
// constructed DSN otherwise.
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN builds the PostgreSQL connection string, URL-encoding credentials.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// HTTPConfig settings for the admin HTTP server.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr returns the listen address (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BSAConfig settings for the BSA E-Filing secure file-transfer endpoint.
// SubmissionsDir is the outbound drop, AcknowledgmentsDir the inbound one.
type BSAConfig struct {
	Host               string
	Port               int
	User               string
	Password           string        // empty when key auth is used
	PrivateKeyPath     string        // PEM private key; empty when password auth is used
	KnownHostsPath     string        // empty disables host key verification (dev only)
	LocalDir           string        // dev mode: local directory standing in for the remote endpoint
	SubmissionsDir     string
	AcknowledgmentsDir string
	ConnectRetries     int           // attempts before giving up on a connection
	ConnectBackoff     time.Duration // initial backoff, doubled per attempt
	DialTimeout        time.Duration
	PollInterval       time.Duration
}

// Addr returns the SFTP endpoint address (host:port).
func (c BSAConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SourceConfig locates the normalized-transaction feed from the surrounding
// business system.
type SourceConfig struct {
	TransactionsDir string
}

// TransmitterConfig identifies the filing transmitter on every submission.
// TransmitterID is a fixed-length numeric id, TCC the transmitter control
// code issued by the e-filing system.
type TransmitterConfig struct {
	TransmitterID string
	TCC           string
	LegalName     string
	ContactName   string
	ContactPhone  string
	ContactEmail  string
	Street        string
	City          string
	State         string
	ZIP           string
	Country       string
}

// Load reads configuration from environment variables (and optionally from a
// file). Env vars take priority. Expected names: APP_ENV, DB_HOST, BSA_HOST,
// TRANSMITTER_TCC, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Optional config file (.env or config.env).
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // missing file is fine

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // missing file is fine

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "filing-pro"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "filing_pro"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		BSA: BSAConfig{
			Host:               getString(v, "BSA_HOST", ""),
			Port:               getInt(v, "BSA_PORT", 22),
			User:               getString(v, "BSA_USER", ""),
			Password:           getString(v, "BSA_PASSWORD", ""),
			PrivateKeyPath:     getString(v, "BSA_PRIVATE_KEY_PATH", ""),
			KnownHostsPath:     getString(v, "BSA_KNOWN_HOSTS_PATH", ""),
			LocalDir:           getString(v, "BSA_LOCAL_DIR", "./bsa-local"),
			SubmissionsDir:     getString(v, "BSA_SUBMISSIONS_DIR", "/submissions"),
			AcknowledgmentsDir: getString(v, "BSA_ACKNOWLEDGMENTS_DIR", "/acknowledgments"),
			ConnectRetries:     getInt(v, "BSA_CONNECT_RETRIES", 3),
			ConnectBackoff:     getDuration(v, "BSA_CONNECT_BACKOFF", 2*time.Second),
			DialTimeout:        getDuration(v, "BSA_DIAL_TIMEOUT", 15*time.Second),
			PollInterval:       getDuration(v, "BSA_POLL_INTERVAL", 5*time.Minute),
		},
		Source: SourceConfig{
			TransactionsDir: getString(v, "TRANSACTIONS_DIR", "./transactions"),
		},
		Transmitter: TransmitterConfig{
			TransmitterID: getString(v, "TRANSMITTER_ID", ""),
			TCC:           getString(v, "TRANSMITTER_TCC", ""),
			LegalName:     getString(v, "TRANSMITTER_LEGAL_NAME", ""),
			ContactName:   getString(v, "TRANSMITTER_CONTACT_NAME", ""),
			ContactPhone:  getString(v, "TRANSMITTER_CONTACT_PHONE", ""),
			ContactEmail:  getString(v, "TRANSMITTER_CONTACT_EMAIL", ""),
			Street:        getString(v, "TRANSMITTER_STREET", ""),
			City:          getString(v, "TRANSMITTER_CITY", ""),
			State:         getString(v, "TRANSMITTER_STATE", ""),
			ZIP:           getString(v, "TRANSMITTER_ZIP", ""),
			Country:       getString(v, "TRANSMITTER_COUNTRY", "US"),
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if v.IsSet(key) {
		if d := v.GetDuration(key); d > 0 {
			return d
		}
	}
	return def
}
