package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()
}

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Server     ServerConfig
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Accounting AccountingConfig
	Storage    StorageConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"ledgersync"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL         string `envconfig:"DATABASE_URL" default:""`
	Host        string `envconfig:"PG_HOST" default:"localhost"`
	Port        int    `envconfig:"PG_PORT" default:"5432"`
	Name        string `envconfig:"PG_DB" default:"ledgersync"`
	User        string `envconfig:"PG_USER" default:"postgres"`
	Password    string `envconfig:"PG_PASSWORD" default:""`
	SSLMode     string `envconfig:"PG_SSLMODE" default:"disable"`
	AutoMigrate bool   `envconfig:"PG_AUTO_MIGRATE" default:"true"`
}

// RedisConfig holds Redis settings used for OAuth state and refresh locks.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// AuthConfig holds inbound authentication settings.
type AuthConfig struct {
	JWTSecret        string  `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer        string  `envconfig:"JWT_ISSUER" default:""`
	RateLimitPerSec  float64 `envconfig:"RATE_LIMIT_PER_SEC" default:"5"`
	RateLimitBurst   int     `envconfig:"RATE_LIMIT_BURST" default:"20"`
	OAuthRedirectApp string  `envconfig:"OAUTH_SUCCESS_REDIRECT" default:"/settings/integrations"`
}

// AccountingConfig holds settings for the external accounting platform.
type AccountingConfig struct {
	ClientID             string        `envconfig:"ACCOUNTING_CLIENT_ID" default:""`
	ClientSecret         string        `envconfig:"ACCOUNTING_CLIENT_SECRET" default:""`
	RedirectURL          string        `envconfig:"ACCOUNTING_REDIRECT_URL" default:"http://localhost:8080/api/v1/accounting/callback"`
	AuthURL              string        `envconfig:"ACCOUNTING_AUTH_URL" default:"https://appcenter.intuit.com/connect/oauth2"`
	TokenURL             string        `envconfig:"ACCOUNTING_TOKEN_URL" default:"https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"`
	Scopes               []string      `envconfig:"ACCOUNTING_SCOPES" default:"com.intuit.quickbooks.accounting"`
	APIBaseURL           string        `envconfig:"ACCOUNTING_API_BASE_URL" default:"https://quickbooks.api.intuit.com"`
	MinorVersion         string        `envconfig:"ACCOUNTING_MINOR_VERSION" default:"75"`
	CallTimeout          time.Duration `envconfig:"ACCOUNTING_CALL_TIMEOUT" default:"30s"`
	RequestsPerMinute    int           `envconfig:"ACCOUNTING_REQUESTS_PER_MINUTE" default:"450"`
	WebhookVerifierToken string        `envconfig:"ACCOUNTING_WEBHOOK_VERIFIER_TOKEN" default:""`
	EchoWindow           time.Duration `envconfig:"ACCOUNTING_ECHO_WINDOW" default:"2m"`
	DebugHTTP            bool          `envconfig:"ACCOUNTING_DEBUG_HTTP" default:"false"`
}

// StorageConfig selects where bill attachment bytes are read from.
type StorageConfig struct {
	Backend         string `envconfig:"ATTACHMENT_BACKEND" default:"local"` // local or gcs
	LocalRoot       string `envconfig:"ATTACHMENT_LOCAL_ROOT" default:"./data/attachments"`
	GCSBucket       string `envconfig:"ATTACHMENT_GCS_BUCKET" default:""`
	GCSCredentials  string `envconfig:"ATTACHMENT_GCS_CREDENTIALS_JSON" default:""`
	MaxUploadMBytes int    `envconfig:"ATTACHMENT_MAX_MB" default:"100"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (c DatabaseConfig) PostgresDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Address returns the Redis host:port.
func (c RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ListenAddress returns the HTTP listen address.
func (c ServerConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether APP_ENV is production.
func (c AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
