package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/salesflow/salesflow-api/internal/secrets"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Backend   BackendConfig
	Auth      AuthConfig
	AI        AIConfig
	Assistant AssistantConfig
	Email     EmailConfig
	Storage   StorageConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite"
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// BackendConfig points at the CRM REST backend that owns all entity data
type BackendConfig struct {
	BaseURL string
	// AuthURL is used for the login flow only; defaults to BaseURL
	AuthURL string
	// Timeout per outbound request, in seconds
	Timeout int
}

// AuthConfig controls how bearer tokens are verified. With neither SigningKey nor
// JWKSURL set, each token is confirmed against the backend's current-user endpoint.
type AuthConfig struct {
	// SigningKey is the shared HMAC key the backend signs tokens with
	SigningKey string
	// JWKSURL serves the backend's RSA signing keys
	JWKSURL  string
	Issuer   string
	Audience string
	// IdentityCacheTTL bounds how long a backend-confirmed identity is reused, in seconds
	IdentityCacheTTL int
}

// IdentityCacheDuration returns the identity cache TTL
func (a *AuthConfig) IdentityCacheDuration() time.Duration {
	return time.Duration(a.IdentityCacheTTL) * time.Second
}

// AIConfig selects and configures the language model provider
type AIConfig struct {
	// Provider is "openai" or "gemini"
	Provider      string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	GeminiAPIKey  string
	GeminiModel   string
	// GeminiBaseURL overrides the Gemini API endpoint; empty uses the SDK default
	GeminiBaseURL string
	Temperature   float64
	// Timeout per completion call, in seconds
	Timeout int
}

// AssistantConfig bounds the context builder
type AssistantConfig struct {
	PageSize        int
	MaxPageFetch    int
	MaxContextItems int
	DueSoonLimit    int
	ExpiringDays    int
	// FetchTimeout per backend source, in seconds
	FetchTimeout int
}

// EmailConfig holds EmailJS credentials for user invitations
type EmailConfig struct {
	BaseURL    string
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
	InviteURL  string
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is the max age (in seconds) for preflight cache
	MaxAge int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	ReferrerPolicy        string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the default rate limit for unauthenticated requests (per IP)
	RequestsPerMinute int
	// RequestsPerMinuteAuth is the rate limit for authenticated requests (per user)
	RequestsPerMinuteAuth int
	// AssistantPerMinute caps the model-backed routes per user
	AssistantPerMinute int
	WhitelistIPs       []string
	WhitelistPaths     []string
}

// JobsConfig holds scheduled job configuration
type JobsConfig struct {
	SnapshotEnabled bool
	// SnapshotCron uses the six-field cron format (with seconds)
	SnapshotCron string
	// SnapshotToken is the service bearer token the job uses against the backend
	SnapshotToken  string
	RetentionDays  int
	JobTimeoutSecs int
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

func (b *BackendConfig) TimeoutDuration() time.Duration {
	return time.Duration(b.Timeout) * time.Second
}

func (a *AIConfig) TimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

// Configured reports whether the selected provider has a key
func (a *AIConfig) Configured() bool {
	if a.Provider == "gemini" {
		return a.GeminiAPIKey != ""
	}
	return a.OpenAIAPIKey != ""
}

func (a *AssistantConfig) FetchTimeoutDuration() time.Duration {
	return time.Duration(a.FetchTimeout) * time.Second
}

// Configured reports whether all EmailJS identifiers are present
func (e *EmailConfig) Configured() bool {
	return e.ServiceID != "" && e.TemplateID != "" && e.PublicKey != ""
}

func (j *JobsConfig) JobTimeout() time.Duration {
	return time.Duration(j.JobTimeoutSecs) * time.Second
}

// Load loads configuration from file and environment variables.
// Use LoadWithSecrets for vault resolution.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvFallbacks(v, &cfg)

	return &cfg, nil
}

// applyEnvFallbacks maps the variable names the web client deployment already uses
func applyEnvFallbacks(v *viper.Viper, cfg *Config) {
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = firstNonEmpty(v.GetString("NEXT_PUBLIC_BACKEND_API_URL"), v.GetString("BACKEND_API_URL"))
	}
	if cfg.Backend.AuthURL == "" {
		cfg.Backend.AuthURL = firstNonEmpty(v.GetString("NEXT_PUBLIC_AUTH_API_URL"), cfg.Backend.BaseURL)
	}
	cfg.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")
	cfg.Backend.AuthURL = strings.TrimRight(cfg.Backend.AuthURL, "/")

	if cfg.Auth.SigningKey == "" {
		cfg.Auth.SigningKey = firstNonEmpty(v.GetString("JWT_SECRET"), v.GetString("JWT_SIGNING_KEY"))
	}

	if cfg.AI.OpenAIAPIKey == "" {
		cfg.AI.OpenAIAPIKey = firstNonEmpty(v.GetString("OPENAI_API_KEY"), v.GetString("OPEN_AI_API_KEY"))
	}
	if model := v.GetString("OPENAI_MODEL"); model != "" {
		cfg.AI.OpenAIModel = model
	}
	if cfg.AI.GeminiAPIKey == "" {
		cfg.AI.GeminiAPIKey = v.GetString("GEMINI_API_KEY")
	}

	if cfg.Email.ServiceID == "" {
		cfg.Email.ServiceID = firstNonEmpty(v.GetString("EMAILJS_SERVICE_ID"), v.GetString("NEXT_PUBLIC_EMAILJS_SERVICE_ID"))
	}
	if cfg.Email.TemplateID == "" {
		cfg.Email.TemplateID = firstNonEmpty(v.GetString("EMAILJS_TEMPLATE_ID"), v.GetString("NEXT_PUBLIC_EMAILJS_TEMPLATE_ID"))
	}
	if cfg.Email.PublicKey == "" {
		cfg.Email.PublicKey = firstNonEmpty(v.GetString("EMAILJS_PUBLIC_KEY"), v.GetString("NEXT_PUBLIC_EMAILJS_PUBLIC_KEY"))
	}

	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
// Key Vault is used when USE_AZURE_KEY_VAULT=true and the environment is staging or production.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	if missing := ApplySecrets(ctx, cfg, provider); len(missing) > 0 {
		logger.Warn("Some secrets were not found, keeping configured values",
			zap.Strings("secrets", missing),
		)
	}

	logger.Info("Secrets loaded from vault successfully",
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)
	return cfg, nil
}

// SecretSource is the subset of the secrets provider used during config resolution
type SecretSource interface {
	GetSecretOrEnv(ctx context.Context, secretName, envVar string) (string, error)
}

// ApplySecrets overlays secret values onto cfg and returns the names it could not resolve.
// Unresolved secrets keep the current value.
func ApplySecrets(ctx context.Context, cfg *Config, src SecretSource) []string {
	targets := []struct {
		secret string
		env    string
		dst    *string
	}{
		{"POSTGRES-MAIN-HOST", "DATABASE_HOST", &cfg.Database.Host},
		{"POSTGRES-MAIN-USER", "DATABASE_USER", &cfg.Database.User},
		{"POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD", &cfg.Database.Password},
		{"jwt-signing-key", "AUTH_SIGNINGKEY", &cfg.Auth.SigningKey},
		{"openai-api-key", "OPENAI_API_KEY", &cfg.AI.OpenAIAPIKey},
		{"gemini-api-key", "GEMINI_API_KEY", &cfg.AI.GeminiAPIKey},
		{"emailjs-private-key", "EMAILJS_PRIVATE_KEY", &cfg.Email.PrivateKey},
		{"storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING", &cfg.Storage.CloudConnectionString},
		{"snapshot-service-token", "JOBS_SNAPSHOTTOKEN", &cfg.Jobs.SnapshotToken},
	}

	var missing []string
	for _, t := range targets {
		value, err := src.GetSecretOrEnv(ctx, t.secret, t.env)
		if err != nil || value == "" {
			missing = append(missing, t.secret)
			continue
		}
		*t.dst = value
	}
	return missing
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "SalesFlow API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "salesflow")
	v.SetDefault("database.user", "salesflow_user")
	v.SetDefault("database.password", "salesflow_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.sqlitePath", "./salesflow.db")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	// Backend defaults
	v.SetDefault("backend.baseURL", "")
	v.SetDefault("backend.authURL", "")
	v.SetDefault("backend.timeout", 30)

	// Auth defaults
	v.SetDefault("auth.signingKey", "")
	v.SetDefault("auth.jwksURL", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.identityCacheTTL", 60)

	// AI defaults
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openAIAPIKey", "")
	v.SetDefault("ai.geminiAPIKey", "")
	v.SetDefault("ai.openAIModel", "gpt-4.1-mini")
	v.SetDefault("ai.openAIBaseURL", "https://api.openai.com/v1")
	v.SetDefault("ai.geminiModel", "gemini-2.5-flash")
	v.SetDefault("ai.geminiBaseURL", "")
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("ai.timeout", 60)

	// Assistant context defaults
	v.SetDefault("assistant.pageSize", 200)
	v.SetDefault("assistant.maxPageFetch", 3)
	v.SetDefault("assistant.maxContextItems", 80)
	v.SetDefault("assistant.dueSoonLimit", 10)
	v.SetDefault("assistant.expiringDays", 30)
	v.SetDefault("assistant.fetchTimeout", 20)

	// Email defaults
	v.SetDefault("email.baseURL", "https://api.emailjs.com")
	v.SetDefault("email.serviceID", "")
	v.SetDefault("email.templateID", "")
	v.SetDefault("email.publicKey", "")
	v.SetDefault("email.privateKey", "")
	v.SetDefault("email.inviteURL", "")

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	// Storage defaults
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "pipeline-reports")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 120)
	v.SetDefault("server.requestTimeout", 90)
	v.SetDefault("server.enableSwagger", true)

	// CORS defaults
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 240)
	v.SetDefault("rateLimit.assistantPerMinute", 20)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready"})

	// Job defaults
	v.SetDefault("jobs.snapshotEnabled", false)
	v.SetDefault("jobs.snapshotCron", "0 0 6 * * *")
	v.SetDefault("jobs.snapshotToken", "")
	v.SetDefault("jobs.retentionDays", 90)
	v.SetDefault("jobs.jobTimeoutSecs", 300)
}
