package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "5000"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultShutdownTimeout      = 20 * time.Second
	defaultSessionTTL           = 24 * time.Hour
	defaultAdminUsername        = "admin"
	defaultAdminEmail           = "admin@trendhome-fenster.de"
	defaultSMTPHost             = "smtp.gmail.com"
	defaultSMTPPort             = 587
	defaultMailTimeout          = 15 * time.Second
	defaultShopName             = "TrendHome Fenster"
	defaultAuthPerMinute        = 20
	defaultContactPerMinute     = 5
	defaultMinDimension         = 500
	defaultMaxDimension         = 3000
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
	defaultOrderEventsTopic     = "order-events"
	minJWTSecretLength          = 16
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server       ServerConfig
	Logging      LoggingConfig
	Firestore    FirestoreConfig
	PubSub       PubSubConfig
	Storage      StorageConfig
	Auth         AuthConfig
	Mail         MailConfig
	RateLimits   RateLimitConfig
	Configurator ConfiguratorConfig
	Idempotency  IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	// TrustedProxyHops is how many reverse proxies in front of the server
	// append to X-Forwarded-For. Zero means the socket peer is the client.
	TrustedProxyHops int
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PubSubConfig configures order event publishing. An empty topic disables publishing.
type PubSubConfig struct {
	ProjectID        string
	OrderEventsTopic string
}

// StorageConfig lists bucket names used by the application. An empty bucket disables archiving.
type StorageConfig struct {
	OrderDocumentsBucket string
}

// AuthConfig groups session token and bootstrap account settings.
type AuthConfig struct {
	JWTSecret            string
	SessionTTL           time.Duration
	DefaultAdminUsername string
	DefaultAdminEmail    string
	DefaultAdminPassword string
}

// MailConfig configures outbound SMTP. An empty host disables mail delivery.
type MailConfig struct {
	SMTPHost       string
	SMTPPort       int
	Username       string
	Password       string
	From           string
	AdminRecipient string
	ShopName       string
	ShopPhone      string
	Timeout        time.Duration
}

// Enabled reports whether enough settings are present to send mail.
func (m MailConfig) Enabled() bool {
	return strings.TrimSpace(m.SMTPHost) != "" && strings.TrimSpace(m.From) != ""
}

// RateLimitConfig controls request throttling for sensitive public endpoints.
type RateLimitConfig struct {
	AuthPerMinute    int
	ContactPerMinute int
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

// ConfiguratorConfig bounds the dimensions accepted by the configurator.
type ConfiguratorConfig struct {
	MinDimension float64
	MaxDimension float64
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Lookup returns a single raw value using the same precedence as Load. It lets callers read
// bootstrap settings (e.g. the secrets project) before the full configuration is resolved.
func Lookup(key string, opts ...Option) (string, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	lookup, err := options.lookupFunc()
	if err != nil {
		return "", err
	}
	value, _ := lookup(key)
	return value, nil
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and optional Secret Manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	lookup, err := options.lookupFunc()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:             stringWithDefault(lookup, "PORT", defaultPort),
			ReadTimeout:      durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:     durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:      durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout:  durationWithDefault(lookup, "API_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
			AllowedOrigins:   csvWithDefault(lookup, "API_CORS_ALLOWED_ORIGINS"),
			TrustedProxyHops: max(0, intWithDefault(lookup, "API_SERVER_TRUSTED_PROXY_HOPS", 0)),
		},
		Logging: LoggingConfig{
			Level: stringWithDefault(lookup, "LOG_LEVEL", "info"),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", stringWithDefault(lookup, "GOOGLE_CLOUD_PROJECT", "")),
			EmulatorHost: stringWithDefault(lookup, "FIRESTORE_EMULATOR_HOST", ""),
		},
		PubSub: PubSubConfig{
			ProjectID:        stringWithDefault(lookup, "API_PUBSUB_PROJECT_ID", ""),
			OrderEventsTopic: stringWithDefault(lookup, "API_PUBSUB_ORDER_EVENTS_TOPIC", defaultOrderEventsTopic),
		},
		Storage: StorageConfig{
			OrderDocumentsBucket: stringWithDefault(lookup, "API_STORAGE_ORDER_DOCUMENTS_BUCKET", ""),
		},
		Auth: AuthConfig{
			JWTSecret:            stringWithDefault(lookup, "JWT_SECRET", ""),
			SessionTTL:           durationWithDefault(lookup, "API_AUTH_SESSION_TTL", defaultSessionTTL),
			DefaultAdminUsername: stringWithDefault(lookup, "API_ADMIN_DEFAULT_USERNAME", defaultAdminUsername),
			DefaultAdminEmail:    stringWithDefault(lookup, "API_ADMIN_DEFAULT_EMAIL", defaultAdminEmail),
			DefaultAdminPassword: stringWithDefault(lookup, "API_ADMIN_DEFAULT_PASSWORD", ""),
		},
		Mail: MailConfig{
			SMTPHost:       stringWithDefault(lookup, "SMTP_HOST", ""),
			SMTPPort:       intWithDefault(lookup, "SMTP_PORT", defaultSMTPPort),
			Username:       stringWithDefault(lookup, "SMTP_USER", ""),
			Password:       stringWithDefault(lookup, "SMTP_PASS", ""),
			From:           stringWithDefault(lookup, "API_MAIL_FROM", stringWithDefault(lookup, "SMTP_USER", "")),
			AdminRecipient: stringWithDefault(lookup, "API_MAIL_ADMIN_RECIPIENT", ""),
			ShopName:       stringWithDefault(lookup, "API_MAIL_SHOP_NAME", defaultShopName),
			ShopPhone:      stringWithDefault(lookup, "API_MAIL_SHOP_PHONE", ""),
			Timeout:        durationWithDefault(lookup, "API_MAIL_TIMEOUT", defaultMailTimeout),
		},
		RateLimits: RateLimitConfig{
			AuthPerMinute:    intWithDefault(lookup, "API_RATELIMIT_AUTH_PER_MIN", defaultAuthPerMinute),
			ContactPerMinute: intWithDefault(lookup, "API_RATELIMIT_CONTACT_PER_MIN", defaultContactPerMinute),
			RedisAddr:        stringWithDefault(lookup, "REDIS_ADDR", ""),
			RedisPassword:    stringWithDefault(lookup, "REDIS_PASSWORD", ""),
			RedisDB:          intWithDefault(lookup, "REDIS_DB", 0),
		},
		Configurator: ConfiguratorConfig{
			MinDimension: floatWithDefault(lookup, "API_CONFIGURATOR_MIN_DIMENSION", defaultMinDimension),
			MaxDimension: floatWithDefault(lookup, "API_CONFIGURATOR_MAX_DIMENSION", defaultMaxDimension),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
	}

	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firestore.ProjectID
	}
	if cfg.Mail.AdminRecipient == "" {
		cfg.Mail.AdminRecipient = cfg.Mail.From
	}

	secretFields := []*string{
		&cfg.Auth.JWTSecret,
		&cfg.Auth.DefaultAdminPassword,
		&cfg.Mail.Password,
		&cfg.RateLimits.RedisPassword,
	}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaultOptions() loaderOptions {
	return loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
}

// lookupFunc applies the precedence env map > process env > .env file.
func (o loaderOptions) lookupFunc() (func(string) (string, bool), error) {
	dotEnv, err := loadDotEnv(o.envFile)
	if err != nil {
		return nil, err
	}
	return func(key string) (string, bool) {
		if o.envMap != nil {
			if value, ok := o.envMap[key]; ok {
				return value, true
			}
		}
		if o.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnv[key]
		return value, ok
	}, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if len(strings.TrimSpace(cfg.Auth.JWTSecret)) < minJWTSecretLength {
		missing = append(missing, "Auth.JWTSecret")
	}
	if cfg.Auth.SessionTTL <= 0 {
		missing = append(missing, "Auth.SessionTTL")
	}
	if cfg.Mail.Enabled() && (cfg.Mail.SMTPPort <= 0 || cfg.Mail.SMTPPort > 65535) {
		missing = append(missing, "Mail.SMTPPort")
	}
	if cfg.Configurator.MinDimension <= 0 || cfg.Configurator.MaxDimension < cfg.Configurator.MinDimension {
		missing = append(missing, "Configurator.Dimensions")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupInterval <= 0 {
		missing = append(missing, "Idempotency.CleanupInterval")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		missing = append(missing, "Idempotency.CleanupBatchSize")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
