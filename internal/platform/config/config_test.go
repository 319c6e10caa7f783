package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef-test"

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "fenster-dev",
		"JWT_SECRET":               testSecret,
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "5000" {
		t.Errorf("expected default port 5000, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.PubSub.ProjectID != "fenster-dev" {
		t.Errorf("expected pubsub project to default to firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour {
		t.Errorf("expected 24h sessions, got %s", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.DefaultAdminUsername != "admin" || cfg.Auth.DefaultAdminEmail != "admin@trendhome-fenster.de" {
		t.Errorf("unexpected default admin: %+v", cfg.Auth)
	}
	if cfg.Configurator.MinDimension != 500 || cfg.Configurator.MaxDimension != 3000 {
		t.Errorf("unexpected dimension bounds: %+v", cfg.Configurator)
	}
	if cfg.Mail.Enabled() {
		t.Errorf("expected mail to be disabled without SMTP host")
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader {
		t.Errorf("expected default idempotency header, got %s", cfg.Idempotency.Header)
	}
	if len(cfg.Server.AllowedOrigins) != 0 {
		t.Errorf("expected no origins, got %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Server.TrustedProxyHops != 0 {
		t.Errorf("expected forwarding headers to be untrusted by default, got %d hops", cfg.Server.TrustedProxyHops)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"PORT":                               "9090",
		"API_SERVER_READ_TIMEOUT":            "20s",
		"API_CORS_ALLOWED_ORIGINS":           "https://shop.example.com, http://localhost:5173",
		"API_FIRESTORE_PROJECT_ID":           "fenster-prod",
		"API_PUBSUB_PROJECT_ID":              "fenster-events",
		"API_STORAGE_ORDER_DOCUMENTS_BUCKET": "orders-prod",
		"JWT_SECRET":                         "secret://jwt",
		"API_ADMIN_DEFAULT_PASSWORD":         "sm://admin-password",
		"SMTP_HOST":                          "smtp.example.com",
		"SMTP_PORT":                          "2525",
		"SMTP_USER":                          "shop@example.com",
		"SMTP_PASS":                          "secret://smtp",
		"API_MAIL_ADMIN_RECIPIENT":           "office@example.com",
		"API_RATELIMIT_AUTH_PER_MIN":         "40",
		"REDIS_ADDR":                         "localhost:6379",
		"API_CONFIGURATOR_MAX_DIMENSION":     "3500",
		"API_SERVER_TRUSTED_PROXY_HOPS":      "1",
	}
	secrets := map[string]string{
		"secret://jwt":            testSecret,
		"secret://admin-password": "s3cret!",
		"secret://smtp":           "smtp-pass",
	}
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", errors.New("unknown secret")
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" || cfg.Server.ReadTimeout != 20*time.Second || cfg.Server.TrustedProxyHops != 1 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if !slices.Equal(cfg.Server.AllowedOrigins, []string{"https://shop.example.com", "http://localhost:5173"}) {
		t.Errorf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.PubSub.ProjectID != "fenster-events" {
		t.Errorf("unexpected pubsub project: %s", cfg.PubSub.ProjectID)
	}
	if cfg.Auth.JWTSecret != testSecret {
		t.Errorf("expected resolved jwt secret")
	}
	if cfg.Auth.DefaultAdminPassword != "s3cret!" {
		t.Errorf("expected sm:// reference to resolve, got %q", cfg.Auth.DefaultAdminPassword)
	}
	if !cfg.Mail.Enabled() || cfg.Mail.SMTPPort != 2525 || cfg.Mail.Password != "smtp-pass" {
		t.Errorf("unexpected mail config: %+v", cfg.Mail)
	}
	if cfg.Mail.From != "shop@example.com" || cfg.Mail.AdminRecipient != "office@example.com" {
		t.Errorf("unexpected mail addresses: %+v", cfg.Mail)
	}
	if cfg.RateLimits.AuthPerMinute != 40 || cfg.RateLimits.RedisAddr != "localhost:6379" {
		t.Errorf("unexpected rate limits: %+v", cfg.RateLimits)
	}
	if cfg.Configurator.MaxDimension != 3500 {
		t.Errorf("unexpected max dimension: %v", cfg.Configurator.MaxDimension)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_FIRESTORE_PROJECT_ID=from-dotenv\nJWT_SECRET=\"" + testSecret + "\"\nPORT=7000\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithoutSystemEnv(), WithEnvMap(map[string]string{"PORT": "7100"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firestore.ProjectID != "from-dotenv" {
		t.Errorf("expected dotenv project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Auth.JWTSecret != testSecret {
		t.Errorf("expected quoted dotenv value to be unquoted, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Server.Port != "7100" {
		t.Errorf("expected env map to win over dotenv, got %s", cfg.Server.Port)
	}
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	env := map[string]string{"API_FIRESTORE_PROJECT_ID": "p", "JWT_SECRET": testSecret}
	if _, err := Load(context.Background(), WithEnvFile(filepath.Join(t.TempDir(), "missing.env")), WithoutSystemEnv(), WithEnvMap(env)); err != nil {
		t.Fatalf("expected missing env file to be ignored, got %v", err)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{"JWT_SECRET": "short"}), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := vErr.Fields()
	for _, want := range []string{"Firestore.ProjectID", "Auth.JWTSecret"} {
		if !slices.Contains(fields, want) {
			t.Errorf("expected %s in %v", want, fields)
		}
	}
}

func TestLoadSecretResolverError(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "p",
		"JWT_SECRET":               "secret://jwt",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var sErr *SecretError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if sErr.Ref != "secret://jwt" {
		t.Errorf("unexpected ref %s", sErr.Ref)
	}
	if !errors.Is(err, errSecretResolverNotConfigured) {
		t.Errorf("expected resolver-not-configured cause, got %v", err)
	}
}

func TestLookupUsesPrecedence(t *testing.T) {
	value, err := Lookup("API_SECRETS_PROJECT_ID", WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{"API_SECRETS_PROJECT_ID": "secrets-proj"}))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if value != "secrets-proj" {
		t.Fatalf("unexpected value %q", value)
	}
}
