package secrets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultFallbackPath = ".secrets.local"
	meterName           = "github.com/trendhome-fenster/api/internal/platform/secrets"
)

// ErrNotFound is returned when neither Secret Manager nor the fallback file has the secret.
var ErrNotFound = errors.New("secrets: secret not found")

type accessClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Resolver resolves secret://name[?version=N&project=P] references through
// Google Secret Manager, caching values for the life of the process. When the
// backend is unreachable or denies access it falls back to a local dotenv-style
// file, which keeps local development working without cloud credentials.
type Resolver struct {
	client     accessClient
	ownsClient bool
	projectID  string
	logger     *zap.Logger

	fallbackPath string
	fallbackOnce sync.Once
	fallback     map[string]string

	mu    sync.RWMutex
	cache map[string]string

	latency   metric.Float64Histogram
	cacheHits metric.Int64Counter
}

// Option customises the Resolver.
type Option func(*Resolver)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFallbackFile overrides the local fallback file path. An empty path disables it.
func WithFallbackFile(path string) Option {
	return func(r *Resolver) { r.fallbackPath = strings.TrimSpace(path) }
}

// WithClient injects a Secret Manager client, used by tests.
func WithClient(client accessClient) Option {
	return func(r *Resolver) { r.client = client }
}

// WithMeter injects the meter used for fetch metrics.
func WithMeter(meter metric.Meter) Option {
	return func(r *Resolver) {
		if meter != nil {
			r.latency, _ = meter.Float64Histogram("secrets.fetch.latency", metric.WithUnit("ms"))
			r.cacheHits, _ = meter.Int64Counter("secrets.fetch.cache_hits")
		}
	}
}

// NewResolver builds a Resolver for projectID. A failure to create the Secret
// Manager client is logged and the resolver runs on the fallback file only.
func NewResolver(ctx context.Context, projectID string, opts ...Option) *Resolver {
	r := &Resolver{
		projectID:    strings.TrimSpace(projectID),
		logger:       zap.NewNop(),
		fallbackPath: defaultFallbackPath,
		cache:        make(map[string]string),
	}
	WithMeter(otel.GetMeterProvider().Meter(meterName))(r)
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	if r.client == nil && r.projectID != "" {
		client, err := secretmanager.NewClient(ctx)
		if err != nil {
			r.logger.Warn("secret manager unavailable; using local fallback", zap.Error(err))
		} else {
			r.client = client
			r.ownsClient = true
		}
	}
	return r
}

// ResolveSecret implements config.SecretResolver.
func (r *Resolver) ResolveSecret(ctx context.Context, ref string) (string, error) {
	start := time.Now()
	parsed, err := parseReference(ref)
	if err != nil {
		return "", err
	}

	r.mu.RLock()
	value, ok := r.cache[parsed.key()]
	r.mu.RUnlock()
	if ok {
		if r.cacheHits != nil {
			r.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("secret", mask(parsed.name))))
		}
		return value, nil
	}

	source := "remote"
	value, err = r.fetch(ctx, parsed)
	if err != nil && canFallBack(err) {
		r.logger.Debug("secret fetch failed; trying local fallback", zap.String("secret", mask(parsed.name)), zap.Error(err))
		source = "fallback"
		value, err = r.lookupFallback(parsed)
	}
	r.recordLatency(ctx, time.Since(start), source, err)
	if err != nil {
		return "", fmt.Errorf("secrets: resolve %s: %w", parsed.name, err)
	}

	r.mu.Lock()
	r.cache[parsed.key()] = value
	r.mu.Unlock()
	return value, nil
}

// Close releases the Secret Manager client when owned.
func (r *Resolver) Close() error {
	if r.ownsClient && r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Resolver) fetch(ctx context.Context, ref reference) (string, error) {
	project := ref.project
	if project == "" {
		project = r.projectID
	}
	if r.client == nil || project == "" {
		return "", status.Error(codes.Unavailable, "secret manager not configured")
	}
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, ref.name, ref.version)
	resp, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", err
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("empty payload for %s", name)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (r *Resolver) lookupFallback(ref reference) (string, error) {
	r.fallbackOnce.Do(func() {
		r.fallback = map[string]string{}
		if r.fallbackPath == "" {
			return
		}
		values, err := readFallbackFile(r.fallbackPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				r.logger.Warn("unable to read secrets fallback file", zap.String("path", r.fallbackPath), zap.Error(err))
			}
			return
		}
		r.fallback = values
	})
	if value, ok := r.fallback[fallbackKey(ref.name+"@"+ref.version)]; ok {
		return value, nil
	}
	if value, ok := r.fallback[fallbackKey(ref.name)]; ok {
		return value, nil
	}
	return "", ErrNotFound
}

// fallbackKeyReplacer maps Secret Manager names, which allow '-', onto dotenv
// identifiers. A version suffix "name@3" becomes "NAME__3".
var fallbackKeyReplacer = strings.NewReplacer("-", "_", ".", "_", "/", "_", "@", "__")

func fallbackKey(name string) string {
	return strings.ToUpper(fallbackKeyReplacer.Replace(strings.TrimSpace(name)))
}

// readFallbackFile parses the dotenv fallback file. Keys are normalised with
// fallbackKey before godotenv sees them, so both "admin-password=..." and
// "ADMIN_PASSWORD=..." resolve secret://admin-password.
func readFallbackFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(raw), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		trimmed = strings.TrimPrefix(trimmed, "export ")
		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}
		lines[i] = fallbackKey(key) + "=" + value
	}
	return godotenv.Unmarshal(strings.Join(lines, "\n"))
}

func (r *Resolver) recordLatency(ctx context.Context, d time.Duration, source string, err error) {
	if r.latency == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.latency.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	))
}

type reference struct {
	name    string
	version string
	project string
}

func (r reference) key() string {
	return r.project + "/" + r.name + "#" + r.version
}

func parseReference(ref string) (reference, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return reference{}, fmt.Errorf("secrets: invalid reference %q: %w", ref, err)
	}
	if u.Scheme != "secret" {
		return reference{}, fmt.Errorf("secrets: unsupported scheme %q", u.Scheme)
	}
	name := strings.Trim(u.Host+u.Path, "/")
	if name == "" {
		return reference{}, fmt.Errorf("secrets: missing secret name in %q", ref)
	}
	version := strings.TrimSpace(u.Query().Get("version"))
	if version == "" {
		version = "latest"
	}
	return reference{
		name:    name,
		version: version,
		project: strings.TrimSpace(u.Query().Get("project")),
	}, nil
}

func canFallBack(err error) bool {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated, codes.Unavailable, codes.DeadlineExceeded, codes.NotFound:
		return true
	default:
		return false
	}
}

func mask(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:6])
}
