package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeClient struct {
	mu     sync.Mutex
	values map[string]string
	errs   map[string]error
	calls  map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{values: map[string]string{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (c *fakeClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[req.GetName()]++
	if err, ok := c.errs[req.GetName()]; ok {
		return nil, err
	}
	value, ok := c.values[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "missing")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    req.GetName(),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (c *fakeClient) Close() error { return nil }

func TestResolveSecretCachesRemoteValue(t *testing.T) {
	client := newFakeClient()
	resource := "projects/fenster/secrets/jwt-secret/versions/latest"
	client.values[resource] = "remote-value"

	r := NewResolver(context.Background(), "fenster", WithClient(client), WithFallbackFile(""))

	for i := 0; i < 2; i++ {
		got, err := r.ResolveSecret(context.Background(), "secret://jwt-secret")
		require.NoError(t, err)
		assert.Equal(t, "remote-value", got)
	}
	assert.Equal(t, 1, client.calls[resource])
}

func TestResolveSecretHonoursVersionAndProject(t *testing.T) {
	client := newFakeClient()
	client.values["projects/other/secrets/smtp/versions/3"] = "v3"

	r := NewResolver(context.Background(), "fenster", WithClient(client), WithFallbackFile(""))
	got, err := r.ResolveSecret(context.Background(), "secret://smtp?version=3&project=other")
	require.NoError(t, err)
	assert.Equal(t, "v3", got)
}

func TestResolveSecretFallsBackToLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".secrets.local")
	require.NoError(t, os.WriteFile(path, []byte("admin-password=from-file\n"), 0o600))

	client := newFakeClient()
	client.errs["projects/fenster/secrets/admin-password/versions/latest"] = status.Error(codes.PermissionDenied, "denied")

	r := NewResolver(context.Background(), "fenster", WithClient(client), WithFallbackFile(path))
	got, err := r.ResolveSecret(context.Background(), "secret://admin-password")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)
}

func TestFallbackFileAcceptsHyphenatedNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".secrets.local")
	content := "# local overrides\n" +
		"admin-password=from-file\n" +
		"smtp-password@2=second-version\n" +
		"export JWT_SECRET=\"quoted value\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	r := NewResolver(context.Background(), "", WithFallbackFile(path))
	ctx := context.Background()

	got, err := r.ResolveSecret(ctx, "secret://admin-password")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	got, err = r.ResolveSecret(ctx, "secret://smtp-password?version=2")
	require.NoError(t, err)
	assert.Equal(t, "second-version", got)

	got, err = r.ResolveSecret(ctx, "secret://jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, "quoted value", got)

	_, err = r.ResolveSecret(ctx, "secret://smtp-password")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveSecretDoesNotFallBackOnHardErrors(t *testing.T) {
	client := newFakeClient()
	client.errs["projects/fenster/secrets/jwt/versions/latest"] = status.Error(codes.InvalidArgument, "bad")

	r := NewResolver(context.Background(), "fenster", WithClient(client), WithFallbackFile(""))
	_, err := r.ResolveSecret(context.Background(), "secret://jwt")
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(errors.Unwrap(err)))
}

func TestResolveSecretWithoutProjectUsesFallbackOnly(t *testing.T) {
	r := NewResolver(context.Background(), "", WithFallbackFile(filepath.Join(t.TempDir(), "absent")))
	_, err := r.ResolveSecret(context.Background(), "secret://jwt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseReferenceRejectsOtherSchemes(t *testing.T) {
	_, err := parseReference("https://example.com/secret")
	assert.Error(t, err)
	_, err = parseReference("secret://")
	assert.Error(t, err)
}
