package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rentledger/internal/gateway"
	"github.com/roach88/rentledger/internal/identity"
)

func TestTokenCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "rentledger.yaml", "gateway:\n  jwt_secret: s3cret\n")
	id := writeFile(t, dir, "tenant.yaml", "mspid: orgB\nuser: T\nattrs:\n  role: tenant\n")

	out, err := execute(t, "--config", cfg, "token", "--identity", id, "--ttl", "0")
	require.NoError(t, err)

	claims, err := gateway.ParseToken([]byte("s3cret"), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, identity.Static{
		Org:   "orgB",
		Full:  identity.X509ID("orgB", "T"),
		Attrs: map[string]string{"role": "tenant"},
	}, claims.Credential())
	assert.Nil(t, claims.ExpiresAt)

	out, err = execute(t, "--config", cfg, "--format", "json", "token", "--identity", id, "--ttl", "1h")
	require.NoError(t, err)
	data := decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, "orgB", data["mspid"])
	assert.NotEmpty(t, data["expires_at"])
	_, err = gateway.ParseToken([]byte("s3cret"), data["token"].(string))
	assert.NoError(t, err)
}

func TestTokenCommandRequiresSecret(t *testing.T) {
	dir := t.TempDir()
	id := writeFile(t, dir, "tenant.yaml", "mspid: orgB\nuser: T\n")

	_, err := execute(t, "token", "--identity", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestServeRequiresSecret(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "--db", dir+"/ledger.db", "serve", "--no-sweep")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
