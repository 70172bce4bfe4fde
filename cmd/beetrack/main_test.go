package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jrsteele09/beetrack-client/auth"
	"github.com/jrsteele09/beetrack-client/internal/config"
	"github.com/jrsteele09/beetrack-client/internal/errors"
	"github.com/jrsteele09/beetrack-client/internal/fakebackend"
	"github.com/jrsteele09/beetrack-client/users"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	backend *fakebackend.Server
	cfg     config.Config
	dir     string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv(passwordEnvVar, "")

	backend := fakebackend.New()
	_, err := backend.AddUser("alice", "alice@example.com", "secret", users.RoleWorker, true)
	require.NoError(t, err)
	_, err = backend.AddUser("root", "root@example.com", "toor", users.RoleAdmin, true)
	require.NoError(t, err)

	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	v := viper.New()
	v.Set("API_URL", server.URL)
	v.Set("CREDENTIALS_FILE", filepath.Join(dir, "credentials.yaml"))

	return &testFixture{backend: backend, cfg: config.FromViper(v), dir: dir}
}

// exec runs one command in a fresh app, as one CLI invocation would
func (f *testFixture) exec(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	a, err := newApp(f.cfg, strings.NewReader(stdin), &stdout, &stderr)
	require.NoError(t, err)
	defer a.close()

	err = a.execute(context.Background(), args)
	return stdout.String(), err
}

func TestRememberedLoginAcrossInvocations(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.exec(t, "secret\n", "login", "-remember", "-u", "alice")
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as alice (worker)")

	out, err = f.exec(t, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "alice <alice@example.com>")
	require.Contains(t, out, "session: ")

	out, err = f.exec(t, "", "sessions")
	require.NoError(t, err)
	require.Contains(t, out, "(current)")

	out, err = f.exec(t, "", "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Logged out")

	_, err = f.exec(t, "", "whoami")
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestEphemeralLoginIsNotKept(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.exec(t, "secret\n", "login", "-u", "alice")
	require.NoError(t, err)
	require.Contains(t, out, "Not remembered")

	_, err = f.exec(t, "", "whoami")
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestLoginWrongPassword(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.exec(t, "nope\n", "login", "-u", "alice")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	require.Equal(t, "incorrect username or password", describe(err))
}

func TestRevokeAllIncludingCurrent(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.exec(t, "secret\n", "login", "-remember", "-u", "alice")
	require.NoError(t, err)

	_, err = f.exec(t, "", "revoke-all", "-keep-current=false")
	require.NoError(t, err)

	_, err = f.exec(t, "", "whoami")
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestCan(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.exec(t, "", "can", "/dashboard/stats", "-role", "admin")
	require.NoError(t, err)
	require.Equal(t, "/dashboard/stats: true\n", out)

	out, err = f.exec(t, "", "can", "/dashboard/hives/7", "-role", "customer")
	require.NoError(t, err)
	require.Equal(t, "/dashboard/hives/:id: true\n", out)

	_, err = f.exec(t, "", "can", "/dashboard/hives")
	require.Error(t, err, "anonymous users are sent to login")

	_, err = f.exec(t, "secret\n", "login", "-remember", "-u", "alice")
	require.NoError(t, err)

	_, err = f.exec(t, "", "can", "/dashboard/hives")
	require.NoError(t, err)
	out, err = f.exec(t, "", "can", "/dashboard/users")
	require.Error(t, err)
	require.Contains(t, out, "forbidden")
}

func TestExportAndUsers_Admin(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.exec(t, "toor\n", "login", "-remember", "-u", "root")
	require.NoError(t, err)

	target := filepath.Join(f.dir, "orders.csv")
	out, err := f.exec(t, "", "export", "orders", "-o", target)
	require.NoError(t, err)
	require.Contains(t, out, "Wrote")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Contains(t, string(data), "id,customer")

	out, err = f.exec(t, "", "users")
	require.NoError(t, err)
	require.Contains(t, out, "alice@example.com")
	require.Contains(t, out, "root@example.com")
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.exec(t, "weak\n", "register", "-u", "bob", "-e", "bob@example.com")
	require.Error(t, err)

	out, err := f.exec(t, "Str0ng!Pass\n", "register", "-u", "bob", "-e", "bob@example.com")
	require.NoError(t, err)
	require.Contains(t, out, "Account bob created")

	_, err = f.backend.Users().GetByUsername("bob")
	require.NoError(t, err)
}

func TestUsageErrors(t *testing.T) {
	f := setupTestFixture(t)

	tests := [][]string{
		{"bogus"},
		{"login"},
		{"revoke"},
		{"revoke", "abc"},
		{"export"},
		{"export", "invoices"},
	}
	for _, args := range tests {
		_, err := f.exec(t, "", args...)
		require.True(t, errors.Is(err, errUsage), strings.Join(args, " "))
	}
}

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, exitUsage, code)
	require.Contains(t, stdout.String(), "Usage: beetrack")
}
