package export_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/beetrack-client/export"
	"github.com/jrsteele09/beetrack-client/internal/errors"
	"github.com/jrsteele09/beetrack-client/internal/fakebackend"
	"github.com/jrsteele09/beetrack-client/internal/routes"
	"github.com/jrsteele09/beetrack-client/transport"
	"github.com/jrsteele09/beetrack-client/users"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	backend  *fakebackend.Server
	client   *transport.Client
	exporter *export.Exporter
}

func setupTestFixture(t *testing.T, username string, role users.Role, options ...fakebackend.Option) *testFixture {
	t.Helper()

	backend := fakebackend.New(options...)
	_, err := backend.AddUser(username, username+"@example.com", "secret", role, true)
	require.NoError(t, err)

	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	client, err := transport.New(server.URL)
	require.NoError(t, err)

	var pair struct {
		AccessToken string `json:"access_token"`
	}
	err = client.Do(context.Background(), &transport.Request{
		Method:   http.MethodPost,
		Path:     routes.UsersLoginWithRemember,
		Body:     map[string]any{"username": username, "password": "secret", "remember_me": false},
		SkipAuth: true,
	}, &pair)
	require.NoError(t, err)
	client.SetBearer(pair.AccessToken)

	return &testFixture{backend: backend, client: client, exporter: export.New(client)}
}

func TestOrdersCSV(t *testing.T) {
	f := setupTestFixture(t, "root", users.RoleAdmin)

	blob, err := f.exporter.OrdersCSV(context.Background())
	require.NoError(t, err)
	require.Equal(t, "orders.csv", blob.Filename)
	require.Equal(t, "text/csv", blob.ContentType)
	require.Contains(t, string(blob.Data), "id,customer,total,status")
}

func TestInspectionsPDF(t *testing.T) {
	f := setupTestFixture(t, "root", users.RoleAdmin)

	blob, err := f.exporter.InspectionsPDF(context.Background())
	require.NoError(t, err)
	require.Equal(t, "inspections.pdf", blob.Filename)
	require.Equal(t, "application/pdf", blob.ContentType)
	require.True(t, len(blob.Data) > 4 && string(blob.Data[:4]) == "%PDF")
}

func TestExport_Forbidden(t *testing.T) {
	f := setupTestFixture(t, "alice", users.RoleWorker)

	_, err := f.exporter.OrdersCSV(context.Background())
	require.ErrorIs(t, err, errors.ErrForbidden)
	require.Equal(t, http.StatusForbidden, transport.StatusCode(err))
}

func TestExport_Empty(t *testing.T) {
	f := setupTestFixture(t, "root", users.RoleAdmin, fakebackend.WithExports(nil, nil))

	_, err := f.exporter.InspectionsPDF(context.Background())
	require.ErrorIs(t, err, errors.ErrNotFound)
}
