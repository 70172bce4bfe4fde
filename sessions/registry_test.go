package sessions_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/beetrack-client/internal/errors"
	"github.com/jrsteele09/beetrack-client/internal/fakebackend"
	"github.com/jrsteele09/beetrack-client/internal/routes"
	"github.com/jrsteele09/beetrack-client/sessions"
	"github.com/jrsteele09/beetrack-client/token"
	"github.com/jrsteele09/beetrack-client/transport"
	"github.com/jrsteele09/beetrack-client/users"
	"github.com/stretchr/testify/require"
)

type device struct {
	client    *transport.Client
	registry  *sessions.Registry
	sessionID int64
}

type testFixture struct {
	backend *fakebackend.Server
	url     string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := fakebackend.New()
	_, err := backend.AddUser("alice", "alice@example.com", "secret", users.RoleWorker, true)
	require.NoError(t, err)
	_, err = backend.AddUser("bob", "bob@example.com", "secret", users.RoleWorker, true)
	require.NoError(t, err)

	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)
	return &testFixture{backend: backend, url: server.URL}
}

// signIn creates a remembered session for username on a client of its own
func (f *testFixture) signIn(t *testing.T, username string) *device {
	t.Helper()

	client, err := transport.New(f.url)
	require.NoError(t, err)

	var pair token.Pair
	err = client.Do(context.Background(), &transport.Request{
		Method:   http.MethodPost,
		Path:     routes.UsersLoginWithRemember,
		Body:     map[string]any{"username": username, "password": "secret", "remember_me": true},
		SkipAuth: true,
	}, &pair)
	require.NoError(t, err)
	client.SetBearer(pair.AccessToken)

	id, ok := token.SessionID(pair.AccessToken)
	require.True(t, ok)
	return &device{client: client, registry: sessions.NewRegistry(client), sessionID: id}
}

func sessionIDs(list []sessions.Session) []int64 {
	ids := make([]int64, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestList(t *testing.T) {
	f := setupTestFixture(t)
	laptop := f.signIn(t, "alice")
	phone := f.signIn(t, "alice")
	f.signIn(t, "bob")

	list, err := laptop.registry.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{laptop.sessionID, phone.sessionID}, sessionIDs(list))

	current := laptop.sessionID
	require.True(t, list[0].IsCurrent(&current))
	require.False(t, list[1].IsCurrent(&current))
	require.False(t, list[0].IsCurrent(nil))
	require.True(t, list[0].IsValid)
}

func TestRevoke(t *testing.T) {
	f := setupTestFixture(t)
	laptop := f.signIn(t, "alice")
	phone := f.signIn(t, "alice")

	msg, err := laptop.registry.Revoke(context.Background(), phone.sessionID)
	require.NoError(t, err)
	require.Equal(t, "Session revoked successfully", msg)

	list, err := laptop.registry.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{laptop.sessionID}, sessionIDs(list))

	_, err = phone.registry.List(context.Background())
	require.ErrorIs(t, err, errors.ErrUnauthorized)
}

// TestRevoke_OtherUsersSession tests a session owned by someone else is not found
func TestRevoke_OtherUsersSession(t *testing.T) {
	f := setupTestFixture(t)
	alice := f.signIn(t, "alice")
	bob := f.signIn(t, "bob")

	_, err := alice.registry.Revoke(context.Background(), bob.sessionID)
	require.ErrorIs(t, err, errors.ErrNotFound)
	require.True(t, f.backend.Sessions().IsValid(bob.sessionID))
}

func TestRevokeAll_KeepCurrent(t *testing.T) {
	f := setupTestFixture(t)
	laptop := f.signIn(t, "alice")
	phone := f.signIn(t, "alice")
	tablet := f.signIn(t, "alice")

	current := laptop.sessionID
	msg, err := laptop.registry.RevokeAll(context.Background(), true, &current)
	require.NoError(t, err)
	require.Equal(t, "All other sessions revoked successfully", msg)

	require.True(t, f.backend.Sessions().IsValid(laptop.sessionID))
	require.False(t, f.backend.Sessions().IsValid(phone.sessionID))
	require.False(t, f.backend.Sessions().IsValid(tablet.sessionID))
}

// TestRevokeAll_KeepCurrentFromToken tests the backend falls back to the
// caller's token when no current id is sent
func TestRevokeAll_KeepCurrentFromToken(t *testing.T) {
	f := setupTestFixture(t)
	laptop := f.signIn(t, "alice")
	phone := f.signIn(t, "alice")

	_, err := phone.registry.RevokeAll(context.Background(), true, nil)
	require.NoError(t, err)

	require.True(t, f.backend.Sessions().IsValid(phone.sessionID))
	require.False(t, f.backend.Sessions().IsValid(laptop.sessionID))
}

func TestRevokeAll_IncludingCurrent(t *testing.T) {
	f := setupTestFixture(t)
	laptop := f.signIn(t, "alice")
	phone := f.signIn(t, "alice")
	bob := f.signIn(t, "bob")

	current := laptop.sessionID
	msg, err := laptop.registry.RevokeAll(context.Background(), false, &current)
	require.NoError(t, err)
	require.Equal(t, "All sessions revoked successfully", msg)

	require.False(t, f.backend.Sessions().IsValid(laptop.sessionID))
	require.False(t, f.backend.Sessions().IsValid(phone.sessionID))
	require.True(t, f.backend.Sessions().IsValid(bob.sessionID))

	_, err = laptop.registry.List(context.Background())
	require.ErrorIs(t, err, errors.ErrUnauthorized)
}
