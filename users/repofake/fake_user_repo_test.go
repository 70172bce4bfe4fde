package fakeuserrepo_test

import (
	"testing"

	fakeuserrepo "github.com/jrsteele09/beetrack-client/users/repofake"

	"github.com/jrsteele09/beetrack-client/users"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	alice := &users.User{Username: "alice", Email: "alice@example.com", Role: users.RoleWorker}
	require.NoError(t, repo.Create(alice))
	require.Equal(t, int64(1), alice.ID)

	require.ErrorIs(t, repo.Create(&users.User{Username: "ALICE"}), users.ErrUserExists)
	require.ErrorIs(t, repo.Create(&users.User{Username: "alice2", Email: "Alice@example.com"}), users.ErrUserExists)

	found, err := repo.GetByUsername("Alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, found.ID)

	_, err = repo.GetByID(42)
	require.ErrorIs(t, err, users.ErrUserNotFound)
}

// TestReturnedUsersAreCopies tests callers cannot change stored users in place
func TestReturnedUsersAreCopies(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	require.NoError(t, repo.Create(&users.User{Username: "alice", Role: users.RoleWorker}))

	found, err := repo.GetByID(1)
	require.NoError(t, err)
	found.Role = users.RoleAdmin

	again, err := repo.GetByID(1)
	require.NoError(t, err)
	require.Equal(t, users.RoleWorker, again.Role)
}

func TestUpdateUser(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	alice := &users.User{Username: "alice", Email: "alice@example.com"}
	bob := &users.User{Username: "bob", Email: "bob@example.com"}
	require.NoError(t, repo.Create(alice))
	require.NoError(t, repo.Create(bob))

	alice.Username = "alicia"
	require.NoError(t, repo.Update(alice))

	_, err := repo.GetByUsername("alice")
	require.ErrorIs(t, err, users.ErrUserNotFound)
	found, err := repo.GetByUsername("alicia")
	require.NoError(t, err)
	require.Equal(t, alice.ID, found.ID)

	bob.Username = "alicia"
	require.ErrorIs(t, repo.Update(bob), users.ErrUserExists)

	require.ErrorIs(t, repo.Update(&users.User{ID: 99, Username: "ghost"}), users.ErrUserNotFound)
}

func TestListAndSetActive(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, repo.Create(&users.User{Username: name, IsActive: true}))
	}

	require.NoError(t, repo.SetActive(2, false))
	require.ErrorIs(t, repo.SetActive(9, false), users.ErrUserNotFound)

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "c", list[0].Username)
	require.False(t, list[1].IsActive)
}
