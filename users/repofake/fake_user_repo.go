package fakeuserrepo

import (
	"sort"
	"strings"
	"sync"

	"github.com/jrsteele09/beetrack-client/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users       map[int64]*users.User
	usernameIDs map[string]int64 // lower-cased username to user id
	emailIDs    map[string]int64 // lower-cased email to user id
	nextID      int64
	lock        sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:       make(map[int64]*users.User),
		usernameIDs: make(map[string]int64),
		emailIDs:    make(map[string]int64),
	}
}

// Create stores a new user and assigns its id. Usernames and emails are unique.
func (ur *FakeUserRepo) Create(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.usernameIDs[strings.ToLower(user.Username)]; ok {
		return users.ErrUserExists
	}
	if _, ok := ur.emailIDs[strings.ToLower(user.Email)]; ok && user.Email != "" {
		return users.ErrUserExists
	}

	ur.nextID++
	user.ID = ur.nextID
	stored := *user
	ur.users[user.ID] = &stored
	ur.index(&stored)
	return nil
}

func (ur *FakeUserRepo) Update(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	existing, ok := ur.users[user.ID]
	if !ok {
		return users.ErrUserNotFound
	}
	if id, ok := ur.usernameIDs[strings.ToLower(user.Username)]; ok && id != user.ID {
		return users.ErrUserExists
	}
	if id, ok := ur.emailIDs[strings.ToLower(user.Email)]; ok && id != user.ID && user.Email != "" {
		return users.ErrUserExists
	}

	delete(ur.usernameIDs, strings.ToLower(existing.Username))
	delete(ur.emailIDs, strings.ToLower(existing.Email))
	stored := *user
	ur.users[user.ID] = &stored
	ur.index(&stored)
	return nil
}

func (ur *FakeUserRepo) GetByID(id int64) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (ur *FakeUserRepo) GetByUsername(username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.usernameIDs[strings.ToLower(username)]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	copied := *ur.users[id]
	return &copied, nil
}

// List returns every user ordered by id
func (ur *FakeUserRepo) List() ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0, len(ur.users))
	for _, v := range ur.users {
		copied := *v
		userList = append(userList, &copied)
	}

	sort.Slice(userList, func(i, j int) bool {
		return userList[i].ID < userList[j].ID
	})
	return userList, nil
}

func (ur *FakeUserRepo) SetActive(id int64, active bool) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return users.ErrUserNotFound
	}
	user.IsActive = active
	return nil
}

func (ur *FakeUserRepo) index(user *users.User) {
	ur.usernameIDs[strings.ToLower(user.Username)] = user.ID
	if user.Email != "" {
		ur.emailIDs[strings.ToLower(user.Email)] = user.ID
	}
}
