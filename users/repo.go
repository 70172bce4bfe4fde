package users

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// UserRepo is the account store behind the in-process test backend
type UserRepo interface {
	Create(user *User) error
	Update(user *User) error
	GetByID(id int64) (*User, error)
	GetByUsername(username string) (*User, error)
	List() ([]*User, error)
	SetActive(id int64, active bool) error
}
