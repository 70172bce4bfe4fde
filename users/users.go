package users

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role is the account role reported by the backend
type Role string

const (
	RoleAdmin  Role = "admin"  // Full access including stats, exports, user admin and logs
	RoleWorker Role = "worker" // Apiary staff
	RoleUser   Role = "user"   // Customer account, the default for self-registration
)

// roleAliases maps legacy names onto the current roles
var roleAliases = map[string]Role{
	"customer": RoleUser,
}

// ParseRole accepts a role name in any case, including legacy aliases
func ParseRole(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch Role(name) {
	case RoleAdmin, RoleWorker, RoleUser:
		return Role(name), nil
	}
	if role, ok := roleAliases[name]; ok {
		return role, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Normalised returns the canonical role, or "" for an unknown one
func (r Role) Normalised() Role {
	role, err := ParseRole(string(r))
	if err != nil {
		return ""
	}
	return role
}

func (r Role) IsAdmin() bool {
	return r.Normalised() == RoleAdmin
}

type User struct {
	ID           int64      `json:"id"`                   // Backend identifier
	Username     string     `json:"username"`             // Unique login name
	Email        string     `json:"email"`                // User's email address
	Role         Role       `json:"role"`                 // One of admin, worker or user
	IsActive     bool       `json:"is_active"`            // Inactive accounts cannot log in
	CreatedAt    *time.Time `json:"created_at,omitempty"` // Registration time
	PasswordHash string     `json:"-"`                    // Only populated server-side, never serialised
}

// Update is the partial profile sent to PUT /users/me. Nil fields are left
// unchanged by the backend.
type Update struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

// IsEmpty reports whether the update changes nothing
func (u Update) IsEmpty() bool {
	return u.Username == nil && u.Email == nil && u.Password == nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword compares password against the user's stored hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

// CanAccess reports whether the user may open route
func (u *User) CanAccess(route string) bool {
	if u == nil {
		return false
	}
	return CanAccess(route, u.Role)
}
