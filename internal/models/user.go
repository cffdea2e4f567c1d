package models

import (
	"strings"

	"zxsgit/internal/apperr"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleMember }

// The seeded administrator. Exactly one user carries this email, and it always has RoleAdmin.
const (
	AdminEmail    = "admin@zxsgit.local"
	AdminName     = "Admin"
	AdminPassword = "admin321"
)

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Role         Role   `json:"role"`
	CreatedAt    Millis `json:"createdAt"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsSeededAdmin reports whether u is the protected administrator record.
func (u User) IsSeededAdmin() bool { return strings.EqualFold(u.Email, AdminEmail) }

// Public strips the credential.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

func (u User) RecordID() string   { return u.ID }
func (u User) NaturalKey() string { return NormalizeEmail(u.Email) }
func (u User) Created() int64     { return int64(u.CreatedAt) }

// StoredUser is the shape found in caches and backup files written by older
// clients, which kept a plaintext password next to (or instead of) the hash.
// It only exists at the decoding boundary; see password.Normalize.
type StoredUser struct {
	User
	Password string `json:"password,omitempty"`
}

func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func PublicUsers(users []User) []User {
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return out
}

// Session is the ephemeral authenticated identity. It is replaced, never merged.
type Session struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	Token      string `json:"token"`
	SignedInAt Millis `json:"signedInAt"`
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// FindUser returns the index of the user with id, or -1.
func FindUser(users []User, id string) int {
	for i, u := range users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

// FindUserByEmail matches case-insensitively, returning -1 when absent.
func FindUserByEmail(users []User, email string) int {
	key := NormalizeEmail(email)
	if key == "" {
		return -1
	}
	for i, u := range users {
		if u.NaturalKey() == key {
			return i
		}
	}
	return -1
}

// EditUser describes a change to one user. Empty fields keep the stored value.
type EditUser struct {
	Name     string
	Email    string
	Role     Role
	Password string
}

// ApplyUserEdit changes users[i] in place and returns the result. hash turns
// a new password into its stored form.
func ApplyUserEdit(users []User, i int, e EditUser, hash func(string) (string, error)) (User, error) {
	target := users[i]
	email := NormalizeEmail(e.Email)
	if email != "" {
		if j := FindUserByEmail(users, email); j >= 0 && j != i {
			return User{}, apperr.Conflict("Email already in use")
		}
	}
	if target.IsSeededAdmin() {
		if (email != "" && email != NormalizeEmail(AdminEmail)) || (e.Role != "" && e.Role != RoleAdmin) {
			return User{}, apperr.Conflict("Admin account email and role cannot be changed")
		}
	}

	if name := strings.TrimSpace(e.Name); name != "" {
		target.Name = name
	}
	if email != "" {
		target.Email = email
	}
	if e.Role != "" {
		target.Role = e.Role
	}
	if e.Password != "" {
		h, err := hash(e.Password)
		if err != nil {
			return User{}, apperr.Wrap(apperr.KindInternal, "Something went wrong", err)
		}
		target.PasswordHash = h
	}
	users[i] = target
	return target, nil
}
