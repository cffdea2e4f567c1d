package filestore

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"zxsgit/internal/apperr"
	"zxsgit/internal/merge"
	"zxsgit/internal/models"
	"zxsgit/internal/password"
	"zxsgit/internal/validation"
)

func (s *Store) session(u models.User) models.Session {
	return models.Session{
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Token:      uuid.NewString(),
		SignedInAt: s.now(),
	}
}

func (s *Store) Register(ctx context.Context, in models.RegisterRequest) (models.Session, error) {
	if err := validation.Struct(in); err != nil {
		return models.Session{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return models.Session{}, err
	}
	if models.FindUserByEmail(users, in.Email) >= 0 {
		return models.Session{}, apperr.Conflict("Email already registered")
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.Session{}, err
	}
	u := models.User{
		ID:           s.newID(),
		Name:         strings.TrimSpace(in.Name),
		Email:        models.NormalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         models.RoleMember,
		CreatedAt:    s.now(),
	}
	if err := s.writeUsers(append(users, u)); err != nil {
		return models.Session{}, err
	}
	s.log.WithField("email", u.Email).Info("user registered")
	return s.session(u), nil
}

func (s *Store) Login(ctx context.Context, in models.LoginRequest) (models.Session, error) {
	if err := validation.Struct(in); err != nil {
		return models.Session{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return models.Session{}, err
	}
	i := models.FindUserByEmail(users, in.Email)
	if i < 0 {
		return models.Session{}, apperr.NotFound("User not found")
	}
	if !password.Verify(users[i].PasswordHash, in.Password) {
		return models.Session{}, apperr.Unauthorized("Invalid credentials")
	}
	return s.session(users[i]), nil
}

// Users lists every user without credentials.
func (s *Store) Users(ctx context.Context) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.readUsers()
	if err != nil {
		return nil, err
	}
	return models.PublicUsers(users), nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, in models.UserUpdateRequest) (models.User, error) {
	if err := validation.Struct(in); err != nil {
		return models.User{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return models.User{}, err
	}
	i := models.FindUser(users, id)
	if i < 0 {
		return models.User{}, apperr.NotFound("User not found")
	}
	updated, err := models.ApplyUserEdit(users, i, models.EditUser{
		Name: in.Name, Email: in.Email, Role: in.Role, Password: in.Password,
	}, s.hasher.Hash)
	if err != nil {
		return models.User{}, err
	}
	if err := s.writeUsers(users); err != nil {
		return models.User{}, err
	}
	return updated.Public(), nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return err
	}
	i := models.FindUser(users, id)
	if i < 0 {
		return apperr.NotFound("User not found")
	}
	if users[i].IsSeededAdmin() {
		return apperr.Conflict("Cannot delete admin account")
	}
	return s.writeUsers(append(users[:i:i], users[i+1:]...))
}

// SyncUsers folds uploaded users into users.json. Stored records keep their
// identity; uploaded names and credentials overlay them. The administrator is
// re-ensured afterwards.
func (s *Store) SyncUsers(ctx context.Context, incoming []models.StoredUser) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in, err := s.hasher.NormalizeAll(incoming)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return nil, err
	}
	users = merge.Upsert(users, in, s.newID, s.now())
	hash, err := s.hasher.Hash(models.AdminPassword)
	if err != nil {
		return nil, err
	}
	users, _ = merge.EnsureAdmin(users, merge.AdminRecord(s.newID(), hash, s.now()))
	if err := s.writeUsers(users); err != nil {
		return nil, err
	}
	s.log.WithField("count", len(users)).Info("users synced")
	return models.PublicUsers(users), nil
}
