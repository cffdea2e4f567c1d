package services

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"zxsgit/internal/apperr"
	"zxsgit/internal/bus"
	"zxsgit/internal/localstore"
	"zxsgit/internal/logs"
	"zxsgit/internal/merge"
	"zxsgit/internal/models"
	"zxsgit/internal/password"
	"zxsgit/internal/validation"
)

type Registration struct {
	Name     string `validate:"notblank" msg:"Name is required"`
	Email    string `validate:"emailshape" msg:"Invalid email"`
	Password string `validate:"notblank" msg:"Password is required"`
	Confirm  string `validate:"eqfield=Password" msg:"Passwords must match"`
}

type Credentials struct {
	Email    string `validate:"emailshape" msg:"Invalid email"`
	Password string `validate:"notblank" msg:"Email and password required"`
}

// ProfileUpdate is a signed-in user's edit of their own record.
type ProfileUpdate struct {
	Name     string `validate:"notblank" msg:"Name is required"`
	Email    string `validate:"emailshape" msg:"Invalid email"`
	Password string
}

type Users struct {
	Deps
	remote UserRemote
	mu     sync.Mutex
	reads  singleflight.Group
}

func NewUsers(d Deps, r UserRemote) *Users {
	return &Users{Deps: d.withDefaults(), remote: r}
}

// cached returns the local user records with every credential in hashed form.
func (s *Users) cached(ctx context.Context) []models.User {
	stored := localstore.Get(ctx, s.Local, localstore.KeyUsers, []models.StoredUser{})
	users := make([]models.User, 0, len(stored))
	for _, su := range stored {
		u, err := s.Hasher.Normalize(su)
		if err != nil {
			logs.Component("users").WithError(err).WithField("email", su.Email).Error("unable to hash cached password")
			u = su.User
		}
		users = append(users, u)
	}
	return users
}

func (s *Users) store(ctx context.Context, users []models.User) error {
	return s.Local.Set(ctx, localstore.KeyUsers, users)
}

// EnsureAdmin seeds the administrator into the local cache when it is missing.
func (s *Users) EnsureAdmin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, err := s.Hasher.Hash(models.AdminPassword)
	if err != nil {
		return err
	}
	users, changed := merge.EnsureAdmin(s.cached(ctx), merge.AdminRecord(s.NewID(), hash, s.Now()))
	if !changed {
		return nil
	}
	return s.store(ctx, users)
}

// remember records u in the cache, replacing any record with the same email.
// A non-empty hash replaces the cached one.
func (s *Users) remember(ctx context.Context, u models.User) error {
	users := s.cached(ctx)
	if i := models.FindUserByEmail(users, u.Email); i >= 0 {
		cur := users[i]
		cur.Name, cur.Role = u.Name, u.Role
		if u.PasswordHash != "" {
			cur.PasswordHash = u.PasswordHash
		}
		users[i] = cur
	} else {
		users = append(users, u)
	}
	return s.store(ctx, users)
}

func (s *Users) Register(ctx context.Context, in Registration) (models.Session, error) {
	if err := validation.Struct(in); err != nil {
		return models.Session{}, err
	}
	name := strings.TrimSpace(in.Name)
	email := models.NormalizeEmail(in.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return models.Session{}, apperr.Wrap(apperr.KindInternal, "Something went wrong", err)
	}
	user := models.User{
		ID: s.NewID(), Name: name, Email: email, PasswordHash: hash,
		Role: models.RoleMember, CreatedAt: s.Now(),
	}

	// accounts created offline are not on the server yet
	users := s.cached(ctx)
	if models.FindUserByEmail(users, email) >= 0 {
		return models.Session{}, apperr.Conflict("Email already registered")
	}

	res := s.remote.Register(ctx, models.RegisterRequest{Name: name, Email: email, Password: in.Password})
	var sess models.Session
	switch {
	case res.OK:
		user.Role = res.Value.Role
		if err := s.remember(ctx, user); err != nil {
			return models.Session{}, err
		}
		if sess, err = s.Session.Adopt(ctx, res.Value); err != nil {
			return models.Session{}, err
		}
	case res.Unavailable():
		fallbackLog("users", "register", res.Err())
		if err := s.store(ctx, append(users, user)); err != nil {
			return models.Session{}, err
		}
		if sess, err = s.Session.Start(ctx, user); err != nil {
			return models.Session{}, err
		}
	default:
		return models.Session{}, res.Err()
	}

	s.Bus.Publish(bus.UsersUpdated)
	return sess, nil
}

func (s *Users) Login(ctx context.Context, in Credentials) (models.Session, error) {
	if err := validation.Struct(in); err != nil {
		return models.Session{}, err
	}
	email := models.NormalizeEmail(in.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.remote.Login(ctx, models.LoginRequest{Email: email, Password: in.Password})
	switch {
	case res.OK:
		return s.adoptLogin(ctx, res.Value, in.Password)
	case res.Unavailable():
		fallbackLog("users", "login", res.Err())
	case res.Kind == apperr.KindNotFound:
		// the account may exist only in the cache; upload it before signing in
		u, err := s.verifyCached(ctx, email, in.Password)
		if err != nil {
			return models.Session{}, err
		}
		return s.loginUploaded(ctx, u, in.Password)
	default:
		return models.Session{}, res.Err()
	}

	u, err := s.verifyCached(ctx, email, in.Password)
	if err != nil {
		return models.Session{}, err
	}
	return s.Session.Start(ctx, u)
}

// verifyCached checks credentials against the cached user view.
func (s *Users) verifyCached(ctx context.Context, email, pw string) (models.User, error) {
	users := merge.Merge(s.cached(ctx), nil)
	i := models.FindUserByEmail(users, email)
	if i < 0 {
		return models.User{}, apperr.NotFound("User not found")
	}
	if !password.Verify(users[i].PasswordHash, pw) {
		return models.User{}, apperr.Unauthorized("Invalid credentials")
	}
	return users[i], nil
}

// adoptLogin stores the server session and keeps a verifier so the next
// sign-in works offline.
func (s *Users) adoptLogin(ctx context.Context, sess models.Session, pw string) (models.Session, error) {
	hash, err := s.Hasher.Hash(pw)
	if err == nil {
		err = s.remember(ctx, models.User{
			ID: s.NewID(), Name: sess.Name, Email: models.NormalizeEmail(sess.Email),
			PasswordHash: hash, Role: sess.Role, CreatedAt: s.Now(),
		})
	}
	if err != nil {
		logs.Component("users").WithError(err).WithField("email", sess.Email).Warn("unable to cache credentials after sign-in")
	}
	return s.Session.Adopt(ctx, sess)
}

// loginUploaded pushes a cache-only account to the server and signs in there.
// When the server will not take it the sign-in stays local.
func (s *Users) loginUploaded(ctx context.Context, u models.User, pw string) (models.Session, error) {
	log := logs.Component("users").WithField("email", u.Email)
	up := s.remote.SyncUsers(ctx, []models.StoredUser{{User: u}})
	if !up.OK {
		log.WithError(up.Err()).Warn("unable to upload local account, signing in locally")
		return s.Session.Start(ctx, u)
	}
	res := s.remote.Login(ctx, models.LoginRequest{Email: u.Email, Password: pw})
	if !res.OK {
		log.WithError(res.Err()).Warn("server rejected uploaded account, signing in locally")
		return s.Session.Start(ctx, u)
	}
	return s.adoptLogin(ctx, res.Value, pw)
}

func (s *Users) Logout(ctx context.Context) { s.Session.End(ctx) }

// List returns the merged user view with credentials stripped. Concurrent
// callers share one remote round trip.
func (s *Users) List(ctx context.Context) ([]models.User, error) {
	v, err, _ := s.reads.Do("users", func() (any, error) {
		return s.list(ctx)
	})
	if err != nil {
		return nil, err
	}
	return models.PublicUsers(v.([]models.User)), nil
}

func (s *Users) list(ctx context.Context) ([]models.User, error) {
	res := s.remote.ListUsers(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	local := s.cached(ctx)

	switch {
	case res.OK:
		merged := withHashes(merge.Merge(res.Value, local), local)
		_ = s.store(ctx, merged)
		return merged, nil
	case res.Unavailable():
		fallbackLog("users", "list", res.Err())
		return merge.Merge(local, nil), nil
	default:
		return nil, res.Err()
	}
}

// withHashes copies cached credentials onto merged records, which arrive
// from the API without them.
func withHashes(merged, local []models.User) []models.User {
	byKey := make(map[string]string, len(local))
	for _, u := range local {
		if u.PasswordHash != "" {
			byKey[u.NaturalKey()] = u.PasswordHash
		}
	}
	for i := range merged {
		if merged[i].PasswordHash == "" {
			merged[i].PasswordHash = byKey[merged[i].NaturalKey()]
		}
	}
	return merged
}

// UpdateByAdmin edits any user. Only admins may call it.
func (s *Users) UpdateByAdmin(ctx context.Context, id string, in models.UserUpdateRequest) (models.User, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return models.User{}, err
	}
	if err := validation.Struct(in); err != nil {
		return models.User{}, err
	}
	in.Email = models.NormalizeEmail(in.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.cached(ctx)
	oldEmail := ""
	if i := models.FindUser(users, id); i >= 0 {
		oldEmail = users[i].Email
	}

	var updated models.User
	res := s.remote.UpdateUser(ctx, id, in)
	switch {
	case res.OK:
		updated = res.Value
		if oldEmail == "" {
			oldEmail = updated.Email
		}
		s.cacheEdit(ctx, users, id, oldEmail, editOf(in))
	case res.Unavailable():
		fallbackLog("users", "update", res.Err())
		i := models.FindUser(users, id)
		if i < 0 {
			return models.User{}, apperr.NotFound("User not found")
		}
		var err error
		if updated, err = models.ApplyUserEdit(users, i, editOf(in), s.Hasher.Hash); err != nil {
			return models.User{}, err
		}
		if err := s.store(ctx, users); err != nil {
			return models.User{}, err
		}
	default:
		return models.User{}, res.Err()
	}

	if cur, ok := s.Session.Current(ctx); ok && sameEmail(cur.Email, oldEmail) {
		if err := s.Session.Patch(ctx, updated); err != nil {
			return models.User{}, err
		}
	}
	s.Bus.Publish(bus.UsersUpdated)
	return updated.Public(), nil
}

// cacheEdit mirrors an edit the API accepted. Cache failures are not fatal here.
func (s *Users) cacheEdit(ctx context.Context, users []models.User, id, email string, e models.EditUser) {
	i := models.FindUser(users, id)
	if i < 0 {
		i = models.FindUserByEmail(users, email)
	}
	if i < 0 {
		return
	}
	if _, err := models.ApplyUserEdit(users, i, e, s.Hasher.Hash); err != nil {
		logs.Component("users").WithError(err).Warn("cache disagrees with server, skipping")
		return
	}
	_ = s.store(ctx, users)
}

func editOf(in models.UserUpdateRequest) models.EditUser {
	return models.EditUser{Name: in.Name, Email: in.Email, Role: in.Role, Password: in.Password}
}

// UpdateSelf edits the signed-in user's own record and rotates the session token.
func (s *Users) UpdateSelf(ctx context.Context, in ProfileUpdate) (models.Session, error) {
	sess, err := s.requireSession(ctx)
	if err != nil {
		return models.Session{}, err
	}
	if err := validation.Struct(in); err != nil {
		return models.Session{}, err
	}
	edit := models.EditUser{Name: in.Name, Email: in.Email, Password: in.Password}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.cached(ctx)
	var updated models.User

	list := s.remote.ListUsers(ctx)
	switch {
	case list.OK:
		i := models.FindUserByEmail(list.Value, sess.Email)
		if i < 0 {
			return models.Session{}, apperr.NotFound("User not found")
		}
		id := list.Value[i].ID
		if err := s.guardAdminIdentity(list.Value[i], edit); err != nil {
			return models.Session{}, err
		}
		res := s.remote.UpdateUser(ctx, id, models.UserUpdateRequest{
			Name: in.Name, Email: models.NormalizeEmail(in.Email), Password: in.Password,
		})
		if res.Unavailable() {
			fallbackLog("users", "update-self", res.Err())
			if updated, err = s.editLocal(ctx, users, sess.Email, edit); err != nil {
				return models.Session{}, err
			}
			break
		}
		if !res.OK {
			return models.Session{}, res.Err()
		}
		updated = res.Value
		s.cacheEdit(ctx, users, id, sess.Email, edit)
	case list.Unavailable():
		fallbackLog("users", "update-self", list.Err())
		if updated, err = s.editLocal(ctx, users, sess.Email, edit); err != nil {
			return models.Session{}, err
		}
	default:
		return models.Session{}, list.Err()
	}

	next, err := s.Session.Refresh(ctx, updated.Name, updated.Email)
	if err != nil {
		return models.Session{}, err
	}
	s.Bus.Publish(bus.UsersUpdated)
	return next, nil
}

func (s *Users) guardAdminIdentity(target models.User, e models.EditUser) error {
	scratch := []models.User{target}
	_, err := models.ApplyUserEdit(scratch, 0, models.EditUser{Email: e.Email, Role: e.Role}, func(string) (string, error) { return "", nil })
	return err
}

func (s *Users) editLocal(ctx context.Context, users []models.User, email string, e models.EditUser) (models.User, error) {
	i := models.FindUserByEmail(users, email)
	if i < 0 {
		return models.User{}, apperr.NotFound("User not found")
	}
	updated, err := models.ApplyUserEdit(users, i, e, s.Hasher.Hash)
	if err != nil {
		return models.User{}, err
	}
	return updated, s.store(ctx, users)
}

// Delete removes a user. The seeded administrator cannot be deleted, and
// deleting the signed-in user signs them out.
func (s *Users) Delete(ctx context.Context, id string) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.cached(ctx)
	i := models.FindUser(users, id)
	var target models.User
	if i >= 0 {
		target = users[i]
	}

	res := s.remote.DeleteUser(ctx, id)
	switch {
	case res.OK:
	case res.Unavailable():
		fallbackLog("users", "delete", res.Err())
		if i < 0 {
			return apperr.NotFound("User not found")
		}
		if target.IsSeededAdmin() {
			return apperr.Conflict("Cannot delete admin account")
		}
	default:
		return res.Err()
	}

	if i >= 0 {
		users = append(users[:i:i], users[i+1:]...)
		if err := s.store(ctx, users); err != nil {
			return err
		}
	}
	if cur, ok := s.Session.Current(ctx); ok && sameEmail(cur.Email, target.Email) {
		s.Session.End(ctx)
	}
	s.Bus.Publish(bus.UsersUpdated)
	return nil
}

// Sync uploads the cached users so the API can merge them, then caches the
// merged result. It needs the API; there is no offline equivalent.
func (s *Users) Sync(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	local := s.cached(ctx)
	upload := make([]models.StoredUser, len(local))
	for i, u := range local {
		upload[i] = models.StoredUser{User: u}
	}
	res := s.remote.SyncUsers(ctx, upload)
	if !res.OK {
		return nil, res.Err()
	}
	merged := withHashes(merge.Merge(res.Value, local), local)
	if err := s.store(ctx, merged); err != nil {
		return nil, err
	}
	s.Bus.Publish(bus.UsersUpdated)
	return models.PublicUsers(merged), nil
}
