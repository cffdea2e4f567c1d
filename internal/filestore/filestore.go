// Package filestore is the API server's persistence: users.json holds the user
// array and data.json holds {todos, companies}. Each mutation rewrites the
// affected document in full.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"zxsgit/internal/logs"
	"zxsgit/internal/merge"
	"zxsgit/internal/models"
	"zxsgit/internal/password"
)

const (
	UsersFile = "users.json"
	DataFile  = "data.json"
)

type document struct {
	Todos     []models.Todo    `json:"todos"`
	Companies []models.Company `json:"companies"`
}

type Store struct {
	dir    string
	hasher password.Hasher
	mu     sync.Mutex
	log    *logrus.Entry

	newID func() string
	now   func() models.Millis
}

// Open prepares dir, creating missing documents and seeding the administrator.
func Open(dir string, h password.Hasher) (*Store, error) {
	s := &Store{
		dir:    dir,
		hasher: h,
		log:    logs.Component("filestore"),
		newID:  uuid.NewString,
		now:    models.Now,
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if _, err := os.Stat(s.path(DataFile)); errors.Is(err, os.ErrNotExist) {
		if err := s.writeData(document{}); err != nil {
			return err
		}
	}
	users, err := s.readUsers()
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(models.AdminPassword)
	if err != nil {
		return err
	}
	users, changed := merge.EnsureAdmin(users, merge.AdminRecord(s.newID(), hash, s.now()))
	if !changed {
		return nil
	}
	s.log.WithField("email", models.AdminEmail).Info("seeded administrator")
	return s.writeUsers(users)
}

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// readUsers decodes users.json, hashing any plaintext password left by older tools.
func (s *Store) readUsers() ([]models.User, error) {
	var stored []models.StoredUser
	if err := s.readJSON(UsersFile, &stored); err != nil {
		return nil, err
	}
	return s.hasher.NormalizeAll(stored)
}

func (s *Store) writeUsers(users []models.User) error {
	if users == nil {
		users = []models.User{}
	}
	return s.writeJSON(UsersFile, users)
}

func (s *Store) readData() (document, error) {
	var doc document
	if err := s.readJSON(DataFile, &doc); err != nil {
		return document{}, err
	}
	return doc, nil
}

func (s *Store) writeData(doc document) error {
	if doc.Todos == nil {
		doc.Todos = []models.Todo{}
	}
	if doc.Companies == nil {
		doc.Companies = []models.Company{}
	}
	return s.writeJSON(DataFile, doc)
}

func (s *Store) readJSON(name string, v any) error {
	raw, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// writeJSON replaces name atomically with the two-space indented encoding of v.
func (s *Store) writeJSON(name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// Ready checks the data directory can be read and written.
func (s *Store) Ready(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.ReadFile(s.path(UsersFile)); err != nil {
		return err
	}
	f, err := os.CreateTemp(s.dir, ".ready-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
