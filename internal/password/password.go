// Package password hashes and verifies user credentials.
//
// Three schemes are understood. New hashes use the configured one; Verify
// detects the scheme from the stored value so documents written under an
// older setting keep working.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"zxsgit/internal/models"
)

type Scheme string

const (
	// SchemeSHA256 is the legacy unsalted digest: base64(sha256(password)).
	SchemeSHA256   Scheme = "sha256"
	SchemeBcrypt   Scheme = "bcrypt"
	SchemeArgon2id Scheme = "argon2id"
)

func (s Scheme) Valid() bool {
	switch s {
	case SchemeSHA256, SchemeBcrypt, SchemeArgon2id:
		return true
	}
	return false
}

// argon2id parameters
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 1
	argonKeyLen  = 32
	argonSaltLen = 16
)

type Hasher struct {
	Scheme Scheme
}

func New(s Scheme) Hasher {
	if !s.Valid() {
		s = SchemeSHA256
	}
	return Hasher{Scheme: s}
}

func (h Hasher) Hash(plain string) (string, error) {
	switch h.Scheme {
	case SchemeBcrypt:
		b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("bcrypt: %w", err)
		}
		return string(b), nil
	case SchemeArgon2id:
		salt := make([]byte, argonSaltLen)
		if _, err := rand.Read(salt); err != nil {
			return "", fmt.Errorf("argon2 salt: %w", err)
		}
		key := argon2.IDKey([]byte(plain), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
		return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
			argon2.Version, argonMemory, argonTime, argonThreads,
			base64.RawStdEncoding.EncodeToString(salt),
			base64.RawStdEncoding.EncodeToString(key)), nil
	default:
		return Legacy(plain), nil
	}
}

// Legacy computes the unsalted digest found in existing data files.
func Legacy(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Verify reports whether plain matches the stored hash, whatever its scheme.
func Verify(stored, plain string) bool {
	switch {
	case stored == "":
		return false
	case strings.HasPrefix(stored, "$2a$"), strings.HasPrefix(stored, "$2b$"), strings.HasPrefix(stored, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil
	case strings.HasPrefix(stored, "$argon2id$"):
		return verifyArgon(stored, plain)
	default:
		return subtle.ConstantTimeCompare([]byte(stored), []byte(Legacy(plain))) == 1
	}
}

func verifyArgon(stored, plain string) bool {
	// $argon2id$v=19$m=65536,t=1,p=1$salt$key
	parts := strings.Split(stored, "$")
	if len(parts) != 6 {
		return false
	}
	var mem, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &t, &p); err != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(plain), salt, t, mem, p, uint32(len(key)))
	return subtle.ConstantTimeCompare(got, key) == 1
}

// Normalize collapses a decoded StoredUser into a User holding only a hash.
// An existing hash wins; a plaintext password is hashed only when there is none.
func (h Hasher) Normalize(su models.StoredUser) (models.User, error) {
	u := su.User
	if u.PasswordHash == "" && su.Password != "" {
		hash, err := h.Hash(su.Password)
		if err != nil {
			return models.User{}, err
		}
		u.PasswordHash = hash
	}
	return u, nil
}

// NormalizeAll applies Normalize to every record.
func (h Hasher) NormalizeAll(in []models.StoredUser) ([]models.User, error) {
	out := make([]models.User, 0, len(in))
	for _, su := range in {
		u, err := h.Normalize(su)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}
