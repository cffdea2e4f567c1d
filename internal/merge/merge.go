// Package merge reconciles record sets held by the remote API and the local cache.
package merge

import (
	"sort"

	"zxsgit/internal/models"
)

// Record is what Merge needs to know about an entity.
type Record interface {
	RecordID() string
	// NaturalKey is a second identity, already normalised. "" means none.
	NaturalKey() string
	Created() int64
}

var adminKey = models.NormalizeEmail(models.AdminEmail)

// Merge combines primary and secondary into one de-duplicated view.
//
// Records are taken from primary first. A record is dropped when its id or
// natural key was already taken, so primary wins every conflict and the admin
// email can appear only once. The result is ordered by creation time; ties
// keep insertion order. Merge(xs, xs) returns the same set as Merge(xs, nil).
func Merge[T Record](primary, secondary []T) []T {
	out := make([]T, 0, len(primary)+len(secondary))
	ids := make(map[string]struct{}, cap(out))
	keys := make(map[string]struct{}, cap(out))

	add := func(r T) {
		id, key := r.RecordID(), r.NaturalKey()
		if id != "" {
			if _, ok := ids[id]; ok {
				return
			}
		}
		if key != "" {
			if _, ok := keys[key]; ok {
				return
			}
		}
		if id != "" {
			ids[id] = struct{}{}
		}
		if key != "" {
			keys[key] = struct{}{}
		}
		out = append(out, r)
	}
	for _, r := range primary {
		add(r)
	}
	for _, r := range secondary {
		add(r)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Created() < out[j].Created() })
	return out
}

// HasAdmin reports whether users contains the seeded administrator.
func HasAdmin(users []models.User) bool {
	for _, u := range users {
		if u.NaturalKey() == adminKey {
			return true
		}
	}
	return false
}

// AdminRecord builds the seeded administrator.
func AdminRecord(id, passwordHash string, now models.Millis) models.User {
	return models.User{
		ID:           id,
		Name:         models.AdminName,
		Email:        models.AdminEmail,
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
		CreatedAt:    now,
	}
}

// EnsureAdmin appends the administrator when it is missing and forces the
// admin role on the record that carries the admin email.
func EnsureAdmin(users []models.User, admin models.User) ([]models.User, bool) {
	for i := range users {
		if users[i].NaturalKey() == adminKey {
			if users[i].Role != models.RoleAdmin {
				users[i].Role = models.RoleAdmin
				return users, true
			}
			return users, false
		}
	}
	return append(users, admin), true
}

// Upsert folds incoming users into existing, matching by email and then id.
//
// A matched record keeps its id, role and creation time; incoming name and
// password hash replace the stored ones when non-empty. Unmatched incoming
// users are appended, given an id from newID when they arrive without one.
// Users without an email are ignored.
func Upsert(existing, incoming []models.User, newID func() string, now models.Millis) []models.User {
	out := Merge(existing, nil)
	byKey := make(map[string]int, len(out))
	byID := make(map[string]int, len(out))
	for i, u := range out {
		byKey[u.NaturalKey()] = i
		byID[u.ID] = i
	}

	for _, in := range incoming {
		key := in.NaturalKey()
		if key == "" {
			continue
		}
		idx, ok := byKey[key]
		if !ok && in.ID != "" {
			idx, ok = byID[in.ID]
		}
		if ok {
			cur := &out[idx]
			if in.Name != "" {
				cur.Name = in.Name
			}
			if in.PasswordHash != "" {
				cur.PasswordHash = in.PasswordHash
			}
			continue
		}

		u := in
		u.Email = key
		if u.ID == "" {
			u.ID = newID()
		}
		switch {
		case key == adminKey:
			u.Role = models.RoleAdmin
		case !u.Role.Valid():
			u.Role = models.RoleMember
		}
		if u.CreatedAt == 0 {
			u.CreatedAt = now
		}
		byKey[key] = len(out)
		byID[u.ID] = len(out)
		out = append(out, u)
	}
	return out
}
