package services

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"zxsgit/internal/apperr"
	"zxsgit/internal/bus"
	"zxsgit/internal/localstore"
	"zxsgit/internal/models"
)

// Saved is the outcome of a company write. Message is set when gallery
// images were dropped to respect the cap.
type Saved struct {
	Company  models.Company
	Rejected int
	Message  string
}

type Companies struct {
	Deps
	remote CompanyRemote
	mu     sync.Mutex
	reads  singleflight.Group
}

func NewCompanies(d Deps, r CompanyRemote) *Companies {
	return &Companies{Deps: d.withDefaults(), remote: r}
}

func (s *Companies) cached(ctx context.Context) []models.Company {
	return localstore.Get(ctx, s.Local, localstore.KeyCompanies, []models.Company{})
}

func (s *Companies) store(ctx context.Context, list []models.Company) error {
	return s.Local.Set(ctx, localstore.KeyCompanies, list)
}

func findCompany(list []models.Company, id string) int {
	for i, c := range list {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// CanEdit: admins, and the user named as owner.
func CanEdit(c models.Company, s models.Session) bool {
	return s.IsAdmin() || sameEmail(c.OwnerEmail, s.Email)
}

func (s *Companies) List(ctx context.Context) ([]models.Company, error) {
	v, err, _ := s.reads.Do("companies", func() (any, error) {
		res := s.remote.ListCompanies(ctx)
		switch {
		case res.OK:
			s.mu.Lock()
			defer s.mu.Unlock()
			list := res.Value
			if list == nil {
				list = []models.Company{}
			}
			// a cache that cannot hold the list is not an error for a read
			_ = s.store(ctx, list)
			return list, nil
		case res.Unavailable():
			fallbackLog("companies", "list", res.Err())
			return s.cached(ctx), nil
		default:
			return nil, res.Err()
		}
	})
	if err != nil {
		return nil, err
	}
	list := v.([]models.Company)
	out := make([]models.Company, len(list))
	copy(out, list)
	return out, nil
}

func (s *Companies) Get(ctx context.Context, id string) (models.Company, error) {
	res := s.remote.GetCompany(ctx, id)
	switch {
	case res.OK:
		return res.Value, nil
	case res.Unavailable():
		fallbackLog("companies", "get", res.Err())
		list := s.cached(ctx)
		if i := findCompany(list, id); i >= 0 {
			return list[i], nil
		}
		return models.Company{}, apperr.NotFound("Company not found")
	default:
		return models.Company{}, res.Err()
	}
}

// prepare enforces the media and gallery invariants on the payload before it
// leaves the process, so both paths store the same record.
func prepare(in *models.CompanyInput) int {
	rejected := 0
	if in.Media != nil {
		m := models.NormalizeMedia(*in.Media)
		in.Media = &m
	}
	if in.Gallery != nil {
		var g []models.GalleryImage
		g, rejected = models.CapGallery(*in.Gallery)
		in.Gallery = &g
	}
	return rejected
}

// resolveOwner fills in the owner the way the company form does: the first
// related user, else the signed-in user.
func (s *Companies) resolveOwner(ctx context.Context, in *models.CompanyInput, sess models.Session, signedIn bool) {
	if in.OwnerEmail != nil && in.OwnerName != nil {
		return
	}
	email, name := "", ""
	if ids, ok := in.Related.(models.RelatedUserList); ok && len(ids) > 0 {
		users := localstore.Get(ctx, s.Local, localstore.KeyUsers, []models.User{})
		if i := models.FindUser(users, ids[0]); i >= 0 {
			email, name = users[i].Email, users[i].Name
		}
	}
	if email == "" && signedIn {
		email, name = sess.Email, sess.Name
	}
	if in.OwnerEmail == nil && email != "" {
		in.OwnerEmail = models.Str(email)
	}
	if in.OwnerName == nil && name != "" {
		in.OwnerName = models.Str(name)
	}
}

func (s *Companies) Create(ctx context.Context, in models.CompanyInput) (Saved, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return Saved{}, apperr.Validation("Name is required")
	}
	sess, signedIn := s.Session.Current(ctx)
	s.resolveOwner(ctx, &in, sess, signedIn)
	rejected := prepare(&in)

	s.mu.Lock()
	defer s.mu.Unlock()

	var created models.Company
	res := s.remote.CreateCompany(ctx, in)
	switch {
	case res.OK:
		created = res.Value
		list := s.cached(ctx)
		if i := findCompany(list, created.ID); i >= 0 {
			list[i] = created
		} else {
			list = append(list, created)
		}
		if err := s.store(ctx, list); err != nil {
			return Saved{}, err
		}
	case res.Unavailable():
		fallbackLog("companies", "create", res.Err())
		var dropped int
		created, dropped = models.NewCompany(s.NewID(), in, s.Now())
		rejected += dropped
		if err := s.store(ctx, append(s.cached(ctx), created)); err != nil {
			return Saved{}, err
		}
	default:
		return Saved{}, res.Err()
	}

	s.Bus.Publish(bus.CompaniesUpdated)
	return Saved{Company: created, Rejected: rejected, Message: models.GalleryRejectedMessage(rejected)}, nil
}

// Update applies the provided fields. Only the owner or an admin may edit.
func (s *Companies) Update(ctx context.Context, id string, in models.CompanyInput) (Saved, error) {
	sess, err := s.requireSession(ctx)
	if err != nil {
		return Saved{}, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return Saved{}, apperr.Validation("Name is required")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return Saved{}, err
	}
	if !CanEdit(current, sess) {
		return Saved{}, apperr.Forbidden("You cannot edit this company")
	}
	rejected := prepare(&in)

	s.mu.Lock()
	defer s.mu.Unlock()

	var updated models.Company
	res := s.remote.UpdateCompany(ctx, id, in)
	switch {
	case res.OK:
		updated = res.Value
		list := s.cached(ctx)
		if i := findCompany(list, id); i >= 0 {
			list[i] = updated
		} else {
			list = append(list, updated)
		}
		if err := s.store(ctx, list); err != nil {
			return Saved{}, err
		}
	case res.Unavailable():
		fallbackLog("companies", "update", res.Err())
		list := s.cached(ctx)
		i := findCompany(list, id)
		if i < 0 {
			return Saved{}, apperr.NotFound("Company not found")
		}
		rejected += models.ApplyCompanyInput(&list[i], in, s.Now())
		updated = list[i]
		if err := s.store(ctx, list); err != nil {
			return Saved{}, err
		}
	default:
		return Saved{}, res.Err()
	}

	s.Bus.Publish(bus.CompaniesUpdated)
	return Saved{Company: updated, Rejected: rejected, Message: models.GalleryRejectedMessage(rejected)}, nil
}

// AddGallery appends images to a company's gallery, keeping what fits.
func (s *Companies) AddGallery(ctx context.Context, id string, images []models.GalleryImage) (Saved, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Saved{}, err
	}
	gallery, _, rejected := models.AddGalleryImages(current.Gallery, images)
	saved, err := s.Update(ctx, id, models.CompanyInput{Gallery: &gallery})
	if err != nil {
		return Saved{}, err
	}
	saved.Rejected += rejected
	saved.Message = models.GalleryRejectedMessage(saved.Rejected)
	return saved, nil
}

// Delete is reserved to admins.
func (s *Companies) Delete(ctx context.Context, id string) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.cached(ctx)
	i := findCompany(list, id)

	res := s.remote.DeleteCompany(ctx, id)
	switch {
	case res.OK:
	case res.Unavailable():
		fallbackLog("companies", "delete", res.Err())
		if i < 0 {
			return apperr.NotFound("Company not found")
		}
	default:
		return res.Err()
	}

	if i >= 0 {
		if err := s.store(ctx, append(list[:i:i], list[i+1:]...)); err != nil {
			return err
		}
	}
	s.Bus.Publish(bus.CompaniesUpdated)
	return nil
}
