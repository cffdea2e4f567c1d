package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zxsgit/internal/apperr"
	"zxsgit/internal/bus"
	"zxsgit/internal/models"
)

func images(n int) []models.GalleryImage {
	out := make([]models.GalleryImage, n)
	for i := range out {
		out[i] = models.GalleryImage{ID: fmt.Sprintf("g%d", i+1), Name: "g", DataURL: "data:,"}
	}
	return out
}

// comparable drops the fields that legitimately differ between an online and
// an offline write.
func comparable(c models.Company) models.Company {
	c.ID, c.CreatedAt, c.UpdatedAt = "", 0, 0
	return c
}

func TestCreateCompanyRequiresName(t *testing.T) {
	f := newFixture(t)
	for _, in := range []models.CompanyInput{{}, {Name: models.Str("   ")}} {
		_, err := f.comps.Create(context.Background(), in)
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Equal(t, "Name is required", apperr.Message(err))
	}
	assert.Empty(t, f.api.calls)
}

func TestCreateCompanyGalleryCap(t *testing.T) {
	var saved []Saved
	for _, offline := range []bool{false, true} {
		f := newFixture(t)
		f.signInAdmin(t)
		f.api.offline.Store(offline)
		g := images(6)
		media := []models.MediaItem{{ID: "m1"}, {ID: "m2"}}

		s, err := f.comps.Create(context.Background(), models.CompanyInput{
			Name: models.Str("Acme"), Gallery: &g, Media: &media,
		})
		require.NoError(t, err, "offline=%v", offline)
		assert.Len(t, s.Company.Gallery, models.GalleryLimit)
		assert.Equal(t, 1, s.Rejected)
		assert.Equal(t, "Gallery holds at most 5 images; 1 image(s) rejected", s.Message)
		assert.True(t, s.Company.Media[0].IsMain)
		assert.Equal(t, 1, f.fired[bus.CompaniesUpdated])

		list, err := f.comps.List(context.Background())
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, s.Company.ID, list[0].ID)
		saved = append(saved, s)
	}
	assert.Equal(t, comparable(saved[0].Company), comparable(saved[1].Company))
}

func TestCreateCompanyOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	anon, err := f.comps.Create(ctx, models.CompanyInput{Name: models.Str("Anon")})
	require.NoError(t, err)
	assert.Equal(t, models.UnknownOwnerEmail, anon.Company.OwnerEmail)

	register(t, f, "Ann", "ann@x.io", "pw")
	mine, err := f.comps.Create(ctx, models.CompanyInput{Name: models.Str("Mine")})
	require.NoError(t, err)
	assert.Equal(t, "ann@x.io", mine.Company.OwnerEmail)
	assert.Equal(t, "Ann", mine.Company.OwnerName)

	register(t, f, "Bob", "bob@x.io", "pw")
	bobID := idOf(t, f, "bob@x.io")
	f.signInAdmin(t)
	theirs, err := f.comps.Create(ctx, models.CompanyInput{
		Name:    models.Str("Theirs"),
		Related: models.RelatedUserList{bobID},
	})
	require.NoError(t, err)
	assert.Equal(t, "bob@x.io", theirs.Company.OwnerEmail)
	assert.Equal(t, "Bob", theirs.Company.OwnerName)
	require.NotNil(t, theirs.Company.RelatedUserID)
	assert.Equal(t, bobID, *theirs.Company.RelatedUserID)
}

func TestUpdateCompanyPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.comps.Update(ctx, "x", models.CompanyInput{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	register(t, f, "Ann", "ann@x.io", "pw")
	s, err := f.comps.Create(ctx, models.CompanyInput{Name: models.Str("Acme")})
	require.NoError(t, err)
	id := s.Company.ID

	register(t, f, "Bob", "bob@x.io", "pw")
	_, err = f.comps.Update(ctx, id, models.CompanyInput{Phone: models.Str("1")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	f.signIn(t, "ANN@x.io", "pw")
	up, err := f.comps.Update(ctx, id, models.CompanyInput{Phone: models.Str("1"), Name: models.Str("")})
	assert.ErrorIs(t, err, apperr.ErrValidation, "an explicit blank name is rejected")
	up, err = f.comps.Update(ctx, id, models.CompanyInput{Phone: models.Str("1")})
	require.NoError(t, err)
	assert.Equal(t, "1", up.Company.Phone)
	assert.Equal(t, "Acme", up.Company.Name)

	f.signInAdmin(t)
	up, err = f.comps.Update(ctx, id, models.CompanyInput{Notes: models.Str("checked")})
	require.NoError(t, err)
	assert.Equal(t, "checked", up.Company.Notes)
	assert.Equal(t, "1", up.Company.Phone)

	_, err = f.comps.Update(ctx, "missing", models.CompanyInput{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateCompanyOfflineMatchesOnline(t *testing.T) {
	var out []models.Company
	for _, offline := range []bool{false, true} {
		f := newFixture(t)
		ctx := context.Background()
		f.signInAdmin(t)
		s, err := f.comps.Create(ctx, models.CompanyInput{Name: models.Str("Acme"), Website: models.Str("a.io")})
		require.NoError(t, err)
		_, err = f.comps.List(ctx)
		require.NoError(t, err)

		f.api.offline.Store(offline)
		media := []models.MediaItem{{ID: "a", IsMain: true}, {ID: "b", IsMain: true}}
		up, err := f.comps.Update(ctx, s.Company.ID, models.CompanyInput{
			Media:   &media,
			Related: models.SingleRelatedUser{ID: models.Str("u9")},
		})
		require.NoError(t, err, "offline=%v", offline)
		assert.Equal(t, 2, f.fired[bus.CompaniesUpdated])
		out = append(out, up.Company)

		got, err := f.comps.Get(ctx, s.Company.ID)
		require.NoError(t, err)
		assert.Equal(t, up.Company, got)
	}
	assert.Equal(t, comparable(out[0]), comparable(out[1]))
	assert.False(t, out[1].Media[1].IsMain)
	assert.Equal(t, []string{"u9"}, out[1].RelatedUserIDs)
}

func TestAddGallery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signInAdmin(t)
	g := images(4)
	s, err := f.comps.Create(ctx, models.CompanyInput{Name: models.Str("Acme"), Gallery: &g})
	require.NoError(t, err)
	assert.Empty(t, s.Message)

	more := images(3)
	s, err = f.comps.AddGallery(ctx, s.Company.ID, more)
	require.NoError(t, err)
	assert.Len(t, s.Company.Gallery, 5)
	assert.Equal(t, 2, s.Rejected)
	assert.Equal(t, "Gallery holds at most 5 images; 2 image(s) rejected", s.Message)
}

func TestDeleteCompany(t *testing.T) {
	for _, offline := range []bool{false, true} {
		f := newFixture(t)
		ctx := context.Background()
		register(t, f, "Ann", "ann@x.io", "pw")
		s, err := f.comps.Create(ctx, models.CompanyInput{Name: models.Str("Acme")})
		require.NoError(t, err)
		f.api.offline.Store(offline)

		assert.ErrorIs(t, f.comps.Delete(ctx, s.Company.ID), apperr.ErrForbidden, "owners cannot delete")

		f.signInAdmin(t)
		fired := f.fired[bus.CompaniesUpdated]

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = f.comps.Delete(ctx, s.Company.ID)
			}(i)
		}
		wg.Wait()

		failures := 0
		for _, err := range errs {
			if err != nil {
				failures++
				assert.ErrorIs(t, err, apperr.ErrNotFound, "offline=%v", offline)
			}
		}
		assert.Equal(t, 1, failures)
		assert.Equal(t, fired+1, f.fired[bus.CompaniesUpdated])

		list, err := f.comps.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	}
}

func TestListCompaniesOffline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signInAdmin(t)
	_, err := f.comps.Create(ctx, models.CompanyInput{Name: models.Str("Acme")})
	require.NoError(t, err)

	f.api.offline.Store(true)
	list, err := f.comps.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Acme", list[0].Name)

	_, err = f.comps.Get(ctx, "missing")
	assert.Equal(t, "Company not found", apperr.Message(err))
}

func TestCanEdit(t *testing.T) {
	c := models.Company{OwnerEmail: "Ann@x.io"}
	assert.True(t, CanEdit(c, models.Session{Email: "ann@X.io", Role: models.RoleMember}))
	assert.True(t, CanEdit(c, models.Session{Email: "z@x.io", Role: models.RoleAdmin}))
	assert.False(t, CanEdit(c, models.Session{Email: "bob@x.io", Role: models.RoleMember}))
	assert.False(t, CanEdit(models.Company{}, models.Session{Role: models.RoleMember}))
}
