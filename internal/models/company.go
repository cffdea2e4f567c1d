package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	GalleryLimit      = 5
	UnknownOwnerEmail = "unknown@zxsgit.local"
	UnknownOwnerName  = "Unknown"
)

type MediaItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	DataURL string `json:"dataUrl"`
	IsMain  bool   `json:"isMain"`
}

type GalleryImage struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	DataURL string `json:"dataUrl"`
}

type Company struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Address     string         `json:"address"`
	Phone       string         `json:"phone"`
	Website     string         `json:"website"`
	Description string         `json:"description"`
	Notes       string         `json:"notes"`
	Media       []MediaItem    `json:"media"`
	Gallery     []GalleryImage `json:"gallery"`
	OwnerEmail  string         `json:"ownerEmail"`
	OwnerName   string         `json:"ownerName"`
	// RelatedUserID mirrors RelatedUserIDs[0] for single-owner consumers.
	RelatedUserID  *string  `json:"relatedUserId"`
	RelatedUserIDs []string `json:"relatedUserIds"`
	CreatedAt      Millis   `json:"createdAt"`
	UpdatedAt      Millis   `json:"updatedAt"`
}

func (c Company) RecordID() string   { return c.ID }
func (c Company) NaturalKey() string { return "" }
func (c Company) Created() int64     { return int64(c.CreatedAt) }

// EffectiveOwner is the first related user id, or "" when there is none.
func (c Company) EffectiveOwner() string {
	if len(c.RelatedUserIDs) > 0 {
		return c.RelatedUserIDs[0]
	}
	return ""
}

// MainMedia returns the media item flagged main.
func (c Company) MainMedia() (MediaItem, bool) {
	for _, m := range c.Media {
		if m.IsMain {
			return m, true
		}
	}
	return MediaItem{}, false
}

// NormalizeMedia keeps the first item flagged main and clears the others.
// When nothing is flagged, the first item becomes main.
func NormalizeMedia(media []MediaItem) []MediaItem {
	out := make([]MediaItem, len(media))
	copy(out, media)
	main := -1
	for i := range out {
		if !out[i].IsMain {
			continue
		}
		if main < 0 {
			main = i
			continue
		}
		out[i].IsMain = false
	}
	if main < 0 && len(out) > 0 {
		out[0].IsMain = true
	}
	return out
}

// CapGallery truncates g to GalleryLimit and reports how many images were dropped.
func CapGallery(g []GalleryImage) ([]GalleryImage, int) {
	n := len(g)
	if n > GalleryLimit {
		n = GalleryLimit
	}
	out := make([]GalleryImage, n)
	copy(out, g[:n])
	return out, len(g) - n
}

// AddGalleryImages appends as many of incoming as there are free slots.
func AddGalleryImages(current, incoming []GalleryImage) (out []GalleryImage, added, rejected int) {
	free := GalleryLimit - len(current)
	if free < 0 {
		free = 0
	}
	added = len(incoming)
	if added > free {
		added = free
	}
	out = make([]GalleryImage, 0, len(current)+added)
	out = append(out, current...)
	out = append(out, incoming[:added]...)
	out, dropped := CapGallery(out)
	return out, added, len(incoming) - added + dropped
}

// GalleryRejectedMessage describes a truncation, "" when nothing was rejected.
func GalleryRejectedMessage(rejected int) string {
	if rejected <= 0 {
		return ""
	}
	return fmt.Sprintf("Gallery holds at most %d images; %d image(s) rejected", GalleryLimit, rejected)
}

// Normalize re-establishes the company invariants and returns the number of
// gallery images dropped by the cap.
func (c *Company) Normalize() int {
	c.Media = NormalizeMedia(c.Media)
	var rejected int
	c.Gallery, rejected = CapGallery(c.Gallery)
	if c.RelatedUserIDs == nil {
		c.RelatedUserIDs = []string{}
	}
	switch {
	case len(c.RelatedUserIDs) > 0:
		first := c.RelatedUserIDs[0]
		c.RelatedUserID = &first
	case c.RelatedUserID != nil && *c.RelatedUserID != "":
		c.RelatedUserIDs = []string{*c.RelatedUserID}
	default:
		c.RelatedUserID = nil
	}
	return rejected
}

// RelatedUsers is the owner selection carried by a CompanyInput: either the
// full list (RelatedUserList) or the legacy single id (SingleRelatedUser).
// A nil RelatedUsers leaves the company's owners untouched.
type RelatedUsers interface {
	relatedUsers()
}

type RelatedUserList []string

// SingleRelatedUser sets both fields from one id; a nil ID clears them.
type SingleRelatedUser struct {
	ID *string
}

func (RelatedUserList) relatedUsers()   {}
func (SingleRelatedUser) relatedUsers() {}

// CompanyInput is a create or update payload. Nil fields are "not provided".
type CompanyInput struct {
	Name        *string
	Address     *string
	Phone       *string
	Website     *string
	Description *string
	Notes       *string
	Media       *[]MediaItem
	Gallery     *[]GalleryImage
	OwnerEmail  *string
	OwnerName   *string
	Related     RelatedUsers
}

type companyInputWire struct {
	Name        *string         `json:"name,omitempty"`
	Address     *string         `json:"address,omitempty"`
	Phone       *string         `json:"phone,omitempty"`
	Website     *string         `json:"website,omitempty"`
	Description *string         `json:"description,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
	Media       *[]MediaItem    `json:"media,omitempty"`
	Gallery     *[]GalleryImage `json:"gallery,omitempty"`
	OwnerEmail  *string         `json:"ownerEmail,omitempty"`
	OwnerName   *string         `json:"ownerName,omitempty"`
}

func (in *CompanyInput) UnmarshalJSON(b []byte) error {
	var w companyInputWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(b, &keys); err != nil {
		return err
	}
	*in = CompanyInput{
		Name: w.Name, Address: w.Address, Phone: w.Phone, Website: w.Website,
		Description: w.Description, Notes: w.Notes, Media: w.Media, Gallery: w.Gallery,
		OwnerEmail: w.OwnerEmail, OwnerName: w.OwnerName,
	}
	// an explicit null still counts as "provided" and empties the list
	if _, ok := keys["media"]; ok && in.Media == nil {
		in.Media = &[]MediaItem{}
	}
	if _, ok := keys["gallery"]; ok && in.Gallery == nil {
		in.Gallery = &[]GalleryImage{}
	}
	if raw, ok := keys["relatedUserIds"]; ok {
		var ids []string
		_ = json.Unmarshal(raw, &ids)
		if ids == nil {
			ids = []string{}
		}
		in.Related = RelatedUserList(ids)
	} else if raw, ok := keys["relatedUserId"]; ok {
		var id *string
		_ = json.Unmarshal(raw, &id)
		if id != nil && *id == "" {
			id = nil
		}
		in.Related = SingleRelatedUser{ID: id}
	}
	return nil
}

func (in CompanyInput) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	put := func(k string, v *string) {
		if v != nil {
			m[k] = *v
		}
	}
	put("name", in.Name)
	put("address", in.Address)
	put("phone", in.Phone)
	put("website", in.Website)
	put("description", in.Description)
	put("notes", in.Notes)
	put("ownerEmail", in.OwnerEmail)
	put("ownerName", in.OwnerName)
	if in.Media != nil {
		m["media"] = nonNil(*in.Media)
	}
	if in.Gallery != nil {
		m["gallery"] = nonNil(*in.Gallery)
	}
	switch r := in.Related.(type) {
	case nil:
	case RelatedUserList:
		m["relatedUserIds"] = nonNil([]string(r))
	case SingleRelatedUser:
		if r.ID == nil {
			m["relatedUserId"] = nil
		} else {
			m["relatedUserId"] = *r.ID
		}
	}
	return json.Marshal(m)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Str is a helper for building CompanyInput literals.
func Str(s string) *string { return &s }

// NewCompany builds a company from a create payload. The caller has validated
// the name. The returned int is the number of gallery images dropped.
func NewCompany(id string, in CompanyInput, now Millis) (Company, int) {
	c := Company{
		ID:             id,
		OwnerEmail:     UnknownOwnerEmail,
		OwnerName:      UnknownOwnerName,
		Media:          []MediaItem{},
		Gallery:        []GalleryImage{},
		RelatedUserIDs: []string{},
		CreatedAt:      now,
	}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	rejected := ApplyCompanyInput(&c, in, now)
	return c, rejected
}

// ApplyCompanyInput merges the provided fields of in into c, stamps UpdatedAt
// and re-validates the invariants. Both the API server and the offline
// fallback run this, so they agree on the resulting record.
func ApplyCompanyInput(c *Company, in CompanyInput, now Millis) int {
	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name != "" {
			c.Name = name
		}
	}
	assign := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	assign(&c.Address, in.Address)
	assign(&c.Phone, in.Phone)
	assign(&c.Website, in.Website)
	assign(&c.Description, in.Description)
	assign(&c.Notes, in.Notes)
	assign(&c.OwnerEmail, in.OwnerEmail)
	assign(&c.OwnerName, in.OwnerName)
	if in.Media != nil {
		c.Media = append([]MediaItem{}, (*in.Media)...)
	}
	if in.Gallery != nil {
		c.Gallery = append([]GalleryImage{}, (*in.Gallery)...)
	}

	switch r := in.Related.(type) {
	case nil:
	case RelatedUserList:
		c.RelatedUserIDs = append([]string{}, r...)
		c.RelatedUserID = nil
	case SingleRelatedUser:
		c.RelatedUserID = r.ID
		c.RelatedUserIDs = []string{}
	}

	c.UpdatedAt = now
	return c.Normalize()
}
