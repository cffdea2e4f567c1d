package main

import (
	"encoding/base64"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"zxsgit/internal/models"
	"zxsgit/internal/services"
	"zxsgit/internal/termui"
)

type companyFlags struct {
	name, address, phone, website, description, notes string
	ownerEmail, ownerName                              string
	related                                            []string
	media, gallery                                     []string
}

func (f *companyFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "company name")
	fs.StringVar(&f.address, "address", "", "address")
	fs.StringVar(&f.phone, "phone", "", "phone")
	fs.StringVar(&f.website, "website", "", "website")
	fs.StringVar(&f.description, "description", "", "description")
	fs.StringVar(&f.notes, "notes", "", "notes")
	fs.StringVar(&f.ownerEmail, "owner-email", "", "owner email (default: first related user, else you)")
	fs.StringVar(&f.ownerName, "owner-name", "", "owner name")
	fs.StringSliceVar(&f.related, "related", nil, "related user ids, first is the owner")
	fs.StringSliceVar(&f.media, "media", nil, "media files, the first is main")
	fs.StringSliceVar(&f.gallery, "gallery", nil, "gallery image files")
}

// input sets only the fields whose flags were given.
func (f *companyFlags) input(fs *pflag.FlagSet) (models.CompanyInput, error) {
	var in models.CompanyInput
	str := func(flag, v string, dst **string) {
		if fs.Changed(flag) {
			*dst = models.Str(v)
		}
	}
	str("name", f.name, &in.Name)
	str("address", f.address, &in.Address)
	str("phone", f.phone, &in.Phone)
	str("website", f.website, &in.Website)
	str("description", f.description, &in.Description)
	str("notes", f.notes, &in.Notes)
	str("owner-email", f.ownerEmail, &in.OwnerEmail)
	str("owner-name", f.ownerName, &in.OwnerName)
	if fs.Changed("related") {
		in.Related = models.RelatedUserList(f.related)
	}
	if fs.Changed("media") {
		media := make([]models.MediaItem, 0, len(f.media))
		for _, p := range f.media {
			name, url, err := dataURL(p)
			if err != nil {
				return in, err
			}
			media = append(media, models.MediaItem{ID: uuid.NewString(), Name: name, DataURL: url})
		}
		in.Media = &media
	}
	if fs.Changed("gallery") {
		g, err := galleryFiles(f.gallery)
		if err != nil {
			return in, err
		}
		in.Gallery = &g
	}
	return in, nil
}

func galleryFiles(paths []string) ([]models.GalleryImage, error) {
	out := make([]models.GalleryImage, 0, len(paths))
	for _, p := range paths {
		name, url, err := dataURL(p)
		if err != nil {
			return nil, err
		}
		out = append(out, models.GalleryImage{ID: uuid.NewString(), Name: name, DataURL: url})
	}
	return out, nil
}

// dataURL inlines a file the way the browser's FileReader does.
func dataURL(path string) (string, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	mime := http.DetectContentType(raw)
	return filepath.Base(path), "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

func (c *cli) printCompanies(list []models.Company) error {
	return c.print(list, []string{"ID", "NAME", "OWNER", "MEDIA", "GALLERY"}, func(t *termui.Table) {
		for _, co := range list {
			t.AddRow(co.ID, co.Name, co.OwnerEmail, strconv.Itoa(len(co.Media)), strconv.Itoa(len(co.Gallery)))
		}
	})
}

func (c *cli) printSaved(s services.Saved, def string) error {
	if s.Message != "" {
		c.say(s.Message)
	} else {
		c.say(def)
	}
	return c.printCompanies([]models.Company{s.Company})
}

func (c *cli) companiesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "companies", Aliases: []string{"company"}, Short: "Manage companies"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List companies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := c.app.Companies.List(cmd.Context())
			if err != nil {
				return err
			}
			return c.printCompanies(list)
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			co, err := c.app.Companies.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printCompanies([]models.Company{co})
		},
	}

	var cf companyFlags
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := cf.input(cmd.Flags())
			if err != nil {
				return err
			}
			s, err := c.app.Companies.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return c.printSaved(s, "Company created")
		},
	}
	cf.bind(create.Flags())

	var uf companyFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a company; omitted flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := uf.input(cmd.Flags())
			if err != nil {
				return err
			}
			s, err := c.app.Companies.Update(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			return c.printSaved(s, "Company updated")
		},
	}
	uf.bind(update.Flags())

	addImages := &cobra.Command{
		Use:   "add-images <id> <file>...",
		Short: "Append gallery images, keeping what fits",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := galleryFiles(args[1:])
			if err != nil {
				return err
			}
			s, err := c.app.Companies.AddGallery(cmd.Context(), args[0], g)
			if err != nil {
				return err
			}
			return c.printSaved(s, "Company updated")
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a company (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Companies.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.say("Company deleted")
			return nil
		},
	}

	cmd.AddCommand(list, get, create, update, addImages, del)
	return cmd
}
