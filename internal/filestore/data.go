package filestore

import (
	"context"
	"strings"

	"zxsgit/internal/apperr"
	"zxsgit/internal/models"
)

func (s *Store) Todos(ctx context.Context) ([]models.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.readData()
	if err != nil {
		return nil, err
	}
	if doc.Todos == nil {
		doc.Todos = []models.Todo{}
	}
	return doc.Todos, nil
}

// SaveTodos replaces the todo list.
func (s *Store) SaveTodos(ctx context.Context, todos []models.Todo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.readData()
	if err != nil {
		return err
	}
	doc.Todos = todos
	return s.writeData(doc)
}

func (s *Store) Companies(ctx context.Context) ([]models.Company, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.readData()
	if err != nil {
		return nil, err
	}
	if doc.Companies == nil {
		doc.Companies = []models.Company{}
	}
	return doc.Companies, nil
}

func (s *Store) Company(ctx context.Context, id string) (models.Company, error) {
	list, err := s.Companies(ctx)
	if err != nil {
		return models.Company{}, err
	}
	for _, c := range list {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Company{}, apperr.NotFound("Company not found")
}

// CreateCompany stores a new company and reports how many gallery images were dropped.
func (s *Store) CreateCompany(ctx context.Context, in models.CompanyInput) (models.Company, int, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return models.Company{}, 0, apperr.Validation("Name is required")
	}
	if err := ctx.Err(); err != nil {
		return models.Company{}, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readData()
	if err != nil {
		return models.Company{}, 0, err
	}
	c, rejected := models.NewCompany(s.newID(), in, s.now())
	doc.Companies = append(doc.Companies, c)
	if err := s.writeData(doc); err != nil {
		return models.Company{}, 0, err
	}
	return c, rejected, nil
}

func (s *Store) UpdateCompany(ctx context.Context, id string, in models.CompanyInput) (models.Company, int, error) {
	if err := ctx.Err(); err != nil {
		return models.Company{}, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readData()
	if err != nil {
		return models.Company{}, 0, err
	}
	for i := range doc.Companies {
		if doc.Companies[i].ID != id {
			continue
		}
		rejected := models.ApplyCompanyInput(&doc.Companies[i], in, s.now())
		if err := s.writeData(doc); err != nil {
			return models.Company{}, 0, err
		}
		s.log.WithField("company", id).
			WithField("media", len(doc.Companies[i].Media)).
			WithField("gallery", len(doc.Companies[i].Gallery)).
			Debug("company updated")
		return doc.Companies[i], rejected, nil
	}
	return models.Company{}, 0, apperr.NotFound("Company not found")
}

func (s *Store) DeleteCompany(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readData()
	if err != nil {
		return err
	}
	for i, c := range doc.Companies {
		if c.ID == id {
			doc.Companies = append(doc.Companies[:i:i], doc.Companies[i+1:]...)
			return s.writeData(doc)
		}
	}
	return apperr.NotFound("Company not found")
}
