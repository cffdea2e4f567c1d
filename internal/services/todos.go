package services

import (
	"context"
	"strings"
	"sync"

	"zxsgit/internal/apperr"
	"zxsgit/internal/bus"
	"zxsgit/internal/localstore"
	"zxsgit/internal/models"
)

// Todos keeps the shared todo board. The API only stores the whole list, so
// every change is a read-modify-write of the collection.
type Todos struct {
	Deps
	remote TodoRemote
	mu     sync.Mutex
}

func NewTodos(d Deps, r TodoRemote) *Todos {
	return &Todos{Deps: d.withDefaults(), remote: r}
}

func (s *Todos) cached(ctx context.Context) []models.Todo {
	return localstore.Get(ctx, s.Local, localstore.KeyTodos, []models.Todo{})
}

// load reports whether the list came from the API.
func (s *Todos) load(ctx context.Context) ([]models.Todo, bool, error) {
	res := s.remote.ListTodos(ctx)
	switch {
	case res.OK:
		list := res.Value
		if list == nil {
			list = []models.Todo{}
		}
		_ = s.Local.Set(ctx, localstore.KeyTodos, list)
		return list, true, nil
	case res.Unavailable():
		fallbackLog("todos", "list", res.Err())
		return s.cached(ctx), false, nil
	default:
		return nil, false, res.Err()
	}
}

// save writes list to the API when it was read from there, and always to the cache.
func (s *Todos) save(ctx context.Context, list []models.Todo, online bool) error {
	if online {
		res := s.remote.SaveTodos(ctx, list)
		if !res.OK && !res.Unavailable() {
			return res.Err()
		}
		if res.Unavailable() {
			fallbackLog("todos", "save", res.Err())
		}
	}
	if err := s.Local.Set(ctx, localstore.KeyTodos, list); err != nil {
		return err
	}
	s.Bus.Publish(bus.TodosUpdated)
	return nil
}

func (s *Todos) List(ctx context.Context) ([]models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, _, err := s.load(ctx)
	return list, err
}

func (s *Todos) Add(ctx context.Context, text string) (models.Todo, error) {
	sess, err := s.requireSession(ctx)
	if err != nil {
		return models.Todo{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Todo{}, apperr.Validation("Todo text is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list, online, err := s.load(ctx)
	if err != nil {
		return models.Todo{}, err
	}
	t := models.Todo{
		ID: s.NewID(), Text: text, CreatedAt: s.Now(),
		UserEmail: sess.Email, UserName: sess.Name,
	}
	if err := s.save(ctx, append(list, t), online); err != nil {
		return models.Todo{}, err
	}
	return t, nil
}

// editable locates id and checks the signed-in user may change it.
func (s *Todos) editable(list []models.Todo, id string, sess models.Session) (int, error) {
	for i, t := range list {
		if t.ID != id {
			continue
		}
		if !t.EditableBy(sess) {
			return -1, apperr.Forbidden("You can only change your own todos")
		}
		return i, nil
	}
	return -1, apperr.NotFound("Todo not found")
}

func (s *Todos) Toggle(ctx context.Context, id string) (models.Todo, error) {
	sess, err := s.requireSession(ctx)
	if err != nil {
		return models.Todo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list, online, err := s.load(ctx)
	if err != nil {
		return models.Todo{}, err
	}
	i, err := s.editable(list, id, sess)
	if err != nil {
		return models.Todo{}, err
	}
	list[i].Done = !list[i].Done
	if err := s.save(ctx, list, online); err != nil {
		return models.Todo{}, err
	}
	return list[i], nil
}

func (s *Todos) Remove(ctx context.Context, id string) error {
	sess, err := s.requireSession(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list, online, err := s.load(ctx)
	if err != nil {
		return err
	}
	i, err := s.editable(list, id, sess)
	if err != nil {
		return err
	}
	return s.save(ctx, append(list[:i:i], list[i+1:]...), online)
}
