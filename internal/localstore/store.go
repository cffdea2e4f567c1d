// Package localstore is the client-side persistent cache: a handful of named
// slots, each holding one JSON document, on top of a pluggable Backend.
package localstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"zxsgit/internal/apperr"
	"zxsgit/internal/logs"
)

// Slot keys. Each holds a JSON array or object mirroring the server shapes.
const (
	KeySession   = "zxs-auth-session"
	KeyUsers     = "zxs-users"
	KeyTodos     = "zxs-todos-all"
	KeyCompanies = "zxs-companies"
	KeyProducts  = "zxs-products"
	KeyOrders    = "zxs-orders"
)

// ErrQuotaExceeded is returned by a Backend that has no room left.
var ErrQuotaExceeded = errors.New("localstore: quota exceeded")

type Backend interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Store serialises values into a Backend. Failures are contained: reads fall
// back to a default and writes only report running out of space.
type Store struct {
	b        Backend
	maxValue int
	log      *logrus.Entry
}

type Option func(*Store)

// WithMaxValueBytes rejects single documents larger than n as quota failures.
func WithMaxValueBytes(n int) Option {
	return func(s *Store) { s.maxValue = n }
}

func New(b Backend, opts ...Option) *Store {
	s := &Store{b: b, log: logs.Component("localstore")}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get decodes the document under key into a T. A missing key, a backend
// failure or an undecodable document all yield def.
func Get[T any](ctx context.Context, s *Store, key string, def T) T {
	raw, ok, err := s.b.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("unable to load")
		return def
	}
	if !ok || len(raw) == 0 {
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.log.WithError(err).WithField("key", key).Error("unable to parse")
		return def
	}
	return v
}

// Has reports whether key holds a document, decodable or not. Backend
// failures count as missing.
func (s *Store) Has(ctx context.Context, key string) bool {
	raw, ok, err := s.b.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("unable to load")
		return false
	}
	return ok && len(raw) > 0
}

// Set stores v under key. Only a quota failure is returned, as a StorageFull
// error; anything else is logged and dropped.
func (s *Store) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("unable to encode")
		return nil
	}
	if s.maxValue > 0 && len(raw) > s.maxValue {
		s.log.WithField("key", key).WithField("bytes", len(raw)).Error("value exceeds quota")
		return apperr.StorageFull(ErrQuotaExceeded)
	}
	if err := s.b.Set(ctx, key, raw); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			s.log.WithError(err).WithField("key", key).Error("storage full")
			return apperr.StorageFull(err)
		}
		s.log.WithError(err).WithField("key", key).Error("unable to save")
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) {
	if err := s.b.Remove(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Error("unable to remove")
	}
}

func (s *Store) Close() error { return s.b.Close() }
