package services

import (
	"context"
	"sync"

	"zxsgit/internal/apperr"
	"zxsgit/internal/bus"
	"zxsgit/internal/localstore"
	"zxsgit/internal/logs"
	"zxsgit/internal/models"
	"zxsgit/internal/validation"
)

// Purchase is one checkout. PaymentMethod defaults to credit.
type Purchase struct {
	ProductID     string               `validate:"notblank" msg:"Product is required"`
	Quantity      int                  `validate:"min=1" msg:"Quantity must be at least 1"`
	PaymentMethod models.PaymentMethod `validate:"oneof=credit bank cash installment" msg:"Unknown payment method"`
}

// Products is the truck catalog and its orders. Both exist only in the local
// store; there is no API for them.
type Products struct {
	Deps
	mu sync.Mutex
}

func NewProducts(d Deps) *Products {
	return &Products{Deps: d.withDefaults()}
}

// load returns the catalog, seeding the defaults when the slot has never been
// written. An unreadable slot yields the defaults but is left as it is.
func (s *Products) load(ctx context.Context) []models.Product {
	if !s.Local.Has(ctx, localstore.KeyProducts) {
		list := models.DefaultProducts()
		if err := s.Local.Set(ctx, localstore.KeyProducts, list); err != nil {
			logs.Component("products").WithError(err).Warn("unable to seed catalog")
		}
		return list
	}
	return localstore.Get(ctx, s.Local, localstore.KeyProducts, models.DefaultProducts())
}

func (s *Products) List(ctx context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx), nil
}

func (s *Products) Get(ctx context.Context, id string) (models.Product, error) {
	list, err := s.List(ctx)
	if err != nil {
		return models.Product{}, err
	}
	i := models.FindProduct(list, id)
	if i < 0 {
		return models.Product{}, apperr.NotFound("Product not found")
	}
	return list[i], nil
}

func (s *Products) Orders(ctx context.Context) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return localstore.Get(ctx, s.Local, localstore.KeyOrders, []models.Order{}), nil
}

// Purchase records a pending order and takes the quantity out of stock. A
// product whose stock reaches zero is marked out of stock.
func (s *Products) Purchase(ctx context.Context, in Purchase) (models.Order, error) {
	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PayCredit
	}
	if err := validation.Struct(in); err != nil {
		return models.Order{}, err
	}
	sess, ok := s.Session.Current(ctx)
	if !ok {
		return models.Order{}, apperr.Forbidden("Sign in to purchase")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products := s.load(ctx)
	i := models.FindProduct(products, in.ProductID)
	if i < 0 {
		return models.Order{}, apperr.NotFound("Product not found")
	}
	p := products[i]
	if !p.Available(in.Quantity) {
		return models.Order{}, apperr.Conflict("Insufficient stock")
	}

	order := models.Order{
		ID:            s.NewID(),
		ProductID:     p.ID,
		ProductName:   p.Name,
		Quantity:      in.Quantity,
		Total:         p.Price * int64(in.Quantity),
		PaymentMethod: in.PaymentMethod,
		Date:          s.Now().Time(),
		Status:        models.OrderPending,
		UserEmail:     sess.Email,
	}
	orders := localstore.Get(ctx, s.Local, localstore.KeyOrders, []models.Order{})
	if err := s.Local.Set(ctx, localstore.KeyOrders, append(orders, order)); err != nil {
		return models.Order{}, err
	}

	p.Stock -= in.Quantity
	if p.Stock <= 0 {
		p.InStock = false
	}
	products[i] = p
	if err := s.Local.Set(ctx, localstore.KeyProducts, products); err != nil {
		// keep orders and stock consistent
		if rerr := s.Local.Set(ctx, localstore.KeyOrders, orders); rerr != nil {
			logs.Component("products").WithError(rerr).WithField("order", order.ID).Error("unable to roll back order")
		}
		return models.Order{}, err
	}

	s.Bus.Publish(bus.ProductsUpdated)
	return order, nil
}
