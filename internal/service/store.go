package service

import (
	"context"

	"github.com/google/uuid"

	"tokoku/marketplace/internal/model"
)

// Transactor runs fn in one store transaction; calls made with the ctx passed
// to fn take part in it.
type Transactor interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
}

type ProfileStore interface {
	Transactor
	BuyerExists(ctx context.Context, id string) (bool, error)
	SellerExists(ctx context.Context, id string) (bool, error)
	ClaimIdentity(ctx context.Context, id string, role model.Role) (bool, error)
	InsertProfile(ctx context.Context, p model.Profile) (model.Profile, error)
}

type OrderStore interface {
	Transactor
	LockProducts(ctx context.Context, ids []int64) ([]model.Product, error)
	InsertOrder(ctx context.Context, o *model.Order) error
	InsertOrderLine(ctx context.Context, l *model.OrderLine) error
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status bool) (model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error)
	ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)
}

type ProductStore interface {
	SellerExists(ctx context.Context, id string) (bool, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id int64) (model.Product, error)
}
