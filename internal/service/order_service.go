package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"tokoku/marketplace/internal/apperror"
	"tokoku/marketplace/internal/model"
)

type OrderService struct {
	store OrderStore
}

func NewOrderService(store OrderStore) *OrderService {
	return &OrderService{store: store}
}

type PlaceOrderInput struct {
	BuyerID string
	// SellerID may be empty when every product belongs to the same seller.
	SellerID string
	// TotalItemCount of zero is replaced by the sum of line quantities.
	TotalItemCount int
	Lines          []model.LineItem
}

func (in PlaceOrderInput) validate() error {
	if strings.TrimSpace(in.BuyerID) == "" {
		return apperror.Validation("pembeliId is required")
	}
	if len(in.Lines) == 0 {
		return apperror.Validation("order must contain at least one product")
	}
	if in.TotalItemCount < 0 {
		return apperror.Validation("jumlahProduk must not be negative")
	}
	for i, l := range in.Lines {
		if l.ProductID <= 0 {
			return apperror.Validation("pesananProduk[%d]: produkId must be positive", i)
		}
		if l.Quantity <= 0 {
			return apperror.Validation("pesananProduk[%d]: jumlah must be positive", i)
		}
	}
	return nil
}

// PlaceOrder creates the order header and all its lines in one transaction.
// Any line naming a missing product fails the whole order.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (model.Order, error) {
	if err := in.validate(); err != nil {
		return model.Order{}, err
	}

	total := in.TotalItemCount
	if total == 0 {
		total = lo.SumBy(in.Lines, func(l model.LineItem) int { return l.Quantity })
	}

	var order model.Order
	err := s.store.RunAtomic(ctx, func(ctx context.Context) error {
		ids := lo.Uniq(lo.Map(in.Lines, func(l model.LineItem, _ int) int64 { return l.ProductID }))

		// 1. Lock referenced products
		products, err := s.store.LockProducts(ctx, ids)
		if err != nil {
			return err
		}
		byID := lo.KeyBy(products, func(p model.Product) int64 { return p.ID })

		// 2. Every line must resolve
		if missing, _ := lo.Difference(ids, lo.Keys(byID)); len(missing) > 0 {
			return apperror.Referential(nil, "product not found: %s", joinIDs(missing))
		}

		// 3. Attribute the order to its seller
		sellerID, err := resolveSeller(in.SellerID, products)
		if err != nil {
			return err
		}

		// 4. Header
		order = model.Order{
			TotalItemCount: total,
			Status:         false,
			BuyerID:        in.BuyerID,
			SellerID:       sellerID,
		}
		if err := s.store.InsertOrder(ctx, &order); err != nil {
			return err
		}

		// 5. Lines
		order.Lines = make([]model.OrderLine, 0, len(in.Lines))
		for _, item := range in.Lines {
			line := model.OrderLine{
				Quantity:  item.Quantity,
				ProductID: item.ProductID,
				OrderID:   order.ID,
			}
			if err := s.store.InsertOrderLine(ctx, &line); err != nil {
				return err
			}
			product := byID[item.ProductID]
			line.Product = &product
			order.Lines = append(order.Lines, line)
		}
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func resolveSeller(explicit string, products []model.Product) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if !lo.ContainsBy(products, func(p model.Product) bool { return p.SellerID == explicit }) {
			return "", apperror.Validation("penjualId %s owns none of the ordered products", explicit)
		}
		return explicit, nil
	}
	sellers := lo.Uniq(lo.Map(products, func(p model.Product, _ int) string { return p.SellerID }))
	if len(sellers) != 1 {
		return "", apperror.Validation("products belong to %d sellers; penjualId is required", len(sellers))
	}
	return sellers[0], nil
}

func joinIDs(ids []int64) string {
	return strings.Join(lo.Map(ids, func(id int64, _ int) string { return fmt.Sprint(id) }), ", ")
}

// UpdateStatus overwrites the fulfillment flag. Any transition is accepted.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status bool) (model.Order, error) {
	var order model.Order
	err := s.store.RunAtomic(ctx, func(ctx context.Context) error {
		if _, err := s.store.UpdateOrderStatus(ctx, id, status); err != nil {
			return err
		}
		var err error
		order, err = s.store.GetOrder(ctx, id)
		return err
	})
	return order, err
}

// ListOpen returns orders not yet fulfilled. No orders is an empty slice.
func (s *OrderService) ListOpen(ctx context.Context) ([]model.Order, error) {
	return s.store.ListOrders(ctx, model.OrderFilter{OpenOnly: true})
}

// ListByBuyer returns every order of the buyer, open or fulfilled, newest first.
func (s *OrderService) ListByBuyer(ctx context.Context, buyerID string) ([]model.Order, error) {
	if strings.TrimSpace(buyerID) == "" {
		return nil, apperror.Validation("buyer id is required")
	}
	return s.store.ListOrders(ctx, model.OrderFilter{BuyerID: buyerID})
}
