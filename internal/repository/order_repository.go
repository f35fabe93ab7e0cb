package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"

	"tokoku/marketplace/internal/apperror"
	"tokoku/marketplace/internal/model"
)

const orderColumns = "id, jumlah_produk, status, pembeli_id, penjual_id, created_at"

// LockProducts returns the products among ids, holding a share lock on each
// row until the surrounding transaction ends so they cannot be deleted mid-order.
func (r *MarketRepository) LockProducts(ctx context.Context, ids []int64) ([]model.Product, error) {
	rows, err := r.getExecutor(ctx).Query(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ANY($1) ORDER BY id FOR SHARE", ids)
	if err != nil {
		return nil, apperror.Store(err, "failed to lock products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, apperror.Store(err, "failed to lock products")
	}
	return products, nil
}

// InsertOrder creates the order header and fills in its store-assigned fields.
func (r *MarketRepository) InsertOrder(ctx context.Context, o *model.Order) error {
	err := r.getExecutor(ctx).QueryRow(ctx,
		"INSERT INTO orders (jumlah_produk, status, pembeli_id, penjual_id) VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		o.TotalItemCount, o.Status, o.BuyerID, o.SellerID,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return referentialOrderError(err, o)
		}
		return apperror.Store(err, "failed to create order")
	}
	return nil
}

// InsertOrderLine binds a line to its order and product.
func (r *MarketRepository) InsertOrderLine(ctx context.Context, l *model.OrderLine) error {
	err := r.getExecutor(ctx).QueryRow(ctx,
		"INSERT INTO order_lines (jumlah_produk, produk_id, pesanan_id) VALUES ($1, $2, $3) RETURNING id",
		l.Quantity, l.ProductID, l.OrderID.String(),
	).Scan(&l.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.Referential(err, "product %d not found", l.ProductID)
		}
		return apperror.Store(err, "failed to create order line")
	}
	return nil
}

func referentialOrderError(err error, o *model.Order) error {
	switch name := constraintName(err); {
	case strings.Contains(name, "pembeli"):
		return apperror.Referential(err, "buyer %s not found", o.BuyerID)
	case strings.Contains(name, "penjual"):
		return apperror.Referential(err, "seller %s not found", o.SellerID)
	default:
		return apperror.Referential(err, "order references a missing record")
	}
}

// UpdateOrderStatus overwrites the status flag unconditionally.
func (r *MarketRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status bool) (model.Order, error) {
	var o model.Order
	err := r.getExecutor(ctx).QueryRow(ctx,
		"UPDATE orders SET status = $1 WHERE id = $2 RETURNING "+orderColumns,
		status, id.String(),
	).Scan(&o.ID, &o.TotalItemCount, &o.Status, &o.BuyerID, &o.SellerID, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, apperror.NotFound("order not found")
		}
		return model.Order{}, apperror.Store(err, "failed to update order")
	}
	return o, nil
}

// GetOrder loads one order with its lines and their products.
func (r *MarketRepository) GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	orders, err := r.queryOrders(ctx, "WHERE id = $1", id.String())
	if err != nil {
		return model.Order{}, err
	}
	if len(orders) == 0 {
		return model.Order{}, apperror.NotFound("order not found")
	}
	return orders[0], nil
}

// ListOrders returns orders newest first, each with lines and products joined in.
func (r *MarketRepository) ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	var (
		conds []string
		args  []any
	)
	if filter.BuyerID != "" {
		args = append(args, filter.BuyerID)
		conds = append(conds, fmt.Sprintf("pembeli_id = $%d", len(args)))
	}
	if filter.OpenOnly {
		conds = append(conds, "status = FALSE")
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	return r.queryOrders(ctx, where, args...)
}

func (r *MarketRepository) queryOrders(ctx context.Context, where string, args ...any) ([]model.Order, error) {
	rows, err := r.getExecutor(ctx).Query(ctx,
		"SELECT "+orderColumns+" FROM orders "+where+" ORDER BY created_at DESC, id", args...)
	if err != nil {
		return nil, apperror.Store(err, "failed to list orders")
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Order, error) {
		var o model.Order
		err := row.Scan(&o.ID, &o.TotalItemCount, &o.Status, &o.BuyerID, &o.SellerID, &o.CreatedAt)
		return o, err
	})
	if err != nil {
		return nil, apperror.Store(err, "failed to list orders")
	}
	if len(orders) == 0 {
		return []model.Order{}, nil
	}

	lines, err := r.linesWithProducts(ctx, lo.Map(orders, func(o model.Order, _ int) string { return o.ID.String() }))
	if err != nil {
		return nil, err
	}
	byOrder := lo.GroupBy(lines, func(l model.OrderLine) uuid.UUID { return l.OrderID })
	for i := range orders {
		orders[i].Lines = byOrder[orders[i].ID]
		if orders[i].Lines == nil {
			orders[i].Lines = []model.OrderLine{}
		}
	}
	return orders, nil
}

func (r *MarketRepository) linesWithProducts(ctx context.Context, orderIDs []string) ([]model.OrderLine, error) {
	rows, err := r.getExecutor(ctx).Query(ctx, `
		SELECT l.id, l.jumlah_produk, l.produk_id, l.pesanan_id,
		       p.id, p.nama, p.jenis, p.harga, p.stock, p.gambar_url, p.penjual_id
		FROM order_lines l
		JOIN products p ON p.id = l.produk_id
		WHERE l.pesanan_id = ANY($1::uuid[])
		ORDER BY l.id`, orderIDs)
	if err != nil {
		return nil, apperror.Store(err, "failed to load order lines")
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.OrderLine, error) {
		var (
			l model.OrderLine
			p model.Product
		)
		err := row.Scan(&l.ID, &l.Quantity, &l.ProductID, &l.OrderID,
			&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock, &p.ImageURL, &p.SellerID)
		l.Product = &p
		return l, err
	})
	if err != nil {
		return nil, apperror.Store(err, "failed to load order lines")
	}
	return lines, nil
}
