package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"

	"tokoku/marketplace/internal/apperror"
	"tokoku/marketplace/internal/model"
)

const productColumns = "id, nama, jenis, harga, stock, gambar_url, penjual_id"

func scanProduct(row pgx.CollectableRow) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock, &p.ImageURL, &p.SellerID)
	return p, err
}

// ListProducts returns every product with the order lines that reference it.
func (r *MarketRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.getExecutor(ctx).Query(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		return nil, apperror.Store(err, "failed to list products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, apperror.Store(err, "failed to list products")
	}
	if err := r.attachProductLines(ctx, products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

func (r *MarketRepository) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	rows, err := r.getExecutor(ctx).Query(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if err != nil {
		return model.Product{}, apperror.Store(err, "failed to get product")
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, apperror.NotFound("product not found")
		}
		return model.Product{}, apperror.Store(err, "failed to get product")
	}

	products := []model.Product{p}
	if err := r.attachProductLines(ctx, products); err != nil {
		return model.Product{}, err
	}
	return products[0], nil
}

func (r *MarketRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	err := r.getExecutor(ctx).QueryRow(ctx,
		"INSERT INTO products (nama, jenis, harga, stock, gambar_url, penjual_id) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		p.Name, p.Category, p.Price, p.Stock, p.ImageURL, p.SellerID,
	).Scan(&p.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.Referential(err, "seller %s not found", p.SellerID)
		}
		return apperror.Store(err, "failed to create product")
	}
	return nil
}

// UpdateProduct overwrites the editable fields. An empty ImageURL or SellerID
// keeps the stored value.
func (r *MarketRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
	rows, err := r.getExecutor(ctx).Query(ctx, `
		UPDATE products
		SET nama = $1, jenis = $2, harga = $3, stock = $4,
		    gambar_url = COALESCE(NULLIF($5, ''), gambar_url),
		    penjual_id = COALESCE(NULLIF($6, ''), penjual_id)
		WHERE id = $7
		RETURNING `+productColumns,
		p.Name, p.Category, p.Price, p.Stock, p.ImageURL, p.SellerID, p.ID)
	if err != nil {
		return apperror.Store(err, "failed to update product")
	}
	updated, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return apperror.NotFound("product not found")
		case isForeignKeyViolation(err):
			return apperror.Referential(err, "seller %s not found", p.SellerID)
		}
		return apperror.Store(err, "failed to update product")
	}
	*p = updated
	return nil
}

// DeleteProduct removes a product no order line refers to.
func (r *MarketRepository) DeleteProduct(ctx context.Context, id int64) (model.Product, error) {
	rows, err := r.getExecutor(ctx).Query(ctx, "DELETE FROM products WHERE id = $1 RETURNING "+productColumns, id)
	if err != nil {
		return model.Product{}, apperror.Store(err, "failed to delete product")
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return model.Product{}, apperror.NotFound("product not found")
		case isForeignKeyViolation(err):
			return model.Product{}, apperror.Conflict(err, "product %d is referenced by orders", id)
		}
		return model.Product{}, apperror.Store(err, "failed to delete product")
	}
	return p, nil
}

// attachProductLines fills Lines of each product with its order lines and their order headers.
func (r *MarketRepository) attachProductLines(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := lo.Map(products, func(p model.Product, _ int) int64 { return p.ID })

	rows, err := r.getExecutor(ctx).Query(ctx, `
		SELECT l.id, l.jumlah_produk, l.produk_id, l.pesanan_id,
		       o.id, o.jumlah_produk, o.status, o.pembeli_id, o.penjual_id, o.created_at
		FROM order_lines l
		JOIN orders o ON o.id = l.pesanan_id
		WHERE l.produk_id = ANY($1)
		ORDER BY l.id`, ids)
	if err != nil {
		return apperror.Store(err, "failed to load product order lines")
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.OrderLine, error) {
		var (
			l model.OrderLine
			o model.Order
		)
		err := row.Scan(&l.ID, &l.Quantity, &l.ProductID, &l.OrderID,
			&o.ID, &o.TotalItemCount, &o.Status, &o.BuyerID, &o.SellerID, &o.CreatedAt)
		l.Order = &o
		return l, err
	})
	if err != nil {
		return apperror.Store(err, "failed to load product order lines")
	}

	byProduct := lo.GroupBy(lines, func(l model.OrderLine) int64 { return l.ProductID })
	for i := range products {
		products[i].Lines = byProduct[products[i].ID]
	}
	return nil
}
