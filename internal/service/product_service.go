package service

import (
	"context"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"tokoku/marketplace/internal/apperror"
	"tokoku/marketplace/internal/model"
)

// ImageUploader stores a product image with the media host and returns its URL.
type ImageUploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

type ProductService struct {
	store           ProductStore
	images          ImageUploader
	defaultSellerID string
}

func NewProductService(store ProductStore, images ImageUploader, defaultSellerID string) *ProductService {
	return &ProductService{store: store, images: images, defaultSellerID: defaultSellerID}
}

type ProductInput struct {
	Name     string
	Category string
	Price    decimal.Decimal
	Stock    int
	SellerID string
}

type Image struct {
	Filename string
	Body     io.Reader
}

func (s *ProductService) List(ctx context.Context) ([]model.Product, error) {
	return s.store.ListProducts(ctx)
}

func (s *ProductService) Get(ctx context.Context, id int64) (model.Product, error) {
	return s.store.GetProduct(ctx, id)
}

// Create checks the seller, uploads the image, then stores the product with its URL.
func (s *ProductService) Create(ctx context.Context, in ProductInput, img *Image) (model.Product, error) {
	p, err := s.buildProduct(in)
	if err != nil {
		return model.Product{}, err
	}
	if p.SellerID == "" {
		p.SellerID = s.defaultSellerID
	}
	if p.SellerID == "" {
		return model.Product{}, apperror.Validation("penjualId is required")
	}
	if img == nil {
		return model.Product{}, apperror.Validation("No image file uploaded")
	}
	if err := s.requireSeller(ctx, p.SellerID); err != nil {
		return model.Product{}, err
	}

	if p.ImageURL, err = s.upload(ctx, img); err != nil {
		return model.Product{}, err
	}
	if err := s.store.CreateProduct(ctx, &p); err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// Update replaces the product fields. Without an image the stored URL is
// kept, and without penjualId the stored owner is kept.
func (s *ProductService) Update(ctx context.Context, id int64, in ProductInput, img *Image) (model.Product, error) {
	p, err := s.buildProduct(in)
	if err != nil {
		return model.Product{}, err
	}
	p.ID = id

	if p.SellerID != "" {
		if err := s.requireSeller(ctx, p.SellerID); err != nil {
			return model.Product{}, err
		}
	}
	if img != nil {
		if p.ImageURL, err = s.upload(ctx, img); err != nil {
			return model.Product{}, err
		}
	}
	if err := s.store.UpdateProduct(ctx, &p); err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) (model.Product, error) {
	return s.store.DeleteProduct(ctx, id)
}

func (s *ProductService) upload(ctx context.Context, img *Image) (string, error) {
	url, err := s.images.Upload(ctx, img.Filename, img.Body)
	if err != nil {
		return "", apperror.Store(err, "failed to upload image")
	}
	return url, nil
}

func (s *ProductService) requireSeller(ctx context.Context, id string) error {
	ok, err := s.store.SellerExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Referential(nil, "seller %s not found", id)
	}
	return nil
}

// maxPrice is the first value that no longer fits NUMERIC(12, 2).
var maxPrice = decimal.New(1, 10)

func (s *ProductService) buildProduct(in ProductInput) (model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Product{}, apperror.Validation("nama is required")
	}
	if in.Price.IsNegative() {
		return model.Product{}, apperror.Validation("harga must not be negative")
	}
	if in.Price.GreaterThanOrEqual(maxPrice) {
		return model.Product{}, apperror.Validation("harga must be less than %s", maxPrice)
	}
	if !in.Price.Equal(in.Price.Truncate(2)) {
		return model.Product{}, apperror.Validation("harga allows at most 2 decimal places")
	}
	if in.Stock < 0 {
		return model.Product{}, apperror.Validation("stock must not be negative")
	}

	return model.Product{
		Name:     name,
		Category: strings.TrimSpace(in.Category),
		Price:    in.Price,
		Stock:    in.Stock,
		SellerID: strings.TrimSpace(in.SellerID),
	}, nil
}
