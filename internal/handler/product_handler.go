package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"tokoku/marketplace/internal/apperror"
	"tokoku/marketplace/internal/model"
	"tokoku/marketplace/internal/service"
)

const defaultMaxUploadSize = 10 << 20

type ProductService interface {
	List(ctx context.Context) ([]model.Product, error)
	Get(ctx context.Context, id int64) (model.Product, error)
	Create(ctx context.Context, in service.ProductInput, img *service.Image) (model.Product, error)
	Update(ctx context.Context, id int64, in service.ProductInput, img *service.Image) (model.Product, error)
	Delete(ctx context.Context, id int64) (model.Product, error)
}

type ProductHandler struct {
	svc           ProductService
	maxUploadSize int64
}

func NewProductHandler(svc ProductService, maxUploadSize int64) *ProductHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	return &ProductHandler{svc: svc, maxUploadSize: maxUploadSize}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err, "Gagal mengambil produk")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, r, err, "")
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "Gagal mengambil produk")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, img, cleanup, err := h.parseForm(w, r)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	defer cleanup()

	p, err := h.svc.Create(r.Context(), in, img)
	if err != nil {
		writeError(w, r, err, "Gagal tambah produk")
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Berhasil tambah produk", Product: p})
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, r, err, "")
		return
	}

	in, img, cleanup, err := h.parseForm(w, r)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	defer cleanup()

	p, err := h.svc.Update(r.Context(), id, in, img)
	if err != nil {
		writeError(w, r, err, "Gagal update produk")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Berhasil update produk", Product: p})
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, r, err, "")
		return
	}

	p, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "Gagal hapus produk")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Berhasil hapus produk", Product: p})
}

func productID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validation("invalid product id")
	}
	return id, nil
}

// parseForm reads the multipart product form. The image part is optional
// here; the service decides whether it is required.
func (h *ProductHandler) parseForm(w http.ResponseWriter, r *http.Request) (service.ProductInput, *service.Image, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.ProductInput{}, nil, noop, apperror.Validation("request body too large")
		}
		return service.ProductInput{}, nil, noop, apperror.Validation("invalid multipart form")
	}

	in := service.ProductInput{
		Name:     r.FormValue("nama"),
		Category: r.FormValue("jenis"),
		SellerID: strings.TrimSpace(r.FormValue("penjualId")),
	}

	price, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("harga")))
	if err != nil {
		return in, nil, noop, apperror.Validation("harga must be a number")
	}
	in.Price = price

	if raw := strings.TrimSpace(r.FormValue("stock")); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			return in, nil, noop, apperror.Validation("stock must be an integer")
		}
		in.Stock = stock
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, noop, nil
	}
	if err != nil {
		return in, nil, noop, apperror.Validation("invalid image upload")
	}
	return in, &service.Image{Filename: header.Filename, Body: file}, func() { file.Close() }, nil
}
