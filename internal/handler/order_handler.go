package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"tokoku/marketplace/internal/apperror"
	"tokoku/marketplace/internal/metrics"
	"tokoku/marketplace/internal/model"
	"tokoku/marketplace/internal/service"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, in service.PlaceOrderInput) (model.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status bool) (model.Order, error)
	ListOpen(ctx context.Context) ([]model.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]model.Order, error)
}

type OrderHandler struct {
	svc     OrderService
	metrics *metrics.Metrics
}

func NewOrderHandler(svc OrderService, m *metrics.Metrics) *OrderHandler {
	return &OrderHandler{svc: svc, metrics: m}
}

type orderLineRequest struct {
	Quantity  int   `json:"jumlah"`
	ProductID int64 `json:"produkId"`
}

// Status is accepted for compatibility and ignored: new orders start open.
type placeOrderRequest struct {
	TotalItemCount int                `json:"jumlahProduk"`
	Status         *bool              `json:"status"`
	BuyerID        string             `json:"pembeliId"`
	SellerID       string             `json:"penjualId"`
	Lines          []orderLineRequest `json:"pesananProduk"`
}

type updateStatusRequest struct {
	Status *bool `json:"status"`
}

func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}

	order, err := h.svc.PlaceOrder(r.Context(), service.PlaceOrderInput{
		BuyerID:        strings.TrimSpace(req.BuyerID),
		SellerID:       strings.TrimSpace(req.SellerID),
		TotalItemCount: req.TotalItemCount,
		Lines: lo.Map(req.Lines, func(l orderLineRequest, _ int) model.LineItem {
			return model.LineItem{ProductID: l.ProductID, Quantity: l.Quantity}
		}),
	})
	if err != nil {
		writeError(w, r, err, "Gagal menambahkan pemesanan")
		return
	}
	if h.metrics != nil {
		h.metrics.OrderPlaced()
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "Berhasil menambahkan pemesanan", Product: order})
}

func (h *OrderHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOpen(r.Context())
	if err != nil {
		writeError(w, r, err, "Gagal mengambil pesanan")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apperror.Validation("invalid order id"), "")
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	if req.Status == nil {
		writeError(w, r, apperror.Validation("status is required"), "")
		return
	}

	order, err := h.svc.UpdateStatus(r.Context(), id, *req.Status)
	if err != nil {
		writeError(w, r, err, "Gagal update status pesanan")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) ListByBuyer(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListByBuyer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Gagal mengambil pesanan")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}
