package handler

import (
	"context"
	"net/http"

	"tokoku/marketplace/internal/metrics"
	"tokoku/marketplace/internal/model"
	"tokoku/marketplace/internal/service"
)

type ProfileService interface {
	Register(ctx context.Context, identity, username string, role model.Role) (service.Registration, error)
}

type ProfileHandler struct {
	svc     ProfileService
	metrics *metrics.Metrics
}

func NewProfileHandler(svc ProfileService, m *metrics.Metrics) *ProfileHandler {
	return &ProfileHandler{svc: svc, metrics: m}
}

type registerRequest struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (h *ProfileHandler) RegisterBuyer(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, model.RoleBuyer)
}

func (h *ProfileHandler) RegisterSeller(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, model.RoleSeller)
}

func (h *ProfileHandler) register(w http.ResponseWriter, r *http.Request, role model.Role) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}

	reg, err := h.svc.Register(r.Context(), req.ID, req.Username, role)
	if err != nil {
		h.record(role, "failed")
		writeError(w, r, err, "Gagal simpan profil")
		return
	}

	if !reg.Created {
		h.record(role, "exists")
		writeJSON(w, http.StatusOK, messageResponse{Message: "Profil sudah ada"})
		return
	}

	h.record(role, "created")
	writeJSON(w, http.StatusCreated, reg.Profile)
}

func (h *ProfileHandler) record(role model.Role, outcome string) {
	if h.metrics != nil {
		h.metrics.ProfileRegistration(string(role), outcome)
	}
}
