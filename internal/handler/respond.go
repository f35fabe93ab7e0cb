package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"tokoku/marketplace/internal/apperror"
	"tokoku/marketplace/internal/logger"
)

const maxJSONBody = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
	Product any    `json:"product,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// writeError maps err to its status code; an expired request deadline is 504.
// Store failures are logged and reported with fallback instead of the
// internal message when it is set.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		logger.FromContext(r.Context()).Warn("request timed out",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "request timed out"})
		return
	}

	status := apperror.HTTPStatus(apperror.KindOf(err))
	msg := apperror.PublicMessage(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		if fallback != "" {
			msg = fallback
		}
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err == io.EOF {
			return apperror.Validation("request body is empty")
		}
		return apperror.Validation("invalid request body")
	}
	return nil
}
