// Package handler exposes the catalog and checkout engine over HTTP JSON.
// The storefront UI is a separate deployment; this API is its backend.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sekarjagad/batik-store/internal/domain/catalog"
	"github.com/sekarjagad/batik-store/internal/domain/checkout"
)

// Handler serves the storefront API.
type Handler struct {
	loader   *catalog.Loader
	checkout *checkout.Service
}

// New constructs a Handler with the required domain dependencies.
func New(loader *catalog.Loader, checkoutSvc *checkout.Service) *Handler {
	return &Handler{
		loader:   loader,
		checkout: checkoutSvc,
	}
}

// Register installs the API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.Products)
	mux.HandleFunc("POST /api/checkout", h.Checkout)
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zctx.From(r.Context()).Error("Encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Code: status, Message: msg})
}
