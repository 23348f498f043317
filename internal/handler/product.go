package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sekarjagad/batik-store/internal/domain/catalog"
	"github.com/sekarjagad/batik-store/internal/rowstore"
)

type productResponse struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Price    float64           `json:"price"`
	Sizes    []string          `json:"sizes,omitempty"`
	Colors   []string          `json:"colors,omitempty"`
	Stock    int               `json:"stock"`
	Variants []variantResponse `json:"variants"`
}

type variantResponse struct {
	VariantID string  `json:"variantId"`
	Size      *string `json:"size,omitempty"`
	Color     *string `json:"color,omitempty"`
	Stock     int     `json:"stock"`
}

// Products returns the current catalog snapshot. Every request rebuilds the
// catalog from the row store; the sheet can change between requests.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	cat, err := h.loader.Load(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("Load catalog", zap.Error(err))
		if errors.Is(err, rowstore.ErrUnavailable) {
			writeError(w, r, http.StatusBadGateway, "catalog temporarily unavailable, please retry")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	products := cat.Products()
	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func toProductResponse(p *catalog.Product) productResponse {
	variants := make([]variantResponse, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, variantResponse{
			VariantID: v.ID,
			Size:      optPtr(v.Size),
			Color:     optPtr(v.Color),
			Stock:     v.Stock,
		})
	}
	return productResponse{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price.InexactFloat64(),
		Sizes:    p.Sizes,
		Colors:   p.Colors,
		Stock:    p.Stock,
		Variants: variants,
	}
}

func optPtr(o catalog.OptString) *string {
	if v, ok := o.Get(); ok {
		return &v
	}
	return nil
}
