package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sekarjagad/batik-store/internal/domain/cart"
	"github.com/sekarjagad/batik-store/internal/domain/catalog"
	"github.com/sekarjagad/batik-store/internal/domain/checkout"
	"github.com/sekarjagad/batik-store/internal/rowstore"
)

type checkoutRequest struct {
	Items []checkoutItem `json:"items"`
}

type checkoutItem struct {
	ProductID int64   `json:"productId"`
	Size      *string `json:"size,omitempty"`
	Color     *string `json:"color,omitempty"`
	Quantity  int     `json:"quantity"`
}

type checkoutResponse struct {
	OrderID  string  `json:"orderId"`
	Total    float64 `json:"total"`
	PlacedAt string  `json:"placedAt"`
}

type checkoutFailure struct {
	ProductID int64   `json:"productId"`
	Size      *string `json:"size,omitempty"`
	Color     *string `json:"color,omitempty"`
	Reason    string  `json:"reason"`
	Available *int    `json:"available,omitempty"`
}

type checkoutRejected struct {
	Code     int               `json:"code"`
	Message  string            `json:"message"`
	Failures []checkoutFailure `json:"failures"`
}

// Checkout validates and commits a cart in one call. A cart that fails
// re-validation gets 409 with every failing line; the order is placed only
// on 200.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	lines := make([]cart.Line, len(req.Items))
	for i, item := range req.Items {
		lines[i] = cart.Line{
			ProductID: item.ProductID,
			Size:      optFromPtr(item.Size),
			Color:     optFromPtr(item.Color),
			Quantity:  item.Quantity,
		}
	}

	result, err := h.checkout.Commit(r.Context(), lines)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	if !result.OK {
		writeJSON(w, r, http.StatusConflict, checkoutRejected{
			Code:     http.StatusConflict,
			Message:  "some items are unavailable",
			Failures: toCheckoutFailures(result.Failures),
		})
		return
	}

	writeJSON(w, r, http.StatusOK, checkoutResponse{
		OrderID:  result.Receipt.OrderID,
		Total:    result.Receipt.Total.InexactFloat64(),
		PlacedAt: result.Receipt.PlacedAt.Format(time.RFC3339),
	})
}

func (h *Handler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, checkout.ErrEmptyCart) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var iqErr *checkout.InvalidQuantityError
	if errors.As(err, &iqErr) {
		writeError(w, r, http.StatusUnprocessableEntity, iqErr.Error())
		return
	}

	zctx.From(r.Context()).Error("Checkout", zap.Error(err))
	if errors.Is(err, rowstore.ErrUnavailable) {
		writeError(w, r, http.StatusBadGateway, "order not completed, please retry")
		return
	}
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

func toCheckoutFailures(failures []cart.LineFailure) []checkoutFailure {
	out := make([]checkoutFailure, len(failures))
	for i, f := range failures {
		cf := checkoutFailure{
			ProductID: f.ProductID,
			Size:      optPtr(f.Selection.Size),
			Color:     optPtr(f.Selection.Color),
			Reason:    string(f.Reason),
		}
		if f.Reason == cart.ReasonInsufficientStock {
			available := f.Available
			cf.Available = &available
		}
		out[i] = cf
	}
	return out
}

// optFromPtr maps a request's optional field to a tagged optional. Absent
// and blank both mean "no selection": the storefront sends empty strings
// for untouched pickers.
func optFromPtr(p *string) catalog.OptString {
	if p == nil {
		return catalog.OptString{}
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return catalog.OptString{}
	}
	return catalog.NewOptString(v)
}
