// Package cart defines shopping-cart line items and the stock validator
// that checks them against a catalog snapshot.
package cart

import (
	"github.com/sekarjagad/batik-store/internal/domain/catalog"
)

// Line is one requested product + selection + quantity entry in a cart.
// Lines are created by the UI layer and consumed read-only here.
type Line struct {
	ProductID int64
	Size      catalog.OptString
	Color     catalog.OptString
	Quantity  int
}

// Selection returns the line's size/color choice.
func (l Line) Selection() catalog.Selection {
	return catalog.Selection{Size: l.Size, Color: l.Color}
}

// FailureReason classifies why a cart line cannot be satisfied. These are
// user-facing validation outcomes, never errors.
type FailureReason string

const (
	// ReasonVariantNotFound covers a missing product, a selection matching
	// no variant, and a required axis left unselected. The distinction is
	// not surfaced to the caller.
	ReasonVariantNotFound FailureReason = "variant_not_found"
	// ReasonOutOfStock means the variant exists but its stock is zero.
	ReasonOutOfStock FailureReason = "out_of_stock"
	// ReasonInsufficientStock means the variant has stock, just less than
	// the requested quantity. Available carries the actual count.
	ReasonInsufficientStock FailureReason = "insufficient_stock"
)

// LineFailure describes one unsatisfiable cart line.
type LineFailure struct {
	ProductID int64
	Selection catalog.Selection
	Reason    FailureReason

	// Available is the variant's current stock; set for
	// ReasonInsufficientStock so the shopper can adjust the quantity.
	Available int
}

// ValidationResult is the outcome of validating a whole cart. OK is true iff
// Failures is empty.
type ValidationResult struct {
	OK       bool
	Failures []LineFailure
}
