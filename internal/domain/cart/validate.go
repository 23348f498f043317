package cart

import (
	"github.com/sekarjagad/batik-store/internal/domain/catalog"
)

// Validate checks every line against the catalog snapshot, in cart order,
// and collects all failures instead of stopping at the first one: a shopper
// with a multi-item cart sees every problem in one pass.
//
// The required-axis re-check happens implicitly through the resolver: a line
// whose required size or color is unselected resolves to no variant and
// fails with ReasonVariantNotFound, even though the UI should have refused
// such a submission in the first place.
func Validate(c *catalog.Catalog, lines []Line) ValidationResult {
	var failures []LineFailure

	for _, line := range lines {
		sel := line.Selection()

		p, ok := c.Product(line.ProductID)
		if !ok {
			failures = append(failures, LineFailure{
				ProductID: line.ProductID,
				Selection: sel,
				Reason:    ReasonVariantNotFound,
			})
			continue
		}

		v, ok := catalog.ResolveVariant(p, sel)
		if !ok {
			failures = append(failures, LineFailure{
				ProductID: line.ProductID,
				Selection: sel,
				Reason:    ReasonVariantNotFound,
			})
			continue
		}

		switch {
		case v.Stock == 0:
			failures = append(failures, LineFailure{
				ProductID: line.ProductID,
				Selection: sel,
				Reason:    ReasonOutOfStock,
			})
		case line.Quantity > v.Stock:
			failures = append(failures, LineFailure{
				ProductID: line.ProductID,
				Selection: sel,
				Reason:    ReasonInsufficientStock,
				Available: v.Stock,
			})
		}
	}

	return ValidationResult{OK: len(failures) == 0, Failures: failures}
}
