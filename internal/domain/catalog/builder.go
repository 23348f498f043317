package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sekarjagad/batik-store/internal/rowstore"
)

// Column names of the products and variants tables. The header row of each
// sheet is the contract; position is irrelevant and extra columns are
// ignored.
const (
	colID        = "id"
	colName      = "name"
	colPrice     = "price"
	colSizes     = "sizes"
	colColors    = "colors"
	colStock     = "stock"
	colProductID = "product_id"
	colSize      = "size"
	colColor     = "color"
)

// BuildCatalog turns raw product and variant rows into a catalog snapshot.
//
// Bad data never fails the build: rows without a numeric id are skipped,
// non-numeric stock counts as 0, unparseable prices count as 0, and variant
// rows referencing an unknown product are dropped. Each of these is logged
// as a warning via the context logger.
//
// Every product ends up with at least one variant. When a product has no
// rows in the variants table, its own declared stock becomes a single
// implicit variant with both axes absent; when it has variant rows, those
// are authoritative and the product's stock is recomputed as their sum.
func BuildCatalog(ctx context.Context, products, variants rowstore.Table) *Catalog {
	lg := zctx.From(ctx)

	c := &Catalog{byID: make(map[int64]*Product, len(products.Rows))}

	for i := range products.Rows {
		id, err := strconv.ParseInt(strings.TrimSpace(products.Cell(i, colID)), 10, 64)
		if err != nil {
			lg.Warn("Skipping product row with bad id",
				zap.Int("row", i),
				zap.String("id", products.Cell(i, colID)),
			)
			continue
		}
		if _, exists := c.byID[id]; exists {
			lg.Warn("Skipping duplicate product row", zap.Int64("product_id", id), zap.Int("row", i))
			continue
		}

		price, err := decimal.NewFromString(strings.TrimSpace(products.Cell(i, colPrice)))
		if err != nil {
			lg.Warn("Unparseable product price, defaulting to 0",
				zap.Int64("product_id", id),
				zap.String("price", products.Cell(i, colPrice)),
			)
			price = decimal.Zero
		}

		c.byID[id] = &Product{
			ID:       id,
			Name:     strings.TrimSpace(products.Cell(i, colName)),
			Price:    price,
			Sizes:    splitList(products.Cell(i, colSizes)),
			Colors:   splitList(products.Cell(i, colColors)),
			Stock:    parseStock(products.Cell(i, colStock)),
			RowIndex: i,
		}
		c.order = append(c.order, id)
	}

	for i := range variants.Rows {
		productID, err := strconv.ParseInt(strings.TrimSpace(variants.Cell(i, colProductID)), 10, 64)
		if err != nil {
			lg.Warn("Skipping variant row with bad product id",
				zap.Int("row", i),
				zap.String("product_id", variants.Cell(i, colProductID)),
			)
			continue
		}
		p, ok := c.byID[productID]
		if !ok {
			lg.Warn("Dropping variant row referencing unknown product",
				zap.Int64("product_id", productID),
				zap.Int("row", i),
			)
			continue
		}

		size := normalizeAxis(variants.Cell(i, colSize))
		color := normalizeAxis(variants.Cell(i, colColor))
		p.Variants = append(p.Variants, Variant{
			ProductID: productID,
			Size:      size,
			Color:     color,
			Stock:     parseStock(variants.Cell(i, colStock)),
			RowIndex:  i,
			ID:        EncodeVariantID(productID, size, color),
		})
	}

	for _, id := range c.order {
		p := c.byID[id]
		if len(p.Variants) == 0 {
			// Fallback: the product row itself is the single implicit variant.
			p.Variants = []Variant{{
				ProductID: p.ID,
				Stock:     p.Stock,
				RowIndex:  -1,
				ID:        EncodeVariantID(p.ID, OptString{}, OptString{}),
			}}
			continue
		}

		// The variants sheet is authoritative when present.
		total := 0
		for _, v := range p.Variants {
			total += v.Stock
		}
		p.Stock = total
	}

	return c
}

// normalizeAxis maps the sheet's axis cell to a tagged optional: empty cells
// and the literal text "null" both mean the axis is absent. The string
// sentinel stops here and never propagates past the builder.
func normalizeAxis(raw string) OptString {
	v := strings.TrimSpace(raw)
	if v == "" || strings.EqualFold(v, nullToken) {
		return OptString{}
	}
	return NewOptString(v)
}

// splitList parses a comma-separated list cell into trimmed, non-empty
// values, preserving order.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseStock parses a stock cell; non-numeric values count as 0 and negative
// values clamp to 0.
func parseStock(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
