// Package catalog holds the variant-aware product model: products with
// optional size/color axes, their purchasable variants, the variant ID
// codec, and the builder that turns raw spreadsheet rows into a catalog
// snapshot.
//
// A Catalog is an immutable value built fresh from one read of the row
// store. Nothing in this package mutates the store; the checkout package
// owns writes.
package catalog

import (
	"github.com/shopspring/decimal"
)

// Product is one catalog item. Sizes and Colors are the axes the product
// offers; an empty axis means the product does not come in that dimension.
// Stock is derived: it always equals the sum of the variants' stock.
type Product struct {
	ID     int64
	Name   string
	Price  decimal.Decimal
	Sizes  []string
	Colors []string
	Stock  int

	// RowIndex is the product's data-row index in the products table,
	// used to address its denormalized stock cell on commit.
	RowIndex int

	Variants []Variant
}

// RequiresSize reports whether a size must be selected to buy this product.
func (p *Product) RequiresSize() bool { return len(p.Sizes) > 0 }

// RequiresColor reports whether a color must be selected to buy this product.
func (p *Product) RequiresColor() bool { return len(p.Colors) > 0 }

// Variant is one purchasable (size, color) combination of a product with its
// own stock count.
type Variant struct {
	ProductID int64
	Size      OptString
	Color     OptString
	Stock     int

	// RowIndex is the variant's data-row index in the variants table, or -1
	// for the implicit variant of a product that has no variant rows (its
	// stock lives on the product row instead).
	RowIndex int

	// ID is the encoded variant identifier, see EncodeVariantID.
	ID string
}

// Selection is a shopper's (possibly partial) choice of size and color.
type Selection struct {
	Size  OptString
	Color OptString
}

// Catalog is an in-memory snapshot of all products and their variants as of
// one read from the row store.
type Catalog struct {
	byID  map[int64]*Product
	order []int64
}

// Product returns the product with the given id.
func (c *Catalog) Product(id int64) (*Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Products returns all products in sheet order.
func (c *Catalog) Products() []*Product {
	out := make([]*Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len returns the number of products in the catalog.
func (c *Catalog) Len() int { return len(c.order) }
