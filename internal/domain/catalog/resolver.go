package catalog

// ResolveVariant finds the variant of p matching the selection, or reports
// no match.
//
// The axis rule: when the product offers an axis (non-empty Sizes or
// Colors), the selection must carry a value for it and that value must equal
// the variant's value exactly. A required-but-unselected axis therefore
// never matches — in particular it never falls through to an absent-axis
// variant, even if such a row exists in the raw data. When the product does
// not offer an axis, only variants with that axis absent can match, and any
// selection value supplied for it is ignored.
//
// Duplicate variant rows for the same (size, color) are a data-quality
// issue; the first match wins.
func ResolveVariant(p *Product, sel Selection) (*Variant, bool) {
	for i := range p.Variants {
		v := &p.Variants[i]
		if matchAxis(p.RequiresSize(), sel.Size, v.Size) &&
			matchAxis(p.RequiresColor(), sel.Color, v.Color) {
			return v, true
		}
	}
	return nil, false
}

func matchAxis(required bool, sel, have OptString) bool {
	if !required {
		return !have.Set
	}
	want, ok := sel.Get()
	if !ok {
		return false
	}
	value, ok := have.Get()
	return ok && value == want
}
