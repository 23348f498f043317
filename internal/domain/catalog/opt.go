package catalog

// OptString is a tagged optional string. Variant axes use it so that an
// absent size or color is distinguishable from an empty or literal "null"
// value, which the spreadsheet cannot express.
type OptString struct {
	Value string
	Set   bool
}

// NewOptString returns a present OptString holding v.
func NewOptString(v string) OptString {
	return OptString{Value: v, Set: true}
}

// Get returns the value and whether it is present.
func (o OptString) Get() (string, bool) {
	return o.Value, o.Set
}

// Or returns the value when present, otherwise def.
func (o OptString) Or(def string) string {
	if o.Set {
		return o.Value
	}
	return def
}
