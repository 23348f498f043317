package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

// ErrMalformedVariantID is returned when a variant ID cannot be decoded.
// It is fatal to that single decode only, never to the request.
var ErrMalformedVariantID = errors.New("malformed variant id")

// nullToken stands in for an absent axis inside an encoded variant ID.
const nullToken = "null"

// EncodeVariantID derives the stable, URL-safe identifier of a
// (productID, size, color) triple: productID, the encoded size token and the
// encoded color token joined with "-". Absent axes encode as "null"; present
// values are percent-encoded so spaces, slashes, ampersands and hyphens
// inside a size or color cannot corrupt the delimiter structure.
//
// Example: (2, absent, "Kembang Legi") -> "2-null-Kembang%20Legi".
func EncodeVariantID(productID int64, size, color OptString) string {
	return strconv.FormatInt(productID, 10) + "-" + encodeToken(size) + "-" + encodeToken(color)
}

// DecodedVariant is the result of decoding a variant ID.
type DecodedVariant struct {
	ProductID int64
	Size      OptString
	Color     OptString
}

// DecodeVariantID inverts EncodeVariantID. It splits on the first two "-"
// only: everything after the second delimiter is the color token, so a color
// carrying a literal hyphen (possible in hand-authored IDs, which skip the
// encoder) still decodes whole. A size containing a literal hyphen would
// shift the split; that asymmetry is a known fragility of the ID format and
// kept as-is. The "null" token decodes to an absent axis, not the literal
// string "null".
func DecodeVariantID(id string) (DecodedVariant, error) {
	parts := strings.SplitN(id, "-", 3)
	if len(parts) < 3 {
		return DecodedVariant{}, errors.Wrapf(ErrMalformedVariantID, "%q", id)
	}

	productID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return DecodedVariant{}, errors.Wrapf(ErrMalformedVariantID, "%q: bad product id", id)
	}

	size, err := decodeToken(parts[1])
	if err != nil {
		return DecodedVariant{}, errors.Wrapf(ErrMalformedVariantID, "%q: bad size token", id)
	}
	color, err := decodeToken(parts[2])
	if err != nil {
		return DecodedVariant{}, errors.Wrapf(ErrMalformedVariantID, "%q: bad color token", id)
	}

	return DecodedVariant{ProductID: productID, Size: size, Color: color}, nil
}

func encodeToken(v OptString) string {
	s, ok := v.Get()
	if !ok {
		return nullToken
	}
	return escapeToken(s)
}

func decodeToken(s string) (OptString, error) {
	if s == nullToken {
		return OptString{}, nil
	}
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return OptString{}, err
	}
	return NewOptString(decoded), nil
}

const upperhex = "0123456789ABCDEF"

// escapeToken percent-encodes every byte outside [A-Za-z0-9_.~]. Stricter
// than url.PathEscape on purpose: "-" is the ID delimiter and must never
// appear literally inside an encoded token.
func escapeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0xF])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '_' || c == '.' || c == '~':
		return true
	}
	return false
}
