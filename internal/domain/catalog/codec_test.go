package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeVariantID(t *testing.T) {
	tests := []struct {
		name      string
		productID int64
		size      OptString
		color     OptString
		want      string
	}{
		{
			name:      "both axes absent",
			productID: 1,
			want:      "1-null-null",
		},
		{
			name:      "color with space",
			productID: 2,
			color:     NewOptString("Kembang Legi"),
			want:      "2-null-Kembang%20Legi",
		},
		{
			name:      "size and color",
			productID: 3,
			size:      NewOptString("M"),
			color:     NewOptString("Ambonia"),
			want:      "3-M-Ambonia",
		},
		{
			name:      "hyphen inside color is escaped",
			productID: 4,
			color:     NewOptString("Blue-Green"),
			want:      "4-null-Blue%2DGreen",
		},
		{
			name:      "ampersand and slash",
			productID: 5,
			size:      NewOptString("S/M"),
			color:     NewOptString("Red & White"),
			want:      "5-S%2FM-Red%20%26%20White",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeVariantID(tt.productID, tt.size, tt.color)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVariantIDRoundTrip(t *testing.T) {
	axes := []OptString{
		{},
		NewOptString(""),
		NewOptString("M"),
		NewOptString("Blue Sky"),
		NewOptString("Red & White"),
		NewOptString("Blue-Green"),
		NewOptString("S/M"),
		NewOptString("Mégamendung"),
	}

	for _, size := range axes {
		for _, color := range axes {
			id := EncodeVariantID(42, size, color)

			decoded, err := DecodeVariantID(id)
			require.NoError(t, err, "id %q", id)
			assert.Equal(t, int64(42), decoded.ProductID, "id %q", id)
			assert.Equal(t, size, decoded.Size, "id %q", id)
			assert.Equal(t, color, decoded.Color, "id %q", id)
		}
	}
}

func TestDecodeVariantID_NullToken(t *testing.T) {
	decoded, err := DecodeVariantID("2-null-Kembang%20Legi")
	require.NoError(t, err)

	assert.Equal(t, int64(2), decoded.ProductID)
	assert.False(t, decoded.Size.Set, `"null" token decodes to absent, not the literal string`)
	assert.Equal(t, NewOptString("Kembang Legi"), decoded.Color)
}

func TestDecodeVariantID_ColorRejoinsTrailingSegments(t *testing.T) {
	// Hand-authored IDs can carry a literal hyphen in the color; everything
	// after the second delimiter belongs to the color token.
	decoded, err := DecodeVariantID("1-null-Blue-Green")
	require.NoError(t, err)

	assert.False(t, decoded.Size.Set)
	assert.Equal(t, NewOptString("Blue-Green"), decoded.Color)
}

func TestDecodeVariantID_Malformed(t *testing.T) {
	for _, id := range []string{
		"",
		"1",
		"1-null",
		"x-null-null",
		"1-%zz-null",
	} {
		_, err := DecodeVariantID(id)
		assert.ErrorIs(t, err, ErrMalformedVariantID, "id %q", id)
	}
}
