//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducts_List(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	products := decodeJSON[[]productResponse](t, resp)
	require.Len(t, products, 3)

	// The list preserves sheet row order.
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, int64(2), products[1].ID)
	assert.Equal(t, int64(3), products[2].ID)
}

func TestProducts_VariantFields(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	products := decodeJSON[[]productResponse](t, resp)
	require.Len(t, products, 3)

	selendang := products[0]
	assert.Equal(t, "Selendang Sutra", selendang.Name)
	assert.Equal(t, []string{"Ambonia", "Kembang Legi"}, selendang.Colors)
	assert.Empty(t, selendang.Sizes)
	require.Len(t, selendang.Variants, 2)
	assert.Equal(t, "1-null-Ambonia", selendang.Variants[0].VariantID)
	assert.Nil(t, selendang.Variants[0].Size)
	require.NotNil(t, selendang.Variants[0].Color)
	assert.Equal(t, "Ambonia", *selendang.Variants[0].Color)
	assert.Equal(t, "1-null-Kembang%20Legi", selendang.Variants[1].VariantID)

	// Axis-free product carries exactly one implicit variant.
	tambal := products[1]
	require.Len(t, tambal.Variants, 1)
	assert.Equal(t, "2-null-null", tambal.Variants[0].VariantID)
	assert.Nil(t, tambal.Variants[0].Size)
	assert.Nil(t, tambal.Variants[0].Color)

	// Product stock is the sum of its variant stocks.
	kawung := products[2]
	assert.Equal(t, []string{"S", "M", "L"}, kawung.Sizes)
	require.Len(t, kawung.Variants, 3)
	sum := 0
	for _, v := range kawung.Variants {
		sum += v.Stock
	}
	assert.Equal(t, sum, kawung.Stock)
}

func TestProducts_MethodNotAllowed(t *testing.T) {
	resp := doPost(t, "/api/products", map[string]string{})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
