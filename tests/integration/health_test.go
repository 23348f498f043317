//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLivez(t *testing.T) {
	resp := doGet(t, "/livez")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	health := decodeJSON[healthResponse](t, resp)
	assert.Equal(t, "ok", health.Status)
}

func TestReadyz(t *testing.T) {
	resp := doGet(t, "/readyz")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	health := decodeJSON[healthResponse](t, resp)
	assert.Equal(t, "ok", health.Status)
}
