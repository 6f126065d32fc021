package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler()
	c, w := testContext(t, http.MethodGet, "/health", nil)

	h.Health(c)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "OK", payload["status"])
	assert.Equal(t, "Server is running", payload["message"])
	assert.NotEmpty(t, payload["timestamp"])
}
