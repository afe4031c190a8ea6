package hc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cdplend/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle(t *testing.T) {
	status := func() core.OperatingStatus {
		return core.OperatingStatus{
			core.ServiceBorrow: {Enabled: false, SetByAdmin: true},
			core.ServiceRepay:  {Enabled: true},
		}
	}

	w := httptest.NewRecorder()
	Handle("v1", status).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Version  string   `json:"version"`
		Disabled []string `json:"disabled_services"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "v1", body.Version)
	assert.Equal(t, []string{"borrow"}, body.Disabled)
}
