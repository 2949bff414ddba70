package doctors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerList(t *testing.T) {
	routes := NewHandler(BuiltIn(), nil).Routes()
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Doctors []Profile `json:"doctors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Doctors, 4)
	assert.Equal(t, BuiltIn().List(), body.Doctors)
}

func TestHandlerGet(t *testing.T) {
	routes := NewHandler(BuiltIn(), nil).Routes()

	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/Dr.%20Williams", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available_days":["Monday","Tuesday","Thursday","Friday"]`)

	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brown", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nobody", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
