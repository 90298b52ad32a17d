package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ignite/tradeintel/internal/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFound(rec, "no summary for ACME")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "no summary for ACME", body.Message)
}

func TestValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	ValidationError(rec, validate.DateRange("2024-02-01", "2024-01-01"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"validation_failed"`)

	rec = httptest.NewRecorder()
	ValidationError(rec, errors.New("plain"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecode(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ACME"}`))
	rec := httptest.NewRecorder()
	assert.True(t, Decode(rec, req, &dst))
	assert.Equal(t, "ACME", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad`))
	rec = httptest.NewRecorder()
	assert.False(t, Decode(rec, req, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	rec = httptest.NewRecorder()
	assert.True(t, Decode(rec, req, &dst))
}
