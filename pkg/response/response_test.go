package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSuccessWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	SuccessWithMeta(rec, http.StatusOK, "Appointments retrieved", []string{"a"}, NewMeta(2, 5, 11))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.True(t, body.Success)
	require.NotNil(t, body.Meta)
	assert.Equal(t, 3, body.Meta.TotalPages)
}

func TestErrorDefaultsToStatusText(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFound(rec, "")

	body := decode(t, rec)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "Not Found", body.Message)
}

func TestValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	ValidationError(rec, map[string]string{"email": "email is required"})

	body := decode(t, rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", body.Message)
	assert.Equal(t, map[string]interface{}{"email": "email is required"}, body.Error)
}

func TestNewMetaZeroLimit(t *testing.T) {
	assert.Equal(t, 0, NewMeta(1, 0, 10).TotalPages)
}
