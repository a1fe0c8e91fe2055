package req

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JulietLog/JulietLog-back/internal/pkg/errs"
)

type testInput struct {
	Name string `json:"name"`
}

func TestBindJSONValid(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"alice"}`))
	r.Header.Set("Content-Type", "application/json")

	var input testInput
	require.Nil(t, BindJSON(r, &input))
	assert.Equal(t, "alice", input.Name)
}

func TestBindJSONWrongContentType(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"alice"}`))
	r.Header.Set("Content-Type", "text/plain")

	var input testInput
	customErr := BindJSON(r, &input)
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrUnsupportedMediaType, customErr.Code)
}

func TestBindJSONMalformedBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":`))
	r.Header.Set("Content-Type", "application/json")

	var input testInput
	customErr := BindJSON(r, &input)
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidJSONFormat, customErr.Code)
}

func TestBindJSONUnknownField(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"alice","admin":true}`))
	r.Header.Set("Content-Type", "application/json")

	var input testInput
	customErr := BindJSON(r, &input)
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidJSONFormat, customErr.Code)
}

func TestBindJSONTrailingContent(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"alice"}{"name":"bob"}`))
	r.Header.Set("Content-Type", "application/json")

	var input testInput
	customErr := BindJSON(r, &input)
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrExtraContentInBody, customErr.Code)
}
