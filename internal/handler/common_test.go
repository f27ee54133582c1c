package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestGetUserID(t *testing.T) {
	c := newTestContext(t)
	c.Set("user_id", uint64(42))

	id, err := getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestGetUserIDMissing(t *testing.T) {
	c := newTestContext(t)

	_, err := getUserID(c)
	assert.ErrorIs(t, err, errNoUser)
}

func TestGetUserIDWrongType(t *testing.T) {
	c := newTestContext(t)
	c.Set("user_id", "42") // string, not uint64

	_, err := getUserID(c)
	assert.ErrorIs(t, err, errNoUser)

	c.Set("user_id", uint64(0))
	_, err = getUserID(c)
	assert.ErrorIs(t, err, errNoUser)
}
