package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paginationFor(t *testing.T, query string) (PaginationRequest, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/measurements?"+query, nil)
	return GetPaginationFromContext(c)
}

func TestGetPaginationFromContext(t *testing.T) {
	t.Run("Should default missing values", func(t *testing.T) {
		p, err := paginationFor(t, "")
		require.NoError(t, err)
		assert.Equal(t, PaginationRequest{Page: 1, Limit: DefaultLimit}, p)
	})

	t.Run("Should clamp the limit", func(t *testing.T) {
		p, err := paginationFor(t, "page=3&limit=9000")
		require.NoError(t, err)
		assert.Equal(t, PaginationRequest{Page: 3, Limit: MaxLimit}, p)
		assert.Equal(t, 2*MaxLimit, p.Offset())
	})

	t.Run("Should reject non-numeric values", func(t *testing.T) {
		_, err := paginationFor(t, "limit=abc")
		assert.Error(t, err)

		_, err = paginationFor(t, "page=two")
		assert.Error(t, err)
	})
}
