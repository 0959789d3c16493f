package intake

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserIDMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	_, ok := userID(c)
	assert.False(t, ok)
}

func TestUserIDPresent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	id := uuid.New()
	c.Set(contextUserIDKey, id)

	got, ok := userID(c)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestUserIDWrongType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Set(contextUserIDKey, "not-a-uuid")

	_, ok := userID(c)
	assert.False(t, ok)
}
