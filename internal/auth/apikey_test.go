package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func apiKeyRequest(expectedKey, header string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/admin/hourly-sync", nil)
	if header != "" {
		c.Request.Header.Set("X-API-KEY", header)
	}
	APIKeyAuth(expectedKey)(c)
	return w
}

func TestAPIKeyAuthAcceptsConfiguredKey(t *testing.T) {
	w := apiKeyRequest("secret-key", "secret-key")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyAuthRejectsMissingHeader(t *testing.T) {
	w := apiKeyRequest("secret-key", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIKeyAuthRejectsWrongKey(t *testing.T) {
	w := apiKeyRequest("secret-key", "wrong-key")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIKeyAuthFailsWhenUnconfigured(t *testing.T) {
	w := apiKeyRequest("", "anything")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
