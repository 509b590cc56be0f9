package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func tenantContext(role, userID, target string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", target, nil)
	c.Set("role", role)
	c.Set("userID", userID)
	return c
}

func TestTenantIDAdminOverrideFromBody(t *testing.T) {
	// Handlers pass the userId they bound from the request body
	c := tenantContext("admin", "admin-1", "/metrics")
	assert.Equal(t, "seller-42", TenantID(c, "seller-42"))
}

func TestTenantIDAdminOverrideFromQuery(t *testing.T) {
	c := tenantContext("subadmin", "admin-1", "/metrics?userId=seller-42")
	assert.Equal(t, "seller-42", TenantID(c, ""))
}

func TestTenantIDNonAdminPinnedToToken(t *testing.T) {
	c := tenantContext("seller", "seller-7", "/metrics?userId=seller-42")
	assert.Equal(t, "seller-7", TenantID(c, "seller-42"))
}

func TestTenantIDDefaultsToTokenClaim(t *testing.T) {
	c := tenantContext("admin", "admin-1", "/metrics")
	assert.Equal(t, "admin-1", TenantID(c, ""))
}
