package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ilhanselcuk/sellergenix-sub005/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestStartOrderSyncRejectsWhileRunning(t *testing.T) {
	gin.SetMode(gin.TestMode)

	orderSyncManagerMutex.Lock()
	prev := globalOrderSyncManager
	globalOrderSyncManager = &OrderSyncManager{
		status: &SyncStatus{IsRunning: true, StartedAt: time.Now()},
	}
	orderSyncManagerMutex.Unlock()
	defer func() {
		orderSyncManagerMutex.Lock()
		globalOrderSyncManager = prev
		orderSyncManagerMutex.Unlock()
	}()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/admin/sync-orders?userId=seller-1", nil)
	c.Set("role", "admin")
	c.Set("userID", "admin-1")

	StartOrderSync(nil, config.SPAPIConfig{}, "")(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already in progress")
}
