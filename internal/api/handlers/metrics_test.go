package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ilhanselcuk/sellergenix-sub005/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(method, target, body string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	return c
}

func TestBindMetricsRequestQuery(t *testing.T) {
	c := testContext("GET", "/metrics?period=this_week&excludeCanceled=true&debug=true", "")

	req, err := bindMetricsRequest(c)
	require.NoError(t, err)
	assert.Equal(t, "this_week", req.Period)
	assert.True(t, req.ExcludeCanceled)
	assert.True(t, req.Debug)
}

func TestBindMetricsRequestJSONBody(t *testing.T) {
	c := testContext("POST", "/metrics", `{"startDate":"2026-01-01","endDate":"2026-01-31","excludeCanceled":true}`)

	req, err := bindMetricsRequest(c)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", req.StartDate)
	assert.Equal(t, "2026-01-31", req.EndDate)
	assert.True(t, req.ExcludeCanceled)
}

func TestResolvePeriodCustomRangeWins(t *testing.T) {
	// Explicit dates take precedence over a named period
	p, err := resolvePeriod(metricsRequest{
		Period:    "this_week",
		StartDate: "2026-01-01",
		EndDate:   "2026-01-31",
	})
	require.NoError(t, err)
	assert.Equal(t, "custom", p.Name)
	assert.Equal(t, time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC), p.Start)
}

func TestResolvePeriodPartialCustomRange(t *testing.T) {
	_, err := resolvePeriod(metricsRequest{StartDate: "2026-01-01"})
	assert.Error(t, err)

	_, err = resolvePeriod(metricsRequest{EndDate: "2026-01-31"})
	assert.Error(t, err)
}

func TestResolvePeriodRequiresSomething(t *testing.T) {
	_, err := resolvePeriod(metricsRequest{})
	assert.Error(t, err)
}

func TestBodyUserIDReachesTenantResolution(t *testing.T) {
	// An admin targeting another seller through the POST body must end up
	// scoped to that seller, not to their own token claim
	c := testContext("POST", "/metrics", `{"userId":"seller-42","period":"today"}`)
	c.Set("role", "admin")
	c.Set("userID", "admin-1")

	req, err := bindMetricsRequest(c)
	require.NoError(t, err)
	assert.Equal(t, "seller-42", req.UserID)
	assert.Equal(t, "seller-42", auth.TenantID(c, req.UserID))
}

func TestBodyUserIDIgnoredForNonAdmin(t *testing.T) {
	c := testContext("POST", "/metrics", `{"userId":"seller-42","period":"today"}`)
	c.Set("role", "seller")
	c.Set("userID", "seller-7")

	req, err := bindMetricsRequest(c)
	require.NoError(t, err)
	assert.Equal(t, "seller-7", auth.TenantID(c, req.UserID))
}

func TestResolvePeriodNamed(t *testing.T) {
	p, err := resolvePeriod(metricsRequest{Period: "yesterday"})
	require.NoError(t, err)
	assert.Equal(t, "yesterday", p.Name)
	assert.Equal(t, p.Start.AddDate(0, 0, 1), p.End)
}
