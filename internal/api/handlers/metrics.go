package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ilhanselcuk/sellergenix-sub005/internal/auth"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/metrics"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/period"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/store"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/utils"

	"github.com/gin-gonic/gin"
)

// metricsRequest is the shared parameter set for the metrics endpoints.
// GET passes these as query parameters, POST as a JSON body. UserID is only
// honored for admin tokens (see auth.TenantID).
type metricsRequest struct {
	UserID          string `form:"userId" json:"userId"`
	Period          string `form:"period" json:"period"`
	StartDate       string `form:"startDate" json:"startDate"`
	EndDate         string `form:"endDate" json:"endDate"`
	ExcludeCanceled bool   `form:"excludeCanceled" json:"excludeCanceled"`
	Debug           bool   `form:"debug" json:"debug"`
}

func bindMetricsRequest(c *gin.Context) (metricsRequest, error) {
	var req metricsRequest
	if c.Request.Method == http.MethodPost {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, fmt.Errorf("invalid request body: %w", err)
		}
		return req, nil
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		return req, fmt.Errorf("invalid query parameters: %w", err)
	}
	return req, nil
}

func resolvePeriod(req metricsRequest) (period.Period, error) {
	if req.StartDate != "" || req.EndDate != "" {
		if req.StartDate == "" || req.EndDate == "" {
			return period.Period{}, fmt.Errorf("startDate and endDate must both be provided for a custom range")
		}
		return period.Custom(req.StartDate, req.EndDate)
	}
	if req.Period == "" {
		return period.Period{}, fmt.Errorf("period or startDate/endDate is required")
	}
	return period.Resolve(req.Period, time.Now())
}

// fetchPeriodRows loads everything the aggregation needs for one tenant and
// interval. Any fetch failure aborts the whole computation; there is no
// partial result.
func fetchPeriodRows(c *gin.Context, st *store.Store, tenant store.TenantID, p period.Period, excludeCanceled bool) ([]store.Order, []store.OrderItem, []store.ProductFee, error) {
	ctx := c.Request.Context()

	orders, err := st.OrdersInRange(ctx, tenant, p.Start, p.End, excludeCanceled)
	if err != nil {
		return nil, nil, nil, err
	}

	orderIDs := make([]string, 0, len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, o.AmazonOrderID)
	}

	items, err := st.ItemsForOrders(ctx, tenant, orderIDs)
	if err != nil {
		return nil, nil, nil, err
	}

	products, err := st.ProductFeeAverages(ctx, tenant)
	if err != nil {
		return nil, nil, nil, err
	}

	return orders, items, products, nil
}

// GetMetrics handles GET/POST /metrics: period totals for one tenant.
// Response: { success, metrics: { orders, units, sales, amazonFees, feeSource } }
// plus an optional _debug block with the raw interval and per-item breakdown.
func GetMetrics(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := bindMetricsRequest(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		tenant := store.TenantID(auth.TenantID(c, req.UserID))
		if tenant == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "userId could not be resolved"})
			return
		}

		p, err := resolvePeriod(req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		orders, items, products, err := fetchPeriodRows(c, st, tenant, p, req.ExcludeCanceled)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}

		summary, details := metrics.Aggregate(orders, items, metrics.BuildAverageTable(products))

		response := gin.H{
			"success": true,
			"metrics": summary,
		}

		if req.Debug {
			response["_debug"] = gin.H{
				"interval": p,
				"orders":   len(orders),
				"items":    details,
			}
		}

		c.JSON(http.StatusOK, response)
	}
}

// GetASINMetrics handles GET /metrics/asin: the same reduction grouped by
// ASIN, with catalog titles attached where known.
func GetASINMetrics(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := bindMetricsRequest(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		tenant := store.TenantID(auth.TenantID(c, req.UserID))
		if tenant == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "userId could not be resolved"})
			return
		}

		p, err := resolvePeriod(req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		orders, items, products, err := fetchPeriodRows(c, st, tenant, p, req.ExcludeCanceled)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}

		groups := metrics.AggregateByASIN(orders, items, metrics.BuildAverageTable(products))

		rows := make([]gin.H, 0, len(groups))
		for _, group := range groups {
			row := gin.H{
				"asin":       group.ASIN,
				"sellerSku":  group.SellerSKU,
				"orders":     group.Orders,
				"units":      group.Units,
				"sales":      group.Sales,
				"amazonFees": group.AmazonFees,
				"feeSource":  group.FeeSource,
			}
			title, err := st.ProductTitle(c.Request.Context(), tenant, group.ASIN)
			if err == nil {
				row["title"] = utils.NullToStr(title)
			}
			rows = append(rows, row)
		}

		response := gin.H{
			"success": true,
			"asins":   rows,
		}
		if req.Debug {
			response["_debug"] = gin.H{"interval": p, "orders": len(orders)}
		}

		c.JSON(http.StatusOK, response)
	}
}
