package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ilhanselcuk/sellergenix-sub005/config"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/auth"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/fees"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/spapi"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/store"

	"github.com/gin-gonic/gin"
)

// SyncStatus represents the overall status of an order sync operation
type SyncStatus struct {
	UserID             string     `json:"user_id"`
	TotalOrders        int        `json:"total_orders"`
	ProcessedOrders    int        `json:"processed_orders"`
	SuccessfulOrders   int        `json:"successful_orders"`
	FailedOrders       int        `json:"failed_orders"`
	ItemsSynced        int        `json:"items_synced"`
	ProductRowsUpdated int        `json:"product_rows_updated"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	IsRunning          bool       `json:"is_running"`
	DateRange          string     `json:"date_range"`
	StoppedEarly       bool       `json:"stopped_early"`
	StopReason         string     `json:"stop_reason,omitempty"`
	TotalAPICalls      int        `json:"total_api_calls"`
	Errors             []string   `json:"errors,omitempty"`
}

// OrderSyncManager manages a full order/item sync for one tenant. The
// marketplace client is built per run from the tenant's own refresh token, so
// one seller's orders can never land in another tenant's rows.
type OrderSyncManager struct {
	st             *store.Store
	spapiCfg       config.SPAPIConfig
	apiClient      *spapi.Client
	tenant         store.TenantID
	status         *SyncStatus
	statusMutex    sync.RWMutex
	logger         *log.Logger
	stopRequested  bool
	criticalErrors int
	apiCallCount   int
	webhookURL     string
}

var (
	// Global sync manager instance for status tracking
	globalOrderSyncManager *OrderSyncManager
	orderSyncManagerMutex  sync.Mutex
)

// NewOrderSyncManager creates a new sync manager for one tenant
func NewOrderSyncManager(st *store.Store, spapiCfg config.SPAPIConfig, tenant store.TenantID, webhookURL string) *OrderSyncManager {
	return &OrderSyncManager{
		st:         st,
		spapiCfg:   spapiCfg,
		tenant:     tenant,
		logger:     log.New(log.Writer(), "[ORDER_SYNC] ", log.LstdFlags|log.Lshortfile),
		webhookURL: webhookURL,
	}
}

// StartOrderSync handles POST /admin/sync-orders
func StartOrderSync(st *store.Store, spapiCfg config.SPAPIConfig, webhookURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if sync is already running
		orderSyncManagerMutex.Lock()
		if globalOrderSyncManager != nil && globalOrderSyncManager.GetStatus().IsRunning {
			status := globalOrderSyncManager.GetStatus()
			orderSyncManagerMutex.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "Sync is already in progress",
				"status": status,
			})
			return
		}

		tenant := store.TenantID(auth.TenantID(c, c.Query("userId")))
		if tenant == "" {
			orderSyncManagerMutex.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId could not be resolved"})
			return
		}

		days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
		if err != nil || days < 1 || days > 90 {
			orderSyncManagerMutex.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer between 1 and 90"})
			return
		}

		globalOrderSyncManager = NewOrderSyncManager(st, spapiCfg, tenant, webhookURL)
		orderSyncManagerMutex.Unlock()

		// Start sync in background
		go globalOrderSyncManager.RunSync(days)

		c.JSON(http.StatusOK, gin.H{
			"message": "Order sync started",
			"status":  globalOrderSyncManager.GetStatus(),
			"days":    days,
		})
	}
}

// GetOrderSyncStatus returns the current sync status
func GetOrderSyncStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderSyncManagerMutex.Lock()
		defer orderSyncManagerMutex.Unlock()

		if globalOrderSyncManager == nil {
			c.JSON(http.StatusOK, gin.H{
				"message": "No sync has been initiated yet",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": globalOrderSyncManager.GetStatus(),
		})
	}
}

// RunSync executes the full sync process for the manager's tenant
func (m *OrderSyncManager) RunSync(days int) {
	m.logger.Printf("Starting order sync for user %s (%d days)...", m.tenant, days)

	m.statusMutex.Lock()
	m.status = &SyncStatus{
		UserID:    string(m.tenant),
		StartedAt: time.Now(),
		IsRunning: true,
		DateRange: fmt.Sprintf("%dd", days),
		Errors:    []string{},
	}
	m.statusMutex.Unlock()

	defer func() {
		m.statusMutex.Lock()
		now := time.Now()
		m.status.CompletedAt = &now
		m.status.IsRunning = false
		m.status.TotalAPICalls = m.apiCallCount
		if m.stopRequested {
			m.status.StoppedEarly = true
			if m.status.StopReason == "" {
				m.status.StopReason = "Critical errors encountered"
			}
		}
		m.statusMutex.Unlock()

		if m.stopRequested {
			m.logger.Printf("Sync STOPPED EARLY due to: %s. Total: %d, Successful: %d, Failed: %d, API Calls: %d",
				m.status.StopReason, m.status.TotalOrders, m.status.SuccessfulOrders,
				m.status.FailedOrders, m.apiCallCount)
		} else {
			m.logger.Printf("Sync completed normally. Total: %d, Successful: %d, Failed: %d, Items: %d, API Calls: %d",
				m.status.TotalOrders, m.status.SuccessfulOrders, m.status.FailedOrders,
				m.status.ItemsSynced, m.apiCallCount)
		}

		m.sendWebhookNotification()
	}()

	ctx := context.Background()

	// Bind the marketplace client to this tenant's own seller account
	apiClient, err := newSellerClient(ctx, m.st, m.spapiCfg, m.tenant)
	if err != nil {
		m.addError(fmt.Sprintf("Failed to resolve seller credentials: %v", err))
		m.logger.Printf("CRITICAL: Failed to resolve seller credentials for %s: %v", m.tenant, err)
		return
	}
	m.apiClient = apiClient

	// The orders endpoint rejects CreatedBefore values closer than ~2 minutes
	// to now
	createdBefore := time.Now().Add(-2 * time.Minute)
	createdAfter := createdBefore.AddDate(0, 0, -days)

	// Step 1: List orders from the marketplace
	orders, err := m.apiClient.ListOrders(createdAfter, createdBefore)
	m.countAPICall()
	if err != nil {
		m.addError(fmt.Sprintf("Failed to list orders: %v", err))
		m.logger.Printf("Error listing orders: %v", err)
		return
	}

	m.statusMutex.Lock()
	m.status.TotalOrders = len(orders)
	m.statusMutex.Unlock()

	m.logger.Printf("Found %d orders to sync", len(orders))

	// Step 2: Upsert order headers
	for _, order := range orders {
		if m.stopRequested {
			break
		}
		if err := m.upsertOrderWithRetry(ctx, order); err != nil {
			m.logger.Printf("CRITICAL: Failed to store order %s: %v", order.AmazonOrderID, err)
			m.addError(fmt.Sprintf("Database failure storing order %s: %v", order.AmazonOrderID, err))
			m.criticalErrors++
			if m.criticalErrors >= 3 {
				m.stopRequested = true
				m.addError("Too many consecutive database failures")
				return
			}
			continue
		}
		m.criticalErrors = 0
	}

	// Step 3: Sync items and fees with a bounded worker pool
	m.syncOrderItems(ctx, orders)

	// Step 4: Refresh the historical fee averages from the new real fees
	updated, err := m.st.RecomputeProductAverages(ctx, m.tenant)
	if err != nil {
		m.addError(fmt.Sprintf("Failed to recompute product averages: %v", err))
		m.logger.Printf("Error recomputing product averages: %v", err)
	} else {
		m.statusMutex.Lock()
		m.status.ProductRowsUpdated = updated
		m.statusMutex.Unlock()
		m.logger.Printf("Recomputed fee averages for %d product rows", updated)
	}
}

func (m *OrderSyncManager) upsertOrderWithRetry(ctx context.Context, order spapi.Order) error {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		lastErr = m.st.UpsertOrder(ctx, m.tenant, store.Order{
			AmazonOrderID: order.AmazonOrderID,
			PurchaseDate:  order.PurchaseDate,
			OrderStatus:   order.OrderStatus,
			OrderTotal:    order.OrderTotal.Amount,
		})
		if lastErr == nil {
			return nil
		}
		if attempt < 3 {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return lastErr
}

// syncOrderItems fetches items and financial events per order with a worker
// pool. 5 workers keeps us inside the client-side rate limit while still
// overlapping network waits.
func (m *OrderSyncManager) syncOrderItems(ctx context.Context, orders []spapi.Order) {
	var successCount, failCount, itemCount int32

	workerCount := 5
	orderChan := make(chan spapi.Order, len(orders))
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for order := range orderChan {
				if m.stopRequested {
					m.logger.Printf("Worker %d: Stopping due to critical errors", workerID)
					return
				}

				synced, apiCalls, err := syncItemsForOrder(ctx, m.st, m.apiClient, m.tenant, order.AmazonOrderID)
				m.countAPICalls(apiCalls)
				if err != nil {
					m.logger.Printf("Worker %d: Error syncing items for order %s: %v", workerID, order.AmazonOrderID, err)
					m.addError(fmt.Sprintf("Item sync failed for order %s: %v", order.AmazonOrderID, err))
					atomic.AddInt32(&failCount, 1)
					continue
				}

				atomic.AddInt32(&successCount, 1)
				atomic.AddInt32(&itemCount, int32(synced))
			}
		}(i)
	}

	for _, order := range orders {
		orderChan <- order
	}
	close(orderChan)
	wg.Wait()

	m.statusMutex.Lock()
	m.status.ProcessedOrders = int(successCount + failCount)
	m.status.SuccessfulOrders = int(successCount)
	m.status.FailedOrders = int(failCount)
	m.status.ItemsSynced = int(itemCount)
	m.statusMutex.Unlock()

	m.logger.Printf("Item sync completed: %d orders successful, %d failed, %d items", successCount, failCount, itemCount)
}

func (m *OrderSyncManager) countAPICall() {
	m.countAPICalls(1)
}

func (m *OrderSyncManager) countAPICalls(n int) {
	m.statusMutex.Lock()
	m.apiCallCount += n
	if m.status != nil {
		m.status.TotalAPICalls = m.apiCallCount
	}
	m.statusMutex.Unlock()
}

// addError adds an error to the status (bounded to keep responses readable)
func (m *OrderSyncManager) addError(errorMsg string) {
	m.statusMutex.Lock()
	defer m.statusMutex.Unlock()

	if m.status != nil && len(m.status.Errors) < 20 {
		m.status.Errors = append(m.status.Errors, errorMsg)
	}
}

// GetStatus returns a copy of the current status
func (m *OrderSyncManager) GetStatus() SyncStatus {
	m.statusMutex.RLock()
	defer m.statusMutex.RUnlock()

	if m.status == nil {
		return SyncStatus{}
	}
	return *m.status
}

// sendWebhookNotification posts a completion summary to the configured
// webhook, if any
func (m *OrderSyncManager) sendWebhookNotification() {
	if m.webhookURL == "" {
		return
	}

	status := m.GetStatus()
	duration := time.Since(status.StartedAt).Round(time.Second)

	var headline string
	if status.StoppedEarly {
		headline = fmt.Sprintf("Order sync STOPPED EARLY for %s: %s", status.UserID, status.StopReason)
	} else {
		headline = fmt.Sprintf("Order sync completed for %s", status.UserID)
	}

	payload := map[string]interface{}{
		"content": fmt.Sprintf("%s — %d orders, %d items, %d failed, %d API calls, took %s",
			headline, status.TotalOrders, status.ItemsSynced, status.FailedOrders,
			status.TotalAPICalls, duration),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(m.webhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		m.logger.Printf("Failed to send webhook notification: %v", err)
		return
	}
	resp.Body.Close()
}

// ============================================================================
// SHARED SINGLE-ORDER INGEST - used by the sync managers and the event worker
// ============================================================================

// newSellerClient builds a marketplace client authenticated as the tenant's
// own seller account.
func newSellerClient(ctx context.Context, st *store.Store, spapiCfg config.SPAPIConfig, tenant store.TenantID) (*spapi.Client, error) {
	token, err := st.SellerRefreshToken(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return spapi.NewClientForSeller(spapiCfg, token), nil
}

// syncItemsForOrder fetches line items and financial events for one order and
// upserts them. Items whose live fees are all zero keep fee_source "none" so
// the fee resolver falls back instead of trusting an empty fee. Returns the
// number of items written and the number of API calls made.
func syncItemsForOrder(ctx context.Context, st *store.Store, apiClient *spapi.Client, tenant store.TenantID, amazonOrderID string) (int, int, error) {
	apiCalls := 0

	items, err := apiClient.ListOrderItems(amazonOrderID)
	apiCalls++
	if err != nil {
		return 0, apiCalls, fmt.Errorf("failed to list items: %w", err)
	}

	events, err := apiClient.ListFinancialEventsByOrder(amazonOrderID)
	apiCalls++
	if err != nil {
		return 0, apiCalls, fmt.Errorf("failed to list financial events: %w", err)
	}

	itemFees := bucketFeesByItem(events)

	synced := 0
	for _, item := range items {
		row := store.OrderItem{
			AmazonOrderID:     amazonOrderID,
			OrderItemID:       item.OrderItemID,
			ASIN:              item.ASIN,
			SellerSKU:         item.SellerSKU,
			QuantityOrdered:   item.QuantityOrdered,
			QuantityShipped:   item.QuantityShipped,
			ItemPrice:         item.ItemPrice.Amount,
			PromotionDiscount: item.PromotionDiscount.Amount,
			FeeSource:         fees.SourceNone,
		}

		if buckets, ok := itemFees[item.OrderItemID]; ok && buckets.Total() > 0 {
			row.FulfillmentFee = buckets.Fulfillment
			row.ReferralFee = buckets.Referral
			row.StorageFee = buckets.Storage
			row.RefundFee = buckets.Refund
			row.FeeSource = fees.SourceAPI
		}

		var lastErr error
		for attempt := 1; attempt <= 3; attempt++ {
			lastErr = st.UpsertOrderItem(ctx, tenant, row)
			if lastErr == nil {
				break
			}
			if attempt < 3 {
				time.Sleep(time.Duration(attempt) * time.Second)
			}
		}
		if lastErr != nil {
			return synced, apiCalls, fmt.Errorf("failed to store item %s: %w", item.OrderItemID, lastErr)
		}
		synced++
	}

	return synced, apiCalls, nil
}

// bucketFeesByItem folds shipment and refund events into per-item fee buckets.
func bucketFeesByItem(events *spapi.FinancialEvents) map[string]*fees.Buckets {
	itemFees := make(map[string]*fees.Buckets)
	if events == nil {
		return itemFees
	}

	addList := func(eventList []spapi.ShipmentEvent) {
		for _, event := range eventList {
			for _, shipmentItem := range event.ShipmentItemList {
				if shipmentItem.OrderItemID == "" {
					continue
				}
				buckets, ok := itemFees[shipmentItem.OrderItemID]
				if !ok {
					buckets = &fees.Buckets{}
					itemFees[shipmentItem.OrderItemID] = buckets
				}
				for _, fee := range shipmentItem.ItemFeeList {
					buckets.Add(fee.FeeType, fee.FeeAmount.Amount)
				}
				for _, fee := range shipmentItem.ItemFeeAdjustmentList {
					buckets.Add(fee.FeeType, fee.FeeAmount.Amount)
				}
			}
		}
	}

	addList(events.ShipmentEventList)
	addList(events.RefundEventList)
	return itemFees
}

// SyncSingleOrder re-ingests one order end to end: header, items, fees,
// authenticating as the tenant's own seller account. Used by the event worker
// when the marketplace notifies us of an order change.
func SyncSingleOrder(ctx context.Context, st *store.Store, spapiCfg config.SPAPIConfig, tenant store.TenantID, amazonOrderID string) error {
	apiClient, err := newSellerClient(ctx, st, spapiCfg, tenant)
	if err != nil {
		return err
	}

	order, err := apiClient.GetOrder(amazonOrderID)
	if err != nil {
		return fmt.Errorf("failed to fetch order %s: %w", amazonOrderID, err)
	}

	if err := st.UpsertOrder(ctx, tenant, store.Order{
		AmazonOrderID: order.AmazonOrderID,
		PurchaseDate:  order.PurchaseDate,
		OrderStatus:   order.OrderStatus,
		OrderTotal:    order.OrderTotal.Amount,
	}); err != nil {
		return err
	}

	if _, _, err := syncItemsForOrder(ctx, st, apiClient, tenant, amazonOrderID); err != nil {
		return err
	}

	return nil
}
