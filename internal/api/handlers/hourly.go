package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/ilhanselcuk/sellergenix-sub005/config"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/store"

	"github.com/gin-gonic/gin"
)

// hourlyLookback is how far back the scheduled sync looks for changed orders.
// Wide enough to absorb a few missed runs.
const hourlyLookback = 6 * time.Hour

// hourlyOrderCap bounds how many orders one tenant can consume per run so a
// single busy seller cannot starve the rest of the schedule.
const hourlyOrderCap = 50

// HourlySyncStatus represents the status of a scheduled multi-tenant sync
type HourlySyncStatus struct {
	TenantsTotal    int        `json:"tenants_total"`
	TenantsSynced   int        `json:"tenants_synced"`
	TenantsFailed   int        `json:"tenants_failed"`
	OrdersProcessed int        `json:"orders_processed"`
	ItemsSynced     int        `json:"items_synced"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	IsRunning       bool       `json:"is_running"`
	Errors          []string   `json:"errors,omitempty"`
}

// HourlySyncManager runs a bounded incremental sync across all active
// tenants. Each tenant is synced through a client bound to its own seller
// account's refresh token.
type HourlySyncManager struct {
	st          *store.Store
	spapiCfg    config.SPAPIConfig
	status      *HourlySyncStatus
	statusMutex sync.RWMutex
	logger      *log.Logger
}

var (
	globalHourlySyncManager *HourlySyncManager
	hourlySyncManagerMutex  sync.Mutex
)

// NewHourlySyncManager creates an hourly sync manager
func NewHourlySyncManager(st *store.Store, spapiCfg config.SPAPIConfig) *HourlySyncManager {
	return &HourlySyncManager{
		st:       st,
		spapiCfg: spapiCfg,
		logger:   log.New(log.Writer(), "[HOURLY_SYNC] ", log.LstdFlags|log.Lshortfile),
	}
}

// HourlySync handles POST /admin/hourly-sync (API key auth, called by cron)
func HourlySync(st *store.Store, spapiCfg config.SPAPIConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		hourlySyncManagerMutex.Lock()
		if globalHourlySyncManager != nil && globalHourlySyncManager.GetStatus().IsRunning {
			status := globalHourlySyncManager.GetStatus()
			hourlySyncManagerMutex.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "Hourly sync is already in progress",
				"status": status,
			})
			return
		}

		globalHourlySyncManager = NewHourlySyncManager(st, spapiCfg)
		hourlySyncManagerMutex.Unlock()

		go globalHourlySyncManager.Run(context.Background())

		c.JSON(http.StatusOK, gin.H{
			"message": "Hourly sync started",
			"status":  globalHourlySyncManager.GetStatus(),
		})
	}
}

// GetHourlySyncStatus returns the current hourly sync status
func GetHourlySyncStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		hourlySyncManagerMutex.Lock()
		defer hourlySyncManagerMutex.Unlock()

		if globalHourlySyncManager == nil {
			c.JSON(http.StatusOK, gin.H{
				"message": "No hourly sync has been initiated yet",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": globalHourlySyncManager.GetStatus(),
		})
	}
}

// Run executes one bounded sync pass over all active tenants. It is also
// called directly by the scheduled job binary.
func (m *HourlySyncManager) Run(ctx context.Context) error {
	m.logger.Printf("Starting hourly sync...")

	m.statusMutex.Lock()
	m.status = &HourlySyncStatus{
		StartedAt: time.Now(),
		IsRunning: true,
		Errors:    []string{},
	}
	m.statusMutex.Unlock()

	defer func() {
		m.statusMutex.Lock()
		now := time.Now()
		m.status.CompletedAt = &now
		m.status.IsRunning = false
		m.statusMutex.Unlock()

		status := m.GetStatus()
		m.logger.Printf("Hourly sync completed. Tenants: %d ok, %d failed. Orders: %d, Items: %d",
			status.TenantsSynced, status.TenantsFailed, status.OrdersProcessed, status.ItemsSynced)
	}()

	tenants, err := m.st.ActiveTenants(ctx)
	if err != nil {
		m.addError(fmt.Sprintf("Failed to list active seller accounts: %v", err))
		m.logger.Printf("CRITICAL: Failed to list active seller accounts: %v", err)
		return err
	}

	m.statusMutex.Lock()
	m.status.TenantsTotal = len(tenants)
	m.statusMutex.Unlock()

	m.logger.Printf("Syncing %d active tenants", len(tenants))

	var firstErr error
	for _, tenant := range tenants {
		if err := m.syncTenant(ctx, tenant); err != nil {
			m.addError(fmt.Sprintf("Tenant %s: %v", tenant, err))
			m.logger.Printf("Error syncing tenant %s: %v", tenant, err)
			m.statusMutex.Lock()
			m.status.TenantsFailed++
			m.statusMutex.Unlock()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		m.statusMutex.Lock()
		m.status.TenantsSynced++
		m.statusMutex.Unlock()
	}

	return firstErr
}

func (m *HourlySyncManager) syncTenant(ctx context.Context, tenant store.TenantID) error {
	// Each tenant lists orders through its own seller credentials
	apiClient, err := newSellerClient(ctx, m.st, m.spapiCfg, tenant)
	if err != nil {
		return fmt.Errorf("failed to resolve seller credentials: %w", err)
	}

	createdBefore := time.Now().Add(-2 * time.Minute)
	createdAfter := createdBefore.Add(-hourlyLookback)

	orders, err := apiClient.ListOrders(createdAfter, createdBefore)
	if err != nil {
		return fmt.Errorf("failed to list orders: %w", err)
	}

	if len(orders) > hourlyOrderCap {
		m.logger.Printf("Tenant %s: capping %d orders to %d for this run", tenant, len(orders), hourlyOrderCap)
		orders = orders[:hourlyOrderCap]
	}

	processed := 0
	items := 0
	for _, order := range orders {
		if err := m.st.UpsertOrder(ctx, tenant, store.Order{
			AmazonOrderID: order.AmazonOrderID,
			PurchaseDate:  order.PurchaseDate,
			OrderStatus:   order.OrderStatus,
			OrderTotal:    order.OrderTotal.Amount,
		}); err != nil {
			return fmt.Errorf("failed to store order %s: %w", order.AmazonOrderID, err)
		}

		synced, _, err := syncItemsForOrder(ctx, m.st, apiClient, tenant, order.AmazonOrderID)
		if err != nil {
			return fmt.Errorf("failed to sync items for order %s: %w", order.AmazonOrderID, err)
		}

		processed++
		items += synced
	}

	m.statusMutex.Lock()
	m.status.OrdersProcessed += processed
	m.status.ItemsSynced += items
	m.statusMutex.Unlock()

	if _, err := m.st.RecomputeProductAverages(ctx, tenant); err != nil {
		return fmt.Errorf("failed to recompute product averages: %w", err)
	}

	return nil
}

func (m *HourlySyncManager) addError(errorMsg string) {
	m.statusMutex.Lock()
	defer m.statusMutex.Unlock()

	if m.status != nil && len(m.status.Errors) < 20 {
		m.status.Errors = append(m.status.Errors, errorMsg)
	}
}

// GetStatus returns a copy of the current status
func (m *HourlySyncManager) GetStatus() HourlySyncStatus {
	m.statusMutex.RLock()
	defer m.statusMutex.RUnlock()

	if m.status == nil {
		return HourlySyncStatus{}
	}
	return *m.status
}
