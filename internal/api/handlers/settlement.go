package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ilhanselcuk/sellergenix-sub005/config"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/auth"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/fees"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/spapi"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/store"

	"github.com/gin-gonic/gin"
)

// SettlementSyncStatus represents the status of a settlement fee reconciliation
type SettlementSyncStatus struct {
	UserID             string     `json:"user_id"`
	ReportsFound       int        `json:"reports_found"`
	ReportsProcessed   int        `json:"reports_processed"`
	ItemsUpdated       int        `json:"items_updated"`
	RowsSkipped        int        `json:"rows_skipped"`
	ProductRowsUpdated int        `json:"product_rows_updated"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	IsRunning          bool       `json:"is_running"`
	Errors             []string   `json:"errors,omitempty"`
}

// SettlementSyncManager reconciles stored item fees against settlement
// reports downloaded through the tenant's own seller account.
type SettlementSyncManager struct {
	st          *store.Store
	spapiCfg    config.SPAPIConfig
	apiClient   *spapi.Client
	tenant      store.TenantID
	status      *SettlementSyncStatus
	statusMutex sync.RWMutex
	logger      *log.Logger
}

var (
	globalSettlementSyncManager *SettlementSyncManager
	settlementSyncManagerMutex  sync.Mutex
)

// NewSettlementSyncManager creates a settlement sync manager for one tenant
func NewSettlementSyncManager(st *store.Store, spapiCfg config.SPAPIConfig, tenant store.TenantID) *SettlementSyncManager {
	return &SettlementSyncManager{
		st:       st,
		spapiCfg: spapiCfg,
		tenant:   tenant,
		logger:   log.New(log.Writer(), "[SETTLEMENT_SYNC] ", log.LstdFlags|log.Lshortfile),
	}
}

// StartSettlementSync handles POST /admin/sync-settlement
func StartSettlementSync(st *store.Store, spapiCfg config.SPAPIConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		settlementSyncManagerMutex.Lock()
		if globalSettlementSyncManager != nil && globalSettlementSyncManager.GetStatus().IsRunning {
			status := globalSettlementSyncManager.GetStatus()
			settlementSyncManagerMutex.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "Settlement sync is already in progress",
				"status": status,
			})
			return
		}

		tenant := store.TenantID(auth.TenantID(c, c.Query("userId")))
		if tenant == "" {
			settlementSyncManagerMutex.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId could not be resolved"})
			return
		}

		days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
		if err != nil || days < 1 || days > 90 {
			settlementSyncManagerMutex.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer between 1 and 90"})
			return
		}

		globalSettlementSyncManager = NewSettlementSyncManager(st, spapiCfg, tenant)
		settlementSyncManagerMutex.Unlock()

		go globalSettlementSyncManager.RunSync(days)

		c.JSON(http.StatusOK, gin.H{
			"message": "Settlement sync started",
			"status":  globalSettlementSyncManager.GetStatus(),
			"days":    days,
		})
	}
}

// GetSettlementSyncStatus returns the current settlement sync status
func GetSettlementSyncStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		settlementSyncManagerMutex.Lock()
		defer settlementSyncManagerMutex.Unlock()

		if globalSettlementSyncManager == nil {
			c.JSON(http.StatusOK, gin.H{
				"message": "No settlement sync has been initiated yet",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": globalSettlementSyncManager.GetStatus(),
		})
	}
}

// RunSync downloads and applies all finished settlement reports from the last
// N days
func (m *SettlementSyncManager) RunSync(days int) {
	m.logger.Printf("Starting settlement sync for user %s (%d days)...", m.tenant, days)

	m.statusMutex.Lock()
	m.status = &SettlementSyncStatus{
		UserID:    string(m.tenant),
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
		m.logger.Printf("Settlement sync completed. Reports: %d/%d, Items updated: %d, Rows skipped: %d",
			status.ReportsProcessed, status.ReportsFound, status.ItemsUpdated, status.RowsSkipped)
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

	createdSince := time.Now().AddDate(0, 0, -days)
	reports, err := m.apiClient.ListSettlementReports(createdSince)
	if err != nil {
		m.addError(fmt.Sprintf("Failed to list settlement reports: %v", err))
		m.logger.Printf("Error listing settlement reports: %v", err)
		return
	}

	m.statusMutex.Lock()
	m.status.ReportsFound = len(reports)
	m.statusMutex.Unlock()

	m.logger.Printf("Found %d settlement reports", len(reports))

	for _, report := range reports {
		if report.ReportDocumentID == "" {
			continue
		}

		if err := m.processReport(ctx, report); err != nil {
			m.addError(fmt.Sprintf("Report %s: %v", report.ReportID, err))
			m.logger.Printf("CRITICAL: Failed to process report %s: %v", report.ReportID, err)
			continue
		}

		m.statusMutex.Lock()
		m.status.ReportsProcessed++
		m.statusMutex.Unlock()
	}

	// Settlement fees are the best historical signal; refresh the averages
	updated, err := m.st.RecomputeProductAverages(ctx, m.tenant)
	if err != nil {
		m.addError(fmt.Sprintf("Failed to recompute product averages: %v", err))
		m.logger.Printf("Error recomputing product averages: %v", err)
		return
	}

	m.statusMutex.Lock()
	m.status.ProductRowsUpdated = updated
	m.statusMutex.Unlock()
}

func (m *SettlementSyncManager) processReport(ctx context.Context, report spapi.Report) error {
	doc, err := m.apiClient.GetReportDocument(report.ReportDocumentID)
	if err != nil {
		return fmt.Errorf("failed to resolve document: %w", err)
	}

	content, err := m.apiClient.DownloadReportDocument(doc)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}

	itemFees, skipped, err := parseSettlementFees(content)
	if err != nil {
		return fmt.Errorf("failed to parse: %w", err)
	}

	m.statusMutex.Lock()
	m.status.RowsSkipped += skipped
	m.statusMutex.Unlock()

	updated := 0
	for key, buckets := range itemFees {
		if buckets.Total() == 0 {
			continue
		}
		err := m.st.ApplyItemFees(ctx, m.tenant, key.orderID, key.orderItemID,
			buckets.Fulfillment, buckets.Referral, buckets.Storage, buckets.Refund,
			fees.SourceSettlement)
		if err != nil {
			m.addError(fmt.Sprintf("Failed to apply fees for %s/%s: %v", key.orderID, key.orderItemID, err))
			continue
		}
		updated++
	}

	m.statusMutex.Lock()
	m.status.ItemsUpdated += updated
	m.statusMutex.Unlock()

	m.logger.Printf("Report %s: applied fees to %d items (%d rows skipped)", report.ReportID, updated, skipped)
	return nil
}

func (m *SettlementSyncManager) addError(errorMsg string) {
	m.statusMutex.Lock()
	defer m.statusMutex.Unlock()

	if m.status != nil && len(m.status.Errors) < 20 {
		m.status.Errors = append(m.status.Errors, errorMsg)
	}
}

// GetStatus returns a copy of the current status
func (m *SettlementSyncManager) GetStatus() SettlementSyncStatus {
	m.statusMutex.RLock()
	defer m.statusMutex.RUnlock()

	if m.status == nil {
		return SettlementSyncStatus{}
	}
	return *m.status
}

// ============================================================================
// FLAT FILE PARSING
// ============================================================================

type settlementItemKey struct {
	orderID     string
	orderItemID string
}

// parseSettlementFees extracts per-item fee totals from a settlement flat
// file. The file is tab-separated with a header row; columns are addressed by
// header name because Amazon has reordered them between report versions.
// Only ItemFees rows tied to an order item are charged; everything else
// (transfers, subscriptions, order-level adjustments) is counted as skipped.
func parseSettlementFees(content []byte) (map[settlementItemKey]*fees.Buckets, int, error) {
	lines := strings.Split(string(content), "\n")
	if len(lines) < 2 {
		return nil, 0, fmt.Errorf("settlement file has no data rows")
	}

	header := strings.Split(strings.TrimRight(lines[0], "\r"), "\t")
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	required := []string{"order-id", "amount-type", "amount-description", "amount"}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, 0, fmt.Errorf("settlement file missing column %q", name)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	itemFees := make(map[settlementItemKey]*fees.Buckets)
	skipped := 0

	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		row := strings.Split(line, "\t")

		if field(row, "amount-type") != "ItemFees" {
			skipped++
			continue
		}

		orderID := field(row, "order-id")
		orderItemID := field(row, "order-item-code")
		if orderID == "" || orderItemID == "" {
			skipped++
			continue
		}

		amount, err := strconv.ParseFloat(field(row, "amount"), 64)
		if err != nil {
			skipped++
			continue
		}

		key := settlementItemKey{orderID: orderID, orderItemID: orderItemID}
		buckets, ok := itemFees[key]
		if !ok {
			buckets = &fees.Buckets{}
			itemFees[key] = buckets
		}
		buckets.Add(field(row, "amount-description"), amount)
	}

	return itemFees, skipped, nil
}
