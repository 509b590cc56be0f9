// Package store is the tenant-scoped persistence layer. Every operation takes
// an explicit TenantID and every query filters by user_id; nothing in here
// can read or write another seller's rows.
package store

import (
	"database/sql"
	"time"

	"github.com/ilhanselcuk/sellergenix-sub005/internal/database"
)

// TenantID identifies the seller account owning a set of rows. Passed
// explicitly into every store call so reconciliation logic can never be
// reused without tenant scoping.
type TenantID string

// Store wraps the shared database client.
type Store struct {
	db *sql.DB
}

func New(client *database.PostgreSQLClient) *Store {
	return &Store{db: client.DB}
}

// Order is a marketplace order row, keyed by the business identifier
// amazon_order_id within a tenant.
type Order struct {
	AmazonOrderID string
	PurchaseDate  time.Time // UTC
	OrderStatus   string
	OrderTotal    float64
}

// Canceled reports whether the order was canceled on the marketplace.
func (o Order) Canceled() bool {
	return o.OrderStatus == "Canceled"
}

// OrderItem is one line of an order. The fee fields are only trustworthy when
// FeeSource is "api" or "settlement_report"; rows tagged "none" carry
// whatever defaults ingestion left behind.
type OrderItem struct {
	AmazonOrderID     string
	OrderItemID       string
	ASIN              string
	SellerSKU         string
	QuantityOrdered   int
	QuantityShipped   int
	ItemPrice         float64
	FulfillmentFee    float64
	ReferralFee       float64
	StorageFee        float64
	PromotionDiscount float64
	RefundFee         float64
	FeeSource         string
}

// TotalFees is the stored fee total for the item. Promotion discounts are
// price adjustments, not fees, and are excluded.
func (i OrderItem) TotalFees() float64 {
	return i.FulfillmentFee + i.ReferralFee + i.StorageFee + i.RefundFee
}

// ProductFee is a product row's rolling average fee per unit, computed from
// historical items with a real fee source.
type ProductFee struct {
	ASIN          string
	SellerSKU     string
	AvgFeePerUnit float64
}
