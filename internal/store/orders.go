package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// UpsertOrder inserts or refreshes an order row. Re-syncs mutate status and
// total; orders are never deleted.
func (s *Store) UpsertOrder(ctx context.Context, tenant TenantID, o Order) error {
	query := `
		INSERT INTO orders (user_id, amazon_order_id, purchase_date, order_status, order_total, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, amazon_order_id) DO UPDATE SET
			purchase_date = EXCLUDED.purchase_date,
			order_status = EXCLUDED.order_status,
			order_total = EXCLUDED.order_total,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.ExecContext(ctx, query,
		string(tenant), o.AmazonOrderID, o.PurchaseDate.UTC(), o.OrderStatus, o.OrderTotal,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", o.AmazonOrderID, err)
	}
	return nil
}

// UpsertOrderItem inserts or refreshes an order line. The fee fields and
// fee_source tag are only written here when the incoming item carries a real
// source; a re-sync with no fee data must not downgrade an item that already
// has settlement or API fees.
func (s *Store) UpsertOrderItem(ctx context.Context, tenant TenantID, item OrderItem) error {
	query := `
		INSERT INTO order_items (
			user_id, amazon_order_id, order_item_id, asin, seller_sku,
			quantity_ordered, quantity_shipped, item_price,
			fulfillment_fee, referral_fee, storage_fee, promotion_discount, refund_fee,
			fee_source, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, amazon_order_id, order_item_id) DO UPDATE SET
			asin = EXCLUDED.asin,
			seller_sku = EXCLUDED.seller_sku,
			quantity_ordered = EXCLUDED.quantity_ordered,
			quantity_shipped = EXCLUDED.quantity_shipped,
			item_price = EXCLUDED.item_price,
			promotion_discount = EXCLUDED.promotion_discount,
			fulfillment_fee = CASE WHEN EXCLUDED.fee_source = 'none' THEN order_items.fulfillment_fee ELSE EXCLUDED.fulfillment_fee END,
			referral_fee = CASE WHEN EXCLUDED.fee_source = 'none' THEN order_items.referral_fee ELSE EXCLUDED.referral_fee END,
			storage_fee = CASE WHEN EXCLUDED.fee_source = 'none' THEN order_items.storage_fee ELSE EXCLUDED.storage_fee END,
			refund_fee = CASE WHEN EXCLUDED.fee_source = 'none' THEN order_items.refund_fee ELSE EXCLUDED.refund_fee END,
			fee_source = CASE WHEN EXCLUDED.fee_source = 'none' THEN order_items.fee_source ELSE EXCLUDED.fee_source END,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.ExecContext(ctx, query,
		string(tenant), item.AmazonOrderID, item.OrderItemID, item.ASIN, item.SellerSKU,
		item.QuantityOrdered, item.QuantityShipped, item.ItemPrice,
		item.FulfillmentFee, item.ReferralFee, item.StorageFee, item.PromotionDiscount, item.RefundFee,
		item.FeeSource,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert order item %s/%s: %w", item.AmazonOrderID, item.OrderItemID, err)
	}
	return nil
}

// ApplyItemFees writes fee components onto an existing item and tags its
// source. Settlement reports are authoritative and overwrite anything; live
// API fees never overwrite a settlement-sourced row.
func (s *Store) ApplyItemFees(ctx context.Context, tenant TenantID, orderID, orderItemID string, fulfillment, referral, storage, refund float64, source string) error {
	query := `
		UPDATE order_items
		SET fulfillment_fee = $5,
		    referral_fee = $6,
		    storage_fee = $7,
		    refund_fee = $8,
		    fee_source = $4,
		    updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1
		  AND amazon_order_id = $2
		  AND order_item_id = $3
		  AND (fee_source != 'settlement_report' OR $4 = 'settlement_report')
	`

	_, err := s.db.ExecContext(ctx, query,
		string(tenant), orderID, orderItemID, source, fulfillment, referral, storage, refund,
	)
	if err != nil {
		return fmt.Errorf("failed to apply fees to item %s/%s: %w", orderID, orderItemID, err)
	}
	return nil
}

// OrdersInRange fetches the tenant's orders whose purchase timestamp falls in
// the half-open UTC interval [start, end).
func (s *Store) OrdersInRange(ctx context.Context, tenant TenantID, start, end time.Time, excludeCanceled bool) ([]Order, error) {
	query := `
		SELECT amazon_order_id, purchase_date, order_status, COALESCE(order_total, 0)
		FROM orders
		WHERE user_id = $1
		  AND purchase_date >= $2
		  AND purchase_date < $3
	`
	args := []interface{}{string(tenant), start.UTC(), end.UTC()}
	if excludeCanceled {
		query += ` AND order_status != 'Canceled'`
	}
	query += ` ORDER BY purchase_date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.AmazonOrderID, &o.PurchaseDate, &o.OrderStatus, &o.OrderTotal); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.PurchaseDate = o.PurchaseDate.UTC()
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

// ItemsForOrders fetches all line items for a set of order IDs.
func (s *Store) ItemsForOrders(ctx context.Context, tenant TenantID, orderIDs []string) ([]OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT amazon_order_id, order_item_id, COALESCE(asin, ''), COALESCE(seller_sku, ''),
		       COALESCE(quantity_ordered, 0), COALESCE(quantity_shipped, 0), COALESCE(item_price, 0),
		       COALESCE(fulfillment_fee, 0), COALESCE(referral_fee, 0), COALESCE(storage_fee, 0),
		       COALESCE(promotion_discount, 0), COALESCE(refund_fee, 0), COALESCE(fee_source, 'none')
		FROM order_items
		WHERE user_id = $1 AND amazon_order_id = ANY($2)
	`

	rows, err := s.db.QueryContext(ctx, query, string(tenant), pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(
			&item.AmazonOrderID, &item.OrderItemID, &item.ASIN, &item.SellerSKU,
			&item.QuantityOrdered, &item.QuantityShipped, &item.ItemPrice,
			&item.FulfillmentFee, &item.ReferralFee, &item.StorageFee,
			&item.PromotionDiscount, &item.RefundFee, &item.FeeSource,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return items, nil
}

// ActiveTenants returns the user IDs of seller accounts enabled for scheduled
// syncs.
func (s *Store) ActiveTenants(ctx context.Context) ([]TenantID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM seller_accounts WHERE active = true ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active seller accounts: %w", err)
	}
	defer rows.Close()

	var tenants []TenantID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan seller account: %w", err)
		}
		tenants = append(tenants, TenantID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seller accounts: %w", err)
	}
	return tenants, nil
}

// SellerRefreshToken loads the tenant's own LWA refresh token. Every
// marketplace call must go through the tenant's token; there is no shared
// fallback account.
func (s *Store) SellerRefreshToken(ctx context.Context, tenant TenantID) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(refresh_token, '') FROM seller_accounts WHERE user_id = $1`,
		string(tenant),
	).Scan(&token)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no seller account for user %s", tenant)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query seller refresh token: %w", err)
	}
	if token == "" {
		return "", fmt.Errorf("seller account %s has no refresh token", tenant)
	}
	return token, nil
}
