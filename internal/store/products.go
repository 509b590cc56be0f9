package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ProductFeeAverages loads the tenant's product rows with their rolling
// average fee per unit, ordered by creation. Duplicate ASINs do exist in this
// table; callers building a lookup keep the iteration order so later rows
// overwrite earlier ones, same as they always have.
func (s *Store) ProductFeeAverages(ctx context.Context, tenant TenantID) ([]ProductFee, error) {
	query := `
		SELECT COALESCE(asin, ''), COALESCE(seller_sku, ''), COALESCE(avg_fee_per_unit, 0)
		FROM products
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, string(tenant))
	if err != nil {
		return nil, fmt.Errorf("failed to query product fee averages: %w", err)
	}
	defer rows.Close()

	var products []ProductFee
	for rows.Next() {
		var p ProductFee
		if err := rows.Scan(&p.ASIN, &p.SellerSKU, &p.AvgFeePerUnit); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

// ProductTitle returns the catalog title for an ASIN, if known.
func (s *Store) ProductTitle(ctx context.Context, tenant TenantID, asin string) (sql.NullString, error) {
	var title sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT title FROM products WHERE user_id = $1 AND asin = $2 ORDER BY id DESC LIMIT 1`,
		string(tenant), asin,
	).Scan(&title)
	if err == sql.ErrNoRows {
		return sql.NullString{}, nil
	}
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to query product title: %w", err)
	}
	return title, nil
}

// RecomputeProductAverages rebuilds avg_fee_per_unit for every product from
// the tenant's order items that carry a real fee source. Items tagged "none"
// never contribute. Products are keyed by (asin, seller_sku), so one ASIN
// listed under several SKUs produces several rows. Returns the number of
// product rows written.
func (s *Store) RecomputeProductAverages(ctx context.Context, tenant TenantID) (int, error) {
	query := `
		INSERT INTO products (user_id, asin, seller_sku, avg_fee_per_unit, fee_sample_units, updated_at)
		SELECT
			user_id,
			asin,
			COALESCE(seller_sku, ''),
			SUM(fulfillment_fee + referral_fee + storage_fee + refund_fee) / SUM(quantity_ordered),
			SUM(quantity_ordered),
			CURRENT_TIMESTAMP
		FROM order_items
		WHERE user_id = $1
		  AND fee_source IN ('api', 'settlement_report')
		  AND quantity_ordered > 0
		  AND asin IS NOT NULL AND asin != ''
		GROUP BY user_id, asin, COALESCE(seller_sku, '')
		ON CONFLICT (user_id, asin, seller_sku) DO UPDATE SET
			avg_fee_per_unit = EXCLUDED.avg_fee_per_unit,
			fee_sample_units = EXCLUDED.fee_sample_units,
			updated_at = CURRENT_TIMESTAMP
	`

	result, err := s.db.ExecContext(ctx, query, string(tenant))
	if err != nil {
		return 0, fmt.Errorf("failed to recompute product averages: %w", err)
	}

	affected, _ := result.RowsAffected()
	return int(affected), nil
}
