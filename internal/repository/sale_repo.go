package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anyulbade/commission-ledger/internal/model"
)

// SaleRepository reads sales and their line items. Sales are written by the
// point-of-sale flow; this service never mutates them.
type SaleRepository struct {
	pool *pgxpool.Pool
}

func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{pool: pool}
}

func (r *SaleRepository) GetSale(ctx context.Context, id string) (*model.Sale, error) {
	s := &model.Sale{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, location_id, currency, total_amount, exchange_rate, created_at
		FROM sales WHERE id = $1`, id).
		Scan(&s.ID, &s.LocationID, &s.Currency, &s.TotalAmount, &s.ExchangeRate, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListItems returns the sale's line items with the category of each product
// resolved. Items are ordered by id so allocation is reproducible.
func (r *SaleRepository) ListItems(ctx context.Context, saleID string) ([]model.SaleLineItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT si.id, si.sale_id, si.product_id, p.category_id, si.quantity, si.unit_price, si.subtotal
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		WHERE si.sale_id = $1
		ORDER BY si.id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("query sale items: %w", err)
	}
	defer rows.Close()

	var items []model.SaleLineItem
	for rows.Next() {
		var it model.SaleLineItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.CategoryID, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CategoryNames maps category ids to their display names. Unknown ids are
// absent from the result.
func (r *SaleRepository) CategoryNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, name FROM categories WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}
