package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/anyulbade/commission-ledger/internal/model"
)

// RateRepository stores per-seller, per-category commission percentages. A
// row with a NULL category is the seller's rate for uncategorized items.
type RateRepository struct {
	pool *pgxpool.Pool
}

func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return &RateRepository{pool: pool}
}

func (r *RateRepository) FindRate(ctx context.Context, sellerID string, categoryID *string) (decimal.Decimal, bool, error) {
	var rate decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT rate FROM seller_category_rates
		WHERE seller_id = $1 AND category_id IS NOT DISTINCT FROM $2::uuid`,
		sellerID, categoryID).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return rate, true, nil
}

// SellerDefaultRate returns pgx.ErrNoRows when the seller does not exist.
func (r *RateRepository) SellerDefaultRate(ctx context.Context, sellerID string) (decimal.NullDecimal, error) {
	var def decimal.NullDecimal
	err := r.pool.QueryRow(ctx,
		`SELECT default_commission_rate FROM sellers WHERE id = $1`, sellerID).Scan(&def)
	return def, err
}

func (r *RateRepository) ListBySeller(ctx context.Context, sellerID string) ([]model.SellerCategoryRate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.seller_id, r.category_id, r.rate, r.updated_at
		FROM seller_category_rates r
		LEFT JOIN categories c ON c.id = r.category_id
		WHERE r.seller_id = $1
		ORDER BY c.name NULLS LAST`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("query rates: %w", err)
	}
	defer rows.Close()

	var rates []model.SellerCategoryRate
	for rows.Next() {
		var sr model.SellerCategoryRate
		if err := rows.Scan(&sr.ID, &sr.SellerID, &sr.CategoryID, &sr.Rate, &sr.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		rates = append(rates, sr)
	}
	return rates, rows.Err()
}

func (r *RateRepository) Upsert(ctx context.Context, sr *model.SellerCategoryRate) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO seller_category_rates (seller_id, category_id, rate)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT uq_seller_category_rate
		DO UPDATE SET rate = EXCLUDED.rate, updated_at = NOW()
		RETURNING id, updated_at`,
		sr.SellerID, sr.CategoryID, sr.Rate,
	).Scan(&sr.ID, &sr.UpdatedAt)
}

// Delete reports whether a row was removed.
func (r *RateRepository) Delete(ctx context.Context, sellerID string, categoryID *string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM seller_category_rates
		WHERE seller_id = $1 AND category_id IS NOT DISTINCT FROM $2::uuid`,
		sellerID, categoryID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
