package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anyulbade/commission-ledger/internal/model"
)

type SellerRepository struct {
	pool *pgxpool.Pool
}

func NewSellerRepository(pool *pgxpool.Pool) *SellerRepository {
	return &SellerRepository{pool: pool}
}

func (r *SellerRepository) GetSeller(ctx context.Context, id string) (*model.Seller, error) {
	s := &model.Seller{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, location_id, default_commission_rate
		FROM sellers WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.LocationID, &s.DefaultCommissionRate)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SellerRepository) ListByLocation(ctx context.Context, locationID string) ([]model.Seller, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, location_id, default_commission_rate
		FROM sellers WHERE location_id = $1
		ORDER BY name, id`, locationID)
	if err != nil {
		return nil, fmt.Errorf("query sellers: %w", err)
	}
	defer rows.Close()

	var sellers []model.Seller
	for rows.Next() {
		var s model.Seller
		if err := rows.Scan(&s.ID, &s.Name, &s.LocationID, &s.DefaultCommissionRate); err != nil {
			return nil, fmt.Errorf("scan seller: %w", err)
		}
		sellers = append(sellers, s)
	}
	return sellers, rows.Err()
}
