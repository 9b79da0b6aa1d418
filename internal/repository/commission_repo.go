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

const commissionColumns = `c.id, c.seller_id, c.category_id, c.sale_id, c.currency, c.commission_amount, c.paid, c.created_at, c.updated_at`

type CommissionFilter struct {
	SellerID string
	SaleID   string
	Currency string
	Paid     *bool
}

type SummaryRow struct {
	Currency            model.Currency
	Count               int
	Total               decimal.Decimal
	Paid                decimal.Decimal
	Unpaid              decimal.Decimal
	UnpaidUSD           decimal.Decimal
	MissingExchangeRate int
}

type CommissionRepository struct {
	pool *pgxpool.Pool
}

func NewCommissionRepository(pool *pgxpool.Pool) *CommissionRepository {
	return &CommissionRepository{pool: pool}
}

func scanCommission(row pgx.Row, c *model.Commission) error {
	return row.Scan(&c.ID, &c.SellerID, &c.CategoryID, &c.SaleID, &c.Currency, &c.Amount, &c.Paid, &c.CreatedAt, &c.UpdatedAt)
}

func collectCommissions(rows pgx.Rows) ([]model.Commission, error) {
	defer rows.Close()

	var out []model.Commission
	for rows.Next() {
		var c model.Commission
		if err := scanCommission(rows, &c); err != nil {
			return nil, fmt.Errorf("scan commission: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CommissionRepository) Get(ctx context.Context, id string) (*model.Commission, error) {
	c := &model.Commission{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+commissionColumns+` FROM commissions c WHERE c.id = $1`, id)
	if err := scanCommission(row, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListAfter pages through every commission in id order. Pass an empty
// afterID for the first page.
func (r *CommissionRepository) ListAfter(ctx context.Context, afterID string, limit int) ([]model.Commission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+commissionColumns+` FROM commissions c
		WHERE ($1 = '' OR c.id > $1::uuid)
		ORDER BY c.id
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query commissions: %w", err)
	}
	return collectCommissions(rows)
}

func (r *CommissionRepository) List(ctx context.Context, f CommissionFilter, limit, offset int) ([]model.Commission, int, error) {
	where := `
		WHERE ($1 = '' OR c.seller_id = $1::uuid)
			AND ($2 = '' OR c.sale_id = $2::uuid)
			AND ($3 = '' OR c.currency = $3)
			AND ($4::boolean IS NULL OR c.paid = $4)`

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM commissions c`+where,
		f.SellerID, f.SaleID, f.Currency, f.Paid).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count commissions: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+commissionColumns+` FROM commissions c`+where+`
		ORDER BY c.created_at DESC, c.id
		LIMIT $5 OFFSET $6`,
		f.SellerID, f.SaleID, f.Currency, f.Paid, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query commissions: %w", err)
	}
	list, err := collectCommissions(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *CommissionRepository) Exists(ctx context.Context, saleID, sellerID string, categoryID *string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM commissions
		WHERE sale_id = $1 AND seller_id = $2 AND category_id IS NOT DISTINCT FROM $3::uuid)`,
		saleID, sellerID, categoryID).Scan(&exists)
	return exists, err
}

// CoveredCategories returns the categories that already carry their own
// commission for the sale and seller.
func (r *CommissionRepository) CoveredCategories(ctx context.Context, saleID, sellerID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category_id FROM commissions
		WHERE sale_id = $1 AND seller_id = $2 AND category_id IS NOT NULL`,
		saleID, sellerID)
	if err != nil {
		return nil, fmt.Errorf("query covered categories: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan category id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Insert fails with a unique violation when the (sale, seller, category)
// triple already has a commission.
func (r *CommissionRepository) Insert(ctx context.Context, c *model.Commission) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO commissions (seller_id, category_id, sale_id, currency, commission_amount, paid)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		c.SellerID, c.CategoryID, c.SaleID, c.Currency, c.Amount, c.Paid,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// InsertIfAbsent is Insert without the error: it reports false when a
// concurrent writer got there first.
func (r *CommissionRepository) InsertIfAbsent(ctx context.Context, c *model.Commission) (bool, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO commissions (seller_id, category_id, sale_id, currency, commission_amount, paid)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT uq_commission_sale_seller_category DO NOTHING
		RETURNING id, created_at, updated_at`,
		c.SellerID, c.CategoryID, c.SaleID, c.Currency, c.Amount, c.Paid,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *CommissionRepository) UpdateAmount(ctx context.Context, id string, amount decimal.Decimal, currency model.Currency) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE commissions SET commission_amount = $2, currency = $3, updated_at = NOW()
		WHERE id = $1`, id, amount, currency)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteByIDs returns the ids that were actually removed.
func (r *CommissionRepository) DeleteByIDs(ctx context.Context, ids []string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`DELETE FROM commissions WHERE id = ANY($1::uuid[]) RETURNING id`, ids)
	if err != nil {
		return nil, fmt.Errorf("delete commissions: %w", err)
	}
	return collectIDs(rows)
}

// SetPaid returns the ids that were updated.
func (r *CommissionRepository) SetPaid(ctx context.Context, ids []string, paid bool) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE commissions SET paid = $2, updated_at = NOW()
		WHERE id = ANY($1::uuid[]) RETURNING id`, ids, paid)
	if err != nil {
		return nil, fmt.Errorf("update paid flag: %w", err)
	}
	return collectIDs(rows)
}

func collectIDs(rows pgx.Rows) ([]string, error) {
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SellerSummary aggregates a seller's commissions per currency. Unpaid SRD
// amounts are converted with the exchange rate snapshot of their own sale;
// rows without a snapshot are counted instead of converted.
func (r *CommissionRepository) SellerSummary(ctx context.Context, sellerID string) ([]SummaryRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT
			c.currency,
			COUNT(*) AS commission_count,
			COALESCE(SUM(c.commission_amount), 0) AS total,
			COALESCE(SUM(c.commission_amount) FILTER (WHERE c.paid), 0) AS paid,
			COALESCE(SUM(c.commission_amount) FILTER (WHERE NOT c.paid), 0) AS unpaid,
			COALESCE(SUM(
				CASE
					WHEN c.currency = 'USD' THEN c.commission_amount
					ELSE c.commission_amount / s.exchange_rate
				END
			) FILTER (WHERE NOT c.paid AND (c.currency = 'USD' OR s.exchange_rate IS NOT NULL)), 0) AS unpaid_usd,
			COUNT(*) FILTER (WHERE NOT c.paid AND c.currency <> 'USD' AND s.exchange_rate IS NULL) AS missing_rate
		FROM commissions c
		JOIN sales s ON s.id = c.sale_id
		WHERE c.seller_id = $1
		GROUP BY c.currency
		ORDER BY c.currency`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("query seller summary: %w", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var s SummaryRow
		if err := rows.Scan(&s.Currency, &s.Count, &s.Total, &s.Paid, &s.Unpaid, &s.UnpaidUSD, &s.MissingExchangeRate); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
