package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/anyulbade/commission-ledger/internal/commission"
	"github.com/anyulbade/commission-ledger/internal/model"
	"github.com/anyulbade/commission-ledger/internal/repository"
)

// The stores below are satisfied by the pgx repositories and by in-memory
// fakes in tests. Lookups return pgx.ErrNoRows for missing rows.

type SaleStore interface {
	GetSale(ctx context.Context, id string) (*model.Sale, error)
	ListItems(ctx context.Context, saleID string) ([]model.SaleLineItem, error)
	CategoryNames(ctx context.Context, ids []string) (map[string]string, error)
}

type SellerStore interface {
	GetSeller(ctx context.Context, id string) (*model.Seller, error)
	ListByLocation(ctx context.Context, locationID string) ([]model.Seller, error)
}

type RateStore interface {
	commission.RateStore
	ListBySeller(ctx context.Context, sellerID string) ([]model.SellerCategoryRate, error)
	Upsert(ctx context.Context, sr *model.SellerCategoryRate) error
	Delete(ctx context.Context, sellerID string, categoryID *string) (bool, error)
}

type CommissionStore interface {
	Get(ctx context.Context, id string) (*model.Commission, error)
	ListAfter(ctx context.Context, afterID string, limit int) ([]model.Commission, error)
	List(ctx context.Context, f repository.CommissionFilter, limit, offset int) ([]model.Commission, int, error)
	Exists(ctx context.Context, saleID, sellerID string, categoryID *string) (bool, error)
	CoveredCategories(ctx context.Context, saleID, sellerID string) ([]string, error)
	Insert(ctx context.Context, c *model.Commission) error
	InsertIfAbsent(ctx context.Context, c *model.Commission) (bool, error)
	UpdateAmount(ctx context.Context, id string, amount decimal.Decimal, currency model.Currency) error
	DeleteByIDs(ctx context.Context, ids []string) ([]string, error)
	SetPaid(ctx context.Context, ids []string, paid bool) ([]string, error)
	SellerSummary(ctx context.Context, sellerID string) ([]repository.SummaryRow, error)
}

var (
	_ SaleStore       = (*repository.SaleRepository)(nil)
	_ SellerStore     = (*repository.SellerRepository)(nil)
	_ RateStore       = (*repository.RateRepository)(nil)
	_ CommissionStore = (*repository.CommissionRepository)(nil)
)
