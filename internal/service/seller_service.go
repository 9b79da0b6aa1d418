package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/anyulbade/commission-ledger/internal/commission"
	"github.com/anyulbade/commission-ledger/internal/model"
	"github.com/anyulbade/commission-ledger/internal/repository"
)

type CurrencySummary struct {
	Currency            model.Currency  `json:"currency"`
	Count               int             `json:"count"`
	Total               decimal.Decimal `json:"total"`
	Paid                decimal.Decimal `json:"paid"`
	Unpaid              decimal.Decimal `json:"unpaid"`
	UnpaidUSD           decimal.Decimal `json:"unpaid_usd"`
	MissingExchangeRate int             `json:"missing_exchange_rate"`
}

type SellerSummary struct {
	Seller              model.Seller      `json:"seller"`
	Currencies          []CurrencySummary `json:"currencies"`
	UnpaidUSD           decimal.Decimal   `json:"unpaid_usd"`
	MissingExchangeRate int               `json:"missing_exchange_rate"`
}

// SellerService covers the seller-facing views: payout summaries and the
// per-category rate table.
type SellerService struct {
	sellers     SellerStore
	rates       RateStore
	commissions CommissionStore
}

func NewSellerService(sellers SellerStore, rates RateStore, commissions CommissionStore) *SellerService {
	return &SellerService{sellers: sellers, rates: rates, commissions: commissions}
}

func (s *SellerService) Summary(ctx context.Context, sellerID string) (*SellerSummary, error) {
	var (
		seller *model.Seller
		rows   []repository.SummaryRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		seller, err = s.sellers.GetSeller(gctx, sellerID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUnknownSeller
		}
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.commissions.SellerSummary(gctx, sellerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &SellerSummary{
		Seller:     *seller,
		Currencies: make([]CurrencySummary, 0, len(rows)),
		UnpaidUSD:  decimal.Zero,
	}
	for _, r := range rows {
		cs := CurrencySummary{
			Currency:            r.Currency,
			Count:               r.Count,
			Total:               commission.Round2(r.Total),
			Paid:                commission.Round2(r.Paid),
			Unpaid:              commission.Round2(r.Unpaid),
			UnpaidUSD:           commission.Round2(r.UnpaidUSD),
			MissingExchangeRate: r.MissingExchangeRate,
		}
		out.Currencies = append(out.Currencies, cs)
		out.UnpaidUSD = out.UnpaidUSD.Add(cs.UnpaidUSD)
		out.MissingExchangeRate += cs.MissingExchangeRate
	}

	if out.MissingExchangeRate > 0 {
		log.Warn().
			Str("seller_id", sellerID).
			Int("commissions", out.MissingExchangeRate).
			Msg("unpaid commissions on sales without an exchange rate snapshot")
	}

	return out, nil
}

func (s *SellerService) Rates(ctx context.Context, sellerID string) ([]model.SellerCategoryRate, error) {
	if err := s.ensureSeller(ctx, sellerID); err != nil {
		return nil, err
	}
	rates, err := s.rates.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if rates == nil {
		rates = []model.SellerCategoryRate{}
	}
	return rates, nil
}

// SetRate creates or replaces the seller's rate for a category. A nil
// category sets the rate for uncategorized items.
func (s *SellerService) SetRate(ctx context.Context, sellerID string, categoryID *string, rate decimal.Decimal) (*model.SellerCategoryRate, error) {
	if err := commission.ValidatePercent(rate); err != nil {
		return nil, &validationErr{field: "rate", message: err.Error()}
	}
	if err := s.ensureSeller(ctx, sellerID); err != nil {
		return nil, err
	}

	sr := &model.SellerCategoryRate{SellerID: sellerID, CategoryID: categoryID, Rate: rate}
	if err := s.rates.Upsert(ctx, sr); err != nil {
		return nil, err
	}

	log.Info().
		Str("seller_id", sellerID).
		Str("category", string(commission.KeyOf(categoryID))).
		Str("rate", rate.String()).
		Msg("commission rate set")
	return sr, nil
}

func (s *SellerService) DeleteRate(ctx context.Context, sellerID string, categoryID *string) error {
	ok, err := s.rates.Delete(ctx, sellerID, categoryID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRateNotFound
	}
	return nil
}

func (s *SellerService) ensureSeller(ctx context.Context, sellerID string) error {
	_, err := s.sellers.GetSeller(ctx, sellerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUnknownSeller
	}
	if err != nil {
		return fmt.Errorf("get seller: %w", err)
	}
	return nil
}
