package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/anyulbade/commission-ledger/internal/commission"
	"github.com/anyulbade/commission-ledger/internal/events"
	"github.com/anyulbade/commission-ledger/internal/metrics"
	"github.com/anyulbade/commission-ledger/internal/model"
)

// GroupOutcome describes what the backfill did with one category group.
type GroupOutcome struct {
	CategoryID   *string          `json:"category_id"`
	CategoryName string           `json:"category_name"`
	Subtotal     decimal.Decimal  `json:"subtotal"`
	ItemCount    int              `json:"item_count"`
	Rate         *decimal.Decimal `json:"rate,omitempty"`
	Amount       *decimal.Decimal `json:"commission_amount,omitempty"`
	CommissionID string           `json:"commission_id,omitempty"`
	Reason       string           `json:"reason,omitempty"`
}

type BackfillReport struct {
	SaleID   string         `json:"sale_id"`
	SellerID string         `json:"seller_id"`
	Currency model.Currency `json:"currency"`
	Created  []GroupOutcome `json:"created"`
	Skipped  []GroupOutcome `json:"skipped"`
}

type BackfillService struct {
	commissions CommissionStore
	sales       SaleStore
	sellers     SellerStore
	resolver    *commission.Resolver
	publisher   events.Publisher
	metrics     *metrics.JobMetrics
}

func NewBackfillService(commissions CommissionStore, sales SaleStore, sellers SellerStore, rates commission.RateStore, publisher events.Publisher, m *metrics.JobMetrics) *BackfillService {
	return &BackfillService{
		commissions: commissions,
		sales:       sales,
		sellers:     sellers,
		resolver:    commission.NewResolver(rates),
		publisher:   publisher,
		metrics:     m,
	}
}

// Backfill creates the missing per-category commissions of one sale using
// the direct path. Existing commissions are never touched.
func (s *BackfillService) Backfill(ctx context.Context, saleID string, sellerID *string) (*BackfillReport, error) {
	started := time.Now()
	report, err := s.backfill(ctx, saleID, sellerID)
	s.metrics.RecordRun(metrics.JobBackfill, started, err)
	return report, err
}

func (s *BackfillService) backfill(ctx context.Context, saleID string, sellerID *string) (*BackfillReport, error) {
	sale, err := s.sales.GetSale(ctx, saleID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}

	seller, err := s.resolveSeller(ctx, sale, sellerID)
	if err != nil {
		return nil, err
	}

	items, err := s.sales.ListItems(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale items: %w", err)
	}
	alloc := commission.Allocate(items)

	names, err := s.sales.CategoryNames(ctx, categoryIDs(alloc))
	if err != nil {
		return nil, fmt.Errorf("category names: %w", err)
	}

	report := &BackfillReport{
		SaleID:   sale.ID,
		SellerID: seller.ID,
		Currency: sale.Currency,
		Created:  []GroupOutcome{},
		Skipped:  []GroupOutcome{},
	}
	logger := log.With().Str("job", metrics.JobBackfill).Str("sale_id", sale.ID).Str("seller_id", seller.ID).Logger()

	for _, g := range alloc.Groups {
		out := GroupOutcome{
			CategoryID:   g.Key.CategoryID(),
			CategoryName: categoryName(g.Key, names),
			Subtotal:     g.Subtotal,
			ItemCount:    g.ItemCount(),
		}
		skip := func(reason string) {
			out.Reason = reason
			report.Skipped = append(report.Skipped, out)
			s.metrics.RecordSkip(metrics.JobBackfill, reason)
		}

		exists, err := s.commissions.Exists(ctx, sale.ID, seller.ID, out.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("check existing commission: %w", err)
		}
		if exists {
			skip(commission.ReasonExists)
			continue
		}

		rate, err := s.resolver.Resolve(ctx, seller.ID, g.Key)
		if err != nil {
			return nil, err
		}
		if !rate.Found {
			skip(commission.ReasonNoRate)
			continue
		}
		out.Rate = &rate.Percent

		res := commission.Calculate(commission.Input{
			SaleTotal:        sale.TotalAmount,
			CategorySubtotal: g.Subtotal,
			AllItemsSubtotal: alloc.Total,
			ItemCount:        g.ItemCount(),
			RatePercent:      rate.Percent,
		}, commission.ModeDirect)
		if res.Skipped {
			skip(res.Reason)
			continue
		}
		out.Amount = &res.Amount

		c := &model.Commission{
			SellerID:   seller.ID,
			CategoryID: out.CategoryID,
			SaleID:     sale.ID,
			Currency:   sale.Currency,
			Amount:     res.Amount,
		}
		inserted, err := s.commissions.InsertIfAbsent(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("insert commission: %w", err)
		}
		if !inserted {
			skip(commission.ReasonExists)
			continue
		}

		out.CommissionID = c.ID
		report.Created = append(report.Created, out)
		s.metrics.RecordCreated(metrics.JobBackfill, string(c.Currency))

		if err := s.publisher.Publish(ctx, events.TypeCommissionCreated, c.SaleID, events.CommissionCreated{
			CommissionID: c.ID,
			SaleID:       c.SaleID,
			SellerID:     c.SellerID,
			CategoryID:   c.CategoryID,
			Amount:       c.Amount,
			Currency:     string(c.Currency),
			Source:       metrics.JobBackfill,
		}); err != nil {
			logger.Warn().Err(err).Str("commission_id", c.ID).Msg("failed to publish created event")
		}
	}

	logger.Info().
		Int("created", len(report.Created)).
		Int("skipped", len(report.Skipped)).
		Msg("backfill finished")

	return report, nil
}

// resolveSeller never guesses: an explicit seller must belong to the sale's
// location, and without one the location must have exactly one seller.
func (s *BackfillService) resolveSeller(ctx context.Context, sale *model.Sale, sellerID *string) (*model.Seller, error) {
	if sellerID != nil && *sellerID != "" {
		seller, err := s.sellers.GetSeller(ctx, *sellerID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownSeller
		}
		if err != nil {
			return nil, fmt.Errorf("get seller: %w", err)
		}
		if seller.LocationID != sale.LocationID {
			return nil, &validationErr{field: "seller_id", message: "seller does not belong to the sale's location"}
		}
		return seller, nil
	}

	sellers, err := s.sellers.ListByLocation(ctx, sale.LocationID)
	if err != nil {
		return nil, fmt.Errorf("list sellers for location: %w", err)
	}
	switch len(sellers) {
	case 0:
		return nil, ErrSellerNotFound
	case 1:
		return &sellers[0], nil
	default:
		return nil, ErrSellerAmbiguous
	}
}

func categoryIDs(alloc commission.Allocation) []string {
	var ids []string
	for _, g := range alloc.Groups {
		if id := g.Key.CategoryID(); id != nil {
			ids = append(ids, *id)
		}
	}
	return ids
}

func categoryName(key commission.CategoryKey, names map[string]string) string {
	if key == commission.Uncategorized {
		return "Uncategorized"
	}
	if n, ok := names[string(key)]; ok {
		return n
	}
	return string(key)
}
