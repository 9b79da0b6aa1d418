package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/anyulbade/commission-ledger/internal/commission"
	"github.com/anyulbade/commission-ledger/internal/model"
)

// Diagnosis is the full context behind one stored commission, for manual
// audit. Expected amounts are nil when no rate is configured.
type Diagnosis struct {
	Commission           model.Commission  `json:"commission"`
	Seller               model.Seller      `json:"seller"`
	CategoryName         string            `json:"category_name"`
	Rate                 commission.Rate   `json:"rate"`
	Sale                 model.Sale        `json:"sale"`
	Scope                commission.Scope  `json:"scope"`
	CategorySubtotal     decimal.Decimal   `json:"category_subtotal"`
	AllItemsSubtotal     decimal.Decimal   `json:"all_items_subtotal"`
	ItemCount            int               `json:"item_count"`
	LineItemsMismatch    bool              `json:"line_items_mismatch"`
	ExpectedDirect       *decimal.Decimal  `json:"expected_direct"`
	ExpectedProportional *decimal.Decimal  `json:"expected_proportional"`
	Method               commission.Method `json:"method,omitempty"`
	Difference           *decimal.Decimal  `json:"difference"`
	WouldCorrect         bool              `json:"would_correct"`
	ExchangeRateMissing  bool              `json:"exchange_rate_missing"`
	Note                 string            `json:"note,omitempty"`
}

type DiagnosticService struct {
	commissions CommissionStore
	sales       SaleStore
	sellers     SellerStore
	resolver    *commission.Resolver
}

func NewDiagnosticService(commissions CommissionStore, sales SaleStore, sellers SellerStore, rates commission.RateStore) *DiagnosticService {
	return &DiagnosticService{
		commissions: commissions,
		sales:       sales,
		sellers:     sellers,
		resolver:    commission.NewResolver(rates),
	}
}

func (s *DiagnosticService) Diagnose(ctx context.Context, commissionID string) (*Diagnosis, error) {
	c, err := s.commissions.Get(ctx, commissionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCommissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get commission: %w", err)
	}

	key := commission.KeyOf(c.CategoryID)

	var (
		seller  *model.Seller
		sale    *model.Sale
		items   []model.SaleLineItem
		rate    commission.Rate
		names   map[string]string
		covered []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		seller, err = s.sellers.GetSeller(gctx, c.SellerID)
		if err != nil {
			return fmt.Errorf("get seller: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sale, err = s.sales.GetSale(gctx, c.SaleID)
		if err != nil {
			return fmt.Errorf("get sale: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		items, err = s.sales.ListItems(gctx, c.SaleID)
		return err
	})
	g.Go(func() error {
		var err error
		rate, err = s.resolver.Resolve(gctx, c.SellerID, key)
		return err
	})
	if c.CategoryID != nil {
		g.Go(func() error {
			var err error
			names, err = s.sales.CategoryNames(gctx, []string{*c.CategoryID})
			return err
		})
	} else {
		g.Go(func() error {
			var err error
			covered, err = s.commissions.CoveredCategories(gctx, c.SaleID, c.SellerID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	alloc := commission.Allocate(items)
	d := &Diagnosis{
		Commission:          *c,
		Seller:              *seller,
		CategoryName:        categoryName(key, names),
		Rate:                rate,
		Sale:                *sale,
		Scope:               commission.ScopeCategory,
		AllItemsSubtotal:    alloc.Total,
		LineItemsMismatch:   commission.Mismatched(sale.TotalAmount, alloc.Total),
		ExchangeRateMissing: !sale.ExchangeRate.Valid,
	}

	var group commission.Group
	if key == commission.Uncategorized {
		group, d.Scope = alloc.NullCategoryScope(len(covered) > 0)
	} else {
		group, _ = alloc.Group(key)
	}
	d.CategorySubtotal = group.Subtotal
	d.ItemCount = group.ItemCount()

	if !rate.Found {
		d.Note = commission.ReasonNoRate
		return d, nil
	}

	in := commission.Input{
		SaleTotal:        sale.TotalAmount,
		CategorySubtotal: group.Subtotal,
		AllItemsSubtotal: alloc.Total,
		ItemCount:        group.ItemCount(),
		RatePercent:      rate.Percent,
	}
	exp := commission.Expected(in)
	d.ExpectedDirect = &exp.Direct
	d.ExpectedProportional = exp.Proportional
	d.Method = exp.Method

	res := commission.Calculate(in, commission.ModeAuto)
	if res.Skipped {
		d.Note = res.Reason
		return d, nil
	}
	diff := c.Amount.Sub(res.Amount)
	d.Difference = &diff
	d.WouldCorrect = commission.Drifted(c.Amount, res.Amount) || c.Currency != sale.Currency

	return d, nil
}
