package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/anyulbade/commission-ledger/internal/commission"
	"github.com/anyulbade/commission-ledger/internal/events"
	"github.com/anyulbade/commission-ledger/internal/lock"
	"github.com/anyulbade/commission-ledger/internal/metrics"
	"github.com/anyulbade/commission-ledger/internal/model"
)

const (
	reconcileLockKey   = "reconcile"
	reconcileBatchSize = 500
)

type Correction struct {
	CommissionID     string            `json:"commission_id"`
	SaleID           string            `json:"sale_id"`
	SellerID         string            `json:"seller_id"`
	CategoryID       *string           `json:"category_id"`
	OldAmount        decimal.Decimal   `json:"old_amount"`
	NewAmount        decimal.Decimal   `json:"new_amount"`
	OldCurrency      model.Currency    `json:"old_currency"`
	Currency         model.Currency    `json:"currency"`
	Rate             decimal.Decimal   `json:"rate"`
	SaleTotal        decimal.Decimal   `json:"sale_total"`
	CategorySubtotal decimal.Decimal   `json:"category_subtotal"`
	AllItemsSubtotal decimal.Decimal   `json:"all_items_subtotal"`
	ItemCount        int               `json:"item_count"`
	Method           commission.Method `json:"method"`
}

type RecordSkip struct {
	CommissionID string  `json:"commission_id"`
	SaleID       string  `json:"sale_id"`
	SellerID     string  `json:"seller_id"`
	CategoryID   *string `json:"category_id"`
	Reason       string  `json:"reason"`
}

type ReconcileReport struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Scanned    int          `json:"scanned"`
	Corrected  []Correction `json:"corrected"`
	Skipped    []RecordSkip `json:"skipped"`
}

type ReconcileService struct {
	commissions CommissionStore
	sales       SaleStore
	resolver    *commission.Resolver
	locker      lock.Locker
	publisher   events.Publisher
	metrics     *metrics.JobMetrics
	lockTTL     time.Duration
	batchSize   int
	newRunID    func() string
}

func NewReconcileService(
	commissions CommissionStore,
	sales SaleStore,
	rates commission.RateStore,
	locker lock.Locker,
	publisher events.Publisher,
	m *metrics.JobMetrics,
	lockTTL time.Duration,
) (*ReconcileService, error) {
	runID, err := nanoid.Standard(15)
	if err != nil {
		return nil, fmt.Errorf("run id generator: %w", err)
	}
	return &ReconcileService{
		commissions: commissions,
		sales:       sales,
		resolver:    commission.NewResolver(rates),
		locker:      locker,
		publisher:   publisher,
		metrics:     m,
		lockTTL:     lockTTL,
		batchSize:   reconcileBatchSize,
		newRunID:    runID,
	}, nil
}

// Reconcile recomputes every stored commission and rewrites the ones that
// drifted by more than commission.Tolerance. Failures on individual records
// are reported as skips; only failures to page through the table abort.
func (s *ReconcileService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	lease, err := s.locker.Acquire(ctx, reconcileLockKey, s.lockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, ErrJobRunning
	}
	if err != nil {
		return nil, fmt.Errorf("acquire reconcile lock: %w", err)
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			log.Warn().Err(err).Msg("failed to release reconcile lock")
		}
	}()

	report := &ReconcileReport{
		RunID:     s.newRunID(),
		StartedAt: time.Now().UTC(),
		Corrected: []Correction{},
		Skipped:   []RecordSkip{},
	}
	logger := log.With().Str("job", metrics.JobReconcile).Str("run_id", report.RunID).Logger()
	logger.Info().Msg("reconciliation started")

	cache := newSaleCache(s.sales, s.commissions)
	after := ""
	for {
		batch, err := s.commissions.ListAfter(ctx, after, s.batchSize)
		if err != nil {
			s.metrics.RecordRun(metrics.JobReconcile, report.StartedAt, err)
			return nil, fmt.Errorf("list commissions: %w", err)
		}

		for i := range batch {
			report.Scanned++
			s.metrics.RecordScanned(metrics.JobReconcile)
			s.reconcileOne(ctx, &batch[i], cache, report, logger)
		}

		if len(batch) < s.batchSize {
			break
		}
		after = batch[len(batch)-1].ID

		if err := lease.Refresh(ctx, s.lockTTL); err != nil {
			s.metrics.RecordRun(metrics.JobReconcile, report.StartedAt, err)
			logger.Error().Err(err).Int("scanned", report.Scanned).Msg("reconciliation lock lost, aborting")
			return nil, fmt.Errorf("refresh reconcile lock: %w", err)
		}
	}

	report.FinishedAt = time.Now().UTC()
	s.metrics.RecordRun(metrics.JobReconcile, report.StartedAt, nil)
	logger.Info().
		Int("scanned", report.Scanned).
		Int("corrected", len(report.Corrected)).
		Int("skipped", len(report.Skipped)).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("reconciliation finished")

	return report, nil
}

func (s *ReconcileService) reconcileOne(ctx context.Context, c *model.Commission, cache *saleCache, report *ReconcileReport, logger zerolog.Logger) {
	skip := func(reason string) {
		report.Skipped = append(report.Skipped, RecordSkip{
			CommissionID: c.ID,
			SaleID:       c.SaleID,
			SellerID:     c.SellerID,
			CategoryID:   c.CategoryID,
			Reason:       reason,
		})
		s.metrics.RecordSkip(metrics.JobReconcile, reason)
	}
	fail := func(step string, err error) {
		logger.Warn().Err(err).Str("commission_id", c.ID).Str("step", step).Msg("commission skipped")
		skip(fmt.Sprintf("error: %s: %v", step, err))
	}

	key := commission.KeyOf(c.CategoryID)
	rate, err := s.resolver.Resolve(ctx, c.SellerID, key)
	if err != nil {
		fail("resolve rate", err)
		return
	}
	if !rate.Found {
		skip(commission.ReasonNoRate)
		return
	}

	snap, err := cache.sale(ctx, c.SaleID)
	if err != nil {
		fail("load sale", err)
		return
	}

	var group commission.Group
	if key == commission.Uncategorized {
		siblings, err := cache.hasSiblings(ctx, c.SaleID, c.SellerID)
		if err != nil {
			fail("load sibling commissions", err)
			return
		}
		group, _ = snap.alloc.NullCategoryScope(siblings)
	} else {
		group, _ = snap.alloc.Group(key)
	}

	res := commission.Calculate(commission.Input{
		SaleTotal:        snap.sale.TotalAmount,
		CategorySubtotal: group.Subtotal,
		AllItemsSubtotal: snap.alloc.Total,
		ItemCount:        group.ItemCount(),
		RatePercent:      rate.Percent,
	}, commission.ModeAuto)
	if res.Skipped {
		skip(res.Reason)
		return
	}

	currencyChanged := c.Currency != snap.sale.Currency
	if !commission.Drifted(c.Amount, res.Amount) && !currencyChanged {
		return
	}

	if err := s.commissions.UpdateAmount(ctx, c.ID, res.Amount, snap.sale.Currency); err != nil {
		fail("update", err)
		return
	}

	corr := Correction{
		CommissionID:     c.ID,
		SaleID:           c.SaleID,
		SellerID:         c.SellerID,
		CategoryID:       c.CategoryID,
		OldAmount:        c.Amount,
		NewAmount:        res.Amount,
		OldCurrency:      c.Currency,
		Currency:         snap.sale.Currency,
		Rate:             rate.Percent,
		SaleTotal:        snap.sale.TotalAmount,
		CategorySubtotal: group.Subtotal,
		AllItemsSubtotal: snap.alloc.Total,
		ItemCount:        group.ItemCount(),
		Method:           res.Method,
	}
	report.Corrected = append(report.Corrected, corr)

	delta, _ := res.Amount.Sub(c.Amount).Float64()
	s.metrics.RecordCorrection(string(corr.Currency), string(corr.Method), delta)

	if err := s.publisher.Publish(ctx, events.TypeCommissionCorrected, c.SaleID, events.CommissionCorrected{
		RunID:        report.RunID,
		CommissionID: c.ID,
		SaleID:       c.SaleID,
		SellerID:     c.SellerID,
		CategoryID:   c.CategoryID,
		OldAmount:    c.Amount,
		NewAmount:    res.Amount,
		Currency:     string(corr.Currency),
		Method:       string(corr.Method),
	}); err != nil {
		logger.Warn().Err(err).Str("commission_id", c.ID).Msg("failed to publish correction event")
	}

	logger.Info().
		Str("commission_id", c.ID).
		Str("old_amount", c.Amount.StringFixed(2)).
		Str("new_amount", res.Amount.StringFixed(2)).
		Str("method", string(res.Method)).
		Msg("commission corrected")
}

// RunEvery reconciles on a fixed interval until ctx is cancelled. A run that
// finds the lock held by another instance is not an error.
func (s *ReconcileService) RunEvery(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			report, err := s.Reconcile(ctx)
			switch {
			case errors.Is(err, ErrJobRunning):
				log.Info().Msg("scheduled reconciliation skipped, another run holds the lock")
			case err != nil:
				log.Error().Err(err).Msg("scheduled reconciliation failed")
			default:
				log.Info().
					Str("run_id", report.RunID).
					Int("corrected", len(report.Corrected)).
					Msg("scheduled reconciliation complete")
			}
		}
	}
}

type saleSnapshot struct {
	sale  *model.Sale
	alloc commission.Allocation
}

// saleCache holds per-sale data for the duration of one reconciliation run.
type saleCache struct {
	sales       SaleStore
	commissions CommissionStore
	snapshots   map[string]*saleSnapshot
	siblings    map[string]bool
}

func newSaleCache(sales SaleStore, commissions CommissionStore) *saleCache {
	return &saleCache{
		sales:       sales,
		commissions: commissions,
		snapshots:   make(map[string]*saleSnapshot),
		siblings:    make(map[string]bool),
	}
}

func (c *saleCache) sale(ctx context.Context, saleID string) (*saleSnapshot, error) {
	if snap, ok := c.snapshots[saleID]; ok {
		return snap, nil
	}

	sale, err := c.sales.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	items, err := c.sales.ListItems(ctx, saleID)
	if err != nil {
		return nil, err
	}

	snap := &saleSnapshot{sale: sale, alloc: commission.Allocate(items)}
	c.snapshots[saleID] = snap
	return snap, nil
}

// hasSiblings reports whether the seller already has categorized
// commissions on the sale.
func (c *saleCache) hasSiblings(ctx context.Context, saleID, sellerID string) (bool, error) {
	k := saleID + "|" + sellerID
	if has, ok := c.siblings[k]; ok {
		return has, nil
	}

	ids, err := c.commissions.CoveredCategories(ctx, saleID, sellerID)
	if err != nil {
		return false, err
	}
	c.siblings[k] = len(ids) > 0
	return len(ids) > 0, nil
}
