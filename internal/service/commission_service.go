package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/anyulbade/commission-ledger/internal/commission"
	"github.com/anyulbade/commission-ledger/internal/dto"
	"github.com/anyulbade/commission-ledger/internal/events"
	"github.com/anyulbade/commission-ledger/internal/metrics"
	"github.com/anyulbade/commission-ledger/internal/model"
	"github.com/anyulbade/commission-ledger/internal/repository"
)

const sourceManual = "manual"

type CommissionService struct {
	commissions CommissionStore
	sales       SaleStore
	sellers     SellerStore
	publisher   events.Publisher
	metrics     *metrics.JobMetrics
}

func NewCommissionService(commissions CommissionStore, sales SaleStore, sellers SellerStore, publisher events.Publisher, m *metrics.JobMetrics) *CommissionService {
	return &CommissionService{
		commissions: commissions,
		sales:       sales,
		sellers:     sellers,
		publisher:   publisher,
		metrics:     m,
	}
}

// Create stores a caller-computed commission as is. The allocator and rate
// tables are not consulted; the currency always comes from the sale.
func (s *CommissionService) Create(ctx context.Context, req *dto.CreateCommissionRequest) (*model.Commission, error) {
	if req.Amount == nil {
		return nil, &validationErr{field: "commission_amount", message: "is required"}
	}
	if req.Amount.IsNegative() {
		return nil, &validationErr{field: "commission_amount", message: "must not be negative"}
	}

	sale, err := s.sales.GetSale(ctx, req.SaleID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &validationErr{field: "sale_id", message: fmt.Sprintf("sale '%s' not found", req.SaleID)}
	}
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}

	if _, err := s.sellers.GetSeller(ctx, req.SellerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &validationErr{field: "seller_id", message: fmt.Sprintf("seller '%s' not found", req.SellerID)}
		}
		return nil, fmt.Errorf("get seller: %w", err)
	}

	if req.Currency != "" && model.Currency(req.Currency) != sale.Currency {
		return nil, fmt.Errorf("%w: sale is %s, got %s", ErrCurrencyMismatch, sale.Currency, req.Currency)
	}

	c := &model.Commission{
		SellerID:   req.SellerID,
		CategoryID: req.CategoryID,
		SaleID:     sale.ID,
		Currency:   sale.Currency,
		Amount:     commission.Round2(*req.Amount),
		Paid:       req.Paid,
	}
	if err := s.commissions.Insert(ctx, c); err != nil {
		return nil, err
	}

	s.metrics.RecordCreated(sourceManual, string(c.Currency))
	s.publish(ctx, events.TypeCommissionCreated, c.SaleID, events.CommissionCreated{
		CommissionID: c.ID,
		SaleID:       c.SaleID,
		SellerID:     c.SellerID,
		CategoryID:   c.CategoryID,
		Amount:       c.Amount,
		Currency:     string(c.Currency),
		Source:       sourceManual,
	})

	return c, nil
}

type BulkResult struct {
	Affected []string `json:"-"`
	NotFound []string `json:"not_found"`
}

// Delete removes commissions by id. Ids that match nothing are reported
// back rather than treated as an error.
func (s *CommissionService) Delete(ctx context.Context, ids []string) (*BulkResult, error) {
	deleted, err := s.commissions.DeleteByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	log.Info().Int("requested", len(ids)).Int("deleted", len(deleted)).Msg("commissions deleted")
	if len(deleted) > 0 {
		s.publish(ctx, events.TypeCommissionsDeleted, deleted[0], events.CommissionsDeleted{IDs: deleted})
	}

	return &BulkResult{Affected: deleted, NotFound: missing(ids, deleted)}, nil
}

func (s *CommissionService) SetPaid(ctx context.Context, ids []string, paid bool) (*BulkResult, error) {
	updated, err := s.commissions.SetPaid(ctx, ids, paid)
	if err != nil {
		return nil, err
	}
	return &BulkResult{Affected: updated, NotFound: missing(ids, updated)}, nil
}

func (s *CommissionService) List(ctx context.Context, f repository.CommissionFilter, limit, offset int) ([]model.Commission, int, error) {
	list, total, err := s.commissions.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if list == nil {
		list = []model.Commission{}
	}
	return list, total, nil
}

func (s *CommissionService) Get(ctx context.Context, id string) (*model.Commission, error) {
	c, err := s.commissions.Get(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCommissionNotFound
	}
	return c, err
}

func (s *CommissionService) publish(ctx context.Context, eventType, key string, payload any) {
	if err := s.publisher.Publish(ctx, eventType, key, payload); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}

func missing(requested, found []string) []string {
	seen := make(map[string]bool, len(found))
	for _, id := range found {
		seen[id] = true
	}
	out := []string{}
	for _, id := range requested {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}
