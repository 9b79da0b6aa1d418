package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeCommissionCreated   = "commission.created"
	TypeCommissionCorrected = "commission.corrected"
	TypeCommissionsDeleted  = "commissions.deleted"
)

// Publisher delivers domain events keyed for partitioning. Publishing is
// best effort: callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
	Close() error
}

type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type CommissionCreated struct {
	CommissionID string          `json:"commission_id"`
	SaleID       string          `json:"sale_id"`
	SellerID     string          `json:"seller_id"`
	CategoryID   *string         `json:"category_id"`
	Amount       decimal.Decimal `json:"commission_amount"`
	Currency     string          `json:"currency"`
	Source       string          `json:"source"`
}

type CommissionCorrected struct {
	RunID        string          `json:"run_id"`
	CommissionID string          `json:"commission_id"`
	SaleID       string          `json:"sale_id"`
	SellerID     string          `json:"seller_id"`
	CategoryID   *string         `json:"category_id"`
	OldAmount    decimal.Decimal `json:"old_amount"`
	NewAmount    decimal.Decimal `json:"new_amount"`
	Currency     string          `json:"currency"`
	Method       string          `json:"method"`
}

type CommissionsDeleted struct {
	IDs []string `json:"ids"`
}
