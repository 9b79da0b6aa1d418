package commission

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// CategoryKey identifies a category group. It is either a category id or
// Uncategorized, which can never collide with a UUID.
type CategoryKey string

const Uncategorized CategoryKey = "uncategorized"

func KeyOf(categoryID *string) CategoryKey {
	if categoryID == nil || *categoryID == "" {
		return Uncategorized
	}
	return CategoryKey(*categoryID)
}

// CategoryID converts the key back to the nullable column value.
func (k CategoryKey) CategoryID() *string {
	if k == Uncategorized || k == "" {
		return nil
	}
	id := string(k)
	return &id
}

type RateSource string

const (
	RateSourceCategory      RateSource = "category_rate"
	RateSourceUncategorized RateSource = "uncategorized_rate"
	RateSourceSellerDefault RateSource = "seller_default"
)

// Rate is a resolved commission percentage. Found=false means no rate is
// configured; a found rate of 0 is a real rate.
type Rate struct {
	Percent decimal.Decimal `json:"percent"`
	Found   bool            `json:"found"`
	Source  RateSource      `json:"source,omitempty"`
}

var (
	hundred = decimal.NewFromInt(100)

	ErrRateOutOfRange = errors.New("commission rate must be between 0 and 100")
)

func ValidatePercent(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return fmt.Errorf("%w: got %s", ErrRateOutOfRange, p.String())
	}
	return nil
}

// RateStore is the persistence needed to resolve rates.
type RateStore interface {
	// FindRate returns the rate row for (seller, category). A nil categoryID
	// selects the seller's uncategorized row.
	FindRate(ctx context.Context, sellerID string, categoryID *string) (decimal.Decimal, bool, error)
	SellerDefaultRate(ctx context.Context, sellerID string) (decimal.NullDecimal, error)
}

type Resolver struct {
	store RateStore
}

func NewResolver(store RateStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve looks up the rate for a seller and category group. Concrete
// categories only match an explicit row. Uncategorized items fall back to the
// seller default when no uncategorized row exists.
func (r *Resolver) Resolve(ctx context.Context, sellerID string, key CategoryKey) (Rate, error) {
	pct, found, err := r.store.FindRate(ctx, sellerID, key.CategoryID())
	if err != nil {
		return Rate{}, fmt.Errorf("find rate for seller %s category %s: %w", sellerID, key, err)
	}
	if found {
		src := RateSourceCategory
		if key == Uncategorized {
			src = RateSourceUncategorized
		}
		return Rate{Percent: pct, Found: true, Source: src}, nil
	}

	if key != Uncategorized {
		return Rate{}, nil
	}

	def, err := r.store.SellerDefaultRate(ctx, sellerID)
	if err != nil {
		return Rate{}, fmt.Errorf("seller default rate %s: %w", sellerID, err)
	}
	if !def.Valid {
		return Rate{}, nil
	}
	return Rate{Percent: def.Decimal, Found: true, Source: RateSourceSellerDefault}, nil
}
