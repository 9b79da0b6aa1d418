package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencySRD Currency = "SRD"
)

func (c Currency) Valid() bool {
	return c == CurrencyUSD || c == CurrencySRD
}

type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is a sellable item or a combo. Combo composition is tracked in
// combo_items for stock purposes only; line items always reference the
// combo itself.
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	CategoryID *string         `json:"category_id,omitempty"`
	IsCombo    bool            `json:"is_combo"`
	CostUSD    decimal.Decimal `json:"cost_usd"`
	PriceUSD   decimal.Decimal `json:"price_usd"`
	CostSRD    decimal.Decimal `json:"cost_srd"`
	PriceSRD   decimal.Decimal `json:"price_srd"`
}

type Seller struct {
	ID                    string              `json:"id"`
	Name                  string              `json:"name"`
	LocationID            string              `json:"location_id"`
	DefaultCommissionRate decimal.NullDecimal `json:"default_commission_rate"`
}

// Sale is one purchase transaction. ExchangeRate is the number of units of
// Currency per USD at the time of sale; a missing snapshot is a data-quality
// defect, not a zero rate.
type Sale struct {
	ID           string              `json:"id"`
	LocationID   string              `json:"location_id"`
	Currency     Currency            `json:"currency"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
	ExchangeRate decimal.NullDecimal `json:"exchange_rate"`
	CreatedAt    time.Time           `json:"created_at"`
}

// SaleLineItem carries the category of its product so callers never need a
// second lookup. Subtotal is authoritative and may differ from
// Quantity*UnitPrice when custom pricing or bundling was applied.
type SaleLineItem struct {
	ID         string          `json:"id"`
	SaleID     string          `json:"sale_id"`
	ProductID  string          `json:"product_id"`
	CategoryID *string         `json:"category_id,omitempty"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

type SellerCategoryRate struct {
	ID         string          `json:"id"`
	SellerID   string          `json:"seller_id"`
	CategoryID *string         `json:"category_id,omitempty"`
	Rate       decimal.Decimal `json:"rate"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type Commission struct {
	ID         string          `json:"id"`
	SellerID   string          `json:"seller_id"`
	CategoryID *string         `json:"category_id,omitempty"`
	SaleID     string          `json:"sale_id"`
	Currency   Currency        `json:"currency"`
	Amount     decimal.Decimal `json:"commission_amount"`
	Paid       bool            `json:"paid"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
