package database

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Fixed ids of the demo data, referenced by integration tests.
const (
	DemoLocationCentrum  = "10000000-0000-4000-8000-000000000001"
	DemoLocationLelydorp = "10000000-0000-4000-8000-000000000002"

	DemoCategoryDrinks    = "20000000-0000-4000-8000-000000000001"
	DemoCategorySnacks    = "20000000-0000-4000-8000-000000000002"
	DemoCategoryTobacco   = "20000000-0000-4000-8000-000000000003"
	DemoCategoryHousehold = "20000000-0000-4000-8000-000000000004"

	DemoSellerRavi = "30000000-0000-4000-8000-000000000001"
	DemoSellerAnya = "30000000-0000-4000-8000-000000000002"
	DemoSellerDewi = "30000000-0000-4000-8000-000000000003"

	DemoSaleConsistent = "50000000-0000-4000-8000-000000000001"
	DemoSaleCombo      = "50000000-0000-4000-8000-000000000002"
	DemoSaleSRD        = "50000000-0000-4000-8000-000000000003"
	DemoSaleNoFxRate   = "50000000-0000-4000-8000-000000000004"
	DemoSaleLelydorp   = "50000000-0000-4000-8000-000000000005"
	DemoSaleDrift      = "50000000-0000-4000-8000-000000000006"
	DemoSaleTolerance  = "50000000-0000-4000-8000-000000000007"
	DemoSaleZeroRate   = "50000000-0000-4000-8000-000000000008"

	DemoCommissionConsistent = "60000000-0000-4000-8000-000000000001"
	DemoCommissionCombo      = "60000000-0000-4000-8000-000000000002"
	DemoCommissionDrift      = "60000000-0000-4000-8000-000000000006"
)

const (
	productCola       = "40000000-0000-4000-8000-000000000001"
	productChips      = "40000000-0000-4000-8000-000000000002"
	productCigarettes = "40000000-0000-4000-8000-000000000003"
	productSoap       = "40000000-0000-4000-8000-000000000004"
	productGiftCard   = "40000000-0000-4000-8000-000000000005"
	productPartyCombo = "40000000-0000-4000-8000-000000000006"
	productColaCrate  = "40000000-0000-4000-8000-000000000007"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type demoProduct struct {
	ID       string
	Name     string
	Category string // empty: uncategorized
	IsCombo  bool
	PriceUSD string
	PriceSRD string
}

type demoItem struct {
	Product   string
	Quantity  int
	UnitPrice string
}

type demoSale struct {
	ID           string
	Location     string
	Currency     string
	Total        string
	ExchangeRate string // empty: no snapshot
	Items        []demoItem
}

type demoCommission struct {
	ID       string
	Sale     string
	Seller   string
	Category string
	Currency string
	Amount   string
	Paid     bool
}

var demoLocations = []struct{ ID, Name string }{
	{DemoLocationCentrum, "Paramaribo Centrum"},
	{DemoLocationLelydorp, "Lelydorp Markt"},
}

var demoCategories = []struct{ ID, Name string }{
	{DemoCategoryDrinks, "Drinks"},
	{DemoCategorySnacks, "Snacks"},
	{DemoCategoryTobacco, "Tobacco"},
	{DemoCategoryHousehold, "Household"},
}

var demoSellers = []struct {
	ID, Name, Location, DefaultRate string
}{
	{DemoSellerRavi, "Ravi", DemoLocationCentrum, "5"},
	{DemoSellerAnya, "Anya", DemoLocationLelydorp, ""},
	{DemoSellerDewi, "Dewi", DemoLocationLelydorp, "3"},
}

// Ravi has no Household rate and no uncategorized row, so uncategorized
// items fall back to his default. Tobacco is deliberately 0%.
var demoRates = []struct {
	Seller, Category, Rate string
}{
	{DemoSellerRavi, DemoCategoryDrinks, "10"},
	{DemoSellerRavi, DemoCategorySnacks, "5"},
	{DemoSellerRavi, DemoCategoryTobacco, "0"},
	{DemoSellerAnya, DemoCategoryDrinks, "8"},
	{DemoSellerAnya, "", "2"},
	{DemoSellerDewi, DemoCategorySnacks, "6"},
}

var demoProducts = []demoProduct{
	{productCola, "Cola 330ml", DemoCategoryDrinks, false, "2.50", "88.75"},
	{productChips, "Cassava chips", DemoCategorySnacks, false, "1.50", "53.25"},
	{productCigarettes, "Cigarettes", DemoCategoryTobacco, false, "6.00", "213.00"},
	{productSoap, "Laundry soap", DemoCategoryHousehold, false, "3.00", "106.50"},
	{productGiftCard, "Gift card", "", false, "10.00", "355.00"},
	{productPartyCombo, "Party combo", DemoCategoryDrinks, true, "12.00", "426.00"},
	{productColaCrate, "Cola crate", DemoCategoryDrinks, false, "4.17", "148.04"},
}

var demoComboItems = []struct {
	Combo, Product string
	Quantity       int
}{
	{productPartyCombo, productCola, 4},
	{productPartyCombo, productChips, 2},
}

var demoSales = []demoSale{
	{DemoSaleConsistent, DemoLocationCentrum, "USD", "100.00", "1", []demoItem{
		{productCola, 24, "2.50"},
		{productChips, 20, "1.50"},
		{productSoap, 1, "10.00"},
	}},
	// Combo pricing leaves the line items 20.00 short of the total.
	{DemoSaleCombo, DemoLocationCentrum, "USD", "100.00", "1", []demoItem{
		{productPartyCombo, 4, "12.00"},
		{productChips, 20, "1.60"},
	}},
	{DemoSaleSRD, DemoLocationCentrum, "SRD", "355.00", "35.5", []demoItem{
		{productCola, 4, "88.75"},
	}},
	{DemoSaleNoFxRate, DemoLocationCentrum, "SRD", "71.00", "", []demoItem{
		{productGiftCard, 1, "71.00"},
	}},
	{DemoSaleLelydorp, DemoLocationLelydorp, "USD", "50.00", "1", []demoItem{
		{productCola, 20, "2.50"},
	}},
	{DemoSaleDrift, DemoLocationCentrum, "USD", "62.00", "1", []demoItem{
		{productCola, 20, "3.10"},
	}},
	{DemoSaleTolerance, DemoLocationCentrum, "USD", "50.04", "1", []demoItem{
		{productColaCrate, 12, "4.17"},
	}},
	{DemoSaleZeroRate, DemoLocationCentrum, "USD", "60.00", "1", []demoItem{
		{productCigarettes, 10, "6.00"},
	}},
}

// Stored amounts mirror what the legacy dashboard wrote: some are right,
// some drifted, one carries the wrong currency.
var demoCommissions = []demoCommission{
	{DemoCommissionConsistent, DemoSaleConsistent, DemoSellerRavi, DemoCategoryDrinks, "USD", "6.00", true},
	{DemoCommissionCombo, DemoSaleCombo, DemoSellerRavi, DemoCategoryDrinks, "USD", "4.80", false},
	{"60000000-0000-4000-8000-000000000003", DemoSaleSRD, DemoSellerRavi, DemoCategoryDrinks, "USD", "35.50", false},
	{"60000000-0000-4000-8000-000000000004", DemoSaleNoFxRate, DemoSellerRavi, "", "SRD", "5.00", false},
	{DemoCommissionDrift, DemoSaleDrift, DemoSellerRavi, DemoCategoryDrinks, "USD", "5.00", false},
	{"60000000-0000-4000-8000-000000000007", DemoSaleTolerance, DemoSellerRavi, DemoCategoryDrinks, "USD", "5.00", false},
	{"60000000-0000-4000-8000-000000000008", DemoSaleZeroRate, DemoSellerRavi, DemoCategoryTobacco, "USD", "3.00", false},
}

// generatedSales is the number of extra consistent Centrum sales without
// commissions, available as backfill candidates.
const generatedSales = 12

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableDecimal(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: dec(s), Valid: true}
}

func SeedData(ctx context.Context, pool *pgxpool.Pool) error {
	rng := rand.New(rand.NewSource(42))

	// Check if data already exists (idempotency)
	var count int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM locations").Scan(&count)
	if err != nil {
		return fmt.Errorf("check existing data: %w", err)
	}
	if count > 0 {
		log.Info().Msg("seed data already exists, skipping")
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, l := range demoLocations {
		if _, err := tx.Exec(ctx, "INSERT INTO locations (id, name) VALUES ($1, $2)", l.ID, l.Name); err != nil {
			return fmt.Errorf("insert location %s: %w", l.Name, err)
		}
	}
	for _, c := range demoCategories {
		if _, err := tx.Exec(ctx, "INSERT INTO categories (id, name) VALUES ($1, $2)", c.ID, c.Name); err != nil {
			return fmt.Errorf("insert category %s: %w", c.Name, err)
		}
	}
	for _, s := range demoSellers {
		_, err := tx.Exec(ctx,
			"INSERT INTO sellers (id, name, location_id, default_commission_rate) VALUES ($1, $2, $3, $4)",
			s.ID, s.Name, s.Location, nullableDecimal(s.DefaultRate))
		if err != nil {
			return fmt.Errorf("insert seller %s: %w", s.Name, err)
		}
	}
	for _, r := range demoRates {
		_, err := tx.Exec(ctx,
			"INSERT INTO seller_category_rates (seller_id, category_id, rate) VALUES ($1, $2, $3)",
			r.Seller, nullable(r.Category), dec(r.Rate))
		if err != nil {
			return fmt.Errorf("insert rate %s/%s: %w", r.Seller, r.Category, err)
		}
	}
	log.Info().
		Int("locations", len(demoLocations)).
		Int("sellers", len(demoSellers)).
		Int("rates", len(demoRates)).
		Msg("inserted locations, sellers and rates")

	for _, p := range demoProducts {
		_, err := tx.Exec(ctx,
			`INSERT INTO products (id, name, category_id, is_combo, cost_usd, price_usd, cost_srd, price_srd)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.Name, nullable(p.Category), p.IsCombo,
			dec(p.PriceUSD).Mul(dec("0.6")).Round(2), dec(p.PriceUSD),
			dec(p.PriceSRD).Mul(dec("0.6")).Round(2), dec(p.PriceSRD))
		if err != nil {
			return fmt.Errorf("insert product %s: %w", p.Name, err)
		}
	}
	for _, ci := range demoComboItems {
		_, err := tx.Exec(ctx,
			"INSERT INTO combo_items (combo_id, product_id, quantity) VALUES ($1, $2, $3)",
			ci.Combo, ci.Product, ci.Quantity)
		if err != nil {
			return fmt.Errorf("insert combo item: %w", err)
		}
	}
	log.Info().Int("count", len(demoProducts)).Msg("inserted products")

	now := time.Now().UTC()
	for i, s := range demoSales {
		if err := insertSale(ctx, tx, s, now.Add(-time.Duration(len(demoSales)-i)*time.Hour)); err != nil {
			return err
		}
	}

	// Extra consistent sales spread over the last 60 days
	plain := []demoProduct{demoProducts[0], demoProducts[1], demoProducts[2], demoProducts[3]}
	for i := 0; i < generatedSales; i++ {
		s := demoSale{Location: DemoLocationCentrum, Currency: "USD", ExchangeRate: "1"}
		total := decimal.Zero
		for _, p := range pick(rng, plain, 1+rng.Intn(3)) {
			qty := 1 + rng.Intn(5)
			s.Items = append(s.Items, demoItem{Product: p.ID, Quantity: qty, UnitPrice: p.PriceUSD})
			total = total.Add(dec(p.PriceUSD).Mul(decimal.NewFromInt(int64(qty))))
		}
		s.Total = total.StringFixed(2)
		created := now.AddDate(0, 0, -rng.Intn(60)).Add(-time.Duration(rng.Intn(86400)) * time.Second)
		if err := insertSale(ctx, tx, s, created); err != nil {
			return err
		}
	}
	log.Info().Int("count", len(demoSales)+generatedSales).Msg("inserted sales")

	for _, c := range demoCommissions {
		_, err := tx.Exec(ctx,
			`INSERT INTO commissions (id, seller_id, category_id, sale_id, currency, commission_amount, paid)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, c.Seller, nullable(c.Category), c.Sale, c.Currency, dec(c.Amount), c.Paid)
		if err != nil {
			return fmt.Errorf("insert commission %s: %w", c.ID, err)
		}
	}
	log.Info().Int("count", len(demoCommissions)).Msg("inserted commissions")

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed data: %w", err)
	}

	log.Info().Msg("seed data generation complete")
	return nil
}

func insertSale(ctx context.Context, tx pgx.Tx, s demoSale, createdAt time.Time) error {
	var id string
	err := tx.QueryRow(ctx,
		`INSERT INTO sales (id, location_id, currency, total_amount, exchange_rate, created_at)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6)
		RETURNING id`,
		s.ID, s.Location, s.Currency, dec(s.Total), nullableDecimal(s.ExchangeRate), createdAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert sale %s: %w", s.ID, err)
	}

	for _, it := range s.Items {
		unit := dec(it.UnitPrice)
		_, err := tx.Exec(ctx,
			"INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, subtotal) VALUES ($1, $2, $3, $4, $5)",
			id, it.Product, it.Quantity, unit, unit.Mul(decimal.NewFromInt(int64(it.Quantity))))
		if err != nil {
			return fmt.Errorf("insert sale item for %s: %w", id, err)
		}
	}
	return nil
}

func pick(rng *rand.Rand, from []demoProduct, n int) []demoProduct {
	idx := rng.Perm(len(from))
	out := make([]demoProduct, 0, n)
	for _, i := range idx[:n] {
		out = append(out, from[i])
	}
	return out
}
