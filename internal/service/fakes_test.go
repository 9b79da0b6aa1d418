package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/anyulbade/commission-ledger/internal/commission"
	"github.com/anyulbade/commission-ledger/internal/metrics"
	"github.com/anyulbade/commission-ledger/internal/model"
	"github.com/anyulbade/commission-ledger/internal/repository"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(s string) *string { return &s }

// fakeDB is an in-memory stand-in for every repository the services use.
type fakeDB struct {
	mu          sync.Mutex
	sales       map[string]*model.Sale
	items       map[string][]model.SaleLineItem
	categories  map[string]string
	sellers     map[string]*model.Seller
	rates       map[string]decimal.Decimal
	commissions map[string]*model.Commission
	seq         int

	itemsErr    map[string]error
	updateErr   error
	loseRace    bool
	updateCalls int
}

var (
	_ SaleStore       = (*fakeDB)(nil)
	_ SellerStore     = (*fakeDB)(nil)
	_ RateStore       = (*fakeDB)(nil)
	_ CommissionStore = (*fakeDB)(nil)
)

func newFakeDB() *fakeDB {
	return &fakeDB{
		sales:       make(map[string]*model.Sale),
		items:       make(map[string][]model.SaleLineItem),
		categories:  make(map[string]string),
		sellers:     make(map[string]*model.Seller),
		rates:       make(map[string]decimal.Decimal),
		commissions: make(map[string]*model.Commission),
		itemsErr:    make(map[string]error),
	}
}

func rateKey(sellerID string, categoryID *string) string {
	return sellerID + "|" + string(commission.KeyOf(categoryID))
}

// lineItem builds an item in the given category; an empty category means
// the product is uncategorized.
func lineItem(category, subtotal string) model.SaleLineItem {
	var cat *string
	if category != "" {
		cat = ptr(category)
	}
	return model.SaleLineItem{CategoryID: cat, Quantity: 1, UnitPrice: d(subtotal), Subtotal: d(subtotal)}
}

func (f *fakeDB) addSale(id, locationID string, currency model.Currency, total string, items ...model.SaleLineItem) *model.Sale {
	s := &model.Sale{
		ID:           id,
		LocationID:   locationID,
		Currency:     currency,
		TotalAmount:  d(total),
		ExchangeRate: decimal.NullDecimal{Decimal: d("35.5"), Valid: currency == model.CurrencySRD},
		CreatedAt:    time.Now(),
	}
	f.sales[id] = s
	for i := range items {
		items[i].ID = fmt.Sprintf("%s-item-%02d", id, i)
		items[i].SaleID = id
		items[i].ProductID = fmt.Sprintf("prod-%02d", i)
	}
	f.items[id] = items
	return s
}

func (f *fakeDB) addSeller(id, locationID string, def string) {
	s := &model.Seller{ID: id, Name: id, LocationID: locationID}
	if def != "" {
		s.DefaultCommissionRate = decimal.NullDecimal{Decimal: d(def), Valid: true}
	}
	f.sellers[id] = s
}

func (f *fakeDB) setRate(sellerID string, categoryID *string, rate string) {
	f.rates[rateKey(sellerID, categoryID)] = d(rate)
}

func (f *fakeDB) addCommission(id, saleID, sellerID string, categoryID *string, amount string) *model.Commission {
	sale := f.sales[saleID]
	c := &model.Commission{
		ID:         id,
		SaleID:     saleID,
		SellerID:   sellerID,
		CategoryID: categoryID,
		Amount:     d(amount),
		CreatedAt:  time.Now(),
	}
	if sale != nil {
		c.Currency = sale.Currency
	}
	f.commissions[id] = c
	return c
}

func (f *fakeDB) commission(id string) model.Commission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.commissions[id]
}

func (f *fakeDB) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commissions)
}

// SaleStore

func (f *fakeDB) GetSale(_ context.Context, id string) (*model.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sales[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeDB) ListItems(_ context.Context, saleID string) ([]model.SaleLineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.itemsErr[saleID]; err != nil {
		return nil, err
	}
	return append([]model.SaleLineItem(nil), f.items[saleID]...), nil
}

func (f *fakeDB) CategoryNames(_ context.Context, ids []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string)
	for _, id := range ids {
		if n, ok := f.categories[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

// SellerStore

func (f *fakeDB) GetSeller(_ context.Context, id string) (*model.Seller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sellers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeDB) ListByLocation(_ context.Context, locationID string) ([]model.Seller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Seller
	for _, s := range f.sellers {
		if s.LocationID == locationID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RateStore

func (f *fakeDB) FindRate(_ context.Context, sellerID string, categoryID *string) (decimal.Decimal, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rates[rateKey(sellerID, categoryID)]
	return r, ok, nil
}

func (f *fakeDB) SellerDefaultRate(_ context.Context, sellerID string) (decimal.NullDecimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sellers[sellerID]
	if !ok {
		return decimal.NullDecimal{}, pgx.ErrNoRows
	}
	return s.DefaultCommissionRate, nil
}

func (f *fakeDB) ListBySeller(_ context.Context, sellerID string) ([]model.SellerCategoryRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SellerCategoryRate
	for k, r := range f.rates {
		var seller, cat string
		for i := range k {
			if k[i] == '|' {
				seller, cat = k[:i], k[i+1:]
				break
			}
		}
		if seller != sellerID {
			continue
		}
		key := commission.CategoryKey(cat)
		out = append(out, model.SellerCategoryRate{ID: k, SellerID: seller, CategoryID: key.CategoryID(), Rate: r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDB) Upsert(_ context.Context, sr *model.SellerCategoryRate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := rateKey(sr.SellerID, sr.CategoryID)
	f.rates[k] = sr.Rate
	sr.ID = k
	sr.UpdatedAt = time.Now()
	return nil
}

func (f *fakeDB) Delete(_ context.Context, sellerID string, categoryID *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := rateKey(sellerID, categoryID)
	_, ok := f.rates[k]
	delete(f.rates, k)
	return ok, nil
}

// CommissionStore

func (f *fakeDB) Get(_ context.Context, id string) (*model.Commission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.commissions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (f *fakeDB) sortedIDs() []string {
	ids := make([]string, 0, len(f.commissions))
	for id := range f.commissions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *fakeDB) ListAfter(_ context.Context, afterID string, limit int) ([]model.Commission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Commission
	for _, id := range f.sortedIDs() {
		if id <= afterID {
			continue
		}
		out = append(out, *f.commissions[id])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeDB) List(_ context.Context, flt repository.CommissionFilter, limit, offset int) ([]model.Commission, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Commission
	for _, id := range f.sortedIDs() {
		c := f.commissions[id]
		if flt.SellerID != "" && c.SellerID != flt.SellerID {
			continue
		}
		if flt.SaleID != "" && c.SaleID != flt.SaleID {
			continue
		}
		if flt.Currency != "" && string(c.Currency) != flt.Currency {
			continue
		}
		if flt.Paid != nil && c.Paid != *flt.Paid {
			continue
		}
		all = append(all, *c)
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeDB) Exists(_ context.Context, saleID, sellerID string, categoryID *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findTriple(saleID, sellerID, categoryID) != nil, nil
}

func (f *fakeDB) findTriple(saleID, sellerID string, categoryID *string) *model.Commission {
	for _, c := range f.commissions {
		if c.SaleID == saleID && c.SellerID == sellerID && commission.KeyOf(c.CategoryID) == commission.KeyOf(categoryID) {
			return c
		}
	}
	return nil
}

func (f *fakeDB) CoveredCategories(_ context.Context, saleID, sellerID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, c := range f.commissions {
		if c.SaleID == saleID && c.SellerID == sellerID && c.CategoryID != nil {
			ids = append(ids, *c.CategoryID)
		}
	}
	return ids, nil
}

func (f *fakeDB) Insert(_ context.Context, c *model.Commission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findTriple(c.SaleID, c.SellerID, c.CategoryID) != nil {
		return &pgconn.PgError{Code: "23505", Detail: "duplicate commission"}
	}
	f.store(c)
	return nil
}

func (f *fakeDB) InsertIfAbsent(_ context.Context, c *model.Commission) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loseRace || f.findTriple(c.SaleID, c.SellerID, c.CategoryID) != nil {
		return false, nil
	}
	f.store(c)
	return true, nil
}

func (f *fakeDB) store(c *model.Commission) {
	f.seq++
	c.ID = fmt.Sprintf("new-%03d", f.seq)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	f.commissions[c.ID] = &cp
}

func (f *fakeDB) UpdateAmount(_ context.Context, id string, amount decimal.Decimal, currency model.Currency) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	c, ok := f.commissions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.Amount = amount
	c.Currency = currency
	return nil
}

func (f *fakeDB) DeleteByIDs(_ context.Context, ids []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, id := range ids {
		if _, ok := f.commissions[id]; ok {
			delete(f.commissions, id)
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeDB) SetPaid(_ context.Context, ids []string, paid bool) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, id := range ids {
		if c, ok := f.commissions[id]; ok {
			c.Paid = paid
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeDB) SellerSummary(_ context.Context, sellerID string) ([]repository.SummaryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	by := make(map[model.Currency]*repository.SummaryRow)
	for _, c := range f.commissions {
		if c.SellerID != sellerID {
			continue
		}
		row, ok := by[c.Currency]
		if !ok {
			row = &repository.SummaryRow{Currency: c.Currency}
			by[c.Currency] = row
		}
		row.Count++
		row.Total = row.Total.Add(c.Amount)
		if c.Paid {
			row.Paid = row.Paid.Add(c.Amount)
			continue
		}
		row.Unpaid = row.Unpaid.Add(c.Amount)
		sale := f.sales[c.SaleID]
		switch {
		case c.Currency == model.CurrencyUSD:
			row.UnpaidUSD = row.UnpaidUSD.Add(c.Amount)
		case sale.ExchangeRate.Valid:
			row.UnpaidUSD = row.UnpaidUSD.Add(c.Amount.Div(sale.ExchangeRate.Decimal))
		default:
			row.MissingExchangeRate++
		}
	}
	var out []repository.SummaryRow
	for _, r := range by {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

type publishedEvent struct {
	Type    string
	Key     string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{Type: eventType, Key: key, Payload: payload})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) ofType(t string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func testMetrics() *metrics.JobMetrics {
	return metrics.NewJobMetrics(prometheus.NewRegistry())
}
