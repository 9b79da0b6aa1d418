package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyulbade/commission-ledger/internal/model"
)

func TestSellerService_Summary(t *testing.T) {
	db := newFakeDB()
	db.addSeller("seller-1", "loc-1", "")
	db.addSale("usd-sale", "loc-1", model.CurrencyUSD, "100.00")
	db.addSale("srd-sale", "loc-1", model.CurrencySRD, "710.00")
	db.addSale("srd-norate", "loc-1", model.CurrencySRD, "50.00")
	db.sales["srd-norate"].ExchangeRate.Valid = false

	db.addCommission("com-1", "usd-sale", "seller-1", ptr("cat-a"), "10.00")
	db.addCommission("com-2", "usd-sale", "seller-1", ptr("cat-b"), "5.00").Paid = true
	db.addCommission("com-3", "srd-sale", "seller-1", ptr("cat-a"), "71.00")
	db.addCommission("com-4", "srd-norate", "seller-1", ptr("cat-a"), "5.00")
	db.addCommission("com-5", "usd-sale", "seller-2", ptr("cat-c"), "99.00")

	svc := NewSellerService(db, db, db)
	sum, err := svc.Summary(context.Background(), "seller-1")
	require.NoError(t, err)

	assert.Equal(t, "seller-1", sum.Seller.ID)
	require.Len(t, sum.Currencies, 2)

	srd, usd := sum.Currencies[0], sum.Currencies[1]
	assert.Equal(t, model.CurrencySRD, srd.Currency)
	assert.Equal(t, 2, srd.Count)
	assert.Equal(t, "76.00", srd.Unpaid.StringFixed(2))
	assert.Equal(t, "2.00", srd.UnpaidUSD.StringFixed(2))
	assert.Equal(t, 1, srd.MissingExchangeRate)

	assert.Equal(t, model.CurrencyUSD, usd.Currency)
	assert.Equal(t, "15.00", usd.Total.StringFixed(2))
	assert.Equal(t, "5.00", usd.Paid.StringFixed(2))
	assert.Equal(t, "10.00", usd.Unpaid.StringFixed(2))

	assert.Equal(t, "12.00", sum.UnpaidUSD.StringFixed(2))
	assert.Equal(t, 1, sum.MissingExchangeRate)
}

func TestSellerService_SummaryWithoutCommissions(t *testing.T) {
	db := newFakeDB()
	db.addSeller("seller-1", "loc-1", "")

	sum, err := NewSellerService(db, db, db).Summary(context.Background(), "seller-1")
	require.NoError(t, err)
	assert.NotNil(t, sum.Currencies)
	assert.Empty(t, sum.Currencies)
	assert.True(t, sum.UnpaidUSD.IsZero())

	_, err = NewSellerService(db, db, db).Summary(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUnknownSeller)
}

func TestSellerService_Rates(t *testing.T) {
	db := newFakeDB()
	db.addSeller("seller-1", "loc-1", "")
	svc := NewSellerService(db, db, db)
	ctx := context.Background()

	rates, err := svc.Rates(ctx, "seller-1")
	require.NoError(t, err)
	assert.NotNil(t, rates)
	assert.Empty(t, rates)

	sr, err := svc.SetRate(ctx, "seller-1", ptr("cat-a"), d("12.5"))
	require.NoError(t, err)
	assert.NotEmpty(t, sr.ID)

	_, err = svc.SetRate(ctx, "seller-1", nil, d("0"))
	require.NoError(t, err, "zero is a valid rate")

	_, err = svc.SetRate(ctx, "seller-1", ptr("cat-a"), d("15"))
	require.NoError(t, err)

	rates, err = svc.Rates(ctx, "seller-1")
	require.NoError(t, err)
	require.Len(t, rates, 2)

	byCat := map[string]string{}
	for _, r := range rates {
		k := "uncategorized"
		if r.CategoryID != nil {
			k = *r.CategoryID
		}
		byCat[k] = r.Rate.String()
	}
	assert.Equal(t, "15", byCat["cat-a"])
	assert.Equal(t, "0", byCat["uncategorized"])

	require.NoError(t, svc.DeleteRate(ctx, "seller-1", nil))
	assert.ErrorIs(t, svc.DeleteRate(ctx, "seller-1", nil), ErrRateNotFound)
}

func TestSellerService_SetRateValidation(t *testing.T) {
	db := newFakeDB()
	db.addSeller("seller-1", "loc-1", "")
	svc := NewSellerService(db, db, db)

	for _, bad := range []string{"-0.01", "100.01"} {
		_, err := svc.SetRate(context.Background(), "seller-1", nil, d(bad))
		assert.True(t, IsValidation(err), bad)
	}

	_, err := svc.SetRate(context.Background(), "ghost", nil, d("5"))
	assert.ErrorIs(t, err, ErrUnknownSeller)

	_, err = svc.Rates(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUnknownSeller)
}
