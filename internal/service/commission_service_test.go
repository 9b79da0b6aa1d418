package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyulbade/commission-ledger/internal/dto"
	"github.com/anyulbade/commission-ledger/internal/events"
	"github.com/anyulbade/commission-ledger/internal/model"
	"github.com/anyulbade/commission-ledger/internal/repository"
)

func newCommissionSvc(db *fakeDB) (*CommissionService, *recordingPublisher) {
	pub := &recordingPublisher{}
	return NewCommissionService(db, db, db, pub, testMetrics()), pub
}

func TestCommissionService_Create(t *testing.T) {
	db := newFakeDB()
	db.addSeller("seller-1", "loc-1", "")
	db.addSale("sale-1", "loc-1", model.CurrencySRD, "100.00", lineItem("cat-a", "100.00"))
	svc, pub := newCommissionSvc(db)

	amount := d("12.345")
	c, err := svc.Create(context.Background(), &dto.CreateCommissionRequest{
		SellerID:   "seller-1",
		SaleID:     "sale-1",
		CategoryID: ptr("cat-a"),
		Amount:     &amount,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, model.CurrencySRD, c.Currency, "currency comes from the sale")
	assert.Equal(t, "12.35", c.Amount.StringFixed(2))
	assert.Equal(t, 1, db.count())

	created := pub.ofType(events.TypeCommissionCreated)
	require.Len(t, created, 1)
	assert.Equal(t, sourceManual, created[0].Payload.(events.CommissionCreated).Source)

	t.Run("duplicate triple", func(t *testing.T) {
		_, err := svc.Create(context.Background(), &dto.CreateCommissionRequest{
			SellerID: "seller-1", SaleID: "sale-1", CategoryID: ptr("cat-a"), Amount: &amount,
		})
		var pgErr *pgconn.PgError
		require.True(t, errors.As(err, &pgErr))
		assert.Equal(t, "23505", pgErr.Code)
	})
}

func TestCommissionService_CreateValidation(t *testing.T) {
	db := newFakeDB()
	db.addSeller("seller-1", "loc-1", "")
	db.addSale("sale-1", "loc-1", model.CurrencyUSD, "10.00")
	svc, _ := newCommissionSvc(db)

	neg := d("-1")
	one := d("1")

	tests := []struct {
		name  string
		req   dto.CreateCommissionRequest
		field string
	}{
		{"missing amount", dto.CreateCommissionRequest{SellerID: "seller-1", SaleID: "sale-1"}, "commission_amount"},
		{"negative amount", dto.CreateCommissionRequest{SellerID: "seller-1", SaleID: "sale-1", Amount: &neg}, "commission_amount"},
		{"unknown sale", dto.CreateCommissionRequest{SellerID: "seller-1", SaleID: "nope", Amount: &one}, "sale_id"},
		{"unknown seller", dto.CreateCommissionRequest{SellerID: "nope", SaleID: "sale-1", Amount: &one}, "seller_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), &tt.req)
			require.Error(t, err)
			var ve *validationErr
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field())
		})
	}

	t.Run("currency mismatch", func(t *testing.T) {
		_, err := svc.Create(context.Background(), &dto.CreateCommissionRequest{
			SellerID: "seller-1", SaleID: "sale-1", Amount: &one, Currency: "SRD",
		})
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})
	assert.Zero(t, db.count())
}

func TestCommissionService_DeleteReportsMissing(t *testing.T) {
	db := newFakeDB()
	db.addSale("sale-1", "loc-1", model.CurrencyUSD, "10.00")
	db.addCommission("com-1", "sale-1", "seller-1", nil, "1.00")
	db.addCommission("com-2", "sale-1", "seller-1", ptr("cat-a"), "1.00")
	svc, pub := newCommissionSvc(db)

	res, err := svc.Delete(context.Background(), []string{"com-1", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"com-1"}, res.Affected)
	assert.Equal(t, []string{"ghost"}, res.NotFound)
	assert.Equal(t, 1, db.count())
	require.Len(t, pub.ofType(events.TypeCommissionsDeleted), 1)

	res, err = svc.Delete(context.Background(), []string{"ghost"})
	require.NoError(t, err)
	assert.Empty(t, res.Affected)
	assert.Len(t, pub.ofType(events.TypeCommissionsDeleted), 1, "nothing deleted, nothing published")
}

func TestCommissionService_SetPaid(t *testing.T) {
	db := newFakeDB()
	db.addSale("sale-1", "loc-1", model.CurrencyUSD, "10.00")
	db.addCommission("com-1", "sale-1", "seller-1", nil, "1.00")
	svc, _ := newCommissionSvc(db)

	res, err := svc.SetPaid(context.Background(), []string{"com-1", "ghost"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"com-1"}, res.Affected)
	assert.Equal(t, []string{"ghost"}, res.NotFound)
	assert.True(t, db.commission("com-1").Paid)

	_, err = svc.SetPaid(context.Background(), []string{"com-1"}, false)
	require.NoError(t, err)
	assert.False(t, db.commission("com-1").Paid)
}

func TestCommissionService_ListAndGet(t *testing.T) {
	db := newFakeDB()
	db.addSale("sale-1", "loc-1", model.CurrencyUSD, "10.00")
	db.addSale("sale-2", "loc-1", model.CurrencySRD, "10.00")
	db.addCommission("com-1", "sale-1", "seller-1", nil, "1.00")
	db.addCommission("com-2", "sale-2", "seller-1", nil, "2.00")
	db.addCommission("com-3", "sale-2", "seller-2", nil, "3.00")
	svc, _ := newCommissionSvc(db)

	list, total, err := svc.List(context.Background(), repository.CommissionFilter{SellerID: "seller-1"}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 2)

	list, total, err = svc.List(context.Background(), repository.CommissionFilter{Currency: "EUR"}, 20, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, list)

	c, err := svc.Get(context.Background(), "com-3")
	require.NoError(t, err)
	assert.Equal(t, "seller-2", c.SellerID)

	_, err = svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrCommissionNotFound)
}
