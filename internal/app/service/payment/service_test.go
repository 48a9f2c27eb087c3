package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/internal/platform/db/dbtest"
	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_checkout"
	"github.com/fatflowers/docpay/pkg/types"
)

func TestFromSession(t *testing.T) {
	doc := &models.Document{ID: "d1", UserID: "u1"}
	sess := &stripe_checkout.Session{ID: "cs_test_1", AmountTotal: 7500, Currency: "eur"}

	p := FromSession(doc, sess, &stripe_checkout.Fees{Gross: 7500, Fee: 248, Net: 7252, Currency: "eur"})
	require.Equal(t, int64(7252), p.Amount)
	require.Equal(t, int64(7500), p.GrossAmount)
	require.Equal(t, int64(248), p.FeeAmount)
	require.Equal(t, models.PaymentStatusCompleted, p.Status)
	require.Equal(t, "cs_test_1", p.SessionID)

	p = FromSession(doc, sess, nil)
	require.Equal(t, int64(7500), p.Amount)
	require.Equal(t, int64(0), p.FeeAmount)
}

func TestCreateIfAbsent_OnePaymentPerDocument(t *testing.T) {
	db := dbtest.New(t)
	svc := NewService(db, zap.NewNop().Sugar())
	ctx := context.Background()
	doc := &models.Document{ID: "d1", UserID: "u1"}
	sess := &stripe_checkout.Session{ID: "cs_test_1", AmountTotal: 100, Currency: "eur"}

	created, err := svc.CreateIfAbsent(ctx, nil, FromSession(doc, sess, nil))
	require.NoError(t, err)
	require.True(t, created)

	created, err = svc.CreateIfAbsent(ctx, nil, FromSession(doc, sess, nil))
	require.NoError(t, err)
	require.False(t, created)

	var n int64
	require.NoError(t, db.Model(&models.Payment{}).Where("document_id = ?", "d1").Count(&n).Error)
	require.EqualValues(t, 1, n)

	p, err := svc.GetByDocument(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "cs_test_1", p.SessionID)

	p, err = svc.GetByDocument(ctx, "d2")
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestScanPayments(t *testing.T) {
	db := dbtest.New(t)
	svc := NewService(db, zap.NewNop().Sugar())
	ctx := context.Background()
	for i, u := range []string{"u1", "u1", "u2"} {
		doc := &models.Document{ID: string(rune('a' + i)), UserID: u}
		_, err := svc.CreateIfAbsent(ctx, nil, FromSession(doc, &stripe_checkout.Session{ID: "cs_" + doc.ID, AmountTotal: int64(100 * (i + 1))}, nil))
		require.NoError(t, err)
	}

	res, err := svc.ScanPayments(ctx, &ScanPaymentsRequest{
		Filters: []*types.CommonFilter{{Field: "user_id", Operator: types.CommonFilterOperatorEq, Values: []any{"u1"}}},
		SortBy:  "amount",
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Total)
	require.Equal(t, int64(200), res.Items[0].Amount)

	res, err = svc.ScanPayments(ctx, &ScanPaymentsRequest{Size: 1, From: 1, SortBy: "amount", SortOrder: "asc"})
	require.NoError(t, err)
	require.EqualValues(t, 3, res.Total)
	require.Len(t, res.Items, 1)
	require.Equal(t, int64(200), res.Items[0].Amount)

	_, err = svc.ScanPayments(ctx, &ScanPaymentsRequest{SortBy: "amount; DROP TABLE payments"})
	require.ErrorIs(t, err, ErrInvalidScan)
	_, err = svc.ScanPayments(ctx, &ScanPaymentsRequest{Filters: []*types.CommonFilter{{Field: "secret", Operator: types.CommonFilterOperatorEq, Values: []any{1}}}})
	require.ErrorIs(t, err, ErrInvalidScan)
}
