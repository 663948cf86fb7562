package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/paystack"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "sk_test_secret"

type fakeKeys struct{ value string }

func (f fakeKeys) ActiveValue(string, string) (string, error) { return f.value, nil }

type fakeGateway struct {
	initReq    *paystack.InitializeRequest
	verifyData *paystack.TransactionData
	err        error
}

func (f *fakeGateway) Initialize(_ context.Context, _ string, req *paystack.InitializeRequest) (*paystack.InitializeData, json.RawMessage, error) {
	f.initReq = req
	if f.err != nil {
		return nil, nil, f.err
	}
	return &paystack.InitializeData{AuthorizationURL: "https://checkout.paystack.com/x", AccessCode: "x", Reference: req.Reference},
		json.RawMessage(`{"access_code":"x"}`), nil
}

func (f *fakeGateway) Verify(context.Context, string, string) (*paystack.TransactionData, json.RawMessage, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.verifyData, json.RawMessage(`{"status":"` + f.verifyData.Status + `"}`), nil
}

type paymentFixture struct {
	paymentID, orderID, buyerID, sellerID uuid.UUID
	reference                             string
}

func newPaymentFixture() paymentFixture {
	return paymentFixture{
		paymentID: uuid.New(),
		orderID:   uuid.New(),
		buyerID:   uuid.New(),
		sellerID:  uuid.New(),
		reference: "AGR_1700000000000_a1b2c3d4",
	}
}

func (f paymentFixture) expectLookup(mock sqlmock.Sqlmock, status string) {
	mock.ExpectQuery(`SELECT .* FROM "payments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "amount", "status", "method", "reference"}).
			AddRow(f.paymentID.String(), f.orderID.String(), "25.50", status, models.MethodCard, f.reference))
	mock.ExpectQuery(`SELECT .* FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "buyer_id", "seller_id", "status", "total_amount"}).
			AddRow(f.orderID.String(), f.buyerID.String(), f.sellerID.String(), models.OrderPending, "25.50"))
}

func (f paymentFixture) chargeSuccessBody(t *testing.T, amount int64) []byte {
	t.Helper()
	data, err := json.Marshal(dto.PaystackChargeData{ID: 99, Reference: f.reference, Status: "success", Amount: amount, PaidAt: "2026-10-01T10:00:00.000Z"})
	require.NoError(t, err)
	body, err := json.Marshal(dto.PaystackEvent{Event: "charge.success", Data: data})
	require.NoError(t, err)
	return body
}

func newPaymentService(t *testing.T, gw Gateway) (*PaymentService, sqlmock.Sqlmock, *fakePusher) {
	db, mock := newMockDB(t)
	pusher := &fakePusher{}
	cfg := &config.Config{FrontendURL: "http://localhost:3000"}
	return NewPaymentService(db, cfg, gw, fakeKeys{value: testSecret}, NewNotificationService(db, pusher)), mock, pusher
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	svc, mock, _ := newPaymentService(t, &fakeGateway{})
	body := newPaymentFixture().chargeSuccessBody(t, 2550)

	err := svc.HandleWebhook(body, paystack.Sign("wrong-secret", body))
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	svc, mock, _ := newPaymentService(t, &fakeGateway{})
	body := []byte(`{"event":"transfer.success","data":{}}`)

	assert.NoError(t, svc.HandleWebhook(body, paystack.Sign(testSecret, body)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookChargeSuccessSettlesOnce(t *testing.T) {
	svc, mock, pusher := newPaymentService(t, &fakeGateway{})
	f := newPaymentFixture()
	body := f.chargeSuccessBody(t, 2550)

	f.expectLookup(mock, models.PaymentPending)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO payment_events`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "payments" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "orders" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "transactions"`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectQuery(`INSERT INTO "notifications"`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectQuery(`INSERT INTO "notifications"`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectCommit()

	require.NoError(t, svc.HandleWebhook(body, paystack.Sign(testSecret, body)))
	assert.Equal(t, []string{"notification"}, pusher.events(f.buyerID))
	assert.Equal(t, []string{"notification"}, pusher.events(f.sellerID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookReplayHasNoSideEffects(t *testing.T) {
	svc, mock, pusher := newPaymentService(t, &fakeGateway{})
	f := newPaymentFixture()
	body := f.chargeSuccessBody(t, 2550)

	f.expectLookup(mock, models.PaymentCompleted)
	mock.ExpectBegin()
	// event key already in the ledger
	mock.ExpectExec(`INSERT INTO payment_events`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, svc.HandleWebhook(body, paystack.Sign(testSecret, body)))
	assert.Empty(t, pusher.pushes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleSkipsAlreadyCompletedPayment(t *testing.T) {
	svc, mock, pusher := newPaymentService(t, &fakeGateway{})
	f := newPaymentFixture()
	body := f.chargeSuccessBody(t, 2550)

	f.expectLookup(mock, models.PaymentPending)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO payment_events`).WillReturnResult(sqlmock.NewResult(0, 1))
	// completed concurrently between lookup and update
	mock.ExpectExec(`UPDATE "payments" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, svc.HandleWebhook(body, paystack.Sign(testSecret, body)))
	assert.Empty(t, pusher.pushes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookAmountMismatchIsNotSettled(t *testing.T) {
	svc, mock, _ := newPaymentService(t, &fakeGateway{})
	f := newPaymentFixture()
	body := f.chargeSuccessBody(t, 100)

	f.expectLookup(mock, models.PaymentPending)

	require.NoError(t, svc.HandleWebhook(body, paystack.Sign(testSecret, body)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyMarksFailedCharge(t *testing.T) {
	gw := &fakeGateway{verifyData: &paystack.TransactionData{Status: "failed", Reference: "AGR_1_x"}}
	svc, mock, _ := newPaymentService(t, gw)
	f := newPaymentFixture()

	f.expectLookup(mock, models.PaymentPending)
	mock.ExpectExec(`UPDATE "payments" SET`).WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := svc.Verify(context.Background(), f.buyerID, f.reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, p.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyHidesOtherUsersPayments(t *testing.T) {
	svc, mock, _ := newPaymentService(t, &fakeGateway{})
	f := newPaymentFixture()
	f.expectLookup(mock, models.PaymentPending)

	_, err := svc.Verify(context.Background(), uuid.New(), f.reference)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestInitializeMobileMoney(t *testing.T) {
	gw := &fakeGateway{}
	svc, mock, _ := newPaymentService(t, gw)
	orderID, buyerID := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "buyer_id", "seller_id", "status", "total_amount"}).
			AddRow(orderID.String(), buyerID.String(), uuid.NewString(), models.OrderPending, "25.50"))
	mock.ExpectQuery(`SELECT .* FROM "payments"`).WillReturnRows(sqlmock.NewRows([]string{"id", "order_id"}))
	mock.ExpectQuery(`INSERT INTO "payments"`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))

	resp, err := svc.Initialize(context.Background(), buyerID, "buyer@example.com", &dto.InitializePaymentRequest{
		OrderID: orderID,
		Method:  models.MethodMobileMoneyVodafone,
		Phone:   "0201234567",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^AGR_\d+_[0-9a-f]{8}$`, resp.Reference)

	require.NotNil(t, gw.initReq)
	assert.Equal(t, int64(2550), gw.initReq.Amount)
	assert.Equal(t, []string{"mobile_money"}, gw.initReq.Channels)
	assert.Equal(t, "vodafone", gw.initReq.MobileMoney.Provider)
	assert.Equal(t, orderID.String(), gw.initReq.Metadata["orderId"])
	assert.Equal(t, "http://localhost:3000/payment/callback", gw.initReq.CallbackURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitializeRejectsPaidOrder(t *testing.T) {
	gw := &fakeGateway{}
	svc, mock, _ := newPaymentService(t, gw)
	orderID, buyerID := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "buyer_id", "seller_id", "status", "total_amount"}).
			AddRow(orderID.String(), buyerID.String(), uuid.NewString(), models.OrderConfirmed, "25.50"))
	mock.ExpectQuery(`SELECT .* FROM "payments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "status"}).
			AddRow(uuid.NewString(), orderID.String(), models.PaymentCompleted))

	_, err := svc.Initialize(context.Background(), buyerID, "b@x.io", &dto.InitializePaymentRequest{OrderID: orderID, Method: models.MethodCard})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Nil(t, gw.initReq)
}
