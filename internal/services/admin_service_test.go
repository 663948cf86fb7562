package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBuildOrdersWorkbook(t *testing.T) {
	orderID := uuid.New()
	orders := []models.Order{{
		ID:             orderID,
		Status:         models.OrderConfirmed,
		TotalAmount:    decimal.RequireFromString("37.50"),
		DeliveryCity:   "Kumasi",
		DeliveryRegion: "Ashanti",
		CreatedAt:      time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Buyer:          &models.User{Email: "buyer@x.io"},
		Seller:         &models.User{Email: "farm@x.io"},
		Items: []models.OrderItem{
			{Title: "Maize", Quantity: 3},
			{Title: "Yam", Quantity: 1},
		},
		Payment: &models.Payment{Status: models.PaymentCompleted, Method: "mobile_money", Reference: "AGR_1_abcd"},
	}}

	data, err := buildOrdersWorkbook(orders)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Order ID", rows[0][0])
	assert.Equal(t, "Total (GHS)", rows[0][6])

	row := rows[1]
	assert.Equal(t, orderID.String(), row[0])
	assert.Equal(t, "2026-03-02 09:30", row[1])
	assert.Equal(t, models.OrderConfirmed, row[2])
	assert.Equal(t, "buyer@x.io", row[3])
	assert.Equal(t, "Maize x3; Yam x1", row[5])
	assert.Equal(t, "37.5", row[6])
	assert.Equal(t, "AGR_1_abcd", row[9])
	assert.Equal(t, "Ashanti", row[11])
}

func TestSetSuspendedRejectsSelf(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewAdminService(db, nil, nil, nil, nil, NewNotificationService(db, nil))

	adminID := uuid.New()
	_, err := svc.SetSuspended(&adminID, adminID, true)
	assert.ErrorIs(t, err, ErrSelfAction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetSuspendedRevokesSessions(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewAdminService(db, nil, nil, nil, nil, NewNotificationService(db, nil))

	adminID, userID := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role", "is_active", "is_suspended"}).
			AddRow(userID.String(), "f@x.io", models.RoleFarmer, true, false))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET .*"is_suspended"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "refresh_tokens" SET "revoked"`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`INSERT INTO "admin_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectCommit()

	u, err := svc.SetSuspended(&adminID, userID, true)
	require.NoError(t, err)
	assert.True(t, u.IsSuspended)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveProductMissing(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewAdminService(db, nil, nil, nil, nil, NewNotificationService(db, nil))

	mock.ExpectQuery(`SELECT .* FROM "products"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.ApproveProduct(nil, uuid.New(), true)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
