package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectReviewee(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
}

func expectReviewOrder(mock sqlmock.Sqlmock, orderID, buyerID, sellerID uuid.UUID) {
	mock.ExpectQuery(`SELECT .* FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "buyer_id", "seller_id", "status"}).
			AddRow(orderID.String(), buyerID.String(), sellerID.String(), models.OrderDelivered))
}

func TestCreateReviewRatingBounds(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewReviewService(db, NewModerationService(db))

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.Create(uuid.New(), &dto.CreateReviewRequest{RevieweeID: uuid.New(), Rating: rating})
		assert.ErrorIs(t, err, ErrInvalidRating, "rating %d", rating)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReviewRequiresOwnOrder(t *testing.T) {
	db, mock := newMockDB(t)
	orderID, sellerID := uuid.New(), uuid.New()
	expectReviewee(mock)
	expectReviewOrder(mock, orderID, uuid.New(), sellerID)

	svc := NewReviewService(db, NewModerationService(db))
	_, err := svc.Create(uuid.New(), &dto.CreateReviewRequest{RevieweeID: sellerID, OrderID: &orderID, Rating: 4})
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReviewRejectsStranger(t *testing.T) {
	db, mock := newMockDB(t)
	orderID, buyerID := uuid.New(), uuid.New()
	expectReviewee(mock)
	expectReviewOrder(mock, orderID, buyerID, uuid.New())
	mock.ExpectQuery(`SELECT count\(\*\) FROM "?deliveries"? JOIN transporters`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	svc := NewReviewService(db, NewModerationService(db))
	_, err := svc.Create(buyerID, &dto.CreateReviewRequest{RevieweeID: uuid.New(), OrderID: &orderID, Rating: 2})
	assert.ErrorIs(t, err, ErrNotOrderParty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReviewOncePerOrder(t *testing.T) {
	db, mock := newMockDB(t)
	orderID, buyerID, sellerID := uuid.New(), uuid.New(), uuid.New()
	expectReviewee(mock)
	expectReviewOrder(mock, orderID, buyerID, sellerID)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "reviews"`).
		WithArgs(orderID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	svc := NewReviewService(db, NewModerationService(db))
	_, err := svc.Create(buyerID, &dto.CreateReviewRequest{RevieweeID: sellerID, OrderID: &orderID, Rating: 5})
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReviewStartsUnapproved(t *testing.T) {
	db, mock := newMockDB(t)
	orderID, buyerID, sellerID := uuid.New(), uuid.New(), uuid.New()
	expectReviewee(mock)
	expectReviewOrder(mock, orderID, buyerID, sellerID)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "reviews"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`INSERT INTO "reviews"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))

	svc := NewReviewService(db, NewModerationService(db))
	review, err := svc.Create(buyerID, &dto.CreateReviewRequest{
		RevieweeID: sellerID, OrderID: &orderID, Rating: 5, Comment: "Fresh tomatoes, well packed",
	})
	require.NoError(t, err)
	assert.False(t, review.IsApproved)
	assert.Equal(t, 5, review.Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}
