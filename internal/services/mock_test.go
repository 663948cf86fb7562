package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

type recordedPush struct {
	userID uuid.UUID
	event  string
	data   interface{}
}

type fakePusher struct {
	pushes []recordedPush
}

func (f *fakePusher) SendToUser(userID uuid.UUID, event string, data interface{}) bool {
	f.pushes = append(f.pushes, recordedPush{userID, event, data})
	return true
}

func (f *fakePusher) events(userID uuid.UUID) []string {
	var out []string
	for _, p := range f.pushes {
		if p.userID == userID {
			out = append(out, p.event)
		}
	}
	return out
}
