package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"event-scheduler-backend/internal/db"
	"event-scheduler-backend/internal/model"
	"event-scheduler-backend/internal/store"
)

// base is a fixed reference day for interval fixtures.
var base = time.Date(2030, time.March, 4, 0, 0, 0, 0, time.UTC)

func at(hour int) time.Time {
	return base.Add(time.Duration(hour) * time.Hour)
}

// newTestService returns a service over a private in-memory SQLite database.
func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))

	st := store.NewGormStore(gormDB)
	svc := NewService(nil, st)
	svc.now = func() time.Time { return base }
	return svc, st
}

func mustEvent(t *testing.T, svc *Service, title string, start, end time.Time) *model.Event {
	t.Helper()
	e, err := svc.CreateEvent(context.Background(), EventInput{Title: title, StartTime: start, EndTime: end})
	require.NoError(t, err)
	return e
}

func mustResource(t *testing.T, svc *Service, name, typ string) *model.Resource {
	t.Helper()
	r, err := svc.CreateResource(context.Background(), ResourceInput{Name: name, Type: typ})
	require.NoError(t, err)
	return r
}

func mustAllocate(t *testing.T, svc *Service, eventID int64, resourceIDs ...int64) *AllocationResult {
	t.Helper()
	res, err := svc.Allocate(context.Background(), eventID, resourceIDs)
	require.NoError(t, err)
	return res
}
