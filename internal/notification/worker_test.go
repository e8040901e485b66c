package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"event-scheduler-backend/internal/db"
	"event-scheduler-backend/internal/model"
	"event-scheduler-backend/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func newTestStore(t *testing.T) store.Store {
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
	return store.NewGormStore(gormDB)
}

// seedBooking creates a resource watched by one subscription and an
// allocation of that resource.
func seedBooking(t *testing.T, st store.Store, endpoint string) *model.Allocation {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2030, time.March, 4, 9, 0, 0, 0, time.UTC)

	r := &model.Resource{Name: "Conference Room A", Type: "room"}
	require.NoError(t, st.CreateResource(ctx, r))
	e := &model.Event{Title: "Tech Conference", StartTime: start, EndTime: start.Add(2 * time.Hour)}
	require.NoError(t, st.CreateEvent(ctx, e))
	a := &model.Allocation{EventID: e.ID, ResourceID: r.ID}
	require.NoError(t, st.CreateAllocation(ctx, a))

	sub := &model.PushSubscription{Endpoint: endpoint, P256DH: "test_p256dh", Auth: "test_auth"}
	require.NoError(t, st.UpsertSubscription(ctx, sub, []int64{r.ID}))
	return a
}

func okResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestWorkerPool_DispatchDoesNotBlock(t *testing.T) {
	wp := NewWorkerPool(1, newTestStore(t), nil, &webpush.Options{})

	done := make(chan struct{})
	go func() {
		for i := 0; i < queuePerWorker+10; i++ {
			wp.Dispatch(int64(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked with no workers running")
	}
	assert.Len(t, wp.jobs, queuePerWorker)
}

func TestWorkerPool_NotifyBooking(t *testing.T) {
	st := newTestStore(t)
	a := seedBooking(t, st, "https://example.com/push")

	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	wp := NewWorkerPool(1, st, kolkata, &webpush.Options{})

	got := make(chan string, 1)
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			assert.Equal(t, "https://example.com/push", sub.Endpoint)
			assert.Equal(t, "test_p256dh", sub.Keys.P256dh)
			got <- string(payload)
			return okResponse(http.StatusCreated), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)
	wp.Dispatch(a.ID)

	select {
	case msg := <-got:
		assert.Equal(t, "Conference Room A booked for 'Tech Conference' (2030-03-04 14:30 - 2030-03-04 16:30)", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestWorkerPool_DeletesExpiredSubscription(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	a := seedBooking(t, st, "https://example.com/expired")

	wp := NewWorkerPool(1, st, time.UTC, &webpush.Options{})
	calls := 0
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			calls++
			return okResponse(http.StatusGone), nil
		},
	}

	wp.notifyBooking(ctx, a.ID)
	assert.Equal(t, 1, calls)

	_, err := st.GetSubscription(ctx, "https://example.com/expired")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWorkerPool_UnknownAllocationIsIgnored(t *testing.T) {
	st := newTestStore(t)
	wp := NewWorkerPool(1, st, time.UTC, &webpush.Options{})
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			t.Fatal("no notification expected")
			return nil, nil
		},
	}
	wp.notifyBooking(context.Background(), 404)
}
