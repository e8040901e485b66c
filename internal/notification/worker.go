package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"event-scheduler-backend/internal/model"
	"event-scheduler-backend/internal/store"
)

const timeLayout = "2006-01-02 15:04"

// queuePerWorker bounds the number of pending jobs per worker.
const queuePerWorker = 32

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool delivers booking notifications to the subscribers of a resource.
type WorkerPool struct {
	size    int
	jobs    chan int64
	store   store.Store
	loc     *time.Location
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool. Times in messages are rendered in loc.
func NewWorkerPool(size int, st store.Store, loc *time.Location, webpushOptions *webpush.Options) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if loc == nil {
		loc = time.UTC
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size*queuePerWorker),
		store:   st,
		loc:     loc,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case allocationID := <-wp.jobs:
			log.Printf("Worker %d processing allocation %d", id, allocationID)
			wp.notifyBooking(ctx, allocationID)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a notification for a newly created allocation. It never
// blocks the caller; when the queue is full the job is dropped.
func (wp *WorkerPool) Dispatch(allocationID int64) {
	select {
	case wp.jobs <- allocationID:
	default:
		log.Printf("Notification queue full, dropping allocation %d", allocationID)
	}
}

// notifyBooking tells every subscriber of the allocated resource about the booking.
func (wp *WorkerPool) notifyBooking(ctx context.Context, allocationID int64) {
	allocation, err := wp.store.GetAllocation(ctx, allocationID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Error fetching allocation %d: %v", allocationID, err)
		}
		return
	}

	subscriptions, err := wp.store.SubscriptionsForResource(ctx, allocation.ResourceID)
	if err != nil {
		log.Printf("Error fetching subscriptions for resource %d: %v", allocation.ResourceID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d notifications for resource %d", len(subscriptions), allocation.ResourceID)

	message := wp.bookingMessage(ctx, allocation)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) bookingMessage(ctx context.Context, a *model.Allocation) string {
	resourceLabel := fmt.Sprintf("#%d", a.ResourceID)
	if r, err := wp.store.GetResource(ctx, a.ResourceID); err != nil {
		log.Printf("Error fetching resource %d: %v", a.ResourceID, err)
	} else if r.Name != "" {
		resourceLabel = r.Name
	}

	e, err := wp.store.GetEvent(ctx, a.EventID)
	if err != nil {
		log.Printf("Error fetching event %d: %v", a.EventID, err)
		return fmt.Sprintf("%s has a new booking", resourceLabel)
	}
	return fmt.Sprintf("%s booked for '%s' (%s - %s)", resourceLabel, e.Title,
		e.StartTime.In(wp.loc).Format(timeLayout), e.EndTime.In(wp.loc).Format(timeLayout))
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
