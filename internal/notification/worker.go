package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	log "github.com/sirupsen/logrus"

	"reservation-dashboard/internal/board"
	"reservation-dashboard/internal/model"
	"reservation-dashboard/internal/store"
)

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

// Job announces a slot that a remote reservation just booked.
type Job struct {
	TableID      string
	Slot         string
	Status       board.Status
	CustomerName string
	Pax          int
}

// JobFromChange builds a job from a board change.
func JobFromChange(c board.SlotChange) Job {
	return Job{
		TableID:      c.TableID,
		Slot:         c.Slot,
		Status:       c.Status,
		CustomerName: c.CustomerName,
		Pax:          c.Pax,
	}
}

// Message renders the push text for the job.
func (j Job) Message() string {
	kind := "walk-in"
	if j.Status == board.StatusPhoneCall {
		kind = "phone reservation"
	}
	msg := fmt.Sprintf("Table %s: new %s %s", j.TableID, kind, j.Slot)
	if j.CustomerName != "" {
		msg += fmt.Sprintf(" (%s, %d pax)", j.CustomerName, j.Pax)
	}
	return msg
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Job
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size*8),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
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
		case job := <-wp.jobs:
			log.WithFields(log.Fields{"worker": id, "table": job.TableID, "slot": job.Slot}).Debug("processing notification job")
			wp.sendNotificationsForTable(ctx, job)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a job. When the queue is full the job is dropped so a
// slow push service never stalls the refresh cycle.
func (wp *WorkerPool) Dispatch(job Job) {
	select {
	case wp.jobs <- job:
	default:
		log.WithFields(log.Fields{"table": job.TableID, "slot": job.Slot}).Warn("notification queue full; dropping job")
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

func (wp *WorkerPool) sendNotificationsForTable(ctx context.Context, job Job) {
	subscriptions, err := wp.store.SubscriptionsForTable(ctx, job.TableID)
	if err != nil {
		log.WithError(err).WithField("table", job.TableID).Error("error fetching subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d notifications for table %s", len(subscriptions), job.TableID)
	payload := []byte(job.Message())
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

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
		log.WithError(err).WithField("endpoint", sub.Endpoint).Error("error sending notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to delete expired subscription")
		}
	}
}
