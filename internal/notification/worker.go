package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"queuetimer-backend/internal/model"
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

// SubscriptionStore is the part of the store the workers need.
type SubscriptionStore interface {
	ListSubscriptions(ctx context.Context, userID int64) ([]model.PushSubscription, error)
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
}

// LapseJob tells the owner of an assignment that its time budget ran out.
type LapseJob struct {
	UserID       int64
	AssignmentID string
	Title        string
}

type lapsePayload struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	AssignmentID string `json:"assignment_id"`
}

func (j LapseJob) payload() ([]byte, error) {
	return json.Marshal(lapsePayload{
		Title:        "Time is up",
		Body:         fmt.Sprintf("%q has used its full duration.", j.Title),
		AssignmentID: j.AssignmentID,
	})
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan LapseJob
	store   SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s SubscriptionStore, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan LapseJob, size), // Buffered channel
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		log:     log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("Worker started", zap.Int("worker", id))
	for {
		select {
		case job := <-wp.jobs:
			wp.log.Debug("Worker processing lapse", zap.Int("worker", id), zap.String("assignment_id", job.AssignmentID))
			wp.notifyOwner(ctx, job)
		case <-ctx.Done():
			wp.log.Debug("Worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch hands a job to the pool. It gives up when ctx is done.
func (wp *WorkerPool) Dispatch(ctx context.Context, job LapseJob) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case wp.jobs <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

// notifyOwner sends the lapse notification to every subscription of the owner.
func (wp *WorkerPool) notifyOwner(ctx context.Context, job LapseJob) {
	subscriptions, err := wp.store.ListSubscriptions(ctx, job.UserID)
	if err != nil {
		wp.log.Error("Failed to fetch subscriptions", zap.Int64("user_id", job.UserID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := job.payload()
	if err != nil {
		wp.log.Error("Failed to encode notification", zap.String("assignment_id", job.AssignmentID), zap.Error(err))
		return
	}

	wp.log.Info("Sending lapse notifications",
		zap.Int("count", len(subscriptions)),
		zap.String("assignment_id", job.AssignmentID))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	// Manually construct the webpush.Subscription object
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("Failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.log.Info("Subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscriptionByEndpoint(ctx, sub.Endpoint); err != nil {
			wp.log.Error("Failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
