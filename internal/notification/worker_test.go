package notification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"

	"reservation-dashboard/internal/board"
	"reservation-dashboard/internal/model"
	"reservation-dashboard/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// mockStore overrides the subscription lookups the worker uses.
type mockStore struct {
	store.Store
	SubscriptionsForTableFunc func(ctx context.Context, tableID string) ([]model.PushSubscription, error)
	DeleteSubscriptionFunc    func(ctx context.Context, endpoint string) error
}

func (m *mockStore) SubscriptionsForTable(ctx context.Context, tableID string) ([]model.PushSubscription, error) {
	return m.SubscriptionsForTableFunc(ctx, tableID)
}

func (m *mockStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return m.DeleteSubscriptionFunc(ctx, endpoint)
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestJob_Message(t *testing.T) {
	job := JobFromChange(board.SlotChange{TableID: "3", Slot: "14:00 - 15:00", Status: board.StatusPhoneCall, CustomerName: "Nguyen", Pax: 4})
	assert.Equal(t, "Table 3: new phone reservation 14:00 - 15:00 (Nguyen, 4 pax)", job.Message())

	job = Job{TableID: "5", Slot: "10:00 - 11:00", Status: board.StatusWalkIn}
	assert.Equal(t, "Table 5: new walk-in 10:00 - 11:00", job.Message())
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, &mockStore{}, &webpush.Options{})

	wp.Dispatch(Job{TableID: "7"})

	select {
	case job := <-wp.jobs:
		assert.Equal(t, "7", job.TableID)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DispatchDropsWhenFull(t *testing.T) {
	wp := NewWorkerPool(1, &mockStore{}, &webpush.Options{})
	for i := 0; i < cap(wp.jobs)+3; i++ {
		wp.Dispatch(Job{TableID: "1"})
	}
	assert.Len(t, wp.jobs, cap(wp.jobs))
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("sends notification for one subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		s := &mockStore{
			SubscriptionsForTableFunc: func(ctx context.Context, tableID string) ([]model.PushSubscription, error) {
				assert.Equal(t, "3", tableID)
				return []model.PushSubscription{{Endpoint: "https://example.com/push", P256DH: "test_p256dh", Auth: "test_auth"}}, nil
			},
		}
		wp := NewWorkerPool(1, s, &webpush.Options{})
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				assert.Equal(t, "test_p256dh", sub.Keys.P256dh)
				assert.Equal(t, "Table 3: new phone reservation 14:00 - 15:00 (Nguyen, 4 pax)", string(payload))
				wg.Done()
				return response(http.StatusCreated), nil
			},
		}
		wp.Start(ctx)

		wp.Dispatch(Job{TableID: "3", Slot: "14:00 - 15:00", Status: board.StatusPhoneCall, CustomerName: "Nguyen", Pax: 4})
		wg.Wait()
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		deleted := make(chan string, 1)
		s := &mockStore{
			SubscriptionsForTableFunc: func(ctx context.Context, tableID string) ([]model.PushSubscription, error) {
				return []model.PushSubscription{{Endpoint: "https://example.com/expired"}}, nil
			},
			DeleteSubscriptionFunc: func(ctx context.Context, endpoint string) error {
				deleted <- endpoint
				return nil
			},
		}
		wp := NewWorkerPool(1, s, &webpush.Options{})
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return response(http.StatusGone), nil
			},
		}
		wp.Start(ctx)

		wp.Dispatch(Job{TableID: "4", Slot: "12:00 - 13:00", Status: board.StatusWalkIn})

		select {
		case endpoint := <-deleted:
			assert.Equal(t, "https://example.com/expired", endpoint)
		case <-time.After(time.Second):
			t.Fatal("expired subscription was not deleted")
		}
	})

	t.Run("skips sending when lookup fails", func(t *testing.T) {
		looked := make(chan struct{}, 1)
		s := &mockStore{
			SubscriptionsForTableFunc: func(ctx context.Context, tableID string) ([]model.PushSubscription, error) {
				looked <- struct{}{}
				return nil, errors.New("db down")
			},
		}
		wp := NewWorkerPool(1, s, &webpush.Options{})
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				t.Error("sender must not be called")
				return response(http.StatusCreated), nil
			},
		}
		wp.Start(ctx)

		wp.Dispatch(Job{TableID: "5"})
		select {
		case <-looked:
		case <-time.After(time.Second):
			t.Fatal("worker did not pick up the job")
		}
		time.Sleep(50 * time.Millisecond)
	})
}
