package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/postpilot/postpilot/pkg/postworker"
	"github.com/postpilot/postpilot/scheduler/domain"
	"github.com/postpilot/postpilot/ui/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureRepo struct {
	domain.ISchedulerRepository

	mu    sync.Mutex
	saved []domain.Notification
}

func (r *captureRepo) SaveNotification(ctx context.Context, n domain.Notification) error {
	r.mu.Lock()
	r.saved = append(r.saved, n)
	r.mu.Unlock()
	return nil
}

func (r *captureRepo) notifications() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.saved...)
}

func TestNotifyPersistsAndBroadcasts(t *testing.T) {
	repo := &captureRepo{}
	pool := postworker.NewPool(2, 10)
	pool.Start(context.Background())
	defer pool.Stop()

	var mu sync.Mutex
	var pushed []websocket.BroadcastMessage
	svc := NewService(repo, pool, func(m websocket.BroadcastMessage) {
		mu.Lock()
		pushed = append(pushed, m)
		mu.Unlock()
	})

	svc.Notify(domain.Notification{
		Type:     domain.NotifySuccess,
		Title:    "Post published",
		Message:  "Content published to devto",
		Platform: "devto",
	})

	require.Eventually(t, func() bool {
		return len(repo.notifications()) == 1
	}, time.Second, 10*time.Millisecond)

	saved := repo.notifications()[0]
	assert.NotEmpty(t, saved.ID, "an ID is assigned before persisting")
	assert.False(t, saved.Timestamp.IsZero())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, pushed, 1)
	assert.Equal(t, "NOTIFICATION", pushed[0].Code)
	assert.Equal(t, "Post published", pushed[0].Message)
}

func TestNotifyDoesNotBlockCaller(t *testing.T) {
	repo := &captureRepo{}
	pool := postworker.NewPool(1, 1)
	pool.Start(context.Background())
	defer pool.Stop()

	block := make(chan struct{})
	svc := NewService(repo, pool, func(m websocket.BroadcastMessage) { <-block })

	start := time.Now()
	for i := 0; i < 10; i++ {
		svc.Notify(domain.Notification{Type: domain.NotifyInfo, Title: "t", Platform: "devto"})
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	close(block)
}

func TestSamePlatformEventsKeepOrder(t *testing.T) {
	repo := &captureRepo{}
	pool := postworker.NewPool(4, 100)
	pool.Start(context.Background())
	defer pool.Stop()

	svc := NewService(repo, pool, func(m websocket.BroadcastMessage) {})

	titles := []string{"first", "second", "third"}
	for _, title := range titles {
		svc.Notify(domain.Notification{Type: domain.NotifyInfo, Title: title, Platform: "devto"})
	}

	require.Eventually(t, func() bool {
		return len(repo.notifications()) == 3
	}, time.Second, 10*time.Millisecond)

	saved := repo.notifications()
	for i, title := range titles {
		assert.Equal(t, title, saved[i].Title)
	}
}
