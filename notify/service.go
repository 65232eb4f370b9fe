package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/postpilot/postpilot/pkg/postworker"
	"github.com/postpilot/postpilot/scheduler/domain"
	"github.com/postpilot/postpilot/ui/websocket"
	"github.com/sirupsen/logrus"
)

// Service persists scheduler events and pushes them to connected UI
// clients. Delivery happens on the worker pool so a slow store or a stuck
// websocket can never stall the scheduler; events for the same platform
// keep their order.
type Service struct {
	repo      domain.ISchedulerRepository
	pool      *postworker.Pool
	broadcast func(websocket.BroadcastMessage)
}

// NewService wires the notifier. A nil broadcast func defaults to a
// non-blocking send on the websocket hub.
func NewService(repo domain.ISchedulerRepository, pool *postworker.Pool, broadcast func(websocket.BroadcastMessage)) *Service {
	if broadcast == nil {
		broadcast = func(m websocket.BroadcastMessage) {
			select {
			case websocket.Broadcast <- m:
			default:
				logrus.Debug("[NOTIFY] Websocket hub not draining, event not pushed")
			}
		}
	}
	return &Service{repo: repo, pool: pool, broadcast: broadcast}
}

// Notify implements domain.Notifier. It returns immediately; persistence
// and fan-out happen in the background.
func (s *Service) Notify(event domain.Notification) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	s.log(event)

	s.pool.Dispatch(postworker.Job{
		Key: "notify:" + event.Platform,
		Handler: func(ctx context.Context) error {
			if err := s.repo.SaveNotification(ctx, event); err != nil {
				return err
			}
			s.broadcast(websocket.BroadcastMessage{
				Code:    "NOTIFICATION",
				Message: event.Title,
				Result:  event,
			})
			return nil
		},
	})
}

func (s *Service) log(event domain.Notification) {
	entry := logrus.WithFields(logrus.Fields{
		"platform": event.Platform,
		"title":    event.Title,
	})
	switch event.Type {
	case domain.NotifyError:
		entry.Error("[NOTIFY] " + event.Message)
	case domain.NotifyWarning:
		entry.Warn("[NOTIFY] " + event.Message)
	default:
		entry.Info("[NOTIFY] " + event.Message)
	}
}
