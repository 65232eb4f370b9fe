package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrScheduleNotFound   = errors.New("schedule not found")
	ErrPostNotFound       = errors.New("post not found")
	ErrCredentialNotFound = errors.New("credential not found")
)

// ISchedulerRepository is the persistent store the scheduler treats as its
// source of truth. Posts survive restarts; in-memory jobs do not.
type ISchedulerRepository interface {
	// Schedules (read path used by the scheduler; CRUD used by the REST layer)
	ListActiveSchedules(ctx context.Context, userID string) ([]ScheduleConfig, error)
	ListSchedules(ctx context.Context, userID string) ([]ScheduleConfig, error)
	GetSchedule(ctx context.Context, id string) (ScheduleConfig, error)
	CreateSchedule(ctx context.Context, cfg ScheduleConfig) (ScheduleConfig, error)
	UpdateSchedule(ctx context.Context, cfg ScheduleConfig) error
	DeleteSchedule(ctx context.Context, id string) error

	// Posts
	CreatePost(ctx context.Context, post Post) (Post, error)
	UpdatePost(ctx context.Context, id string, update PostUpdate) error
	GetPost(ctx context.Context, id string) (Post, error)
	// ListPostsInWindow returns posts for (user, platform) whose scheduled_for
	// falls in the half-open UTC window [start, end). An empty platform
	// matches every platform.
	ListPostsInWindow(ctx context.Context, userID, platform string, statuses []PostStatus, start, end time.Time) ([]Post, error)
	// ListPostsByStatus is the recovery query run on every scheduler start.
	ListPostsByStatus(ctx context.Context, userID string, status PostStatus) ([]Post, error)

	// AI preferences
	LoadTopics(ctx context.Context, userID string) ([]string, error)
	SaveTopics(ctx context.Context, userID string, topics []string) error

	// Platform / provider credentials
	GetCredential(ctx context.Context, userID, platform string) (Credential, error)
	UpsertCredential(ctx context.Context, cred Credential) error

	// Notifications
	SaveNotification(ctx context.Context, n Notification) error
	ListNotifications(ctx context.Context, limit int) ([]Notification, error)
}
