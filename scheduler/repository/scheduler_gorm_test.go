package repository

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/postpilot/postpilot/pkg/timeutils"
	"github.com/postpilot/postpilot/scheduler/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestRepo(t *testing.T) *SchedulerGormRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	repo := NewSchedulerGormRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestScheduleRoundTrip(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateSchedule(ctx, domain.ScheduleConfig{
		UserID:         "u1",
		Platform:       "devto",
		MaxPostsPerDay: 2,
		PreferredTimes: []string{"09:00", "18:00"},
		DaysOfWeek:     []int{1, 3, 5},
		IsActive:       true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := repo.GetSchedule(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "18:00"}, got.PreferredTimes)
	assert.Equal(t, []int{1, 3, 5}, got.DaysOfWeek)

	active, err := repo.ListActiveSchedules(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestListActiveSchedulesExcludesInactive(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateSchedule(ctx, domain.ScheduleConfig{
		UserID: "u1", Platform: "devto", MaxPostsPerDay: 1,
		PreferredTimes: []string{"09:00"}, DaysOfWeek: []int{1}, IsActive: true,
	})
	require.NoError(t, err)
	_, err = repo.CreateSchedule(ctx, domain.ScheduleConfig{
		UserID: "u1", Platform: "twitter", MaxPostsPerDay: 1,
		PreferredTimes: []string{"10:00"}, DaysOfWeek: []int{1}, IsActive: false,
	})
	require.NoError(t, err)

	active, err := repo.ListActiveSchedules(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "devto", active[0].Platform)
}

func TestWeekdaysStoredAsStringsAreNormalized(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateSchedule(ctx, domain.ScheduleConfig{
		UserID: "u1", Platform: "devto", MaxPostsPerDay: 1,
		PreferredTimes: []string{"09:00"}, DaysOfWeek: []int{2}, IsActive: true,
	})
	require.NoError(t, err)

	// Simulate a legacy row whose days were written as strings.
	err = repo.db.Exec(`UPDATE posting_schedules SET days_of_week = ? WHERE id = ?`, `["1","4"]`, created.ID).Error
	require.NoError(t, err)

	got, err := repo.GetSchedule(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, got.DaysOfWeek)
}

func TestPostLifecycle(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	post, err := repo.CreatePost(ctx, domain.Post{
		UserID:       "u1",
		PlatformName: "devto",
		PostType:     "article",
		Title:        "Hello",
		Content:      "Body",
		Tags:         []string{"go"},
		ScheduledFor: time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotEmpty(t, post.ID)
	assert.Equal(t, domain.PostStatusScheduled, post.Status)

	postedAt := time.Date(2025, 6, 15, 12, 31, 0, 0, time.UTC)
	platformID := "dev-123"
	err = repo.UpdatePost(ctx, post.ID, domain.PostUpdate{
		Status:         domain.PostStatusPublished,
		PlatformPostID: &platformID,
		PostedAt:       &postedAt,
	})
	require.NoError(t, err)

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusPublished, got.Status)
	assert.Equal(t, "dev-123", got.PlatformPostID)
	require.NotNil(t, got.PostedAt)
	assert.True(t, got.PostedAt.Equal(postedAt))
}

func TestUpdateMissingPost(t *testing.T) {
	repo := setupTestRepo(t)
	err := repo.UpdatePost(context.Background(), "missing", domain.PostUpdate{Status: domain.PostStatusFailed})
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestListPostsInWindowHalfOpen(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	local := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	window := timeutils.DayBounds(local)

	inside, err := repo.CreatePost(ctx, domain.Post{
		UserID: "u1", PlatformName: "devto", PostType: "article",
		Title: "in", Status: domain.PostStatusPublished,
		ScheduledFor: window.StartUTC.Add(time.Hour),
	})
	require.NoError(t, err)

	// Exactly at the end boundary: excluded by the half-open interval.
	_, err = repo.CreatePost(ctx, domain.Post{
		UserID: "u1", PlatformName: "devto", PostType: "article",
		Title: "boundary", Status: domain.PostStatusPublished,
		ScheduledFor: window.EndUTC,
	})
	require.NoError(t, err)

	posts, err := repo.ListPostsInWindow(ctx, "u1", "devto",
		[]domain.PostStatus{domain.PostStatusPublished}, window.StartUTC, window.EndUTC)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, inside.ID, posts[0].ID)
}

func TestListPostsInWindowFiltersStatus(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	window := timeutils.DayBounds(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))

	_, err := repo.CreatePost(ctx, domain.Post{
		UserID: "u1", PlatformName: "devto", PostType: "article",
		Title: "failed", Status: domain.PostStatusFailed,
		ScheduledFor: window.StartUTC.Add(time.Hour),
	})
	require.NoError(t, err)

	posts, err := repo.ListPostsInWindow(ctx, "u1", "devto",
		[]domain.PostStatus{domain.PostStatusScheduled, domain.PostStatusPublished},
		window.StartUTC, window.EndUTC)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestTopicsRoundTrip(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	topics, err := repo.LoadTopics(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, topics)

	require.NoError(t, repo.SaveTopics(ctx, "u1", []string{"golang", "devops"}))

	topics, err = repo.LoadTopics(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "devops"}, topics)
}

func TestCredentialUpsert(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetCredential(ctx, "u1", "devto")
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)

	require.NoError(t, repo.UpsertCredential(ctx, domain.Credential{
		UserID: "u1", Platform: "devto", Token: "first",
	}))
	require.NoError(t, repo.UpsertCredential(ctx, domain.Credential{
		UserID: "u1", Platform: "devto", Token: "second", Extra: `{"author_id":"a1"}`,
	}))

	cred, err := repo.GetCredential(ctx, "u1", "devto")
	require.NoError(t, err)
	assert.Equal(t, "second", cred.Token)
	assert.Equal(t, `{"author_id":"a1"}`, cred.Extra)
}

func TestNotifications(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.SaveNotification(ctx, domain.Notification{
			Type:      domain.NotifyInfo,
			Title:     "t",
			Message:   "m",
			Timestamp: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}

	list, err := repo.ListNotifications(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
