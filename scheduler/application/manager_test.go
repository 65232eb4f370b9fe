package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	generationDomain "github.com/postpilot/postpilot/generation/domain"
	"github.com/postpilot/postpilot/pkg/timeutils"
	"github.com/postpilot/postpilot/scheduler/domain"
	"github.com/postpilot/postpilot/scheduler/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t.UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t.UTC()
	c.mu.Unlock()
}

type stubEngine struct{}

func (stubEngine) Generate(ctx context.Context, req generationDomain.GenerateRequest) (generationDomain.GeneratedContent, error) {
	return generationDomain.GeneratedContent{
		Title: "About " + req.Topic,
		Body:  "Generated body for " + req.Platform,
		Tags:  []string{"go"},
	}, nil
}

type scriptedPublisher struct {
	mu         sync.Mutex
	calls      int
	failFirst  int // fail this many calls before succeeding
	failAlways bool
}

func (p *scriptedPublisher) Publish(ctx context.Context, platform string, content generationDomain.GeneratedContent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failAlways || p.calls <= p.failFirst {
		return "", errors.New("platform unavailable")
	}
	return "remote-1", nil
}

func (p *scriptedPublisher) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Notification
}

func (n *recordingNotifier) Notify(event domain.Notification) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *recordingNotifier) countType(typ string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, e := range n.events {
		if e.Type == typ {
			count++
		}
	}
	return count
}

type fixture struct {
	repo     *repository.SchedulerGormRepository
	clock    *fakeClock
	pub      *scriptedPublisher
	notifier *recordingNotifier
	mgr      *Manager
}

// sundayAt returns the UTC instant for the given local wall clock on
// 2025-06-15, a Sunday.
func sundayAt(hour, minute int) time.Time {
	return timeutils.ToUTC(time.Date(2025, 6, 15, hour, minute, 0, 0, time.UTC))
}

func newFixture(t *testing.T, localStart time.Time) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	repo := repository.NewSchedulerGormRepository(db)
	require.NoError(t, repo.Init(context.Background()))

	f := &fixture{
		repo:     repo,
		clock:    newFakeClock(localStart),
		pub:      &scriptedPublisher{},
		notifier: &recordingNotifier{},
	}
	f.mgr = NewManager(
		Config{UserID: "u1"},
		repo, stubEngine{}, f.pub, f.notifier,
		WithClock(f.clock.Now),
		WithRand(func(n int) int { return 0 }),
	)
	return f
}

func (f *fixture) addSchedule(t *testing.T, platform string, maxPerDay int, times []string, days []int) {
	t.Helper()
	_, err := f.repo.CreateSchedule(context.Background(), domain.ScheduleConfig{
		UserID:         "u1",
		Platform:       platform,
		MaxPostsPerDay: maxPerDay,
		PreferredTimes: times,
		DaysOfWeek:     days,
		IsActive:       true,
	})
	require.NoError(t, err)
}

func (f *fixture) scheduledPosts(t *testing.T) []domain.Post {
	t.Helper()
	posts, err := f.repo.ListPostsByStatus(context.Background(), "u1", domain.PostStatusScheduled)
	require.NoError(t, err)
	return posts
}

func TestStartGeneratesOnePostPerSlot(t *testing.T) {
	f := newFixture(t, sundayAt(6, 0))
	f.addSchedule(t, "devto", 2, []string{"09:00", "18:00"}, []int{0})

	f.mgr.Start(context.Background())
	defer f.mgr.Stop()

	posts := f.scheduledPosts(t)
	require.Len(t, posts, 2)

	want := map[time.Time]bool{sundayAt(9, 0): false, sundayAt(18, 0): false}
	for _, p := range posts {
		assert.Equal(t, "devto", p.PlatformName)
		assert.Equal(t, "article", p.PostType)
		want[p.ScheduledFor.UTC()] = true
	}
	for at, seen := range want {
		assert.True(t, seen, "missing post at %s", at)
	}

	status := f.mgr.Status()
	assert.True(t, status.IsRunning)
	assert.Equal(t, 2, status.ScheduledJobs)
	require.NotNil(t, status.NextJob)
	assert.True(t, status.NextJob.Equal(sundayAt(9, 0)))
}

func TestGenerationIsDedupedPerDay(t *testing.T) {
	f := newFixture(t, sundayAt(6, 0))
	f.addSchedule(t, "devto", 2, []string{"09:00", "18:00"}, []int{0})

	f.mgr.Start(context.Background())
	defer f.mgr.Stop()

	f.mgr.ForceGenerate(context.Background())
	f.mgr.ForceGenerate(context.Background())

	assert.Len(t, f.scheduledPosts(t), 2)
}

func TestPastSlotRollsToNextConfiguredDay(t *testing.T) {
	// Local 10:00: the 09:00 slot has passed, the 18:00 one has not.
	f := newFixture(t, sundayAt(10, 0))
	f.addSchedule(t, "devto", 2, []string{"09:00", "18:00"}, []int{0})

	f.mgr.Start(context.Background())
	defer f.mgr.Stop()

	posts := f.scheduledPosts(t)
	require.Len(t, posts, 2)

	nextSunday := timeutils.ToUTC(time.Date(2025, 6, 22, 9, 0, 0, 0, time.UTC))
	times := []time.Time{posts[0].ScheduledFor.UTC(), posts[1].ScheduledFor.UTC()}
	assert.Contains(t, times, sundayAt(18, 0))
	assert.Contains(t, times, nextSunday)
}

func TestMaxPostsPerDayCapsSlots(t *testing.T) {
	f := newFixture(t, sundayAt(6, 0))
	f.addSchedule(t, "twitter", 1, []string{"09:00", "12:00", "18:00"}, []int{0})

	f.mgr.Start(context.Background())
	defer f.mgr.Stop()

	posts := f.scheduledPosts(t)
	require.Len(t, posts, 1)
	assert.True(t, posts[0].ScheduledFor.Equal(sundayAt(9, 0)), "the single slot must use the first preferred time")
}

func TestEmptyDaysOfWeekWarnsAndSkips(t *testing.T) {
	f := newFixture(t, sundayAt(6, 0))
	f.addSchedule(t, "devto", 1, []string{"09:00"}, nil)

	f.mgr.Start(context.Background())
	defer f.mgr.Stop()

	assert.Empty(t, f.scheduledPosts(t))
	assert.Equal(t, 1, f.notifier.countType(domain.NotifyWarning))

	// Repeated passes over the same misconfigured schedule stay quiet.
	f.mgr.ForceGenerate(context.Background())
	f.mgr.ForceGenerate(context.Background())
	assert.Equal(t, 1, f.notifier.countType(domain.NotifyWarning))
}

func TestWatchSchedulesSkipsUnchangedConfigs(t *testing.T) {
	f := newFixture(t, sundayAt(6, 0))
	f.addSchedule(t, "devto", 1, []string{"09:00"}, []int{0})

	ctx := context.Background()
	f.mgr.Start(ctx)
	defer f.mgr.Stop()
	require.Len(t, f.scheduledPosts(t), 1)

	f.mgr.WatchSchedules(ctx)

	// A week later the per-day guard is empty again, so a generation pass
	// would schedule new posts. The watch must not be that pass while the
	// configuration is unchanged; new days belong to the midnight cycle.
	f.clock.Set(sundayAt(6, 0).Add(7 * 24 * time.Hour))
	f.mgr.WatchSchedules(ctx)
	assert.Len(t, f.scheduledPosts(t), 1, "unchanged configs must short-circuit the watch")
}

func TestWatchSchedulesGeneratesForEditedConfig(t *testing.T) {
	f := newFixture(t, sundayAt(6, 0))
	f.addSchedule(t, "devto", 1, []string{"09:00"}, []int{0})

	ctx := context.Background()
	f.mgr.Start(ctx)
	defer f.mgr.Stop()
	f.mgr.WatchSchedules(ctx)
	require.Len(t, f.scheduledPosts(t), 1)

	f.addSchedule(t, "twitter", 1, []string{"12:00"}, []int{0})
	f.mgr.WatchSchedules(ctx)

	posts := f.scheduledPosts(t)
	require.Len(t, posts, 2)
	counts := map[string]int{}
	for _, p := range posts {
		counts[p.PlatformName]++
	}
	assert.Equal(t, 1, counts["devto"], "platforms with content today are left alone")
	assert.Equal(t, 1, counts["twitter"])
}

func TestDispatchPublishesDueJob(t *testing.T) {
	f := newFixture(t, sundayAt(6, 0))
	f.addSchedule(t, "devto", 1, []string{"09:00"}, []int{0})

	f.mgr.Start(context.Background())
	defer f.mgr.Stop()

	// Nothing due yet.
	f.mgr.DispatchDueJobs(context.Background())
	assert.Equal(t, 0, f.pub.callCount())

	f.clock.Set(sundayAt(9, 5))
	f.mgr.DispatchDueJobs(context.Background())
	assert.Equal(t, 1, f.pub.callCount())

	posts, err := f.repo.ListPostsByStatus(context.Background(), "u1", domain.PostStatusPublished)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "remote-1", posts[0].PlatformPostID)
	require.NotNil(t, posts[0].PostedAt)
	assert.True(t, posts[0].PostedAt.Equal(sundayAt(9, 5)))

	assert.Equal(t, 0, f.mgr.Status().ScheduledJobs)
	assert.Equal(t, 1, f.notifier.countType(domain.NotifySuccess))
}

func TestRetryBackoffThenPermanentFailure(t *testing.T) {
	f := newFixture(t, sundayAt(6, 0))
	f.pub.failAlways = true
	f.addSchedule(t, "devto", 1, []string{"09:00"}, []int{0})

	f.mgr.Start(context.Background())
	defer f.mgr.Stop()

	// Attempt 1 fails; the job backs off one minute and the post goes back
	// to scheduled so a restart would not lose it.
	f.clock.Set(sundayAt(9, 0))
	f.mgr.DispatchDueJobs(context.Background())
	assert.Equal(t, 1, f.pub.callCount())
	assert.Len(t, f.scheduledPosts(t), 1)

	// 31s later the backoff has not elapsed.
	f.clock.Advance(31 * time.Second)
	f.mgr.DispatchDueJobs(context.Background())
	assert.Equal(t, 1, f.pub.callCount())

	// Attempt 2 at +1m, then a two-minute backoff.
	f.clock.Set(sundayAt(9, 1).Add(time.Second))
	f.mgr.DispatchDueJobs(context.Background())
	assert.Equal(t, 2, f.pub.callCount())

	f.clock.Advance(90 * time.Second)
	f.mgr.DispatchDueJobs(context.Background())
	assert.Equal(t, 2, f.pub.callCount(), "second backoff is two minutes")

	// Attempt 3 exhausts the retries.
	f.clock.Advance(45 * time.Second)
	f.mgr.DispatchDueJobs(context.Background())
	assert.Equal(t, 3, f.pub.callCount())

	failed, err := f.repo.ListPostsByStatus(context.Background(), "u1", domain.PostStatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].ErrorMessage, "platform unavailable")

	assert.Equal(t, 0, f.mgr.Status().ScheduledJobs)
	assert.Equal(t, 2, f.notifier.countType(domain.NotifyWarning))
	assert.Equal(t, 1, f.notifier.countType(domain.NotifyError))
}

func TestFailTwiceThenSucceed(t *testing.T) {
	f := newFixture(t, sundayAt(6, 0))
	f.pub.failFirst = 2
	f.addSchedule(t, "devto", 1, []string{"09:00"}, []int{0})

	f.mgr.Start(context.Background())
	defer f.mgr.Stop()

	f.clock.Set(sundayAt(9, 0))
	f.mgr.DispatchDueJobs(context.Background())
	f.clock.Advance(61 * time.Second)
	f.mgr.DispatchDueJobs(context.Background())
	f.clock.Advance(121 * time.Second)
	f.mgr.DispatchDueJobs(context.Background())

	assert.Equal(t, 3, f.pub.callCount())

	published, err := f.repo.ListPostsByStatus(context.Background(), "u1", domain.PostStatusPublished)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, "remote-1", published[0].PlatformPostID)
	assert.Equal(t, 0, f.notifier.countType(domain.NotifyError))
}

func TestDispatchRateLimited(t *testing.T) {
	f := newFixture(t, sundayAt(6, 0))
	f.addSchedule(t, "devto", 1, []string{"09:00"}, []int{0})
	f.addSchedule(t, "twitter", 1, []string{"09:01"}, []int{0})

	f.mgr.Start(context.Background())
	defer f.mgr.Stop()

	f.clock.Set(sundayAt(9, 0).Add(50 * time.Second))
	f.mgr.DispatchDueJobs(context.Background())
	assert.Equal(t, 1, f.pub.callCount())

	// The second slot is now due, but the tick arrives within the 30s guard.
	f.clock.Advance(20 * time.Second)
	f.mgr.DispatchDueJobs(context.Background())
	assert.Equal(t, 1, f.pub.callCount(), "ticks within the minimum gap must be skipped")

	f.clock.Advance(20 * time.Second)
	f.mgr.DispatchDueJobs(context.Background())
	assert.Equal(t, 2, f.pub.callCount())
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(t, sundayAt(6, 0))
	f.addSchedule(t, "devto", 1, []string{"09:00"}, []int{0})

	ctx := context.Background()
	f.mgr.Start(ctx)
	defer f.mgr.Stop()
	f.mgr.Start(ctx)

	assert.Len(t, f.scheduledPosts(t), 1)
	assert.Equal(t, 1, f.mgr.Status().ScheduledJobs)
}

func TestStopClearsMemoryAndRestartRecovers(t *testing.T) {
	f := newFixture(t, sundayAt(6, 0))
	f.addSchedule(t, "devto", 2, []string{"09:00", "18:00"}, []int{0})

	ctx := context.Background()
	f.mgr.Start(ctx)
	f.mgr.Stop()

	status := f.mgr.Status()
	assert.False(t, status.IsRunning)
	assert.Equal(t, 0, status.ScheduledJobs)

	// Persisted posts survive the stop and seed the next start.
	assert.Len(t, f.scheduledPosts(t), 2)

	f.mgr.Start(ctx)
	defer f.mgr.Stop()
	assert.Equal(t, 2, f.mgr.Status().ScheduledJobs)
	assert.Len(t, f.scheduledPosts(t), 2, "restart must not duplicate today's posts")
}

func TestRecoveryAfterStopLeavesManagerEmpty(t *testing.T) {
	f := newFixture(t, sundayAt(6, 0))
	f.addSchedule(t, "devto", 1, []string{"09:00"}, []int{0})

	ctx := context.Background()
	f.mgr.Start(ctx)
	f.mgr.Stop()

	// Recovery finishing after a concurrent Stop must not repopulate the
	// cleared job list of a stopped manager.
	f.mgr.recoverJobs(ctx)

	status := f.mgr.Status()
	assert.False(t, status.IsRunning)
	assert.Equal(t, 0, status.ScheduledJobs)
}

func TestDistributedLockSkipsHeldJobs(t *testing.T) {
	f := newFixture(t, sundayAt(6, 0))
	f.addSchedule(t, "devto", 1, []string{"09:00"}, []int{0})

	denied := false
	f.mgr = NewManager(
		Config{UserID: "u1"},
		f.repo, stubEngine{}, f.pub, f.notifier,
		WithClock(f.clock.Now),
		WithRand(func(n int) int { return 0 }),
		WithLock(func(key string, ttl time.Duration) bool { return !denied }),
	)

	f.mgr.Start(context.Background())
	defer f.mgr.Stop()

	denied = true
	f.clock.Set(sundayAt(9, 5))
	f.mgr.DispatchDueJobs(context.Background())
	assert.Equal(t, 0, f.pub.callCount())
	assert.Equal(t, 1, f.mgr.Status().ScheduledJobs, "a locked job stays queued for the next tick")

	denied = false
	f.clock.Advance(time.Minute)
	f.mgr.DispatchDueJobs(context.Background())
	assert.Equal(t, 1, f.pub.callCount())
}
