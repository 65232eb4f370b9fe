package application

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	generationDomain "github.com/postpilot/postpilot/generation/domain"
	"github.com/postpilot/postpilot/pkg/timeutils"
	"github.com/postpilot/postpilot/scheduler/domain"
	"github.com/sirupsen/logrus"
)

// ContentEngine is the content generation collaborator.
type ContentEngine interface {
	Generate(ctx context.Context, req generationDomain.GenerateRequest) (generationDomain.GeneratedContent, error)
}

// PublishDispatcher is the publishing collaborator, keyed by platform.
type PublishDispatcher interface {
	Publish(ctx context.Context, platform string, content generationDomain.GeneratedContent) (string, error)
}

// LockFunc acquires a short-lived exclusive lock. It exists so a
// multi-instance deployment can plug in a distributed lock; the default
// always grants.
type LockFunc func(key string, ttl time.Duration) bool

// Config carries the manager's behavioral knobs. The intervals are
// contracts, not tuning values: dispatch every 60s with a 30s overlap
// guard, schedule watch every 30s, retries capped at 3.
type Config struct {
	UserID           string
	DispatchInterval time.Duration
	WatchInterval    time.Duration
	DispatchMinGap   time.Duration
	MaxRetries       int
	PublishTimeout   time.Duration
	DefaultTopics    []string
}

func (c *Config) applyDefaults() {
	if c.DispatchInterval <= 0 {
		c.DispatchInterval = 60 * time.Second
	}
	if c.WatchInterval <= 0 {
		c.WatchInterval = 30 * time.Second
	}
	if c.DispatchMinGap <= 0 {
		c.DispatchMinGap = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 60 * time.Second
	}
	if len(c.DefaultTopics) == 0 {
		c.DefaultTopics = defaultTopics
	}
}

var defaultTopics = []string{
	"golang concurrency patterns",
	"clean architecture in practice",
	"designing resilient APIs",
	"testing strategies that scale",
	"developer productivity habits",
}

// Manager is the autonomous scheduling and job-processing engine. It owns
// the in-memory job list and the processing set; the persistent store is the
// source of truth across restarts.
type Manager struct {
	cfg         Config
	repo        domain.ISchedulerRepository
	engine      ContentEngine
	publishers  PublishDispatcher
	notifier    domain.Notifier
	acquireLock LockFunc
	topicSource func(ctx context.Context) []string
	nowUTC      func() time.Time
	randIntn    func(n int) int

	mu              sync.Mutex
	running         bool
	jobs            []*domain.PostingJob
	processing      map[string]struct{}
	warnedNoDays    map[string]struct{}
	lastDispatch    time.Time
	lastFingerprint string
	stopCh          chan struct{}
}

// Option customizes a Manager. Used mainly to inject clocks and locks.
type Option func(*Manager)

// WithClock replaces the UTC clock.
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) { m.nowUTC = fn }
}

// WithLock installs a distributed lock for per-job dispatch exclusion
// across instances.
func WithLock(fn LockFunc) Option {
	return func(m *Manager) { m.acquireLock = fn }
}

// WithTopicSource installs a fallback topic supplier consulted when the
// user has no configured topics.
func WithTopicSource(fn func(ctx context.Context) []string) Option {
	return func(m *Manager) { m.topicSource = fn }
}

// WithRand replaces the topic picker's random source.
func WithRand(fn func(n int) int) Option {
	return func(m *Manager) { m.randIntn = fn }
}

// NewManager wires the scheduling engine. It does nothing until Start.
func NewManager(cfg Config, repo domain.ISchedulerRepository, engine ContentEngine, publishers PublishDispatcher, notifier domain.Notifier, opts ...Option) *Manager {
	cfg.applyDefaults()
	m := &Manager{
		cfg:          cfg,
		repo:         repo,
		engine:       engine,
		publishers:   publishers,
		notifier:     notifier,
		processing:   make(map[string]struct{}),
		warnedNoDays: make(map[string]struct{}),
		nowUTC:       func() time.Time { return time.Now().UTC() },
		randIntn:     rand.Intn,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start transitions the manager to running: it rebuilds in-memory jobs from
// persisted scheduled posts, runs daily generation once, and launches the
// dispatch, schedule-watch and midnight loops. Calling Start on a running
// manager is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		logrus.Warn("[SCHEDULER] Start called while already running")
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	m.recoverJobs(ctx)
	m.GenerateDailyContent(ctx)

	go m.runLoop(ctx, stopCh, m.cfg.DispatchInterval, "dispatch", m.DispatchDueJobs)
	go m.runLoop(ctx, stopCh, m.cfg.WatchInterval, "schedule-watch", m.WatchSchedules)
	go m.runMidnightLoop(ctx, stopCh)

	logrus.Infof("[SCHEDULER] Started for user %s", m.cfg.UserID)
	m.notify(domain.NotifyInfo, "Scheduler started", "Autonomous posting is active", "")
}

// Stop cancels the timers and clears all in-memory state. Persisted
// scheduled posts are left untouched for the next Start to pick up, and
// in-flight publish calls are allowed to finish. Idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
	m.jobs = nil
	m.processing = make(map[string]struct{})
	m.warnedNoDays = make(map[string]struct{})
	m.lastDispatch = time.Time{}
	m.lastFingerprint = ""
	logrus.Info("[SCHEDULER] Stopped")
}

// ForceGenerate runs the daily-generation algorithm immediately,
// independent of the timers.
func (m *Manager) ForceGenerate(ctx context.Context) {
	m.GenerateDailyContent(ctx)
}

// Status returns a read-only snapshot of the manager.
func (m *Manager) Status() domain.ManagerStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := domain.ManagerStatus{
		IsRunning:      m.running,
		ScheduledJobs:  len(m.jobs),
		ProcessingJobs: len(m.processing),
	}
	for _, j := range m.jobs {
		if status.NextJob == nil || j.ScheduledTime.Before(*status.NextJob) {
			t := j.ScheduledTime
			status.NextJob = &t
		}
	}
	return status
}

func (m *Manager) runLoop(ctx context.Context, stopCh <-chan struct{}, interval time.Duration, name string, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.safely(name, func() { fn(ctx) })
		}
	}
}

// runMidnightLoop arms a one-shot timer for the next local midnight, runs
// daily generation when it fires, and re-arms. Recomputing the delay each
// cycle keeps the loop aligned to local midnight.
func (m *Manager) runMidnightLoop(ctx context.Context, stopCh <-chan struct{}) {
	for {
		localNow := timeutils.ToLocal(m.nowUTC())
		nextMidnight := timeutils.AtClock(localNow, 0, 0).Add(24 * time.Hour)
		timer := time.NewTimer(nextMidnight.Sub(localNow))

		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			m.safely("daily-generation", func() { m.GenerateDailyContent(ctx) })
		}
	}
}

// safely keeps a panic in one periodic callback from killing the loop.
func (m *Manager) safely(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("[SCHEDULER] Panic in %s: %v", name, r)
		}
	}()
	fn()
}

// recoverJobs rebuilds the in-memory mirror from persisted scheduled posts.
func (m *Manager) recoverJobs(ctx context.Context) {
	posts, err := m.repo.ListPostsByStatus(ctx, m.cfg.UserID, domain.PostStatusScheduled)
	if err != nil {
		logrus.WithError(err).Error("[SCHEDULER] Failed to recover scheduled posts")
		return
	}

	jobs := make([]*domain.PostingJob, 0, len(posts))
	for _, p := range posts {
		jobs = append(jobs, &domain.PostingJob{
			PostID:   p.ID,
			Platform: p.PlatformName,
			Content: generationDomain.GeneratedContent{
				Title:    p.Title,
				Body:     p.Content,
				Tags:     p.Tags,
				MediaURL: p.MediaURL,
			},
			ScheduledTime: p.ScheduledFor,
		})
	}

	// Stop may have run since this recovery started; a stopped manager
	// keeps its cleared state.
	m.mu.Lock()
	applied := m.running
	if applied {
		m.jobs = jobs
	}
	m.mu.Unlock()

	if applied && len(jobs) > 0 {
		logrus.Infof("[SCHEDULER] Recovered %d scheduled jobs from storage", len(jobs))
	}
}

// WatchSchedules detects configuration edits between daily cycles. A
// structural fingerprint short-circuits the common no-change case; on
// change, any config active today that still lacks content gets generated.
func (m *Manager) WatchSchedules(ctx context.Context) {
	schedules, err := m.repo.ListActiveSchedules(ctx, m.cfg.UserID)
	if err != nil {
		logrus.WithError(err).Error("[SCHEDULER] Schedule watch failed to load configs")
		return
	}

	fp := fingerprint(schedules)

	m.mu.Lock()
	changed := fp != m.lastFingerprint
	m.lastFingerprint = fp
	m.mu.Unlock()

	if !changed {
		return
	}

	logrus.Debug("[SCHEDULER] Schedule configuration changed, re-evaluating today")
	m.generateForToday(ctx, schedules)
}

// GenerateDailyContent runs one generation pass over every config active on
// the current local weekday.
func (m *Manager) GenerateDailyContent(ctx context.Context) {
	schedules, err := m.repo.ListActiveSchedules(ctx, m.cfg.UserID)
	if err != nil {
		logrus.WithError(err).Error("[SCHEDULER] Daily generation failed to load configs")
		return
	}
	m.generateForToday(ctx, schedules)
}

func (m *Manager) generateForToday(ctx context.Context, schedules []domain.ScheduleConfig) {
	localNow := timeutils.ToLocal(m.nowUTC())
	weekday := int(localNow.Weekday())

	for _, sc := range schedules {
		if len(sc.DaysOfWeek) == 0 {
			m.warnEmptyDaysOnce(sc)
			continue
		}
		m.mu.Lock()
		delete(m.warnedNoDays, sc.ID)
		m.mu.Unlock()

		if !containsDay(sc.DaysOfWeek, weekday) {
			continue
		}

		has, err := m.hasContentForToday(ctx, sc.Platform, localNow)
		if err != nil {
			logrus.WithError(err).Errorf("[SCHEDULER] Content check failed for %s", sc.Platform)
			continue
		}
		if has {
			continue
		}

		m.generateForPlatform(ctx, sc, localNow)
	}
}

// warnEmptyDaysOnce reports a schedule without posting days the first time
// it is seen. Generation runs daily and on every config change, so the
// warning would otherwise repeat until the schedule is fixed; the mark is
// cleared once days reappear.
func (m *Manager) warnEmptyDaysOnce(sc domain.ScheduleConfig) {
	m.mu.Lock()
	_, seen := m.warnedNoDays[sc.ID]
	if !seen {
		m.warnedNoDays[sc.ID] = struct{}{}
	}
	m.mu.Unlock()
	if seen {
		return
	}

	m.notify(domain.NotifyWarning, "Schedule has no posting days",
		fmt.Sprintf("The %s schedule has no days of week configured, nothing will be posted", sc.Platform),
		sc.Platform)
}

// hasContentForToday is the de-duplication guard: one generation pass per
// platform per local day. Scheduled and posting rows count as content so a
// config edit cannot double-book a day whose posts are still pending.
func (m *Manager) hasContentForToday(ctx context.Context, platform string, localNow time.Time) (bool, error) {
	w := timeutils.DayBounds(localNow)
	posts, err := m.repo.ListPostsInWindow(ctx, m.cfg.UserID, platform,
		[]domain.PostStatus{domain.PostStatusScheduled, domain.PostStatusPosting, domain.PostStatusPublished},
		w.StartUTC, w.EndUTC)
	if err != nil {
		return false, err
	}
	return len(posts) > 0, nil
}

// generateForPlatform fills min(maxPostsPerDay, len(preferredTimes)) slots.
// A failed slot is reported and skipped; it never aborts the remaining
// slots.
func (m *Manager) generateForPlatform(ctx context.Context, sc domain.ScheduleConfig, localNow time.Time) {
	topics := m.loadTopics(ctx)
	postType := domain.PostTypeFor(sc.Platform)

	n := sc.MaxPostsPerDay
	if len(sc.PreferredTimes) < n {
		n = len(sc.PreferredTimes)
	}

	for i := 0; i < n; i++ {
		topic := topics[m.randIntn(len(topics))]

		payload, err := m.engine.Generate(ctx, generationDomain.GenerateRequest{
			Platform: sc.Platform,
			PostType: postType,
			Topic:    topic,
		})
		if err != nil {
			logrus.WithError(err).Errorf("[SCHEDULER] Generation failed for %s slot %d", sc.Platform, i)
			m.notify(domain.NotifyError, "Content generation failed",
				fmt.Sprintf("Could not generate content for %s: %v", sc.Platform, err), sc.Platform)
			continue
		}

		hour, minute, err := timeutils.ParseClock(sc.PreferredTimes[i])
		if err != nil {
			m.notify(domain.NotifyError, "Invalid posting time",
				fmt.Sprintf("Slot %d of the %s schedule is invalid: %v", i, sc.Platform, err), sc.Platform)
			continue
		}

		slotLocal := timeutils.AtClock(localNow, hour, minute)
		if !slotLocal.After(localNow) {
			// Slot already passed today; roll to the next configured weekday.
			next, err := timeutils.NextOccurrence(sc.DaysOfWeek, hour, minute, localNow)
			if err != nil {
				m.notify(domain.NotifyWarning, "Slot skipped",
					fmt.Sprintf("No upcoming day found for the %s %s slot: %v", sc.Platform, sc.PreferredTimes[i], err), sc.Platform)
				continue
			}
			slotLocal = next
		}
		scheduledFor := timeutils.ToUTC(slotLocal)

		post, err := m.repo.CreatePost(ctx, domain.Post{
			UserID:       m.cfg.UserID,
			PlatformName: sc.Platform,
			PostType:     postType,
			Title:        payload.Title,
			Content:      payload.Body,
			Tags:         payload.Tags,
			MediaURL:     payload.MediaURL,
			Status:       domain.PostStatusScheduled,
			ScheduledFor: scheduledFor,
		})
		if err != nil {
			logrus.WithError(err).Errorf("[SCHEDULER] Failed to persist post for %s", sc.Platform)
			continue
		}

		m.mu.Lock()
		m.jobs = append(m.jobs, &domain.PostingJob{
			PostID:        post.ID,
			Platform:      sc.Platform,
			Content:       payload,
			ScheduledTime: scheduledFor,
		})
		m.mu.Unlock()

		logrus.Infof("[SCHEDULER] Scheduled %s post %s for %s", sc.Platform, post.ID, scheduledFor.Format(time.RFC3339))
	}
}

// DispatchDueJobs is the posting loop body. It selects due jobs, marks them
// in the processing set atomically with selection, and processes them
// sequentially. Ticks closer than the minimum gap to the previous one are
// skipped to guard against overlap under slow publish calls.
func (m *Manager) DispatchDueJobs(ctx context.Context) {
	now := m.nowUTC()

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	if !m.lastDispatch.IsZero() && now.Sub(m.lastDispatch) < m.cfg.DispatchMinGap {
		m.mu.Unlock()
		return
	}
	m.lastDispatch = now

	if len(m.jobs) == 0 {
		m.mu.Unlock()
		return
	}

	var due []*domain.PostingJob
	for _, j := range m.jobs {
		if j.ScheduledTime.After(now) {
			continue
		}
		if _, busy := m.processing[j.PostID]; busy {
			continue
		}
		m.processing[j.PostID] = struct{}{}
		due = append(due, j)
	}
	m.mu.Unlock()

	for _, job := range due {
		m.processJob(ctx, job)
	}
}

func (m *Manager) processJob(ctx context.Context, job *domain.PostingJob) {
	// The processing set entry is released no matter how the job ends.
	defer func() {
		m.mu.Lock()
		delete(m.processing, job.PostID)
		m.mu.Unlock()
	}()

	if m.acquireLock != nil && !m.acquireLock("dispatch:"+job.PostID, m.cfg.PublishTimeout) {
		logrus.Debugf("[SCHEDULER] Post %s locked by another instance, skipping", job.PostID)
		return
	}

	if err := m.repo.UpdatePost(ctx, job.PostID, domain.PostUpdate{Status: domain.PostStatusPosting}); err != nil {
		logrus.WithError(err).Errorf("[SCHEDULER] Could not mark post %s as posting", job.PostID)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, m.cfg.PublishTimeout)
	platformPostID, err := m.publishers.Publish(pubCtx, job.Platform, job.Content)
	cancel()

	if err == nil {
		m.completeJob(ctx, job, platformPostID)
		return
	}
	m.failAttempt(ctx, job, err)
}

func (m *Manager) completeJob(ctx context.Context, job *domain.PostingJob, platformPostID string) {
	postedAt := m.nowUTC()
	update := domain.PostUpdate{
		Status:         domain.PostStatusPublished,
		PlatformPostID: &platformPostID,
		PostedAt:       &postedAt,
	}
	if err := m.repo.UpdatePost(ctx, job.PostID, update); err != nil {
		logrus.WithError(err).Errorf("[SCHEDULER] Could not mark post %s as published", job.PostID)
	}

	m.removeJob(job.PostID)

	logrus.Infof("[SCHEDULER] Published %s post %s (platform id %s, attempts %d)",
		job.Platform, job.PostID, platformPostID, job.Attempts)
	m.notify(domain.NotifySuccess, "Post published",
		fmt.Sprintf("Content published to %s", job.Platform), job.Platform)
}

// failAttempt applies the retry policy: exponential backoff of 2^(n-1)
// minutes after attempt n, terminal failure once attempts reach the cap.
// The post is reverted to scheduled between retries so a crash mid-retry
// recovers it on the next start.
func (m *Manager) failAttempt(ctx context.Context, job *domain.PostingJob, pubErr error) {
	job.Attempts++

	if job.Attempts < m.cfg.MaxRetries {
		backoff := time.Duration(1<<(job.Attempts-1)) * time.Minute

		m.mu.Lock()
		job.ScheduledTime = m.nowUTC().Add(backoff)
		m.mu.Unlock()

		if err := m.repo.UpdatePost(ctx, job.PostID, domain.PostUpdate{Status: domain.PostStatusScheduled}); err != nil {
			logrus.WithError(err).Errorf("[SCHEDULER] Could not revert post %s for retry", job.PostID)
		}

		logrus.WithError(pubErr).Warnf("[SCHEDULER] Publish attempt %d failed for %s post %s, retrying in %s",
			job.Attempts, job.Platform, job.PostID, backoff)
		m.notify(domain.NotifyWarning, "Publish retry scheduled",
			fmt.Sprintf("Attempt %d for %s failed, retrying in %s", job.Attempts, job.Platform, backoff), job.Platform)
		return
	}

	msg := pubErr.Error()
	if err := m.repo.UpdatePost(ctx, job.PostID, domain.PostUpdate{
		Status:       domain.PostStatusFailed,
		ErrorMessage: &msg,
	}); err != nil {
		logrus.WithError(err).Errorf("[SCHEDULER] Could not mark post %s as failed", job.PostID)
	}

	m.removeJob(job.PostID)

	logrus.WithError(pubErr).Errorf("[SCHEDULER] Post %s failed permanently after %d attempts", job.PostID, job.Attempts)
	m.notify(domain.NotifyError, "Post failed",
		fmt.Sprintf("Publishing to %s failed after %d attempts: %v", job.Platform, job.Attempts, pubErr), job.Platform)
}

func (m *Manager) removeJob(postID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, j := range m.jobs {
		if j.PostID == postID {
			m.jobs = append(m.jobs[:i], m.jobs[i+1:]...)
			return
		}
	}
}

func (m *Manager) loadTopics(ctx context.Context) []string {
	topics, err := m.repo.LoadTopics(ctx, m.cfg.UserID)
	if err != nil {
		logrus.WithError(err).Warn("[SCHEDULER] Failed to load topics, using defaults")
	}
	if len(topics) == 0 && m.topicSource != nil {
		topics = m.topicSource(ctx)
	}
	if len(topics) == 0 {
		topics = m.cfg.DefaultTopics
	}
	return topics
}

func (m *Manager) notify(typ, title, message, platform string) {
	if m.notifier == nil {
		return
	}
	m.notifier.Notify(domain.Notification{
		Type:      typ,
		Title:     title,
		Message:   message,
		Platform:  platform,
		Timestamp: m.nowUTC(),
	})
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// fingerprint derives a structural snapshot of the active configs so the
// watch loop can cheaply detect edits.
func fingerprint(schedules []domain.ScheduleConfig) string {
	var b strings.Builder
	for _, sc := range schedules {
		fmt.Fprintf(&b, "%s|%s|%v|%v|%d|%t;",
			sc.ID, sc.Platform, sc.PreferredTimes, sc.DaysOfWeek, sc.MaxPostsPerDay, sc.IsActive)
	}
	return b.String()
}
