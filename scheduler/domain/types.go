package domain

import (
	"time"

	generationDomain "github.com/postpilot/postpilot/generation/domain"
)

type PostStatus string

const (
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPosting   PostStatus = "posting"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
)

// Terminal reports whether the status never transitions again.
func (s PostStatus) Terminal() bool {
	return s == PostStatusPublished || s == PostStatusFailed
}

// Supported platform identifiers. Publishers register under these keys.
const (
	PlatformDevto     = "devto"
	PlatformHashnode  = "hashnode"
	PlatformMedium    = "medium"
	PlatformLinkedin  = "linkedin"
	PlatformTwitter   = "twitter"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
)

// PostTypeFor derives the stored post type from the platform identifier.
func PostTypeFor(platform string) string {
	switch platform {
	case PlatformDevto, PlatformHashnode, PlatformMedium:
		return "article"
	case PlatformInstagram:
		return "media"
	default:
		return "social"
	}
}

// ScheduleConfig is one platform's weekly posting schedule. It is owned by
// the configuration UI; the scheduler only reads it.
type ScheduleConfig struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Platform       string    `json:"platform"`
	MaxPostsPerDay int       `json:"max_posts_per_day"`
	PreferredTimes []string  `json:"preferred_times"` // ordered "HH:MM" local times
	DaysOfWeek     []int     `json:"days_of_week"`    // 0 = Sunday
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Post is one piece of scheduled or published content.
type Post struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	PlatformName   string     `json:"platform_name"`
	PostType       string     `json:"post_type"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Tags           []string   `json:"tags,omitempty"`
	MediaURL       string     `json:"media_url,omitempty"`
	Status         PostStatus `json:"status"`
	ScheduledFor   time.Time  `json:"scheduled_for"` // always UTC
	PlatformPostID string     `json:"platform_post_id,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	PostedAt       *time.Time `json:"posted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// PostingJob is the in-memory mirror of a scheduled Post. It exists only
// inside the running process and is rebuilt from persisted scheduled posts
// on every start.
type PostingJob struct {
	PostID        string
	Platform      string
	Content       generationDomain.GeneratedContent
	ScheduledTime time.Time // UTC, advanced on retry
	Attempts      int
}

// PostUpdate carries the mutable fields of a status transition. Nil fields
// are left untouched.
type PostUpdate struct {
	Status         PostStatus
	PlatformPostID *string
	ErrorMessage   *string
	PostedAt       *time.Time
}

// Notification is a user-facing event emitted by the scheduler.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // info, success, warning, error
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Platform  string    `json:"platform,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	NotifyInfo    = "info"
	NotifySuccess = "success"
	NotifyWarning = "warning"
	NotifyError   = "error"
)

// Notifier records user-facing events. Implementations must never block or
// fail the calling operation.
type Notifier interface {
	Notify(event Notification)
}

// Credential holds the stored API credential for one platform or AI provider.
type Credential struct {
	UserID    string    `json:"user_id"`
	Platform  string    `json:"platform"`
	Token     string    `json:"token"`
	Secret    string    `json:"secret,omitempty"`
	Extra     string    `json:"extra,omitempty"` // platform-specific JSON blob
	UpdatedAt time.Time `json:"updated_at"`
}

// ManagerStatus is the read-only snapshot returned by Status().
type ManagerStatus struct {
	IsRunning      bool       `json:"is_running"`
	ScheduledJobs  int        `json:"scheduled_jobs"`
	ProcessingJobs int        `json:"processing_jobs"`
	NextJob        *time.Time `json:"next_job,omitempty"`
}
