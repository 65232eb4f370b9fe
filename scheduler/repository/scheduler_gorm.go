package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/postpilot/postpilot/pkg/crypto"
	"github.com/postpilot/postpilot/pkg/timeutils"
	"github.com/postpilot/postpilot/scheduler/domain"
	"gorm.io/gorm"
)

// --- Persistence Models ---

type postingScheduleModel struct {
	ID             string         `gorm:"primaryKey;column:id"`
	UserID         string         `gorm:"column:user_id;not null;index"`
	Platform       string         `gorm:"column:platform;not null;index"`
	MaxPostsPerDay int            `gorm:"column:max_posts_per_day;default:1"`
	PreferredTimes sql.NullString `gorm:"column:preferred_times"` // JSON ["HH:MM", ...]
	DaysOfWeek     sql.NullString `gorm:"column:days_of_week"`    // JSON [0..6], tolerates strings
	IsActive       bool           `gorm:"column:is_active;default:true;index"`
	CreatedAt      time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;not null"`
}

func (postingScheduleModel) TableName() string { return "posting_schedules" }

type postModel struct {
	ID             string         `gorm:"primaryKey;column:id"`
	UserID         string         `gorm:"column:user_id;not null;index"`
	PlatformName   string         `gorm:"column:platform_name;not null;index"`
	PostType       string         `gorm:"column:post_type;not null"`
	Title          string         `gorm:"column:title;not null"`
	Content        string         `gorm:"column:content;type:text"`
	Tags           sql.NullString `gorm:"column:tags"` // JSON
	MediaURL       sql.NullString `gorm:"column:media_url"`
	Status         string         `gorm:"column:status;default:'scheduled';index"`
	ScheduledFor   time.Time      `gorm:"column:scheduled_for;not null;index"`
	PlatformPostID sql.NullString `gorm:"column:platform_post_id"`
	ErrorMessage   sql.NullString `gorm:"column:error_message"`
	PostedAt       *time.Time     `gorm:"column:posted_at"`
	CreatedAt      time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;not null"`
}

func (postModel) TableName() string { return "posts" }

type aiSettingModel struct {
	UserID    string         `gorm:"primaryKey;column:user_id"`
	Topics    sql.NullString `gorm:"column:topics"` // JSON
	UpdatedAt time.Time      `gorm:"column:updated_at;not null"`
}

func (aiSettingModel) TableName() string { return "ai_settings" }

type credentialModel struct {
	UserID    string         `gorm:"column:user_id;not null;uniqueIndex:idx_user_platform"`
	Platform  string         `gorm:"column:platform;not null;uniqueIndex:idx_user_platform"`
	Token     string         `gorm:"column:token;not null"`
	Secret    sql.NullString `gorm:"column:secret"`
	Extra     sql.NullString `gorm:"column:extra"` // JSON
	UpdatedAt time.Time      `gorm:"column:updated_at;not null"`
}

func (credentialModel) TableName() string { return "platform_credentials" }

type notificationModel struct {
	ID        string         `gorm:"primaryKey;column:id"`
	Type      string         `gorm:"column:type;not null"`
	Title     string         `gorm:"column:title;not null"`
	Message   string         `gorm:"column:message;type:text"`
	Platform  sql.NullString `gorm:"column:platform"`
	Timestamp time.Time      `gorm:"column:timestamp;not null;index"`
}

func (notificationModel) TableName() string { return "notifications" }

// --- Repository Implementation ---

type SchedulerGormRepository struct {
	db *gorm.DB
}

func NewSchedulerGormRepository(db *gorm.DB) *SchedulerGormRepository {
	return &SchedulerGormRepository{db: db}
}

func (r *SchedulerGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&postingScheduleModel{},
		&postModel{},
		&aiSettingModel{},
		&credentialModel{},
		&notificationModel{},
	)
}

// Schedules

func (r *SchedulerGormRepository) ListActiveSchedules(ctx context.Context, userID string) ([]domain.ScheduleConfig, error) {
	var models []postingScheduleModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("platform").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.ScheduleConfig, len(models))
	for i, m := range models {
		out[i] = fromScheduleModel(m)
	}
	return out, nil
}

func (r *SchedulerGormRepository) ListSchedules(ctx context.Context, userID string) ([]domain.ScheduleConfig, error) {
	var models []postingScheduleModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("platform").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.ScheduleConfig, len(models))
	for i, m := range models {
		out[i] = fromScheduleModel(m)
	}
	return out, nil
}

func (r *SchedulerGormRepository) GetSchedule(ctx context.Context, id string) (domain.ScheduleConfig, error) {
	var m postingScheduleModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ScheduleConfig{}, domain.ErrScheduleNotFound
		}
		return domain.ScheduleConfig{}, err
	}
	return fromScheduleModel(m), nil
}

func (r *SchedulerGormRepository) CreateSchedule(ctx context.Context, cfg domain.ScheduleConfig) (domain.ScheduleConfig, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	m := toScheduleModel(cfg)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.ScheduleConfig{}, err
	}
	return cfg, nil
}

func (r *SchedulerGormRepository) UpdateSchedule(ctx context.Context, cfg domain.ScheduleConfig) error {
	cfg.UpdatedAt = time.Now().UTC()
	m := toScheduleModel(cfg)
	res := r.db.WithContext(ctx).Model(&postingScheduleModel{}).Where("id = ?", cfg.ID).Updates(map[string]any{
		"max_posts_per_day": m.MaxPostsPerDay,
		"preferred_times":   m.PreferredTimes,
		"days_of_week":      m.DaysOfWeek,
		"is_active":         m.IsActive,
		"updated_at":        m.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

func (r *SchedulerGormRepository) DeleteSchedule(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&postingScheduleModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

// Posts

func (r *SchedulerGormRepository) CreatePost(ctx context.Context, post domain.Post) (domain.Post, error) {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Status == "" {
		post.Status = domain.PostStatusScheduled
	}
	m := toPostModel(post)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

func (r *SchedulerGormRepository) UpdatePost(ctx context.Context, id string, update domain.PostUpdate) error {
	fields := map[string]any{
		"status":     string(update.Status),
		"updated_at": time.Now().UTC(),
	}
	if update.PlatformPostID != nil {
		fields["platform_post_id"] = *update.PlatformPostID
	}
	if update.ErrorMessage != nil {
		fields["error_message"] = *update.ErrorMessage
	}
	if update.PostedAt != nil {
		fields["posted_at"] = *update.PostedAt
	}

	res := r.db.WithContext(ctx).Model(&postModel{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func (r *SchedulerGormRepository) GetPost(ctx context.Context, id string) (domain.Post, error) {
	var m postModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Post{}, domain.ErrPostNotFound
		}
		return domain.Post{}, err
	}
	return fromPostModel(m), nil
}

func (r *SchedulerGormRepository) ListPostsInWindow(ctx context.Context, userID, platform string, statuses []domain.PostStatus, start, end time.Time) ([]domain.Post, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("scheduled_for >= ? AND scheduled_for < ?", start.UTC(), end.UTC())
	if platform != "" {
		q = q.Where("platform_name = ?", platform)
	}
	if len(statuses) > 0 {
		strs := make([]string, len(statuses))
		for i, s := range statuses {
			strs[i] = string(s)
		}
		q = q.Where("status IN ?", strs)
	}

	var models []postModel
	if err := q.Order("scheduled_for").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Post, len(models))
	for i, m := range models {
		out[i] = fromPostModel(m)
	}
	return out, nil
}

func (r *SchedulerGormRepository) ListPostsByStatus(ctx context.Context, userID string, status domain.PostStatus) ([]domain.Post, error) {
	var models []postModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, string(status)).
		Order("scheduled_for").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Post, len(models))
	for i, m := range models {
		out[i] = fromPostModel(m)
	}
	return out, nil
}

// AI preferences

func (r *SchedulerGormRepository) LoadTopics(ctx context.Context, userID string) ([]string, error) {
	var m aiSettingModel
	if err := r.db.WithContext(ctx).First(&m, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return decodeStrings(m.Topics), nil
}

func (r *SchedulerGormRepository) SaveTopics(ctx context.Context, userID string, topics []string) error {
	m := aiSettingModel{
		UserID:    userID,
		Topics:    encodeJSON(topics),
		UpdatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Save(&m).Error
}

// Credentials

func (r *SchedulerGormRepository) GetCredential(ctx context.Context, userID, platform string) (domain.Credential, error) {
	var m credentialModel
	err := r.db.WithContext(ctx).
		First(&m, "user_id = ? AND platform = ?", userID, platform).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Credential{}, domain.ErrCredentialNotFound
		}
		return domain.Credential{}, err
	}
	token, err := crypto.Decrypt(m.Token)
	if err != nil {
		return domain.Credential{}, err
	}
	secret, err := crypto.Decrypt(m.Secret.String)
	if err != nil {
		return domain.Credential{}, err
	}
	return domain.Credential{
		UserID:    m.UserID,
		Platform:  m.Platform,
		Token:     token,
		Secret:    secret,
		Extra:     m.Extra.String,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// UpsertCredential stores tokens encrypted at rest when an encryption key
// is configured.
func (r *SchedulerGormRepository) UpsertCredential(ctx context.Context, cred domain.Credential) error {
	token, err := crypto.Encrypt(cred.Token)
	if err != nil {
		return err
	}
	secret := ""
	if cred.Secret != "" {
		if secret, err = crypto.Encrypt(cred.Secret); err != nil {
			return err
		}
	}
	m := credentialModel{
		UserID:    cred.UserID,
		Platform:  cred.Platform,
		Token:     token,
		Secret:    nullString(secret),
		Extra:     nullString(cred.Extra),
		UpdatedAt: time.Now().UTC(),
	}
	res := r.db.WithContext(ctx).
		Model(&credentialModel{}).
		Where("user_id = ? AND platform = ?", cred.UserID, cred.Platform).
		Updates(map[string]any{
			"token":      m.Token,
			"secret":     m.Secret,
			"extra":      m.Extra,
			"updated_at": m.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.db.WithContext(ctx).Create(&m).Error
	}
	return nil
}

// Notifications

func (r *SchedulerGormRepository) SaveNotification(ctx context.Context, n domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	m := notificationModel{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Platform:  nullString(n.Platform),
		Timestamp: n.Timestamp.UTC(),
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *SchedulerGormRepository) ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []notificationModel
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Notification, len(models))
	for i, m := range models {
		out[i] = domain.Notification{
			ID:        m.ID,
			Type:      m.Type,
			Title:     m.Title,
			Message:   m.Message,
			Platform:  m.Platform.String,
			Timestamp: m.Timestamp,
		}
	}
	return out, nil
}

// --- Mappers ---

func toScheduleModel(cfg domain.ScheduleConfig) postingScheduleModel {
	return postingScheduleModel{
		ID:             cfg.ID,
		UserID:         cfg.UserID,
		Platform:       cfg.Platform,
		MaxPostsPerDay: cfg.MaxPostsPerDay,
		PreferredTimes: encodeJSON(cfg.PreferredTimes),
		DaysOfWeek:     encodeJSON(cfg.DaysOfWeek),
		IsActive:       cfg.IsActive,
		CreatedAt:      cfg.CreatedAt,
		UpdatedAt:      cfg.UpdatedAt,
	}
}

func fromScheduleModel(m postingScheduleModel) domain.ScheduleConfig {
	return domain.ScheduleConfig{
		ID:             m.ID,
		UserID:         m.UserID,
		Platform:       m.Platform,
		MaxPostsPerDay: m.MaxPostsPerDay,
		PreferredTimes: decodeStrings(m.PreferredTimes),
		DaysOfWeek:     decodeWeekdays(m.DaysOfWeek),
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toPostModel(p domain.Post) postModel {
	return postModel{
		ID:             p.ID,
		UserID:         p.UserID,
		PlatformName:   p.PlatformName,
		PostType:       p.PostType,
		Title:          p.Title,
		Content:        p.Content,
		Tags:           encodeJSON(p.Tags),
		MediaURL:       nullString(p.MediaURL),
		Status:         string(p.Status),
		ScheduledFor:   p.ScheduledFor.UTC(),
		PlatformPostID: nullString(p.PlatformPostID),
		ErrorMessage:   nullString(p.ErrorMessage),
		PostedAt:       p.PostedAt,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPostModel(m postModel) domain.Post {
	return domain.Post{
		ID:             m.ID,
		UserID:         m.UserID,
		PlatformName:   m.PlatformName,
		PostType:       m.PostType,
		Title:          m.Title,
		Content:        m.Content,
		Tags:           decodeStrings(m.Tags),
		MediaURL:       m.MediaURL.String,
		Status:         domain.PostStatus(m.Status),
		ScheduledFor:   m.ScheduledFor.UTC(),
		PlatformPostID: m.PlatformPostID.String,
		ErrorMessage:   m.ErrorMessage.String,
		PostedAt:       m.PostedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func encodeJSON(v any) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func decodeStrings(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil
	}
	return out
}

// decodeWeekdays tolerates day entries stored as numbers or numeric strings.
func decodeWeekdays(ns sql.NullString) []int {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var raw []any
	if err := json.Unmarshal([]byte(ns.String), &raw); err != nil {
		return nil
	}
	return timeutils.NormalizeWeekdays(raw)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
