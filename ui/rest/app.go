package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postpilot/postpilot/infrastructure/valkey"
	"github.com/postpilot/postpilot/scheduler/application"
	"github.com/postpilot/postpilot/scheduler/domain"
	"gorm.io/gorm"
)

// Deps carries everything the REST surface needs.
type Deps struct {
	DB     *gorm.DB
	Repo   domain.ISchedulerRepository
	Mgr    *application.Manager
	Valkey *valkey.Client
	UserID string
}

// InitRestApp mounts every handler under the given router, normally the
// /api group.
func InitRestApp(app fiber.Router, deps Deps) {
	NewHealthHandler(deps.DB, deps.Mgr, deps.Valkey).Register(app)
	NewSchedulerHandler(deps.Mgr).Register(app)
	NewScheduleHandler(deps.Repo, deps.UserID).Register(app)
	NewPostHandler(deps.Repo, deps.UserID).Register(app)
	NewTopicsHandler(deps.Repo, deps.UserID).Register(app)
	NewCredentialHandler(deps.Repo, deps.UserID).Register(app)
	NewNotificationHandler(deps.Repo).Register(app)
}
