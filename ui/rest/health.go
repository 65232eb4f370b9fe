package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postpilot/postpilot/infrastructure/valkey"
	"github.com/postpilot/postpilot/pkg/utils"
	"github.com/postpilot/postpilot/scheduler/application"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db  *gorm.DB
	mgr *application.Manager
	vk  *valkey.Client
}

func NewHealthHandler(db *gorm.DB, mgr *application.Manager, vk *valkey.Client) *HealthHandler {
	return &HealthHandler{db: db, mgr: mgr, vk: vk}
}

func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.GetStatus)
}

func (h *HealthHandler) GetStatus(c *fiber.Ctx) error {
	results := map[string]any{
		"scheduler_running": h.mgr.Status().IsRunning,
	}

	dbOK := false
	if sqlDB, err := h.db.DB(); err == nil {
		dbOK = sqlDB.PingContext(c.UserContext()) == nil
	}
	results["database"] = dbOK

	if h.vk != nil {
		results["valkey"] = h.vk.IsConnected()
	}

	if !dbOK {
		return c.Status(500).JSON(utils.ResponseData{
			Status:  500,
			Code:    "INTERNAL_SERVER_ERROR",
			Message: "Database unreachable",
			Results: results,
		})
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Health status retrieved",
		Results: results,
	})
}
