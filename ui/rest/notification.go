package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postpilot/postpilot/pkg/utils"
	"github.com/postpilot/postpilot/scheduler/domain"
)

type NotificationHandler struct {
	repo domain.ISchedulerRepository
}

func NewNotificationHandler(repo domain.ISchedulerRepository) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("/notifications", h.ListNotifications)
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	list, err := h.repo.ListNotifications(c.UserContext(), limit)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Notifications retrieved",
		Results: list,
	})
}
