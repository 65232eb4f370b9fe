package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postpilot/postpilot/pkg/utils"
	"github.com/postpilot/postpilot/scheduler/domain"
)

type TopicsHandler struct {
	repo   domain.ISchedulerRepository
	userID string
}

func NewTopicsHandler(repo domain.ISchedulerRepository, userID string) *TopicsHandler {
	return &TopicsHandler{repo: repo, userID: userID}
}

func (h *TopicsHandler) Register(router fiber.Router) {
	router.Get("/topics", h.GetTopics)
	router.Put("/topics", h.UpdateTopics)
}

func (h *TopicsHandler) GetTopics(c *fiber.Ctx) error {
	topics, err := h.repo.LoadTopics(c.UserContext(), h.userID)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Topics retrieved",
		Results: topics,
	})
}

func (h *TopicsHandler) UpdateTopics(c *fiber.Ctx) error {
	type req struct {
		Topics []string `json:"topics"`
	}
	var r req
	if err := c.BodyParser(&r); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	utils.PanicIfNeeded(h.repo.SaveTopics(c.UserContext(), h.userID, r.Topics))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Topics updated",
		Results: r.Topics,
	})
}
