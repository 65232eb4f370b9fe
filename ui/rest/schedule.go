package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postpilot/postpilot/pkg/utils"
	"github.com/postpilot/postpilot/scheduler/domain"
	"github.com/postpilot/postpilot/validations"
)

type ScheduleHandler struct {
	repo   domain.ISchedulerRepository
	userID string
}

func NewScheduleHandler(repo domain.ISchedulerRepository, userID string) *ScheduleHandler {
	return &ScheduleHandler{repo: repo, userID: userID}
}

func (h *ScheduleHandler) Register(router fiber.Router) {
	g := router.Group("/schedules")
	g.Get("/", h.ListSchedules)
	g.Post("/", h.CreateSchedule)
	g.Get("/:id", h.GetSchedule)
	g.Put("/:id", h.UpdateSchedule)
	g.Delete("/:id", h.DeleteSchedule)
}

func (h *ScheduleHandler) ListSchedules(c *fiber.Ctx) error {
	schedules, err := h.repo.ListSchedules(c.UserContext(), h.userID)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Schedules retrieved",
		Results: schedules,
	})
}

func (h *ScheduleHandler) GetSchedule(c *fiber.Ctx) error {
	cfg, err := h.repo.GetSchedule(c.UserContext(), c.Params("id"))
	if err == domain.ErrScheduleNotFound {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "schedule not found"})
	}
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Schedule retrieved",
		Results: cfg,
	})
}

func (h *ScheduleHandler) CreateSchedule(c *fiber.Ctx) error {
	var cfg domain.ScheduleConfig
	if err := c.BodyParser(&cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	cfg.UserID = h.userID

	utils.PanicIfNeeded(validations.ValidateSchedule(c.UserContext(), cfg))

	created, err := h.repo.CreateSchedule(c.UserContext(), cfg)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Schedule created",
		Results: created,
	})
}

func (h *ScheduleHandler) UpdateSchedule(c *fiber.Ctx) error {
	var cfg domain.ScheduleConfig
	if err := c.BodyParser(&cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	cfg.ID = c.Params("id")
	cfg.UserID = h.userID

	utils.PanicIfNeeded(validations.ValidateSchedule(c.UserContext(), cfg))

	err := h.repo.UpdateSchedule(c.UserContext(), cfg)
	if err == domain.ErrScheduleNotFound {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "schedule not found"})
	}
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Schedule updated",
		Results: cfg,
	})
}

func (h *ScheduleHandler) DeleteSchedule(c *fiber.Ctx) error {
	err := h.repo.DeleteSchedule(c.UserContext(), c.Params("id"))
	if err == domain.ErrScheduleNotFound {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "schedule not found"})
	}
	utils.PanicIfNeeded(err)

	return c.SendStatus(fiber.StatusNoContent)
}
