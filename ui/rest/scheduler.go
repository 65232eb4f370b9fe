package rest

import (
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"github.com/postpilot/postpilot/pkg/utils"
	"github.com/postpilot/postpilot/scheduler/application"
)

type SchedulerHandler struct {
	mgr *application.Manager
}

func NewSchedulerHandler(mgr *application.Manager) *SchedulerHandler {
	return &SchedulerHandler{mgr: mgr}
}

func (h *SchedulerHandler) Register(router fiber.Router) {
	g := router.Group("/scheduler")
	g.Get("/status", h.Status)
	g.Post("/start", h.Start)
	g.Post("/stop", h.Stop)
	g.Post("/generate", h.Generate)
}

func (h *SchedulerHandler) Status(c *fiber.Ctx) error {
	status := h.mgr.Status()

	results := map[string]any{
		"is_running":      status.IsRunning,
		"scheduled_jobs":  status.ScheduledJobs,
		"processing_jobs": status.ProcessingJobs,
	}
	if status.NextJob != nil {
		results["next_job"] = status.NextJob
		results["next_job_in"] = humanize.Time(*status.NextJob)
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Scheduler status retrieved",
		Results: results,
	})
}

func (h *SchedulerHandler) Start(c *fiber.Ctx) error {
	h.mgr.Start(c.UserContext())
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Scheduler started",
		Results: h.mgr.Status(),
	})
}

func (h *SchedulerHandler) Stop(c *fiber.Ctx) error {
	h.mgr.Stop()
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Scheduler stopped",
		Results: h.mgr.Status(),
	})
}

func (h *SchedulerHandler) Generate(c *fiber.Ctx) error {
	h.mgr.ForceGenerate(c.UserContext())
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Content generation triggered",
		Results: h.mgr.Status(),
	})
}
