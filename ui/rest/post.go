package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/postpilot/postpilot/pkg/timeutils"
	"github.com/postpilot/postpilot/pkg/utils"
	"github.com/postpilot/postpilot/scheduler/domain"
)

type PostHandler struct {
	repo   domain.ISchedulerRepository
	userID string
}

func NewPostHandler(repo domain.ISchedulerRepository, userID string) *PostHandler {
	return &PostHandler{repo: repo, userID: userID}
}

func (h *PostHandler) Register(router fiber.Router) {
	g := router.Group("/posts")
	g.Get("/", h.ListPosts)
	g.Get("/:id", h.GetPost)
}

// ListPosts returns the posts of one local day, today by default.
// Query params: date=YYYY-MM-DD, platform, status (repeatable).
func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	localDay := timeutils.LocalNow()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date must be YYYY-MM-DD"})
		}
		localDay = parsed
	}
	window := timeutils.DayBounds(localDay)

	var statuses []domain.PostStatus
	if raw := c.Query("status"); raw != "" {
		statuses = append(statuses, domain.PostStatus(raw))
	}

	posts, err := h.repo.ListPostsInWindow(c.UserContext(), h.userID, c.Query("platform"), statuses, window.StartUTC, window.EndUTC)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Posts retrieved",
		Results: posts,
	})
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.repo.GetPost(c.UserContext(), c.Params("id"))
	if err == domain.ErrPostNotFound {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "post not found"})
	}
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Post retrieved",
		Results: post,
	})
}
