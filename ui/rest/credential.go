package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postpilot/postpilot/pkg/utils"
	"github.com/postpilot/postpilot/scheduler/domain"
	"github.com/postpilot/postpilot/validations"
)

type CredentialHandler struct {
	repo   domain.ISchedulerRepository
	userID string
}

func NewCredentialHandler(repo domain.ISchedulerRepository, userID string) *CredentialHandler {
	return &CredentialHandler{repo: repo, userID: userID}
}

func (h *CredentialHandler) Register(router fiber.Router) {
	g := router.Group("/credentials")
	g.Put("/", h.UpsertCredential)
	g.Get("/:platform", h.GetCredential)
}

func (h *CredentialHandler) UpsertCredential(c *fiber.Ctx) error {
	var cred domain.Credential
	if err := c.BodyParser(&cred); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	cred.UserID = h.userID

	utils.PanicIfNeeded(validations.ValidateCredential(c.UserContext(), cred))
	utils.PanicIfNeeded(h.repo.UpsertCredential(c.UserContext(), cred))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Credential stored",
		Results: nil,
	})
}

// GetCredential reports whether a credential exists. Tokens are masked;
// the full secret never leaves the store through this endpoint.
func (h *CredentialHandler) GetCredential(c *fiber.Ctx) error {
	cred, err := h.repo.GetCredential(c.UserContext(), h.userID, c.Params("platform"))
	if err == domain.ErrCredentialNotFound {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "credential not found"})
	}
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Credential retrieved",
		Results: map[string]any{
			"platform":   cred.Platform,
			"token":      maskToken(cred.Token),
			"has_secret": cred.Secret != "",
			"updated_at": cred.UpdatedAt,
		},
	})
}

func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
