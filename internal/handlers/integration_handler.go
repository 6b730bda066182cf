package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/event"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/repository"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/shopee"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/utils"
)

type IntegrationHandler struct {
	Integrations *repository.IntegrationRepository
	SyncService  *shopee.SyncService
	Publisher    *event.SyncPublisher
}

func NewIntegrationHandler(integrations *repository.IntegrationRepository, syncService *shopee.SyncService, publisher *event.SyncPublisher) *IntegrationHandler {
	return &IntegrationHandler{
		Integrations: integrations,
		SyncService:  syncService,
		Publisher:    publisher,
	}
}

func (h *IntegrationHandler) Register(app *fiber.App) {
	group := app.Group("affiliate/api/v1/integrations")
	group.Post("/", h.Save)
	group.Get("/status", h.Status)
	group.Post("/test", h.TestConnection)
	group.Post("/sync", h.EnqueueSync)
	group.Post("/backfill", h.EnqueueBackfill)
}

type saveIntegrationRequest struct {
	AppID              string `json:"app_id"`
	Secret             string `json:"secret"`
	Endpoint           string `json:"endpoint"`
	Active             *bool  `json:"active"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute"`
	RateLimitPerHour   int    `json:"rate_limit_per_hour"`
}

func (h *IntegrationHandler) Save(c fiber.Ctx) error {
	userID, err := tenantID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	var req saveIntegrationRequest
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("failed to parse integration body", "user_id", userID, "error", err)
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid request body"))
	}
	if req.AppID == "" || req.Secret == "" {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "app_id and secret are required"))
	}

	integration := &models.ShopeeIntegration{
		UserID:             userID,
		AppID:              req.AppID,
		Secret:             req.Secret,
		Endpoint:           req.Endpoint,
		Active:             true,
		RateLimitPerMinute: req.RateLimitPerMinute,
		RateLimitPerHour:   req.RateLimitPerHour,
	}
	if req.Active != nil {
		integration.Active = *req.Active
	}
	if integration.Endpoint == "" {
		integration.Endpoint = "https://open-api.affiliate.shopee.com.br/graphql"
	}
	if integration.RateLimitPerMinute <= 0 {
		integration.RateLimitPerMinute = 100
	}
	if integration.RateLimitPerHour <= 0 {
		integration.RateLimitPerHour = 5000
	}

	if err := h.Integrations.Upsert(c.Context(), integration); err != nil {
		slog.Error("failed to save integration", "user_id", userID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INTERNAL_SERVER_ERROR", "Failed to save integration"))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(integration))
}

func (h *IntegrationHandler) Status(c fiber.Ctx) error {
	userID, err := tenantID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	integration, err := h.Integrations.GetByUserID(c.Context(), userID)
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(
			utils.CreateErrorResponse("NOT_FOUND", "No integration configured"))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(integration))
}

func (h *IntegrationHandler) TestConnection(c fiber.Ctx) error {
	userID, err := tenantID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	integration, err := h.Integrations.GetByUserID(c.Context(), userID)
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(
			utils.CreateErrorResponse("NOT_FOUND", "No integration configured"))
	}

	if err := h.SyncService.TestConnection(c.Context(), integration.ID); err != nil {
		if errors.Is(err, shopee.ErrInvalidCredentials) {
			return c.Status(http.StatusUnprocessableEntity).JSON(
				utils.CreateErrorResponse("INVALID_CREDENTIALS", "The API rejected the credentials"))
		}
		slog.Error("integration test failed", "user_id", userID, "error", err)
		return c.Status(http.StatusBadGateway).JSON(
			utils.CreateErrorResponse("CONNECTION_FAILED", "Could not reach the affiliate API"))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(fiber.Map{"connected": true}))
}

type enqueueRequest struct {
	Days int `json:"days"`
}

func (h *IntegrationHandler) EnqueueSync(c fiber.Ctx) error {
	return h.enqueue(c, event.JobKindSync, 7)
}

func (h *IntegrationHandler) EnqueueBackfill(c fiber.Ctx) error {
	return h.enqueue(c, event.JobKindBackfill, 30)
}

func (h *IntegrationHandler) enqueue(c fiber.Ctx, kind string, defaultDays int) error {
	userID, err := tenantID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	integration, err := h.Integrations.GetByUserID(c.Context(), userID)
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(
			utils.CreateErrorResponse("NOT_FOUND", "No integration configured"))
	}
	if !integration.Active {
		return c.Status(http.StatusConflict).JSON(
			utils.CreateErrorResponse("INTEGRATION_INACTIVE", "The integration is not active"))
	}

	var req enqueueRequest
	_ = c.Bind().Body(&req)
	if req.Days <= 0 {
		req.Days = defaultDays
	}

	message := event.SyncJobMessage{
		IntegrationID: integration.ID,
		Kind:          kind,
		Days:          req.Days,
	}
	if err := h.Publisher.Publish(c.Context(), message); err != nil {
		slog.Error("failed to enqueue job", "user_id", userID, "kind", kind, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INTERNAL_SERVER_ERROR", "Failed to enqueue job"))
	}
	return c.Status(http.StatusAccepted).JSON(utils.CreateSuccessResponse(fiber.Map{
		"enqueued": true,
		"kind":     kind,
		"days":     req.Days,
	}))
}
