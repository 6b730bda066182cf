package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/repository"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/services"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/utils"
)

type AnalyticsHandler struct {
	AnalyticsService *services.AnalyticsService
	AdSpendService   *services.AdSpendService
	Commissions      *repository.CommissionRepository
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService, adSpendService *services.AdSpendService, commissions *repository.CommissionRepository) *AnalyticsHandler {
	return &AnalyticsHandler{
		AnalyticsService: analyticsService,
		AdSpendService:   adSpendService,
		Commissions:      commissions,
	}
}

func (h *AnalyticsHandler) Register(app *fiber.App) {
	group := app.Group("affiliate/api/v1")

	analytics := group.Group("/analytics")
	analytics.Get("/overview", h.Overview)
	analytics.Get("/channels", h.Channels)
	analytics.Get("/categories", h.Categories)
	analytics.Get("/products", h.Products)
	analytics.Get("/subids", h.SubIDs)
	analytics.Get("/daily", h.Daily)

	group.Put("/adspend", h.SaveAdSpend)
	group.Delete("/commissions", h.DeleteCommissions)
}

// queryPeriod reads the optional start/end date bounds (YYYY-MM-DD).
func queryPeriod(c fiber.Ctx) models.Period {
	period := models.Period{}
	if start, err := time.Parse("2006-01-02", c.Query("start")); err == nil {
		period.Start = start
	}
	if end, err := time.Parse("2006-01-02", c.Query("end")); err == nil {
		// Bound is inclusive of the whole end day.
		period.End = end.Add(24*time.Hour - time.Nanosecond)
	}
	return period
}

func queryInt(c fiber.Ctx, name string) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return value
}

func (h *AnalyticsHandler) Overview(c fiber.Ctx) error {
	userID, err := tenantID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	clicks, _ := strconv.ParseInt(c.Query("clicks"), 10, 64)
	overview, err := h.AnalyticsService.Overview(c.Context(), userID, queryPeriod(c), clicks)
	if err != nil {
		slog.Error("failed to get analytics overview", "user_id", userID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INTERNAL_SERVER_ERROR", "Failed to get analytics overview"))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(overview))
}

func (h *AnalyticsHandler) Channels(c fiber.Ctx) error {
	userID, err := tenantID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	buckets, err := h.AnalyticsService.ChannelPerformance(c.Context(), userID, queryPeriod(c))
	if err != nil {
		slog.Error("failed to get channel performance", "user_id", userID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INTERNAL_SERVER_ERROR", "Failed to get channel performance"))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(buckets))
}

func (h *AnalyticsHandler) Categories(c fiber.Ctx) error {
	userID, err := tenantID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	buckets, err := h.AnalyticsService.CategoryPerformance(c.Context(), userID, queryPeriod(c))
	if err != nil {
		slog.Error("failed to get category performance", "user_id", userID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INTERNAL_SERVER_ERROR", "Failed to get category performance"))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(buckets))
}

func (h *AnalyticsHandler) Products(c fiber.Ctx) error {
	userID, err := tenantID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	buckets, err := h.AnalyticsService.TopProducts(c.Context(), userID, queryPeriod(c), queryInt(c, "limit"))
	if err != nil {
		slog.Error("failed to get top products", "user_id", userID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INTERNAL_SERVER_ERROR", "Failed to get top products"))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(buckets))
}

func (h *AnalyticsHandler) SubIDs(c fiber.Ctx) error {
	userID, err := tenantID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	buckets, err := h.AnalyticsService.SubIDPerformance(c.Context(), userID, queryPeriod(c), queryInt(c, "limit"))
	if err != nil {
		slog.Error("failed to get subid performance", "user_id", userID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INTERNAL_SERVER_ERROR", "Failed to get subid performance"))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(buckets))
}

func (h *AnalyticsHandler) Daily(c fiber.Ctx) error {
	userID, err := tenantID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	series, err := h.AnalyticsService.DailySeries(c.Context(), userID, queryPeriod(c))
	if err != nil {
		slog.Error("failed to get daily series", "user_id", userID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INTERNAL_SERVER_ERROR", "Failed to get daily series"))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(series))
}

type saveAdSpendRequest struct {
	PeriodStart     string                  `json:"period_start"`
	PeriodEnd       string                  `json:"period_end"`
	TotalInvestment *decimal.Decimal        `json:"total_investment"`
	Entries         []services.AdSpendEntry `json:"entries"`
}

func (h *AnalyticsHandler) SaveAdSpend(c fiber.Ctx) error {
	userID, err := tenantID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	var req saveAdSpendRequest
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("failed to parse ad spend body", "user_id", userID, "error", err)
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid request body"))
	}

	periodStart, _ := time.Parse("2006-01-02", req.PeriodStart)
	periodEnd, _ := time.Parse("2006-01-02", req.PeriodEnd)

	err = h.AdSpendService.Save(c.Context(), userID, periodStart, periodEnd, req.Entries, req.TotalInvestment)
	if err != nil {
		slog.Error("failed to save ad spend", "user_id", userID, "error", err)
		return c.Status(http.StatusUnprocessableEntity).JSON(
			utils.CreateErrorResponse("AD_SPEND_FAILED", "Failed to save ad spend"))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(fiber.Map{"saved": len(req.Entries)}))
}

func (h *AnalyticsHandler) DeleteCommissions(c fiber.Ctx) error {
	userID, err := tenantID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	deleted, err := h.Commissions.DeleteByPeriod(c.Context(), userID, queryPeriod(c))
	if err != nil {
		slog.Error("failed to delete commissions", "user_id", userID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INTERNAL_SERVER_ERROR", "Failed to delete commissions"))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(fiber.Map{"deleted": deleted}))
}
