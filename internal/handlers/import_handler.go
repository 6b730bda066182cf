package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/importer"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/utils"
)

// tenantID extracts the tenant from the X-User-ID header set by the gateway.
func tenantID(c fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Get("X-User-ID"))
}

type ImportHandler struct {
	ImportService *importer.ImportService
	MaxUploadSize int64
}

func NewImportHandler(importService *importer.ImportService, maxUploadSize int64) *ImportHandler {
	return &ImportHandler{
		ImportService: importService,
		MaxUploadSize: maxUploadSize,
	}
}

func (h *ImportHandler) Register(app *fiber.App) {
	group := app.Group("affiliate/api/v1")
	group.Post("/imports", h.ImportCSV)
}

func (h *ImportHandler) ImportCSV(c fiber.Ctx) error {
	userID, err := tenantID(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "A CSV file is required"))
	}
	if file.Size > h.MaxUploadSize {
		return c.Status(http.StatusRequestEntityTooLarge).JSON(
			utils.CreateErrorResponse("FILE_TOO_LARGE", "File exceeds the maximum upload size"))
	}

	upload, err := file.Open()
	if err != nil {
		slog.Error("failed to open upload", "user_id", userID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INTERNAL_SERVER_ERROR", "Failed to read upload"))
	}
	defer upload.Close()

	result, err := h.ImportService.Import(c.Context(), userID, file.Filename, upload)
	switch {
	case errors.Is(err, importer.ErrNotCSV):
		return c.Status(http.StatusUnsupportedMediaType).JSON(
			utils.CreateErrorResponse("UNSUPPORTED_FILE", "Only CSV files are supported"))
	case errors.Is(err, importer.ErrFileTooLarge):
		return c.Status(http.StatusRequestEntityTooLarge).JSON(
			utils.CreateErrorResponse("FILE_TOO_LARGE", "File exceeds the maximum upload size"))
	case err != nil:
		slog.Error("import failed", "user_id", userID, "filename", file.Filename, "error", err)
		return c.Status(http.StatusUnprocessableEntity).JSON(
			utils.CreateErrorResponse("IMPORT_FAILED", "The file could not be imported"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(fiber.Map{
		"message": result.Summary(),
		"result":  result,
	}))
}
