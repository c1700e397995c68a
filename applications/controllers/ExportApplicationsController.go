package controllers

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"permit-processing-backend/config"
	"permit-processing-backend/utils"
	"permit-processing-backend/utils/pagination"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const exportBatchLimit = 10000

// ExportApplicationsController writes the filtered applications register to a
// spreadsheet and streams it back. Accepts the same filters as the list
// endpoint; pagination parameters are ignored.
func (ac *ApplicationController) ExportApplicationsController(c *fiber.Ctx) error {
	params := pagination.ParsePaginationParams(c)

	apps, total, err := ac.ApplicationRepo.GetFilteredApplications(exportBatchLimit, 0, params.Filters)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load applications for export",
			"error":   err.Error(),
		})
	}

	file, err := utils.ExportApplicationsRegister(apps)
	if err != nil {
		config.Logger.Error("Failed to build applications export", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to build export",
			"error":   err.Error(),
		})
	}

	dirPath := "./public/exports"
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to prepare export directory",
			"error":   err.Error(),
		})
	}

	filename := fmt.Sprintf("applications-%s.xlsx", time.Now().Format("20060102-150405"))
	fullPath := filepath.Join(dirPath, filename)
	if err := file.SaveAs(fullPath); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to write export file",
			"error":   err.Error(),
		})
	}

	config.Logger.Info("Applications register exported",
		zap.Int64("total", total),
		zap.String("file", filename),
	)

	return c.Download(fullPath, filename)
}
