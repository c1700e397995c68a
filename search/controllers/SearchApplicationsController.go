package controllers

import (
	"permit-processing-backend/search/services"

	"github.com/gofiber/fiber/v2"
)

type SearchController struct {
	IndexingService *services.IndexingService
}

func NewSearchController(indexingService *services.IndexingService) *SearchController {
	return &SearchController{IndexingService: indexingService}
}

// SearchApplicationsController answers free-text queries over reference
// numbers, permit numbers, applicant names and statuses.
func (sc *SearchController) SearchApplicationsController(c *fiber.Ctx) error {
	queryString := c.Query("q")
	if queryString == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Query parameter 'q' is required",
		})
	}

	size := c.QueryInt("size", 20)
	if size < 1 || size > 100 {
		size = 20
	}

	result, err := sc.IndexingService.SearchApplications(queryString, size)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Search failed",
			"error":   err.Error(),
		})
	}

	hits := make([]fiber.Map, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, fiber.Map{
			"id":     hit.ID,
			"score":  hit.Score,
			"fields": hit.Fields,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total": result.Total,
			"hits":  hits,
		},
	})
}
