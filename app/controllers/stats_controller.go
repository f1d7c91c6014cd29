package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pressbrief/pressbrief/internal/pkg/statistics"
)

// HandleStats serves the public aggregate numbers. Cached; never touches
// per-identity usage data.
func HandleStats(c *fiber.Ctx) error {
	return c.JSON(statistics.GetStatisticsData())
}
