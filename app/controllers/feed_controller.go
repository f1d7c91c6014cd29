package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/pressbrief/pressbrief/internal/pkg/contentsource"
	"github.com/pressbrief/pressbrief/internal/pkg/metrics/counter"
	"github.com/pressbrief/pressbrief/internal/pkg/usercontext"
)

// HandleFeed serves one metered page of the ranked feed. The access decision
// runs before any article is fetched; a denied request never touches content.
func HandleFeed(c *fiber.Ctx) error {
	identity := usercontext.GetUserEmail(c)

	decision, err := accessGate.Evaluate(c.UserContext(), identity, true)
	if err != nil {
		log.Errorf("access decision failed for %q: %v", identity, err)
	}
	if !decision.Allowed {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":    "quota_exhausted",
			"message":  "daily reading limit reached",
			"decision": decision,
		})
	}

	offset := c.QueryInt("offset", 0)
	pageSize := c.QueryInt("page_size", contentsource.DefaultPageSize)

	page, err := feedSource.FetchPage(c.UserContext(), offset, pageSize)
	if err != nil {
		log.Errorf("feed page fetch failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "could not load feed",
		})
	}

	// Popularity counters, flushed in batches. Failures never affect the response.
	for _, article := range page.Articles {
		if err := counter.AddArticleRead(article.ID); err != nil {
			log.Warnf("read counter increment failed for article %d: %v", article.ID, err)
			break
		}
	}

	return c.JSON(fiber.Map{
		"decision": decision,
		"page":     page,
	})
}

// HandleQuota reports the caller's remaining allowance without consuming it.
func HandleQuota(c *fiber.Ctx) error {
	identity := usercontext.GetUserEmail(c)

	decision, err := accessGate.Evaluate(c.UserContext(), identity, false)
	if err != nil {
		log.Warnf("quota lookup failed for %q: %v", identity, err)
	}
	return c.JSON(decision)
}
