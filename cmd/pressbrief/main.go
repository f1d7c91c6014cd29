package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/pressbrief/pressbrief/app/controllers"
	"github.com/pressbrief/pressbrief/app/repository"
	"github.com/pressbrief/pressbrief/internal/pkg/billing"
	"github.com/pressbrief/pressbrief/internal/pkg/cache"
	"github.com/pressbrief/pressbrief/internal/pkg/contentsource"
	"github.com/pressbrief/pressbrief/internal/pkg/database"
	"github.com/pressbrief/pressbrief/internal/pkg/env"
	"github.com/pressbrief/pressbrief/internal/pkg/metering"
	"github.com/pressbrief/pressbrief/internal/pkg/metrics/counter"
	"github.com/pressbrief/pressbrief/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)

	// Metering is the product; refuse to start without an explicit limit.
	meterCfg, err := metering.LoadConfig()
	if err != nil {
		log.Fatalf("metering config: %v", err)
	}

	gateway := billing.SetupStripe()
	billingSvc := billing.NewServiceFromDB(db, gateway, billing.LoadConfig())

	ledger := metering.NewLedger(metering.NewRepository(db), metering.SystemClock())
	gate := metering.NewGate(ledger, billingSvc, meterCfg)

	source := contentsource.NewSource(repository.GetGlobalFactory().GetArticleRepository())

	controllers.Setup(gate, billingSvc, source)

	// Periodic flush of batched article read counters from Redis to MySQL.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := counter.FlushAll(); err != nil {
				log.Printf("read counter flush failed: %v", err)
			}
		}
	}()

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "PressBrief",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
