// Package main starts the wallet ledger service: PostgreSQL-backed
// ledger core, Redis cache, Prometheus metrics and the HTTP API.
package main

import (
	"context"
	"time"

	"walletcore/internal/config"
	"walletcore/internal/metrics"
	"walletcore/internal/repositories"
	"walletcore/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadEnv()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if !config.IsProduction() {
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := repositories.InitDB(repositories.DBConfig{
		MaxIdleConns:    config.GetIntEnv("DB_MAX_IDLE_CONNS", 10),
		MaxOpenConns:    config.GetIntEnv("DB_MAX_OPEN_CONNS", 100),
		ConnMaxLifetime: config.GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime: config.GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
	})
	if err != nil {
		log.WithError(err).Fatal("database init failed")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Fatal("failed to get database instance")
	}
	defer sqlDB.Close()

	cacheSvc := repositories.InitCache()
	defer cacheSvc.Close()
	if err := cacheSvc.HealthCheck(context.Background()); err != nil {
		// The ledger stays correct without Redis; only fast paths degrade.
		log.WithError(err).Warn("redis unavailable, duplicate pre-checks fall back to the database")
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	app := fiber.New(fiber.Config{AppName: "walletcore"})
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app, db, cacheSvc, collector, log)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := sqlDB.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	addr := ":" + config.GetEnv("PORT", "3000")
	log.WithField("addr", addr).Info("starting wallet ledger service")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
