// main.go
//
// A version snapshot, diff, and approval data service for actuarial assumption tables
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of actudb.
// actudb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// actudb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with actudb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/joho/godotenv"
	"github.com/localnerve/actudb/internal/config"
	"github.com/localnerve/actudb/internal/database"
	"github.com/localnerve/actudb/internal/handlers"
	"github.com/localnerve/actudb/internal/middleware"
	"github.com/localnerve/actudb/internal/services"
	"github.com/localnerve/actudb/internal/types"

	_ "github.com/localnerve/actudb/docs/api" // Swagger docs
)

// @title ActuDB API
// @version 1.0.0
// @description Version snapshot, diff, and approval service for actuarial assumption tables
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/actudb
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load .env if present, environment wins
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Authorizer
	if err := services.InitAuthorizer(cfg, "http", "localhost:"+cfg.Port); err != nil {
		log.Fatalf("Failed to initialize authorizer: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("actudb")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Create services
	live := services.NewLiveTableStore()
	versioning := services.NewVersioningService(db, cfg, live)
	approvals := services.NewApprovalService(db, cfg, versioning)
	diff := services.NewDiffService(db, versioning)

	// Create handlers
	versionsHandler := &handlers.VersionsHandler{Versioning: versioning, Diff: diff}
	approvalsHandler := &handlers.ApprovalsHandler{Approvals: approvals}
	healthHandler := &handlers.HealthHandler{Cfg: cfg, DB: db}

	// Health route, no auth
	app.Get("/health", healthHandler.GetHealth)

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	// Snapshot and diff routes, table scoped.
	// Compare routes register before :versionId so the literal segment wins.
	tables := api.Group("/tables/:tableId/versions")
	tables.Get("/compare", middleware.AuthViewer(), versionsHandler.CompareVersions)
	tables.Get("/compare/export", middleware.AuthViewer(), versionsHandler.ExportCompare)
	tables.Post("/compare/export", middleware.AuthViewer(), versionsHandler.ExportCompareBody)
	tables.Post("/", middleware.AuthAnalyst(), versionsHandler.CreateVersion)
	tables.Get("/", middleware.AuthViewer(), versionsHandler.ListVersions)
	tables.Get("/:versionId", middleware.AuthViewer(), versionsHandler.GetVersion)
	tables.Post("/:versionId/restore", middleware.AuthAnalyst(), versionsHandler.RestoreVersion)
	tables.Delete("/:versionId", middleware.AuthAdmin(), versionsHandler.DeleteVersion)

	// Approval workflow routes, version scoped
	versions := api.Group("/versions/:versionId")
	versions.Post("/submit", middleware.AuthAnalyst(), approvalsHandler.Submit)
	versions.Post("/resubmit", middleware.AuthAnalyst(), approvalsHandler.Resubmit)
	versions.Post("/approve", middleware.AuthAdmin(), approvalsHandler.Approve)
	versions.Post("/reject", middleware.AuthAdmin(), approvalsHandler.Reject)
	versions.Get("/history", middleware.AuthViewer(), approvalsHandler.GetHistory)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	kind := "internal"
	currentStatus := ""

	// Engine errors carry their own status mapping
	var engineErr *types.Error
	if errors.As(err, &engineErr) {
		code = engineErr.HTTPStatus()
		message = engineErr.Message
		kind = string(engineErr.Kind)
		currentStatus = engineErr.CurrentStatus
	} else if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	body := fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"kind":      kind,
	}
	if currentStatus != "" {
		body["currentStatus"] = currentStatus
	}

	return c.Status(code).JSON(body)
}
