package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"

	"github.com/dimitrije/taskdeck-api/internal/access"
	"github.com/dimitrije/taskdeck-api/internal/audit"
	"github.com/dimitrije/taskdeck-api/internal/config"
	"github.com/dimitrije/taskdeck-api/internal/database"
	"github.com/dimitrije/taskdeck-api/internal/handlers"
	authmw "github.com/dimitrije/taskdeck-api/internal/middleware"
	"github.com/dimitrije/taskdeck-api/internal/services"
	"github.com/dimitrije/taskdeck-api/internal/sse"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	hub := sse.NewHub()
	go hub.Run()

	recorder := audit.NewPostgresRecorder(db)
	go recorder.Run()
	defer recorder.Close()

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry)
	userService := services.NewUserService(db)
	teamService := services.NewTeamService(db, hub, recorder)
	taskService := services.NewTaskService(db)
	shareService := services.NewShareService(db, hub, recorder)
	accessService := access.NewService(db, recorder)

	userHandler := handlers.NewUserHandler(userService)
	teamHandler := handlers.NewTeamHandler(teamService, userService)
	taskHandler := handlers.NewTaskHandler(taskService, accessService)
	shareHandler := handlers.NewShareHandler(shareService, userService)
	sseHandler := handlers.NewSSEHandler(hub, teamService)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Get("/users/me", userHandler.GetMe)
	protected.Patch("/users/me", userHandler.UpdateMe)

	protected.Get("/teams", teamHandler.List)
	protected.Post("/teams", teamHandler.Create)
	protected.Get("/teams/:id", teamHandler.Get)
	protected.Patch("/teams/:id", teamHandler.Update)
	protected.Delete("/teams/:id", teamHandler.Delete)
	protected.Get("/teams/:id/members", teamHandler.GetMembers)
	protected.Post("/teams/:id/members", teamHandler.InviteMember)
	protected.Patch("/teams/:id/members/:memberId", teamHandler.ChangeRole)
	protected.Delete("/teams/:id/members/:memberId", teamHandler.RemoveMember)
	protected.Post("/teams/:id/leave", teamHandler.Leave)

	protected.Get("/tasks", taskHandler.List)
	protected.Post("/tasks", taskHandler.Create)
	protected.Get("/tasks/:id", taskHandler.Get)
	protected.Patch("/tasks/:id", taskHandler.Update)
	protected.Delete("/tasks/:id", taskHandler.Delete)

	protected.Get("/tasks/:id/shares", shareHandler.List)
	protected.Post("/tasks/:id/shares", shareHandler.Create)
	protected.Patch("/tasks/:id/shares/:userId", shareHandler.Update)
	protected.Delete("/tasks/:id/shares/:userId", shareHandler.Revoke)
	protected.Get("/shared-with-me", shareHandler.SharedWithMe)

	protected.Get("/teams/:id/events", sseHandler.Connect)
	protected.Post("/sse/:clientId/subscribe/:teamId", sseHandler.Subscribe)
	protected.Post("/sse/:clientId/unsubscribe/:teamId", sseHandler.Unsubscribe)

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		for range ticker.C {
			deleted, err := recorder.DeleteOlderThan(context.Background(), cfg.AuditRetention)
			if err != nil {
				log.Printf("Failed to prune audit records: %v", err)
				continue
			}
			if deleted > 0 {
				log.Printf("Pruned %d audit records", deleted)
			}
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Printf("Server starting on %s", addr)
		if err := app.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
}
