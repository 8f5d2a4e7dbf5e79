// Package main is the entry point of the Fincra Wisdom API server.
package main

import (
	"context"
	"errors"
	"fincra-wisdom/internal/config"
	"fincra-wisdom/internal/handler"
	"fincra-wisdom/internal/middleware"
	"fincra-wisdom/internal/pipeline"
	"fincra-wisdom/internal/repository"
	"fincra-wisdom/internal/service"
	"fincra-wisdom/pkg/database"
	"fincra-wisdom/pkg/es"
	"fincra-wisdom/pkg/kafka"
	"fincra-wisdom/pkg/llm"
	"fincra-wisdom/pkg/log"
	"fincra-wisdom/pkg/mail"
	"fincra-wisdom/pkg/storage"
	"fincra-wisdom/pkg/tika"
	"fincra-wisdom/pkg/token"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	config.Init(configPath)
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database.InitMySQL(cfg.Database.MySQL)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	files, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatal("failed to initialize MinIO", err)
	}

	userRepo := repository.NewUserRepository(database.DB)
	tokenRepo := repository.NewTokenRepository(database.RDB)
	circleRepo := repository.NewCircleRepository(database.DB)
	departmentRepo := repository.NewDepartmentRepository(database.DB)
	documentRepo := repository.NewDocumentRepository(database.DB)
	suggestionRepo := repository.NewSuggestionRepository(database.DB)
	notificationRepo := repository.NewNotificationRepository(database.DB)

	// Optional backends stay nil interfaces when unconfigured.
	var searcher service.Searcher
	var esClient *es.Client
	if strings.TrimSpace(cfg.Elasticsearch.Addresses) != "" {
		esClient, err = es.NewClient(cfg.Elasticsearch)
		if err != nil {
			log.Warnw("elasticsearch unavailable, falling back to SQL search", "error", err)
			esClient = nil
		} else {
			searcher = esClient
		}
	}

	var publisher service.IndexPublisher
	if strings.TrimSpace(cfg.Kafka.Brokers) != "" {
		producer := kafka.NewProducer(cfg.Kafka)
		defer func() {
			if err := producer.Close(); err != nil {
				log.Error("failed to close Kafka producer", err)
			}
		}()
		publisher = producer

		if esClient != nil {
			consumer := kafka.NewConsumer(cfg.Kafka, database.RDB, pipeline.NewIndexer(documentRepo, esClient))
			go consumer.Run(ctx)
		}
	}

	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	mailer := mail.NewSMTPSender(cfg.Mail)
	if !mailer.IsConfigured() {
		log.Info("SMTP is not configured, emails will be skipped")
	}

	userService := service.NewUserService(userRepo, tokenRepo, jwtManager, service.AccountOptions{
		AllowedDomains:   cfg.Auth.AllowedDomains,
		AdminEmails:      cfg.Auth.AdminEmails,
		SuperAdminEmails: cfg.Auth.SuperAdminEmails,
	})
	notificationService := service.NewNotificationService(notificationRepo)
	taxonomyService := service.NewTaxonomyService(circleRepo, departmentRepo, publisher)
	documentService := service.NewDocumentService(documentRepo, departmentRepo, files, tika.NewClient(cfg.Tika), publisher)
	searchService := service.NewSearchService(documentRepo, searcher, llm.NewClient(cfg.LLM))
	suggestionService := service.NewSuggestionService(
		suggestionRepo,
		circleRepo,
		departmentRepo,
		files,
		notificationService,
		mailer,
		publisher,
		service.WorkflowOptions{
			AdminEmails:       cfg.Auth.AdminEmails,
			SideEffectTimeout: cfg.Workflow.SideEffectTimeout(),
			AppBaseURL:        cfg.Workflow.AppBaseURL,
		},
	)

	maxUpload := cfg.Server.MaxUploadMB << 20
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.MaxMultipartMemory = maxUpload
	r.Use(middleware.RequestLogger(), gin.Recovery())

	authHandler := handler.NewAuthHandler(userService)
	adminHandler := handler.NewAdminHandler(userService)
	taxonomyHandler := handler.NewTaxonomyHandler(taxonomyService)
	documentHandler := handler.NewDocumentHandler(documentService, maxUpload)
	suggestionHandler := handler.NewSuggestionHandler(suggestionService, maxUpload)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	searchHandler := handler.NewSearchHandler(searchService)

	requireUser := middleware.AuthMiddleware(jwtManager, userService, tokenRepo)
	requireAdmin := middleware.AdminAuthMiddleware()

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"status": "ok"}})
	})

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/me", requireUser, authHandler.Me)
		auth.POST("/logout", requireUser, authHandler.Logout)
	}

	authed := api.Group("")
	authed.Use(requireUser)
	{
		authed.GET("/circles", taxonomyHandler.ListCircles)
		authed.GET("/circles/:slug", taxonomyHandler.GetCircle)
		authed.GET("/circles/:slug/departments", taxonomyHandler.ListCircleDepartments)
		authed.POST("/circles", requireAdmin, taxonomyHandler.CreateCircle)
		authed.PUT("/circles/:id", requireAdmin, taxonomyHandler.UpdateCircle)
		authed.DELETE("/circles/:id", requireAdmin, taxonomyHandler.DeleteCircle)

		authed.GET("/departments/:id", taxonomyHandler.GetDepartment)
		authed.GET("/departments/:id/documents", documentHandler.ListByDepartment)
		authed.POST("/departments", requireAdmin, taxonomyHandler.CreateDepartment)
		authed.PUT("/departments/:id", requireAdmin, taxonomyHandler.UpdateDepartment)
		authed.DELETE("/departments/:id", requireAdmin, taxonomyHandler.DeleteDepartment)

		authed.POST("/documents", requireAdmin, documentHandler.Upload)
		authed.GET("/documents/recent", documentHandler.Recent)
		authed.GET("/documents/popular", documentHandler.Popular)
		authed.GET("/documents/:id", documentHandler.View)
		authed.POST("/documents/:id/download", documentHandler.Download)

		authed.POST("/documents/suggest", suggestionHandler.Suggest)
		authed.GET("/documents/suggestions", requireAdmin, suggestionHandler.List)
		authed.GET("/documents/suggestions/:id", requireAdmin, suggestionHandler.Get)
		authed.PUT("/documents/suggestions/:id/approve", requireAdmin, suggestionHandler.Approve)
		authed.PUT("/documents/suggestions/:id/reject", requireAdmin, suggestionHandler.Reject)

		authed.GET("/notifications", notificationHandler.List)
		authed.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		authed.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
		authed.PUT("/notifications/:id/read", notificationHandler.MarkRead)

		authed.GET("/search", searchHandler.Search)
		authed.POST("/ai/ask", searchHandler.Ask)
	}

	admin := api.Group("/admin")
	admin.Use(requireUser, requireAdmin)
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.PUT("/users/:id/block", adminHandler.SetBlocked)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %s", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, stopping server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", err)
	}
	log.Info("server stopped")
}
