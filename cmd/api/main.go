package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/assessly/assessment-api/internal/config"
	"github.com/assessly/assessment-api/internal/handler"
	"github.com/assessly/assessment-api/internal/middleware"
	pgRepo "github.com/assessly/assessment-api/internal/repository/postgres"
	redisRepo "github.com/assessly/assessment-api/internal/repository/redis"
	"github.com/assessly/assessment-api/internal/service"
	"github.com/assessly/assessment-api/pkg/auth"
	"github.com/assessly/assessment-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	questionRepo := pgRepo.NewQuestionRepo(db)
	poolRepo := pgRepo.NewPoolRepo(db)
	questionnaireRepo := pgRepo.NewQuestionnaireRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Конфигурация движка попыток
	engineConfig := service.DefaultEngineConfig()
	if cfg.Engine.ValidatorTimeoutSec > 0 {
		engineConfig.ValidatorTimeout = time.Duration(cfg.Engine.ValidatorTimeoutSec) * time.Second
	}
	if cfg.Engine.ValidatorRetries > 0 {
		engineConfig.ValidatorRetries = cfg.Engine.ValidatorRetries
	}
	if cfg.Engine.RetryInterval > 0 {
		engineConfig.RetryInterval = cfg.Engine.RetryInterval
	}
	if cfg.Engine.PoolCacheTTLSec > 0 {
		engineConfig.PoolCacheTTL = time.Duration(cfg.Engine.PoolCacheTTLSec) * time.Second
	}
	if cfg.Engine.MaxRandomQuestions > 0 {
		engineConfig.MaxRandomQuestions = cfg.Engine.MaxRandomQuestions
	}

	// Внешний сервис проверки свободных ответов
	validator := service.NewHTTPAnswerValidator(cfg.Engine.ValidatorURL, engineConfig.ValidatorTimeout)

	// Инициализируем сервисы
	poolService := service.NewPoolService(poolRepo, questionRepo, cacheRepo, engineConfig)
	questionnaireService := service.NewQuestionnaireService(questionnaireRepo, questionRepo, poolRepo)
	attemptService := service.NewAttemptService(attemptRepo, questionnaireRepo, questionRepo, poolService, cacheRepo, validator, engineConfig)

	// JWT и middleware
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	// Обработчики
	poolHandler := handler.NewPoolHandler(poolService, cacheRepo)
	questionnaireHandler := handler.NewQuestionnaireHandler(questionnaireService)
	attemptHandler := handler.NewAttemptHandler(attemptService, attemptRepo)

	// Роутер
	router := gin.Default()

	if gin.Mode() == gin.ReleaseMode {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Failed to set trusted proxies: %v", err)
		}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		pools := api.Group("/pools")
		pools.Use(authMiddleware.RequireAuth())
		{
			pools.GET("", poolHandler.List)
			pools.POST("", poolHandler.Create)

			poolWithID := pools.Group("/:id")
			poolWithID.Use(middleware.ExtractUintParam("id", "poolID"))
			{
				poolWithID.GET("", poolHandler.Get)
				poolWithID.DELETE("", poolHandler.Delete)
				poolWithID.POST("/questions", poolHandler.AddQuestions)
				poolWithID.DELETE("/questions", poolHandler.RemoveQuestions)
				poolWithID.GET("/sample", poolHandler.Sample)
			}
		}

		questions := api.Group("/questions")
		questions.Use(authMiddleware.RequireAuth())
		{
			questions.POST("/bulk", poolHandler.BulkUpload)
			questions.GET("/:id/stats", middleware.ExtractUintParam("id", "questionID"), poolHandler.QuestionStats)
		}

		questionnaires := api.Group("/questionnaires")
		questionnaires.Use(authMiddleware.RequireAuth())
		{
			questionnaires.GET("", questionnaireHandler.List)
			questionnaires.POST("", questionnaireHandler.Create)

			withID := questionnaires.Group("/:id")
			withID.Use(middleware.ExtractUintParam("id", "questionnaireID"))
			{
				withID.GET("", questionnaireHandler.Get)
				withID.PUT("", questionnaireHandler.Update)
				withID.DELETE("", questionnaireHandler.Delete)
				withID.POST("/duplicate", questionnaireHandler.Duplicate)
			}
		}

		attempts := api.Group("/attempts")
		attempts.Use(authMiddleware.RequireAuth())
		{
			attempts.GET("", attemptHandler.List)
			attempts.POST("", attemptHandler.Start)
			attempts.GET("/export", attemptHandler.ExportXLSX)
			attempts.POST("/expire-overdue", attemptHandler.ExpireOverdue)
			attempts.GET("/:id/step", attemptHandler.NextStep)
			attempts.POST("/:id/answers", attemptHandler.Submit)
			attempts.POST("/:id/abandon", attemptHandler.Abandon)
			attempts.GET("/:id/result", attemptHandler.Result)
		}
	}

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
