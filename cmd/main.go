package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sefrin/empfehlungslink/internal/cache"
	"github.com/sefrin/empfehlungslink/internal/config"
	"github.com/sefrin/empfehlungslink/internal/database"
	"github.com/sefrin/empfehlungslink/internal/handler"
	"github.com/sefrin/empfehlungslink/internal/repository"
	"github.com/sefrin/empfehlungslink/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage (%s): %v", cfg.Database.Driver, err)
	}
	defer store.Close()

	log.Printf("Storage initialized: driver=%s", cfg.Database.Driver)

	// Подключаемся к Redis (опционально)
	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cache.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			CacheTTL:     cfg.Redis.CacheTTL,
		})
		if err != nil {
			log.Printf("⚠️  Failed to connect to Redis (running without cache): %v", err)
			// Продолжаем без кэша
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("✅ Successfully connected to Redis")
		}
	}

	if redisClient != nil {
		store = repository.NewCachedStore(store, redisClient, redisClient.GetKeyBuilder())
	}

	redirectService := service.NewRedirectService(store, cfg.App.FormBaseURL)
	adminService := service.NewAdminService(store)

	redirectHandler := handler.NewRedirectHandler(redirectService)
	adminHandler := handler.NewAdminHandler(adminService)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.GetAllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Rate limiting с Redis (если доступен)
	if redisClient != nil {
		router.Use(RedisRateLimitMiddleware(redisClient, 300, time.Minute))
	} else {
		router.Use(InMemoryRateLimitMiddleware(300, time.Minute))
	}

	// Стартовая страница
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Weiterleitungsservice aktiv")
	})

	// Health checks
	router.GET("/health", func(c *gin.Context) {
		response := gin.H{
			"status": "healthy",
			"services": gin.H{
				"storage": "checking",
				"cache":   "checking",
			},
		}

		if err := store.HealthCheck(c.Request.Context()); err != nil {
			response["services"].(gin.H)["storage"] = "unhealthy"
			response["status"] = "degraded"
		} else {
			response["services"].(gin.H)["storage"] = "healthy"
		}

		if redisClient != nil {
			if err := redisClient.HealthCheck(c.Request.Context()); err != nil {
				response["services"].(gin.H)["cache"] = "unhealthy"
				response["status"] = "degraded"
			} else {
				response["services"].(gin.H)["cache"] = "healthy"
			}
		} else {
			response["services"].(gin.H)["cache"] = "disabled"
		}

		statusCode := http.StatusOK
		if response["status"] == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	})

	router.GET("/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":        "Empfehlungslink Redirect Service",
			"version":        "1.0.0",
			"storage_driver": cfg.Database.Driver,
			"cache_enabled":  redisClient != nil,
		})
	})

	// Админский CRUD, закрытый общим секретом
	admin := router.Group("/admin", handler.AdminAuthMiddleware(cfg.App.AdminToken))
	{
		admin.GET("/customer", adminHandler.ListCustomers)
		admin.POST("/customer", adminHandler.CreateCustomer)
		admin.GET("/customer/:id", adminHandler.GetCustomer)
		admin.PUT("/customer/:id", adminHandler.UpdateCustomer)
		admin.DELETE("/customer/:id", adminHandler.DeleteCustomer)

		admin.POST("/redirect", adminHandler.CreateRedirect)
		admin.GET("/redirect/:customerId/:code", adminHandler.GetRedirect)
		admin.DELETE("/redirect/:customerId/:code", adminHandler.DeleteRedirect)

		admin.GET("/stats", adminHandler.Stats)
	}

	// Публичный редирект: делим URL-пространство с реферальными ссылками
	router.GET("/:kundenname/:code", redirectHandler.Redirect)

	// HTTP Server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Запускаем сервер
	go func() {
		log.Printf("🚀 Server starting on %s", cfg.GetServerAddress())
		log.Printf("🔗 Redirect endpoint: GET /{kundenname}/{code}")
		log.Printf("🔐 Admin endpoints: /admin/customer, /admin/redirect (token protected)")
		if redisClient != nil {
			log.Printf("⚡ Cache enabled (Redis)")
		}

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("✅ Server gracefully stopped")
}

// buildStore выбирает бэкенд хранилища по конфигу
func buildStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := database.Connect(
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.DBName)
		if err != nil {
			return nil, err
		}

		gdb, err := database.OpenGorm(db)
		if err != nil {
			db.Close()
			return nil, err
		}

		return repository.NewGormStore(gdb)

	case "sqlite":
		db, err := database.ConnectSQLite(cfg.Database.SQLite)
		if err != nil {
			return nil, err
		}

		return repository.NewSQLiteStore(db)

	case "memory":
		return repository.NewMemoryStore(), nil

	default:
		// file - исторический вариант с redirects.json
		return repository.NewFileStore(cfg.Database.File)
	}
}

// RedisRateLimitMiddleware - rate limiter с использованием Redis
func RedisRateLimitMiddleware(redis *cache.RedisClient, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		clientIP := c.ClientIP()
		key := redis.GetKeyBuilder().RateLimit(clientIP)

		count, err := redis.IncrementRateLimit(ctx, key, window)
		if err != nil {
			log.Printf("Rate limit error: %v", err)
			// При ошибке Redis пропускаем запрос
			c.Next()
			return
		}

		if count > int64(maxRequests) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// InMemoryRateLimitMiddleware - fallback rate limiter без Redis
func InMemoryRateLimitMiddleware(maxRequests int, window time.Duration) gin.HandlerFunc {
	var mu sync.Mutex
	requests := make(map[string][]time.Time)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		now := time.Now()

		mu.Lock()

		// Очищаем старые записи
		if times, exists := requests[clientIP]; exists {
			validTimes := []time.Time{}
			for _, t := range times {
				if now.Sub(t) < window {
					validTimes = append(validTimes, t)
				}
			}
			requests[clientIP] = validTimes
		}

		if len(requests[clientIP]) >= maxRequests {
			mu.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please try again later.",
			})
			c.Abort()
			return
		}

		requests[clientIP] = append(requests[clientIP], now)
		mu.Unlock()

		c.Next()
	}
}
