package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/seedstore_backend/config"
	"github.com/mmdatafocus/seedstore_backend/middlewares"
	"github.com/mmdatafocus/seedstore_backend/models"
	"github.com/mmdatafocus/seedstore_backend/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// RateLimiter counts requests per client IP in redis.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func getRedisClient(redisAddress string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
}

func registerRoutes(r *gin.Engine) {
	r.POST("/auth/token", tokenHandler())
	r.POST("/internal/bootstrap-admin", bootstrapAdminHandler())

	r.POST("/users", createUserHandler())
	r.GET("/users", listUsersHandler())
	r.GET("/users/:id", getUserHandler())
	r.PUT("/users/:id", updateUserHandler())
	r.POST("/users/:id/toggle-active", toggleUserHandler())
	r.POST("/warehouses", createWarehouseHandler())
	r.GET("/warehouses", listWarehousesHandler())
	r.GET("/warehouses/:id", getWarehouseHandler())
	r.PUT("/warehouses/:id", updateWarehouseHandler())
	r.POST("/warehouses/:id/toggle-active", toggleWarehouseHandler())
	r.POST("/seed-classes", createSeedClassHandler())
	r.GET("/seed-classes", listSeedClassesHandler())
	r.PUT("/seed-classes/:id", updateSeedClassHandler())
	r.POST("/seed-products", createSeedProductHandler())
	r.GET("/seed-products", listSeedProductsHandler())
	r.GET("/seed-products/:id", getSeedProductHandler())
	r.PUT("/seed-products/:id", updateSeedProductHandler())
	r.POST("/seed-products/:id/toggle-active", toggleSeedProductHandler())

	r.GET("/lots", listLotsHandler())
	r.GET("/lots/:id", getLotHandler())
	r.GET("/lots/:id/movements", lotMovementsHandler())
	r.GET("/lots/:id/trace", lotTraceHandler())

	r.POST("/srv", createSRVHandler())
	r.GET("/srv", listSRVsHandler())
	r.GET("/srv/:id", getSRVHandler())
	r.PUT("/srv/:id", updateSRVHandler())
	r.POST("/srv/:id/submit", submitSRVHandler())
	r.POST("/srv/:id/approve", approveSRVHandler())
	r.POST("/srv/:id/reject", rejectSRVHandler())
	r.POST("/srv/:id/cancel", cancelSRVHandler())

	r.POST("/siv", createSIVHandler())
	r.GET("/siv", listSIVsHandler())
	r.GET("/siv/:id", getSIVHandler())
	r.PUT("/siv/:id", updateSIVHandler())
	r.POST("/siv/:id/submit", submitSIVHandler())
	r.POST("/siv/:id/approve", approveSIVHandler())
	r.POST("/siv/:id/reject", rejectSIVHandler())
	r.POST("/siv/:id/cancel", cancelSIVHandler())

	r.POST("/cleaning", createCleaningHandler())
	r.GET("/cleaning", listCleaningHandler())
	r.GET("/cleaning/:id", getCleaningHandler())
	r.POST("/cleaning/:id/start", startCleaningHandler())
	r.POST("/cleaning/:id/outputs", addCleaningOutputHandler())
	r.DELETE("/cleaning/:id/outputs/:outputId", removeCleaningOutputHandler())
	r.POST("/cleaning/:id/complete", completeCleaningHandler())
	r.POST("/cleaning/:id/cancel", cancelCleaningHandler())

	r.GET("/reports/stock-summary", stockSummaryHandler())
	r.GET("/reports/srv-summary", srvSummaryHandler())
	r.GET("/reports/siv-summary", sivSummaryHandler())
	r.GET("/reports/cleaning-summary", cleaningSummaryHandler())
	r.GET("/reports/dashboard", dashboardHandler())
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy. Until DB/Redis are ready, app endpoints return 503.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS
	// (comma-separated). In non-production, allow all.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = utils.SplitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "X-Correlation-Id", "X-Bootstrap-Token")
	corsConfig.AddExposeHeaders("Content-Length", "X-Correlation-Id")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Optional rate limiting.
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.SessionMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())
	registerRoutes(r)
	r.NoRoute(customNotFoundHandler)

	// Listen immediately; startup probes are TCP based.
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	// AutoMigrate can run DDL that blocks tables; allow disabling it on
	// startup and running migrations as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Balance re-validation happens under row locks, so READ COMMITTED is
	// enough and avoids gap-lock deadlocks on the movement ledger inserts.
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on port ", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	_ = config.CloseRedis()
}

// customErrorLogger logs only requests that recorded gin errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}
