package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"convstore/controller"
	"convstore/metrics"
	"convstore/platform"
	"convstore/service"

	_uuid "github.com/google/uuid"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CORSMiddleware ...
// CORS (Cross-Origin Resource Sharing)
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "http://localhost")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Origin, Accept, Accept-Encoding")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length, X-Request-Id")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
		} else {
			c.Next()
		}
	}
}

// RequestIDMiddleware ...
// Generate a unique ID and attach it to each request for future reference or use
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uuid := _uuid.New()
		c.Writer.Header().Set("X-Request-Id", uuid.String())
		c.Set("requestId", uuid.String())
		c.Next()
	}
}

func LogMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		if raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, c.FullPath(), strconv.Itoa(status)).Inc()

		logger.Infof(
			" [%s] %d | %v | %s | %s | %s | %s ",
			c.GetString("requestId"),
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
			c.Request.UserAgent(),
		)
	}
}

func main() {
	fmt.Println("Server started...")

	cfg, err := platform.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := platform.InitAppLogger(cfg.LogPath, "convstore", cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
	}
	logger := platform.Logger
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %s", err)
	}

	gw, err := platform.InitDB(cfg)
	if err != nil {
		logger.Fatalf("failed to init database gateway: %s", err)
	}
	startupCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if _, err := service.EnsureSchema(startupCtx, gw); err != nil {
		logger.Warnf("schema not ensured at startup, call /v1/init later: %s", err)
	}
	cancel()

	conversations := service.NewConversationService(gw)
	var chat *controller.ChatController
	if cfg.LLMAPIKey != "" {
		chat = controller.NewChatController(service.NewChatService(conversations, platform.InitLLMClient(cfg)), cfg.DefaultMaxRound)
	}

	r := gin.Default()
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LogMiddleware(logger))

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	controller.RegisterRoutes(r, controller.NewConversationController(conversations, gw, cfg.DefaultMaxRound), chat)

	c := cron.New()
	if _, err := c.AddFunc(cfg.HealthCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = service.HealthTask(ctx, gw)
	}); err != nil {
		logger.Warnf("invalid HEALTH_CRON %q: %s", cfg.HealthCron, err)
	}
	c.Start()
	defer c.Stop()

	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatalf("server stopped: %s", err)
	}
}
