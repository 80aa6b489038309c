package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/slavkostrov/playlist-selection/internal/auth"
	"github.com/slavkostrov/playlist-selection/internal/client"
	"github.com/slavkostrov/playlist-selection/internal/config"
	"github.com/slavkostrov/playlist-selection/internal/handler"
	"github.com/slavkostrov/playlist-selection/internal/middleware"
	"github.com/slavkostrov/playlist-selection/internal/recommender"
	"github.com/slavkostrov/playlist-selection/internal/resolver"
	"github.com/slavkostrov/playlist-selection/internal/service"
	ws "github.com/slavkostrov/playlist-selection/internal/websocket"
	"github.com/slavkostrov/playlist-selection/internal/worker"
)

// @title          Playlist Selection API
// @version        1.0
// @description    Asynchronous song recommendation service over a music catalog.
// @host           localhost:8000
// @BasePath       /
// @schemes        http https
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
// @description    Enter your bearer token in the format **Bearer &lt;token&gt;**
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize catalog client
	creds := client.NewCredentials(&cfg.Spotify)
	spotifyClient := client.NewSpotifyClient(&cfg.Spotify, creds)
	if !spotifyClient.IsConfigured() {
		log.Println("Warning: catalog credentials not configured, seed resolution will fail")
	}
	seedResolver := resolver.New(spotifyClient)

	// Initialize S3 client (optional - continues if not configured)
	var s3Client *client.S3Client
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		var err error
		s3Client, err = client.NewS3Client(&cfg.S3)
		if err != nil {
			log.Printf("Warning: S3 client not initialized: %v", err)
		}
	} else {
		log.Println("Info: S3 storage not configured, no trained model available")
	}

	// Load the published recommender, falling back to seed passthrough
	// when no artifact is available.
	rec := loadRecommender(ctx, cfg, s3Client)

	// Initialize Zitadel JWKS verifier (optional - falls back to legacy JWT)
	var jwksVerifier *auth.JWKSVerifier
	if cfg.Zitadel.Issuer != "" {
		var err error
		jwksVerifier, err = auth.NewJWKSVerifier(&cfg.Zitadel)
		if err != nil {
			log.Printf("Warning: JWKS verifier not initialized: %v", err)
		} else {
			defer jwksVerifier.Close()
		}
	}

	// Initialize services
	jobStore := service.NewRedisJobStore(redisClient)
	predictService := service.NewPredictService(jobStore, asynqClient)

	// Initialize handlers
	predictHandler := handler.NewPredictHandler(predictService, validate)

	// Initialize auth handler for ForwardAuth verification
	var tokenVerifier auth.TokenVerifier
	if jwksVerifier != nil {
		tokenVerifier = jwksVerifier
	}
	authHandler := handler.NewAuthHandler(tokenVerifier, cfg.JWT.Secret)

	// Initialize middleware (with fallback support)
	var apiAuthMiddleware fiber.Handler
	if cfg.Gateway.Enabled {
		// Behind Traefik: auth is handled by ForwardAuth, read X-User-* headers
		log.Println("Info: Gateway mode enabled — using header-based auth")
		apiAuthMiddleware = middleware.GatewayAuthMiddleware()
	} else {
		// Direct mode: auth is handled by the backend itself
		var authMiddleware *middleware.AuthMiddleware
		if jwksVerifier != nil && cfg.JWT.Secret != "" {
			authMiddleware = middleware.NewAuthMiddlewareWithFallback(jwksVerifier, cfg.JWT.Secret)
		} else if jwksVerifier != nil {
			authMiddleware = middleware.NewAuthMiddleware(jwksVerifier)
		} else {
			authMiddleware = middleware.NewLegacyAuthMiddleware(cfg.JWT.Secret)
		}
		apiAuthMiddleware = authMiddleware.Authenticate()
	}
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"catalog": spotifyClient.IsConfigured(),
				"s3":      s3Client != nil,
				"auth":    jwksVerifier != nil || cfg.JWT.Secret != "",
			},
		})
	})

	// ForwardAuth verification endpoint (internal, called by Traefik)
	app.Get("/auth/verify", authHandler.Verify)

	// API routes
	api := app.Group("/api", apiAuthMiddleware)

	// Predict routes
	predict := api.Group("/predict")
	predict.Post("/submit", rateLimiter.PredictLimit(cfg.RateLimit.PredictPerHour), predictHandler.Submit)
	predict.Get("/status/:jobId", predictHandler.Status)
	predict.Get("/result/:jobId", predictHandler.Result)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, jobStore, seedResolver, rec, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// loadRecommender restores the published index from the blob store. Any
// unavailable artifact degrades to echoing seed tracks so jobs still
// complete.
func loadRecommender(ctx context.Context, cfg *config.Config, s3Client *client.S3Client) recommender.Recommender {
	if _, err := recommender.NewFromClass(cfg.Model.Class, cfg.Model.Neighbors, cfg.Model.Components); err != nil {
		log.Printf("Warning: %v, using seed passthrough", err)
		return recommender.Passthrough{}
	}
	if s3Client == nil {
		return recommender.Passthrough{}
	}

	rec, err := recommender.NewStore(s3Client).Load(ctx, cfg.Model.Name)
	if err != nil {
		log.Printf("Warning: model %s not loaded: %v, using seed passthrough", cfg.Model.Name, err)
		return recommender.Passthrough{}
	}
	log.Printf("Loaded model %s", cfg.Model.Name)
	return rec
}

func startWorkerServer(
	cfg *config.Config,
	jobStore service.JobStore,
	seedResolver *resolver.Resolver,
	rec recommender.Recommender,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"predict": 10,
			},
			RetryDelayFunc: worker.RetryDelay,
			LogLevel:       asynqLogLevel,
		},
	)

	predictWorker := worker.NewPredictWorker(jobStore, seedResolver, rec, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypePredict, predictWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
