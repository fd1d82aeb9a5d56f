// File: bookify/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"bookify/config"
	"bookify/handlers"
	"bookify/middleware"
	"bookify/routes"
	"bookify/services/availability"
	"bookify/services/booking"
	"bookify/services/calendar"
	"bookify/services/conversation"
	"bookify/services/intent"
	"bookify/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	cfg := config.AppConfig
	loc := cfg.Location()

	ctx := context.Background()

	// Conversation context store.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Sugar().Fatalf("main: failed to connect to redis at %s: %v", cfg.RedisAddr, err)
	}
	convStore := conversation.NewRedisStore(redisClient,
		time.Duration(cfg.ConversationTTLMins)*time.Minute)

	// Outbound clients.
	geminiClient, err := intent.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize gemini client: %v", err)
	}
	calendarSvc, err := calendar.NewGoogleCalendarService(ctx, cfg.GoogleCredentialsPath, cfg.GoogleCalendarID, loc)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize calendar client: %v", err)
	}

	// Services.
	extractor := &intent.Extractor{
		LLM:                 geminiClient,
		Location:            loc,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		DefaultDuration:     cfg.DefaultDurationMinutes,
		HistoryWindow:       cfg.HistoryWindow,
	}
	availabilityResolver := &availability.Resolver{
		Calendar:           calendarSvc,
		Location:           loc,
		WorkStart:          cfg.WorkStart,
		WorkEnd:            cfg.WorkEnd,
		GranularityMinutes: cfg.SlotGranularityMinutes,
		LookaheadDays:      cfg.LookaheadDays,
	}
	bookingService := &booking.DefaultBookingService{
		Extractor:     extractor,
		Availability:  availabilityResolver,
		Calendar:      calendarSvc,
		Conversations: convStore,
		Idempotency:   booking.NewIdempotencyCache(cfg.IdempotencyCacheSz),
		Policy: booking.Policy{
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			MaxCandidates:       cfg.MaxCandidateSlots,
			AllowFallback:       cfg.AllowFallbackSlots,
			Location:            loc,
		},
		CallTimeout: cfg.CallTimeout(),
		MaxRetries:  2,
		BackoffBase: 500 * time.Millisecond,
	}

	// Create the Gin router.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		Booking:                bookingService,
		Availability:           availabilityResolver,
		Calendar:               calendarSvc,
		DefaultDurationMinutes: cfg.DefaultDurationMinutes,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}
	if err := redisClient.Close(); err != nil {
		logger.Sugar().Warnf("main: failed to close redis client: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
