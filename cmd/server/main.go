package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/swapnilj01/collab-ai-editor/internal/api"
	"github.com/swapnilj01/collab-ai-editor/internal/metrics"
	"github.com/swapnilj01/collab-ai-editor/internal/routers"
	"github.com/swapnilj01/collab-ai-editor/internal/session"
	"github.com/swapnilj01/collab-ai-editor/internal/store"
	"github.com/swapnilj01/collab-ai-editor/internal/suggest"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	redisAddr := envOr("REDIS_ADDR", "localhost:6379")
	mongoURI := envOr("MONGO_URI", "mongodb://localhost:27017")
	mongoDB := envOr("MONGO_DB", "genai_db")
	jwtSecret := []byte(envOr("JWT_SECRET", "secret"))
	port := envOr("PORT", "8080")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := store.NewMongo(ctx, mongoURI, mongoDB)
	cancel()
	if err != nil {
		logger.Fatal("mongo connection failed", zap.Error(err))
	}

	cache := store.NewCache(redisAddr)
	hub := session.NewHub(cache, db, logger)

	var reviewer api.Reviewer
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		reviewer, err = suggest.NewClient(context.Background(), apiKey)
		if err != nil {
			logger.Warn("gemini client unavailable, /suggest disabled", zap.Error(err))
			reviewer = nil
		}
	} else {
		logger.Warn("GEMINI_API_KEY not set, /suggest disabled")
	}

	handlers := api.NewHandlers(logger, hub, cache, db, reviewer, jwtSecret)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		metrics.Middleware,
	)
	r.Mount("/", routers.New(handlers))

	srv := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		logger.Info("collab editor listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	_ = cache.Close()
	_ = db.Close(shutdownCtx)
}
