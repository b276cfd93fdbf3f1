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

	"github.com/gin-gonic/gin"

	"github.com/Krish-Depani/auth-session-client/config"
	"github.com/Krish-Depani/auth-session-client/controllers"
	"github.com/Krish-Depani/auth-session-client/database"
	"github.com/Krish-Depani/auth-session-client/logger"
	"github.com/Krish-Depani/auth-session-client/routes"
	"github.com/Krish-Depani/auth-session-client/utils"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		log.Fatal("Error loading .env:", err)
	}
	logr := logger.New(env.LogLevel, env.LogFormat)

	pgClient, err := database.NewPostgresClient(env.DBHost, env.DBUser, env.DBPassword, env.DBName, env.DBPort)
	if err != nil {
		log.Fatal("Error connecting to database:", err)
	}
	if err := database.Migrate(pgClient); err != nil {
		log.Fatal("Error migrating database:", err)
	}

	var cache database.TokenCache
	if env.RedisAddr != "" {
		redisClient, err := database.GetRedisClient(env.RedisAddr, env.RedisPass, env.RedisDB)
		if err != nil {
			log.Fatal("Error connecting to redis:", err)
		}
		defer redisClient.Close()
		cache = redisClient
	} else {
		logr.Warn("REDIS_ADDR not set, access tokens are cached in memory")
		cache = database.NewMemoryCache()
	}

	authController := controllers.NewAuthController(pgClient, cache, utils.NewLocator("", nil), controllers.AuthSettings{
		AccessTokenTTL:  env.AccessTokenTTL,
		RefreshTokenTTL: env.RefreshTokenTTL,
		CookieSecure:    env.CookieSecure,
		Logger:          logr.With("component", "auth"),
	})
	userController := controllers.NewUserController(pgClient, cache)

	r := gin.Default()
	routes.SetupRoutes(r, authController, userController)

	srv := &http.Server{
		Addr:              ":" + env.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Info("dev backend listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("shutdown failed", "error", err)
	}
}
