package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"discord-giveaway-bot/internal/common/config"
	"discord-giveaway-bot/internal/common/logger"
	"discord-giveaway-bot/internal/common/middleware"
	discorddelivery "discord-giveaway-bot/internal/features/giveaway/delivery/discord"
	httpdelivery "discord-giveaway-bot/internal/features/giveaway/delivery/http"
	"discord-giveaway-bot/internal/features/giveaway/repository"
	"discord-giveaway-bot/internal/features/giveaway/repository/memory"
	"discord-giveaway-bot/internal/features/giveaway/repository/sqlite"
	giveawayservice "discord-giveaway-bot/internal/features/giveaway/service"
	"discord-giveaway-bot/internal/platform/db"
	discordplatform "discord-giveaway-bot/internal/platform/discord"
	"discord-giveaway-bot/internal/platform/redis"
)

const serviceName = "discord-giveaway-bot"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(serviceName, cfg.Debug, cfg.LogFormat)
	logger.Info().Bool("debug", cfg.Debug).Str("admin_policy", cfg.Giveaway.AdminPolicy).Msg("Starting Discord giveaway bot")

	startCtx, startCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer startCancel()

	var (
		history   repository.HistoryRepository
		historyDB *sql.DB
	)
	if cfg.History.Path != "" {
		historyDB, err = db.Open(startCtx, cfg.History.Path)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.History.Path).Msg("Failed to open history database")
		}
		defer historyDB.Close()
		history = sqlite.NewHistoryRepository(historyDB)
		logger.Info().Str("path", cfg.History.Path).Msg("History database ready")
	}

	var (
		events      giveawayservice.EventPublisher
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.Open(startCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		events = redis.NewEventPublisher(redisClient, cfg.Redis.Stream)
		logger.Info().Str("stream", cfg.Redis.Stream).Msg("Event stream ready")
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error creating Discord session")
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildMembers

	platform := discordplatform.NewClient(session, logger.Component("discord"))
	provisioner := giveawayservice.NewProvisioner(platform, giveawayservice.ProvisionerOptions{
		AdminPolicy: cfg.Giveaway.AdminPolicy,
		AdminRoleID: cfg.Giveaway.AdminRoleID,
		CategoryID:  cfg.Giveaway.CategoryID,
		Retries:     cfg.Giveaway.Retries,
		RetryDelay:  cfg.Giveaway.RetryDelay,
	}, logger.Component("giveaway"))

	giveawaySvc := giveawayservice.NewGiveawayService(
		memory.NewRepository(),
		history,
		platform,
		provisioner,
		events,
		giveawayservice.OptionsFromConfig(cfg),
		logger.Component("giveaway"),
	)

	go func() {
		for err := range giveawaySvc.Errors() {
			logger.Warn().Err(err).Msg("Giveaway reported an error")
		}
	}()

	handler := discorddelivery.NewHandler(giveawaySvc, platform, discorddelivery.Options{
		EntryEmoji: cfg.Giveaway.EntryEmoji,
		GuildID:    cfg.Discord.GuildID,
	}, logger.Component("discord"))
	handler.Register(session)

	if err := session.Open(); err != nil {
		logger.Fatal().Err(err).Msg("Error opening Discord connection")
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	httpLogger := logger.Component("http")
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(httpLogger, "/health", "/live", "/ready"))
	router.Use(middleware.ErrorHandler(httpLogger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	setupRoutes(router, cfg, giveawaySvc, session, historyDB, redisClient)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	// Pending giveaways are dropped; running conclusions finish first.
	giveawaySvc.Shutdown()
	if err := session.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing Discord session")
	}

	logger.Info().Msg("Bot exited")
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	giveawaySvc giveawayservice.GiveawayService,
	session *discordgo.Session,
	historyDB *sql.DB,
	redisClient *redis.Client,
) {
	v1 := router.Group("/api/v1", middleware.RequireAdminToken(cfg.Server.AdminToken, logger.Component("http")))
	httpdelivery.NewGiveawayHandler(giveawaySvc, logger.Component("http")).RegisterRoutes(v1)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})

	// Liveness probe
	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Readiness probe
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		unready := func(what string, err error) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   what + " unavailable",
				"details": err.Error(),
			})
		}

		if !session.DataReady {
			unready("discord", fmt.Errorf("gateway not ready"))
			return
		}
		if historyDB != nil {
			if err := historyDB.PingContext(ctx); err != nil {
				unready("sqlite", err)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Ready(ctx); err != nil {
				unready("redis", err)
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})
}
