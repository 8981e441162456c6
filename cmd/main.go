package main

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openlobby/room-directory/internal/cache"
	"github.com/openlobby/room-directory/internal/config"
	"github.com/openlobby/room-directory/internal/domain"
	"github.com/openlobby/room-directory/internal/handler"
	"github.com/openlobby/room-directory/internal/repository"
	"github.com/openlobby/room-directory/internal/service"
	"github.com/openlobby/room-directory/pkg/database"
	"github.com/openlobby/room-directory/pkg/jwt"
	pkglog "github.com/openlobby/room-directory/pkg/log"
	"github.com/openlobby/room-directory/pkg/middleware"
	"github.com/openlobby/room-directory/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: "room-directory",
	})
	logger := pkglog.L()

	// Connect to database using GORM
	dbConfig := &database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	db, err := database.New(dbConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Auto-migrate
	if err := database.AutoMigrate(db, &domain.RoomModel{}, &domain.UserModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// Initialize repository
	roomRepo := repository.NewGormRoomRepository(db)

	// Initialize cache client
	var cacheClient cache.Client
	switch cfg.Cache.Driver {
	case "memory":
		cacheClient = cache.NewMemoryClient()
	default:
		cacheClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
	}
	defer cacheClient.Close()
	logger.Info().Str("driver", cfg.Cache.Driver).Msg("cache connected")

	// Initialize event publisher for the lobby channel
	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to event bus")
	}
	defer bus.Close()

	// Initialize directory service
	directory := service.NewDirectoryService(
		roomRepo,
		cacheClient,
		time.Duration(cfg.Cache.DetailTTL)*time.Second,
		time.Duration(cfg.Cache.PageTTL)*time.Second,
		bus,
	)

	// Initialize auth middleware
	jwtManager := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 15*time.Minute)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	// Initialize HTTP handler
	httpHandler := handler.NewHandler(directory, authMiddleware)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Register routes
	httpHandler.RegisterRoutes(r)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info().Str("addr", addr).Str("driver", cfg.Database.Driver).Msg("room-directory starting")
	if err := r.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
