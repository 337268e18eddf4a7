package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bookreview/internal/app/bookreview/config"
	"bookreview/internal/app/bookreview/entity"
	"bookreview/internal/app/bookreview/handler"
	"bookreview/internal/app/bookreview/processor"
	"bookreview/internal/app/bookreview/repository"
	"bookreview/internal/app/bookreview/service"
	"bookreview/internal/app/bookreview/util"
	"bookreview/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init("bookreview", cfg.Log.Level)

	if cfg.Log.LogstashAddr != "" {
		if err := logger.InitLogstash(cfg.Log.LogstashAddr, "bookreview", cfg.Log.Level); err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Logstash, using stdout only")
		} else {
			logger.Info().Str("logstash_addr", cfg.Log.LogstashAddr).Msg("Connected to Logstash")
		}
	}

	db, err := connectDB(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	logger.Info().
		Str("host", cfg.Database.Host).
		Str("database", cfg.Database.DBName).
		Msg("Connected to PostgreSQL")

	if err := db.AutoMigrate(&entity.User{}, &entity.Book{}, &entity.Review{}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	redisClient, err := util.NewRedisClient(
		cfg.Redis.Address(),
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Str("address", cfg.Redis.Address()).Msg("Connected to Redis")

	kafkaProducer := util.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer kafkaProducer.Close()
	logger.Info().Str("topic", cfg.Kafka.Topic).Msg("Initialized Kafka producer")

	userRepo := repository.NewUserRepository(db)
	bookRepo := repository.NewBookRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	aggregateRepo := repository.NewAggregateRepository(db)
	tokenRepo := repository.NewRedisTokenRepository(redisClient.Client())

	jwtManager := util.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenDuration,
		cfg.JWT.RefreshTokenDuration,
	)

	aggregator := service.NewRatingAggregator(aggregateRepo, bookRepo, redisClient)
	authService := service.NewAuthService(userRepo, tokenRepo, jwtManager)
	bookService := service.NewBookService(bookRepo, reviewRepo, redisClient)
	reviewService := service.NewReviewService(reviewRepo, bookRepo, aggregator, kafkaProducer)

	authMiddleware := handler.NewAuthMiddleware(jwtManager)
	authHandler := handler.NewAuthHandler(authService)
	bookHandler := handler.NewBookHandler(bookService)
	reviewHandler := handler.NewReviewHandler(reviewService)

	router := handler.SetupRoutes(authHandler, bookHandler, reviewHandler, authMiddleware)

	// Фоновая сверка агрегатов рейтинга
	scheduler := processor.NewCronScheduler(aggregator)
	if cfg.Reconcile.Enabled {
		if err := scheduler.Start(context.Background(), cfg.Reconcile.Schedule); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start reconciliation scheduler")
		}
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("Starting Bookreview Service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Bookreview Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Bookreview Service stopped gracefully")
}

// connectDB открывает соединение GORM с повторными попытками
// При запуске в Docker PostgreSQL может быть еще не готов
func connectDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	}

	var db *gorm.DB
	var err error

	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				err = sqlErr
			} else {
				pingErr := sqlDB.Ping()
				if pingErr != nil {
					err = pingErr
				} else {
					sqlDB.SetMaxOpenConns(25)
					sqlDB.SetMaxIdleConns(5)
					sqlDB.SetConnMaxLifetime(5 * time.Minute)
					sqlDB.SetConnMaxIdleTime(1 * time.Minute)
					return db, nil
				}
			}
		}
		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to database, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after 10 attempts: %w", err)
}
