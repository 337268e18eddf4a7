package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookreview/pkg/logger"
	"bookreview/pkg/metrics"
)

// SetupRoutes настраивает все маршруты приложения с использованием Gin
// Чтение книг и отзывов публично, все мутации требуют JWT токен
func SetupRoutes(
	authHandler *AuthHandler,
	bookHandler *BookHandler,
	reviewHandler *ReviewHandler,
	authMiddleware *AuthMiddleware,
) *gin.Engine {
	router := gin.New()

	// Recovery middleware для обработки panic
	router.Use(gin.Recovery())

	// JSON logging middleware для HTTP-запросов (ELK Stack)
	router.Use(logger.GinLoggerMiddleware())

	// Prometheus metrics middleware
	router.Use(metrics.GinPrometheusMiddleware("bookreview"))

	// CORS настройки
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposeHeaders:    []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "bookreview",
		})
	})

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	// Аутентификация
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		protected := auth.Group("")
		protected.Use(authMiddleware.Authenticate())
		{
			protected.GET("/me", authHandler.GetMe)
			protected.POST("/logout", authHandler.Logout)
		}
	}

	// Книги: чтение публично, мутации только для владельца записи
	books := api.Group("/books")
	{
		books.GET("", bookHandler.ListBooks)
		books.GET("/search", bookHandler.SearchBooks)
		books.GET("/:book_id", bookHandler.GetBook)
		books.GET("/:book_id/reviews", reviewHandler.GetBookReviews)

		protected := books.Group("")
		protected.Use(authMiddleware.Authenticate())
		{
			protected.POST("", bookHandler.CreateBook)
			protected.PUT("/:book_id", bookHandler.UpdateBook)
			protected.DELETE("/:book_id", bookHandler.DeleteBook)
			protected.POST("/:book_id/reviews", reviewHandler.CreateReview)
		}
	}

	// Отзывы
	reviews := api.Group("/reviews")
	{
		reviews.GET("/:review_id", reviewHandler.GetReview)

		protected := reviews.Group("")
		protected.Use(authMiddleware.Authenticate())
		{
			protected.GET("/my", reviewHandler.GetMyReviews)
			protected.PUT("/:review_id", reviewHandler.UpdateReview)
			protected.DELETE("/:review_id", reviewHandler.DeleteReview)
		}
	}

	return router
}
