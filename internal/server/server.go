package server

import (
	"context"
	"fmt"
	"os"

	"github.com/Emmanard/eventwave/config"
	"github.com/Emmanard/eventwave/internal/handlers"
	"github.com/Emmanard/eventwave/internal/middleware"
	"github.com/Emmanard/eventwave/internal/paystack"
	"github.com/Emmanard/eventwave/internal/repository"
	"github.com/Emmanard/eventwave/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	paystackCfg, err := config.LoadPaystackConfig()
	if err != nil {
		return fmt.Errorf("failed to load paystack config: %v", err)
	}

	eventRepo := repository.NewGormEventRepository(db)
	paymentRepo := repository.NewGormPaymentRepository(db)
	gateway := paystack.NewClient(paystackCfg)

	bookings := services.NewBookingService(eventRepo, paymentRepo, gateway, paystackCfg.SecretKey)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := services.NewStatusSweeper(eventRepo, config.SweeperInterval())
	go sweeper.Run(ctx)

	r := gin.Default()

	setupRoutes(r, db, bookings)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return r.Run(":" + port)
}

func setupRoutes(r *gin.Engine, db *gorm.DB, bookings *services.BookingService) {
	r.Use(middleware.DatabaseMiddleware(db))

	payments := handlers.NewPaymentHandler(bookings)

	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)

		eventPublic := public.Group("/events")
		{
			eventPublic.GET("", handlers.ListEvents)
			eventPublic.GET("/:id", handlers.GetEvent)
		}

		public.POST("/payments/webhook", payments.Webhook)
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		eventProtected := protected.Group("/events")
		{
			eventProtected.POST("", handlers.CreateEvent)
			eventProtected.PUT("/:id", handlers.UpdateEvent)
			eventProtected.DELETE("/:id", handlers.DeleteEvent)
			eventProtected.PATCH("/:id/publish", handlers.PublishEvent)
			eventProtected.PATCH("/:id/unpublish", handlers.UnpublishEvent)
			eventProtected.PATCH("/:id/close", handlers.CloseEvent)
		}

		paymentProtected := protected.Group("/payments")
		{
			paymentProtected.POST("/initialize/:eventId", payments.Initialize)
			paymentProtected.GET("/verify/:reference", payments.Verify)
			paymentProtected.GET("/status/:reference", payments.Status)
			paymentProtected.GET("/history", payments.History)
		}

		bookingProtected := protected.Group("/bookings")
		{
			bookingProtected.GET("/:eventId/qr/:seatNumber", handlers.GenerateBookingQR)
			bookingProtected.POST("/validate", handlers.ValidateBooking)
		}

		protected.GET("/profile", handlers.GetProfile)
	}
}
