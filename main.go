package main

import (
	"log"

	"github.com/atypikhouse/booking-service/config"
	"github.com/atypikhouse/booking-service/internal/consumer"
	"github.com/atypikhouse/booking-service/internal/handler"
	"github.com/atypikhouse/booking-service/internal/middleware"
	"github.com/atypikhouse/booking-service/internal/repository"
	"github.com/atypikhouse/booking-service/internal/service"
	"github.com/atypikhouse/booking-service/pkg/database"
	"github.com/atypikhouse/booking-service/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	// RabbitMQ consumer: sync the property catalog into the local read model
	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	propertyConsumer := consumer.NewPropertyConsumer(db)
	propertyConsumer.Start(msgs)

	// RabbitMQ publisher: announce booking lifecycle events downstream
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to create RabbitMQ publisher: %v", err)
	}
	defer publisher.Close()

	// Repositories
	propertyRepo := repository.NewPropertyRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	// Service
	bookingSvc := service.NewBookingService(bookingRepo, propertyRepo, publisher)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = handler.NewValidator()
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "booking-service"})
	})

	handler.NewPropertyHandler(bookingSvc, propertyRepo).RegisterRoutes(e)
	handler.NewBookingHandler(bookingSvc).RegisterRoutes(e)

	log.Printf("Booking Service starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
