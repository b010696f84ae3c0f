package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/adaze/marketplace-api/config"
	"github.com/adaze/marketplace-api/internal/controller"
	"github.com/adaze/marketplace-api/internal/domain"
	paymentgateway "github.com/adaze/marketplace-api/internal/infrastructure/payment-gateway"
	"github.com/adaze/marketplace-api/internal/infrastructure/tracing"
	localmiddleware "github.com/adaze/marketplace-api/internal/middleware"
	"github.com/adaze/marketplace-api/internal/realtime"
	"github.com/adaze/marketplace-api/internal/repository"
	"github.com/adaze/marketplace-api/internal/service"
	"github.com/adaze/marketplace-api/pkg/httpclient"
	"github.com/adaze/marketplace-api/pkg/response"
	"github.com/go-co-op/gocron/v2"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
)

const gatewayTimeout = 30 * time.Second

type App struct {
	DB       *sqlx.DB
	Mongo    *mongo.Database
	Config   *config.Config
	Producer realtime.MessageWriter
	Reader   realtime.MessageReader
	Mpesa    paymentgateway.Gateway
	Card     paymentgateway.Gateway
	Server   *echo.Echo

	traceProvider *trace.TracerProvider
	scheduler     gocron.Scheduler
	stopConsumer  context.CancelFunc
}

func (app *App) setupLogger() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger
}

func (app *App) gateways() {
	if app.Mpesa == nil {
		app.Mpesa = paymentgateway.CreateMpesaGateway(app.Config.MpesaConfig, httpclient.NewClient(gatewayTimeout))
	}

	if app.Card == nil {
		switch app.Config.CardGateway {
		case "midtrans":
			app.Card = paymentgateway.CreateMidtransCardGateway(app.Config)
		default:
			app.Card = paymentgateway.CreateMockCardGateway()
		}
	}
}

// Routes builds the HTTP server and background workers without starting to listen.
func (app *App) Routes() *echo.Echo {
	e := echo.New()

	tracer := otel.Tracer(tracing.ServiceName)
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// span creation and naming
			ctx, span := tracer.Start(c.Request().Context(), fmt.Sprintf("[%s] %s", c.Request().Method, c.Path()))
			defer span.End()

			// add the context to the request
			req := c.Request()
			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	})

	// Used empty string so that metrics are not prefixed with the service name making it easier to aggregate across services
	e.Use(echoprometheus.NewMiddleware(""))
	e.Use(localmiddleware.Logger)

	g := e.Group("/api/v1")

	isLoggedIn := localmiddleware.JWT(app.Config.JWTSecret)

	paymentRepo := repository.CreatePaymentRepository(app.DB)
	orderRepo := repository.CreateOrderRepository(app.DB)
	notificationRepo := repository.CreateNotificationRepository(app.DB)
	profileRepo := repository.CreateProfileRepository(app.DB)
	cartRepo := repository.CreateCartRepository(app.DB)
	productRepo := repository.CreateProductRepository(app.Mongo)

	guard := func(perm domain.Permission) echo.MiddlewareFunc {
		authorize := localmiddleware.Authorize(profileRepo, perm)
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return isLoggedIn(authorize(next))
		}
	}

	app.gateways()

	publisher := realtime.CreateKafkaPublisher(app.Producer)
	hub := realtime.CreateHub()

	consumerCtx, cancel := context.WithCancel(log.Logger.WithContext(context.Background()))
	app.stopConsumer = cancel
	go realtime.Consume(consumerCtx, app.Reader, hub)

	notificationSvc := service.CreateNotificationService(notificationRepo, profileRepo, app.Config)
	paymentSvc := service.CreatePaymentService(paymentRepo, orderRepo, app.Mpesa, app.Card, notificationSvc, publisher, app.Config)
	orderSvc := service.CreateOrderService(orderRepo, cartRepo, productRepo, profileRepo, notificationSvc, publisher)
	userSvc := service.CreateUserService(profileRepo, cartRepo, app.Config)
	cartSvc := service.CreateCartService(cartRepo, productRepo)
	productSvc := service.CreateProductService(productRepo)

	controller.CreatePaymentController(g, paymentSvc, guard)
	controller.CreateUserController(g, userSvc, guard)
	controller.CreateProductController(g, productSvc, guard)
	controller.CreateCartController(g, cartSvc, guard)
	controller.CreateOrderController(g, orderSvc, hub, guard)
	controller.CreateNotificationController(g, notificationSvc, guard)

	g.GET("/ping", func(c echo.Context) error {
		return response.WriteSuccessResponse(c, "Hello, World!", nil)
	})

	if err := app.scheduleSweep(paymentSvc); err != nil {
		log.Error().Err(err).Str("component", "Routes").Msg("pending payment sweep not scheduled")
	}

	app.Server = e
	return e
}

func (app *App) scheduleSweep(paymentSvc service.PaymentService) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = s.NewJob(
		gocron.DurationJob(
			app.Config.SweepConfig.Interval,
		),
		gocron.NewTask(
			func() {
				paymentSvc.SweepPendingPayments(log.Logger.WithContext(context.Background()))
			},
		),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	s.Start()
	app.scheduler = s

	return nil
}

func (app *App) Start() error {
	app.setupLogger()

	traceProvider, err := tracing.InitTracing(app.Config)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize tracing")
	}
	app.traceProvider = traceProvider

	e := app.Routes()

	go func() {
		metrics := echo.New()
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(fmt.Sprintf(":%s", app.Config.MetricsPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start metrics server")
		}
	}()

	err = e.Start(fmt.Sprintf(":%s", app.Config.ServicePort))
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (app *App) StopServer() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if app.scheduler != nil {
		if err := app.scheduler.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if app.stopConsumer != nil {
		app.stopConsumer()
	}

	if app.traceProvider != nil {
		if err := app.traceProvider.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown tracing")
		}
	}

	return app.Server.Shutdown(ctx)
}
