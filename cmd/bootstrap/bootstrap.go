package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"clinic-appointment-service/config"
	deliveryHttp "clinic-appointment-service/internal/delivery/http"
	"clinic-appointment-service/internal/delivery/http/handler"
	"clinic-appointment-service/internal/delivery/http/middleware"
	"clinic-appointment-service/internal/infrastructure/cache"
	"clinic-appointment-service/internal/infrastructure/database"
	"clinic-appointment-service/internal/infrastructure/messaging"
	"clinic-appointment-service/internal/infrastructure/storage"
	"clinic-appointment-service/internal/repository"
	"clinic-appointment-service/internal/service"
	"clinic-appointment-service/internal/usecase"
	"clinic-appointment-service/pkg/jwt"
	"clinic-appointment-service/pkg/validator"

	"github.com/minio/minio-go/v7"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	AMQPConn    *amqp.Connection
	Publisher   service.EventPublisher
	Reconciler  *service.SlotReconciler
	AuthUsecase usecase.AuthUsecase
	Server      *http.Server
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	log := setupLogger(cfg.App)
	log.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	logrus.Info("Database connected successfully")

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(cfg.DB, true); err != nil {
			return nil, err
		}
	}

	if err := repository.NewRoleRepository().EnsureDefaults(db); err != nil {
		return nil, fmt.Errorf("failed to seed roles: %w", err)
	}

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient

	// Initialize object storage
	minioClient, err := storage.NewMinioClient(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
	}

	// Initialize messaging
	app.AMQPConn, err = messaging.NewRabbitMQConnection(cfg.Messaging)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	if app.AMQPConn != nil {
		app.Publisher, err = service.NewRabbitMQPublisher(app.AMQPConn, cfg.Messaging.Exchange, log)
		if err != nil {
			return nil, fmt.Errorf("failed to set up event publisher: %w", err)
		}
		logrus.Info("RabbitMQ connected successfully")
	} else {
		logrus.Warn("RABBITMQ_URL not set, appointment events are only logged")
		app.Publisher = service.NewLogEventPublisher(log)
	}

	if cfg.Payment.StripeSecretKey == "" {
		logrus.Warn("STRIPE_SECRET_KEY not set, payment requests will fail")
	}

	// Initialize all layers
	app.initializeServer(cfg, db, redisClient, minioClient, log)

	return app, nil
}

// setupLogger configures the shared logrus logger. Development gets text output.
func setupLogger(cfg config.AppConfig) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetOutput(os.Stdout)
	if cfg.Env == "development" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log
}

// initializeServer wires repositories, services, usecases and handlers
func (app *App) initializeServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, minioClient *minio.Client, log *logrus.Logger) {
	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	userRepo := repository.NewUserRepository()
	doctorProfileRepo := repository.NewDoctorProfileRepository()
	patientProfileRepo := repository.NewPatientProfileRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	bookedSlotRepo := repository.NewBookedSlotRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	auditService := service.NewAuditService(log, auditLogRepo)
	tokenStore := service.NewRedisTokenStore(redisClient)
	slotLedger := service.NewSlotLedger(log, bookedSlotRepo, appointmentRepo)
	imageStorage := service.NewMinioImageStorage(minioClient, cfg.Storage, log)
	paymentGateway := service.NewStripeGateway(cfg.Payment, log)
	app.Reconciler = service.NewSlotReconciler(db, redisClient, log, bookedSlotRepo, cfg.Reconciler)

	// Initialize usecases
	authUsecase := usecase.NewAuthUsecase(db, log, userRepo, patientProfileRepo, jwtService, tokenStore, auditService)
	doctorProfileUsecase := usecase.NewDoctorProfileUsecase(db, log, userRepo, doctorProfileRepo, slotLedger, imageStorage, auditService)
	patientProfileUsecase := usecase.NewPatientProfileUsecase(db, log, userRepo, patientProfileRepo, imageStorage, auditService)
	lifecycleUsecase := usecase.NewAppointmentLifecycleUsecase(db, log, appointmentRepo, slotLedger, auditService, app.Publisher)
	bookingUsecase := usecase.NewAppointmentBookingUsecase(db, log, appointmentRepo, doctorProfileRepo, patientProfileRepo, slotLedger, auditService, app.Publisher)
	paymentUsecase := usecase.NewPaymentUsecase(db, log, appointmentRepo, lifecycleUsecase, paymentGateway, service.NewPDFReceiptRenderer(cfg.App.ClinicName), usecase.PaymentSettings{
		Currency:      cfg.Payment.Currency,
		SuccessURL:    cfg.App.FrontendURL + "/verify",
		CancelURL:     cfg.App.FrontendURL + "/my-appointments",
		ReturnOrigins: append([]string{cfg.App.FrontendURL}, cfg.App.AllowedOrigins...),
		Timeout:       cfg.Payment.Timeout,
	})
	dashboardUsecase := usecase.NewDashboardUsecase(db, log, userRepo, appointmentRepo)
	auditLogUsecase := usecase.NewAuditLogUsecase(db, log, auditLogRepo, appointmentRepo)
	app.AuthUsecase = authUsecase

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authUsecase, customValidator)
	doctorHandler := handler.NewDoctorHandler(doctorProfileUsecase, bookingUsecase, customValidator)
	patientHandler := handler.NewPatientHandler(patientProfileUsecase, customValidator)
	appointmentHandler := handler.NewAppointmentHandler(bookingUsecase, lifecycleUsecase, customValidator)
	paymentHandler := handler.NewPaymentHandler(paymentUsecase, customValidator, log)
	dashboardHandler := handler.NewDashboardHandler(dashboardUsecase)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase, customValidator)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, tokenStore)

	// Initialize router
	router := deliveryHttp.NewRouter(
		deliveryHttp.RouterConfig{
			AllowedOrigins:     cfg.App.AllowedOrigins,
			RateLimitPerMinute: cfg.App.RateLimitPerMinute,
			HealthChecks: map[string]deliveryHttp.HealthCheck{
				"database": func(ctx context.Context) error {
					sqlDB, err := db.DB()
					if err != nil {
						return err
					}
					return sqlDB.PingContext(ctx)
				},
				"redis": func(ctx context.Context) error {
					return cache.Ping(ctx, redisClient)
				},
			},
		},
		log,
		authHandler,
		doctorHandler,
		patientHandler,
		appointmentHandler,
		paymentHandler,
		dashboardHandler,
		auditLogHandler,
		authMiddleware,
	)

	// Create server
	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run seeds the admin account, starts the reconciler and serves HTTP until ctx
// is cancelled, then drains in-flight requests.
func (app *App) Run(ctx context.Context) error {
	seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := app.AuthUsecase.EnsureAdmin(seedCtx, app.Config.Admin); err != nil {
		logrus.Errorf("Failed to seed admin account: %v", err)
	}
	cancel()

	app.Reconciler.Start()
	defer app.Close()

	serveErr := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"port": app.Config.App.Port,
			"env":  app.Config.App.Env,
		}).Info("HTTP server listening")
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logrus.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logrus.Info("Server shutdown complete")
	return nil
}

// Close stops background work and closes all connections
func (app *App) Close() {
	if app.Reconciler != nil {
		app.Reconciler.Stop()
	}

	if app.Publisher != nil {
		if err := app.Publisher.Close(); err != nil {
			logrus.Warnf("Failed to close event publisher: %v", err)
		}
	}

	if app.AMQPConn != nil {
		app.AMQPConn.Close()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
