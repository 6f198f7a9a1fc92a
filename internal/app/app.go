package app

import (
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs-lzh/miccheck/config"
	"github.com/qs-lzh/miccheck/internal/cache"
	"github.com/qs-lzh/miccheck/internal/model"
	"github.com/qs-lzh/miccheck/internal/mq"
	"github.com/qs-lzh/miccheck/internal/repository"
	"github.com/qs-lzh/miccheck/internal/service/domain"
	"github.com/qs-lzh/miccheck/internal/service/workflow"
)

type App struct {
	Config *config.Config

	DB     *gorm.DB
	Cache  *cache.RedisCache
	Logger *zap.Logger
	MQConn *amqp.Connection

	Repos repository.Repos

	InventoryService domain.InventoryService
	CouponService    domain.CouponService
	BookingService   domain.BookingService

	BookingWorkflow      *workflow.BookingWorkflow
	NotificationWorkflow *workflow.NotificationWorkflow

	// Now is the clock used to decide which shows are upcoming.
	Now func() time.Time
}

// New wires the app against PostgreSQL. cache and mqConn may be nil, which
// turns off the features that need them.
func New(config *config.Config, db *gorm.DB, cache *cache.RedisCache, mqConn *amqp.Connection, logger *zap.Logger) *App {
	app := Assemble(config, repository.NewReposGorm(db), repository.NewUnitOfWorkGorm(db), logger)
	app.DB = db
	app.Cache = cache
	app.MQConn = mqConn
	if mqConn != nil {
		app.BookingWorkflow.Publisher = mq.NewPublisher(mqConn)
	}
	return app
}

// Assemble builds the services over the given repositories without any
// external connections.
func Assemble(config *config.Config, repos repository.Repos, uow repository.UnitOfWork, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	inventoryService := domain.NewInventoryService(repos.Shows, repos.Spots)
	couponService := domain.NewCouponService(repos.Coupons)
	bookingService := domain.NewBookingService(uow)

	bookingWorkflow := workflow.NewBookingWorkflow(bookingService, nil, logger.Named("booking"))
	notificationWorkflow := workflow.NewNotificationWorkflow(logger)

	return &App{
		Config:               config,
		Logger:               logger,
		Repos:                repos,
		InventoryService:     inventoryService,
		CouponService:        couponService,
		BookingService:       bookingService,
		BookingWorkflow:      bookingWorkflow,
		NotificationWorkflow: notificationWorkflow,
		Now:                  time.Now,
	}
}

func (app *App) Init() error {
	if app.MQConn == nil {
		app.Logger.Info("RABBIT_MQ_URL not set, booking notifications disabled")
		return nil
	}

	// init rabbit mq
	if err := mq.InitQueues(app.MQConn); err != nil {
		return err
	}

	return app.NotificationWorkflow.Start(app.MQConn)
}

// Today is the current date at the venue.
func (app *App) Today() time.Time {
	return model.DateOf(app.Now().In(app.Config.Location()))
}

func (app *App) Close() error {
	var errs []error
	if app.MQConn != nil {
		errs = append(errs, app.MQConn.Close())
	}
	if app.Cache != nil {
		errs = append(errs, app.Cache.Close())
	}
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
