package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/FacundoCanepa/tiopelotte-pedidos-api/configs"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/adapter/cache"
	httpadapter "github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/adapter/http"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/adapter/http/middleware"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/adapter/kafka"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/adapter/mercadopago"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/adapter/queue"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/adapter/repo"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/logging"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/usecase"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type App struct {
	Router *gin.Engine
}

func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	log := logging.Init(cfg.App.Name, "./logs/app.log")

	// database
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.PingContext(ctx)
	cancel()
	if err != nil {
		return nil, nil, err
	}
	if err := repo.RunMigrations(db, cfg.MySQL.MigrationsDir); err != nil {
		return nil, nil, err
	}

	// redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, nil, err
	}

	// rabbitmq
	conn, err := amqp091.Dial(cfg.Rabbit.URL)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	producer, err := queue.NewRabbitProducer(ch)
	if err != nil {
		return nil, nil, err
	}

	// infra
	orderRepo := repo.NewMySQLOrderRepo(db)
	stagingRepo := repo.NewMySQLStagingRepo(db)
	outboxRepo := repo.NewMySQLOutboxRepo(db)
	reconcileCache := cache.NewRedisReconcileCache(rdb, cfg.Reconcile.CacheTTL)
	statusCache := cache.NewRedisStatusCache(rdb, cfg.Cache.StatusTTL)
	gateway := mercadopago.NewClient(mercadopago.Config{
		AccessToken:     cfg.MercadoPago.AccessToken,
		BaseURL:         cfg.MercadoPago.BaseURL,
		SuccessURL:      cfg.MercadoPago.SuccessURL,
		FailureURL:      cfg.MercadoPago.FailureURL,
		PendingURL:      cfg.MercadoPago.PendingURL,
		NotificationURL: cfg.MercadoPago.NotificationURL,
	})

	zones := make(map[string]decimal.Decimal, len(cfg.Delivery.Zones))
	for name, price := range cfg.Delivery.Zones {
		zones[name] = decimal.NewFromFloat(price)
	}

	// usecases
	stageUC := usecase.NewStageCheckout(stagingRepo, zones)
	issueUC := usecase.NewIssuePreference(stagingRepo, gateway)
	cashUC := usecase.NewPlaceCashOrder(stagingRepo, orderRepo)
	reconcileUC := usecase.NewReconcilePayment(orderRepo, stagingRepo, gateway, reconcileCache, statusCache, outboxRepo)

	// background workers
	bgCtx, stopWorkers := context.WithCancel(context.Background())
	poller := queue.NewOutboxPoller(outboxRepo, producer, cfg.Rabbit.OutboxTick, logging.New("outbox"))
	go poller.Run(bgCtx)
	startKafkaListener(bgCtx, cfg, orderRepo, statusCache)

	// handlers + router
	co := httpadapter.NewCheckoutHandler(stageUC, issueUC, cashUC)
	pay := httpadapter.NewPaymentsHandler(reconcileUC)
	oh := httpadapter.NewOrderHandler(orderRepo, statusCache)
	th := httpadapter.NewTokenHandler(cfg)
	authz := middleware.NewAuthz(cfg)
	router := httpadapter.NewRouter(co, pay, oh, th, authz, cfg.MercadoPago.WebhookSecret)

	log.Info("pedidos-api wired", "http_addr", cfg.App.HTTPAddr)

	cleanup := func() {
		stopWorkers()
		_ = ch.Close()
		_ = conn.Close()
		_ = rdb.Close()
		_ = db.Close()
	}
	return &App{Router: router}, cleanup, nil
}

func startKafkaListener(ctx context.Context, cfg configs.Config, orders usecase.OrderRepo, status usecase.StatusCache) {
	if len(cfg.Kafka.Brokers) == 0 {
		return
	}
	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	if err != nil {
		logging.New("kafka").Error("consumer group init failed", "err", err)
		return
	}

	h := kafka.NewOrderStatusChangedHandler(orders, status)
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.TopicStatus}, h.Handle)
	consumer.Logger = logging.New("kafka")

	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			logging.New("kafka").Error("consumer stopped", "err", err)
		}
	}()
}
