package http

import (
	"context"
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"
	echo "github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/storekit/wa-bridge/internal/config"
	"github.com/storekit/wa-bridge/internal/events"
	"github.com/storekit/wa-bridge/internal/gateway"
	"github.com/storekit/wa-bridge/internal/http/middleware"
	"github.com/storekit/wa-bridge/internal/logger"
	"github.com/storekit/wa-bridge/internal/metrics"
	"github.com/storekit/wa-bridge/internal/ratelimit"
	"github.com/storekit/wa-bridge/internal/repository"
	"github.com/storekit/wa-bridge/internal/session"
	"github.com/storekit/wa-bridge/internal/transport"
	"github.com/storekit/wa-bridge/internal/webhook"
)

type Server struct {
	e         *echo.Echo
	publisher events.Publisher
}

func NewServer(cfg config.Config, mysqlDB *sqlx.DB, rds *redis.Client) *Server {
	// repos
	messagesRepo := repository.NewMessagesRepository(mysqlDB)
	templatesRepo := repository.NewTemplatesRepository(mysqlDB)
	contactsRepo := repository.NewContactsRepository(mysqlDB)
	sessionsRepo := repository.NewSessionsRepository(mysqlDB)
	eventsRepo := repository.NewWebhookEventsRepository(mysqlDB)

	sessions := session.NewStore(sessionsRepo, cfg.Session.TTL, cfg.Session.ReapBatch)

	limiter := ratelimit.NewLimiter(ratelimit.NewRedisCounterStore(rds), ratelimit.Config{
		HourlyLimit: cfg.RateLimit.HourlyLimit,
		DailyLimit:  cfg.RateLimit.DailyLimit,
		KeyPrefix:   cfg.RateLimit.KeyPrefix,
	})

	// ordered transport chain: primary first, deeplink fallback if enabled
	var transports []transport.Transport
	if cfg.Provider.Token != "" && cfg.Provider.PhoneNumberID != "" {
		transports = append(transports, transport.NewCloudAPI(transport.CloudAPIOpts{
			BaseURL:       cfg.Provider.BaseURL,
			APIVersion:    cfg.Provider.APIVersion,
			PhoneNumberID: cfg.Provider.PhoneNumberID,
			Token:         cfg.Provider.Token,
			TimeoutMs:     cfg.Provider.TimeoutMs,
			FailThreshold: cfg.Provider.Breaker.FailThreshold,
			OpenForMs:     cfg.Provider.Breaker.OpenForMs,
		}))
	}
	if cfg.Gateway.FallbackEnabled {
		transports = append(transports, transport.NewDeeplink())
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers)
	}

	gw := gateway.New(transports, limiter, messagesRepo, templatesRepo, contactsRepo, gateway.Config{
		RecipientScoped: cfg.RateLimit.Scope == "recipient",
		BulkEnabled:     cfg.Gateway.BulkEnabled,
		BulkDelay:       cfg.Gateway.BulkDelay,
	}, logger.L())

	pipeline := webhook.NewPipeline(
		cfg.Provider.VerifyToken,
		cfg.Provider.AppSecret,
		eventsRepo,
		messagesRepo,
		templatesRepo,
		contactsRepo,
		sessions,
		publisher,
		logger.L(),
	)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// provider-facing webhook; authenticated by verify token / signature,
	// never by API key
	e.GET("/webhook", verifyWebhookHandler(pipeline))
	e.POST("/webhook", ingestWebhookHandler(pipeline))

	// merchant-facing API
	v1 := e.Group("/v1", middleware.APIKeyMiddleware(cfg.HTTP.APIKeys))
	v1.POST("/messages", sendHandler(gw))
	v1.POST("/messages/bulk", sendBulkHandler(gw))
	v1.GET("/messages", listMessagesHandler(messagesRepo))
	v1.GET("/templates", listTemplatesHandler(templatesRepo))
	v1.GET("/sessions/:phone", getSessionHandler(sessions))

	return &Server{e: e, publisher: publisher}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	_ = s.publisher.Close()
	return s.e.Shutdown(ctx)
}
