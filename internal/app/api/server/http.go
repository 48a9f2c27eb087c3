package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/docpay/docs"
	"github.com/fatflowers/docpay/internal/app/api/handlers"
	mw "github.com/fatflowers/docpay/internal/app/api/middleware"
	actionlog "github.com/fatflowers/docpay/internal/app/service/action_log"
	"github.com/fatflowers/docpay/internal/app/service/delivery"
	"github.com/fatflowers/docpay/internal/app/service/document"
	nh "github.com/fatflowers/docpay/internal/app/service/notification_handler"
	notificationlog "github.com/fatflowers/docpay/internal/app/service/notification_log"
	"github.com/fatflowers/docpay/internal/app/service/payment"
	"github.com/fatflowers/docpay/internal/app/service/recovery"
	"github.com/fatflowers/docpay/internal/app/service/statistics"
	"github.com/fatflowers/docpay/internal/app/service/sweeper"
	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_webhook"
	cfgpkg "github.com/fatflowers/docpay/pkg/config"
	metrics "github.com/fatflowers/docpay/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Log      *zap.SugaredLogger
	Cfg      *cfgpkg.Config
	DB       *gorm.DB
	Verifier *stripe_webhook.Verifier
	Events   *nh.NotificationHandler
	Docs     *document.Service
	Recovery *recovery.Service
	Payments *payment.Service
	Stats    *statistics.Service
	Sweeper  *sweeper.Service
	Audit    *actionlog.Service
	Journal  *notificationlog.Service
	Storage  *delivery.StorageEvents
}

func registerRoutes(lc fx.Lifecycle, r *gin.Engine, d routeDeps) {
	log, cfg := d.Log, d.Cfg
	// Prometheus metrics on their own listener
	if cfg != nil && cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			MetricsList: metrics.BusinessMetrics,
			Logger:      log,
		})
		p.SetListenAddress(cfg.MetricsAddr)
		p.Use(r)
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				p.Start()
				log.Infow("metrics started", "addr", cfg.MetricsAddr)
				return nil
			},
			OnStop: p.Stop,
		})
	}
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterHealthRoutes(pub, d.DB)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))

	handlers.RegisterDocumentRoutes(apiV1.Group("/documents"), d.Docs, d.Recovery, cfg.Recovery.MaxFileSize)
	handlers.RegisterStorageEventRoutes(apiV1.Group("/storage"), d.Storage, log)
	handlers.RegisterAdminRoutes(apiV1.Group("/admin"), d.Recovery, d.Payments, d.Stats, d.Sweeper, d.Audit, d.Journal)

	// Payment processor webhooks
	apiV2Payment := r.Group("/api/v2/payment")
	apiV2Payment.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterPaymentWebhookRoutes(apiV2Payment, d.Verifier, d.Events, log)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
