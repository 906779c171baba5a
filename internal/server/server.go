package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/okonomi/internal/config"
	"github.com/smallbiznis/okonomi/internal/observability"
	obslogger "github.com/smallbiznis/okonomi/internal/observability/logger"
	obstracing "github.com/smallbiznis/okonomi/internal/observability/tracing"
	tilbakedomain "github.com/smallbiznis/okonomi/internal/tilbakekreving/domain"
	utbetalingdomain "github.com/smallbiznis/okonomi/internal/utbetaling/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Params struct {
	fx.In

	Engine     *gin.Engine
	DB         *gorm.DB `optional:"true"`
	Payments   utbetalingdomain.Service
	Repayments tilbakedomain.Service
}

type Server struct {
	engine     *gin.Engine
	db         *gorm.DB
	payments   utbetalingdomain.Service
	repayments tilbakedomain.Service
}

func NewServer(p Params) *Server {
	s := &Server{
		engine:     p.Engine,
		db:         p.DB,
		payments:   p.Payments,
		repayments: p.Repayments,
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/health", s.Health)

	api := s.engine.Group("/api/v1")

	api.POST("/payment-orders", s.CreatePaymentOrder)
	api.GET("/payment-orders/:id", s.GetPaymentOrder)
	api.POST("/payment-orders/:id/events", s.RecordPaymentEvent)
	api.GET("/recipients/:recipient/payment-orders", s.ListPaymentOrders)

	cases := api.Group("/repayment-cases")
	cases.GET("/:id", s.GetRepaymentCase)
	cases.GET("/:id/audit", s.GetRepaymentCaseAudit)
	cases.POST("/:id/assessment", s.SaveAssessment)
	cases.POST("/:id/periods", s.SavePeriods)
	cases.POST("/:id/net-override", s.SetNetOverride)
	cases.POST("/:id/decide", s.Decide)
	cases.POST("/:id/submit", s.Submit)
	cases.POST("/:id/reject", s.Reject)
	cases.POST("/:id/refresh-claim", s.RefreshClaim)
}

func (s *Server) Health(c *gin.Context) {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
