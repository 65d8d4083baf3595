package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	aggregatedomain "github.com/simpmc/simppay/internal/aggregate/domain"
	"github.com/simpmc/simppay/internal/config"
	milestonedomain "github.com/simpmc/simppay/internal/milestone/domain"
	obsmetrics "github.com/simpmc/simppay/internal/observability/metrics"
	paymentdomain "github.com/simpmc/simppay/internal/payment/domain"
	"github.com/simpmc/simppay/internal/payment/webhook"
	"github.com/simpmc/simppay/internal/ratelimit"
	"github.com/simpmc/simppay/internal/reward"
	streakdomain "github.com/simpmc/simppay/internal/streak/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	PaymentSvc   paymentdomain.Service
	WebhookSvc   *webhook.Service
	AggregateSvc aggregatedomain.Service
	StreakSvc    streakdomain.Service
	MilestoneSvc milestonedomain.Service
	Sessions     *reward.SessionRegistry
	CardLimiter  *ratelimit.TokenBucket `optional:"true"`
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	paymentSvc   paymentdomain.Service
	webhookSvc   *webhook.Service
	aggregateSvc aggregatedomain.Service
	streakSvc    streakdomain.Service
	milestoneSvc milestonedomain.Service
	sessions     *reward.SessionRegistry
	cardLimiter  *ratelimit.TokenBucket
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("server"),
		paymentSvc:   p.PaymentSvc,
		webhookSvc:   p.WebhookSvc,
		aggregateSvc: p.AggregateSvc,
		streakSvc:    p.StreakSvc,
		milestoneSvc: p.MilestoneSvc,
		sessions:     p.Sessions,
		cardLimiter:  p.CardLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	payments := api.Group("/payments")
	payments.POST("/card", s.createCardPayment)
	payments.POST("/bank", s.createBankPayment)
	payments.DELETE("/bank/:player_id", s.cancelBankPayment)
	payments.GET("/:id", s.getPayment)

	players := api.Group("/players")
	players.GET("/:id/summary", s.getPlayerSummary)
	players.GET("/:id/history", s.getPlayerHistory)
	players.GET("/:id/streak", s.getPlayerStreak)

	api.GET("/leaderboard/:window", s.getLeaderboard)

	api.POST("/sessions", s.openSession)
	api.DELETE("/sessions/:player_id", s.closeSession)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/hooks/sepay", s.handleSepayWebhook)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/v1/admin")
	admin.POST("/milestones/reset/:window", s.resetMilestoneWindow)
}

func NewEngine(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {}),
	fx.Invoke(run),
)
