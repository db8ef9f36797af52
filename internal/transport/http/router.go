package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fundkeep/wallet-service/internal/config"
	"github.com/fundkeep/wallet-service/internal/service"
)

func NewRouter(
	auth *service.AuthService,
	wallets *service.WalletService,
	engine *service.TransferEngine,
	reg *prometheus.Registry,
	rl config.RateLimitConfig,
	log *zap.SugaredLogger,
) *gin.Engine {
	r := gin.New()
	r.Use(LoggingMiddleware(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	RegisterHandlers(r, auth, wallets, engine, RateLimitMiddleware(rl.RPS, rl.Burst))
	return r
}
