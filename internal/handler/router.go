package handler

import (
	"walletservice/internal/config"
	"walletservice/internal/service"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置路由
func SetupRouter(walletService *service.WalletService, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(walletService, cfg)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 钱包相关
		wallet := api.Group("/wallet")
		{
			wallet.GET("", h.GetWallet)
			wallet.POST("/open", h.OpenWallet)
			wallet.POST("/lock", h.LockWallet)
			wallet.GET("/logs", h.ListChangeLogs)
			wallet.GET("/transactions", h.ListTransactions)
		}

		// 交易相关
		trade := api.Group("/trade")
		{
			trade.POST("", h.Trade)
			trade.POST("/confirm", h.ConfirmTrade)
			trade.POST("/unfreeze", h.UnfreezeTrade)
			trade.POST("/void", h.VoidTrade)
		}

		// 额度分摊查询
		outlay := api.Group("/outlay")
		{
			outlay.GET("/by-spend", h.ListOutlayBySpend)
			outlay.GET("/by-lot", h.ListOutlayByLot)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
