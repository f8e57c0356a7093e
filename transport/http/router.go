// Package http exposes the wallet service over a small gin control surface.
package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/parkview-app/walletcore/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(wallet *service.WalletService, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(logger), gin.Recovery())

	handlers := NewWalletHandlers(wallet)

	w := router.Group("/wallet")
	{
		w.GET("/status", handlers.Status)
		w.GET("/qr", handlers.QR)
		w.GET("/callback", handlers.Callback)

		w.POST("/connect", handlers.Connect)
		w.POST("/connect/cancel", handlers.CancelConnect)
		w.POST("/disconnect", handlers.Disconnect)
		w.POST("/switch", handlers.SwitchNetwork)
		w.POST("/request", handlers.Relay)
		w.POST("/sign", handlers.Sign)
		w.POST("/transaction", handlers.SendTransaction)
	}

	return router
}
