package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parkview-app/walletcore/core"
	"github.com/parkview-app/walletcore/pairing"
	"github.com/parkview-app/walletcore/service"
)

// WalletHandlers contains HTTP handlers for the wallet endpoints
type WalletHandlers struct {
	wallet *service.WalletService
}

// NewWalletHandlers creates new wallet handlers
func NewWalletHandlers(wallet *service.WalletService) *WalletHandlers {
	return &WalletHandlers{wallet: wallet}
}

// Status returns the current connection snapshot
func (h *WalletHandlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.wallet.Facts())
}

// Connect starts a pairing cycle and blocks until it resolves
func (h *WalletHandlers) Connect(c *gin.Context) {
	sess, err := h.wallet.Connect(c.Request.Context())
	if err != nil {
		status, msg := connectErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	acct, _ := sess.PrimaryAccount()
	c.JSON(http.StatusOK, gin.H{
		"topic":    sess.Topic,
		"address":  acct.Address,
		"chain_id": acct.ChainID,
	})
}

func connectErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrNotInitialized):
		return http.StatusServiceUnavailable, "Wallet service not initialized"
	case errors.Is(err, core.ErrAlreadyConnecting):
		return http.StatusConflict, "Connect already in progress"
	case errors.Is(err, core.ErrApprovalTimeout):
		return http.StatusRequestTimeout, "Wallet approval timed out"
	case errors.Is(err, core.ErrUserRejected):
		return http.StatusConflict, "Connection rejected in wallet"
	case errors.Is(err, core.ErrConnectCancelled):
		return http.StatusConflict, "Connect cancelled"
	default:
		return http.StatusBadGateway, "Wallet connection failed"
	}
}

// CancelConnect aborts a pending connect
func (h *WalletHandlers) CancelConnect(c *gin.Context) {
	h.wallet.CancelConnect()
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// Disconnect closes the current session
func (h *WalletHandlers) Disconnect(c *gin.Context) {
	if err := h.wallet.Disconnect(c.Request.Context()); err != nil {
		if errors.Is(err, core.ErrNotConnected) {
			c.JSON(http.StatusConflict, gin.H{"error": "No active session"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Disconnect failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

// SwitchNetwork asks the wallet to move to another chain
func (h *WalletHandlers) SwitchNetwork(c *gin.Context) {
	var req struct {
		ChainID string `json:"chain_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	chainID, err := core.ParseChainID(req.ChainID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chain id"})
		return
	}

	if err := h.wallet.SwitchNetwork(c.Request.Context(), chainID); err != nil {
		switch {
		case errors.Is(err, core.ErrNotConnected):
			c.JSON(http.StatusConflict, gin.H{"error": "No active session"})
		case errors.Is(err, core.ErrUserRejected):
			c.JSON(http.StatusConflict, gin.H{"error": "Switch rejected in wallet"})
		case errors.Is(err, core.ErrApprovalTimeout):
			c.JSON(http.StatusRequestTimeout, gin.H{"error": "Switch approval timed out"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Network switch failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"chain_id": chainID})
}

// Relay forwards an arbitrary signing request to the wallet
func (h *WalletHandlers) Relay(c *gin.Context) {
	var req struct {
		Method  string `json:"method" binding:"required"`
		Params  any    `json:"params"`
		ChainID string `json:"chain_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	chainID, err := core.ParseChainID(req.ChainID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chain id"})
		return
	}

	res, err := h.wallet.Relay(c.Request.Context(), service.Request{
		Method:  req.Method,
		Params:  req.Params,
		ChainID: chainID,
	})
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotConnected):
			c.JSON(http.StatusConflict, gin.H{"error": "No active session"})
		case errors.Is(err, core.ErrChainMismatch):
			c.JSON(http.StatusConflict, gin.H{"error": "Session is not bound to the requested chain"})
		case errors.Is(err, core.ErrUserRejected):
			c.JSON(http.StatusConflict, gin.H{"error": "Request rejected in wallet"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Relay failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res})
}

// Sign runs personal_sign over the current session
func (h *WalletHandlers) Sign(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	sig, err := h.wallet.SignMessage(c.Request.Context(), req.Message)
	if err != nil {
		h.writeRequestError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signature": sig})
}

// SendTransaction runs eth_sendTransaction over the current session
func (h *WalletHandlers) SendTransaction(c *gin.Context) {
	var req service.TxParams
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	hash, err := h.wallet.SendTransaction(c.Request.Context(), req)
	if err != nil {
		h.writeRequestError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tx_hash": hash})
}

func (h *WalletHandlers) writeRequestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrNotConnected):
		c.JSON(http.StatusConflict, gin.H{"error": "No active session"})
	case errors.Is(err, core.ErrUserRejected):
		c.JSON(http.StatusConflict, gin.H{"error": "Request rejected in wallet"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Request failed"})
	}
}

// Callback receives the wallet's return deep link in static mode
func (h *WalletHandlers) Callback(c *gin.Context) {
	if err := h.wallet.HandleCallback(c.Request.Context(), c.Request.URL.String()); err != nil {
		if errors.Is(err, core.ErrInvalidURI) || errors.Is(err, core.ErrInvalidChainID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid callback"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": "No pending approval"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// QR renders the pending proposal's pairing URI as a PNG QR code
func (h *WalletHandlers) QR(c *gin.Context) {
	proposal, ok := h.wallet.PendingProposal()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No pending proposal"})
		return
	}

	png, err := pairing.QRPNG(proposal.URI, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
