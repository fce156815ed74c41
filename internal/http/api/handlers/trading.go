package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/marketbridge/brokergate/internal/account"
	"github.com/marketbridge/brokergate/internal/alpaca"
)

// TradingHandler manages trading-account endpoints.
type TradingHandler struct {
	coordinator *account.Coordinator
	gateway     alpaca.Gateway
}

// NewTradingHandler constructs a TradingHandler.
func NewTradingHandler(coordinator *account.Coordinator, gateway alpaca.Gateway) *TradingHandler {
	return &TradingHandler{coordinator: coordinator, gateway: gateway}
}

func (h *TradingHandler) resolveAlpacaID(c *gin.Context) (string, bool) {
	user, err := h.coordinator.Get(c.Request.Context(), CallerPrincipal(c), c.Param("account"))
	if err != nil {
		writeError(c, err)
		return "", false
	}
	return user.AlpacaID, true
}

// Details returns the trading-account balances.
func (h *TradingHandler) Details(c *gin.Context) {
	alpacaID, ok := h.resolveAlpacaID(c)
	if !ok {
		return
	}
	details, err := h.gateway.TradingDetails(c.Request.Context(), alpacaID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// Positions returns the account's open positions.
func (h *TradingHandler) Positions(c *gin.Context) {
	alpacaID, ok := h.resolveAlpacaID(c)
	if !ok {
		return
	}
	positions, err := h.gateway.Positions(c.Request.Context(), alpacaID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, positions)
}

// Orders returns the account's orders, all statuses included.
func (h *TradingHandler) Orders(c *gin.Context) {
	alpacaID, ok := h.resolveAlpacaID(c)
	if !ok {
		return
	}
	orders, err := h.gateway.Orders(c.Request.Context(), alpacaID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// CreateOrder places an order. Price fields that do not apply to the order
// type are cleared before the gateway sees the request.
func (h *TradingHandler) CreateOrder(c *gin.Context) {
	alpacaID, ok := h.resolveAlpacaID(c)
	if !ok {
		return
	}
	var body alpaca.OrderRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	order, err := h.gateway.CreateOrder(c.Request.Context(), alpacaID, body.Normalize())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// PortfolioHistory returns the raw portfolio history document.
func (h *TradingHandler) PortfolioHistory(c *gin.Context) {
	alpacaID, ok := h.resolveAlpacaID(c)
	if !ok {
		return
	}
	timeframe := c.DefaultQuery("timeframe", "1D")
	history, err := h.gateway.PortfolioHistory(c.Request.Context(), alpacaID, timeframe)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", history)
}

// Summary fans out to balances, positions, and orders concurrently and
// returns them as one document. The first gateway failure cancels the rest.
func (h *TradingHandler) Summary(c *gin.Context) {
	alpacaID, ok := h.resolveAlpacaID(c)
	if !ok {
		return
	}

	var (
		details   *alpaca.TradingDetails
		positions []alpaca.Position
		orders    []alpaca.Order
	)
	group, ctx := errgroup.WithContext(c.Request.Context())
	group.Go(func() error {
		var errDetails error
		details, errDetails = h.gateway.TradingDetails(ctx, alpacaID)
		return errDetails
	})
	group.Go(func() error {
		var errPositions error
		positions, errPositions = h.gateway.Positions(ctx, alpacaID)
		return errPositions
	})
	group.Go(func() error {
		var errOrders error
		orders, errOrders = h.gateway.Orders(ctx, alpacaID)
		return errOrders
	})
	if err := group.Wait(); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account":   details,
		"positions": positions,
		"orders":    orders,
	})
}
