package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/marketbridge/brokergate/internal/alpaca"
)

// MarketDataHandler serves asset details and price bars.
type MarketDataHandler struct {
	gateway alpaca.Gateway
}

// NewMarketDataHandler constructs a MarketDataHandler.
func NewMarketDataHandler(gateway alpaca.Gateway) *MarketDataHandler {
	return &MarketDataHandler{gateway: gateway}
}

// Asset returns the asset record together with its latest bar, fetched
// concurrently.
func (h *MarketDataHandler) Asset(c *gin.Context) {
	symbol := c.Param("symbol")

	var (
		asset *alpaca.Asset
		bar   *alpaca.Bar
	)
	group, ctx := errgroup.WithContext(c.Request.Context())
	group.Go(func() error {
		var errAsset error
		asset, errAsset = h.gateway.Asset(ctx, symbol)
		return errAsset
	})
	group.Go(func() error {
		var errBar error
		bar, errBar = h.gateway.LatestBar(ctx, symbol)
		return errBar
	})
	if err := group.Wait(); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"asset":      asset,
		"latest_bar": bar,
	})
}

// Bars returns historical OHLCV bars for one symbol.
func (h *MarketDataHandler) Bars(c *gin.Context) {
	query := alpaca.BarsQuery{
		Timeframe:  c.DefaultQuery("timeframe", "1Day"),
		Adjustment: c.DefaultQuery("adjustment", "raw"),
		Start:      c.Query("start"),
	}
	if limitRaw := c.Query("limit"); limitRaw != "" {
		limit, errParse := strconv.Atoi(limitRaw)
		if errParse != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		query.Limit = limit
	}

	bars, err := h.gateway.HistoricalBars(c.Request.Context(), c.Param("symbol"), query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", bars)
}
