package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marketbridge/brokergate/internal/account"
	"github.com/marketbridge/brokergate/internal/alpaca"
)

// FundingHandler manages ACH relationships and transfers.
type FundingHandler struct {
	coordinator *account.Coordinator
	gateway     alpaca.Gateway
}

// NewFundingHandler constructs a FundingHandler.
func NewFundingHandler(coordinator *account.Coordinator, gateway alpaca.Gateway) *FundingHandler {
	return &FundingHandler{coordinator: coordinator, gateway: gateway}
}

// resolveAlpacaID authorizes the caller for the account in the path and
// returns its gateway identifier.
func (h *FundingHandler) resolveAlpacaID(c *gin.Context) (string, bool) {
	user, err := h.coordinator.Get(c.Request.Context(), CallerPrincipal(c), c.Param("account"))
	if err != nil {
		writeError(c, err)
		return "", false
	}
	return user.AlpacaID, true
}

// ListRelationships returns the account's linked bank relationships.
func (h *FundingHandler) ListRelationships(c *gin.Context) {
	alpacaID, ok := h.resolveAlpacaID(c)
	if !ok {
		return
	}
	relationships, err := h.gateway.ACHRelationships(c.Request.Context(), alpacaID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, relationships)
}

// CreateRelationship links a new bank account.
func (h *FundingHandler) CreateRelationship(c *gin.Context) {
	alpacaID, ok := h.resolveAlpacaID(c)
	if !ok {
		return
	}
	var body alpaca.ACHRelationshipRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	relationship, err := h.gateway.CreateACHRelationship(c.Request.Context(), alpacaID, body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, relationship)
}

// DeleteRelationship removes a bank relationship.
func (h *FundingHandler) DeleteRelationship(c *gin.Context) {
	alpacaID, ok := h.resolveAlpacaID(c)
	if !ok {
		return
	}
	if err := h.gateway.DeleteACHRelationship(c.Request.Context(), alpacaID, c.Param("relationship")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListTransfers returns the account's funding transfers.
func (h *FundingHandler) ListTransfers(c *gin.Context) {
	alpacaID, ok := h.resolveAlpacaID(c)
	if !ok {
		return
	}
	transfers, err := h.gateway.Transfers(c.Request.Context(), alpacaID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, transfers)
}

// CreateTransfer initiates an ACH funding transfer.
func (h *FundingHandler) CreateTransfer(c *gin.Context) {
	alpacaID, ok := h.resolveAlpacaID(c)
	if !ok {
		return
	}
	var body alpaca.TransferRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	transfer, err := h.gateway.CreateTransfer(c.Request.Context(), alpacaID, body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, transfer)
}
