// Package handlers implements the REST endpoints for accounts, funding,
// trading, market data, sessions, and the admin surface.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/marketbridge/brokergate/internal/account"
	"github.com/marketbridge/brokergate/internal/alpaca"
	"github.com/marketbridge/brokergate/internal/apperrors"
)

// PrincipalKey is the gin context key the auth middleware stores the caller
// under.
const PrincipalKey = "principal"

// CallerPrincipal returns the authenticated caller set by the auth
// middleware.
func CallerPrincipal(c *gin.Context) account.Principal {
	value, ok := c.Get(PrincipalKey)
	if !ok {
		return account.Principal{}
	}
	principal, _ := value.(account.Principal)
	return principal
}

// violationBody is one field entry of a validation error response.
type violationBody struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// writeError maps a service error onto an HTTP response. Gateway failures
// keep the upstream status code so callers see what the broker said.
func writeError(c *gin.Context, err error) {
	var validation *apperrors.ValidationError
	if errors.As(err, &validation) {
		body := make([]violationBody, 0, len(validation.Violations))
		for _, violation := range validation.Violations {
			body = append(body, violationBody{Field: violation.Field, Message: violation.Message})
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "violations": body})
		return
	}

	var authz *apperrors.AuthorizationError
	if errors.As(err, &authz) {
		c.JSON(http.StatusForbidden, gin.H{"error": authz.Error()})
		return
	}

	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	var conflict *apperrors.ConflictError
	if errors.As(err, &conflict) {
		body := gin.H{"error": conflict.Reason}
		if len(conflict.Fields) > 0 {
			body["fields"] = conflict.Fields
		}
		c.JSON(http.StatusConflict, body)
		return
	}

	var gateway *alpaca.GatewayError
	if errors.As(err, &gateway) {
		c.JSON(gateway.StatusCode, gin.H{"error": gateway.Message()})
		return
	}

	var gap *apperrors.ReconciliationGap
	if errors.As(err, &gap) {
		log.WithError(err).WithFields(log.Fields{
			"operation": gap.Operation,
			"alpaca_id": gap.AlpacaID,
		}).Error("reconciliation gap surfaced to caller")
		c.JSON(http.StatusBadGateway, gin.H{"error": "request applied upstream, local sync pending"})
		return
	}

	log.WithError(err).Error("unhandled request error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
