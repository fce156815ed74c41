// Package api wires the REST routes, session middleware, and handlers.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/marketbridge/brokergate/internal/account"
	"github.com/marketbridge/brokergate/internal/alpaca"
	"github.com/marketbridge/brokergate/internal/config"
	"github.com/marketbridge/brokergate/internal/http/api/handlers"
	"github.com/marketbridge/brokergate/internal/ratelimit"
	"github.com/marketbridge/brokergate/internal/security"
	"github.com/marketbridge/brokergate/internal/store"
)

// Deps carries everything the route tree needs.
type Deps struct {
	DB          *gorm.DB
	Users       *store.UserStore
	Gaps        *store.GapJournal
	Coordinator *account.Coordinator
	Gateway     alpaca.Gateway
	JWT         config.JWTConfig
	Limiter     *ratelimit.Manager
}

// RegisterRoutes registers all routes, middleware, and handlers.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	v1 := r.Group("/v1")

	sessionHandler := handlers.NewSessionHandler(deps.Users, deps.JWT, deps.Limiter)
	v1.POST("/session", sessionHandler.Login)
	v1.DELETE("/session", sessionHandler.Logout)

	accountHandler := handlers.NewAccountHandler(deps.Coordinator)
	v1.POST("/users", accountHandler.Create)

	authed := v1.Group("")
	authed.Use(sessionAuthMiddleware(deps.Users, deps.JWT))

	authed.GET("/session", sessionHandler.Check)

	authed.GET("/users/:account", accountHandler.Get)
	authed.PUT("/users/:account", accountHandler.Update)
	authed.POST("/users/:account/close", accountHandler.Close)
	authed.POST("/users/:account/reopen", accountHandler.Reopen)

	fundingHandler := handlers.NewFundingHandler(deps.Coordinator, deps.Gateway)
	authed.GET("/users/:account/ach", fundingHandler.ListRelationships)
	authed.POST("/users/:account/ach", fundingHandler.CreateRelationship)
	authed.DELETE("/users/:account/ach/:relationship", fundingHandler.DeleteRelationship)
	authed.GET("/users/:account/ach/transfers", fundingHandler.ListTransfers)
	authed.POST("/users/:account/ach/transfers", fundingHandler.CreateTransfer)

	tradingHandler := handlers.NewTradingHandler(deps.Coordinator, deps.Gateway)
	authed.GET("/trading/:account/account", tradingHandler.Details)
	authed.GET("/trading/:account/positions", tradingHandler.Positions)
	authed.GET("/trading/:account/orders", tradingHandler.Orders)
	authed.POST("/trading/:account/orders", tradingHandler.CreateOrder)
	authed.GET("/trading/:account/portfolio_history", tradingHandler.PortfolioHistory)
	authed.GET("/trading/:account/summary", tradingHandler.Summary)

	marketDataHandler := handlers.NewMarketDataHandler(deps.Gateway)
	authed.GET("/assets/:symbol", marketDataHandler.Asset)
	authed.GET("/data/:symbol/bars", marketDataHandler.Bars)

	admin := authed.Group("/admin")
	admin.Use(adminOnlyMiddleware())

	adminHandler := handlers.NewAdminHandler(deps.Users, deps.Gaps, deps.Coordinator)
	admin.GET("/users", adminHandler.ListUsers)
	admin.GET("/reconciliation", adminHandler.ListGaps)
	admin.POST("/reconciliation/sweep", adminHandler.Sweep)
}

// sessionToken pulls the token from the session cookie or, failing that, a
// bearer Authorization header.
func sessionToken(c *gin.Context) string {
	if cookie, errCookie := c.Cookie(handlers.SessionCookie); errCookie == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return ""
	}
	return strings.TrimSpace(token)
}

// sessionAuthMiddleware validates session tokens and loads the caller.
func sessionAuthMiddleware(users *store.UserStore, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
			return
		}

		claims, errJWT := security.ParseSessionToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		user, errFind := users.FindByAccountNumber(c.Request.Context(), claims.AccountNumber,
			"account_number", "is_admin", "is_active")
		if errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown session"})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}

		c.Set(handlers.PrincipalKey, account.Principal{
			AccountNumber: user.AccountNumber,
			IsAdmin:       user.IsAdmin,
		})
		c.Next()
	}
}

// adminOnlyMiddleware rejects non-admin callers.
func adminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := handlers.CallerPrincipal(c)
		if !principal.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator required"})
			return
		}
		c.Next()
	}
}
