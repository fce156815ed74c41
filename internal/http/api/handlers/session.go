package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/marketbridge/brokergate/internal/config"
	"github.com/marketbridge/brokergate/internal/ratelimit"
	"github.com/marketbridge/brokergate/internal/security"
	"github.com/marketbridge/brokergate/internal/store"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "brokergate_session"

// SessionHandler manages login, logout, and session introspection.
type SessionHandler struct {
	users   *store.UserStore
	jwtCfg  config.JWTConfig
	limiter *ratelimit.Manager
}

// NewSessionHandler constructs a SessionHandler. limiter may be nil, which
// disables login throttling.
func NewSessionHandler(users *store.UserStore, jwtCfg config.JWTConfig, limiter *ratelimit.Manager) *SessionHandler {
	return &SessionHandler{users: users, jwtCfg: jwtCfg, limiter: limiter}
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and sets the session cookie. The response body
// carries the token as well for non-browser clients.
func (h *SessionHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing credentials"})
		return
	}

	if h.limiter != nil {
		result, errLimit := h.limiter.Allow(c.Request.Context(), "login:"+c.ClientIP())
		if errLimit == nil && !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
			return
		}
	}

	user, errFind := h.users.FindByEmail(c.Request.Context(), email)
	if errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !security.VerifyPassword(user.Password, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
		return
	}

	token, errMint := security.MintSessionToken(h.jwtCfg.Secret, h.jwtCfg.Expiry, user.AccountNumber)
	if errMint != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mint token failed"})
		return
	}

	c.SetCookie(SessionCookie, token, int(h.jwtCfg.Expiry.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"token":          token,
		"account_number": user.AccountNumber,
		"is_admin":       user.IsAdmin,
	})
}

// Logout clears the session cookie.
func (h *SessionHandler) Logout(c *gin.Context) {
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// Check reports who the current session belongs to.
func (h *SessionHandler) Check(c *gin.Context) {
	principal := CallerPrincipal(c)
	c.JSON(http.StatusOK, gin.H{
		"account_number": principal.AccountNumber,
		"is_admin":       principal.IsAdmin,
	})
}
