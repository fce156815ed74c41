package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/marketbridge/brokergate/internal/account"
	"github.com/marketbridge/brokergate/internal/models"
	"github.com/marketbridge/brokergate/internal/store"
)

// AdminHandler serves the operator surface: user listings and the
// reconciliation journal.
type AdminHandler struct {
	users       *store.UserStore
	gaps        *store.GapJournal
	coordinator *account.Coordinator
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(users *store.UserStore, gaps *store.GapJournal, coordinator *account.Coordinator) *AdminHandler {
	return &AdminHandler{users: users, gaps: gaps, coordinator: coordinator}
}

// userSummary is the listing projection; credentials and the broker mirror
// stay out of it.
type userSummary struct {
	AccountNumber string `json:"account_number"`
	AlpacaID      string `json:"alpaca_id"`
	Status        string `json:"status"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	EmailAddress  string `json:"email_address"`
	IsAdmin       bool   `json:"is_admin"`
	IsActive      bool   `json:"is_active"`
	CreatedAt     string `json:"created_at"`
}

func summarize(user models.User) userSummary {
	return userSummary{
		AccountNumber: user.AccountNumber,
		AlpacaID:      user.AlpacaID,
		Status:        user.Status,
		GivenName:     user.GivenName,
		FamilyName:    user.FamilyName,
		EmailAddress:  user.EmailAddress,
		IsAdmin:       user.IsAdmin,
		IsActive:      user.IsActive,
		CreatedAt:     user.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ListUsers returns users with optional status and search filters.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	filter := store.ListFilter{
		Status: strings.TrimSpace(c.Query("status")),
		Search: strings.TrimSpace(c.Query("search")),
	}
	if limitRaw := c.Query("limit"); limitRaw != "" {
		if limit, errParse := strconv.Atoi(limitRaw); errParse == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if offsetRaw := c.Query("offset"); offsetRaw != "" {
		if offset, errParse := strconv.Atoi(offsetRaw); errParse == nil && offset > 0 {
			filter.Offset = offset
		}
	}

	users, total, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	summaries := make([]userSummary, 0, len(users))
	for _, user := range users {
		summaries = append(summaries, summarize(user))
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "users": summaries})
}

// ListGaps returns the open reconciliation journal.
func (h *AdminHandler) ListGaps(c *gin.Context) {
	gaps, err := h.gaps.Unresolved(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gaps": gaps})
}

// Sweep repairs open gaps from gateway state.
func (h *AdminHandler) Sweep(c *gin.Context) {
	resolved, err := h.coordinator.Sweep(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": resolved})
}
