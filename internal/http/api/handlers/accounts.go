package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marketbridge/brokergate/internal/account"
	"github.com/marketbridge/brokergate/internal/alpaca"
	"github.com/marketbridge/brokergate/internal/models"
)

// AccountHandler manages the account lifecycle endpoints.
type AccountHandler struct {
	coordinator *account.Coordinator
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(coordinator *account.Coordinator) *AccountHandler {
	return &AccountHandler{coordinator: coordinator}
}

// createAccountRequest is the brokerage payload plus local credentials.
type createAccountRequest struct {
	alpaca.AccountPayload
	Password string `json:"password"`
}

// userFields projects a stored record back into gateway account fields.
func userFields(user *models.User) alpaca.UserFields {
	return alpaca.UserFields{
		AlpacaID:              user.AlpacaID,
		AccountNumber:         user.AccountNumber,
		Status:                user.Status,
		GivenName:             user.GivenName,
		FamilyName:            user.FamilyName,
		EmailAddress:          user.EmailAddress,
		TaxID:                 user.TaxID,
		TaxIDType:             user.TaxIDType,
		CountryOfTaxResidence: user.CountryOfTaxResidence,
		PhoneNumber:           user.PhoneNumber,
	}
}

// renderAccount writes the full account document rebuilt from the local
// record and its mirror.
func renderAccount(c *gin.Context, status int, user *models.User) {
	merged, errMerge := alpaca.MergeAccount(userFields(user), user.Alpaca)
	if errMerge != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render account failed"})
		return
	}
	c.Data(status, "application/json; charset=utf-8", merged)
}

// Create opens a brokerage account and registers the local user.
func (h *AccountHandler) Create(c *gin.Context) {
	var body createAccountRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	user, err := h.coordinator.Create(c.Request.Context(), account.CreateParams{
		Payload:  body.AccountPayload,
		Password: body.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	renderAccount(c, http.StatusCreated, user)
}

// Get returns the account document.
func (h *AccountHandler) Get(c *gin.Context) {
	user, err := h.coordinator.Get(c.Request.Context(), CallerPrincipal(c), c.Param("account"))
	if err != nil {
		writeError(c, err)
		return
	}
	renderAccount(c, http.StatusOK, user)
}

// Update patches the account upstream and returns the refreshed document.
func (h *AccountHandler) Update(c *gin.Context) {
	var payload alpaca.AccountPayload
	if errBind := c.ShouldBindJSON(&payload); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	user, err := h.coordinator.Update(c.Request.Context(), CallerPrincipal(c), c.Param("account"), payload)
	if err != nil {
		writeError(c, err)
		return
	}
	renderAccount(c, http.StatusOK, user)
}

// Close closes the account.
func (h *AccountHandler) Close(c *gin.Context) {
	if err := h.coordinator.Close(c.Request.Context(), CallerPrincipal(c), c.Param("account")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusAccountClosed})
}

// Reopen reopens a closed account. Admin only.
func (h *AccountHandler) Reopen(c *gin.Context) {
	if err := h.coordinator.Reopen(c.Request.Context(), CallerPrincipal(c), c.Param("account")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusActive})
}
