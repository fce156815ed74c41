// Package account coordinates the brokerage gateway and the local record
// store for the account lifecycle. Every operation validates first, calls the
// gateway second, and writes locally last, so a gateway failure never leaves
// a local record behind.
package account

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/marketbridge/brokergate/internal/alpaca"
	"github.com/marketbridge/brokergate/internal/apperrors"
	"github.com/marketbridge/brokergate/internal/identity"
	"github.com/marketbridge/brokergate/internal/models"
	"github.com/marketbridge/brokergate/internal/security"
	"github.com/marketbridge/brokergate/internal/store"
)

// Principal identifies the authenticated caller of a lifecycle operation.
type Principal struct {
	AccountNumber string
	IsAdmin       bool
}

// CanManage reports whether the caller may act on the given account.
func (p Principal) CanManage(accountNumber string) bool {
	return p.IsAdmin || p.AccountNumber == accountNumber
}

// CreateParams carries the account-opening request.
type CreateParams struct {
	Payload  alpaca.AccountPayload
	Password string
	IP       string
}

// Coordinator drives the account lifecycle across the gateway and the store.
type Coordinator struct {
	users   *store.UserStore
	gaps    *store.GapJournal
	gateway alpaca.Gateway
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(users *store.UserStore, gaps *store.GapJournal, gateway alpaca.Gateway) *Coordinator {
	return &Coordinator{users: users, gaps: gaps, gateway: gateway}
}

// bcrypt rejects inputs over 72 bytes.
const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

// Create validates the payload, opens the account at the gateway, and mirrors
// the result locally. Nothing is written locally unless the gateway call
// succeeds.
func (c *Coordinator) Create(ctx context.Context, params CreateParams) (*models.User, error) {
	violations := identity.ValidateAccount(params.Payload)
	if len(params.Password) < minPasswordLen || len(params.Password) > maxPasswordLen {
		violations = append(violations, identity.Violation{
			Field:   "password",
			Message: fmt.Sprintf("must be between %d and %d characters", minPasswordLen, maxPasswordLen),
		})
	}
	if len(violations) > 0 {
		return nil, &apperrors.ValidationError{Violations: violations}
	}

	if err := c.users.CheckAvailable(ctx, map[string]string{
		"email_address": params.Payload.Contact.EmailAddress,
		"phone_number":  params.Payload.Contact.PhoneNumber,
	}, ""); err != nil {
		return nil, err
	}

	hashed, err := security.HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("account: hash password: %w", err)
	}

	result, err := c.gateway.CreateAccount(ctx, params.Payload)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		AlpacaID:              result.Fields.AlpacaID,
		AccountNumber:         result.Fields.AccountNumber,
		Status:                result.Fields.Status,
		GivenName:             result.Fields.GivenName,
		FamilyName:            result.Fields.FamilyName,
		EmailAddress:          result.Fields.EmailAddress,
		PhoneNumber:           result.Fields.PhoneNumber,
		TaxID:                 result.Fields.TaxID,
		TaxIDType:             result.Fields.TaxIDType,
		CountryOfTaxResidence: result.Fields.CountryOfTaxResidence,
		Password:              hashed,
		IsActive:              true,
		IPAddress:             params.IP,
		Alpaca:                datatypes.JSON(result.Mirror),
	}
	if err := c.users.Create(ctx, user); err != nil {
		var conflict *apperrors.ConflictError
		if errors.As(err, &conflict) {
			// Account exists upstream but not locally; the sweep cannot
			// invent credentials, so this needs an operator.
			c.journalGap(ctx, "create", result.Fields, err)
			return nil, err
		}
		c.journalGap(ctx, "create", result.Fields, err)
		return nil, &apperrors.ReconciliationGap{
			Operation:     "create",
			AlpacaID:      result.Fields.AlpacaID,
			AccountNumber: result.Fields.AccountNumber,
			Err:           err,
		}
	}
	return user, nil
}

// Get returns the local record for the account.
func (c *Coordinator) Get(ctx context.Context, caller Principal, accountNumber string) (*models.User, error) {
	if !caller.CanManage(accountNumber) {
		return nil, &apperrors.AuthorizationError{}
	}
	return c.users.FindByAccountNumber(ctx, accountNumber)
}

// Update patches the account at the gateway and mirrors the response locally.
// The account number and gateway id never change, whatever the payload says.
func (c *Coordinator) Update(ctx context.Context, caller Principal, accountNumber string, payload alpaca.AccountPayload) (*models.User, error) {
	if !caller.CanManage(accountNumber) {
		return nil, &apperrors.AuthorizationError{}
	}
	user, err := c.users.FindByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if user.Status == models.StatusAccountClosed {
		return nil, &apperrors.ConflictError{Reason: "account is closed"}
	}
	if violations := identity.ValidateAccount(payload); len(violations) > 0 {
		return nil, &apperrors.ValidationError{Violations: violations}
	}

	// A duplicate contact field would pass upstream and then fail the local
	// mirror write with a gap the sweep can never repair, so it is refused
	// before the gateway sees it.
	pending := make(map[string]string, 2)
	if email := payload.Contact.EmailAddress; email != "" && email != user.EmailAddress {
		pending["email_address"] = email
	}
	if phone := payload.Contact.PhoneNumber; phone != "" && phone != user.PhoneNumber {
		pending["phone_number"] = phone
	}
	if len(pending) > 0 {
		if err := c.users.CheckAvailable(ctx, pending, accountNumber); err != nil {
			return nil, err
		}
	}

	result, err := c.gateway.UpdateAccount(ctx, user.AlpacaID, payload)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"status":                   result.Fields.Status,
		"given_name":               result.Fields.GivenName,
		"family_name":              result.Fields.FamilyName,
		"email_address":            result.Fields.EmailAddress,
		"phone_number":             result.Fields.PhoneNumber,
		"tax_id":                   result.Fields.TaxID,
		"tax_id_type":              result.Fields.TaxIDType,
		"country_of_tax_residence": result.Fields.CountryOfTaxResidence,
		"alpaca":                   datatypes.JSON(result.Mirror),
	}
	if err := c.users.Update(ctx, accountNumber, updates); err != nil {
		c.journalGap(ctx, "update", result.Fields, err)
		return nil, &apperrors.ReconciliationGap{
			Operation:     "update",
			AlpacaID:      user.AlpacaID,
			AccountNumber: accountNumber,
			Err:           err,
		}
	}
	return c.users.FindByAccountNumber(ctx, accountNumber)
}

// Close closes the account at the gateway and marks the local record closed.
// Closing an already-closed account fails fast with a ConflictError and never
// reaches the gateway.
func (c *Coordinator) Close(ctx context.Context, caller Principal, accountNumber string) error {
	if !caller.CanManage(accountNumber) {
		return &apperrors.AuthorizationError{}
	}
	return c.transition(ctx, "close", accountNumber, models.StatusAccountClosed, c.gateway.CloseAccount, map[string]any{"is_active": false})
}

// Reopen reopens a closed account. Admin only.
func (c *Coordinator) Reopen(ctx context.Context, caller Principal, accountNumber string) error {
	if !caller.IsAdmin {
		return &apperrors.AuthorizationError{Reason: "reopening requires an administrator"}
	}
	return c.transition(ctx, "reopen", accountNumber, models.StatusActive, c.gateway.ReopenAccount, map[string]any{"is_active": true})
}

// transition runs one gateway status action and applies the guarded local
// status write. An account already in the target status conflicts before any
// gateway call, and so does losing the race to a concurrent identical
// transition.
func (c *Coordinator) transition(ctx context.Context, operation, accountNumber, target string, action func(context.Context, string) error, extra map[string]any) error {
	user, err := c.users.FindByAccountNumber(ctx, accountNumber, "account_number", "alpaca_id", "status")
	if err != nil {
		return err
	}
	if user.Status == target {
		return &apperrors.ConflictError{Reason: "status already " + target}
	}

	if err := action(ctx, user.AlpacaID); err != nil {
		return err
	}

	if err := c.users.TransitionStatus(ctx, accountNumber, target, extra); err != nil {
		var conflict *apperrors.ConflictError
		if errors.As(err, &conflict) {
			return err
		}
		c.journalGap(ctx, operation, alpaca.UserFields{AlpacaID: user.AlpacaID, AccountNumber: accountNumber}, err)
		return &apperrors.ReconciliationGap{
			Operation:     operation,
			AlpacaID:      user.AlpacaID,
			AccountNumber: accountNumber,
			Err:           err,
		}
	}
	return nil
}

// journalGap records a gateway/local divergence and logs it on its own
// channel so operators can alert on it.
func (c *Coordinator) journalGap(ctx context.Context, operation string, fields alpaca.UserFields, cause error) {
	entry := &models.ReconciliationGap{
		Operation:     operation,
		AlpacaID:      fields.AlpacaID,
		AccountNumber: fields.AccountNumber,
		Detail:        cause.Error(),
	}
	if err := c.gaps.Record(ctx, entry); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"operation": operation,
			"alpaca_id": fields.AlpacaID,
		}).Error("reconciliation gap could not be journaled")
		return
	}
	log.WithError(cause).WithFields(log.Fields{
		"operation": operation,
		"alpaca_id": fields.AlpacaID,
		"gap_id":    entry.ID,
	}).Error("reconciliation gap recorded")
}
