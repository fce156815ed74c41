package account

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/marketbridge/brokergate/internal/apperrors"
	"github.com/marketbridge/brokergate/internal/models"
)

// Sweep walks the open reconciliation journal and repairs local records from
// gateway state. Gaps left by a failed create cannot be repaired without the
// caller's credentials, so they stay open for an operator. Returns the number
// of gaps resolved.
func (c *Coordinator) Sweep(ctx context.Context) (int, error) {
	gaps, err := c.gaps.Unresolved(ctx)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, gap := range gaps {
		if gap.Operation == "create" {
			log.WithFields(log.Fields{
				"gap_id":    gap.ID,
				"alpaca_id": gap.AlpacaID,
			}).Warn("create gap needs operator attention")
			continue
		}
		if err := c.repairFromGateway(ctx, gap); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"gap_id":    gap.ID,
				"operation": gap.Operation,
				"alpaca_id": gap.AlpacaID,
			}).Warn("gap repair failed, will retry next sweep")
			continue
		}
		if err := c.gaps.Resolve(ctx, gap.ID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return resolved, err
		}
		resolved++
	}
	return resolved, nil
}

// repairFromGateway overwrites the local mirror columns with the gateway's
// current view of the account.
func (c *Coordinator) repairFromGateway(ctx context.Context, gap models.ReconciliationGap) error {
	result, err := c.gateway.GetAccount(ctx, gap.AlpacaID)
	if err != nil {
		return err
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
		"is_active":                result.Fields.Status == models.StatusActive,
		"alpaca":                   datatypes.JSON(result.Mirror),
	}
	return c.users.Update(ctx, gap.AccountNumber, updates)
}
