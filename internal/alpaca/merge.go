package alpaca

import (
	"encoding/json"
	"fmt"
)

// MergeAccount is the inverse of SplitAccount: it rebuilds the full account
// document from the locally held fields and the residual mirror. Empty local
// values are still written so the shape matches what the gateway returned.
func MergeAccount(fields UserFields, mirror []byte) (json.RawMessage, error) {
	doc := map[string]any{}
	if len(mirror) > 0 {
		if errUnmarshal := json.Unmarshal(mirror, &doc); errUnmarshal != nil {
			return nil, fmt.Errorf("merge account: decode mirror: %w", errUnmarshal)
		}
	}

	doc["id"] = fields.AlpacaID
	doc["account_number"] = fields.AccountNumber
	doc["status"] = fields.Status

	identity, ok := doc["identity"].(map[string]any)
	if !ok {
		identity = map[string]any{}
	}
	identity["given_name"] = fields.GivenName
	identity["family_name"] = fields.FamilyName
	identity["tax_id"] = fields.TaxID
	identity["tax_id_type"] = fields.TaxIDType
	identity["country_of_tax_residence"] = fields.CountryOfTaxResidence
	doc["identity"] = identity

	contact, ok := doc["contact"].(map[string]any)
	if !ok {
		contact = map[string]any{}
	}
	contact["email_address"] = fields.EmailAddress
	contact["phone_number"] = fields.PhoneNumber
	doc["contact"] = contact

	merged, errMarshal := json.Marshal(doc)
	if errMarshal != nil {
		return nil, fmt.Errorf("merge account: encode: %w", errMarshal)
	}
	return merged, nil
}
