package alpaca

import (
	"encoding/json"
	"fmt"
)

// Top-level and nested fields pulled out of a gateway account document into
// UserFields. The whitelist is fixed; everything else stays in the mirror,
// including fields this service has never seen.
var (
	rootFields     = []string{"id", "account_number", "status"}
	identityFields = []string{"given_name", "family_name", "tax_id", "tax_id_type", "country_of_tax_residence"}
	contactFields  = []string{"email_address", "phone_number"}
)

// SplitAccount consumes a raw gateway account document and returns the
// whitelisted identity fields plus the residual mirror. The input bytes are
// never modified; the mirror is re-marshaled from a fresh decode. No value
// appears on both sides of the split.
func SplitAccount(raw []byte) (*AccountResult, error) {
	var doc map[string]any
	if errUnmarshal := json.Unmarshal(raw, &doc); errUnmarshal != nil {
		return nil, fmt.Errorf("split account: decode: %w", errUnmarshal)
	}

	fields := UserFields{
		AlpacaID:      popString(doc, "id"),
		AccountNumber: popString(doc, "account_number"),
		Status:        popString(doc, "status"),
	}

	if identity, ok := doc["identity"].(map[string]any); ok {
		fields.GivenName = popString(identity, "given_name")
		fields.FamilyName = popString(identity, "family_name")
		fields.TaxID = popString(identity, "tax_id")
		fields.TaxIDType = popString(identity, "tax_id_type")
		fields.CountryOfTaxResidence = popString(identity, "country_of_tax_residence")
	}
	if contact, ok := doc["contact"].(map[string]any); ok {
		fields.EmailAddress = popString(contact, "email_address")
		fields.PhoneNumber = popString(contact, "phone_number")
	}

	mirror, errMarshal := json.Marshal(doc)
	if errMarshal != nil {
		return nil, fmt.Errorf("split account: encode mirror: %w", errMarshal)
	}
	return &AccountResult{Fields: fields, Mirror: mirror}, nil
}

// popString removes key from the decoded document and returns its string
// value, or "" when absent or not a string.
func popString(doc map[string]any, key string) string {
	value, ok := doc[key]
	if !ok {
		return ""
	}
	delete(doc, key)
	str, _ := value.(string)
	return str
}
