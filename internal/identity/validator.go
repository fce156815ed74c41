// Package identity validates candidate account payloads against the
// compliance rule set imposed by the brokerage. Validation is pure: no I/O,
// no mutation, and malformed input is reported as a violation, never as a
// panic or error.
package identity

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/marketbridge/brokergate/internal/alpaca"
)

// Violation reports one field that failed validation.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var (
	ssnPattern = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	govIDChars = regexp.MustCompile(`^[A-Za-z0-9+.-]{2,40}$`)
	// Country code of 1-3 digits followed by exactly 10 subscriber digits.
	phonePattern  = regexp.MustCompile(`^\+[0-9]{1,3}[0-9]{10}$`)
	emailPattern  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	postalPattern = regexp.MustCompile(`^\d{5}[\x20-\x7e]{0,5}$`)
)

// ValidateAccount checks a candidate account payload and returns the
// violations in field order. An empty result means the payload is valid.
func ValidateAccount(payload alpaca.AccountPayload) []Violation {
	var out []Violation
	add := func(field, message string) {
		out = append(out, Violation{Field: field, Message: message})
	}

	validateName(payload.Identity.GivenName, "identity.given_name", add)
	validateName(payload.Identity.FamilyName, "identity.family_name", add)

	country := payload.Identity.CountryOfTaxResidence
	if country != "USA" && country != "TUR" {
		add("identity.country_of_tax_residence", "must be USA or TUR")
	}

	switch payload.Identity.TaxIDType {
	case alpaca.TaxIDTypeUSASSN:
		validateSSN(payload.Identity.TaxID, add)
	case alpaca.TaxIDTypeOtherGovID:
		validateGovID(payload.Identity.TaxID, add)
	default:
		add("identity.tax_id_type", "must be USA_SSN or OTHER_GOV_ID")
	}

	if len(payload.Identity.FundingSource) == 0 {
		add("identity.funding_source", "at least one funding source is required")
	}
	for _, source := range payload.Identity.FundingSource {
		if _, ok := fundingSources[source]; !ok {
			add("identity.funding_source", "unknown funding source: "+source)
		}
	}

	if !emailPattern.MatchString(payload.Contact.EmailAddress) {
		add("contact.email_address", "must be a valid email address")
	}

	if !phonePattern.MatchString(payload.Contact.PhoneNumber) {
		add("contact.phone_number", "must be + followed by a 1-3 digit country code and a 10 digit number")
	}

	validateCity(payload.Contact.City, add)
	validateState(payload.Contact.State, country, add)

	if !postalPattern.MatchString(payload.Contact.PostalCode) {
		add("contact.postal_code", "must be 5 digits optionally followed by up to 5 characters")
	}

	if payload.Contact.Unit != "" && !printableASCII(payload.Contact.Unit, 1, 10) {
		add("contact.unit", "must be 1-10 printable characters")
	}

	for i, agreement := range payload.Agreements {
		validateAgreement(i, agreement, add)
	}

	return out
}

func validateName(name, field string, add func(field, message string)) {
	if !printableASCII(name, 3, 20) {
		add(field, "must be 3-20 printable ASCII characters")
	}
}

// validateSSN applies the broker's USA_SSN rules: DDD-DD-DDDD form, no
// degenerate area/group/serial numbers, and no placeholder sequences.
func validateSSN(taxID string, add func(field, message string)) {
	const field = "identity.tax_id"
	if !ssnPattern.MatchString(taxID) {
		add(field, "must be formatted as DDD-DD-DDDD")
		return
	}
	if countDigits(taxID) <= len(taxID)-countDigits(taxID) {
		add(field, "must be mostly numeric")
		return
	}
	if _, banned := bannedTaxIDs[taxID]; banned {
		add(field, "is a placeholder value")
		return
	}
	if allSameDigit(taxID) {
		add(field, "must not repeat a single digit")
		return
	}
	area, group, serial := taxID[0:3], taxID[4:6], taxID[7:11]
	if area == "000" || area == "666" {
		add(field, "area number is invalid")
		return
	}
	if group == "00" {
		add(field, "group number is invalid")
		return
	}
	if serial == "0000" {
		add(field, "serial number is invalid")
	}
}

// validateGovID applies the OTHER_GOV_ID rules: 2-40 characters from a
// restricted charset, no placeholder sequences.
func validateGovID(taxID string, add func(field, message string)) {
	const field = "identity.tax_id"
	if !govIDChars.MatchString(taxID) {
		add(field, "must be 2-40 characters of letters, digits, +, . or -")
		return
	}
	if _, banned := bannedTaxIDs[taxID]; banned {
		add(field, "is a placeholder value")
		return
	}
	if allSameChar(taxID) {
		add(field, "must not repeat a single character")
	}
}

func validateCity(city string, add func(field, message string)) {
	if !alnumSpace(city, 1, 50) {
		add("contact.city", "must be 1-50 alphanumeric characters")
		return
	}
	if onlyDigits(city) {
		add("contact.city", "must not be purely numeric")
	}
}

// validateState requires a known postal code for USA residents and a
// free-form alphanumeric name otherwise.
func validateState(state, country string, add func(field, message string)) {
	const field = "contact.state"
	if country == "USA" {
		if _, ok := usStateCodes[state]; !ok {
			add(field, "must be a US state, district, territory or military code")
		}
		return
	}
	if !alnumSpace(state, 0, 50) {
		add(field, "must be at most 50 alphanumeric characters")
		return
	}
	if state != "" && onlyDigits(state) {
		add(field, "must not be purely numeric")
	}
}

func validateAgreement(index int, agreement alpaca.Agreement, add func(field, message string)) {
	field := "agreements[" + strconv.Itoa(index) + "]"
	if _, ok := agreementKinds[agreement.Agreement]; !ok {
		add(field+".agreement", "must be account_agreement, customer_agreement or margin_agreement")
	}
	if _, errParse := time.Parse(time.RFC3339, agreement.SignedAt); errParse != nil {
		add(field+".signed_at", "must be an RFC 3339 timestamp")
	}
	if strings.TrimSpace(agreement.IPAddress) == "" {
		add(field+".ip_address", "is required")
	}
}

func printableASCII(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

func alnumSpace(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == ' ':
		default:
			return false
		}
	}
	return true
}

func onlyDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}

// allSameDigit reports whether every digit in s is the same digit.
func allSameDigit(s string) bool {
	var seen byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			continue
		}
		if seen == 0 {
			seen = c
			continue
		}
		if c != seen {
			return false
		}
	}
	return seen != 0
}

func allSameChar(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return len(s) > 0
}

