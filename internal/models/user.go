package models

import (
	"time"

	"gorm.io/datatypes"
)

// Account lifecycle statuses driven by this service. The gateway reports
// finer-grained intermediate statuses (SUBMITTED, ACTION_REQUIRED,
// APPROVAL_PENDING, APPROVED, REJECTED, ONBOARDING); those are stored verbatim
// and never interpreted.
const (
	StatusActive        = "ACTIVE"
	StatusAccountClosed = "ACCOUNT_CLOSED"
)

// User represents a brokerage end-user account stored in the database.
// The broker's own projection of the account lives in the Alpaca column as an
// opaque JSON document so fields this service does not know about survive a
// round trip back to the gateway.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AccountNumber string `gorm:"type:text;not null;uniqueIndex"` // Broker-assigned account number, immutable.

	GivenName  string `gorm:"type:text;not null"` // Legal given name.
	FamilyName string `gorm:"type:text;not null"` // Legal family name.

	TaxID                 string `gorm:"type:text;not null"` // Tax identifier.
	TaxIDType             string `gorm:"type:text;not null"` // USA_SSN or OTHER_GOV_ID.
	CountryOfTaxResidence string `gorm:"type:text;not null"` // ISO country of tax residence.

	PhoneNumber  string `gorm:"type:text;not null;uniqueIndex"` // E.164-style phone number.
	EmailAddress string `gorm:"type:text;not null;uniqueIndex"` // Login principal.
	Password     string `gorm:"type:text;not null"`             // Hashed password.

	Status string `gorm:"type:text;not null"` // Account lifecycle status.

	IsAdmin  bool `gorm:"not null;default:false"` // Administrative capability.
	IsActive bool `gorm:"not null;default:true"`  // Whether the user can sign in.

	IPAddress string `gorm:"type:text"` // Request origin captured at creation.

	AlpacaID string         `gorm:"column:alpaca_id;type:text;not null;uniqueIndex"` // Gateway account UUID, set once.
	Alpaca   datatypes.JSON `gorm:"column:alpaca;type:jsonb;not null"`               // Gateway account mirror.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
