package models

import "time"

// ReconciliationGap journals a lifecycle transition that succeeded at the
// gateway but failed to land locally. Rows stay until a sweep (or an operator)
// marks them resolved; the two systems disagree until then.
type ReconciliationGap struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	Operation     string `gorm:"type:text;not null" json:"operation"` // Lifecycle transition that gapped (create/update/close/reopen).
	AlpacaID      string `gorm:"column:alpaca_id;type:text;not null;index" json:"alpaca_id"`
	AccountNumber string `gorm:"type:text" json:"account_number"` // Empty when the gap happened before a local record existed.
	Detail        string `gorm:"type:text;not null" json:"detail"`

	CreatedAt  time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	ResolvedAt *time.Time `gorm:"index" json:"resolved_at,omitempty"`
}
