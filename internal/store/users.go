// Package store persists local user records and reconciliation journal
// entries to PostgreSQL via GORM. Tests run the same code against SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/marketbridge/brokergate/internal/apperrors"
	"github.com/marketbridge/brokergate/internal/db"
	"github.com/marketbridge/brokergate/internal/models"
)

// UserStore reads and writes mirrored user records.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore constructs a UserStore.
func NewUserStore(conn *gorm.DB) *UserStore {
	return &UserStore{db: conn}
}

// uniqueKeys are the columns carrying a unique index, in the order duplicate
// checks report them.
var uniqueKeys = []string{"account_number", "email_address", "phone_number", "alpaca_id"}

// CheckAvailable reports a ConflictError naming every unique key already
// taken by another record. Used before the gateway call so a doomed create or
// update never reaches the upstream. excludeAccountNumber skips the caller's
// own record so an update does not conflict with itself.
func (s *UserStore) CheckAvailable(ctx context.Context, values map[string]string, excludeAccountNumber string) error {
	taken := make([]string, 0, len(uniqueKeys))
	for _, key := range uniqueKeys {
		value, ok := values[key]
		if !ok || value == "" {
			continue
		}
		query := s.db.WithContext(ctx).Model(&models.User{}).Where(key+" = ?", value)
		if excludeAccountNumber != "" {
			query = query.Where("account_number <> ?", excludeAccountNumber)
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return fmt.Errorf("user store: check %s: %w", key, err)
		}
		if count > 0 {
			taken = append(taken, key)
		}
	}
	if len(taken) > 0 {
		return &apperrors.ConflictError{Reason: "already in use", Fields: taken}
	}
	return nil
}

// Create inserts a new user record. Unique-index violations surface as a
// ConflictError so a race lost between CheckAvailable and the insert still
// maps to the same failure.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user store: user is nil")
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return &apperrors.ConflictError{Reason: "already in use", Fields: duplicateFields(err)}
		}
		return fmt.Errorf("user store: create: %w", err)
	}
	return nil
}

// FindByAccountNumber loads one record. When fields are given only those
// columns are selected.
func (s *UserStore) FindByAccountNumber(ctx context.Context, accountNumber string, fields ...string) (*models.User, error) {
	var user models.User
	query := s.db.WithContext(ctx).Where("account_number = ?", accountNumber)
	if len(fields) > 0 {
		query = query.Select(fields)
	}
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("user store: find %s: %w", accountNumber, err)
	}
	return &user, nil
}

// FindByEmail loads one record by email address for session login.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email_address = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("user store: find by email: %w", err)
	}
	return &user, nil
}

// FindByAlpacaID loads one record by its gateway-assigned identifier.
func (s *UserStore) FindByAlpacaID(ctx context.Context, alpacaID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("alpaca_id = ?", alpacaID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("user store: find by alpaca id: %w", err)
	}
	return &user, nil
}

// Update applies a partial column update to one record. Zero matched rows
// means the record does not exist.
func (s *UserStore) Update(ctx context.Context, accountNumber string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("account_number = ?", accountNumber).Updates(updates)
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return &apperrors.ConflictError{Reason: "already in use", Fields: duplicateFields(result.Error)}
		}
		return fmt.Errorf("user store: update %s: %w", accountNumber, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// TransitionStatus moves a record to the target status only if it is not
// there already. The guard runs inside the UPDATE itself, so two concurrent
// close requests cannot both win. Zero matched rows reports either a missing
// record or a lost race, distinguished by a follow-up lookup.
func (s *UserStore) TransitionStatus(ctx context.Context, accountNumber, target string, extra map[string]any) error {
	updates := map[string]any{"status": target}
	for column, value := range extra {
		updates[column] = value
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("account_number = ? AND status <> ?", accountNumber, target).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("user store: transition %s: %w", accountNumber, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("account_number = ?", accountNumber).Count(&count).Error; err != nil {
			return fmt.Errorf("user store: transition %s: %w", accountNumber, err)
		}
		if count == 0 {
			return apperrors.ErrNotFound
		}
		return &apperrors.ConflictError{Reason: "status already " + target}
	}
	return nil
}

// ListFilter narrows an admin listing.
type ListFilter struct {
	Status string
	Search string
	Limit  int
	Offset int
}

// List returns user records for the admin surface, newest first.
func (s *UserStore) List(ctx context.Context, filter ListFilter) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := db.NormalizeLikePattern(s.db, "%"+search+"%")
		query = query.Where(
			db.CaseInsensitiveLikeExpr(s.db, "account_number")+
				" OR "+db.CaseInsensitiveLikeExpr(s.db, "email_address")+
				" OR "+db.CaseInsensitiveLikeExpr(s.db, "family_name"),
			pattern, pattern, pattern,
		)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user store: count: %w", err)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var users []models.User
	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("user store: list: %w", err)
	}
	return users, total, nil
}

// isDuplicateKey reports whether err is a unique-constraint violation on any
// supported dialect.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// duplicateFields extracts which unique columns a constraint error names.
func duplicateFields(err error) []string {
	msg := strings.ToLower(err.Error())
	fields := make([]string, 0, 1)
	for _, key := range uniqueKeys {
		if strings.Contains(msg, key) {
			fields = append(fields, key)
		}
	}
	return fields
}
