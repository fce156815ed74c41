package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marketbridge/brokergate/internal/apperrors"
	"github.com/marketbridge/brokergate/internal/models"
)

// GapJournal records gateway/local divergence so a later sweep can repair it.
type GapJournal struct {
	db *gorm.DB
}

// NewGapJournal constructs a GapJournal.
func NewGapJournal(conn *gorm.DB) *GapJournal {
	return &GapJournal{db: conn}
}

// Record appends one journal entry.
func (j *GapJournal) Record(ctx context.Context, gap *models.ReconciliationGap) error {
	if gap == nil {
		return fmt.Errorf("gap journal: gap is nil")
	}
	if err := j.db.WithContext(ctx).Create(gap).Error; err != nil {
		return fmt.Errorf("gap journal: record: %w", err)
	}
	return nil
}

// Unresolved returns every open journal entry, oldest first.
func (j *GapJournal) Unresolved(ctx context.Context) ([]models.ReconciliationGap, error) {
	var gaps []models.ReconciliationGap
	if err := j.db.WithContext(ctx).Where("resolved_at IS NULL").Order("created_at ASC").Find(&gaps).Error; err != nil {
		return nil, fmt.Errorf("gap journal: list: %w", err)
	}
	return gaps, nil
}

// Resolve stamps one entry as repaired.
func (j *GapJournal) Resolve(ctx context.Context, id uint64) error {
	now := time.Now().UTC()
	result := j.db.WithContext(ctx).Model(&models.ReconciliationGap{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Update("resolved_at", &now)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("gap journal: resolve %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
