package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"go_sitectl/internal/model"
)

// Journal records lifecycle operations in site_operations
type Journal struct {
	db *gorm.DB
}

// NewJournal creates a gorm-backed operation journal
func NewJournal(db *gorm.DB) *Journal {
	return &Journal{db: db}
}

// Begin inserts a running operation row
func (j *Journal) Begin(ctx context.Context, opID, url, action string) error {
	row := &model.SiteOperation{
		OperationID: opID,
		SiteURL:     url,
		Action:      action,
		Status:      model.OperationStatusRunning,
	}
	if err := j.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to journal operation %s: %w", opID, err)
	}
	return nil
}

// Finish records the terminal status of an operation
func (j *Journal) Finish(ctx context.Context, opID, status string, level int, opErr error, detail map[string]interface{}) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":      status,
		"level":       level,
		"finished_at": &now,
	}
	if opErr != nil {
		msg := opErr.Error()
		if len(msg) > 1024 {
			msg = msg[:1024]
		}
		updates["error"] = msg
	}
	if len(detail) > 0 {
		updates["detail"] = datatypes.JSONMap(detail)
	}

	err := j.db.WithContext(ctx).Model(&model.SiteOperation{}).
		Where("operation_id = ?", opID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to finish operation %s: %w", opID, err)
	}
	return nil
}

// Recent returns the latest operations for a site, newest first
func (j *Journal) Recent(ctx context.Context, url string, limit int) ([]model.SiteOperation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var ops []model.SiteOperation
	err := j.db.WithContext(ctx).
		Where("site_url = ?", url).
		Order("id DESC").
		Limit(limit).
		Find(&ops).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list operations for %s: %w", url, err)
	}
	return ops, nil
}
