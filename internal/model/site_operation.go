package model

import (
	"time"

	"gorm.io/datatypes"
)

// SiteOperation is one journaled lifecycle operation
type SiteOperation struct {
	ID          int               `gorm:"primaryKey;autoIncrement" json:"id"`
	OperationID string            `gorm:"type:char(36);uniqueIndex:uk_site_operations_op;not null" json:"operationId"`
	SiteURL     string            `gorm:"type:varchar(255);not null;index" json:"siteUrl"`
	Action      string            `gorm:"type:varchar(32);not null" json:"action"`
	Status      string            `gorm:"type:varchar(16);not null;default:'running';index" json:"status"`
	Level       int               `gorm:"not null;default:0" json:"level"`
	Detail      datatypes.JSONMap `gorm:"type:json" json:"detail,omitempty"`
	Error       string            `gorm:"type:varchar(1024)" json:"error,omitempty"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"startedAt"`
	FinishedAt  *time.Time        `json:"finishedAt,omitempty"`
}

// TableName specifies the table name for SiteOperation
func (SiteOperation) TableName() string {
	return "site_operations"
}

// Operation status constants
const (
	OperationStatusRunning     = "running"
	OperationStatusSuccess     = "success"
	OperationStatusFailed      = "failed"
	OperationStatusRolledBack  = "rolled_back"
	OperationStatusInterrupted = "interrupted"
)
