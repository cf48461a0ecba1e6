package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"go_sitectl/internal/model"
)

// whereColumns maps the field names callers may filter on to columns
var whereColumns = map[string]string{
	"url":          "url",
	"type":         "type",
	"enabled":      "enabled",
	"ssl":          "ssl",
	"ssl_wildcard": "ssl_wildcard",
	"db_host":      "db_host",
}

// SiteStore persists Site records in MySQL
type SiteStore struct {
	db *gorm.DB
}

// NewSiteStore creates a gorm-backed site store
func NewSiteStore(db *gorm.DB) *SiteStore {
	return &SiteStore{db: db}
}

// Find returns the site with the given url or model.ErrSiteNotFound
func (s *SiteStore) Find(ctx context.Context, url string) (*model.Site, error) {
	var site model.Site
	err := s.db.WithContext(ctx).Where("url = ?", url).First(&site).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", url, model.ErrSiteNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load site %s: %w", url, err)
	}
	return &site, nil
}

// All returns every site ordered by url
func (s *SiteStore) All(ctx context.Context) ([]model.Site, error) {
	var sites []model.Site
	if err := s.db.WithContext(ctx).Order("url ASC").Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	return sites, nil
}

// Where returns sites whose field equals value
func (s *SiteStore) Where(ctx context.Context, field string, value interface{}) ([]model.Site, error) {
	column, ok := whereColumns[field]
	if !ok {
		return nil, fmt.Errorf("unsupported filter field %q", field)
	}
	var sites []model.Site
	if err := s.db.WithContext(ctx).Where(column+" = ?", value).Order("url ASC").Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("failed to query sites by %s: %w", field, err)
	}
	return sites, nil
}

// Save inserts or updates a site record
func (s *SiteStore) Save(ctx context.Context, site *model.Site) error {
	if err := s.db.WithContext(ctx).Save(site).Error; err != nil {
		return fmt.Errorf("failed to save site %s: %w", site.URL, err)
	}
	return nil
}

// Delete removes the site record; a missing record yields model.ErrSiteNotFound
func (s *SiteStore) Delete(ctx context.Context, url string) error {
	result := s.db.WithContext(ctx).Where("url = ?", url).Delete(&model.Site{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete site %s: %w", url, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", url, model.ErrSiteNotFound)
	}
	return nil
}
