package model

import (
	"database/sql"
	"errors"
	"time"
)

// ErrSiteNotFound is returned by the store when no site matches the url
var ErrSiteNotFound = errors.New("site not found")

// Site is a managed website and the source of truth for its configuration
type Site struct {
	ID          int    `gorm:"primaryKey;autoIncrement" json:"id"`
	URL         string `gorm:"type:varchar(255);uniqueIndex:uk_sites_url;not null" json:"url"` // immutable once created
	FSPath      string `gorm:"type:varchar(1024);not null" json:"fsPath"`
	Type        string `gorm:"type:varchar(16);not null;index" json:"type"`
	Enabled     bool   `gorm:"not null;default:false;index" json:"enabled"`
	SSL         string `gorm:"type:varchar(16);not null;default:''" json:"ssl"`
	SSLWildcard bool   `gorm:"not null;default:false" json:"sslWildcard"`

	// Database, all NULL when the site has none
	DBHost     sql.NullString `gorm:"type:varchar(255);default:null" json:"-"`
	DBPort     sql.NullInt32  `gorm:"default:null" json:"-"`
	DBUser     sql.NullString `gorm:"type:varchar(64);default:null" json:"-"`
	DBPassword sql.NullString `gorm:"type:varchar(255);default:null" json:"-"`
	DBName     sql.NullString `gorm:"type:varchar(64);default:null" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for Site
func (Site) TableName() string {
	return "sites"
}

// Site type constants
const (
	SiteTypeHTML = "html"
	SiteTypePHP  = "php"
	SiteTypeWP   = "wp"
)

// SSL mode constants
const (
	SSLNone    = ""
	SSLLE      = "le"
	SSLInherit = "inherit"
)

// SiteTypes lists the closed set of supported site types
var SiteTypes = []string{SiteTypeHTML, SiteTypePHP, SiteTypeWP}

// ValidType reports whether t is a supported site type
func ValidType(t string) bool {
	for _, v := range SiteTypes {
		if v == t {
			return true
		}
	}
	return false
}

// NeedsDatabase reports whether a site type is provisioned with a database
func NeedsDatabase(t string) bool {
	return t == SiteTypeWP
}

// DBParams holds database connection parameters for a site
type DBParams struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"-"`
	Name     string `json:"name"`
}

// Database returns the site's database parameters, nil when it has none
func (s *Site) Database() *DBParams {
	if !s.DBHost.Valid || !s.DBName.Valid {
		return nil
	}
	p := &DBParams{
		Host:     s.DBHost.String,
		User:     s.DBUser.String,
		Password: s.DBPassword.String,
		Name:     s.DBName.String,
		Port:     3306,
	}
	if s.DBPort.Valid {
		p.Port = int(s.DBPort.Int32)
	}
	return p
}

// SetDatabase attaches (or with nil, clears) database parameters
func (s *Site) SetDatabase(p *DBParams) {
	if p == nil {
		s.DBHost = sql.NullString{}
		s.DBPort = sql.NullInt32{}
		s.DBUser = sql.NullString{}
		s.DBPassword = sql.NullString{}
		s.DBName = sql.NullString{}
		return
	}
	s.DBHost = sql.NullString{String: p.Host, Valid: true}
	s.DBPort = sql.NullInt32{Int32: int32(p.Port), Valid: p.Port != 0}
	s.DBUser = sql.NullString{String: p.User, Valid: true}
	s.DBPassword = sql.NullString{String: p.Password, Valid: true}
	s.DBName = sql.NullString{String: p.Name, Valid: true}
}

// HasSSL reports whether the site serves TLS (issued or inherited)
func (s *Site) HasSSL() bool {
	return s.SSL != SSLNone
}
