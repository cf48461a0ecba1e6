package sites

import (
	"time"

	"go_sitectl/internal/model"
)

// SiteDTO is the API view of a site; database credentials are omitted
type SiteDTO struct {
	URL         string    `json:"url"`
	Type        string    `json:"type"`
	Enabled     bool      `json:"enabled"`
	SSL         string    `json:"ssl"`
	SSLWildcard bool      `json:"sslWildcard"`
	FSPath      string    `json:"fsPath"`
	DBHost      string    `json:"dbHost,omitempty"`
	DBName      string    `json:"dbName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toDTO(s *model.Site) SiteDTO {
	dto := SiteDTO{
		URL:         s.URL,
		Type:        s.Type,
		Enabled:     s.Enabled,
		SSL:         s.SSL,
		SSLWildcard: s.SSLWildcard,
		FSPath:      s.FSPath,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if db := s.Database(); db != nil {
		dto.DBHost = db.Host
		dto.DBName = db.Name
	}
	return dto
}
