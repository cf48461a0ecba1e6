package driver

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"go_sitectl/internal/config"
	"go_sitectl/internal/model"
)

// ComposeFile is the subset of the docker compose schema sitectl writes
type ComposeFile struct {
	Services map[string]ComposeService `yaml:"services"`
	Networks map[string]ComposeNetwork `yaml:"networks"`
}

// ComposeService is one service of a site's container group
type ComposeService struct {
	Image       string            `yaml:"image"`
	Restart     string            `yaml:"restart,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Volumes     []string          `yaml:"volumes,omitempty"`
	Networks    []string          `yaml:"networks,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
}

// ComposeNetwork references a network created outside compose
type ComposeNetwork struct {
	External bool   `yaml:"external"`
	Name     string `yaml:"name"`
}

// Images used per service
type Images struct {
	Nginx string
	PHP   string
	WP    string
}

// DefaultImages are used when none are configured
var DefaultImages = Images{
	Nginx: "easyengine/nginx:v4.6.6",
	PHP:   "easyengine/php8.2:v4.6.6",
	WP:    "easyengine/php8.2:v4.6.6",
}

// Provisioner lays out a site's filesystem tree and compose file
type Provisioner struct {
	FS         *LocalFS
	Images     Images
	GlobalHost string
	Network    string // global backend network the php service joins for db access
}

// NewProvisioner creates a provisioner writing through fs
func NewProvisioner(fs *LocalFS, cfg config.DockerConfig) *Provisioner {
	return &Provisioner{FS: fs, Images: DefaultImages, GlobalHost: cfg.GlobalDBHost, Network: cfg.GlobalBackendNetwork}
}

// Provision creates content and config directories and writes the compose file
func (p *Provisioner) Provision(site *model.Site, db *model.DBParams) error {
	for _, dir := range []string{config.Htdocs(site.FSPath), config.NginxCustom(site.FSPath)} {
		if err := p.FS.MkdirAll(dir); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(p.Compose(site, db))
	if err != nil {
		return fmt.Errorf("failed to render compose file for %s: %w", site.URL, err)
	}
	return p.FS.WriteFile(config.ComposeFile(site.FSPath), data, 0644)
}

// Compose builds the compose definition for a site
func (p *Provisioner) Compose(site *model.Site, db *model.DBParams) ComposeFile {
	labels := map[string]string{"io.sitectl.site": site.URL}
	nginx := ComposeService{
		Image:   p.Images.Nginx,
		Restart: "always",
		Environment: map[string]string{
			"VIRTUAL_HOST": site.URL,
		},
		Volumes: []string{
			"./app/htdocs:/var/www/htdocs",
			"./config/nginx/custom:/etc/nginx/custom",
		},
		Networks: []string{"site-network"},
		Labels:   labels,
	}
	if site.URL != "" && !site.SSLWildcard {
		nginx.Environment["VIRTUAL_HOST"] = site.URL + ",www." + site.URL
	}

	cf := ComposeFile{
		Services: map[string]ComposeService{"nginx": nginx},
		Networks: map[string]ComposeNetwork{
			"site-network": {External: true, Name: site.URL},
		},
	}

	switch site.Type {
	case model.SiteTypePHP, model.SiteTypeWP:
		image := p.Images.PHP
		if site.Type == model.SiteTypeWP {
			image = p.Images.WP
		}
		php := ComposeService{
			Image:    image,
			Restart:  "always",
			Volumes:  []string{"./app:/var/www"},
			Networks: []string{"site-network"},
			Labels:   labels,
		}
		if db != nil {
			php.Environment = map[string]string{
				"WORDPRESS_DB_HOST":     db.Host + ":" + strconv.Itoa(db.Port),
				"WORDPRESS_DB_USER":     db.User,
				"WORDPRESS_DB_PASSWORD": db.Password,
				"WORDPRESS_DB_NAME":     db.Name,
			}
			if p.Network != "" && db.Host == p.GlobalHost {
				php.Networks = append(php.Networks, "global-backend-network")
				cf.Networks["global-backend-network"] = ComposeNetwork{External: true, Name: p.Network}
			}
		}
		cf.Services["php"] = php
	}
	return cf
}
