package config

import (
	"path/filepath"
)

// Paths holds the filesystem conventions for managed sites
type Paths struct {
	FSRoot     string // Default: /opt/easyengine/sites
	ConfigRoot string // Default: /opt/easyengine/services
	BackupRoot string // Default: /opt/easyengine/backups
	TempDir    string // Default: os.TempDir()
}

// SiteRoot returns the filesystem root of a site
func (p Paths) SiteRoot(url string) string {
	return filepath.Join(p.FSRoot, url)
}

// ComposeFile returns the compose file path inside a site root
func ComposeFile(siteRoot string) string {
	return filepath.Join(siteRoot, "docker-compose.yml")
}

// Htdocs returns the content directory inside a site root
func Htdocs(siteRoot string) string {
	return filepath.Join(siteRoot, "app", "htdocs")
}

// RuntimeConfigFile returns the runtime config file (wp-config.php) inside a site root
func RuntimeConfigFile(siteRoot string) string {
	return filepath.Join(siteRoot, "app", "wp-config.php")
}

// ConfigTree returns the config directory inside a site root
func ConfigTree(siteRoot string) string {
	return filepath.Join(siteRoot, "config")
}

// NginxCustom returns the custom proxy-config directory inside a site root
func NginxCustom(siteRoot string) string {
	return filepath.Join(siteRoot, "config", "nginx", "custom")
}

// RedirectConf returns the proxy redirect config for a site
func (p Paths) RedirectConf(url string) string {
	return filepath.Join(p.ConfigRoot, "nginx", "conf.d", url+"-redirect.conf")
}

// CertsDir returns the directory the proxy loads certificates from
func (p Paths) CertsDir() string {
	return filepath.Join(p.ConfigRoot, "nginx", "certs")
}

// CertFiles returns the installed certificate, key and chain paths for a site
func (p Paths) CertFiles(url string) (crt, key, chain string) {
	dir := p.CertsDir()
	return filepath.Join(dir, url+".crt"), filepath.Join(dir, url+".key"), filepath.Join(dir, url+".chain.pem")
}

// ACMEDir returns the root of CA client state
func (p Paths) ACMEDir() string {
	return filepath.Join(p.ConfigRoot, "acme-conf")
}

// ACMECertsDir returns the CA client's certificate directory for a site
func (p Paths) ACMECertsDir(url string) string {
	return filepath.Join(p.ACMEDir(), "certs", url)
}

// ACMEVarDir returns the CA client's transient authorization directory for a site
func (p Paths) ACMEVarDir(url string) string {
	return filepath.Join(p.ACMEDir(), "var", url)
}

// ACMEAccountDir returns where the CA account key and registration live
func (p Paths) ACMEAccountDir() string {
	return filepath.Join(p.ACMEDir(), "account")
}

// BackupDir returns the default backup location for a site
func (p Paths) BackupDir(url string) string {
	return filepath.Join(p.BackupRoot, url)
}

// DumpFile returns the database dump path under a backup location
func DumpFile(location, url string) string {
	return filepath.Join(location, "db", url+".sql")
}

// ConfigMirror returns the temp path update mirrors the config tree to
func (p Paths) ConfigMirror(url string) string {
	return filepath.Join(p.TempDir, url+"-config")
}
