package acme

import (
	"os"
	"path/filepath"

	"go_sitectl/internal/cert"
	"go_sitectl/internal/config"
)

// FileWriter writes files atomically
type FileWriter interface {
	WriteFile(path string, data []byte, perm os.FileMode) error
}

// Storage installs certificates where the proxy loads them and keeps a
// copy in the CA client's certificate directory
type Storage struct {
	FS    FileWriter
	Paths config.Paths
}

// NewStorage creates certificate storage
func NewStorage(fs FileWriter, paths config.Paths) *Storage {
	return &Storage{FS: fs, Paths: paths}
}

// Install writes certificate, key and chain for url
func (s *Storage) Install(url string, c *Certificate) error {
	crt, key, chain := s.Paths.CertFiles(url)
	archive := s.Paths.ACMECertsDir(url)
	files := []struct {
		path string
		data []byte
		perm os.FileMode
	}{
		{filepath.Join(archive, "cert.pem"), c.Cert, 0644},
		{filepath.Join(archive, "key.pem"), c.Key, 0600},
		{filepath.Join(archive, "chain.pem"), c.Chain, 0644},
		{crt, c.Cert, 0644},
		{key, c.Key, 0600},
		{chain, c.Chain, 0644},
	}
	for _, f := range files {
		if err := s.FS.WriteFile(f.path, f.data, f.perm); err != nil {
			return err
		}
	}
	return nil
}

// Load parses the installed certificate of url
func (s *Storage) Load(url string) (*cert.Info, error) {
	crt, _, _ := s.Paths.CertFiles(url)
	return cert.Load(crt)
}
