package driver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go_sitectl/internal/config"
	"go_sitectl/internal/model"
	"go_sitectl/internal/runner"
)

var (
	mysqlNamePattern     = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	mysqlPasswordPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
)

// MySQL manages site databases on the shared db container and moves data
// in and out through short-lived client containers
type MySQL struct {
	Runner        runner.Runner
	Bin           string
	GlobalHost    string
	Container     string
	RootPassword  string
	GlobalNetwork string
	SiteHost      string
	ClientImage   string
}

// NewMySQL creates a database driver from docker configuration
func NewMySQL(r runner.Runner, cfg config.DockerConfig) *MySQL {
	return &MySQL{
		Runner:        r,
		Bin:           cfg.Bin,
		GlobalHost:    cfg.GlobalDBHost,
		Container:     cfg.GlobalDBContainer,
		RootPassword:  cfg.GlobalDBRootPassword,
		GlobalNetwork: cfg.GlobalBackendNetwork,
		SiteHost:      cfg.SiteDBHost,
		ClientImage:   cfg.DBClientImage,
	}
}

// NewParams derives database parameters for a site on the global db host
func (m *MySQL) NewParams(url string) (*model.DBParams, error) {
	name := dbIdentifier(url, 64)
	password, err := randomHex(12)
	if err != nil {
		return nil, fmt.Errorf("generate db password: %w", err)
	}
	return &model.DBParams{
		Host:     m.GlobalHost,
		Port:     3306,
		User:     dbIdentifier(url, 32),
		Password: password,
		Name:     name,
	}, nil
}

// IsSiteLocal reports whether the database lives in the site's own container group
func (m *MySQL) IsSiteLocal(p *model.DBParams) bool {
	return p != nil && p.Host == m.SiteHost
}

// Network resolves the docker network a client needs to reach the db host.
// Empty means no network override.
func (m *MySQL) Network(url string, p *model.DBParams) string {
	switch p.Host {
	case m.GlobalHost:
		return m.GlobalNetwork
	case m.SiteHost:
		return url
	default:
		return ""
	}
}

// Create provisions schema and user on the global db host
func (m *MySQL) Create(ctx context.Context, p *model.DBParams) error {
	if m.IsSiteLocal(p) {
		return nil
	}
	if err := validateParams(p); err != nil {
		return err
	}
	sql := strings.Join([]string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci;", p.Name),
		fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY '%s';", p.User, p.Password),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON `%s`.* TO '%s'@'%%';", p.Name, p.User),
		"FLUSH PRIVILEGES;",
	}, " ")
	if _, err := m.rootExec(ctx, sql); err != nil {
		return fmt.Errorf("create database %s: %w", p.Name, err)
	}
	return nil
}

// Drop removes schema and user from the global db host. Databases inside
// the site's own container group go away with its containers.
func (m *MySQL) Drop(ctx context.Context, p *model.DBParams) error {
	if m.IsSiteLocal(p) {
		return nil
	}
	if err := validateParams(p); err != nil {
		return err
	}
	sql := fmt.Sprintf("DROP DATABASE IF EXISTS `%s`; DROP USER IF EXISTS '%s'@'%%'; FLUSH PRIVILEGES;", p.Name, p.User)
	if _, err := m.rootExec(ctx, sql); err != nil {
		return fmt.Errorf("drop database %s: %w", p.Name, err)
	}
	return nil
}

// Dump writes the site database to <location>/db/<url>.sql
func (m *MySQL) Dump(ctx context.Context, url string, p *model.DBParams, location string) error {
	args := m.clientArgs(url, p, location)
	args = append(args, "mysqldump",
		"--host="+p.Host,
		"--port="+strconv.Itoa(p.Port),
		"--user="+p.User,
		"--single-transaction",
		"--result-file="+containerDumpPath(url),
		p.Name,
	)
	if _, err := m.Runner.Run(ctx, m.Bin, args...); err != nil {
		return fmt.Errorf("dump database %s to %s: %w", p.Name, config.DumpFile(location, url), err)
	}
	return nil
}

// Restore loads <location>/db/<url>.sql into the site database
func (m *MySQL) Restore(ctx context.Context, url string, p *model.DBParams, location string) error {
	args := m.clientArgs(url, p, location)
	args = append(args, "mysql",
		"--host="+p.Host,
		"--port="+strconv.Itoa(p.Port),
		"--user="+p.User,
		p.Name,
		"-e", "source "+containerDumpPath(url),
	)
	if _, err := m.Runner.Run(ctx, m.Bin, args...); err != nil {
		return fmt.Errorf("restore database %s from %s: %w", p.Name, config.DumpFile(location, url), err)
	}
	return nil
}

func (m *MySQL) clientArgs(url string, p *model.DBParams, location string) []string {
	args := []string{"run", "--rm"}
	if network := m.Network(url, p); network != "" {
		args = append(args, "--network", network)
	}
	return append(args,
		"-e", "MYSQL_PWD="+p.Password,
		"-v", filepath.Clean(location)+":/backup",
		m.ClientImage,
	)
}

func (m *MySQL) rootExec(ctx context.Context, sql string) (string, error) {
	return m.Runner.Run(ctx, m.Bin, "exec", "-e", "MYSQL_PWD="+m.RootPassword, m.Container, "mysql", "-uroot", "-e", sql)
}

func containerDumpPath(url string) string {
	return "/backup/db/" + url + ".sql"
}

func validateParams(p *model.DBParams) error {
	if p == nil {
		return fmt.Errorf("database parameters are required")
	}
	if !mysqlNamePattern.MatchString(p.Name) {
		return fmt.Errorf("invalid database name %q", p.Name)
	}
	if !mysqlNamePattern.MatchString(p.User) {
		return fmt.Errorf("invalid database user %q", p.User)
	}
	if !mysqlPasswordPattern.MatchString(p.Password) {
		return fmt.Errorf("invalid database password for user %s", p.User)
	}
	return nil
}

func dbIdentifier(url string, max int) string {
	id := strings.NewReplacer(".", "_", "-", "_").Replace(url)
	if len(id) > max {
		id = id[:max]
	}
	return id
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
