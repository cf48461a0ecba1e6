package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_sitectl/internal/config"
	"go_sitectl/internal/logger"
	"go_sitectl/internal/model"
	"go_sitectl/internal/site"
)

type call struct {
	action   string
	url      string
	services []string
	all      bool
	force    bool
	arg      string
}

type fakeEngine struct {
	calls    []call
	err      error
	sites    []model.Site
	created  *model.Site
	renewed  bool
	renewAll int
	ops      []model.SiteOperation
}

func (f *fakeEngine) add(c call) error {
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakeEngine) Get(context.Context, string) (*model.Site, error) {
	return nil, model.ErrSiteNotFound
}

func (f *fakeEngine) List(_ context.Context, status string) ([]model.Site, error) {
	return f.sites, f.add(call{action: "list", arg: status})
}

func (f *fakeEngine) Create(_ context.Context, opts site.CreateOptions) (*model.Site, error) {
	if err := f.add(call{action: "create", url: opts.URL, arg: opts.Type + "/" + opts.SSL}); err != nil {
		return nil, err
	}
	if f.created != nil {
		return f.created, nil
	}
	return &model.Site{URL: opts.URL, Type: opts.Type, SSL: opts.SSL}, nil
}

func (f *fakeEngine) Delete(_ context.Context, url string) error {
	return f.add(call{action: "delete", url: url})
}

func (f *fakeEngine) Update(_ context.Context, url, newType string) error {
	return f.add(call{action: "update", url: url, arg: newType})
}

func (f *fakeEngine) Backup(_ context.Context, url, location string, force bool) (string, error) {
	if location == "" {
		location = "/backups/" + url
	}
	return location, f.add(call{action: "backup", url: url, force: force, arg: location})
}

func (f *fakeEngine) Enable(_ context.Context, url string, force bool) error {
	return f.add(call{action: "enable", url: url, force: force})
}

func (f *fakeEngine) Disable(_ context.Context, url string) error {
	return f.add(call{action: "disable", url: url})
}

func (f *fakeEngine) Restart(_ context.Context, url string, services []string, all bool) error {
	return f.add(call{action: "restart", url: url, services: services, all: all})
}

func (f *fakeEngine) Reload(_ context.Context, url string, services []string, all bool) error {
	return f.add(call{action: "reload", url: url, services: services, all: all})
}

func (f *fakeEngine) SSL(_ context.Context, url string, force bool) error {
	return f.add(call{action: "ssl", url: url, force: force})
}

func (f *fakeEngine) Renew(_ context.Context, url string) (bool, error) {
	return f.renewed, f.add(call{action: "ssl-renew", url: url})
}

func (f *fakeEngine) RenewAll(context.Context) (int, error) {
	return f.renewAll, f.add(call{action: "ssl-renew-all"})
}

func (f *fakeEngine) Recent(_ context.Context, url string, limit int) ([]model.SiteOperation, error) {
	return f.ops, f.add(call{action: "history", url: url})
}

func runCLI(t *testing.T, eng *fakeEngine, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	open := func(string) (*app, error) {
		return &app{
			cfg:     &config.Config{Paths: config.Paths{FSRoot: "/nonexistent-sites-root"}},
			log:     logger.Discard(),
			engine:  eng,
			journal: eng,
		}, nil
	}
	root := newRootCmd(open)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestList(t *testing.T) {
	eng := &fakeEngine{sites: sampleSites()}

	out, _, err := runCLI(t, eng, "list", "--enabled", "--format=count")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
	assert.Equal(t, []call{{action: "list", arg: "enabled"}}, eng.calls)

	_, _, err = runCLI(t, eng, "list", "--enabled", "--disabled")
	assert.Error(t, err)
}

func TestCreate(t *testing.T) {
	eng := &fakeEngine{}
	out, stderr, err := runCLI(t, eng, "create", "example.com", "--type=wp", "--ssl=le")
	require.NoError(t, err)
	assert.Contains(t, out, "Site example.com created (wp)")
	assert.Empty(t, stderr)
	assert.Equal(t, "wp/le", eng.calls[0].arg)
}

func TestCreate_WarnsWhenSSLWasReset(t *testing.T) {
	eng := &fakeEngine{created: &model.Site{URL: "example.com", Type: model.SiteTypeHTML}}
	out, stderr, err := runCLI(t, eng, "create", "example.com", "--ssl=le")
	require.NoError(t, err)
	assert.Contains(t, out, "Site example.com created")
	assert.Contains(t, stderr, "SSL could not be enabled for example.com")
}

func TestDelete(t *testing.T) {
	eng := &fakeEngine{}
	_, _, err := runCLI(t, eng, "delete", "example.com")
	require.Error(t, err, "delete without --yes and without a terminal must refuse")
	assert.Contains(t, err.Error(), "--yes")
	assert.Empty(t, eng.calls)

	out, _, err := runCLI(t, eng, "delete", "example.com", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Site example.com deleted")
	assert.Equal(t, []call{{action: "delete", url: "example.com"}}, eng.calls)
}

func TestServiceSelection(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		services []string
		all      bool
	}{
		{"no flags", []string{"restart", "example.com"}, nil, false},
		{"nginx only", []string{"restart", "example.com", "--nginx"}, []string{"nginx"}, false},
		{"both", []string{"reload", "example.com", "--php", "--nginx"}, []string{"nginx", "php"}, false},
		{"all", []string{"reload", "example.com", "--all"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &fakeEngine{}
			_, _, err := runCLI(t, eng, tt.args...)
			require.NoError(t, err)
			require.Len(t, eng.calls, 1)
			assert.Equal(t, tt.args[0], eng.calls[0].action)
			assert.Equal(t, tt.services, eng.calls[0].services)
			assert.Equal(t, tt.all, eng.calls[0].all)
		})
	}
}

func TestSiteArgumentFallsBackToWorkingDirectory(t *testing.T) {
	eng := &fakeEngine{}
	_, _, err := runCLI(t, eng, "enable")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no site given")
	assert.Empty(t, eng.calls)
}

func TestUpdateRequiresType(t *testing.T) {
	eng := &fakeEngine{}
	_, _, err := runCLI(t, eng, "update", "example.com")
	require.Error(t, err)
	assert.Empty(t, eng.calls)

	out, _, err := runCLI(t, eng, "update", "example.com", "--type=php")
	require.NoError(t, err)
	assert.Contains(t, out, "Site example.com updated to php")
}

func TestBackupAndToggles(t *testing.T) {
	eng := &fakeEngine{}

	out, _, err := runCLI(t, eng, "backup", "example.com", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "backed up to /backups/example.com")

	_, _, err = runCLI(t, eng, "enable", "example.com", "--force")
	require.NoError(t, err)
	_, _, err = runCLI(t, eng, "disable", "example.com")
	require.NoError(t, err)

	require.Len(t, eng.calls, 3)
	assert.True(t, eng.calls[0].force)
	assert.True(t, eng.calls[1].force)
	assert.Equal(t, "disable", eng.calls[2].action)
}

func TestBackupForceHelp(t *testing.T) {
	c := &cli{}
	flag := c.backupCmd().Flags().Lookup("force")
	require.NotNil(t, flag)
	assert.Equal(t, "skip the nginx configuration check", flag.Usage)
}

func TestSiteArgumentIsNormalized(t *testing.T) {
	eng := &fakeEngine{}

	out, _, err := runCLI(t, eng, "disable", "Example.COM.")
	require.NoError(t, err)
	require.Len(t, eng.calls, 1)
	assert.Equal(t, "example.com", eng.calls[0].url)
	assert.Contains(t, out, "Site example.com disabled")
}

func TestErrorsAreReturned(t *testing.T) {
	eng := &fakeEngine{err: &site.Error{Kind: site.KindPrecondition, Op: "enable", URL: "example.com", Err: site.ErrAlreadyEnabled}}
	out, _, err := runCLI(t, eng, "enable", "example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, site.ErrAlreadyEnabled))
	assert.Empty(t, out, "no success line on failure")
}

func TestSSLRenew(t *testing.T) {
	eng := &fakeEngine{renewed: true}
	out, _, err := runCLI(t, eng, "ssl-renew", "example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Certificate of example.com renewed")

	eng = &fakeEngine{renewAll: 3}
	out, _, err = runCLI(t, eng, "ssl-renew", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Renewed 3 certificate(s)")
	assert.Equal(t, "ssl-renew-all", eng.calls[0].action)
}

func TestSSLRequiresSite(t *testing.T) {
	eng := &fakeEngine{}
	_, _, err := runCLI(t, eng, "ssl")
	require.Error(t, err)

	out, _, err := runCLI(t, eng, "ssl", "example.com", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "SSL enabled for example.com")
	assert.True(t, eng.calls[0].force)
}

func TestHistory(t *testing.T) {
	eng := &fakeEngine{ops: []model.SiteOperation{
		{CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Action: "delete", Status: model.OperationStatusRolledBack, Level: 3, Error: "compose down failed"},
	}}
	out, _, err := runCLI(t, eng, "history", "example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "rolled_back")
	assert.Contains(t, out, "2026-01-02 03:04:05")
	assert.Contains(t, out, "compose down failed")
}

func TestKnownServices(t *testing.T) {
	assert.Equal(t, []string{"nginx", "php"}, knownServices())
}
