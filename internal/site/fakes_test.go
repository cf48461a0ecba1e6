package site

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go_sitectl/internal/config"
	"go_sitectl/internal/driver"
	"go_sitectl/internal/lock"
	"go_sitectl/internal/logger"
	"go_sitectl/internal/model"
)

// recorder is the shared, ordered call log of all fakes
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// has reports whether a call starting with prefix was recorded
func (r *recorder) has(prefix string) bool {
	for _, c := range r.list() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// index returns the position of the first call starting with prefix, or -1
func (r *recorder) index(prefix string) int {
	for i, c := range r.list() {
		if strings.HasPrefix(c, prefix) {
			return i
		}
	}
	return -1
}

var errAbsent = fmt.Errorf("gone: %w", driver.ErrAbsent)

// hooks let a test fail or intercept a named call
type hooks map[string]func(ctx context.Context) error

func (h hooks) fire(ctx context.Context, name string) error {
	if fn, ok := h[name]; ok {
		return fn(ctx)
	}
	return nil
}

type fakeContainers struct {
	rec   *recorder
	hooks hooks
}

func (f *fakeContainers) call(ctx context.Context, name, arg string) error {
	f.rec.add("%s %s", name, arg)
	return f.hooks.fire(ctx, name)
}

func (f *fakeContainers) Up(ctx context.Context, path string) error   { return f.call(ctx, "up", path) }
func (f *fakeContainers) Down(ctx context.Context, path string) error { return f.call(ctx, "down", path) }
func (f *fakeContainers) Remove(ctx context.Context, path string) error {
	return f.call(ctx, "remove", path)
}
func (f *fakeContainers) Restart(ctx context.Context, path string, services ...string) error {
	return f.call(ctx, "restart", strings.TrimSpace(path+" "+strings.Join(services, " ")))
}
func (f *fakeContainers) Exec(ctx context.Context, path, service string, cmd ...string) (string, error) {
	return "", f.call(ctx, "exec", service+" "+strings.Join(cmd, " "))
}
func (f *fakeContainers) ConfigTest(ctx context.Context, path string) error {
	return f.call(ctx, "configtest", path)
}
func (f *fakeContainers) CreateNetwork(ctx context.Context, name string) error {
	return f.call(ctx, "network-create", name)
}
func (f *fakeContainers) RemoveNetwork(ctx context.Context, name string) error {
	return f.call(ctx, "network-rm", name)
}
func (f *fakeContainers) ConnectProxy(ctx context.Context, network string) error {
	return f.call(ctx, "proxy-connect", network)
}
func (f *fakeContainers) DisconnectProxy(ctx context.Context, network string) error {
	return f.call(ctx, "proxy-disconnect", network)
}
func (f *fakeContainers) ReloadProxy(ctx context.Context) error {
	return f.call(ctx, "proxy-reload", "")
}

type fakeDatabases struct {
	rec   *recorder
	hooks hooks
}

func (f *fakeDatabases) NewParams(url string) (*model.DBParams, error) {
	name := strings.NewReplacer(".", "_", "-", "_").Replace(url)
	return &model.DBParams{Host: "global-db", Port: 3306, User: name, Password: "secret", Name: name}, nil
}
func (f *fakeDatabases) Create(ctx context.Context, p *model.DBParams) error {
	f.rec.add("db-create %s", p.Name)
	return f.hooks.fire(ctx, "db-create")
}
func (f *fakeDatabases) Drop(ctx context.Context, p *model.DBParams) error {
	f.rec.add("db-drop %s", p.Name)
	return f.hooks.fire(ctx, "db-drop")
}
func (f *fakeDatabases) Dump(ctx context.Context, url string, p *model.DBParams, location string) error {
	f.rec.add("db-dump %s %s", p.Name, location)
	return f.hooks.fire(ctx, "db-dump")
}
func (f *fakeDatabases) Restore(ctx context.Context, url string, p *model.DBParams, location string) error {
	f.rec.add("db-restore %s %s", p.Name, location)
	return f.hooks.fire(ctx, "db-restore")
}

// fakeFS tracks existing paths. A path exists when it was created, lies
// below a created path or contains one.
type fakeFS struct {
	rec   *recorder
	hooks hooks
	mu    sync.Mutex
	paths map[string]bool
}

func (f *fakeFS) touch(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths[path] = true
}

func (f *fakeFS) Exists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for p := range f.paths {
		if p == path || strings.HasPrefix(path, p+"/") || strings.HasPrefix(p, path+"/") {
			return true
		}
	}
	return false
}

func (f *fakeFS) MkdirAll(path string) error {
	f.touch(path)
	return nil
}

func (f *fakeFS) drop(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := false
	for p := range f.paths {
		if p == path || strings.HasPrefix(p, path+"/") {
			delete(f.paths, p)
			found = true
		}
	}
	return found
}

func (f *fakeFS) RemoveAll(path string) error {
	f.rec.add("rm -r %s", path)
	if err := f.hooks.fire(context.Background(), "rm"); err != nil {
		return err
	}
	if !f.drop(path) {
		return errAbsent
	}
	return nil
}

func (f *fakeFS) Remove(path string) error {
	f.rec.add("rm %s", path)
	if !f.drop(path) {
		return errAbsent
	}
	return nil
}

func (f *fakeFS) Mirror(ctx context.Context, src, dst string) error {
	f.rec.add("mirror %s %s", src, dst)
	if err := f.hooks.fire(ctx, "mirror "+src); err != nil {
		return err
	}
	if !f.Exists(src) {
		return fmt.Errorf("mirror source %s: %w", src, driver.ErrAbsent)
	}
	f.touch(dst)
	return nil
}

func (f *fakeFS) CopyFile(src, dst string) error {
	f.rec.add("copy %s %s", src, dst)
	if !f.Exists(src) {
		return fmt.Errorf("copy source %s: %w", src, driver.ErrAbsent)
	}
	f.touch(dst)
	return nil
}

type fakeProvisioner struct {
	rec   *recorder
	fs    *fakeFS
	hooks hooks
}

func (p *fakeProvisioner) Provision(site *model.Site, db *model.DBParams) error {
	p.rec.add("provision %s %s", site.URL, site.Type)
	if err := p.hooks.fire(context.Background(), "provision"); err != nil {
		return err
	}
	p.fs.touch(config.Htdocs(site.FSPath))
	p.fs.touch(config.ComposeFile(site.FSPath))
	if site.Type == model.SiteTypeWP {
		p.fs.touch(config.RuntimeConfigFile(site.FSPath))
	}
	return nil
}

type fakeStore struct {
	rec   *recorder
	hooks hooks
	mu    sync.Mutex
	sites map[string]model.Site
}

func (s *fakeStore) Find(ctx context.Context, url string) (*model.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[url]
	if !ok {
		return nil, model.ErrSiteNotFound
	}
	return &site, nil
}

func (s *fakeStore) All(ctx context.Context) ([]model.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Site
	for _, site := range s.sites {
		out = append(out, site)
	}
	return out, nil
}

func (s *fakeStore) Where(ctx context.Context, field string, value interface{}) ([]model.Site, error) {
	all, _ := s.All(ctx)
	var out []model.Site
	for _, site := range all {
		switch field {
		case "enabled":
			if site.Enabled == value.(bool) {
				out = append(out, site)
			}
		case "ssl":
			if site.SSL == value.(string) {
				out = append(out, site)
			}
		}
	}
	return out, nil
}

func (s *fakeStore) Save(ctx context.Context, site *model.Site) error {
	s.rec.add("save %s", site.URL)
	if err := s.hooks.fire(ctx, "save"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[site.URL] = *site
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, url string) error {
	s.rec.add("delete-record %s", url)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sites[url]; !ok {
		return model.ErrSiteNotFound
	}
	delete(s.sites, url)
	return nil
}

func (s *fakeStore) get(url string) (model.Site, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[url]
	return site, ok
}

type journalEntry struct {
	action string
	status string
	level  int
	err    error
	detail map[string]interface{}
}

type fakeJournal struct {
	mu      sync.Mutex
	actions map[string]string
	entries []journalEntry
}

func (j *fakeJournal) Begin(ctx context.Context, opID, url, action string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.actions[opID] = action
	return nil
}

func (j *fakeJournal) Finish(ctx context.Context, opID, status string, level int, opErr error, detail map[string]interface{}) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, journalEntry{action: j.actions[opID], status: status, level: level, err: opErr, detail: detail})
	return nil
}

func (j *fakeJournal) last() journalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.entries) == 0 {
		return journalEntry{}
	}
	return j.entries[len(j.entries)-1]
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *fakeLocker) Acquire(ctx context.Context, key string) (func() error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, lock.ErrLocked
	}
	l.held[key] = true
	return func() error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, nil
}

type fakeCertificates struct {
	rec        *recorder
	issueErr   error
	inheritErr error
	renewed    bool
}

func (c *fakeCertificates) Issue(ctx context.Context, site *model.Site, force bool) error {
	c.rec.add("cert-issue %s force=%v", site.URL, force)
	return c.issueErr
}

func (c *fakeCertificates) Inherit(ctx context.Context, url string) error {
	c.rec.add("cert-inherit %s", url)
	return c.inheritErr
}

func (c *fakeCertificates) Renew(ctx context.Context, site *model.Site) (bool, error) {
	c.rec.add("cert-renew %s", site.URL)
	return c.renewed, nil
}

// harness bundles an engine with its fakes
type harness struct {
	*Engine
	rec        *recorder
	containers *fakeContainers
	dbs        *fakeDatabases
	fs         *fakeFS
	prov       *fakeProvisioner
	store      *fakeStore
	journal    *fakeJournal
	locker     *fakeLocker
	certs      *fakeCertificates
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	rec := &recorder{}
	fs := &fakeFS{rec: rec, hooks: hooks{}, paths: map[string]bool{}}
	h := &harness{
		rec:        rec,
		containers: &fakeContainers{rec: rec, hooks: hooks{}},
		dbs:        &fakeDatabases{rec: rec, hooks: hooks{}},
		fs:         fs,
		prov:       &fakeProvisioner{rec: rec, fs: fs, hooks: hooks{}},
		store:      &fakeStore{rec: rec, hooks: hooks{}, sites: map[string]model.Site{}},
		journal:    &fakeJournal{actions: map[string]string{}},
		locker:     &fakeLocker{held: map[string]bool{}},
		certs:      &fakeCertificates{rec: rec},
	}
	h.Engine = &Engine{
		Containers:   h.containers,
		Databases:    h.dbs,
		FS:           h.fs,
		Provisioner:  h.prov,
		Store:        h.store,
		Journal:      h.journal,
		Locker:       h.locker,
		Certificates: h.certs,
		Paths: config.Paths{
			FSRoot:     "/sites",
			ConfigRoot: "/services",
			BackupRoot: "/backups",
			TempDir:    "/tmp",
		},
		Log: logger.Discard().WithField("test", t.Name()),
	}
	return h
}

// seed stores an existing, provisioned site
func (h *harness) seed(site model.Site) model.Site {
	if site.FSPath == "" {
		site.FSPath = h.Paths.SiteRoot(site.URL)
	}
	if model.NeedsDatabase(site.Type) && site.Database() == nil {
		p, _ := h.dbs.NewParams(site.URL)
		site.SetDatabase(p)
	}
	h.store.sites[site.URL] = site
	h.fs.touch(config.Htdocs(site.FSPath))
	h.fs.touch(config.ComposeFile(site.FSPath))
	h.fs.touch(config.NginxCustom(site.FSPath))
	if site.Type == model.SiteTypeWP {
		h.fs.touch(config.RuntimeConfigFile(site.FSPath))
	}
	return site
}
