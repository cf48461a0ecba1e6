package driver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"go_sitectl/internal/config"
	"go_sitectl/internal/model"
	"go_sitectl/internal/runner"
)

type fakeRunner struct {
	commands []string
	outputs  map[string]string
	errs     map[string]error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	cmd := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.commands = append(f.commands, cmd)
	for prefix, err := range f.errs {
		if strings.HasPrefix(cmd, prefix) {
			out := f.outputs[prefix]
			return out, &runner.ExitError{Name: name, Args: args, Code: 1, Output: out, Err: err}
		}
	}
	return f.outputs[cmd], nil
}

func containsCommand(commands []string, want string) bool {
	for _, c := range commands {
		if c == want {
			return true
		}
	}
	return false
}

func dockerCfg() config.DockerConfig {
	return config.DockerConfig{
		Bin:                  "docker",
		ProxyContainer:       "proxy",
		GlobalDBHost:         "global-db",
		GlobalDBContainer:    "global-db-1",
		GlobalDBRootPassword: "root",
		GlobalBackendNetwork: "backend",
		SiteDBHost:           "db",
		DBClientImage:        "mariadb:10.11",
	}
}

func TestDocker_ComposeWithoutFileIsAbsent(t *testing.T) {
	r := &fakeRunner{}
	d := NewDocker(r, dockerCfg())

	err := d.Down(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.True(t, IsAbsent(err))
	assert.Empty(t, r.commands, "no docker command should run without a compose file")
}

func TestDocker_ComposeCommands(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(config.ComposeFile(root), []byte("services: {}\n"), 0644))
	r := &fakeRunner{}
	d := NewDocker(r, dockerCfg())
	ctx := context.Background()

	require.NoError(t, d.Up(ctx, root))
	require.NoError(t, d.Restart(ctx, root, "nginx", "php"))
	require.NoError(t, d.ConfigTest(ctx, root))

	assert.Equal(t, []string{
		"docker compose --project-directory " + root + " up -d",
		"docker compose --project-directory " + root + " restart nginx php",
		"docker compose --project-directory " + root + " exec -T nginx nginx -t",
	}, r.commands)
}

func TestDocker_NetworkAbsence(t *testing.T) {
	r := &fakeRunner{
		outputs: map[string]string{
			"docker network rm example.com":               "Error: No such network: example.com",
			"docker network disconnect example.com proxy": "Error: permission denied",
		},
		errs: map[string]error{
			"docker network rm example.com":               assert.AnError,
			"docker network disconnect example.com proxy": assert.AnError,
		},
	}
	d := NewDocker(r, dockerCfg())

	err := d.RemoveNetwork(context.Background(), "example.com")
	assert.True(t, IsAbsent(err), "missing network should be absence, got %v", err)

	err = d.DisconnectProxy(context.Background(), "example.com")
	require.Error(t, err)
	assert.False(t, IsAbsent(err), "permission failure must not be treated as absence")
}

func TestMySQL_Network(t *testing.T) {
	m := NewMySQL(&fakeRunner{}, dockerCfg())

	tests := []struct {
		host string
		want string
	}{
		{"global-db", "backend"},
		{"db", "example.com"},
		{"10.0.0.5", ""},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got := m.Network("example.com", &model.DBParams{Host: tt.host})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMySQL_DumpAndRestore(t *testing.T) {
	r := &fakeRunner{}
	m := NewMySQL(r, dockerCfg())
	p := &model.DBParams{Host: "global-db", Port: 3306, User: "example_com", Password: "pw", Name: "example_com"}
	ctx := context.Background()

	require.NoError(t, m.Dump(ctx, "example.com", p, "/backups/example.com"))
	require.NoError(t, m.Restore(ctx, "example.com", p, "/backups/example.com"))

	require.Len(t, r.commands, 2)
	assert.Equal(t, "docker run --rm --network backend -e MYSQL_PWD=pw -v /backups/example.com:/backup mariadb:10.11 "+
		"mysqldump --host=global-db --port=3306 --user=example_com --single-transaction "+
		"--result-file=/backup/db/example.com.sql example_com", r.commands[0])
	assert.Contains(t, r.commands[1], "mysql --host=global-db --port=3306 --user=example_com example_com -e source /backup/db/example.com.sql")
}

func TestMySQL_CreateAndDrop(t *testing.T) {
	r := &fakeRunner{}
	m := NewMySQL(r, dockerCfg())
	ctx := context.Background()

	p, err := m.NewParams("my-site.example.com")
	require.NoError(t, err)
	assert.Equal(t, "my_site_example_com", p.Name)
	assert.Equal(t, "global-db", p.Host)
	assert.Len(t, p.Password, 24)

	require.NoError(t, m.Create(ctx, p))
	require.NoError(t, m.Drop(ctx, p))
	require.Len(t, r.commands, 2)
	assert.True(t, strings.HasPrefix(r.commands[0], "docker exec -e MYSQL_PWD=root global-db-1 mysql -uroot -e CREATE DATABASE IF NOT EXISTS `my_site_example_com`"))
	assert.Contains(t, r.commands[1], "DROP USER IF EXISTS 'my_site_example_com'@'%'")

	// per-site hosts are owned by the container group
	r.commands = nil
	require.NoError(t, m.Drop(ctx, &model.DBParams{Host: "db", Name: "x", User: "x", Password: "x"}))
	assert.Empty(t, r.commands)

	err = m.Create(ctx, &model.DBParams{Host: "global-db", Name: "bad`name", User: "u", Password: "p"})
	assert.Error(t, err)
}

func TestLocalFS(t *testing.T) {
	r := &fakeRunner{}
	fs := NewLocalFS(r)
	root := t.TempDir()

	missing := filepath.Join(root, "missing")
	assert.True(t, IsAbsent(fs.RemoveAll(missing)))
	assert.True(t, IsAbsent(fs.Remove(missing)))
	assert.True(t, IsAbsent(fs.Mirror(context.Background(), missing, filepath.Join(root, "dst"))))

	src := filepath.Join(root, "src")
	require.NoError(t, fs.MkdirAll(src))
	require.NoError(t, fs.Mirror(context.Background(), src, filepath.Join(root, "dst")))
	assert.True(t, containsCommand(r.commands, "rsync -a --delete "+src+"/ "+filepath.Join(root, "dst")+"/"))

	file := filepath.Join(src, "wp-config.php")
	require.NoError(t, os.WriteFile(file, []byte("<?php"), 0600))
	copied := filepath.Join(root, "backup", "wp-config.php")
	require.NoError(t, fs.CopyFile(file, copied))
	data, err := os.ReadFile(copied)
	require.NoError(t, err)
	assert.Equal(t, "<?php", string(data))

	require.NoError(t, fs.RemoveAll(src))
	assert.False(t, fs.Exists(src))
}

func TestProvisioner_WritesCompose(t *testing.T) {
	root := filepath.Join(t.TempDir(), "example.com")
	p := NewProvisioner(NewLocalFS(&fakeRunner{}), dockerCfg())
	site := &model.Site{URL: "example.com", FSPath: root, Type: model.SiteTypeWP}
	db := &model.DBParams{Host: "global-db", Port: 3306, User: "u", Password: "p", Name: "n"}

	require.NoError(t, p.Provision(site, db))
	assert.DirExists(t, config.Htdocs(root))
	assert.DirExists(t, config.NginxCustom(root))

	data, err := os.ReadFile(config.ComposeFile(root))
	require.NoError(t, err)
	var cf ComposeFile
	require.NoError(t, yaml.Unmarshal(data, &cf))

	assert.Contains(t, cf.Services, "nginx")
	assert.Contains(t, cf.Services, "php")
	assert.Equal(t, "global-db:3306", cf.Services["php"].Environment["WORDPRESS_DB_HOST"])
	assert.Equal(t, "example.com", cf.Networks["site-network"].Name)
	assert.Equal(t, "backend", cf.Networks["global-backend-network"].Name)
}
