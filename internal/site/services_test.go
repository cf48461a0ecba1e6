package site

import (
	"context"
	"testing"

	"go_sitectl/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectServices(t *testing.T) {
	tests := []struct {
		name     string
		siteType string
		named    []string
		all      bool
		want     []string
		wantErr  bool
	}{
		{"html default", model.SiteTypeHTML, nil, false, []string{"nginx"}, false},
		{"wp default", model.SiteTypeWP, nil, false, []string{"nginx", "php"}, false},
		{"all wins over names", model.SiteTypePHP, []string{"php"}, true, []string{"nginx", "php"}, false},
		{"named", model.SiteTypeWP, []string{"php"}, false, []string{"php"}, false},
		{"duplicates", model.SiteTypeWP, []string{"php", "php"}, false, []string{"php"}, false},
		{"not in whitelist", model.SiteTypeHTML, []string{"php"}, false, nil, true},
		{"unknown", model.SiteTypeWP, []string{"redis"}, false, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectServices(tt.siteType, tt.named, tt.all)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownService)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRestart(t *testing.T) {
	h := newHarness(t)
	h.seed(model.Site{URL: "example.com", Type: model.SiteTypeWP, Enabled: true})

	require.NoError(t, h.Restart(context.Background(), "example.com", []string{"php"}, false))
	assert.True(t, h.rec.has("restart /sites/example.com php"))
	assert.Equal(t, []string{"php"}, h.journal.last().detail["services"])
}

func TestReload(t *testing.T) {
	h := newHarness(t)
	h.seed(model.Site{URL: "example.com", Type: model.SiteTypeWP, Enabled: true})

	require.NoError(t, h.Reload(context.Background(), "example.com", nil, true))
	assert.Equal(t, []string{
		"exec nginx sh -c nginx -t && nginx -s reload",
		"exec php kill -USR2 1",
	}, h.rec.list())
}

func TestRestartReload_Preconditions(t *testing.T) {
	h := newHarness(t)
	h.seed(model.Site{URL: "off.com", Type: model.SiteTypeWP})
	h.seed(model.Site{URL: "static.com", Type: model.SiteTypeHTML, Enabled: true})

	err := h.Restart(context.Background(), "off.com", nil, true)
	assert.True(t, IsPrecondition(err))
	assert.ErrorIs(t, err, ErrSiteDisabled)

	err = h.Reload(context.Background(), "static.com", []string{"php"}, false)
	assert.True(t, IsPrecondition(err))
	assert.ErrorIs(t, err, ErrUnknownService)

	assert.Empty(t, h.rec.list())
}
