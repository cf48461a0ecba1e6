package site

import (
	"context"
	"errors"
	"testing"

	"go_sitectl/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnable(t *testing.T) {
	h := newHarness(t)
	h.seed(model.Site{URL: "example.com", Type: model.SiteTypeHTML})

	require.NoError(t, h.Enable(context.Background(), "example.com", false))
	site, _ := h.store.get("example.com")
	assert.True(t, site.Enabled)
	assert.Less(t, h.rec.index("up "), h.rec.index("save "))
	assert.True(t, h.rec.has("proxy-reload"))

	err := h.Enable(context.Background(), "example.com", false)
	assert.True(t, IsPrecondition(err))
	assert.ErrorIs(t, err, ErrAlreadyEnabled)

	assert.NoError(t, h.Enable(context.Background(), "example.com", true), "force re-runs up")
}

func TestEnable_FlagUnchangedWhenUpFails(t *testing.T) {
	h := newHarness(t)
	h.seed(model.Site{URL: "example.com", Type: model.SiteTypeHTML})
	h.containers.hooks["up"] = func(ctx context.Context) error { return errors.New("port in use") }

	err := h.Enable(context.Background(), "example.com", false)
	require.Error(t, err)
	assert.Equal(t, KindOperational, KindOf(err))

	site, _ := h.store.get("example.com")
	assert.False(t, site.Enabled)
	assert.False(t, h.rec.has("save "))
}

func TestEnable_ProxyReloadFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.seed(model.Site{URL: "example.com", Type: model.SiteTypeHTML})
	h.containers.hooks["proxy-reload"] = func(ctx context.Context) error { return errors.New("proxy down") }

	require.NoError(t, h.Enable(context.Background(), "example.com", false))
	site, _ := h.store.get("example.com")
	assert.True(t, site.Enabled)
}

func TestDisable(t *testing.T) {
	h := newHarness(t)
	h.seed(model.Site{URL: "example.com", Type: model.SiteTypeHTML, Enabled: true})

	require.NoError(t, h.Disable(context.Background(), "example.com"))
	site, _ := h.store.get("example.com")
	assert.False(t, site.Enabled)
	assert.Less(t, h.rec.index("down "), h.rec.index("save "))

	err := h.Disable(context.Background(), "example.com")
	assert.True(t, IsPrecondition(err))
	assert.ErrorIs(t, err, ErrAlreadyDisabled)
}

func TestDisable_Failures(t *testing.T) {
	tests := []struct {
		name        string
		downErr     error
		wantErr     bool
		wantEnabled bool
	}{
		{"containers already gone", errAbsent, false, false},
		{"daemon error", errors.New("daemon timeout"), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.seed(model.Site{URL: "example.com", Type: model.SiteTypeHTML, Enabled: true})
			h.containers.hooks["down"] = func(ctx context.Context) error { return tt.downErr }

			err := h.Disable(context.Background(), "example.com")
			assert.Equal(t, tt.wantErr, err != nil)
			site, _ := h.store.get("example.com")
			assert.Equal(t, tt.wantEnabled, site.Enabled)
		})
	}
}
