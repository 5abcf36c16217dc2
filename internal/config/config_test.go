package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/internal/raster"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Validate())
	assert.Equal(t, 250000, cfg.Selection.PageSize)
	assert.Equal(t, raster.GrayPolicy{Max: 4095}, cfg.Gray())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
tree:
  page_children: 50
raster:
  gray12_max: 1023
ui:
  images: "Off"
  cell_width_px: 10
log:
  level: debug
`)
	cfg, warnings, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 50, cfg.Tree.PageChildren)
	assert.Equal(t, 1023, cfg.Raster.Gray12Max)
	assert.Equal(t, ImagesOff, cfg.UI.Images)
	assert.Equal(t, 10, cfg.UI.CellWidthPX)
	assert.Equal(t, 16, cfg.UI.CellHeightPX)
	assert.Equal(t, 16, cfg.Raster.QueueDepth)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "ui:\n  tick_ms: 40\n")
	t.Setenv("H5VIEW_UI_TICK_MS", "25")
	t.Setenv("H5VIEW_RASTER_QUEUE_DEPTH", "4")

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.UI.TickMS)
	assert.Equal(t, 4, cfg.Raster.QueueDepth)
}

func TestLoadLinkSettings(t *testing.T) {
	cfg, warnings, err := Load(writeConfig(t, "tree:\n  max_link_depth: 3\n"))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 3, cfg.Tree.MaxLinkDepth)
	assert.True(t, cfg.Tree.FollowExternal)
	assert.Len(t, cfg.OpenOptions(), 2)

	t.Setenv("H5VIEW_TREE_FOLLOW_EXTERNAL", "false")
	cfg, _, err = Load(writeConfig(t, "tree:\n  page_children: 10\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Tree.FollowExternal)
	assert.Equal(t, hdf5.MaxLinkDepth, cfg.Tree.MaxLinkDepth)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadWithoutUserConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, warnings, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, Default().UI, cfg.UI)
}

func TestValidateResetsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		check func(*testing.T, Config)
	}{
		{"page size", func(c *Config) { c.Selection.PageSize = 1000 },
			func(t *testing.T, c Config) { assert.Equal(t, 250000, c.Selection.PageSize) }},
		{"page children", func(c *Config) { c.Tree.PageChildren = -1 },
			func(t *testing.T, c Config) { assert.Equal(t, 1000, c.Tree.PageChildren) }},
		{"link depth", func(c *Config) { c.Tree.MaxLinkDepth = 0 },
			func(t *testing.T, c Config) { assert.Equal(t, hdf5.MaxLinkDepth, c.Tree.MaxLinkDepth) }},
		{"gray ceiling", func(c *Config) { c.Raster.Gray12Max = 70000 },
			func(t *testing.T, c Config) { assert.Equal(t, 4095, c.Raster.Gray12Max) }},
		{"queue depth", func(c *Config) { c.Raster.QueueDepth = 0 },
			func(t *testing.T, c Config) { assert.Equal(t, 16, c.Raster.QueueDepth) }},
		{"tick", func(c *Config) { c.UI.TickMS = -5 },
			func(t *testing.T, c Config) { assert.Equal(t, 16, c.UI.TickMS) }},
		{"cell size", func(c *Config) { c.UI.CellHeightPX = 0 },
			func(t *testing.T, c Config) { assert.Equal(t, 8, c.UI.CellWidthPX); assert.Equal(t, 16, c.UI.CellHeightPX) }},
		{"images", func(c *Config) { c.UI.Images = "sometimes" },
			func(t *testing.T, c Config) { assert.Equal(t, ImagesAuto, c.UI.Images) }},
		{"log level", func(c *Config) { c.Log.Level = "loud" },
			func(t *testing.T, c Config) { assert.Equal(t, "info", c.Log.Level) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(&cfg)
			assert.Len(t, cfg.Validate(), 1)
			tt.check(t, cfg)
			assert.Empty(t, cfg.Validate())
		})
	}
}
