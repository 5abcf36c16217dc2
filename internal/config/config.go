// Package config loads h5view settings from defaults, an optional YAML file
// and H5VIEW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/internal/raster"
	"github.com/robert-malhotra/h5view/internal/selection"
)

// Config holds all application configuration.
type Config struct {
	Selection SelectionConfig `mapstructure:"selection"`
	Tree      TreeConfig      `mapstructure:"tree"`
	Raster    RasterConfig    `mapstructure:"raster"`
	UI        UIConfig        `mapstructure:"ui"`
	Log       LogConfig       `mapstructure:"log"`
}

type SelectionConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type TreeConfig struct {
	// PageChildren caps how many children of a node are listed before a
	// "load more" row. Zero lists everything.
	PageChildren int `mapstructure:"page_children"`

	FollowExternal bool `mapstructure:"follow_external"`
	MaxLinkDepth   int  `mapstructure:"max_link_depth"`
}

type RasterConfig struct {
	Gray12Max  int `mapstructure:"gray12_max"`
	QueueDepth int `mapstructure:"queue_depth"`
}

type UIConfig struct {
	TickMS       int    `mapstructure:"tick_ms"`
	CellWidthPX  int    `mapstructure:"cell_width_px"`
	CellHeightPX int    `mapstructure:"cell_height_px"`
	Images       string `mapstructure:"images"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// Image display modes.
const (
	ImagesAuto = "auto"
	ImagesOn   = "on"
	ImagesOff  = "off"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Selection: SelectionConfig{PageSize: selection.PageSize},
		Tree: TreeConfig{
			PageChildren:   1000,
			FollowExternal: true,
			MaxLinkDepth:   hdf5.MaxLinkDepth,
		},
		Raster: RasterConfig{Gray12Max: raster.Gray12Max, QueueDepth: 16},
		UI: UIConfig{
			TickMS:       16,
			CellWidthPX:  8,
			CellHeightPX: 16,
			Images:       ImagesAuto,
		},
		Log: LogConfig{
			File:  filepath.Join(os.TempDir(), "h5view.log"),
			Level: "info",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("selection.page_size", d.Selection.PageSize)
	v.SetDefault("tree.page_children", d.Tree.PageChildren)
	v.SetDefault("tree.follow_external", d.Tree.FollowExternal)
	v.SetDefault("tree.max_link_depth", d.Tree.MaxLinkDepth)
	v.SetDefault("raster.gray12_max", d.Raster.Gray12Max)
	v.SetDefault("raster.queue_depth", d.Raster.QueueDepth)
	v.SetDefault("ui.tick_ms", d.UI.TickMS)
	v.SetDefault("ui.cell_width_px", d.UI.CellWidthPX)
	v.SetDefault("ui.cell_height_px", d.UI.CellHeightPX)
	v.SetDefault("ui.images", d.UI.Images)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
}

// Validate resets out-of-range values to their defaults and returns a
// warning for each one.
func (c *Config) Validate() []string {
	var warnings []string
	d := Default()

	if c.Selection.PageSize != selection.PageSize {
		warnings = append(warnings, fmt.Sprintf("selection.page_size %d is not supported, using %d", c.Selection.PageSize, selection.PageSize))
		c.Selection.PageSize = selection.PageSize
	}
	if c.Tree.PageChildren < 0 {
		warnings = append(warnings, fmt.Sprintf("tree.page_children %d is negative, using %d", c.Tree.PageChildren, d.Tree.PageChildren))
		c.Tree.PageChildren = d.Tree.PageChildren
	}
	if c.Tree.MaxLinkDepth < 1 || c.Tree.MaxLinkDepth > hdf5.MaxLinkDepth {
		warnings = append(warnings, fmt.Sprintf("tree.max_link_depth %d is outside [1, %d], using %d",
			c.Tree.MaxLinkDepth, hdf5.MaxLinkDepth, d.Tree.MaxLinkDepth))
		c.Tree.MaxLinkDepth = d.Tree.MaxLinkDepth
	}
	if c.Raster.Gray12Max < 1 || c.Raster.Gray12Max > 65535 {
		warnings = append(warnings, fmt.Sprintf("raster.gray12_max %d is outside [1, 65535], using %d", c.Raster.Gray12Max, d.Raster.Gray12Max))
		c.Raster.Gray12Max = d.Raster.Gray12Max
	}
	if c.Raster.QueueDepth < 1 {
		warnings = append(warnings, fmt.Sprintf("raster.queue_depth %d must be positive, using %d", c.Raster.QueueDepth, d.Raster.QueueDepth))
		c.Raster.QueueDepth = d.Raster.QueueDepth
	}
	if c.UI.TickMS < 1 {
		warnings = append(warnings, fmt.Sprintf("ui.tick_ms %d must be positive, using %d", c.UI.TickMS, d.UI.TickMS))
		c.UI.TickMS = d.UI.TickMS
	}
	if c.UI.CellWidthPX < 1 || c.UI.CellHeightPX < 1 {
		warnings = append(warnings, fmt.Sprintf("cell size %dx%d px must be positive, using %dx%d",
			c.UI.CellWidthPX, c.UI.CellHeightPX, d.UI.CellWidthPX, d.UI.CellHeightPX))
		c.UI.CellWidthPX, c.UI.CellHeightPX = d.UI.CellWidthPX, d.UI.CellHeightPX
	}
	switch strings.ToLower(c.UI.Images) {
	case ImagesAuto, ImagesOn, ImagesOff:
		c.UI.Images = strings.ToLower(c.UI.Images)
	default:
		warnings = append(warnings, fmt.Sprintf("ui.images %q is not one of auto, on, off; using %s", c.UI.Images, d.UI.Images))
		c.UI.Images = d.UI.Images
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
		c.Log.Level = strings.ToLower(c.Log.Level)
	default:
		warnings = append(warnings, fmt.Sprintf("log.level %q is unknown, using %s", c.Log.Level, d.Log.Level))
		c.Log.Level = d.Log.Level
	}

	return warnings
}

// DefaultPath returns $XDG_CONFIG_HOME/h5view/config.yaml, or "" when no
// user config directory is known.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "h5view", "config.yaml")
}

// Load reads configuration from path and the environment. An empty path
// falls back to DefaultPath, which may be absent. An explicit path must
// exist.
func Load(path string) (*Config, []string, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("H5VIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if explicit || !missing {
				return nil, nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, cfg.Validate(), nil
}

// Gray returns the 16-bit grayscale policy for the configured ceiling.
func (c *Config) Gray() raster.GrayPolicy {
	return raster.GrayPolicy{Max: uint16(c.Raster.Gray12Max)}
}

// OpenOptions returns how files are opened: how deep links are followed and
// whether external links are followed at all.
func (c *Config) OpenOptions() []hdf5.OpenOption {
	return []hdf5.OpenOption{
		hdf5.WithMaxLinkDepth(c.Tree.MaxLinkDepth),
		hdf5.WithExternalLinks(c.Tree.FollowExternal),
	}
}
