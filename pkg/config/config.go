// Package config loads ezsplit settings from a TOML file and applies command
// line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/chazu/ezsplit/pkg/connectivity"
	"github.com/chazu/ezsplit/pkg/merge"
)

// Config holds every configurable setting.
type Config struct {
	Store  StoreConfig  `toml:"store"`
	Split  SplitConfig  `toml:"split"`
	Merge  MergeConfig  `toml:"merge"`
	Log    LogConfig    `toml:"log"`
	Engine EngineConfig `toml:"engine"`
	Watch  WatchConfig  `toml:"watch"`
}

// StoreConfig is the [store] table: where assets and the scene live.
type StoreConfig struct {
	Root  string `toml:"root"`  // directory holding the asset tree
	Scene string `toml:"scene"` // scene file, relative to the working directory
	STL   bool   `toml:"stl"`   // also write .stl next to every committed mesh
}

// SplitConfig is the [split] table.
type SplitConfig struct {
	Strategy string `toml:"strategy"` // "indexed" or "scan"
}

// MergeConfig is the [merge] table. Each field maps onto merge.Settings.
type MergeConfig struct {
	MergeMaterials     bool   `toml:"merge_materials"`
	GenerateLightmapUV bool   `toml:"generate_lightmap_uv"`
	PivotAtOrigin      bool   `toml:"pivot_at_origin"`
	BakeVertexData     bool   `toml:"bake_vertex_data"`
	UVPolicy           string `toml:"uv_policy"` // "union" or "strict"
}

// LogConfig is the [log] table.
type LogConfig struct {
	Level string `toml:"level"`
}

// EngineConfig is the [engine] table for script evaluation.
type EngineConfig struct {
	Timeout   string `toml:"timeout"`    // Go duration, e.g. "5s"
	MeshCells int    `toml:"mesh_cells"` // marching cubes cells along the longest axis
}

// WatchConfig is the [watch] table used by the watch command.
type WatchConfig struct {
	Inbox string `toml:"inbox"` // asset folder that new files are split into
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Store: StoreConfig{Root: "assets", Scene: "scene.json"},
		Split: SplitConfig{Strategy: "indexed"},
		Merge: MergeConfig{
			MergeMaterials:     true,
			GenerateLightmapUV: true,
			PivotAtOrigin:      true,
			BakeVertexData:     true,
			UVPolicy:           "union",
		},
		Log:    LogConfig{Level: "info"},
		Engine: EngineConfig{Timeout: "5s", MeshCells: 200},
		Watch:  WatchConfig{Inbox: "/Inbox"},
	}
}

// Load reads a TOML file over the defaults. Keys absent from the file keep
// their default values; unknown keys are an error. A missing file yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Flags holds command line values that override the file.
type Flags struct {
	StoreRoot string
	SceneFile string
	STL       bool
	Strategy  string
	UVPolicy  string
	LogLevel  string
}

// Resolve applies non-empty flags over c.
func (c *Config) Resolve(flags Flags) {
	if flags.StoreRoot != "" {
		c.Store.Root = flags.StoreRoot
	}
	if flags.SceneFile != "" {
		c.Store.Scene = flags.SceneFile
	}
	if flags.STL {
		c.Store.STL = true
	}
	if flags.Strategy != "" {
		c.Split.Strategy = flags.Strategy
	}
	if flags.UVPolicy != "" {
		c.Merge.UVPolicy = flags.UVPolicy
	}
	if flags.LogLevel != "" {
		c.Log.Level = flags.LogLevel
	}
}

// Validate checks the values that are parsed later.
func (c Config) Validate() error {
	if c.Store.Root == "" || c.Store.Scene == "" {
		return errors.New("config: store.root and store.scene must be set")
	}
	if _, err := c.Strategy(); err != nil {
		return fmt.Errorf("config: split.strategy: %w", err)
	}
	if _, err := c.MergeSettings(); err != nil {
		return fmt.Errorf("config: merge.uv_policy: %w", err)
	}
	if _, err := c.EvalTimeout(); err != nil {
		return fmt.Errorf("config: engine.timeout: %w", err)
	}
	if c.Engine.MeshCells <= 0 {
		return fmt.Errorf("config: engine.mesh_cells must be positive, got %d", c.Engine.MeshCells)
	}
	return nil
}

// Strategy returns the configured connectivity strategy.
func (c Config) Strategy() (connectivity.Strategy, error) {
	return connectivity.ParseStrategy(c.Split.Strategy)
}

// MergeSettings returns the configured merge settings.
func (c Config) MergeSettings() (merge.Settings, error) {
	policy, err := merge.ParseUVPolicy(c.Merge.UVPolicy)
	if err != nil {
		return merge.Settings{}, err
	}
	return merge.Settings{
		MergeMaterials:       c.Merge.MergeMaterials,
		GenerateLightmapUV:   c.Merge.GenerateLightmapUV,
		PivotAtOrigin:        c.Merge.PivotAtOrigin,
		LODSelection:         merge.AllLODs,
		BakeVertexDataToMesh: c.Merge.BakeVertexData,
		UVPolicy:             policy,
	}, nil
}

// EvalTimeout returns the script evaluation timeout.
func (c Config) EvalTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Engine.Timeout)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", d)
	}
	return d, nil
}
