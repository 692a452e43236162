// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package config loads accelerated pipeline options from TOML.
//
// A minimal file:
//
//	shader_library = "/usr/share/accel/shaders.wgsl"
//	memory_budget_mb = 256
//
//	[display]
//	id = 1
//	scale_factor = 2.0
//
// Unset fields keep their Default values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/accel/gfxconfig"
)

// EnvVar names the environment variable Load reads the path from when it
// is given none.
const EnvVar = "ACCEL_CONFIG"

// ErrInvalid is returned for option values out of range.
var ErrInvalid = errors.New("config: invalid option")

// Display selects the display configurations are acquired for.
type Display struct {
	ID          uint32  `toml:"id"`
	PixelFormat int     `toml:"pixel_format"`
	ScaleFactor float64 `toml:"scale_factor"`
	Width       int     `toml:"width"`
	Height      int     `toml:"height"`
}

// Options configures the accelerated pipeline.
type Options struct {
	// ShaderLibrary is the WGSL library passed to the backend. Empty
	// means none.
	ShaderLibrary string `toml:"shader_library"`

	// MemoryBudgetMB bounds GPU memory used by accelerated surfaces.
	MemoryBudgetMB int `toml:"memory_budget_mb"`

	// ProxyCacheCapacity is the number of cached copies per cache shard.
	ProxyCacheCapacity int `toml:"proxy_cache_capacity"`

	// Accelerate enables accelerated volatile images.
	Accelerate bool `toml:"accelerate"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	Display Display `toml:"display"`
}

// Default returns the default options.
func Default() Options {
	return Options{
		MemoryBudgetMB:     256,
		ProxyCacheCapacity: 64,
		Accelerate:         true,
		LogLevel:           "warn",
		Display:            Display{ScaleFactor: 1},
	}
}

// Parse decodes TOML data over Default. Unknown keys are rejected.
func Parse(data []byte) (Options, error) {
	o := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&o); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Options{}, fmt.Errorf("config: line %d column %d: %w", row, col, err)
		}
		return Options{}, fmt.Errorf("config: %w", err)
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// Load reads options from path. An empty path falls back to the EnvVar
// environment variable, and to Default when that is unset too.
func Load(path string) (Options, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: %w", err)
	}
	o, err := Parse(data)
	if err != nil {
		return Options{}, fmt.Errorf("%s: %w", path, err)
	}
	return o, nil
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.MemoryBudgetMB < 0 {
		return fmt.Errorf("%w: memory_budget_mb %d is negative", ErrInvalid, o.MemoryBudgetMB)
	}
	if o.ProxyCacheCapacity < 0 {
		return fmt.Errorf("%w: proxy_cache_capacity %d is negative", ErrInvalid, o.ProxyCacheCapacity)
	}
	if o.Display.Width < 0 || o.Display.Height < 0 {
		return fmt.Errorf("%w: display size %dx%d", ErrInvalid, o.Display.Width, o.Display.Height)
	}
	if _, err := o.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns LogLevel as a slog level. Empty means warn.
func (o Options) Level() (slog.Level, error) {
	if o.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(o.LogLevel))); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, o.LogLevel)
	}
	return l, nil
}

// Marshal encodes o as TOML.
func (o Options) Marshal() ([]byte, error) {
	return toml.Marshal(o)
}

// EnvironmentOptions converts o to gfxconfig options.
func (o Options) EnvironmentOptions() []gfxconfig.Option {
	opts := []gfxconfig.Option{
		gfxconfig.WithMemoryBudget(o.MemoryBudgetMB),
		gfxconfig.WithProxyCacheCapacity(o.ProxyCacheCapacity),
	}
	if o.ShaderLibrary != "" {
		opts = append(opts, gfxconfig.WithShaderLibrary(o.ShaderLibrary))
	}
	if !o.Accelerate {
		opts = append(opts, gfxconfig.WithAcceleration(false))
	}
	return opts
}

// Device returns the configured display as a gfxconfig device.
func (o Options) Device() gfxconfig.Device {
	d := o.Display
	return gfxconfig.Device{
		DisplayID:   d.ID,
		ScaleFactor: d.ScaleFactor,
		Bounds:      image.Rect(0, 0, d.Width, d.Height),
	}
}
