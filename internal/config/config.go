// Package config implements the engine-wide tunables: environment-variable
// configuration loaded with github.com/caarlos0/env/v6 (the PCODEC_
// prefix, mirroring internal/maincmd's PCODEC-equivalent mainer.Parser
// EnvPrefix convention), plus an optional on-disk action-group preset
// loaded from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config holds the main-loop/scheduler tunables. internal/typeprop's
// default iteration budget is a package-local fallback, used only when
// TypePropBudget is zero; internal/rule's MaxSweeps is a fixed package
// constant that no Config field overrides.
type Config struct {
	// MaxInstructions bounds one function's total p-code op count; the
	// engine fails the decompilation with diag.LowLevel rather than
	// producing partial output when exceeded (§7).
	MaxInstructions int `env:"MAX_INSTRUCTIONS" envDefault:"100000"`
	// ActionPassLimit is loaded from the environment but no package reads
	// it: internal/action.Group repeats and restarts its actions without
	// any bound on the number of passes.
	ActionPassLimit int `env:"ACTION_PASS_LIMIT" envDefault:"50"`
	// TypePropBudget overrides typeprop.Propagate's default iteration
	// budget; zero keeps that package's own default.
	TypePropBudget int `env:"TYPEPROP_BUDGET" envDefault:"0"`
	// WavefrontScheduling makes the pipeline execute the post-loop schedule
	// through internal/sched's Schedule.Run, wavefront by wavefront;
	// disabled, the pipeline runs Schedule.Sequential()'s flattened list
	// itself. Both paths execute one task at a time (§4.12, §5).
	WavefrontScheduling bool `env:"WAVEFRONT_SCHEDULING" envDefault:"false"`
	// ActionGroup names which preset (see Preset) to run by default when
	// none is specified on the command line.
	ActionGroup string `env:"ACTION_GROUP" envDefault:"full-decompile"`
}

// Load reads a Config from the process environment, applying the
// PCODEC_ prefix to every field's env tag.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "PCODEC_"}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Preset names which rule/action groups are enabled for one decompilation
// scenario (full decompile, jump-table recovery only, parameter-id only,
// ...), loaded from an on-disk YAML document rather than the
// environment, since presets are named, shareable configurations rather
// than per-invocation tunables.
type Preset struct {
	Name         string   `yaml:"name"`
	RuleGroups   []string `yaml:"rule_groups"`
	ActionGroups []string `yaml:"action_groups"`
}

// LoadPreset reads a Preset document from path.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading preset: %w", err)
	}
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parsing preset %s: %w", path, err)
	}
	return &p, nil
}

// LoadPresets reads a multi-document YAML file (one document per named
// preset) from path, keyed by Preset.Name.
func LoadPresets(path string) (map[string]*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading presets: %w", err)
	}
	presets := make(map[string]*Preset)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var p Preset
		if err := dec.Decode(&p); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("config: parsing presets %s: %w", path, err)
		}
		presets[p.Name] = &p
	}
	return presets, nil
}
