// Package config loads releaserc.toml into the kernel's normalized
// Configuration model (kernel.Configuration). The kernel package never
// touches TOML directly — this is the boundary SPEC_FULL.md §2 draws
// between "configuration file parsing" and the core.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/GoCodeAlone/releasekernel/kernel"
)

// rawFile mirrors releaserc.toml's three top-level sections, plus the
// optional top-level `shared` plugin list, before normalization. Plugin and
// step entries are left as `any` because TOML allows both short form (a
// bare string) and long form (a table) for plugins, and a single string, a
// list or a table for steps.
type rawFile struct {
	Cfg     map[string]any `toml:"cfg"`
	Plugins map[string]any `toml:"plugins"`
	Steps   map[string]any `toml:"steps"`
	Shared  []string       `toml:"shared"`
}

// Load reads and normalizes a releaserc.toml file from path.
func Load(path string) (*kernel.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse normalizes raw TOML bytes into a kernel.Configuration.
func Parse(data []byte) (*kernel.Configuration, error) {
	var raw rawFile
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("config: parse toml: %w", err)
	}
	return normalize(raw)
}

func normalize(raw rawFile) (*kernel.Configuration, error) {
	cfg := &kernel.Configuration{
		Cfg:           make(map[string]kernel.Value),
		Plugins:       make(map[string]kernel.PluginDefinition),
		Steps:         make(map[kernel.PluginStep]kernel.StepDefinition),
		SharedPlugins: raw.Shared,
		IsDryRun:      true,
	}

	for k, v := range raw.Cfg {
		cfg.Cfg[k] = kernel.NewValue(k, v)
	}
	if dr, ok := cfg.Cfg["dry_run"]; ok {
		if b, ok := dr.Value.(bool); ok {
			cfg.IsDryRun = b
		}
	}

	for name, v := range raw.Plugins {
		def, err := normalizePluginDefinition(name, v)
		if err != nil {
			return nil, err
		}
		cfg.Plugins[name] = def
	}

	for name, v := range raw.Steps {
		step, ok := kernel.StepFromName(name)
		if !ok {
			return nil, &kernel.ConfigurationError{Reason: fmt.Sprintf("unknown step %q in configuration", name)}
		}
		def, err := normalizeStepDefinition(step, v)
		if err != nil {
			return nil, err
		}
		cfg.Steps[step] = def
	}

	return cfg, nil
}

// normalizePluginDefinition expands either a short-form string ("git") or a
// long-form table ({kind, version, options}) into a full PluginDefinition.
func normalizePluginDefinition(name string, v any) (kernel.PluginDefinition, error) {
	switch val := v.(type) {
	case string:
		return kernel.PluginDefinition{Name: name, Kind: val}, nil
	case map[string]any:
		def := kernel.PluginDefinition{Name: name}
		if kind, ok := val["kind"].(string); ok {
			def.Kind = kind
		} else {
			return kernel.PluginDefinition{}, &kernel.ConfigurationError{Reason: fmt.Sprintf("plugin %q: long-form definition missing required field %q", name, "kind")}
		}
		if version, ok := val["version"].(string); ok {
			def.Version = version
		}
		if opts, ok := val["options"].(map[string]any); ok {
			def.Options = opts
		}
		return def, nil
	default:
		return kernel.PluginDefinition{}, &kernel.ConfigurationError{Reason: fmt.Sprintf("plugin %q: malformed definition", name)}
	}
}

// normalizeStepDefinition expands a step entry, which is one of: a single
// string (singleton, or "discover"/"shared"), a list of strings
// (explicit ordered set, interpreted as Parallel), or a table with
// optional `plugins` and `multiplicity` fields.
func normalizeStepDefinition(step kernel.PluginStep, v any) (kernel.StepDefinition, error) {
	switch val := v.(type) {
	case string:
		switch val {
		case "discover":
			return kernel.StepDefinition{Kind: kernel.StepDiscover}, nil
		case "shared":
			return kernel.StepDefinition{Kind: kernel.StepShared}, nil
		default:
			return kernel.StepDefinition{Kind: kernel.StepSingleton, Name: val}, nil
		}
	case []any:
		names := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return kernel.StepDefinition{}, &kernel.ConfigurationError{Reason: fmt.Sprintf("step %s: list entries must be strings", step)}
			}
			names = append(names, s)
		}
		return kernel.StepDefinition{Kind: kernel.StepParallel, List: names}, nil
	case map[string]any:
		// Table form: {plugins = [...], multiplicity = "singleton"|"multi"}.
		// Only DeriveNextVersion honors multiplicity (SPEC_FULL.md §6); it
		// is harmlessly ignored for any other step.
		def := kernel.StepDefinition{Kind: kernel.StepParallel}
		if m, ok := val["multiplicity"].(string); ok {
			def.Multiplicity = m
		}
		switch plugins := val["plugins"].(type) {
		case []any:
			for _, item := range plugins {
				s, ok := item.(string)
				if !ok {
					return kernel.StepDefinition{}, &kernel.ConfigurationError{Reason: fmt.Sprintf("step %s: plugins entries must be strings", step)}
				}
				def.List = append(def.List, s)
			}
		case string:
			def.Kind = kernel.StepSingleton
			def.Name = plugins
		case nil:
			def.Kind = kernel.StepDiscover
		default:
			return kernel.StepDefinition{}, &kernel.ConfigurationError{Reason: fmt.Sprintf("step %s: malformed plugins field", step)}
		}
		return def, nil
	default:
		return kernel.StepDefinition{}, &kernel.ConfigurationError{Reason: fmt.Sprintf("step %s: malformed definition", step)}
	}
}
