package kernel

import "fmt"

// Factory builds a plugin handle from its name and full definition. Built-in
// plugins register a Factory under their kind string; external plugins are
// resolved by the external package's Factory (see external/plugin.go).
type Factory func(name string, def PluginDefinition) (PluginInterface, error)

// Resolver transitions RawPlugin values from Unresolved to Resolved by
// binding each plugin's configured kind to a concrete factory.
type Resolver struct {
	factories map[string]Factory
}

// NewResolver builds a Resolver with no registered kinds. Call Register for
// each kind the embedding program supports before calling ResolveAll.
func NewResolver() *Resolver {
	return &Resolver{factories: make(map[string]Factory)}
}

// Register binds a plugin kind string to a Factory. Registering the same
// kind twice overwrites the previous binding.
func (r *Resolver) Register(kind string, f Factory) {
	r.factories[kind] = f
}

// Resolve transitions a single RawPlugin from Unresolved to Resolved. It
// returns the original RawPlugin unchanged, plus an error describing why
// resolution failed, when the kind is unknown or the factory itself
// errors (incompatible version constraint, missing backing command, etc).
func (r *Resolver) Resolve(raw RawPlugin) (RawPlugin, error) {
	factory, ok := r.factories[raw.def.Kind]
	if !ok {
		return raw, fmt.Errorf("unknown plugin kind %q for plugin %q", raw.def.Kind, raw.name)
	}
	handle, err := factory(raw.name, raw.def)
	if err != nil {
		return raw, fmt.Errorf("resolve plugin %q: %w", raw.name, err)
	}
	return raw.resolved(handle), nil
}

// ResolveAll resolves every plugin in the list. Any plugin that fails to
// resolve is collected by name; if the set is non-empty, ResolveAll returns
// a *ResolutionError naming all of them, per the kernel's "report the full
// unresolved list in one error" contract — it never stops at the first
// failure.
func (r *Resolver) ResolveAll(plugins []RawPlugin) ([]RawPlugin, error) {
	resolved := make([]RawPlugin, len(plugins))
	var unresolved []string
	for i, raw := range plugins {
		next, err := r.Resolve(raw)
		if err != nil {
			unresolved = append(unresolved, raw.name)
			resolved[i] = raw
			continue
		}
		resolved[i] = next
	}
	if len(unresolved) > 0 {
		return resolved, &ResolutionError{Names: unresolved}
	}
	return resolved, nil
}
