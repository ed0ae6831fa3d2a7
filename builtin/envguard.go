// Package builtin provides the small set of in-process plugins supplementing
// the distilled spec per SPEC_FULL.md §4: ordinary implementations of
// kernel.PluginInterface with no kernel special-casing. The embedding
// program registers their factories with kernel.Resolver.Register under
// the "builtin:env-guard" and "builtin:noop-notify" kinds.
package builtin

import "github.com/GoCodeAlone/releasekernel/kernel"

// EnvGuard is a PreFlight-only plugin with no sinks or sources. It exists
// to give example configurations and integration tests a concrete, always
// -available PreFlight member.
type EnvGuard struct {
	name string
}

// NewEnvGuard builds an EnvGuard plugin bound to name.
func NewEnvGuard(name string) *EnvGuard {
	return &EnvGuard{name: name}
}

func (e *EnvGuard) Name() string { return e.name }

func (e *EnvGuard) GetValue(key string) (any, error) {
	return nil, &kernel.ValueNotAvailable{Key: key}
}

func (e *EnvGuard) SetValue(key string, v kernel.Value) error { return nil }

func (e *EnvGuard) PreFlight() error         { return nil }
func (e *EnvGuard) GetLastRelease() error    { return nil }
func (e *EnvGuard) DeriveNextVersion() error { return nil }
func (e *EnvGuard) GenerateNotes() error     { return nil }
func (e *EnvGuard) Prepare() error           { return nil }
func (e *EnvGuard) VerifyRelease() error     { return nil }
func (e *EnvGuard) Commit() error            { return nil }
func (e *EnvGuard) Publish() error           { return nil }
func (e *EnvGuard) Notify() error            { return nil }

func (e *EnvGuard) Steps() []kernel.PluginStep { return []kernel.PluginStep{kernel.PreFlight} }
func (e *EnvGuard) Sinks() []kernel.SinkDecl    { return nil }
func (e *EnvGuard) Sources() []kernel.SourceDecl { return nil }

// EnvGuardFactory is the kernel.Factory binding for the "builtin:env-guard"
// plugin kind.
func EnvGuardFactory(name string, def kernel.PluginDefinition) (kernel.PluginInterface, error) {
	return NewEnvGuard(name), nil
}
