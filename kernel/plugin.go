package kernel

import "fmt"

// SinkDecl is a single declared input of a plugin at a given step: the key
// it accepts values at (dst_key in the sequence builder's vocabulary), and
// an optional environment variable name when the value must come from the
// process environment.
type SinkDecl struct {
	Step PluginStep
	Key  string
	// Env, when non-empty, tags this sink as environment-sourced: the
	// builder emits RequireEnvValue(Key, Env) for it instead of consulting
	// config or prior publications.
	Env string
	// SrcKey overrides the global key consulted for a Set action when it
	// differs from Key (renaming). Empty means "same as Key".
	SrcKey string
}

// SourceDecl is a single declared output of a plugin at a given step: the
// key it publishes under once that step's Call returns.
type SourceDecl struct {
	Step PluginStep
	Key  string
}

// PluginInterface is the uniform capability surface every plugin exposes,
// per SPEC_FULL.md §1. Built-in and injected plugins share this
// interface; there is no inheritance hierarchy.
type PluginInterface interface {
	Name() string

	GetValue(key string) (any, error)
	SetValue(key string, v Value) error

	PreFlight() error
	GetLastRelease() error
	DeriveNextVersion() error
	GenerateNotes() error
	Prepare() error
	VerifyRelease() error
	Commit() error
	Publish() error
	Notify() error

	// Steps lists every step this plugin implements. The sequence
	// builder's StepDiscover membership mode depends on this declaration
	// being complete.
	Steps() []PluginStep
	// Sinks lists every input this plugin requires, across all steps it
	// implements.
	Sinks() []SinkDecl
	// Sources lists every output this plugin publishes, across all steps
	// it implements.
	Sources() []SourceDecl
}

// Startupper is an optional capability: a plugin that needs one-time
// initialization before it can run implements Startup. Plugins that don't
// need it are started as a no-op.
type Startupper interface {
	Startup() error
}

// call dispatches a named step to a plugin's matching method.
func call(p PluginInterface, step PluginStep) error {
	switch step {
	case PreFlight:
		return p.PreFlight()
	case GetLastRelease:
		return p.GetLastRelease()
	case DeriveNextVersion:
		return p.DeriveNextVersion()
	case GenerateNotes:
		return p.GenerateNotes()
	case Prepare:
		return p.Prepare()
	case VerifyRelease:
		return p.VerifyRelease()
	case Commit:
		return p.Commit()
	case Publish:
		return p.Publish()
	case Notify:
		return p.Notify()
	default:
		return fmt.Errorf("kernel: unknown step %v", step)
	}
}

// rawPluginState tags where a RawPlugin sits in the Unresolved → Resolved
// lifecycle (§4.2/§9 "state machine of plugin lifecycle").
type rawPluginState int

const (
	stateUnresolved rawPluginState = iota
	stateResolved
)

// RawPlugin is identity plus lifecycle state: either an unresolved
// definition or a resolved, not-yet-started handle.
type RawPlugin struct {
	name  string
	state rawPluginState
	def   PluginDefinition
	handle PluginInterface
}

// NewUnresolvedPlugin builds a RawPlugin in the Unresolved state from its
// configured definition.
func NewUnresolvedPlugin(name string, def PluginDefinition) RawPlugin {
	return RawPlugin{name: name, state: stateUnresolved, def: def}
}

func (r RawPlugin) Name() string { return r.name }

// IsResolved reports whether this RawPlugin has transitioned to Resolved.
func (r RawPlugin) IsResolved() bool { return r.state == stateResolved }

// resolved transitions an Unresolved RawPlugin to Resolved, binding it to a
// concrete handle. Calling it on an already-resolved plugin is a
// programmer error (invariant violation), not a user-facing one.
func (r RawPlugin) resolved(handle PluginInterface) RawPlugin {
	if r.state == stateResolved {
		panic(fmt.Sprintf("kernel: plugin %q already resolved", r.name))
	}
	r.state = stateResolved
	r.handle = handle
	return r
}

// Plugin is a started plugin: identity plus a handle guaranteed to satisfy
// PluginInterface and to have completed its startup handshake.
type Plugin struct {
	name   string
	handle PluginInterface
}

func (p Plugin) Name() string             { return p.name }
func (p Plugin) Interface() PluginInterface { return p.handle }
