package kernel

// PluginDefinition is the full, normalized description of a plugin entry
// from the `plugins` section of configuration: a source kind plus an
// optional version constraint and inline options. Short-form TOML entries
// (a bare string naming the kind) are expanded into this shape by the
// config package before reaching the kernel.
type PluginDefinition struct {
	Name    string
	Kind    string
	Version string
	Options map[string]any
}

// StepDefinitionKind distinguishes the ways a step's plugin membership can
// be declared in configuration.
type StepDefinitionKind int

const (
	// StepShared inherits the plugin list from Configuration.SharedPlugins.
	StepShared StepDefinitionKind = iota
	// StepSingleton names exactly one plugin.
	StepSingleton
	// StepDiscover uses every plugin that declares the step via its
	// PluginInterface.Steps() method.
	StepDiscover
	// StepParallel lists an explicit ordered set of plugin names.
	StepParallel
	// StepPlan lists an explicit ordered set of plugin names; semantically
	// identical to StepParallel for sequencing purposes (parallel
	// execution itself is a Non-goal — see SPEC_FULL.md §5). The
	// distinction is purely declarative intent in the source
	// configuration.
	StepPlan
)

// StepDefinition describes how a single PluginStep's membership is
// resolved from configuration.
type StepDefinition struct {
	Kind StepDefinitionKind
	// Name holds the singleton plugin name when Kind == StepSingleton.
	Name string
	// List holds the ordered plugin names when Kind is StepParallel or
	// StepPlan.
	List []string
	// Multiplicity optionally overrides PluginStep.DefaultMultiplicity.
	// Only DeriveNextVersion honors this override (see SPEC_FULL.md §6).
	// Empty string means "use the step's default".
	Multiplicity string
}

// Configuration is the fully normalized, in-memory pipeline configuration
// consumed by the kernel. Parsing releaserc.toml into this shape is the
// config package's job (see config.Load); the kernel itself never touches
// TOML.
type Configuration struct {
	// Cfg holds free-form global configuration entries, each already
	// decoded into a Value.
	Cfg map[string]Value
	// Plugins maps plugin name to its full definition.
	Plugins map[string]PluginDefinition
	// Steps maps a step to its membership definition. A step absent from
	// this map has no configured plugins; only plugins injected into it
	// via KernelBuilder.InjectPlugin run for it.
	Steps map[PluginStep]StepDefinition
	// SharedPlugins is the ordered plugin-name list used by any step whose
	// StepDefinition.Kind is StepShared.
	SharedPlugins []string
	// IsDryRun toggles dry-run mode. Derived from Cfg["dry_run"] by the
	// config package; defaults to true when absent.
	IsDryRun bool
}

// PluginOverride looks up a per-plugin override for dst in the plugin's
// definition options (plugins.<name>.options.<dst> in releaserc.toml),
// the config path consulted by
// DataManager.prepare_value and prepare_value_same_key.
func (c *Configuration) PluginOverride(pluginName, dst string) (any, bool) {
	def, ok := c.Plugins[pluginName]
	if !ok {
		return nil, false
	}
	v, ok := def.Options[dst]
	return v, ok
}
