package kernel

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/GoCodeAlone/releasekernel/logging"
)

// lifecycle tags the kernel's own run state (Built → Running → Completed |
// Failed). It exists mainly to guard against re-entry:
// Run consumes the kernel and must not be called twice.
type lifecycle int

const (
	lifecycleBuilt lifecycle = iota
	lifecycleRunning
	lifecycleCompleted
	lifecycleFailed
)

// Kernel iterates a pre-compiled PluginSequence, dispatching each action to
// the right plugin and threading values through its DataManager. It is
// consumed by Run; there is no re-entry.
type Kernel struct {
	plugins  []Plugin
	dataMgr  *DataManager
	sequence PluginSequence
	env      map[string]string
	isDryRun bool
	logger   hclog.Logger
	runID    string

	state lifecycle
}

// Run executes the compiled sequence in order, aborting on the first
// error. It may be called exactly once.
func (k *Kernel) Run() error {
	if k.state != lifecycleBuilt {
		return &InvariantViolation{Reason: "Kernel.Run called more than once"}
	}
	k.state = lifecycleRunning
	k.logger.Info("starting release run", "run_id", k.runID, "dry_run", k.isDryRun, "actions", len(k.sequence.Actions))

	for _, action := range k.sequence.Actions {
		if err := k.dispatch(action); err != nil {
			k.state = lifecycleFailed
			return err
		}
	}

	if k.isDryRun {
		var skipped []string
		for _, s := range Steps {
			if !s.DryRunSafe() {
				skipped = append(skipped, s.String())
			}
		}
		k.logger.Info("dry run: skipped non-dry-safe steps", "steps", strings.Join(skipped, ", "))
	}

	k.state = lifecycleCompleted
	return nil
}

func (k *Kernel) plugin(id int) (Plugin, error) {
	if id < 0 || id >= len(k.plugins) {
		return Plugin{}, &InvariantViolation{Reason: fmt.Sprintf("action references out-of-range plugin id %d", id)}
	}
	return k.plugins[id], nil
}

func (k *Kernel) dispatch(action Action) error {
	p, err := k.plugin(action.PluginID)
	if err != nil {
		return err
	}
	span := logging.Span(k.logger, p.name).With("run_id", k.runID)

	switch action.Kind {
	case ActionCall:
		span.Debug("call", "step", action.Step.String())
		if err := call(p.handle, action.Step); err != nil {
			return &PluginError{Plugin: p.name, Action: "call " + action.Step.String(), Cause: err}
		}
		return nil

	case ActionGet:
		value, err := p.handle.GetValue(action.SrcKey)
		if err != nil {
			return &PluginError{Plugin: p.name, Action: "get " + action.SrcKey, Cause: err}
		}
		span.Debug("get", "key", action.SrcKey)
		k.dataMgr.InsertGlobal(action.SrcKey, NewValue(action.SrcKey, value))
		return nil

	case ActionSet:
		value, err := k.dataMgr.PrepareValue(action.PluginID, action.DstKey, action.SrcKey)
		if err != nil {
			return err
		}
		span.Debug("set", "key", action.DstKey, "source", action.SrcKey)
		if err := p.handle.SetValue(action.DstKey, value); err != nil {
			return &PluginError{Plugin: p.name, Action: "set " + action.DstKey, Cause: err}
		}
		return nil

	case ActionSetValue:
		value := NewValue(action.DstKey, action.Literal)
		span.Debug("set literal", "key", action.DstKey)
		if err := p.handle.SetValue(action.DstKey, value); err != nil {
			return &PluginError{Plugin: p.name, Action: "set " + action.DstKey, Cause: err}
		}
		return nil

	case ActionRequireConfigEntry:
		value, err := k.dataMgr.PrepareValueSameKey(action.PluginID, action.DstKey)
		if err != nil {
			return err
		}
		span.Debug("require config entry", "key", action.DstKey)
		if err := p.handle.SetValue(action.DstKey, value); err != nil {
			return &PluginError{Plugin: p.name, Action: "set " + action.DstKey, Cause: err}
		}
		return nil

	case ActionRequireEnvValue:
		raw, ok := k.env[action.EnvVar]
		if !ok {
			return &EnvValueUndefined{Var: action.EnvVar}
		}
		value := NewValue(action.EnvVar, raw)
		span.Debug("require env value", "key", action.DstKey, "env", action.EnvVar)
		if err := p.handle.SetValue(action.DstKey, value); err != nil {
			return &PluginError{Plugin: p.name, Action: "set " + action.DstKey, Cause: err}
		}
		return nil

	default:
		return &InvariantViolation{Reason: fmt.Sprintf("unknown action kind %d", action.Kind)}
	}
}

// KernelBuilder drives the build → resolve → start → inject → compile
// pipeline.
type KernelBuilder struct {
	cfg      *Configuration
	resolver *Resolver
	logger   hclog.Logger

	injectedPlugins []PluginInterface
	injections      []Injection
}

// NewKernelBuilder builds a KernelBuilder for the given normalized
// configuration and plugin resolver. logger may be nil, in which case a
// default hclog logger writing to stderr is used.
func NewKernelBuilder(cfg *Configuration, resolver *Resolver, logger hclog.Logger) *KernelBuilder {
	if logger == nil {
		logger = logging.New("releasekernel")
	}
	return &KernelBuilder{cfg: cfg, resolver: resolver, logger: logger}
}

// InjectPlugin schedules a plugin to be spliced into a step's membership at
// build time. Injected plugins are prepended
// to the kernel's plugin list so their ids stay low and stable.
func (b *KernelBuilder) InjectPlugin(p PluginInterface, step PluginStep, before bool) *KernelBuilder {
	b.injectedPlugins = append(b.injectedPlugins, p)
	b.injections = append(b.injections, Injection{Step: step, Before: before})
	return b
}

// Build runs the full pipeline: resolve every configured plugin, start
// them, prepend injected plugins, compile the sequence, and wrap
// everything into a ready-to-run Kernel.
func (b *KernelBuilder) Build() (*Kernel, error) {
	raws := make([]RawPlugin, 0, len(b.cfg.Plugins))
	order := make([]string, 0, len(b.cfg.Plugins))
	for name := range b.cfg.Plugins {
		order = append(order, name)
	}
	sort.Strings(order)
	for _, name := range order {
		raws = append(raws, NewUnresolvedPlugin(name, b.cfg.Plugins[name]))
	}

	resolved, err := b.resolver.ResolveAll(raws)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("all plugins resolved")

	starter := NewStarter()
	started, err := starter.StartAll(resolved)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("all plugins started")

	injected := make([]Plugin, len(b.injectedPlugins))
	for i, iface := range b.injectedPlugins {
		if su, ok := iface.(Startupper); ok {
			if err := su.Startup(); err != nil {
				return nil, &StartupError{Plugin: iface.Name(), Cause: err}
			}
		}
		injected[i] = Plugin{name: iface.Name(), handle: iface}
	}

	plugins := append(injected, started...)

	sequence, err := BuildSequence(plugins, b.cfg, b.injections, b.cfg.IsDryRun)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("plugin sequence built", "actions", len(sequence.Actions))

	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.name
	}
	dataMgr := NewDataManager(b.cfg, names)

	return &Kernel{
		plugins:  plugins,
		dataMgr:  dataMgr,
		sequence: sequence,
		env:      captureEnv(),
		isDryRun: b.cfg.IsDryRun,
		logger:   b.logger,
		runID:    uuid.NewString(),
		state:    lifecycleBuilt,
	}, nil
}

func captureEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			env[parts[0]] = parts[1]
		}
	}
	return env
}

