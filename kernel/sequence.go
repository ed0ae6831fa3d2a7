package kernel

import "fmt"

// ActionKind tags the kind of work a single Action performs.
type ActionKind int

const (
	// ActionCall invokes a step method on the target plugin.
	ActionCall ActionKind = iota
	// ActionGet reads SrcKey from the target plugin and publishes it
	// globally under the same key.
	ActionGet
	// ActionSet writes DstKey into the target plugin from the value
	// currently published globally under SrcKey.
	ActionSet
	// ActionSetValue writes a literal value into the target plugin.
	ActionSetValue
	// ActionRequireConfigEntry writes the config entry whose global key
	// equals DstKey into the target plugin.
	ActionRequireConfigEntry
	// ActionRequireEnvValue writes the current value of the named
	// environment variable into the target plugin.
	ActionRequireEnvValue
)

func (k ActionKind) String() string {
	switch k {
	case ActionCall:
		return "Call"
	case ActionGet:
		return "Get"
	case ActionSet:
		return "Set"
	case ActionSetValue:
		return "SetValue"
	case ActionRequireConfigEntry:
		return "RequireConfigEntry"
	case ActionRequireEnvValue:
		return "RequireEnvValue"
	default:
		return "Unknown"
	}
}

// Action is the smallest unit of kernel work: a target plugin id plus a
// typed payload describing what to do.
type Action struct {
	PluginID int
	Kind     ActionKind

	// Step is set for ActionCall.
	Step PluginStep
	// DstKey is set for ActionSet, ActionSetValue, ActionRequireConfigEntry
	// and ActionRequireEnvValue.
	DstKey string
	// SrcKey is set for ActionGet (the key read from the plugin and
	// published globally) and ActionSet (the global key to pull from).
	SrcKey string
	// Literal is set for ActionSetValue.
	Literal any
	// EnvVar is set for ActionRequireEnvValue: the environment variable
	// name to read.
	EnvVar string
}

func (a Action) String() string {
	switch a.Kind {
	case ActionCall:
		return fmt.Sprintf("Call(%d, %s)", a.PluginID, a.Step)
	case ActionGet:
		return fmt.Sprintf("Get(%d, %s)", a.PluginID, a.SrcKey)
	case ActionSet:
		return fmt.Sprintf("Set(%d, %s<-%s)", a.PluginID, a.DstKey, a.SrcKey)
	case ActionSetValue:
		return fmt.Sprintf("SetValue(%d, %s)", a.PluginID, a.DstKey)
	case ActionRequireConfigEntry:
		return fmt.Sprintf("RequireConfigEntry(%d, %s)", a.PluginID, a.DstKey)
	case ActionRequireEnvValue:
		return fmt.Sprintf("RequireEnvValue(%d, %s<-env:%s)", a.PluginID, a.DstKey, a.EnvVar)
	default:
		return "Action(?)"
	}
}

// PluginSequence is the ordered, immutable action list compiled by
// BuildSequence. Once built it is consumed exactly once by Kernel.Run.
type PluginSequence struct {
	Actions []Action
}

// namedPlugin is the minimal view BuildSequence needs of a started plugin:
// its position in the kernel's plugin list plus its declared capability
// surface.
type namedPlugin struct {
	id     int
	name   string
	iface  PluginInterface
}

// BuildSequence compiles configuration, the started plugin list and any
// injections into a linear, ordered, dry-run-aware PluginSequence. The
// phases run in order: resolveMembers, applyInjections, validateSingletons,
// buildBlocks, provisionBlocks, filterDryRun (dry run only), flatten.
func BuildSequence(plugins []Plugin, cfg *Configuration, injections []Injection, isDryRun bool) (PluginSequence, error) {
	nameToID := make(map[string]int, len(plugins))
	nps := make([]namedPlugin, len(plugins))
	for i, p := range plugins {
		nameToID[p.name] = i
		nps[i] = namedPlugin{id: i, name: p.name, iface: p.handle}
	}

	members, err := resolveMembers(cfg, nps, nameToID)
	if err != nil {
		return PluginSequence{}, err
	}
	applyInjections(members, injections, nameToID)

	if err := validateSingletons(cfg, members); err != nil {
		return PluginSequence{}, err
	}

	blocks, err := buildBlocks(nps, members)
	if err != nil {
		return PluginSequence{}, err
	}

	blocks, err = provisionBlocks(blocks, nps, cfg)
	if err != nil {
		return PluginSequence{}, err
	}

	if isDryRun {
		blocks = filterDryRun(blocks)
	}

	return flatten(blocks), nil
}

// Injection is a plugin to splice into a step's membership at build time.
// Injected plugins are prepended to the
// kernel's plugin list by KernelBuilder before BuildSequence runs, so their
// ids are always lower than any configured plugin's.
type Injection struct {
	Step   PluginStep
	Before bool
}

// resolveMembers derives members(step) for every step with a configured
// definition.
func resolveMembers(cfg *Configuration, nps []namedPlugin, nameToID map[string]int) (map[PluginStep][]int, error) {
	members := make(map[PluginStep][]int)

	for _, step := range Steps {
		def, ok := cfg.Steps[step]
		if !ok {
			continue
		}

		var list []string
		switch def.Kind {
		case StepShared:
			list = cfg.SharedPlugins
		case StepSingleton:
			list = []string{def.Name}
		case StepDiscover:
			for _, np := range nps {
				for _, s := range np.iface.Steps() {
					if s == step {
						list = append(list, np.name)
						break
					}
				}
			}
		case StepParallel, StepPlan:
			list = def.List
		}

		ids := make([]int, 0, len(list))
		for _, name := range list {
			id, ok := nameToID[name]
			if !ok {
				return nil, &ConfigurationError{Reason: fmt.Sprintf("step %s references unknown plugin %q", step, name)}
			}
			ids = append(ids, id)
		}
		members[step] = ids
	}

	return members, nil
}

// applyInjections splices injected plugin ids into members(step) at the
// front or back. Injected plugins occupy the
// lowest ids (0..len(injections)-1) by construction of KernelBuilder.Build.
//
// An injected plugin that also declares the same step via its own Steps()
// is already present in members(step) when that step is StepDiscover — in
// that case the id is left where resolveMembers placed it instead of being
// spliced in a second time, so a Multi-multiplicity discover step never
// calls the same plugin twice.
func applyInjections(members map[PluginStep][]int, injections []Injection, nameToID map[string]int) {
	_ = nameToID
	for id, inj := range injections {
		existing := members[inj.Step]
		already := false
		for _, m := range existing {
			if m == id {
				already = true
				break
			}
		}
		if already {
			continue
		}
		if inj.Before {
			members[inj.Step] = append([]int{id}, existing...)
		} else {
			members[inj.Step] = append(existing, id)
		}
	}
}

// stepMultiplicity resolves the effective multiplicity for a step, honoring
// the DeriveNextVersion override described in SPEC_FULL.md §6.
func stepMultiplicity(cfg *Configuration, step PluginStep) Multiplicity {
	def, ok := cfg.Steps[step]
	if ok && step == DeriveNextVersion && def.Multiplicity != "" {
		if def.Multiplicity == "singleton" {
			return Singleton
		}
		return Multi
	}
	return step.DefaultMultiplicity()
}

// validateSingletons enforces |members(step)| == 1 for every singleton step
// that configuration actually uses. A step absent from cfg.Steps entirely
// has no pipeline presence and is exempt — only a step someone configured
// can violate its own cardinality. This runs after injections are applied
// so the check covers the final membership the sequence will actually be
// built from (documented in DESIGN.md under "Open Question decisions").
func validateSingletons(cfg *Configuration, members map[PluginStep][]int) error {
	for _, step := range Steps {
		if _, configured := cfg.Steps[step]; !configured {
			continue
		}
		if stepMultiplicity(cfg, step) != Singleton {
			continue
		}
		ids, ok := members[step]
		if !ok || len(ids) != 1 {
			return &ConfigurationError{Reason: fmt.Sprintf("singleton step %s must have exactly one plugin, got %d", step, len(ids))}
		}
	}
	return nil
}

// block groups everything the builder emits for one (plugin, step) pair:
// the provisioning actions that must precede the call, the call itself,
// and the Get actions that follow it.
type block struct {
	pluginID int
	step     PluginStep
	provision []provisionAction
	call      Action
	gets      []Action
}

// provisionAction is a provisioning obligation not yet finalized into an
// Action: it additionally tracks which steps rely on it, so the dry-run
// filter can tell whether dropping one step's Call makes it redundant.
type provisionAction struct {
	action        Action
	requiredSteps map[PluginStep]bool
}

func buildBlocks(nps []namedPlugin, members map[PluginStep][]int) ([]block, error) {
	var blocks []block
	for _, step := range Steps {
		for _, id := range members[step] {
			if id < 0 || id >= len(nps) {
				return nil, &InvariantViolation{Reason: fmt.Sprintf("plugin id %d out of range", id)}
			}
			blocks = append(blocks, block{
				pluginID: id,
				step:     step,
				call:     Action{PluginID: id, Kind: ActionCall, Step: step},
			})
		}
	}
	return blocks, nil
}

// provisionBlocks computes each plugin's provisioning obligations (deduped per (plugin, dst key) across
// all of that plugin's steps) and attaches the Get actions each block
// publishes.
func provisionBlocks(blocks []block, nps []namedPlugin, cfg *Configuration) ([]block, error) {
	// published tracks, in step order, which global keys have already been
	// published by the time we reach a given block — i.e. keys any prior
	// Get action makes available for a later Set.
	published := make(map[string]bool)

	// emitted tracks provisioning actions already attached to some block,
	// keyed by (pluginID, dstKey), so repeats across steps are deduped and
	// point at one shared provisionAction.
	type key struct {
		plugin int
		dst    string
	}
	emitted := make(map[key]*provisionAction)

	for bi := range blocks {
		b := &blocks[bi]
		np := nps[b.pluginID]

		for _, sink := range np.iface.Sinks() {
			if sink.Step != b.step {
				continue
			}
			if sink.Key == "" {
				return nil, &ConfigurationError{Reason: fmt.Sprintf("plugin %q declares a malformed sink (empty key) for step %s", np.name, b.step)}
			}

			k := key{plugin: b.pluginID, dst: sink.Key}
			if pa, ok := emitted[k]; ok {
				pa.requiredSteps[b.step] = true
				continue
			}

			act, err := classifySink(np, sink, cfg, published)
			if err != nil {
				return nil, err
			}
			pa := &provisionAction{action: act, requiredSteps: map[PluginStep]bool{b.step: true}}
			emitted[k] = pa
			// pa.requiredSteps is a map, so the copy stored here shares
			// the same underlying map as `emitted[k]`: later steps that
			// extend it (above) are visible through this copy too,
			// without needing to re-find or replace it.
			b.provision = append(b.provision, *pa)
		}

		for _, src := range np.iface.Sources() {
			if src.Step != b.step {
				continue
			}
			b.gets = append(b.gets, Action{PluginID: b.pluginID, Kind: ActionGet, SrcKey: src.Key})
			published[src.Key] = true
		}
	}

	return blocks, nil
}

// classifySink decides which ActionKind satisfies a declared sink, per
// SPEC_FULL.md §6's resolution of the source/sink
// declaration open question.
func classifySink(np namedPlugin, sink SinkDecl, cfg *Configuration, published map[string]bool) (Action, error) {
	if sink.Env != "" {
		return Action{PluginID: np.id, Kind: ActionRequireEnvValue, DstKey: sink.Key, EnvVar: sink.Env}, nil
	}

	if def, ok := cfg.Plugins[np.name]; ok {
		if lit, ok := def.Options[sink.Key]; ok {
			return Action{PluginID: np.id, Kind: ActionSetValue, DstKey: sink.Key, Literal: lit}, nil
		}
	}

	srcKey := sink.Key
	if sink.SrcKey != "" {
		srcKey = sink.SrcKey
	}
	if published[srcKey] {
		return Action{PluginID: np.id, Kind: ActionSet, DstKey: sink.Key, SrcKey: srcKey}, nil
	}

	// No declared source, no literal: defer to the data manager at run
	// time via a config-entry lookup. If neither a global cfg.<key> entry
	// nor a plugin override exists either, this fails at run time with
	// ValueNotAvailable rather than here (SPEC_FULL.md §6).
	return Action{PluginID: np.id, Kind: ActionRequireConfigEntry, DstKey: sink.Key}, nil
}

// filterDryRun drops Call actions for non-dry-run-safe steps, together
// with any provisioning action whose every requiring step was dropped and
// the Get actions that immediately followed the dropped call.
func filterDryRun(blocks []block) []block {
	dropped := make(map[PluginStep]bool)
	for _, step := range Steps {
		if !step.DryRunSafe() {
			dropped[step] = true
		}
	}

	var out []block
	for _, b := range blocks {
		if dropped[b.step] {
			continue
		}

		keep := block{pluginID: b.pluginID, step: b.step, call: b.call, gets: b.gets}
		for _, pa := range b.provision {
			if anyRequiredStepSurvives(pa, dropped) {
				keep.provision = append(keep.provision, pa)
			}
		}
		out = append(out, keep)
	}
	return out
}

func anyRequiredStepSurvives(pa provisionAction, dropped map[PluginStep]bool) bool {
	for step := range pa.requiredSteps {
		if !dropped[step] {
			return true
		}
	}
	return false
}

// flatten renders blocks, in order, into the final action list: all of a
// block's provisioning actions, then its Call, then its Gets.
func flatten(blocks []block) PluginSequence {
	var actions []Action
	for _, b := range blocks {
		for _, pa := range b.provision {
			actions = append(actions, pa.action)
		}
		actions = append(actions, b.call)
		actions = append(actions, b.gets...)
	}
	return PluginSequence{Actions: actions}
}
