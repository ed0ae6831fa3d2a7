package kernel

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedPlugins(ps ...Plugin) []Plugin { return ps }

func TestBuildSequenceEmptyConfigDryRunYieldsNoActions(t *testing.T) {
	cfg := &Configuration{Cfg: map[string]Value{}, Plugins: map[string]PluginDefinition{}, Steps: map[PluginStep]StepDefinition{}}
	seq, err := BuildSequence(nil, cfg, nil, true)
	require.NoError(t, err)
	assert.Empty(t, seq.Actions)
}

func TestBuildSequenceSingletonStepWithWrongCardinalityFails(t *testing.T) {
	a := newFakePlugin("a")
	b := newFakePlugin("b")
	plugins := namedPlugins(
		Plugin{name: "a", handle: a},
		Plugin{name: "b", handle: b},
	)
	cfg := &Configuration{
		Plugins: map[string]PluginDefinition{"a": {}, "b": {}},
		Steps: map[PluginStep]StepDefinition{
			GetLastRelease: {Kind: StepParallel, List: []string{"a", "b"}},
		},
	}

	_, err := BuildSequence(plugins, cfg, nil, false)
	require.Error(t, err)
	cfgErr, ok := err.(*ConfigurationError)
	require.True(t, ok)
	assert.Contains(t, cfgErr.Reason, "GetLastRelease")
}

func TestBuildSequenceDryRunDropsPublishKeepsPreFlight(t *testing.T) {
	p := newFakePlugin("releaser")
	plugins := namedPlugins(Plugin{name: "releaser", handle: p})
	cfg := &Configuration{
		Plugins: map[string]PluginDefinition{"releaser": {}},
		Steps: map[PluginStep]StepDefinition{
			PreFlight: {Kind: StepSingleton, Name: "releaser"},
			Publish:   {Kind: StepSingleton, Name: "releaser"},
		},
	}

	seq, err := BuildSequence(plugins, cfg, nil, true)
	require.NoError(t, err)

	var sawPreFlight, sawPublish bool
	for _, a := range seq.Actions {
		if a.Kind == ActionCall && a.Step == PreFlight {
			sawPreFlight = true
		}
		if a.Kind == ActionCall && a.Step == Publish {
			sawPublish = true
		}
	}
	assert.True(t, sawPreFlight, "PreFlight call should survive dry-run filtering")
	assert.False(t, sawPublish, "Publish call must not survive dry-run filtering")
}

type envSinkPlugin struct{ *fakePlugin }

func (p envSinkPlugin) Steps() []PluginStep { return []PluginStep{Commit} }
func (p envSinkPlugin) Sinks() []SinkDecl {
	return []SinkDecl{{Step: Commit, Key: "token", Env: "RELEASE_TOKEN"}}
}

func TestBuildSequenceMissingEnvSinkFailsAtRunTime(t *testing.T) {
	fp := &fakePlugin{name: "publisher", values: map[string]any{}, failStep: map[PluginStep]error{}}
	p := envSinkPlugin{fp}
	plugins := namedPlugins(Plugin{name: "publisher", handle: p})
	cfg := &Configuration{
		Plugins: map[string]PluginDefinition{"publisher": {}},
		Steps: map[PluginStep]StepDefinition{
			Commit: {Kind: StepSingleton, Name: "publisher"},
		},
	}

	seq, err := BuildSequence(plugins, cfg, nil, false)
	require.NoError(t, err)

	var found *Action
	for i, a := range seq.Actions {
		if a.Kind == ActionRequireEnvValue {
			found = &seq.Actions[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "RELEASE_TOKEN", found.EnvVar)

	k := &Kernel{
		plugins:  plugins,
		dataMgr:  NewDataManager(cfg, []string{"publisher"}),
		sequence: PluginSequence{Actions: []Action{*found}},
		env:      map[string]string{},
		state:    lifecycleBuilt,
	}
	k.logger = hclog.NewNullLogger()
	err = k.Run()
	require.Error(t, err)
	var undef *EnvValueUndefined
	require.ErrorAs(t, err, &undef)
	assert.Equal(t, "RELEASE_TOKEN", undef.Var)
}

type wiredProducer struct{ *fakePlugin }

func (p wiredProducer) Steps() []PluginStep   { return []PluginStep{GetLastRelease} }
func (p wiredProducer) Sources() []SourceDecl { return []SourceDecl{{Step: GetLastRelease, Key: "next_version"}} }

type wiredConsumer struct{ *fakePlugin }

func (p wiredConsumer) Steps() []PluginStep { return []PluginStep{Prepare} }
func (p wiredConsumer) Sinks() []SinkDecl {
	return []SinkDecl{{Step: Prepare, Key: "next_version"}}
}

func TestBuildSequenceWiresProducerValueToConsumerBeforeItsCall(t *testing.T) {
	producer := wiredProducer{&fakePlugin{name: "producer", values: map[string]any{"next_version": "2.0.0"}, failStep: map[PluginStep]error{}}}
	consumer := wiredConsumer{&fakePlugin{name: "consumer", values: map[string]any{}, failStep: map[PluginStep]error{}}}
	plugins := namedPlugins(
		Plugin{name: "producer", handle: producer},
		Plugin{name: "consumer", handle: consumer},
	)
	cfg := &Configuration{
		Plugins: map[string]PluginDefinition{"producer": {}, "consumer": {}},
		Steps: map[PluginStep]StepDefinition{
			GetLastRelease: {Kind: StepSingleton, Name: "producer"},
			Prepare:        {Kind: StepSingleton, Name: "consumer"},
		},
	}

	seq, err := BuildSequence(plugins, cfg, nil, false)
	require.NoError(t, err)

	getIdx, setIdx, callIdx := -1, -1, -1
	for i, a := range seq.Actions {
		switch {
		case a.Kind == ActionGet && a.SrcKey == "next_version":
			getIdx = i
		case a.Kind == ActionSet && a.DstKey == "next_version":
			setIdx = i
		case a.Kind == ActionCall && a.Step == Prepare:
			callIdx = i
		}
	}
	require.NotEqual(t, -1, getIdx)
	require.NotEqual(t, -1, setIdx)
	require.NotEqual(t, -1, callIdx)
	assert.Less(t, getIdx, setIdx)
	assert.Less(t, setIdx, callIdx)
}

func TestBuildSequenceInjectedPluginRunsBeforeConfiguredMembers(t *testing.T) {
	injected := newFakePlugin("guard")
	configured := newFakePlugin("releaser")
	plugins := namedPlugins(
		Plugin{name: "guard", handle: injected},
		Plugin{name: "releaser", handle: configured},
	)
	cfg := &Configuration{
		Plugins: map[string]PluginDefinition{"releaser": {}},
		Steps: map[PluginStep]StepDefinition{
			PreFlight: {Kind: StepSingleton, Name: "releaser"},
		},
	}
	injections := []Injection{{Step: PreFlight, Before: true}}

	seq, err := BuildSequence(plugins, cfg, injections, false)
	require.NoError(t, err)

	var firstPreFlight *Action
	for i, a := range seq.Actions {
		if a.Kind == ActionCall && a.Step == PreFlight {
			firstPreFlight = &seq.Actions[i]
			break
		}
	}
	require.NotNil(t, firstPreFlight)
	assert.Equal(t, 0, firstPreFlight.PluginID, "the injected plugin occupies id 0 and must run first")
}

func TestBuildSequenceDiscoverStepDoesNotDoubleCallInjectedPlugin(t *testing.T) {
	guard := newFakePlugin("guard")
	guard.steps = []PluginStep{PreFlight}
	other := newFakePlugin("other")
	other.steps = []PluginStep{PreFlight}
	plugins := namedPlugins(
		Plugin{name: "guard", handle: guard},
		Plugin{name: "other", handle: other},
	)
	cfg := &Configuration{
		Plugins: map[string]PluginDefinition{"other": {}},
		Steps: map[PluginStep]StepDefinition{
			PreFlight: {Kind: StepDiscover},
		},
	}
	injections := []Injection{{Step: PreFlight, Before: true}}

	seq, err := BuildSequence(plugins, cfg, injections, false)
	require.NoError(t, err)

	preFlightCalls := 0
	guardCalls := 0
	for _, a := range seq.Actions {
		if a.Kind == ActionCall && a.Step == PreFlight {
			preFlightCalls++
			if a.PluginID == 0 {
				guardCalls++
			}
		}
	}
	assert.Equal(t, 2, preFlightCalls, "guard and other each run PreFlight exactly once")
	assert.Equal(t, 1, guardCalls, "the injected plugin must not be called twice for a step it also self-declares")
}
