package kernel

// fakePlugin is a minimal, fully scriptable PluginInterface implementation
// used across the kernel package's tests.
type fakePlugin struct {
	name    string
	steps   []PluginStep
	sinks   []SinkDecl
	sources []SourceDecl

	values map[string]any
	calls  []PluginStep

	failStep   map[PluginStep]error
	failGet    error
	failSet    error
	startupErr error
	started    bool
}

func newFakePlugin(name string) *fakePlugin {
	return &fakePlugin{
		name:     name,
		values:   make(map[string]any),
		failStep: make(map[PluginStep]error),
	}
}

func (f *fakePlugin) Name() string { return f.name }

func (f *fakePlugin) GetValue(key string) (any, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	return f.values[key], nil
}

func (f *fakePlugin) SetValue(key string, v Value) error {
	if f.failSet != nil {
		return f.failSet
	}
	if f.values == nil {
		f.values = make(map[string]any)
	}
	f.values[key] = v.Value
	return nil
}

func (f *fakePlugin) runStep(s PluginStep) error {
	f.calls = append(f.calls, s)
	return f.failStep[s]
}

func (f *fakePlugin) PreFlight() error         { return f.runStep(PreFlight) }
func (f *fakePlugin) GetLastRelease() error    { return f.runStep(GetLastRelease) }
func (f *fakePlugin) DeriveNextVersion() error { return f.runStep(DeriveNextVersion) }
func (f *fakePlugin) GenerateNotes() error     { return f.runStep(GenerateNotes) }
func (f *fakePlugin) Prepare() error           { return f.runStep(Prepare) }
func (f *fakePlugin) VerifyRelease() error     { return f.runStep(VerifyRelease) }
func (f *fakePlugin) Commit() error            { return f.runStep(Commit) }
func (f *fakePlugin) Publish() error           { return f.runStep(Publish) }
func (f *fakePlugin) Notify() error            { return f.runStep(Notify) }

func (f *fakePlugin) Steps() []PluginStep     { return f.steps }
func (f *fakePlugin) Sinks() []SinkDecl       { return f.sinks }
func (f *fakePlugin) Sources() []SourceDecl   { return f.sources }

func (f *fakePlugin) Startup() error {
	f.started = true
	return f.startupErr
}

// factoryFor returns a Factory that always hands back this exact instance,
// for tests that need to inspect post-run state.
func factoryFor(p *fakePlugin) Factory {
	return func(name string, def PluginDefinition) (PluginInterface, error) {
		return p, nil
	}
}

func singletonCfg(name string, plugins map[string]PluginDefinition, step PluginStep, isDryRun bool) *Configuration {
	return &Configuration{
		Cfg:     map[string]Value{},
		Plugins: plugins,
		Steps: map[PluginStep]StepDefinition{
			step: {Kind: StepSingleton, Name: name},
		},
		IsDryRun: isDryRun,
	}
}
