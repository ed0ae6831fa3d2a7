package kernel

// DataManager owns the kernel's global published-value store and resolves
// per-plugin value requirements against it plus configuration overrides.
// It is not safe for concurrent use — the kernel runs single-threaded and
// no explicit lock is taken.
type DataManager struct {
	global map[string]Value
	cfg    *Configuration
	// pluginNames maps plugin id to its name, needed to look up
	// plugins.<name>.options.<key> overrides.
	pluginNames []string
}

// NewDataManager builds a DataManager bound to the build-time configuration
// and the kernel's resolved plugin list (for override lookups by id).
func NewDataManager(cfg *Configuration, pluginNames []string) *DataManager {
	return &DataManager{
		global:      make(map[string]Value),
		cfg:         cfg,
		pluginNames: pluginNames,
	}
}

// InsertGlobal publishes a value under key. Last-writer-wins within a run;
// callers are expected to publish exactly once per key per run (the
// sequence builder only ever emits one Get per declared source).
func (d *DataManager) InsertGlobal(key string, v Value) {
	d.global[key] = v
}

func (d *DataManager) pluginName(id int) string {
	if id < 0 || id >= len(d.pluginNames) {
		return ""
	}
	return d.pluginNames[id]
}

// PrepareValue resolves the value to write into plugin pluginID at dstKey,
// sourced from the global publication under srcKey and merged with any
// plugins.<name>.options.<dstKey> override from configuration. The override, when
// present, takes precedence over the globally published value — it
// represents an explicit per-plugin pin in releaserc.toml.
func (d *DataManager) PrepareValue(pluginID int, dstKey, srcKey string) (Value, error) {
	global, ok := d.global[srcKey]
	if !ok {
		return Value{}, &ValueNotAvailable{Key: srcKey}
	}

	merged := global.Value
	if override, ok := d.cfg.PluginOverride(d.pluginName(pluginID), dstKey); ok {
		merged = override
	}
	return Value{SourceKey: srcKey, Value: merged}, nil
}

// PrepareValueSameKey is PrepareValue with srcKey == dstKey, additionally
// permitting a global-config fallback at cfg.<dstKey> when no value was
// ever published under that key.
func (d *DataManager) PrepareValueSameKey(pluginID int, dstKey string) (Value, error) {
	global, hasGlobal := d.global[dstKey]

	var merged any
	have := false
	if hasGlobal {
		merged = global.Value
		have = true
	}
	if cfgVal, ok := d.cfg.Cfg[dstKey]; ok && !hasGlobal {
		merged = cfgVal.Value
		have = true
	}
	if override, ok := d.cfg.PluginOverride(d.pluginName(pluginID), dstKey); ok {
		merged = override
		have = true
	}
	if !have {
		return Value{}, &ValueNotAvailable{Key: dstKey}
	}
	return Value{SourceKey: dstKey, Value: merged}, nil
}
