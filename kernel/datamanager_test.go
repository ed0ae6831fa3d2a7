package kernel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareValueUsesGlobalPublication(t *testing.T) {
	cfg := &Configuration{Plugins: map[string]PluginDefinition{}}
	dm := NewDataManager(cfg, []string{"plugin-a"})
	dm.InsertGlobal("next_version", NewValue("next_version", "1.2.3"))

	v, err := dm.PrepareValue(0, "version", "next_version")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v.Value)
	assert.Equal(t, "next_version", v.SourceKey)
}

func TestPrepareValueMissingGlobalFails(t *testing.T) {
	cfg := &Configuration{Plugins: map[string]PluginDefinition{}}
	dm := NewDataManager(cfg, []string{"plugin-a"})

	_, err := dm.PrepareValue(0, "version", "next_version")
	require.Error(t, err)
	var notAvail *ValueNotAvailable
	require.True(t, errors.As(err, &notAvail))
	assert.Equal(t, "next_version", notAvail.Key)
}

func TestPrepareValuePerPluginOverrideWins(t *testing.T) {
	cfg := &Configuration{
		Plugins: map[string]PluginDefinition{
			"plugin-a": {Options: map[string]any{"version": "9.9.9-pinned"}},
		},
	}
	dm := NewDataManager(cfg, []string{"plugin-a"})
	dm.InsertGlobal("next_version", NewValue("next_version", "1.2.3"))

	v, err := dm.PrepareValue(0, "version", "next_version")
	require.NoError(t, err)
	assert.Equal(t, "9.9.9-pinned", v.Value)
}

func TestPrepareValueSameKeyFallsBackToGlobalCfg(t *testing.T) {
	cfg := &Configuration{
		Plugins: map[string]PluginDefinition{},
		Cfg:     map[string]Value{"token": NewValue("token", "from-cfg")},
	}
	dm := NewDataManager(cfg, []string{"plugin-a"})

	v, err := dm.PrepareValueSameKey(0, "token")
	require.NoError(t, err)
	assert.Equal(t, "from-cfg", v.Value)
}

func TestPrepareValueSameKeyMissingEverywhereFails(t *testing.T) {
	cfg := &Configuration{Plugins: map[string]PluginDefinition{}, Cfg: map[string]Value{}}
	dm := NewDataManager(cfg, []string{"plugin-a"})

	_, err := dm.PrepareValueSameKey(0, "token")
	require.Error(t, err)
}
