package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverResolvesKnownKind(t *testing.T) {
	r := NewResolver()
	p := newFakePlugin("git")
	r.Register("git", factoryFor(p))

	raw := NewUnresolvedPlugin("git", PluginDefinition{Name: "git", Kind: "git"})
	resolved, err := r.Resolve(raw)
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved())
}

func TestResolverUnknownKind(t *testing.T) {
	r := NewResolver()
	raw := NewUnresolvedPlugin("mystery", PluginDefinition{Name: "mystery", Kind: "does-not-exist"})
	_, err := r.Resolve(raw)
	require.Error(t, err)
}

func TestResolveAllReportsEveryUnresolvedName(t *testing.T) {
	r := NewResolver()
	r.Register("git", factoryFor(newFakePlugin("a")))

	raws := []RawPlugin{
		NewUnresolvedPlugin("a", PluginDefinition{Kind: "git"}),
		NewUnresolvedPlugin("b", PluginDefinition{Kind: "unknown-1"}),
		NewUnresolvedPlugin("c", PluginDefinition{Kind: "unknown-2"}),
	}

	_, err := r.ResolveAll(raws)
	require.Error(t, err)
	resErr, ok := err.(*ResolutionError)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"b", "c"}, resErr.Names)
}
