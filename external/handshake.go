// Package external resolves the "external" plugin source kind: a plugin
// that runs as a separate process communicating over net/rpc via
// github.com/hashicorp/go-plugin (vendored here as
// github.com/GoCodeAlone/go-plugin, the teacher's fork). This is the
// concrete backing for SPEC_FULL.md §3's domain-stack entry for
// hashicorp/go-plugin.
package external

import (
	goplugin "github.com/GoCodeAlone/go-plugin"
)

const (
	// ProtocolVersion is the plugin protocol version. Increment it when
	// making breaking changes to the net/rpc interface in plugin.go.
	ProtocolVersion = 1

	// MagicCookieKey is the environment variable used for the handshake.
	MagicCookieKey = "RELEASE_PLUGIN"

	// MagicCookieValue is the expected value for the handshake cookie.
	MagicCookieValue = "release-kernel-external-plugin-v1"
)

// Handshake is the shared handshake configuration between the kernel
// (client) and an external plugin process (server). Both sides must use
// identical values or go-plugin refuses the connection.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  ProtocolVersion,
	MagicCookieKey:   MagicCookieKey,
	MagicCookieValue: MagicCookieValue,
}
