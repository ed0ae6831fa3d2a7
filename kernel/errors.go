package kernel

import (
	"fmt"
	"strings"
)

// ConfigurationError covers any fault caught at build time from the
// configuration itself: a singleton step served by the wrong number of
// plugins, a step referencing a plugin absent from the plugin list, a
// malformed sink declaration (empty key). A sink that no env tag, literal
// or prior publication satisfies is not a ConfigurationError; it fails at
// run time with ValueNotAvailable if configuration cannot supply it.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// ResolutionError carries every plugin name still Unresolved after the
// resolve phase. The kernel always reports the full list in one error, not
// one error per plugin.
type ResolutionError struct {
	Names []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve plugins: %s", strings.Join(e.Names, ", "))
}

// StartupError wraps a single plugin's failed startup handshake.
type StartupError struct {
	Plugin string
	Cause  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("plugin %q failed to start: %v", e.Plugin, e.Cause)
}

func (e *StartupError) Unwrap() error { return e.Cause }

// ValueNotAvailable is returned when a Set or RequireConfigEntry action
// cannot find a source value at run time.
type ValueNotAvailable struct {
	Key string
}

func (e *ValueNotAvailable) Error() string {
	return fmt.Sprintf("value not available for key %q", e.Key)
}

// EnvValueUndefined is returned when a RequireEnvValue action names a
// variable absent from the kernel's captured environment snapshot.
type EnvValueUndefined struct {
	Var string
}

func (e *EnvValueUndefined) Error() string {
	return fmt.Sprintf("environment value must be set: %s", e.Var)
}

// PluginError wraps an opaque error returned from a plugin method or
// get/set call, tagging it with the plugin name and action for context.
type PluginError struct {
	Plugin string
	Action string
	Cause  error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %q: %s: %v", e.Plugin, e.Action, e.Cause)
}

func (e *PluginError) Unwrap() error { return e.Cause }

// InvariantViolation indicates a bug in the kernel itself: a
// started-only precondition or an index bound was violated. It is fatal
// and, unlike the other error kinds here, is never expected to occur from
// any valid configuration.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation (this is a kernel bug): %s", e.Reason)
}
