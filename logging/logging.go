// Package logging wraps github.com/hashicorp/go-hclog with the one thing
// the kernel runtime needs: a per-plugin log span for the duration of a
// single action, mirroring the logger.span(&plugin.name) helper from the
// original semantic-rs kernel.
package logging

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// New builds the default logger used when a KernelBuilder isn't handed one
// explicitly: human-readable, Info level, writing to stderr.
func New(name string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Output: os.Stderr,
		Level:  hclog.Info,
	})
}

// Span returns a named sub-logger scoped to a single plugin for the
// duration of one action dispatch. hclog.Logger.Named already prefixes
// every message with the name, so closing the span is implicit: callers
// just stop using the returned logger once the action completes.
func Span(base hclog.Logger, pluginName string) hclog.Logger {
	return base.Named(pluginName)
}
