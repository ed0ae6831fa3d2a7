package builtin

import (
	"github.com/hashicorp/go-hclog"

	"github.com/GoCodeAlone/releasekernel/kernel"
)

// NoopNotify is a Notify-only plugin that logs at Info level and performs
// no I/O. Notify is dry-run-unsafe, so it is a convenient plugin for
// exercising the dry-run filter in example configurations and tests.
type NoopNotify struct {
	name   string
	logger hclog.Logger
}

// NewNoopNotify builds a NoopNotify plugin. logger may be nil, in which
// case notifications are silently dropped.
func NewNoopNotify(name string, logger hclog.Logger) *NoopNotify {
	return &NoopNotify{name: name, logger: logger}
}

func (n *NoopNotify) Name() string { return n.name }

func (n *NoopNotify) GetValue(key string) (any, error) {
	return nil, &kernel.ValueNotAvailable{Key: key}
}

func (n *NoopNotify) SetValue(key string, v kernel.Value) error { return nil }

func (n *NoopNotify) PreFlight() error         { return nil }
func (n *NoopNotify) GetLastRelease() error    { return nil }
func (n *NoopNotify) DeriveNextVersion() error { return nil }
func (n *NoopNotify) GenerateNotes() error     { return nil }
func (n *NoopNotify) Prepare() error           { return nil }
func (n *NoopNotify) VerifyRelease() error     { return nil }
func (n *NoopNotify) Commit() error            { return nil }
func (n *NoopNotify) Publish() error           { return nil }

func (n *NoopNotify) Notify() error {
	if n.logger != nil {
		n.logger.Info("release notification", "plugin", n.name)
	}
	return nil
}

func (n *NoopNotify) Steps() []kernel.PluginStep { return []kernel.PluginStep{kernel.Notify} }
func (n *NoopNotify) Sinks() []kernel.SinkDecl    { return nil }
func (n *NoopNotify) Sources() []kernel.SourceDecl { return nil }

// NoopNotifyFactory is the kernel.Factory binding for the
// "builtin:noop-notify" plugin kind.
func NoopNotifyFactory(name string, def kernel.PluginDefinition) (kernel.PluginInterface, error) {
	return NewNoopNotify(name, nil), nil
}
