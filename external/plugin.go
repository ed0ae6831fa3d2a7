package external

import (
	"encoding/gob"
	"fmt"
	"net/rpc"
	"os/exec"

	goplugin "github.com/GoCodeAlone/go-plugin"

	"github.com/GoCodeAlone/releasekernel/kernel"
	"github.com/GoCodeAlone/releasekernel/logging"
)

func init() {
	// kernel.Value.Value and kernel.PluginDefinition.Options carry
	// arbitrary decoded JSON through an `any` field; gob needs every
	// concrete type that can appear there registered up front.
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register("")
	gob.Register(float64(0))
	gob.Register(false)
}

// pluginKey is the name external plugins are dispensed under in every
// go-plugin handshake this package performs.
const pluginKey = "plugin"

// RPC is the goplugin.Plugin implementation shared by both sides of an
// external plugin connection: the kernel (client side, via Factory) dials
// out to it, and a plugin binary (server side) serves an Impl through it.
type RPC struct {
	Impl kernel.PluginInterface
}

func (p *RPC) Server(*goplugin.MuxBroker) (any, error) {
	return &rpcServer{impl: p.Impl}, nil
}

func (p *RPC) Client(_ *goplugin.MuxBroker, c *rpc.Client) (any, error) {
	return &rpcClient{client: c}, nil
}

// Serve runs a plugin binary's main loop, blocking until the host process
// disconnects. Plugin authors import this package and call
// external.Serve(myImpl) as their entire main().
func Serve(impl kernel.PluginInterface) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]goplugin.Plugin{
			pluginKey: &RPC{Impl: impl},
		},
	})
}

// rpcServer adapts a kernel.PluginInterface to net/rpc's one-exported
// -method-per-call convention: func(args T, reply *R) error.
type rpcServer struct {
	impl kernel.PluginInterface
}

func (s *rpcServer) Name(_ struct{}, reply *string) error {
	*reply = s.impl.Name()
	return nil
}

func (s *rpcServer) GetValue(key string, reply *any) error {
	v, err := s.impl.GetValue(key)
	*reply = v
	return err
}

// SetValueArgs is exported because net/rpc only registers methods whose
// argument type is exported or builtin.
type SetValueArgs struct {
	Key   string
	Value kernel.Value
}

func (s *rpcServer) SetValue(args SetValueArgs, _ *struct{}) error {
	return s.impl.SetValue(args.Key, args.Value)
}

func (s *rpcServer) Call(step kernel.PluginStep, _ *struct{}) error {
	switch step {
	case kernel.PreFlight:
		return s.impl.PreFlight()
	case kernel.GetLastRelease:
		return s.impl.GetLastRelease()
	case kernel.DeriveNextVersion:
		return s.impl.DeriveNextVersion()
	case kernel.GenerateNotes:
		return s.impl.GenerateNotes()
	case kernel.Prepare:
		return s.impl.Prepare()
	case kernel.VerifyRelease:
		return s.impl.VerifyRelease()
	case kernel.Commit:
		return s.impl.Commit()
	case kernel.Publish:
		return s.impl.Publish()
	case kernel.Notify:
		return s.impl.Notify()
	default:
		return fmt.Errorf("external: unknown step %v", step)
	}
}

func (s *rpcServer) Steps(_ struct{}, reply *[]kernel.PluginStep) error {
	*reply = s.impl.Steps()
	return nil
}

func (s *rpcServer) Sinks(_ struct{}, reply *[]kernel.SinkDecl) error {
	*reply = s.impl.Sinks()
	return nil
}

func (s *rpcServer) Sources(_ struct{}, reply *[]kernel.SourceDecl) error {
	*reply = s.impl.Sources()
	return nil
}

// rpcClient is the host-side view of an external plugin process: it
// implements kernel.PluginInterface by forwarding every call over net/rpc.
type rpcClient struct {
	client *rpc.Client
	name   string
}

var _ kernel.PluginInterface = (*rpcClient)(nil)

func (c *rpcClient) Name() string {
	if c.name != "" {
		return c.name
	}
	var reply string
	_ = c.client.Call("Plugin.Name", struct{}{}, &reply)
	c.name = reply
	return reply
}

func (c *rpcClient) GetValue(key string) (any, error) {
	var reply any
	err := c.client.Call("Plugin.GetValue", key, &reply)
	return reply, err
}

func (c *rpcClient) SetValue(key string, v kernel.Value) error {
	return c.client.Call("Plugin.SetValue", SetValueArgs{Key: key, Value: v}, nil)
}

func (c *rpcClient) callStep(step kernel.PluginStep) error {
	return c.client.Call("Plugin.Call", step, nil)
}

func (c *rpcClient) PreFlight() error         { return c.callStep(kernel.PreFlight) }
func (c *rpcClient) GetLastRelease() error    { return c.callStep(kernel.GetLastRelease) }
func (c *rpcClient) DeriveNextVersion() error { return c.callStep(kernel.DeriveNextVersion) }
func (c *rpcClient) GenerateNotes() error     { return c.callStep(kernel.GenerateNotes) }
func (c *rpcClient) Prepare() error           { return c.callStep(kernel.Prepare) }
func (c *rpcClient) VerifyRelease() error     { return c.callStep(kernel.VerifyRelease) }
func (c *rpcClient) Commit() error            { return c.callStep(kernel.Commit) }
func (c *rpcClient) Publish() error           { return c.callStep(kernel.Publish) }
func (c *rpcClient) Notify() error            { return c.callStep(kernel.Notify) }

func (c *rpcClient) Steps() []kernel.PluginStep {
	var reply []kernel.PluginStep
	_ = c.client.Call("Plugin.Steps", struct{}{}, &reply)
	return reply
}

func (c *rpcClient) Sinks() []kernel.SinkDecl {
	var reply []kernel.SinkDecl
	_ = c.client.Call("Plugin.Sinks", struct{}{}, &reply)
	return reply
}

func (c *rpcClient) Sources() []kernel.SourceDecl {
	var reply []kernel.SourceDecl
	_ = c.client.Call("Plugin.Sources", struct{}{}, &reply)
	return reply
}

// managedProcess wraps an external plugin's RPC client together with the
// go-plugin client that launched its subprocess, so the resolver can hand
// the kernel a single kernel.PluginInterface value.
type managedProcess struct {
	kernel.PluginInterface
	process *goplugin.Client
}

// Factory is the kernel.Factory binding for the "external" plugin kind. It
// launches the command named by the plugin definition's "command" option
// as a subprocess and speaks the Handshake protocol to it over net/rpc.
func Factory(name string, def kernel.PluginDefinition) (kernel.PluginInterface, error) {
	cmdPath, ok := def.Options["command"].(string)
	if !ok || cmdPath == "" {
		return nil, fmt.Errorf("external plugin %q: missing required option %q", name, "command")
	}

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          map[string]goplugin.Plugin{pluginKey: &RPC{}},
		Cmd:              exec.Command(cmdPath),
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
		Logger:           logging.New("external." + name),
	})

	rpcClientProto, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("external plugin %q: dial: %w", name, err)
	}

	raw, err := rpcClientProto.Dispense(pluginKey)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("external plugin %q: dispense: %w", name, err)
	}

	impl, ok := raw.(kernel.PluginInterface)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("external plugin %q: does not implement PluginInterface", name)
	}

	return &managedProcess{PluginInterface: impl, process: client}, nil
}
