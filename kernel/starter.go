package kernel

// Starter transitions a Resolved RawPlugin into a runnable Plugin by
// invoking the plugin's one-time startup routine, when it has one.
type Starter struct{}

// NewStarter builds a Starter. It holds no state; it exists as a type for
// symmetry with Resolver and to keep the build pipeline's stages uniformly
// named.
func NewStarter() *Starter { return &Starter{} }

// Start transitions a single Resolved RawPlugin to Started. Calling it on
// an Unresolved RawPlugin is an invariant violation — the build pipeline
// guarantees resolution completes for every plugin before starting begins.
func (s *Starter) Start(raw RawPlugin) (Plugin, error) {
	if !raw.IsResolved() {
		return Plugin{}, &InvariantViolation{Reason: "Starter.Start called on an unresolved plugin: " + raw.name}
	}
	if su, ok := raw.handle.(Startupper); ok {
		if err := su.Startup(); err != nil {
			return Plugin{}, &StartupError{Plugin: raw.name, Cause: err}
		}
	}
	return Plugin{name: raw.name, handle: raw.handle}, nil
}

// StartAll starts every plugin in order, aborting immediately on the first
// startup failure.
func (s *Starter) StartAll(raws []RawPlugin) ([]Plugin, error) {
	started := make([]Plugin, 0, len(raws))
	for _, raw := range raws {
		p, err := s.Start(raw)
		if err != nil {
			return nil, err
		}
		started = append(started, p)
	}
	return started, nil
}
