package kernel

// PluginStep is a named phase of the release pipeline. The enumeration is
// closed and ordered: the kernel always resolves and executes steps in this
// order, regardless of the order they appear in configuration.
type PluginStep int

const (
	PreFlight PluginStep = iota
	GetLastRelease
	DeriveNextVersion
	GenerateNotes
	Prepare
	VerifyRelease
	Commit
	Publish
	Notify

	numSteps
)

// Steps lists every PluginStep in kernel execution order.
var Steps = []PluginStep{
	PreFlight,
	GetLastRelease,
	DeriveNextVersion,
	GenerateNotes,
	Prepare,
	VerifyRelease,
	Commit,
	Publish,
	Notify,
}

var stepNames = [numSteps]string{
	"PreFlight",
	"GetLastRelease",
	"DeriveNextVersion",
	"GenerateNotes",
	"Prepare",
	"VerifyRelease",
	"Commit",
	"Publish",
	"Notify",
}

func (s PluginStep) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "unknown"
	}
	return stepNames[s]
}

// StepFromName resolves a step by its canonical name. ok is false for any
// name outside the closed enumeration.
func StepFromName(name string) (PluginStep, bool) {
	for _, s := range Steps {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// Multiplicity classifies how many plugins a step may be served by.
type Multiplicity int

const (
	// Multi steps may be served by zero or more plugins.
	Multi Multiplicity = iota
	// Singleton steps must be served by exactly one plugin.
	Singleton
)

// DefaultMultiplicity returns the step's multiplicity absent any
// per-configuration override. GetLastRelease is the only step that is a
// singleton by construction; DeriveNextVersion defaults to Multi but may be
// overridden to Singleton via StepDefinition.Multiplicity (see
// SPEC_FULL.md §6 for the rationale — the source material carried
// conflicting hints about its multiplicity).
func (s PluginStep) DefaultMultiplicity() Multiplicity {
	if s == GetLastRelease {
		return Singleton
	}
	return Multi
}

// DryRunSafe reports whether a Call(step) action may appear in a dry-run
// sequence. Commit, Publish and Notify mutate external state and are never
// dry-run safe.
func (s PluginStep) DryRunSafe() bool {
	switch s {
	case Commit, Publish, Notify:
		return false
	default:
		return true
	}
}
