package gate

// Outcome is the result of one gate step.
type Outcome struct {
	State    State
	Previous State
	// Redirect is the navigation target for denial states, empty otherwise.
	Redirect string
	// Notice is set only on a transition into a denial state.
	Notice *Notice
}

// Render reports whether the protected content may be shown.
func (o Outcome) Render() bool { return o.State == StateAuthorized }

// Waiting reports whether the waiting indicator should be shown.
func (o Outcome) Waiting() bool { return o.State == StateLoading }

// Changed reports whether this step moved the machine to a new state.
func (o Outcome) Changed() bool { return o.State != o.Previous }

// Machine evaluates sessions against a Policy and remembers the previous state.
// It is not safe for concurrent use.
type Machine struct {
	policy Policy
	prev   State
}

// NewMachine returns a machine with no previous observation.
func NewMachine(p Policy) *Machine {
	return &Machine{policy: p}
}

// Policy returns the machine's policy.
func (m *Machine) Policy() Policy { return m.policy }

// Previous returns the state recorded by the last Step.
func (m *Machine) Previous() State { return m.prev }

// Restore sets the previous state, e.g. from a persisted value.
func (m *Machine) Restore(prev State) { m.prev = prev }

// Step evaluates sess and advances the machine.
func (m *Machine) Step(sess Session) Outcome {
	next := Evaluate(sess, m.policy.Allowed)
	out := Outcome{State: next, Previous: m.prev}

	switch next {
	case StateUnauthenticated:
		out.Redirect = m.policy.entryRoute()
		if out.Changed() {
			out.Notice = &Notice{Message: MessageSignInRequired, Severity: SeverityError}
		}
	case StateUnauthorized:
		out.Redirect = m.policy.fallbackRoute()
		if out.Changed() {
			out.Notice = &Notice{Message: MessageNotAuthorized, Severity: SeverityError}
		}
	case StateLoading, StateAuthorized, StateUnknown:
	}

	m.prev = next
	return out
}
