package gate

// Navigator moves the client to a route. Calls are fire-and-forget.
type Navigator interface {
	Navigate(path string)
}

// Notifier shows a notice to the client. Calls are fire-and-forget.
type Notifier interface {
	Notify(n Notice)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Guard runs a Machine and performs its side effects. Notification happens
// only on a transition into a denial state; navigation happens on every
// denied observation.
type Guard struct {
	machine *Machine
	nav     Navigator
	notify  Notifier
}

// NewGuard builds a guard for m. nav and notify may be nil.
func NewGuard(m *Machine, nav Navigator, notify Notifier) *Guard {
	return &Guard{machine: m, nav: nav, notify: notify}
}

// Machine exposes the underlying machine.
func (g *Guard) Machine() *Machine { return g.machine }

// Observe steps the machine with sess and fires side effects.
func (g *Guard) Observe(sess Session) Outcome {
	out := g.machine.Step(sess)
	if out.Notice != nil && g.notify != nil {
		g.notify.Notify(*out.Notice)
	}
	if out.Redirect != "" && g.nav != nil {
		g.nav.Navigate(out.Redirect)
	}
	return out
}

// Render observes sess and calls content only when the session is authorized.
func (g *Guard) Render(sess Session, content func()) Outcome {
	out := g.Observe(sess)
	if out.Render() && content != nil {
		content()
	}
	return out
}
