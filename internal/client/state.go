package client

type Mode string

const (
	ModeLoading   Mode = "loading"
	ModeInstaller Mode = "installer"
	ModeLogin     Mode = "login"
	ModeDashboard Mode = "dashboard"
)

// State is the whole client-side application state.
type State struct {
	Mode       Mode
	Path       string
	Wizard     WizardState
	Token      string
	AdminEmail string
	Error      string
	Busy       bool
	// Seq identifies the most recently issued request. Responses carrying
	// any other number are stale and dropped.
	Seq uint64
}

func NewState(token string) State {
	return State{
		Mode:   ModeLoading,
		Path:   "/",
		Wizard: NewWizard(),
		Token:  token,
	}
}

type Action interface {
	action()
}

// Begin marks a new request in flight and supersedes any earlier one.
type Begin struct{}

// WizardStep wraps a wizard transition; it is ignored outside installer mode.
type WizardStep struct {
	Action WizardAction
}

// GateResolved carries the outcome of a status + session check.
type GateResolved struct {
	Seq          uint64
	Path         string
	Installed    bool
	AdminEmail   string
	SessionValid bool
	SessionEmail string
}

type SetupSucceeded struct {
	Seq   uint64
	Token string
	Email string
}

type SetupRejected struct {
	Seq     uint64
	Message string
}

type LoginSucceeded struct {
	Seq   uint64
	Token string
	Email string
}

type LoginRejected struct {
	Seq     uint64
	Message string
}

type ResetCompleted struct {
	Seq uint64
}

type RequestFailed struct {
	Seq     uint64
	Message string
}

// Navigated records a move to a public path; no gate is needed.
type Navigated struct {
	Path string
}

// LoggedOut drops the client token only; the server entry stays valid.
type LoggedOut struct{}

func (Begin) action()          {}
func (WizardStep) action()     {}
func (GateResolved) action()   {}
func (SetupSucceeded) action() {}
func (SetupRejected) action()  {}
func (LoginSucceeded) action() {}
func (LoginRejected) action()  {}
func (ResetCompleted) action() {}
func (RequestFailed) action()  {}
func (Navigated) action()      {}
func (LoggedOut) action()      {}

// Reduce is the single transition function for State.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case Begin:
		state.Seq++
		state.Busy = true
		return state

	case WizardStep:
		if state.Mode != ModeInstaller {
			return state
		}
		// Installing with nothing in flight means the setup reply was
		// superseded; Prev lets the user back out and submit again.
		if _, back := a.Action.(Prev); back && state.Wizard.Step == StepInstalling && !state.Busy {
			state.Wizard.Step = StepReview
			return state
		}
		state.Wizard = ReduceWizard(state.Wizard, a.Action)
		return state

	case Navigated:
		state.Path = normalizePath(a.Path)
		return state

	case LoggedOut:
		state.Token = ""
		state.Mode = ModeLogin
		state.Error = ""
		return state
	}

	seq, ok := responseSeq(action)
	if !ok || seq != state.Seq {
		return state
	}
	state.Busy = false

	switch a := action.(type) {
	case GateResolved:
		if a.Path != "" {
			state.Path = normalizePath(a.Path)
		}
		mode := ResolveMode(a.Installed, a.SessionValid)
		switch mode {
		case ModeInstaller:
			if state.Mode != ModeInstaller {
				state.Wizard = NewWizard()
			} else if state.Wizard.Step == StepInstalling {
				state.Wizard.Step = StepReview
			}
			state.Token = ""
			state.AdminEmail = ""
		case ModeDashboard:
			state.AdminEmail = a.SessionEmail
		case ModeLogin:
			state.Token = ""
			state.AdminEmail = a.AdminEmail
		}
		state.Mode = mode
		state.Error = ""

	case SetupSucceeded:
		state.Mode = ModeDashboard
		state.Token = a.Token
		state.AdminEmail = a.Email
		state.Wizard = NewWizard()
		state.Error = ""

	case SetupRejected:
		state.Wizard = ReduceWizard(state.Wizard, SetupFailed{Message: a.Message})

	case LoginSucceeded:
		state.Mode = ModeDashboard
		state.Token = a.Token
		state.AdminEmail = a.Email
		state.Error = ""

	case LoginRejected:
		state.Error = a.Message

	case ResetCompleted:
		state.Mode = ModeInstaller
		state.Token = ""
		state.AdminEmail = ""
		state.Wizard = NewWizard()
		state.Error = ""

	case RequestFailed:
		state.Error = a.Message
	}
	return state
}

func responseSeq(action Action) (uint64, bool) {
	switch a := action.(type) {
	case GateResolved:
		return a.Seq, true
	case SetupSucceeded:
		return a.Seq, true
	case SetupRejected:
		return a.Seq, true
	case LoginSucceeded:
		return a.Seq, true
	case LoginRejected:
		return a.Seq, true
	case ResetCompleted:
		return a.Seq, true
	case RequestFailed:
		return a.Seq, true
	}
	return 0, false
}
