// Package client drives the setup wizard, login and session gating against
// the commerce API. State transitions are pure reducers; Controller performs
// the network calls and feeds their results back in.
package client

import "strings"

type Step int

const (
	StepWelcome Step = iota + 1
	StepAdminSetup
	StepUsageContext
	StepReview
	StepInstalling
)

const StepCount = int(StepInstalling)

type Field string

const (
	FieldAdminEmail   Field = "adminEmail"
	FieldUsageContext Field = "usageContext"
)

const msgInvalidEmail = "Please enter a valid email address"

type Form struct {
	AdminEmail   string
	UsageContext string
}

type WizardState struct {
	Step  Step
	Form  Form
	Error string
}

func NewWizard() WizardState {
	return WizardState{
		Step: StepWelcome,
		Form: Form{UsageContext: "personal"},
	}
}

// WizardAction is one of SetField, Next, Prev, Submit, SetupFailed.
type WizardAction interface {
	wizardAction()
}

type SetField struct {
	Field Field
	Value string
}

type Next struct{}

type Prev struct{}

// Submit moves from Review to Installing; the setup call runs after it.
type Submit struct{}

type SetupFailed struct {
	Message string
}

func (SetField) wizardAction()    {}
func (Next) wizardAction()        {}
func (Prev) wizardAction()        {}
func (Submit) wizardAction()      {}
func (SetupFailed) wizardAction() {}

func validEmail(email string) bool {
	return email != "" && strings.Contains(email, "@")
}

// ReduceWizard returns the state after applying action. It never leaves
// Step outside [StepWelcome, StepInstalling].
func ReduceWizard(state WizardState, action WizardAction) WizardState {
	switch a := action.(type) {
	case SetField:
		if state.Step == StepInstalling {
			return state
		}
		switch a.Field {
		case FieldAdminEmail:
			state.Form.AdminEmail = a.Value
		case FieldUsageContext:
			state.Form.UsageContext = a.Value
		default:
			return state
		}
		state.Error = ""
		return state

	case Next:
		if state.Step == StepAdminSetup && !validEmail(state.Form.AdminEmail) {
			state.Error = msgInvalidEmail
			return state
		}
		if state.Step >= StepReview {
			return state
		}
		state.Step++
		state.Error = ""
		return state

	case Prev:
		if state.Step <= StepWelcome || state.Step == StepInstalling {
			return state
		}
		state.Step--
		state.Error = ""
		return state

	case Submit:
		if state.Step != StepReview {
			return state
		}
		if !validEmail(state.Form.AdminEmail) {
			state.Step = StepAdminSetup
			state.Error = msgInvalidEmail
			return state
		}
		state.Step = StepInstalling
		state.Error = ""
		return state

	case SetupFailed:
		state.Step = StepAdminSetup
		state.Error = a.Message
		return state
	}
	return state
}
