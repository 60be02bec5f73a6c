package client

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	msgConnectFailed = "Failed to connect to server"
	msgSetupFailed   = "Failed to save configuration"
	msgLoginFailed   = "Login failed"
	msgResetFailed   = "Failed to reset"
)

// Backend is the subset of *API the controller needs.
type Backend interface {
	Status(ctx context.Context) (StatusResponse, error)
	Setup(ctx context.Context, adminEmail, usageContext string) (Grant, error)
	Login(ctx context.Context, email string) (Grant, error)
	Session(ctx context.Context, token string) (SessionResponse, error)
	Reset(ctx context.Context) error
}

// Controller owns a State and runs the network calls that move it. Every
// request takes a sequence number under the lock; the reply is applied only
// if no newer request was issued meanwhile.
type Controller struct {
	api    Backend
	tokens TokenStore
	log    logrus.FieldLogger

	mu       sync.Mutex
	state    State
	onChange func(State)
}

func NewController(api Backend, tokens TokenStore, log logrus.FieldLogger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	token, err := tokens.Load()
	if err != nil {
		log.WithError(err).Warn("session token unreadable; starting signed out")
		token = ""
	}
	return &Controller{
		api:    api,
		tokens: tokens,
		log:    log,
		state:  NewState(token),
	}
}

// OnChange registers fn to be called with every new state.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) dispatch(action Action) State {
	c.mu.Lock()
	prev := c.state
	c.state = Reduce(c.state, action)
	next := c.state
	fn := c.onChange
	c.mu.Unlock()

	if next.Token != prev.Token {
		c.persistToken(next.Token)
	}
	if fn != nil {
		fn(next)
	}
	return next
}

func (c *Controller) persistToken(token string) {
	var err error
	if token == "" {
		err = c.tokens.Clear()
	} else {
		err = c.tokens.Save(token)
	}
	if err != nil {
		c.log.WithError(err).Warn("session token not persisted")
	}
}

func (c *Controller) begin() (uint64, string) {
	s := c.dispatch(Begin{})
	return s.Seq, s.Token
}

// Boot resolves the initial mode for the current path.
func (c *Controller) Boot(ctx context.Context) error {
	return c.gate(ctx, "")
}

// Navigate moves to path. Protected paths re-run the installation and
// session gate; public ones are applied directly.
func (c *Controller) Navigate(ctx context.Context, path string) error {
	if !IsProtected(path) {
		c.dispatch(Navigated{Path: path})
		return nil
	}
	return c.gate(ctx, path)
}

func (c *Controller) gate(ctx context.Context, path string) error {
	seq, token := c.begin()

	status, err := c.api.Status(ctx)
	if err != nil {
		c.log.WithError(err).Warn("status check failed")
		c.dispatch(RequestFailed{Seq: seq, Message: msgConnectFailed})
		return err
	}

	resolved := GateResolved{Seq: seq, Path: path, Installed: status.Installed}
	if status.AdminEmail != nil {
		resolved.AdminEmail = *status.AdminEmail
	}
	if status.Installed && token != "" {
		sess, err := c.api.Session(ctx, token)
		if err != nil {
			// The token is dropped only when the server says it is invalid.
			c.log.WithError(err).Warn("session check failed")
			c.dispatch(RequestFailed{Seq: seq, Message: msgConnectFailed})
			return err
		}
		resolved.SessionValid = sess.Valid
		resolved.SessionEmail = sess.Email
	}
	c.dispatch(resolved)
	return nil
}

func (c *Controller) SetField(field Field, value string) {
	c.dispatch(WizardStep{Action: SetField{Field: field, Value: value}})
}

func (c *Controller) Next() {
	c.dispatch(WizardStep{Action: Next{}})
}

func (c *Controller) Prev() {
	c.dispatch(WizardStep{Action: Prev{}})
}

// Complete submits the reviewed form. Any failure returns the wizard to
// the admin step with the form intact.
func (c *Controller) Complete(ctx context.Context) error {
	s := c.dispatch(WizardStep{Action: Submit{}})
	if s.Mode != ModeInstaller || s.Wizard.Step != StepInstalling {
		return nil
	}
	form := s.Wizard.Form
	seq, _ := c.begin()

	grant, err := c.api.Setup(ctx, form.AdminEmail, form.UsageContext)
	if err != nil {
		c.log.WithError(err).Warn("setup failed")
		c.dispatch(SetupRejected{Seq: seq, Message: Message(err, msgSetupFailed)})
		return err
	}
	c.dispatch(SetupSucceeded{Seq: seq, Token: grant.SessionID, Email: form.AdminEmail})
	return nil
}

func (c *Controller) Login(ctx context.Context, email string) error {
	seq, _ := c.begin()
	grant, err := c.api.Login(ctx, email)
	if err != nil {
		c.dispatch(LoginRejected{Seq: seq, Message: Message(err, msgLoginFailed)})
		return err
	}
	c.dispatch(LoginSucceeded{Seq: seq, Token: grant.SessionID, Email: email})
	return nil
}

// Logout forgets the local token. The server-side session is not revoked.
func (c *Controller) Logout() {
	c.dispatch(LoggedOut{})
}

func (c *Controller) Reset(ctx context.Context) error {
	seq, _ := c.begin()
	if err := c.api.Reset(ctx); err != nil {
		c.dispatch(RequestFailed{Seq: seq, Message: Message(err, msgResetFailed)})
		return err
	}
	c.dispatch(ResetCompleted{Seq: seq})
	return nil
}
