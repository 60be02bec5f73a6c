package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"commerce3d/api/internal/auth"
	"commerce3d/api/internal/install"
	"commerce3d/api/internal/session"

	"github.com/sirupsen/logrus"
)

const (
	ModeInstaller = "INSTALLER"
	ModeDashboard = "DASHBOARD"
)

type installStore interface {
	Read(context.Context) (install.Record, bool)
	Install(context.Context, string, string) (install.Record, error)
	Reset(context.Context) error
	Ping(context.Context) error
}

type Status struct {
	Installed   bool       `json:"installed"`
	Mode        string     `json:"mode"`
	AdminEmail  *string    `json:"adminEmail"`
	InstalledAt *time.Time `json:"installedAt"`
}

type SessionGrant struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"sessionId"`
}

type SessionCheck struct {
	Valid bool   `json:"valid"`
	Email string `json:"email,omitempty"`
}

type Service struct {
	config   installStore
	sessions session.Store
	log      logrus.FieldLogger

	// lifecycle is held shared while a session is issued against an
	// installed record and exclusively by Reset, so no session outlives a reset.
	lifecycle sync.RWMutex
}

func New(config *install.Registry, sessions session.Store, log logrus.FieldLogger) *Service {
	return newService(config, sessions, log)
}

func newService(config installStore, sessions session.Store, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{config: config, sessions: sessions, log: log}
}

func (s *Service) Status(ctx context.Context) Status {
	rec, ok := s.config.Read(ctx)
	if !ok || !rec.Complete() {
		return Status{Installed: false, Mode: ModeInstaller}
	}
	email := rec.AdminEmail
	installedAt := rec.InstalledAt
	return Status{
		Installed:   true,
		Mode:        ModeDashboard,
		AdminEmail:  &email,
		InstalledAt: &installedAt,
	}
}

// CompleteSetup persists the first configuration and signs the admin in.
// Only the first successful caller installs; later callers get ALREADY_INSTALLED.
func (s *Service) CompleteSetup(ctx context.Context, adminEmail, usageContext string) (SessionGrant, error) {
	email := strings.TrimSpace(adminEmail)
	if !install.ValidEmail(email) {
		recordOutcome("setup", "invalid")
		return SessionGrant{}, errInvalidEmail
	}
	usage, err := install.NormalizeUsage(usageContext)
	if err != nil {
		recordOutcome("setup", "invalid")
		return SessionGrant{}, errInvalidUsage
	}

	s.lifecycle.RLock()
	defer s.lifecycle.RUnlock()

	if _, err := s.config.Install(ctx, email, usage); err != nil {
		if errors.Is(err, install.ErrAlreadyInstalled) {
			recordOutcome("setup", "conflict")
			return SessionGrant{}, errInstalled
		}
		recordOutcome("setup", "error")
		s.log.WithError(err).Error("write installation record")
		return SessionGrant{}, errPersistence
	}

	token, err := s.sessions.Create(ctx, email)
	if err != nil {
		recordOutcome("setup", "error")
		s.log.WithError(err).Error("create session after setup")
		return SessionGrant{}, errSession
	}

	recordOutcome("setup", "ok")
	s.log.WithField("usage_context", usage).Info("setup complete")
	return SessionGrant{Success: true, Message: "Setup complete!", SessionID: token}, nil
}

// Login trusts a bare match against the configured admin email. There is no
// password or possession check.
func (s *Service) Login(ctx context.Context, email string) (SessionGrant, error) {
	s.lifecycle.RLock()
	defer s.lifecycle.RUnlock()

	rec, ok := s.config.Read(ctx)
	if !ok || !rec.Complete() {
		recordOutcome("login", "not_configured")
		return SessionGrant{}, errNotInstalled
	}
	if !auth.SameIdentity(email, rec.AdminEmail) {
		recordOutcome("login", "rejected")
		return SessionGrant{}, errBadLogin
	}

	token, err := s.sessions.Create(ctx, rec.AdminEmail)
	if err != nil {
		recordOutcome("login", "error")
		return SessionGrant{}, fmt.Errorf("create session: %w", err)
	}
	recordOutcome("login", "ok")
	return SessionGrant{Success: true, SessionID: token}, nil
}

// VerifySession never mutates state.
func (s *Service) VerifySession(ctx context.Context, token string) SessionCheck {
	if token == "" {
		return SessionCheck{Valid: false}
	}
	entry, ok, err := s.sessions.Validate(ctx, token)
	if err != nil {
		s.log.WithError(err).Warn("session lookup failed")
		return SessionCheck{Valid: false}
	}
	if !ok {
		return SessionCheck{Valid: false}
	}
	return SessionCheck{Valid: true, Email: entry.Identity}
}

// Reset returns the deployment to installer mode and drops every session.
func (s *Service) Reset(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	// Sessions are only dropped once the record is gone, so a failed reset
	// leaves the deployment exactly as it was.
	if err := s.config.Reset(ctx); err != nil {
		recordOutcome("reset", "error")
		s.log.WithError(err).Error("reset: delete installation record")
		return errReset
	}
	if err := s.sessions.ClearAll(ctx); err != nil {
		recordOutcome("reset", "error")
		s.log.WithError(err).Error("reset: clear sessions")
		return errReset
	}
	recordOutcome("reset", "ok")
	s.log.Info("installation reset")
	return nil
}

// Ping checks the config backend and the session store.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.config.Ping(ctx); err != nil {
		return fmt.Errorf("config store: %w", err)
	}
	if err := s.sessions.Ping(ctx); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}
