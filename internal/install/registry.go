package install

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNotFound is returned by Backend.Load when no record is stored.
	ErrNotFound = errors.New("installation record not found")
	// ErrExists is returned by Backend.SaveIfAbsent when a record is already stored.
	ErrExists = errors.New("installation record exists")
)

// Backend stores the raw record bytes at one well-known location.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	SaveIfAbsent(ctx context.Context, data []byte) error
	Delete(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Registry is the ConfigStore. Install is serialized so that exactly one of
// several concurrent installers wins.
type Registry struct {
	backend Backend
	log     logrus.FieldLogger
	now     func() time.Time
	mu      sync.Mutex
}

func NewRegistry(backend Backend, log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{
		backend: backend,
		log:     log.WithField("component", "install"),
		now:     time.Now,
	}
}

// Read returns the stored record. Absent, unreadable and malformed records
// are all reported as missing.
func (r *Registry) Read(ctx context.Context) (Record, bool) {
	raw, err := r.backend.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.log.WithError(err).Warn("read installation record")
		}
		return Record{}, false
	}
	rec, ok := decodeRecord(raw)
	if !ok {
		r.log.Warn("installation record is malformed; treating as absent")
		return Record{}, false
	}
	return rec, true
}

func (r *Registry) IsInstalled(ctx context.Context) bool {
	rec, ok := r.Read(ctx)
	return ok && rec.Complete()
}

// Write unconditionally replaces the record.
func (r *Registry) Write(ctx context.Context, adminEmail, usageContext string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := newRecord(adminEmail, usageContext, r.now())
	data, err := encodeRecord(rec)
	if err != nil {
		return Record{}, fmt.Errorf("%w: encode record: %v", ErrPersistence, err)
	}
	if err := r.backend.Save(ctx, data); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return rec, nil
}

// Install writes the record only if the system is not installed yet.
func (r *Registry) Install(ctx context.Context, adminEmail, usageContext string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := r.backend.Load(ctx)
	switch {
	case err == nil:
		if rec, ok := decodeRecord(raw); ok && rec.Complete() {
			return Record{}, ErrAlreadyInstalled
		}
		r.log.Warn("replacing incomplete installation record")
		if err := r.backend.Delete(ctx); err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	case errors.Is(err, ErrNotFound):
	default:
		return Record{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	rec := newRecord(adminEmail, usageContext, r.now())
	data, err := encodeRecord(rec)
	if err != nil {
		return Record{}, fmt.Errorf("%w: encode record: %v", ErrPersistence, err)
	}
	if err := r.backend.SaveIfAbsent(ctx, data); err != nil {
		if errors.Is(err, ErrExists) {
			return Record{}, ErrAlreadyInstalled
		}
		return Record{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	r.log.WithField("usage_context", rec.UsageContext).Info("installation record created")
	return rec, nil
}

// Reset deletes the record. Resetting an uninstalled system succeeds.
func (r *Registry) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.backend.Delete(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (r *Registry) Ping(ctx context.Context) error {
	return r.backend.Ping(ctx)
}
