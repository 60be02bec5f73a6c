// Package install owns the installation record: the single persisted
// document whose presence means the deployment has been configured.
package install

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	SchemaVersion = "1.0.0"
	LoginEmail    = "email"

	UsagePersonal      = "personal"
	UsageSmallBusiness = "small_business"
	UsageCompany       = "company"
)

var usageContexts = map[string]struct{}{
	UsagePersonal:      {},
	UsageSmallBusiness: {},
	UsageCompany:       {},
}

var (
	ErrAlreadyInstalled = errors.New("system already installed")
	ErrPersistence      = errors.New("persistence failure")
	ErrInvalidEmail     = errors.New("please enter a valid email address")
	ErrInvalidUsage     = errors.New("unknown usage context")
)

// Record is serialized as a flat JSON object.
type Record struct {
	AdminEmail   string    `json:"adminEmail"`
	UsageContext string    `json:"usageContext"`
	LoginMethod  string    `json:"loginMethod"`
	Installed    bool      `json:"installed"`
	InstalledAt  time.Time `json:"installedAt"`
	Version      string    `json:"version"`
}

// Complete reports whether the record marks a finished installation.
func (r Record) Complete() bool {
	return r.Installed && strings.TrimSpace(r.AdminEmail) != ""
}

// ValidEmail is the only check the installer applies to the admin address.
func ValidEmail(email string) bool {
	return email != "" && strings.Contains(email, "@")
}

// NormalizeUsage trims the value and falls back to personal when empty.
func NormalizeUsage(usage string) (string, error) {
	usage = strings.TrimSpace(usage)
	if usage == "" {
		return UsagePersonal, nil
	}
	if _, ok := usageContexts[usage]; !ok {
		return "", ErrInvalidUsage
	}
	return usage, nil
}

func newRecord(adminEmail, usageContext string, now time.Time) Record {
	return Record{
		AdminEmail:   adminEmail,
		UsageContext: usageContext,
		LoginMethod:  LoginEmail,
		Installed:    true,
		InstalledAt:  now.UTC(),
		Version:      SchemaVersion,
	}
}

func decodeRecord(raw []byte) (Record, bool) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false
	}
	return rec, true
}

func encodeRecord(rec Record) ([]byte, error) {
	return json.MarshalIndent(rec, "", "  ")
}
