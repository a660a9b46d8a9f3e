package updater

import (
	"context"
	"time"
)

// State of the update process.
type State string

// Update states.
const (
	StateIdle       State = "idle"
	StateChecking   State = "checking"
	StateAvailable  State = "available"
	StateApplying   State = "applying"
	StateRestarting State = "restarting"
	StateError      State = "error"
	StateRolledBack State = "rolled_back"
)

// Service checks for and installs new gpioled releases.
type Service interface {
	// CheckForUpdate asks the release source for the latest version without downloading it.
	CheckForUpdate(ctx context.Context) (*UpdateInfo, error)

	// ApplyUpdate backs up the running binary, replaces it with the latest
	// release and schedules a restart.
	ApplyUpdate(ctx context.Context) error

	// Rollback restores the backed up binary and schedules a restart.
	Rollback(ctx context.Context) error

	GetStatus(ctx context.Context) *Status

	// IsEnabled is false when the executable's directory is not writable.
	IsEnabled() bool
	DisabledReason() string
}

// UpdateInfo describes the latest published release.
type UpdateInfo struct {
	CurrentVersion  string    `json:"current_version"`
	LatestVersion   string    `json:"latest_version"`
	ReleaseNotes    string    `json:"release_notes"`
	ReleaseURL      string    `json:"release_url"`
	PublishedAt     time.Time `json:"published_at"`
	AssetSize       int       `json:"asset_size"`
	UpdateAvailable bool      `json:"update_available"`
}

// Status is a snapshot of the updater.
type Status struct {
	State           State      `json:"state"`
	CurrentVersion  string     `json:"current_version"`
	TargetVersion   string     `json:"target_version,omitempty"`
	Error           string     `json:"error,omitempty"`
	LastChecked     *time.Time `json:"last_checked,omitempty"`
	BackupAvailable bool       `json:"backup_available"`
	BackupVersion   string     `json:"backup_version,omitempty"`
}

// Options configures the updater service.
type Options struct {
	Repository string // GitHub repo slug, e.g. "smazurov/gpioled"
	Prerelease bool
	BackupDir  string // Defaults to ~/.cache/gpioled/backup

	// Restart is called after a binary has been replaced. Nil leaves the
	// running process alone.
	Restart func()
}
