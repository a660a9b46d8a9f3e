package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/smazurov/gpioled/internal/logging"
	"github.com/smazurov/gpioled/internal/version"
)

const restartDelay = 500 * time.Millisecond

type service struct {
	source        releaseSource
	exe           string
	backupManager *backupManager
	restart       func()
	restartDelay  time.Duration

	mu          sync.RWMutex
	state       State
	latest      *release
	lastChecked *time.Time
	lastError   error

	enabled        bool
	disabledReason string

	logger *slog.Logger
}

// NewService creates the updater for the running executable. A service whose
// executable cannot be replaced is returned disabled rather than as an error.
func NewService(opts *Options) (Service, error) {
	logger := logging.GetLogger("updater")

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return disabled(logger, fmt.Sprintf("failed to get executable path: %v", err)), nil
	}
	if canWrite, reason := checkWritePermission(exe); !canWrite {
		return disabled(logger, reason), nil
	}

	source, err := newGitHubSource(opts)
	if err != nil {
		return nil, err
	}

	return newService(opts, source, exe, logger), nil
}

func disabled(logger *slog.Logger, reason string) *service {
	logger.Warn("Update service disabled", "reason", reason)
	return &service{
		enabled:        false,
		disabledReason: reason,
		state:          StateIdle,
		logger:         logger,
	}
}

func newService(opts *Options, source releaseSource, exe string, logger *slog.Logger) *service {
	backupMgr, err := newBackupManager(opts.BackupDir, logger)
	if err != nil {
		logger.Warn("Failed to create backup manager", "error", err)
	}

	return &service{
		source:        source,
		exe:           exe,
		backupManager: backupMgr,
		restart:       opts.Restart,
		restartDelay:  restartDelay,
		state:         StateIdle,
		enabled:       true,
		logger:        logger,
	}
}

func checkWritePermission(exe string) (bool, string) {
	dir := filepath.Dir(exe)

	tmp := filepath.Join(dir, ".gpioled.update.test")
	f, err := os.Create(tmp)
	if err != nil {
		return false, fmt.Sprintf("no write permission to %s: %v", dir, err)
	}
	f.Close()
	os.Remove(tmp)
	return true, ""
}

func (s *service) IsEnabled() bool {
	return s.enabled
}

func (s *service) DisabledReason() string {
	return s.disabledReason
}

// CheckForUpdate compares the latest release against the running version.
func (s *service) CheckForUpdate(ctx context.Context) (*UpdateInfo, error) {
	if !s.enabled {
		return nil, newError(ErrCodeDisabled, s.disabledReason, nil)
	}

	if !s.transitionTo(StateChecking, StateIdle, StateAvailable, StateError, StateRolledBack) {
		return nil, newError(ErrCodeInvalidState,
			fmt.Sprintf("cannot check for updates in state %s", s.getState()), nil)
	}

	current := version.Version
	rel, err := s.source.Latest(ctx, current)
	if err != nil {
		s.setError(err)
		return nil, newError(ErrCodeCheckFailed, "failed to check for updates", err)
	}

	now := time.Now()
	s.mu.Lock()
	s.lastChecked = &now
	s.mu.Unlock()

	if rel == nil {
		s.setError(errors.New("repository not found or has no releases"))
		return nil, newError(ErrCodeNotFound, "repository not found or has no releases", nil)
	}

	if !rel.Newer {
		s.transitionTo(StateIdle)
		return &UpdateInfo{
			CurrentVersion:  current,
			LatestVersion:   rel.Version,
			UpdateAvailable: false,
		}, nil
	}

	s.mu.Lock()
	s.latest = rel
	s.mu.Unlock()
	s.transitionTo(StateAvailable)

	return &UpdateInfo{
		CurrentVersion:  current,
		LatestVersion:   rel.Version,
		ReleaseNotes:    rel.Notes,
		ReleaseURL:      rel.URL,
		PublishedAt:     rel.PublishedAt,
		AssetSize:       rel.AssetSize,
		UpdateAvailable: true,
	}, nil
}

// ApplyUpdate installs the release found by the last check, checking first
// when none is pending.
func (s *service) ApplyUpdate(ctx context.Context) error {
	if !s.enabled {
		return newError(ErrCodeDisabled, s.disabledReason, nil)
	}

	if s.getState() != StateAvailable {
		info, err := s.CheckForUpdate(ctx)
		if err != nil {
			return err
		}
		if !info.UpdateAvailable {
			return newError(ErrCodeNoUpdate, "no update available", nil)
		}
	}

	if !s.transitionTo(StateApplying, StateAvailable) {
		return newError(ErrCodeInvalidState,
			fmt.Sprintf("cannot apply update in state %s", s.getState()), nil)
	}

	if s.backupManager != nil {
		if err := s.backupManager.createBackup(s.exe); err != nil {
			s.setError(err)
			return newError(ErrCodeBackupFailed, "failed to create backup", err)
		}
	}

	s.mu.RLock()
	rel := s.latest
	s.mu.RUnlock()

	if err := s.source.Install(ctx, rel, s.exe); err != nil {
		s.setError(err)
		s.attemptRollback()
		return newError(ErrCodeApplyFailed, "failed to apply update", err)
	}

	s.transitionTo(StateRestarting)
	s.logger.Info("Update applied", "version", rel.Version)
	s.scheduleRestart()
	return nil
}

// Rollback restores the backed up binary.
func (s *service) Rollback(_ context.Context) error {
	if !s.enabled {
		return newError(ErrCodeDisabled, s.disabledReason, nil)
	}

	if s.backupManager == nil || !s.backupManager.hasBackup() {
		return newError(ErrCodeNoBackup, "no backup available for rollback", nil)
	}

	if err := s.backupManager.restore(); err != nil {
		return newError(ErrCodeRollbackFailed, "failed to restore backup", err)
	}

	s.transitionTo(StateRolledBack)
	s.logger.Info("Rollback completed", "version", s.backupManager.backupVersion())
	s.scheduleRestart()
	return nil
}

func (s *service) GetStatus(_ context.Context) *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &Status{
		State:          s.state,
		CurrentVersion: version.Version,
		LastChecked:    s.lastChecked,
	}

	if s.latest != nil {
		status.TargetVersion = s.latest.Version
	}

	if s.lastError != nil {
		status.Error = s.lastError.Error()
	}

	if s.backupManager != nil {
		status.BackupAvailable = s.backupManager.hasBackup()
		status.BackupVersion = s.backupManager.backupVersion()
	}

	return status
}

func (s *service) transitionTo(newState State, validFromStates ...State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(validFromStates) > 0 && !slices.Contains(validFromStates, s.state) {
		return false
	}

	s.logger.Debug("State transition", "from", s.state, "to", newState)
	s.state = newState
	s.lastError = nil
	return true
}

func (s *service) getState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *service) setError(err error) {
	s.mu.Lock()
	s.lastError = err
	s.state = StateError
	s.mu.Unlock()
}

func (s *service) attemptRollback() {
	if s.backupManager == nil || !s.backupManager.hasBackup() {
		s.logger.Error("No backup available for automatic rollback")
		return
	}

	if err := s.backupManager.restore(); err != nil {
		s.logger.Error("Failed to restore backup", "error", err)
		return
	}

	s.logger.Info("Automatic rollback completed")
}

// scheduleRestart gives an API caller time to receive its response first.
func (s *service) scheduleRestart() {
	if s.restart == nil {
		return
	}
	time.AfterFunc(s.restartDelay, s.restart)
}

// SignalRestart sends SIGTERM to the running process so systemd starts the
// replaced binary.
func SignalRestart() {
	logger := logging.GetLogger("updater")
	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		logger.Error("Failed to find own process", "error", err)
		return
	}

	logger.Info("Sending SIGTERM to trigger restart")
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		logger.Error("Failed to send SIGTERM", "error", err)
	}
}
