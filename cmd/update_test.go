package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/smazurov/gpioled/internal/updater"
)

type stubUpdater struct {
	enabled     bool
	info        *updater.UpdateInfo
	applyErr    error
	rollbackErr error
	applied     bool
	rolledBack  bool
}

func (s *stubUpdater) CheckForUpdate(_ context.Context) (*updater.UpdateInfo, error) {
	return s.info, nil
}

func (s *stubUpdater) ApplyUpdate(_ context.Context) error {
	s.applied = true
	return s.applyErr
}

func (s *stubUpdater) Rollback(_ context.Context) error {
	s.rolledBack = true
	return s.rollbackErr
}

func (s *stubUpdater) GetStatus(_ context.Context) *updater.Status {
	return &updater.Status{BackupVersion: "1.0.0"}
}

func (s *stubUpdater) IsEnabled() bool        { return s.enabled }
func (s *stubUpdater) DisabledReason() string { return "read-only filesystem" }

func TestRunUpdate(t *testing.T) {
	available := &updater.UpdateInfo{CurrentVersion: "1.0.0", LatestVersion: "1.1.0", UpdateAvailable: true}
	current := &updater.UpdateInfo{CurrentVersion: "1.1.0", LatestVersion: "1.1.0"}

	tests := []struct {
		name        string
		svc         *stubUpdater
		checkOnly   bool
		rollback    bool
		wantErr     bool
		wantApplied bool
		wantOutput  string
	}{
		{
			name:        "applies available update",
			svc:         &stubUpdater{enabled: true, info: available},
			wantApplied: true,
			wantOutput:  "installed 1.1.0",
		},
		{
			name:       "check only",
			svc:        &stubUpdater{enabled: true, info: available},
			checkOnly:  true,
			wantOutput: "update available: 1.0.0 -> 1.1.0",
		},
		{
			name:       "up to date",
			svc:        &stubUpdater{enabled: true, info: current},
			wantOutput: "is up to date",
		},
		{
			name: "apply failure",
			svc: &stubUpdater{enabled: true, info: available, applyErr: &updater.Error{
				Code: updater.ErrCodeApplyFailed, Message: "failed to apply update",
			}},
			wantErr:     true,
			wantApplied: true,
			wantOutput:  "previous binary restored",
		},
		{
			name:       "rollback",
			svc:        &stubUpdater{enabled: true},
			rollback:   true,
			wantOutput: "restored 1.0.0",
		},
		{
			name:    "disabled",
			svc:     &stubUpdater{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := RunUpdate(context.Background(), tt.svc, tt.checkOnly, tt.rollback, &out)

			if (err != nil) != tt.wantErr {
				t.Fatalf("RunUpdate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.svc.applied != tt.wantApplied {
				t.Errorf("applied = %v, want %v", tt.svc.applied, tt.wantApplied)
			}
			if tt.rollback != tt.svc.rolledBack {
				t.Errorf("rolledBack = %v, want %v", tt.svc.rolledBack, tt.rollback)
			}
			if !strings.Contains(out.String(), tt.wantOutput) {
				t.Errorf("output = %q, want it to contain %q", out.String(), tt.wantOutput)
			}
		})
	}
}

func TestRunUpdate_RollbackError(t *testing.T) {
	svc := &stubUpdater{enabled: true, rollbackErr: errors.New("no backup")}
	if err := RunUpdate(context.Background(), svc, false, true, &bytes.Buffer{}); err == nil {
		t.Fatal("RunUpdate() should return the rollback error")
	}
}
