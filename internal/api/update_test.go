package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smazurov/gpioled/internal/api/models"
	"github.com/smazurov/gpioled/internal/updater"
)

type mockUpdateService struct {
	enabled  bool
	reason   string
	info     *updater.UpdateInfo
	applyErr error
	applied  int
}

func (m *mockUpdateService) CheckForUpdate(_ context.Context) (*updater.UpdateInfo, error) {
	return m.info, nil
}

func (m *mockUpdateService) ApplyUpdate(_ context.Context) error {
	m.applied++
	return m.applyErr
}

func (m *mockUpdateService) Rollback(_ context.Context) error {
	return &updater.Error{Code: updater.ErrCodeNoBackup, Message: "no backup available for rollback"}
}

func (m *mockUpdateService) GetStatus(_ context.Context) *updater.Status {
	return &updater.Status{State: updater.StateIdle, CurrentVersion: "dev"}
}

func (m *mockUpdateService) IsEnabled() bool        { return m.enabled }
func (m *mockUpdateService) DisabledReason() string { return m.reason }

func doPost(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestUpdateRoutes(t *testing.T) {
	svc := &mockUpdateService{
		enabled: true,
		info:    &updater.UpdateInfo{CurrentVersion: "dev", LatestVersion: "1.1.0", UpdateAvailable: true},
	}
	s := newTestServer(&Options{UpdateService: svc})

	rec := doGet(t, s, "/api/update/check", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("check status = %d: %s", rec.Code, rec.Body.String())
	}
	var check models.UpdateCheckData
	if err := json.Unmarshal(rec.Body.Bytes(), &check); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !check.UpdateAvailable || check.LatestVersion != "1.1.0" {
		t.Errorf("check = %+v", check)
	}

	if rec := doGet(t, s, "/api/update/status", nil); rec.Code != http.StatusOK {
		t.Errorf("status endpoint = %d, want 200", rec.Code)
	}

	if rec := doPost(t, s, "/api/update/apply"); rec.Code != http.StatusOK || svc.applied != 1 {
		t.Errorf("apply = %d (applied %d), want 200 once", rec.Code, svc.applied)
	}

	svc.applyErr = &updater.Error{Code: updater.ErrCodeInvalidState, Message: "cannot apply update in state applying"}
	if rec := doPost(t, s, "/api/update/apply"); rec.Code != http.StatusConflict {
		t.Errorf("apply in wrong state = %d, want 409", rec.Code)
	}

	if rec := doPost(t, s, "/api/update/rollback"); rec.Code != http.StatusNotFound {
		t.Errorf("rollback without backup = %d, want 404", rec.Code)
	}
}

func TestUpdateRoutes_Disabled(t *testing.T) {
	s := newTestServer(&Options{UpdateService: &mockUpdateService{reason: "read-only filesystem"}})

	if rec := doGet(t, s, "/api/update/check", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("check = %d, want 503", rec.Code)
	}
	if rec := doPost(t, s, "/api/update/apply"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("apply = %d, want 503", rec.Code)
	}
}

func TestUpdateRoutes_NotRegisteredWithoutService(t *testing.T) {
	s := newTestServer(&Options{})
	if rec := doGet(t, s, "/api/update/check", nil); rec.Code != http.StatusNotFound {
		t.Errorf("check without updater = %d, want 404", rec.Code)
	}
}
