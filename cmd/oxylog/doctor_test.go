package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStatusIcon(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{CheckPass, "[PASS]"},
		{CheckWarn, "[WARN]"},
		{CheckFail, "[FAIL]"},
	}
	for _, tt := range tests {
		if got := statusIcon(tt.status); got != tt.want {
			t.Errorf("statusIcon(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

// pointDoctorAt writes a config into a temp dir and points OXYLOG_CONFIG at it
// so the checks never touch the real home directory.
func pointDoctorAt(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OXYLOG_CONFIG", path)
	t.Setenv("OXYLOG_STORE_PATH", filepath.Join(dir, "measurements.db"))
	return dir
}

func TestCheckConfig_WarnsWithoutAddress(t *testing.T) {
	pointDoctorAt(t, "device:\n  name_prefix: PO60\n")

	r := checkConfig()
	if r.Status != CheckWarn {
		t.Errorf("status = %d, want warn; message %q", r.Status, r.Message)
	}
}

func TestCheckConfig_PassesWithAddress(t *testing.T) {
	pointDoctorAt(t, "device:\n  address: AA:BB:CC:DD:EE:FF\n")

	r := checkConfig()
	if r.Status != CheckPass {
		t.Errorf("status = %d, want pass; message %q", r.Status, r.Message)
	}
}

func TestCheckDataDir(t *testing.T) {
	pointDoctorAt(t, "")

	r := checkDataDir()
	if r.Status != CheckPass {
		t.Errorf("status = %d, want pass; message %q", r.Status, r.Message)
	}
}

func TestCheckStore(t *testing.T) {
	pointDoctorAt(t, "")

	r := checkStore()
	if r.Status != CheckPass {
		t.Errorf("status = %d, want pass; message %q", r.Status, r.Message)
	}
}

func TestCheckSchedule_Invalid(t *testing.T) {
	pointDoctorAt(t, "sync:\n  schedule: not-a-schedule\n")

	r := checkSchedule()
	if r.Status != CheckFail {
		t.Errorf("status = %d, want fail; message %q", r.Status, r.Message)
	}
}

func TestCheckSchedule_Every(t *testing.T) {
	pointDoctorAt(t, "sync:\n  schedule: \"@every 30m\"\n")

	r := checkSchedule()
	if r.Status != CheckPass {
		t.Errorf("status = %d, want pass; message %q", r.Status, r.Message)
	}
}
