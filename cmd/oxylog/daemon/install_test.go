package daemon

import (
	"strings"
	"testing"
)

func testDaemonConfig() Config {
	return Config{
		Name:       "oxylog",
		BinaryPath: "/usr/local/bin/oxylog",
		ConfigPath: "/home/pi/.oxylog/config.yaml",
		WorkDir:    "/home/pi/.oxylog",
		User:       "pi",
		LogPath:    "/home/pi/.oxylog/logs",
		HomeDir:    "/home/pi",
	}
}

func TestRenderSystemdUnit(t *testing.T) {
	unit, err := RenderSystemdUnit(testDaemonConfig())
	if err != nil {
		t.Fatalf("RenderSystemdUnit: %v", err)
	}

	for _, want := range []string{
		"ExecStart=/usr/local/bin/oxylog watch --config /home/pi/.oxylog/config.yaml",
		"User=pi",
		"After=bluetooth.target",
		"Restart=on-failure",
		"StandardOutput=append:/home/pi/.oxylog/logs/oxylog.log",
	} {
		if !strings.Contains(unit, want) {
			t.Errorf("unit missing %q:\n%s", want, unit)
		}
	}
}

func TestRenderLaunchdPlist(t *testing.T) {
	plist, err := RenderLaunchdPlist(testDaemonConfig())
	if err != nil {
		t.Fatalf("RenderLaunchdPlist: %v", err)
	}

	for _, want := range []string{
		"<string>io.oxylog.oxylog</string>",
		"<string>/usr/local/bin/oxylog</string>",
		"<string>watch</string>",
		"<string>--config</string>",
		"<key>KeepAlive</key>",
	} {
		if !strings.Contains(plist, want) {
			t.Errorf("plist missing %q:\n%s", want, plist)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := testDaemonConfig()
	cfg.Name = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty name")
	}

	cfg = testDaemonConfig()
	cfg.BinaryPath = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty binary path")
	}

	cfg = testDaemonConfig()
	cfg.BinaryPath = "/nonexistent/oxylog"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing binary")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "oxylog" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if !strings.HasSuffix(cfg.ConfigPath, "config.yaml") {
		t.Errorf("ConfigPath = %q", cfg.ConfigPath)
	}
}
