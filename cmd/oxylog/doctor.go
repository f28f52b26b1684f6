package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"

	"oxylog/internal/adapter/store"
	"oxylog/internal/infra/config"
	"oxylog/internal/infra/logger"
)

// CheckStatus is the outcome of a single doctor check.
type CheckStatus int

const (
	CheckPass CheckStatus = iota
	CheckWarn
	CheckFail
)

// CheckResult holds the outcome of one health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string
}

func statusIcon(s CheckStatus) string {
	switch s {
	case CheckPass:
		return "[PASS]"
	case CheckWarn:
		return "[WARN]"
	default:
		return "[FAIL]"
	}
}

// runDoctor runs all health checks and prints a report.
func runDoctor() error {
	fmt.Println("oxylog doctor")
	fmt.Println()

	results := []CheckResult{
		checkConfig(),
		checkDataDir(),
		checkStore(),
		checkBLESupport(),
		checkSchedule(),
	}

	var passed, warned, failed int
	for _, r := range results {
		fmt.Printf("%s %s: %s\n", statusIcon(r.Status), r.Name, r.Message)
		if r.Fix != "" && r.Status != CheckPass {
			fmt.Printf("       fix: %s\n", r.Fix)
		}
		switch r.Status {
		case CheckPass:
			passed++
		case CheckWarn:
			warned++
		case CheckFail:
			failed++
		}
	}

	fmt.Printf("\nResults: %d passed, %d warnings, %d failed\n", passed, warned, failed)

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func checkConfig() CheckResult {
	path := configPath()
	cfg, err := config.Load(path)
	if err != nil {
		return CheckResult{
			Name:    "config",
			Status:  CheckFail,
			Message: err.Error(),
			Fix:     fmt.Sprintf("fix or remove %s", path),
		}
	}
	if cfg.Device.Address == "" {
		return CheckResult{
			Name:    "config",
			Status:  CheckWarn,
			Message: fmt.Sprintf("no device address set; will scan for %q", cfg.Device.NamePrefix),
			Fix:     "run 'oxylog scan' and set device.address to skip discovery",
		}
	}
	return CheckResult{
		Name:    "config",
		Status:  CheckPass,
		Message: fmt.Sprintf("loaded, device %s", cfg.Device.Address),
	}
}

func checkDataDir() CheckResult {
	cfg, err := config.Load(configPath())
	if err != nil {
		return CheckResult{Name: "data dir", Status: CheckFail, Message: "config unreadable"}
	}

	dir := filepath.Dir(cfg.Store.Path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return CheckResult{
			Name:    "data dir",
			Status:  CheckFail,
			Message: fmt.Sprintf("cannot create %s: %v", dir, err),
			Fix:     "check filesystem permissions",
		}
	}

	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, nil, 0600); err != nil {
		return CheckResult{
			Name:    "data dir",
			Status:  CheckFail,
			Message: fmt.Sprintf("%s is not writable: %v", dir, err),
			Fix:     "check filesystem permissions",
		}
	}
	os.Remove(probe)

	return CheckResult{Name: "data dir", Status: CheckPass, Message: dir}
}

func checkStore() CheckResult {
	cfg, err := config.Load(configPath())
	if err != nil {
		return CheckResult{Name: "store", Status: CheckFail, Message: "config unreadable"}
	}

	log, closer, err := logger.New(config.LoggerConfig{Level: "error", Output: "discard"})
	if err != nil {
		return CheckResult{Name: "store", Status: CheckFail, Message: err.Error()}
	}
	defer closer()

	st, err := store.New(cfg.Store.Path, log)
	if err != nil {
		return CheckResult{
			Name:    "store",
			Status:  CheckFail,
			Message: err.Error(),
			Fix:     fmt.Sprintf("check %s for corruption or remove it", cfg.Store.Path),
		}
	}
	defer st.Close()

	n, err := st.Count(context.Background())
	if err != nil {
		return CheckResult{Name: "store", Status: CheckFail, Message: err.Error()}
	}

	return CheckResult{
		Name:    "store",
		Status:  CheckPass,
		Message: fmt.Sprintf("%s, %d measurements", cfg.Store.Path, n),
	}
}

func checkBLESupport() CheckResult {
	if !bleBuild {
		return CheckResult{
			Name:    "bluetooth",
			Status:  CheckWarn,
			Message: "binary built without BLE support",
			Fix:     "rebuild with -tags ble",
		}
	}
	return CheckResult{Name: "bluetooth", Status: CheckPass, Message: "BLE support compiled in"}
}

func checkSchedule() CheckResult {
	cfg, err := config.Load(configPath())
	if err != nil {
		return CheckResult{Name: "schedule", Status: CheckFail, Message: "config unreadable"}
	}

	if _, err := cron.ParseStandard(cfg.Sync.Schedule); err != nil {
		return CheckResult{
			Name:    "schedule",
			Status:  CheckFail,
			Message: fmt.Sprintf("%q: %v", cfg.Sync.Schedule, err),
			Fix:     `set sync.schedule to a cron expression or "@every <duration>"`,
		}
	}

	return CheckResult{Name: "schedule", Status: CheckPass, Message: cfg.Sync.Schedule}
}
