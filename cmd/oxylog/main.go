// Command oxylog reads stored measurements from a Beurer PO60 pulse
// oximeter over Bluetooth LE and keeps them in a local SQLite history.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"oxylog/cmd/oxylog/daemon"
	"oxylog/internal/adapter/store"
	"oxylog/internal/adapter/tui/dashboard"
	"oxylog/internal/domain"
	"oxylog/internal/infra/config"
	"oxylog/internal/infra/logger"
	"oxylog/internal/infra/tracer"
	"oxylog/internal/usecase"
	"oxylog/internal/usecase/eventbus"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		if err := runSync(); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "sync":
		err = runSync()
	case "scan":
		err = runScan()
	case "watch":
		err = runWatch()
	case "dashboard":
		err = runDashboard()
	case "export":
		err = runExport()
	case "daemon":
		err = runDaemon()
	case "doctor":
		err = runDoctor()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'oxylog --help' for usage information.\n", cmd)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`oxylog - Beurer PO60 pulse oximeter reader

USAGE:
    oxylog [COMMAND] [FLAGS]

COMMANDS:
    sync        Connect once, pull stored measurements, print the result
    scan        List nearby BLE peripherals
    watch       Keep syncing on a schedule until interrupted
    dashboard   Launch the interactive dashboard
    export      Write stored measurements as CSV or JSON
                Flags: --format csv|json, --output PATH, --device ADDR, --limit N
    daemon      Manage oxylog watch mode as a system service
                Subcommands: install, uninstall, status
    doctor      Run health checks on your setup

    (no command) - Same as 'sync'

FLAGS:
    -h, --help      Show this help message
    --config PATH   Config file path (default: ~/.oxylog/config.yaml)

CONFIGURATION:
    Environment: OXYLOG_* variables override config, e.g.
      OXYLOG_DEVICE_ADDRESS=AA:BB:CC:DD:EE:FF
      OXYLOG_SYNC_SCHEDULE="@every 30m"

EXAMPLES:
    oxylog                        # One-shot sync with defaults
    oxylog scan                   # Find the oximeter's address
    oxylog watch                  # Scheduled syncs in the foreground
    oxylog export --format json   # Dump history to stdout
    oxylog daemon install         # Install watch mode as a service

NOTE:
    The PO60 is only reachable for a short time after a recording while
    its display is on. Turn the device on before running 'sync'.`)
}

func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("OXYLOG_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".oxylog", "config.yaml")
}

// app bundles the long-lived components shared by the subcommands.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	bus    *eventbus.Bus
	store  *store.Store
	reader *usecase.Reader

	closers []func()
}

// initApp builds config, logger, tracer, bus, and store. When withBLE is
// true the BLE backend is created and enabled; builds without the ble tag
// fail here with a clear message.
func initApp(ctx context.Context, withBLE bool) (*app, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func() { logCloser() })

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("tracer: %w", err)
	}
	a.closers = append(a.closers, func() { tracerShutdown(context.Background()) })

	a.bus = eventbus.New(log)
	a.closers = append(a.closers, a.bus.Close)

	a.store, err = store.New(cfg.Store.Path, log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("store: %w", err)
	}
	a.closers = append(a.closers, func() { a.store.Close() })

	if withBLE {
		backend, err := newBackend(cfg)
		if err != nil {
			a.close()
			return nil, err
		}
		if err := backend.Enable(); err != nil {
			a.close()
			return nil, fmt.Errorf("enable bluetooth adapter: %w", err)
		}
		a.reader = usecase.NewReader(backend, a.store, a.bus, *cfg, log)
	}

	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runSync() error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := initApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.reader.Sync(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("synced %s: %d received, %d stored (%.1fs)\n",
		result.Device.Address, result.Received, result.Stored, result.Duration.Seconds())
	if result.Latest != nil {
		fmt.Println("latest:", result.Latest.Summary())
	}
	return nil
}

func runScan() error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := initApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Printf("scanning for %s...\n", a.cfg.Device.ScanTimeout)
	peripherals, err := a.reader.Scan(ctx)
	if err != nil {
		return err
	}

	if len(peripherals) == 0 {
		fmt.Println("no peripherals found")
		return nil
	}
	for _, p := range peripherals {
		name := p.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("  %s  rssi %4d  %s\n", p.Address, p.RSSI, name)
	}
	return nil
}

func runWatch() error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := initApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	sched := usecase.NewScheduler(a.reader.Sync, a.reader.Prune, a.log)
	if err := sched.Start(ctx, a.cfg.Sync.Schedule); err != nil {
		return err
	}
	defer sched.Stop()

	a.log.Info("watching", "schedule", a.cfg.Sync.Schedule)

	// First attempt right away; the device may be awake now.
	if _, err := a.reader.Sync(ctx); err != nil {
		a.log.Debug("initial sync attempt failed", "err", err)
	}

	<-ctx.Done()
	a.log.Info("shutting down")
	return nil
}

func runDashboard() error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := initApp(ctx, true)
	if err != nil {
		// Fall back to a read-only dashboard when BLE is unavailable.
		a, err = initApp(ctx, false)
		if err != nil {
			return err
		}
	}
	defer a.close()

	deps := dashboard.Deps{
		Bus:          a.bus,
		Store:        a.store,
		Config:       config.Render(a.cfg),
		Device:       deviceLabel(a.cfg),
		HistoryLimit: a.cfg.Dashboard.HistoryLimit,
	}
	if a.reader != nil {
		deps.Sync = func(ctx context.Context) error {
			_, err := a.reader.Sync(ctx)
			return err
		}
	}

	model := dashboard.New(deps)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	model.SetProgramSender(func(msg tea.Msg) { p.Send(msg) })

	_, err = p.Run()
	return err
}

func deviceLabel(cfg *config.Config) string {
	if cfg.Device.Address != "" {
		return cfg.Device.Address
	}
	return cfg.Device.NamePrefix + "*"
}

func runExport() error {
	format := "csv"
	output := ""
	device := ""
	limit := 1000

	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--format" && i+1 < len(args):
			format = args[i+1]
			i++
		case strings.HasPrefix(args[i], "--format="):
			format = strings.TrimPrefix(args[i], "--format=")
		case args[i] == "--output" && i+1 < len(args):
			output = args[i+1]
			i++
		case strings.HasPrefix(args[i], "--output="):
			output = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "--device" && i+1 < len(args):
			device = args[i+1]
			i++
		case strings.HasPrefix(args[i], "--device="):
			device = strings.TrimPrefix(args[i], "--device=")
		case args[i] == "--limit" && i+1 < len(args):
			limit, _ = strconv.Atoi(args[i+1])
			i++
		case strings.HasPrefix(args[i], "--limit="):
			limit, _ = strconv.Atoi(strings.TrimPrefix(args[i], "--limit="))
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := initApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	measurements, err := a.store.List(ctx, device, limit)
	if err != nil {
		return err
	}

	out := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "csv":
		return store.ExportCSV(out, measurements)
	case "json":
		return store.ExportJSON(out, measurements)
	default:
		return domain.NewDomainError("export", domain.ErrInvalidInput,
			fmt.Sprintf("unknown format %q (want csv or json)", format))
	}
}

func runDaemon() error {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: oxylog daemon <install|uninstall|status>")
		os.Exit(1)
	}

	switch os.Args[2] {
	case "install":
		cfg := daemon.DefaultConfig()
		cfg.ConfigPath = configPath()
		if err := cfg.Validate(); err != nil {
			return err
		}
		return daemon.Install(cfg)
	case "uninstall":
		return daemon.Uninstall("oxylog")
	case "status":
		status, err := daemon.GetStatus("oxylog")
		if err != nil {
			return err
		}
		if status.Running {
			fmt.Printf("oxylog is running (PID %d)\n", status.PID)
		} else {
			fmt.Println("oxylog is not running")
		}
		return nil
	default:
		return fmt.Errorf("unknown daemon command: %s (want: install, uninstall, status)", os.Args[2])
	}
}
