// cmd/token/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tamzrod/totp-token/internal/clock"
	"github.com/tamzrod/totp-token/internal/config"
	"github.com/tamzrod/totp-token/internal/device"
	"github.com/tamzrod/totp-token/internal/display"
	"github.com/tamzrod/totp-token/internal/hmacotp"
	"github.com/tamzrod/totp-token/internal/keystore"
	"github.com/tamzrod/totp-token/internal/serialport"
	"github.com/tamzrod/totp-token/internal/timesource"
	"github.com/tamzrod/totp-token/internal/writer"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: token <config.yaml>")
		os.Exit(2)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(os.Args[1]); err != nil {
		slog.Error("token failed", "error", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	t := cfg.Token

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.System{}

	// --------------------
	// Key store
	// --------------------

	medium, closeMedium, err := openMedium(t.Keystore)
	if err != nil {
		return err
	}
	defer closeMedium()

	store, err := keystore.Open(medium, t.Keystore.BaseAddress, t.KeyLength)
	if err != nil {
		return err
	}

	// --------------------
	// Time source
	// --------------------

	src, err := openTimeSource(clk, t.TimeSource)
	if err != nil {
		return err
	}

	newHash, err := hmacotp.Algorithm(t.Hash).HashFunc()
	if err != nil {
		return err
	}

	// --------------------
	// Serial channel
	// --------------------

	port, err := serialport.OpenWithRetry(ctx, serialport.Config{
		Address:  t.Serial.Address,
		BaudRate: t.Serial.BaudRate,
		Timeout:  time.Duration(t.Serial.TimeoutMs) * time.Millisecond,
	}, t.Serial.OpenRetries)
	if err != nil {
		return fmt.Errorf("serial open failed (address=%q): %w", t.Serial.Address, err)
	}
	defer port.Close()

	// --------------------
	// Button: SIGUSR1 is one edge
	// --------------------

	wake := device.NewWakeFlag()

	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	defer signal.Stop(usr1)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-usr1:
				wake.Interrupt()
			}
		}
	}()

	deps := device.Deps{
		Clock:   clk,
		Source:  src,
		Store:   store,
		Hash:    newHash,
		Display: display.NewConsole(os.Stderr),
		TX:      port,
		Wake:    wake,
		Logger:  slog.Default(),
	}

	// --------------------
	// Status export (optional)
	// --------------------

	if plan := writer.BuildPlan(t.Status); plan != nil {
		timeout := time.Duration(t.Status.TimeoutMs) * time.Millisecond

		sw, closeStatus, err := writer.BuildStatusWriter(ctx, plan, timeout)
		if err != nil {
			slog.Error("status export disabled", "endpoint", plan.Endpoint, "error", err)
		} else {
			defer closeStatus()

			async := writer.NewAsync(sw)
			go async.Run(ctx)
			deps.Status = async
		}
	}

	dev, err := device.New(device.Config{
		Timestep:         uint64(t.TimestepS),
		DisplayMode:      device.DisplayMode(t.Display.Mode),
		DisplayDuration:  time.Duration(t.Display.DurationMs) * time.Millisecond,
		ProvisionTimeout: time.Duration(t.ProvisioningTimeoutMs) * time.Millisecond,
		FeedbackHold:     time.Duration(*t.Display.FeedbackMs) * time.Millisecond,
		RXQueue:          t.Serial.RXQueue,
	}, deps)
	if err != nil {
		return err
	}

	// --------------------
	// RX pump -> state machine
	// --------------------

	rx := make(chan byte, t.Serial.RXQueue)
	go func() {
		if err := serialport.NewPump(port, t.Serial.RXQueue).Run(ctx, rx); err != nil {
			slog.Error("serial receive failed", "error", err)
		}
	}()

	slog.Info("token started",
		"hash", t.Hash,
		"timestep_s", t.TimestepS,
		"time_source", t.TimeSource.Strategy,
		"display", t.Display.Mode,
		"pid", os.Getpid(),
	)

	return dev.Run(ctx, rx)
}

func openMedium(c config.KeystoreConfig) (keystore.Medium, func() error, error) {
	if c.Path == "" {
		slog.Warn("in-memory key store: the key is lost at exit")
		return keystore.NewMemoryMedium(c.Size), func() error { return nil }, nil
	}

	m, err := keystore.OpenFileMedium(c.Path, c.Size)
	if err != nil {
		return nil, nil, err
	}
	return m, m.Close, nil
}

func openTimeSource(clk clock.Clocker, c config.TimeSourceConfig) (timesource.Source, error) {
	strategy := timesource.Strategy(c.Strategy)

	if strategy == timesource.StrategyUptime {
		slog.Warn("uptime time source: codes restart at every boot and will not match a verifier")
		return timesource.NewUptime(clk), nil
	}

	epoch := timesource.Epoch(c.Epoch)

	var (
		b   timesource.Backup
		err error
	)
	if c.BackupPath == "" {
		slog.Warn("rtc backup not persisted", "epoch", c.Epoch)
		b, err = timesource.NewBackup(clk, epoch, c.TicksPerSecond, timesource.DefaultPeriodTicks)
	} else {
		var created bool
		b, created, err = timesource.LoadOrInitBackup(c.BackupPath, clk, epoch, c.TicksPerSecond, timesource.DefaultPeriodTicks)
		if created {
			slog.Info("rtc backup initialized", "path", c.BackupPath, "epoch", c.Epoch)
		}
	}
	if err != nil {
		return nil, err
	}

	return timesource.NewRTC(timesource.NewHostCounter(clk, b))
}
