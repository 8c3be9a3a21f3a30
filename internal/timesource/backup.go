// internal/timesource/backup.go
package timesource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"

	"github.com/tamzrod/totp-token/internal/clock"
)

// BackupVersion is the current backup file format version.
const BackupVersion = 1

// Epoch selects where the RTC counts from.
type Epoch string

const (
	// EpochUnix aligns the counter with Unix time, so codes match any
	// standard TOTP verifier.
	EpochUnix Epoch = "unix"
	// EpochFirstBoot starts the counter at first power-up. A verifier must
	// be told the epoch.
	EpochFirstBoot Epoch = "first_boot"
)

// Backup is the battery-backed RTC domain: everything needed to keep the
// counter advancing across power cycles.
type Backup struct {
	Version        int    `cbor:"1,keyasint"`
	EpochUnixNano  int64  `cbor:"2,keyasint"`
	TicksPerSecond uint32 `cbor:"3,keyasint"`
	PeriodTicks    uint32 `cbor:"4,keyasint"`
}

var backupEncMode cbor.EncMode

func init() {
	var err error
	backupEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("timesource: cbor enc mode: %v", err))
	}
}

// LoadOrInitBackup reads the backup domain at path. When the file does not
// exist (first power-up) a new domain is created and saved.
func LoadOrInitBackup(path string, clk clock.Clocker, epoch Epoch, tps, period uint32) (Backup, bool, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var b Backup
		if err := cbor.Unmarshal(data, &b); err != nil {
			return Backup{}, false, fmt.Errorf("timesource: decode backup %s: %w", path, err)
		}
		if b.Version != BackupVersion {
			return Backup{}, false, fmt.Errorf("timesource: backup %s version %d, want %d", path, b.Version, BackupVersion)
		}
		if b.TicksPerSecond == 0 || b.PeriodTicks == 0 {
			return Backup{}, false, fmt.Errorf("timesource: backup %s has zero rates", path)
		}
		return b, false, nil

	case errors.Is(err, os.ErrNotExist):

	default:
		return Backup{}, false, fmt.Errorf("timesource: read backup %s: %w", path, err)
	}

	b, err := NewBackup(clk, epoch, tps, period)
	if err != nil {
		return Backup{}, false, err
	}

	if err := SaveBackup(path, b); err != nil {
		return Backup{}, false, err
	}
	return b, true, nil
}

// NewBackup builds a fresh backup domain for epoch.
func NewBackup(clk clock.Clocker, epoch Epoch, tps, period uint32) (Backup, error) {
	if tps == 0 || period == 0 {
		return Backup{}, errors.New("timesource: ticks per second and period must be > 0")
	}

	b := Backup{
		Version:        BackupVersion,
		TicksPerSecond: tps,
		PeriodTicks:    period,
	}
	switch epoch {
	case EpochUnix, "":
	case EpochFirstBoot:
		b.EpochUnixNano = clk.Now().UnixNano()
	default:
		return Backup{}, fmt.Errorf("timesource: unknown epoch %q", string(epoch))
	}
	return b, nil
}

// SaveBackup writes b atomically (temp file + rename).
func SaveBackup(path string, b Backup) error {
	data, err := backupEncMode.Marshal(b)
	if err != nil {
		return fmt.Errorf("timesource: encode backup: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("timesource: backup dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".rtc-*")
	if err != nil {
		return fmt.Errorf("timesource: backup temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("timesource: write backup: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("timesource: sync backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("timesource: close backup: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}
