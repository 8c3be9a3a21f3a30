// internal/config/validate.go
package config

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/tamzrod/totp-token/internal/status"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
//
// Unset keys are valid; Normalize fills them afterwards. Checks that span
// several keys are made against the values Normalize will produce.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}
	t := cfg.Token

	// ------------------------------------------------------------
	// OTP
	// ------------------------------------------------------------

	if t.KeyLength < 0 || t.KeyLength > MaxKeyLength {
		return fmt.Errorf("token.key_length: must be 1..%d, got %d", MaxKeyLength, t.KeyLength)
	}
	if err := oneOf("token.hash", t.Hash, Hashes); err != nil {
		return err
	}
	if t.TimestepS < 0 {
		return fmt.Errorf("token.timestep_s: must be > 0, got %d", t.TimestepS)
	}
	if t.ProvisioningTimeoutMs < 0 {
		return fmt.Errorf("token.provisioning_timeout_ms: must be > 0, got %d", t.ProvisioningTimeoutMs)
	}

	// ------------------------------------------------------------
	// DISPLAY
	// ------------------------------------------------------------

	if err := oneOf("token.display.mode", t.Display.Mode, DisplayModes); err != nil {
		return err
	}
	if t.Display.DurationMs < 0 {
		return fmt.Errorf("token.display.duration_ms: must be > 0, got %d", t.Display.DurationMs)
	}
	if t.Display.FeedbackMs != nil && *t.Display.FeedbackMs < 0 {
		return fmt.Errorf("token.display.feedback_ms: must be >= 0, got %d", *t.Display.FeedbackMs)
	}

	// ------------------------------------------------------------
	// TIME SOURCE
	// ------------------------------------------------------------

	if err := oneOf("token.time_source.strategy", t.TimeSource.Strategy, Strategies); err != nil {
		return err
	}
	if err := oneOf("token.time_source.epoch", t.TimeSource.Epoch, Epochs); err != nil {
		return err
	}
	if t.TimeSource.Strategy == "uptime" && t.TimeSource.BackupPath != "" {
		return errors.New("token.time_source.backup_path: only valid with strategy rtc")
	}

	// ------------------------------------------------------------
	// KEY STORE GEOMETRY
	// ------------------------------------------------------------

	if t.Keystore.Size < 0 {
		return fmt.Errorf("token.keystore.size: must be > 0, got %d", t.Keystore.Size)
	}
	if t.Keystore.BaseAddress < 0 {
		return fmt.Errorf("token.keystore.base_address: must be >= 0, got %d", t.Keystore.BaseAddress)
	}

	keyLen := lo.CoalesceOrEmpty(t.KeyLength, DefaultKeyLength)
	size := lo.CoalesceOrEmpty(t.Keystore.Size, DefaultKeystoreSize)
	if t.Keystore.BaseAddress+keyLen > size {
		return fmt.Errorf(
			"token.keystore: key region %d..%d exceeds size %d",
			t.Keystore.BaseAddress,
			t.Keystore.BaseAddress+keyLen-1,
			size,
		)
	}

	// ------------------------------------------------------------
	// SERIAL
	// ------------------------------------------------------------

	if t.Serial.BaudRate < 0 {
		return fmt.Errorf("token.serial.baud_rate: must be > 0, got %d", t.Serial.BaudRate)
	}
	if t.Serial.TimeoutMs < 0 {
		return fmt.Errorf("token.serial.timeout_ms: must be > 0, got %d", t.Serial.TimeoutMs)
	}
	if t.Serial.RXQueue < 0 {
		return fmt.Errorf("token.serial.rx_queue: must be > 0, got %d", t.Serial.RXQueue)
	}

	// ------------------------------------------------------------
	// STATUS BLOCK (OPT-IN)
	// ------------------------------------------------------------

	if t.Status == nil {
		return nil
	}
	s := t.Status

	if s.Endpoint == "" {
		return errors.New("token.status.endpoint: required when status is set")
	}
	if s.TimeoutMs < 0 {
		return fmt.Errorf("token.status.timeout_ms: must be > 0, got %d", s.TimeoutMs)
	}

	// device_name sanity (ASCII only)
	for i := 0; i < len(s.DeviceName); i++ {
		if s.DeviceName[i] > 0x7F {
			return errors.New("token.status.device_name: must contain ASCII characters only")
		}
	}

	// the whole block must fit the 16-bit register space
	end := uint32(s.BaseSlot)*status.SlotsPerDevice + status.SlotsPerDevice - 1
	if end > 0xFFFF {
		return fmt.Errorf("token.status.base_slot: block ends at register %d, beyond 65535", end)
	}

	return nil
}

// oneOf accepts an empty value (defaulted later) or one of allowed.
func oneOf(key, v string, allowed []string) error {
	if v == "" || lo.Contains(allowed, v) {
		return nil
	}
	return fmt.Errorf("%s: %q is not one of %v", key, v, allowed)
}
