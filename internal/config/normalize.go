// internal/config/normalize.go
package config

import (
	"github.com/samber/lo"

	"github.com/tamzrod/totp-token/internal/status"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	t := &cfg.Token

	t.KeyLength = lo.CoalesceOrEmpty(t.KeyLength, DefaultKeyLength)
	t.Hash = lo.CoalesceOrEmpty(t.Hash, DefaultHash)
	t.TimestepS = lo.CoalesceOrEmpty(t.TimestepS, DefaultTimestepS)
	t.ProvisioningTimeoutMs = lo.CoalesceOrEmpty(t.ProvisioningTimeoutMs, DefaultProvisioningTimeoutMs)

	t.Display.Mode = lo.CoalesceOrEmpty(t.Display.Mode, DefaultDisplayMode)
	t.Display.DurationMs = lo.CoalesceOrEmpty(t.Display.DurationMs, DefaultDisplayDurationMs)
	if t.Display.FeedbackMs == nil {
		t.Display.FeedbackMs = lo.ToPtr(DefaultFeedbackMs)
	}

	t.TimeSource.Strategy = lo.CoalesceOrEmpty(t.TimeSource.Strategy, DefaultStrategy)
	t.TimeSource.TicksPerSecond = lo.CoalesceOrEmpty(t.TimeSource.TicksPerSecond, DefaultTicksPerSecond)
	t.TimeSource.Epoch = lo.CoalesceOrEmpty(t.TimeSource.Epoch, DefaultEpoch)

	t.Keystore.Size = lo.CoalesceOrEmpty(t.Keystore.Size, DefaultKeystoreSize)

	t.Serial.BaudRate = lo.CoalesceOrEmpty(t.Serial.BaudRate, DefaultBaudRate)
	t.Serial.TimeoutMs = lo.CoalesceOrEmpty(t.Serial.TimeoutMs, DefaultTimeoutMs)
	t.Serial.RXQueue = lo.CoalesceOrEmpty(t.Serial.RXQueue, DefaultRXQueue)
	t.Serial.OpenRetries = lo.CoalesceOrEmpty(t.Serial.OpenRetries, DefaultOpenRetries)

	// ------------------------------------------------------------
	// STATUS BLOCK NORMALIZATION (OPT-IN)
	// ------------------------------------------------------------

	if t.Status == nil {
		return
	}

	t.Status.TimeoutMs = lo.CoalesceOrEmpty(t.Status.TimeoutMs, DefaultStatusTimeoutMs)

	// Normalize device_name:
	// - ASCII already validated
	// - Truncate to max 16 characters
	if len(t.Status.DeviceName) > status.DeviceNameMaxChars {
		t.Status.DeviceName = t.Status.DeviceName[:status.DeviceNameMaxChars]
	}
}
