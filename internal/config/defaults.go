// internal/config/defaults.go
package config

// Defaults applied by Normalize to keys left unset.
const (
	DefaultKeyLength             = 20
	DefaultHash                  = "sha1"
	DefaultTimestepS             = 30
	DefaultProvisioningTimeoutMs = 2000

	DefaultDisplayMode       = "window"
	DefaultDisplayDurationMs = 10000
	DefaultFeedbackMs        = 2000

	DefaultStrategy       = "rtc"
	DefaultTicksPerSecond = 32768
	DefaultEpoch          = "unix"

	DefaultKeystoreSize = 256

	DefaultBaudRate    = 9600
	DefaultTimeoutMs   = 100
	DefaultRXQueue     = 64
	DefaultOpenRetries = 10

	DefaultStatusTimeoutMs = 1000
)

// Accepted enum values.
var (
	Hashes       = []string{"sha1", "sha256"}
	DisplayModes = []string{"flat", "window"}
	Strategies   = []string{"rtc", "uptime"}
	Epochs       = []string{"unix", "first_boot"}
)

// MaxKeyLength is the HMAC block size; longer keys are not supported.
const MaxKeyLength = 64
