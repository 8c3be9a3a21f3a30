// internal/config/config.go
package config

type Config struct {
	Token TokenConfig `yaml:"token"`
}

// ---- TOKEN ----

type TokenConfig struct {
	KeyLength             int    `yaml:"key_length"`
	Hash                  string `yaml:"hash"`
	TimestepS             int    `yaml:"timestep_s"`
	ProvisioningTimeoutMs int    `yaml:"provisioning_timeout_ms"`

	Display    DisplayConfig    `yaml:"display"`
	TimeSource TimeSourceConfig `yaml:"time_source"`
	Keystore   KeystoreConfig   `yaml:"keystore"`
	Serial     SerialConfig     `yaml:"serial"`

	// Status block export (optional, opt-in)
	Status *StatusConfig `yaml:"status"`
}

// ---- DISPLAY ----

type DisplayConfig struct {
	Mode       string `yaml:"mode"`        // flat | window
	DurationMs int    `yaml:"duration_ms"` // flat duration; cap in window mode
	FeedbackMs *int   `yaml:"feedback_ms"` // provisioning feedback hold; 0 disables it
}

// ---- TIME SOURCE ----

type TimeSourceConfig struct {
	Strategy       string `yaml:"strategy"`    // rtc | uptime
	BackupPath     string `yaml:"backup_path"` // rtc only; empty => not persisted
	TicksPerSecond uint32 `yaml:"ticks_per_second"`
	Epoch          string `yaml:"epoch"` // unix | first_boot
}

// ---- KEY STORE ----

type KeystoreConfig struct {
	Path        string `yaml:"path"` // empty => in-memory
	Size        int    `yaml:"size"`
	BaseAddress int    `yaml:"base_address"`
}

// ---- SERIAL ----

type SerialConfig struct {
	Address     string `yaml:"address"` // empty => stdin/stdout
	BaudRate    int    `yaml:"baud_rate"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	RXQueue     int    `yaml:"rx_queue"`
	OpenRetries uint64 `yaml:"open_retries"`
}

// ---- STATUS ----

type StatusConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	BaseSlot   uint16 `yaml:"base_slot"`
	DeviceName string `yaml:"device_name"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}
