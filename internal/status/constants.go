// internal/status/constants.go
package status

// Token Status Block layout constants.
// These values define the export protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of holding registers per token.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotState holds the power/display state code.
const SlotState = 0

// SlotProvisioned is 1 when a non-zero key is stored.
const SlotProvisioned = 1

// SlotFramesSaved counts committed provisioning frames.
const SlotFramesSaved = 2

// SlotTimeouts counts frames dropped at the deadline.
const SlotTimeouts = 3

// SlotIgnored counts bytes ignored outside a frame.
const SlotIgnored = 4

// SlotStoreErrors counts key store failures.
const SlotStoreErrors = 5

// SlotWearWrites counts physical key store byte writes since boot.
const SlotWearWrites = 6

// SlotDisplays counts code displays since boot.
const SlotDisplays = 7

// SlotOverruns counts received bytes dropped on a full RX queue.
const SlotOverruns = 8

// SlotStoreFault is 1 once a failed key write could not be rolled back.
// The stored key is then unknown and the running key is kept.
const SlotStoreFault = 9

// ---- RESERVED RANGE ----

// Slot 10 is reserved for future use.
const SlotReservedStart = 10
const SlotReservedEnd = 10

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// Device name is always placed at the END of the status block.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// CounterMax is where counters saturate. They MUST NOT wrap.
const CounterMax = 65535

// ---- STATE CODES ----

// StateUnknown represents the boot state before the first step.
const StateUnknown uint16 = 0

// StateDormant represents deep sleep.
const StateDormant uint16 = 1

// StateListening represents an awake provisioning listener.
const StateListening uint16 = 2

// StateDisplaying represents a code or diagnostic on the display.
const StateDisplaying uint16 = 3
