// internal/status/encode.go
package status

// Encode converts a Snapshot into the live slots of a status block.
// Reserved and device name slots are left zero.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotState] = s.State
	regs[SlotProvisioned] = s.Provisioned
	regs[SlotFramesSaved] = s.FramesSaved
	regs[SlotTimeouts] = s.Timeouts
	regs[SlotIgnored] = s.Ignored
	regs[SlotStoreErrors] = s.StoreErrors
	regs[SlotWearWrites] = s.WearWrites
	regs[SlotDisplays] = s.Displays
	regs[SlotOverruns] = s.Overruns
	regs[SlotStoreFault] = s.StoreFault

	return regs
}

// LiveSlots is the number of leading slots Encode fills.
const LiveSlots = SlotStoreFault + 1
