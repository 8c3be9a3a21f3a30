// internal/status/snapshot.go
package status

// Snapshot represents exactly what the exporter is allowed to deliver.
// It never carries key material or codes.
type Snapshot struct {
	State       uint16
	Provisioned uint16
	FramesSaved uint16
	Timeouts    uint16
	Ignored     uint16
	StoreErrors uint16
	WearWrites  uint16
	Displays    uint16
	Overruns    uint16
	StoreFault  uint16
}

// Saturate converts a counter to a slot value without wrapping.
func Saturate(v uint64) uint16 {
	if v > CounterMax {
		return CounterMax
	}
	return uint16(v)
}
