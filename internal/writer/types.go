// internal/writer/types.go
package writer

// StatusPlan is where one token's status block lives.
type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}
