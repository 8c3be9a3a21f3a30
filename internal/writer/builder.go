// internal/writer/builder.go
package writer

import (
	"context"
	"time"

	cfg "github.com/tamzrod/totp-token/internal/config"
	wmodbus "github.com/tamzrod/totp-token/internal/writer/modbus"
)

// connectRetries bounds the initial connect to the status endpoint.
const connectRetries = 5

// BuildPlan converts the status config into a StatusPlan.
// Returns nil when status export is not configured.
// Assumes config has already passed validation and normalization.
func BuildPlan(s *cfg.StatusConfig) *StatusPlan {
	if s == nil {
		return nil
	}
	return &StatusPlan{
		Endpoint:   s.Endpoint,
		UnitID:     s.UnitID,
		BaseSlot:   s.BaseSlot,
		DeviceName: s.DeviceName,
	}
}

// BuildStatusWriter connects to the status endpoint and returns a writer
// for plan plus a closer. plan must not be nil.
func BuildStatusWriter(ctx context.Context, plan *StatusPlan, timeout time.Duration) (StatusWriter, func() error, error) {
	c, err := wmodbus.Dial(ctx, wmodbus.Config{
		Endpoint: plan.Endpoint,
		Timeout:  timeout,
		Retries:  connectRetries,
	})
	if err != nil {
		return nil, nil, err
	}

	sw, _ := NewDeviceStatusWriter(plan, c)
	return sw, c.Close, nil
}
