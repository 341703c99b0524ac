package ttn

import (
	"context"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
)

// DispatchResult is the external transport's verdict for one uplink.
type DispatchResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Dispatcher delivers one simulated uplink to the network server. The
// emulator treats a returned error identically to a Success=false result:
// one failed attempt, recorded and isolated to that device.
type Dispatcher interface {
	Dispatch(ctx context.Context, device entities.Device, reading entities.SensorReading, fCnt uint32) (DispatchResult, error)
}
