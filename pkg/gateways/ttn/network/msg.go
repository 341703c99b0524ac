package network

import (
	"time"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
)

// APIError is the error body returned by The Things Stack API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// UplinkEventMessage is the broker event published for every recorded
// dispatch outcome.
type UplinkEventMessage struct {
	DeviceID   string                 `json:"device_id"`
	DeviceName string                 `json:"device_name,omitempty"`
	DeviceType string                 `json:"device_type,omitempty"`
	Success    bool                   `json:"success"`
	Message    string                 `json:"message,omitempty"`
	Reading    entities.SensorReading `json:"reading"`
	Timestamp  time.Time              `json:"timestamp"`
}
