package entities

// SensorReading is one decoded or generated measurement. A nil field is
// absent, which the payload codec keeps distinguishable from a legal zero
// value.
type SensorReading struct {
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty" yaml:"humidity,omitempty"`
	Battery     *float64 `json:"battery,omitempty" yaml:"battery,omitempty"`
	DoorOpen    *bool    `json:"door_open,omitempty" yaml:"doorOpen,omitempty"`
	Timestamp   *int64   `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

func Float64Ptr(value float64) *float64 {
	return &value
}

func BoolPtr(value bool) *bool {
	return &value
}

func Int64Ptr(value int64) *int64 {
	return &value
}
