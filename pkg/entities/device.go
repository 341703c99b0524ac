package entities

// DeviceType is the closed set of simulated sensor kinds. The reading
// generator switches exhaustively over it.
type DeviceType string

const (
	DeviceTypeTemperature DeviceType = "temperature"
	DeviceTypeHumidity    DeviceType = "humidity"
	DeviceTypeDoor        DeviceType = "door"
)

const (
	DeviceActive   string = "active"
	DeviceInactive string = "inactive"
)

// SimulationParams carries the per-device emulation knobs. Nil bounds fall
// back to the generator defaults; a zero interval falls back to the
// emulator default.
type SimulationParams struct {
	IntervalSeconds int      `yaml:"interval" json:"interval,omitempty"`
	MinTemp         *float64 `yaml:"minTemp" json:"min_temp,omitempty"`
	MaxTemp         *float64 `yaml:"maxTemp" json:"max_temp,omitempty"`
	MinHumidity     *float64 `yaml:"minHumidity" json:"min_humidity,omitempty"`
	MaxHumidity     *float64 `yaml:"maxHumidity" json:"max_humidity,omitempty"`
}

type Device struct {
	ID               string           `yaml:"id" json:"id"`
	Name             string           `yaml:"name" json:"name"`
	DevEUI           string           `yaml:"devEui" json:"dev_eui"`
	Type             DeviceType       `yaml:"type" json:"type"`
	Status           string           `yaml:"status" json:"status"`
	SimulationParams SimulationParams `yaml:"simulationParams" json:"simulation_params"`
}

func (d Device) Active() bool {
	return d.Status == DeviceActive
}
