package ttn

import (
	"math/rand"
	"sync"
	"time"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
)

const (
	defaultMinTemperature = -20.0
	defaultMaxTemperature = 40.0
	defaultMinHumidity    = 20.0
	defaultMaxHumidity    = 90.0

	minBatteryVolts = 3.0
	maxBatteryVolts = 3.6

	doorOpenProbability = 0.3
)

// GeneratorBounds limits the type-specific value of a generated reading.
type GeneratorBounds struct {
	MinTemp     float64
	MaxTemp     float64
	MinHumidity float64
	MaxHumidity float64
}

func DefaultGeneratorBounds() GeneratorBounds {
	return GeneratorBounds{
		MinTemp:     defaultMinTemperature,
		MaxTemp:     defaultMaxTemperature,
		MinHumidity: defaultMinHumidity,
		MaxHumidity: defaultMaxHumidity,
	}
}

// BoundsForDevice merges the device's simulation parameters over the
// generator defaults.
func BoundsForDevice(device entities.Device) GeneratorBounds {
	bounds := DefaultGeneratorBounds()
	params := device.SimulationParams
	if params.MinTemp != nil {
		bounds.MinTemp = *params.MinTemp
	}
	if params.MaxTemp != nil {
		bounds.MaxTemp = *params.MaxTemp
	}
	if params.MinHumidity != nil {
		bounds.MinHumidity = *params.MinHumidity
	}
	if params.MaxHumidity != nil {
		bounds.MaxHumidity = *params.MaxHumidity
	}
	return bounds
}

var (
	rngMutex sync.Mutex
	rng      = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func randomFloat(min, max float64) float64 {
	rngMutex.Lock()
	defer rngMutex.Unlock()
	return min + rng.Float64()*(max-min)
}

func randomChance(probability float64) bool {
	rngMutex.Lock()
	defer rngMutex.Unlock()
	return rng.Float64() < probability
}

// GenerateRandomReading produces a synthetic reading for one device type.
// Battery and timestamp are universal; exactly one type-specific field is
// populated, the others stay absent. A nil bounds means the defaults.
func GenerateRandomReading(deviceType entities.DeviceType, bounds *GeneratorBounds) entities.SensorReading {
	limits := DefaultGeneratorBounds()
	if bounds != nil {
		limits = *bounds
	}

	battery := randomFloat(minBatteryVolts, maxBatteryVolts)
	timestamp := time.Now().Unix()
	reading := entities.SensorReading{
		Battery:   &battery,
		Timestamp: &timestamp,
	}

	switch deviceType {
	case entities.DeviceTypeTemperature:
		temperature := randomFloat(limits.MinTemp, limits.MaxTemp)
		reading.Temperature = &temperature
	case entities.DeviceTypeHumidity:
		humidity := randomFloat(limits.MinHumidity, limits.MaxHumidity)
		reading.Humidity = &humidity
	case entities.DeviceTypeDoor:
		doorOpen := randomChance(doorOpenProbability)
		reading.DoorOpen = &doorOpen
	}

	return reading
}
