package ttn

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name        string
		temperature float64
		humidity    float64
		battery     float64
		doorOpen    bool
	}{
		{"typical indoor", 22.57, 65.5, 2.47, false},
		{"negative temperature", -12.34, 30.0, 1.2, true},
		{"lower boundary", -40.0, 0.0, 0.0, false},
		// 2.55V encodes to 0xFF, which is reserved as the absence
		// sentinel; 2.54V is the highest round-trippable voltage.
		{"upper boundary", 85.0, 100.0, 2.54, true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			reading := entities.SensorReading{
				Temperature: entities.Float64Ptr(testCase.temperature),
				Humidity:    entities.Float64Ptr(testCase.humidity),
				Battery:     entities.Float64Ptr(testCase.battery),
				DoorOpen:    entities.BoolPtr(testCase.doorOpen),
			}

			decoded := DecodePayload(EncodePayload(reading))

			assert.NotNil(t, decoded.Temperature)
			assert.NotNil(t, decoded.Humidity)
			assert.NotNil(t, decoded.Battery)
			assert.NotNil(t, decoded.DoorOpen)
			assert.InDelta(t, testCase.temperature, *decoded.Temperature, 0.005)
			assert.InDelta(t, testCase.humidity, *decoded.Humidity, 0.25)
			assert.InDelta(t, testCase.battery, *decoded.Battery, 0.005)
			assert.Equal(t, testCase.doorOpen, *decoded.DoorOpen)
		})
	}
}

func TestEncodeEmptyReadingPreservesAbsence(t *testing.T) {
	encoded := EncodePayload(entities.SensorReading{})

	payload, err := base64.StdEncoding.DecodeString(encoded)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, payload)

	decoded := DecodePayload(encoded)
	assert.Nil(t, decoded.Temperature)
	assert.Nil(t, decoded.Humidity)
	assert.Nil(t, decoded.Battery)
	assert.Nil(t, decoded.DoorOpen)
	assert.Nil(t, decoded.Timestamp)
}

func TestDecodeMalformedBase64ReturnsEmptyReading(t *testing.T) {
	decoded := DecodePayload("not-valid-base64!!!")

	assert.Equal(t, entities.SensorReading{}, decoded)
}

func TestDecodeWrongLengthReturnsEmptyReading(t *testing.T) {
	short := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03})

	assert.Equal(t, entities.SensorReading{}, DecodePayload(short))
}

func TestDecodeTemperatureSentinelIsAtomic(t *testing.T) {
	// 0xFFFF is the absence sentinel; 0xFFFE is a legitimate -0.02 degC.
	absent := base64.StdEncoding.EncodeToString([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	assert.Nil(t, DecodePayload(absent).Temperature)

	present := base64.StdEncoding.EncodeToString([]byte{0xFF, 0xFE, 0xFF, 0xFF, 0xFF})
	decoded := DecodePayload(present)
	assert.NotNil(t, decoded.Temperature)
	assert.InDelta(t, -0.02, *decoded.Temperature, 0.001)
}

func TestDecodeReconstructsSignedTemperature(t *testing.T) {
	// -5 degC = -500 centidegrees = 0xFE0C as unsigned big-endian.
	payload := base64.StdEncoding.EncodeToString([]byte{0xFE, 0x0C, 0xFF, 0xFF, 0xFF})

	decoded := DecodePayload(payload)
	assert.NotNil(t, decoded.Temperature)
	assert.InDelta(t, -5.0, *decoded.Temperature, 0.005)
}

func TestEncodeBatteryAboveRangeWraps(t *testing.T) {
	// The generator produces Li-ion voltages the one-byte battery field
	// cannot represent; those wrap on truncation. 3.30V -> 330 % 256 = 74.
	reading := entities.SensorReading{Battery: entities.Float64Ptr(3.30)}

	decoded := DecodePayload(EncodePayload(reading))
	assert.NotNil(t, decoded.Battery)
	assert.InDelta(t, 0.74, *decoded.Battery, 0.005)
}

func TestEncodeDoorClosedDistinctFromAbsent(t *testing.T) {
	closed := DecodePayload(EncodePayload(entities.SensorReading{DoorOpen: entities.BoolPtr(false)}))
	assert.NotNil(t, closed.DoorOpen)
	assert.False(t, *closed.DoorOpen)

	absent := DecodePayload(EncodePayload(entities.SensorReading{}))
	assert.Nil(t, absent.DoorOpen)
}
