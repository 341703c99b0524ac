package ttn

import (
	"encoding/base64"
	"encoding/binary"
	"math"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
)

const (
	payloadSize = 5

	sentinelByte        = 0xFF
	sentinelTemperature = 0xFFFF

	temperatureScale = 100
	humidityScale    = 2
	batteryScale     = 100

	flagDoorOpen = 0x01
)

// EncodePayload packs a reading into the 5-byte uplink record
// [temp_hi, temp_lo, humidity, battery, flags] and returns it base64
// encoded. Absent fields are written as 0xFF sentinels; for temperature
// the sentinel is the byte pair 0xFFFF taken atomically. Out-of-range
// values wrap on the conversion to the field width, there is no error
// path.
func EncodePayload(reading entities.SensorReading) string {
	payload := []byte{sentinelByte, sentinelByte, sentinelByte, sentinelByte, sentinelByte}

	if reading.Temperature != nil {
		centidegrees := uint16(int64(math.Round(*reading.Temperature * temperatureScale)))
		binary.BigEndian.PutUint16(payload[0:2], centidegrees)
	}
	if reading.Humidity != nil {
		payload[2] = byte(int64(math.Round(*reading.Humidity * humidityScale)))
	}
	if reading.Battery != nil {
		payload[3] = byte(int64(math.Round(*reading.Battery * batteryScale)))
	}
	if reading.DoorOpen != nil {
		payload[4] = 0x00
		if *reading.DoorOpen {
			payload[4] |= flagDoorOpen
		}
	}

	return base64.StdEncoding.EncodeToString(payload)
}

// DecodePayload is the inverse of EncodePayload. Malformed base64 or a
// record of the wrong length decodes to an empty reading instead of
// failing: simulated payloads are not a trusted source and callers prefer
// availability over a decode error.
func DecodePayload(encoded string) entities.SensorReading {
	var reading entities.SensorReading

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(payload) != payloadSize {
		return reading
	}

	if raw := binary.BigEndian.Uint16(payload[0:2]); raw != sentinelTemperature {
		value := int32(raw)
		if value > math.MaxInt16 {
			value -= 65536
		}
		temperature := float64(value) / temperatureScale
		reading.Temperature = &temperature
	}
	if payload[2] != sentinelByte {
		humidity := float64(payload[2]) / humidityScale
		reading.Humidity = &humidity
	}
	if payload[3] != sentinelByte {
		battery := float64(payload[3]) / batteryScale
		reading.Battery = &battery
	}
	if payload[4] != sentinelByte {
		doorOpen := payload[4]&flagDoorOpen != 0
		reading.DoorOpen = &doorOpen
	}

	return reading
}
