package ttn

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
)

func TestFormatUplinkShape(t *testing.T) {
	reading := entities.SensorReading{Temperature: entities.Float64Ptr(5.2)}

	message := FormatUplink("dev1", "0004A30B001A2B3C", "app1", reading, nil)

	assert.Equal(t, "dev1", message.EndDeviceIDs.DeviceID)
	assert.Equal(t, "app1", message.EndDeviceIDs.ApplicationIDs.ApplicationID)
	assert.Equal(t, "0004A30B001A2B3C", message.EndDeviceIDs.DevEUI)
	assert.Equal(t, uint32(1), message.UplinkMessage.FPort)
	assert.Equal(t, uint32(1), message.UplinkMessage.FCnt)
	assert.Equal(t, EncodePayload(reading), message.UplinkMessage.FrmPayload)
	assert.Equal(t, reading, message.UplinkMessage.DecodedPayload)

	assert.Len(t, message.UplinkMessage.RxMetadata, 1)
	metadata := message.UplinkMessage.RxMetadata[0]
	assert.Equal(t, simulatedGatewayID, metadata.GatewayIDs.GatewayID)
	assert.Equal(t, simulatedGatewayEUI, metadata.GatewayIDs.EUI)
	assert.Equal(t, -60, metadata.RSSI)
	assert.Equal(t, 9.5, metadata.SNR)
	assert.NotZero(t, metadata.Timestamp)

	settings := message.UplinkMessage.Settings
	assert.Equal(t, uint32(125000), settings.DataRate.LoRa.Bandwidth)
	assert.Equal(t, uint32(7), settings.DataRate.LoRa.SpreadingFactor)
	assert.Equal(t, "868.1", settings.Frequency)

	_, err := time.Parse(time.RFC3339Nano, message.ReceivedAt)
	assert.NoError(t, err)
}

func TestFormatUplinkPartialOptionsKeepDefaults(t *testing.T) {
	options := UplinkOptions{FCnt: 7, RSSI: -95}

	message := FormatUplink("dev1", "0004A30B001A2B3C", "app1", entities.SensorReading{}, &options)

	assert.Equal(t, uint32(7), message.UplinkMessage.FCnt)
	assert.Equal(t, -95, message.UplinkMessage.RxMetadata[0].RSSI)
	assert.Equal(t, uint32(1), message.UplinkMessage.FPort)
	assert.Equal(t, 9.5, message.UplinkMessage.RxMetadata[0].SNR)
	assert.Equal(t, "868.1", message.UplinkMessage.Settings.Frequency)
}

// The JSON field names are the webhook/simulate wire contract; a renamed
// tag breaks compatibility with the network server.
func TestFormatUplinkWireFieldNames(t *testing.T) {
	reading := entities.SensorReading{Humidity: entities.Float64Ptr(55.5)}
	message := FormatUplink("dev1", "0004A30B001A2B3C", "app1", reading, nil)

	raw, err := json.Marshal(message)
	assert.NoError(t, err)

	var decoded map[string]interface{}
	assert.NoError(t, json.Unmarshal(raw, &decoded))

	endDeviceIDs := decoded["end_device_ids"].(map[string]interface{})
	assert.Equal(t, "dev1", endDeviceIDs["device_id"])
	assert.Equal(t, "app1", endDeviceIDs["application_ids"].(map[string]interface{})["application_id"])

	uplink := decoded["uplink_message"].(map[string]interface{})
	assert.Equal(t, float64(1), uplink["f_cnt"])
	assert.Equal(t, float64(1), uplink["f_port"])
	assert.NotEmpty(t, uplink["frm_payload"])
	assert.Contains(t, uplink, "decoded_payload")
	assert.Contains(t, uplink, "received_at")

	rxMetadata := uplink["rx_metadata"].([]interface{})
	assert.Contains(t, rxMetadata[0].(map[string]interface{}), "gateway_ids")

	settings := uplink["settings"].(map[string]interface{})
	dataRate := settings["data_rate"].(map[string]interface{})
	assert.Contains(t, dataRate, "lora")
}
