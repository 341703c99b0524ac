package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/gateways/ttn"
)

func createLogEntry(success bool) ttn.EmulationLogEntry {
	return ttn.EmulationLogEntry{
		ID:         "entry-1",
		Timestamp:  time.Now(),
		DeviceID:   "fridge-01",
		DeviceName: "Fridge sensor",
		DeviceType: entities.DeviceTypeTemperature,
		Reading:    entities.SensorReading{Temperature: entities.Float64Ptr(4.5)},
		Success:    success,
		Message:    "uplink simulated",
	}
}

func TestPublishUplinkResultUsesSentRoutingKey(t *testing.T) {
	amqpMock := new(AmqpMock)
	amqpMock.On("PublishPersistentMessage",
		ExchangeEmulation, ExchangeTypeDirect, routingKeyUplinkSent, mock.Anything, mock.Anything).
		Return(nil)

	publisher := NewEventPublisher(amqpMock)
	entry := createLogEntry(true)

	require.NoError(t, publisher.PublishUplinkResult(entry))
	amqpMock.AssertExpectations(t)

	message := amqpMock.Calls[0].Arguments.Get(3).(UplinkEventMessage)
	assert.Equal(t, "fridge-01", message.DeviceID)
	assert.Equal(t, "Fridge sensor", message.DeviceName)
	assert.Equal(t, "temperature", message.DeviceType)
	assert.True(t, message.Success)
	assert.Equal(t, entry.Reading, message.Reading)

	options := amqpMock.Calls[0].Arguments.Get(4).(*MessageOptions)
	assert.Equal(t, defaultExpirationTime, options.Expiration)
}

func TestPublishUplinkResultUsesFailedRoutingKey(t *testing.T) {
	amqpMock := new(AmqpMock)
	amqpMock.On("PublishPersistentMessage",
		ExchangeEmulation, ExchangeTypeDirect, routingKeyUplinkFailed, mock.Anything, mock.Anything).
		Return(nil)

	publisher := NewEventPublisher(amqpMock)

	require.NoError(t, publisher.PublishUplinkResult(createLogEntry(false)))
	amqpMock.AssertExpectations(t)
}
