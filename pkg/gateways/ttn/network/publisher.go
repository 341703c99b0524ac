package network

import (
	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/gateways/ttn"
)

const (
	routingKeyUplinkSent   = "uplink.sent"
	routingKeyUplinkFailed = "uplink.failed"
	defaultExpirationTime  = "2000"
)

// EventPublisher fans recorded dispatch outcomes out to the broker so
// downstream consumers (dashboard feeds) can follow the emulation.
type EventPublisher interface {
	PublishUplinkResult(entry ttn.EmulationLogEntry) error
}

type msgPublisher struct {
	amqp Messaging
}

func NewEventPublisher(amqp Messaging) EventPublisher {
	return &msgPublisher{amqp}
}

func (mp *msgPublisher) PublishUplinkResult(entry ttn.EmulationLogEntry) error {
	options := MessageOptions{
		Expiration: defaultExpirationTime,
	}

	message := UplinkEventMessage{
		DeviceID:   entry.DeviceID,
		DeviceName: entry.DeviceName,
		DeviceType: string(entry.DeviceType),
		Success:    entry.Success,
		Message:    entry.Message,
		Reading:    entry.Reading,
		Timestamp:  entry.Timestamp,
	}

	routingKey := routingKeyUplinkSent
	if !entry.Success {
		routingKey = routingKeyUplinkFailed
	}

	return mp.amqp.PublishPersistentMessage(ExchangeEmulation, ExchangeTypeDirect, routingKey, message, &options)
}
