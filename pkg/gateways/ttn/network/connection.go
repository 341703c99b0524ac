package network

import (
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type connection interface {
	connect() error
	createChannel() error
	exchangeDeclare(name, exchangeType string) error
	publish(exchange string, key string, mandatory bool, immediate bool, data interface{}, options *MessageOptions) error
	isClosed() bool
	close() error
	closeChannel() error
	notifyClose(channel chan *amqp.Error) chan *amqp.Error
}

type AmqpConnection struct {
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAmqpConnection(url string) *AmqpConnection {
	return &AmqpConnection{url: url}
}

func (a *AmqpConnection) connect() error {
	conn, err := amqp.Dial(a.url)
	if err == nil {
		a.conn = conn
	}
	return err
}

func (a *AmqpConnection) createChannel() error {
	channel, err := a.conn.Channel()
	if err == nil {
		a.channel = channel
	}
	return err
}

func (a *AmqpConnection) exchangeDeclare(name, exchangeType string) error {
	return a.channel.ExchangeDeclare(
		name,
		exchangeType,
		durable,
		deleteWhenUnused,
		internal,
		noWait,
		nil, // arguments
	)
}

func (a *AmqpConnection) publish(exchange string, key string, mandatory bool, immediate bool, data interface{}, options *MessageOptions) error {
	var corrID, expTime string

	if options != nil {
		corrID = options.CorrelationID
		expTime = options.Expiration
	}

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("error encoding JSON message: %w", err)
	}

	return a.channel.Publish(
		exchange,
		key,
		mandatory,
		immediate,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: corrID,
			Body:          body,
			Expiration:    expTime,
		},
	)
}

func (a *AmqpConnection) isClosed() bool {
	return a.conn == nil || a.conn.IsClosed()
}

func (a *AmqpConnection) close() error {
	return a.conn.Close()
}

func (a *AmqpConnection) closeChannel() error {
	return a.channel.Close()
}

func (a *AmqpConnection) notifyClose(channel chan *amqp.Error) chan *amqp.Error {
	return a.conn.NotifyClose(channel)
}
