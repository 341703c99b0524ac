package network

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	ExchangeTypeDirect = "direct"
	ExchangeEmulation  = "emulation"

	durable          = true
	deleteWhenUnused = false
	internal         = false
	noWait           = false
)

// Messaging is the broker surface the event publisher needs.
type Messaging interface {
	Start() error
	Stop() error
	PublishPersistentMessage(exchange, exchangeType, key string, data interface{}, options *MessageOptions) error
}

// MessageOptions represents the message publishing options
type MessageOptions struct {
	CorrelationID string
	Expiration    string
}

type AMQPHandler struct {
	connection        connection
	declaredExchanges map[string]struct{}
	exchangeLock      sync.Mutex
	logger            *logrus.Entry
}

func NewAMQPHandler(connection connection, logger *logrus.Entry) *AMQPHandler {
	return &AMQPHandler{
		connection:        connection,
		declaredExchanges: make(map[string]struct{}),
		logger:            logger,
	}
}

func (a *AMQPHandler) Start() error {
	if err := backoff.Retry(a.connect, backoff.NewExponentialBackOff()); err != nil {
		return errors.Wrap(err, "connect to broker")
	}
	go a.reconnectWhenClosed()
	return nil
}

func (a *AMQPHandler) Stop() error {
	if a.connection.isClosed() {
		return nil
	}
	if err := a.connection.closeChannel(); err != nil {
		return err
	}
	return a.connection.close()
}

func (a *AMQPHandler) PublishPersistentMessage(exchange, exchangeType, key string, data interface{}, options *MessageOptions) error {
	// Avoids redeclaring an exchange of the same type on every publish.
	if !a.exchangeAlreadyDeclared(exchange) {
		if err := a.connection.exchangeDeclare(exchange, exchangeType); err != nil {
			return errors.Wrap(err, "declare exchange")
		}
		a.exchangeLock.Lock()
		a.declaredExchanges[exchange] = struct{}{}
		a.exchangeLock.Unlock()
	}

	if err := a.connection.publish(exchange, key, false, false, data, options); err != nil {
		return errors.Wrap(err, "publish message")
	}
	return nil
}

func (a *AMQPHandler) connect() error {
	if err := a.connection.connect(); err != nil {
		return err
	}
	return a.connection.createChannel()
}

func (a *AMQPHandler) exchangeAlreadyDeclared(exchangeName string) bool {
	a.exchangeLock.Lock()
	_, ok := a.declaredExchanges[exchangeName]
	a.exchangeLock.Unlock()
	return ok
}

func (a *AMQPHandler) reconnectWhenClosed() {
	errReason := <-a.connection.notifyClose(make(chan *amqp.Error))
	if errReason == nil {
		return
	}
	a.logger.Errorln(errReason)

	reconnectionBackOff := backoff.NewExponentialBackOff()
	reconnectionBackOff.InitialInterval = 30 * time.Second
	reconnectionBackOff.MaxInterval = 5 * time.Minute
	reconnectionBackOff.Multiplier = 1.7
	// Zero means the reconnection attempts never give up.
	reconnectionBackOff.MaxElapsedTime = 0

	if err := backoff.Retry(a.connect, reconnectionBackOff); err != nil {
		a.logger.Errorln(err)
		return
	}

	a.exchangeLock.Lock()
	a.declaredExchanges = make(map[string]struct{})
	a.exchangeLock.Unlock()

	a.logger.Println("broker reconnection was successful")
	go a.reconnectWhenClosed()
}
