package network

import (
	"github.com/stretchr/testify/mock"
)

type AmqpMock struct {
	mock.Mock
}

func (m *AmqpMock) Start() error {
	return nil
}

func (m *AmqpMock) Stop() error { return nil }

func (m *AmqpMock) PublishPersistentMessage(exchange, exchangeType, key string, data interface{}, options *MessageOptions) error {
	args := m.Called(exchange, exchangeType, key, data, options)
	return args.Error(0)
}
