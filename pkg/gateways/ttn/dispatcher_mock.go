package ttn

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
)

type DispatcherMock struct {
	mock.Mock
}

func (d *DispatcherMock) Dispatch(ctx context.Context, device entities.Device, reading entities.SensorReading, fCnt uint32) (DispatchResult, error) {
	args := d.Called(ctx, device, reading, fCnt)
	return args.Get(0).(DispatchResult), args.Error(1)
}
