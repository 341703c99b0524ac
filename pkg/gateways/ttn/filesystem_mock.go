package ttn

import "github.com/stretchr/testify/mock"

type fileManagementMock struct {
	mock.Mock
}

func (fm *fileManagementMock) writeDevicesFile(filepath string, data []byte) error {
	args := fm.Called()
	return args.Error(0)
}
