package ttn

import "os"

type filesystemManagement interface {
	writeDevicesFile(filepath string, data []byte) error
}

type fileManagement struct{}

func (fs *fileManagement) writeDevicesFile(filepath string, data []byte) error {
	return os.WriteFile(filepath, data, 0600)
}
