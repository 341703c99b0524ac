package ttn

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/utils"
)

// Registry holds the emulated device set, backed by a YAML file so the
// set survives restarts. Mutations persist the whole file; the caller
// feeds the resulting snapshot to Emulator.Reconcile.
type Registry struct {
	mutex          sync.RWMutex
	devices        map[string]entities.Device
	filepath       string
	fileManagement filesystemManagement
	logger         *logrus.Entry
}

func NewRegistry(filepathName string, logger *logrus.Entry) (*Registry, error) {
	registry := &Registry{
		devices:        make(map[string]entities.Device),
		filepath:       filepathName,
		fileManagement: new(fileManagement),
		logger:         logger,
	}

	devices, err := utils.ConfigurationParser(filepathName, map[string]entities.Device{})
	if err != nil {
		if !os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrap(err, "load devices file")
		}
		logger.WithField("filepath", filepathName).Info("no devices file, starting with an empty registry")
		return registry, nil
	}

	for id, device := range devices {
		if device.ID == "" {
			device.ID = id
		}
		registry.devices[device.ID] = device
	}
	return registry, nil
}

// Devices returns a snapshot suitable for Emulator.Reconcile.
func (r *Registry) Devices() map[string]entities.Device {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	snapshot := make(map[string]entities.Device, len(r.devices))
	for id, device := range r.devices {
		snapshot[id] = device
	}
	return snapshot
}

func (r *Registry) Get(id string) (entities.Device, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	device, ok := r.devices[id]
	return device, ok
}

// Upsert adds or replaces a device. The EUI must be a valid DevEUI and
// the status one of the known device statuses.
func (r *Registry) Upsert(device entities.Device) error {
	if device.ID == "" {
		return errors.New("device id is required")
	}
	if !ValidateDevEUI(device.DevEUI) {
		return errors.Errorf("invalid dev eui %q", device.DevEUI)
	}
	if device.Status == "" {
		device.Status = entities.DeviceInactive
	}
	if device.Status != entities.DeviceActive && device.Status != entities.DeviceInactive {
		return errors.Errorf("unknown device status %q", device.Status)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.devices[device.ID] = device
	return r.saveLocked()
}

func (r *Registry) SetStatus(id, status string) error {
	if status != entities.DeviceActive && status != entities.DeviceInactive {
		return errors.Errorf("unknown device status %q", status)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	device, ok := r.devices[id]
	if !ok {
		return errors.Errorf("device %q does not exist", id)
	}
	device.Status = status
	r.devices[id] = device
	return r.saveLocked()
}

func (r *Registry) Delete(id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.devices[id]; !ok {
		return errors.Errorf("device %q does not exist", id)
	}
	delete(r.devices, id)
	return r.saveLocked()
}

func (r *Registry) saveLocked() error {
	data, err := yaml.Marshal(r.devices)
	if err != nil {
		return errors.Wrap(err, "marshal devices")
	}
	if err := r.fileManagement.writeDevicesFile(r.filepath, data); err != nil {
		return errors.Wrap(err, "write devices file")
	}
	r.logger.WithField("filepath", r.filepath).Debug("wrote devices file")
	return nil
}
