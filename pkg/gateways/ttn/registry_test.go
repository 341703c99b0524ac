package ttn

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
)

const devicesFixture = `
fridge-01:
  id: fridge-01
  name: Fridge sensor
  devEui: 0004A30B001A2B3C
  type: temperature
  status: active
  simulationParams:
    interval: 30
    minTemp: 2
    maxTemp: 8
door-01:
  name: Back door
  devEui: 0004A30B001A2B4D
  type: door
  status: inactive
`

func discardLogger() *logrus.Entry {
	logger := logrus.New()
	logger.Out = io.Discard
	return logrus.NewEntry(logger)
}

func writeDevicesFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNewRegistryLoadsDevicesFile(t *testing.T) {
	registry, err := NewRegistry(writeDevicesFixture(t, devicesFixture), discardLogger())
	require.NoError(t, err)

	devices := registry.Devices()
	assert.Len(t, devices, 2)

	fridge, ok := registry.Get("fridge-01")
	require.True(t, ok)
	assert.Equal(t, entities.DeviceTypeTemperature, fridge.Type)
	assert.Equal(t, 30, fridge.SimulationParams.IntervalSeconds)
	require.NotNil(t, fridge.SimulationParams.MinTemp)
	assert.Equal(t, 2.0, *fridge.SimulationParams.MinTemp)

	// A device without an explicit id inherits its map key.
	door, ok := registry.Get("door-01")
	require.True(t, ok)
	assert.Equal(t, "door-01", door.ID)
	assert.False(t, door.Active())
}

func TestNewRegistryWithMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	registry, err := NewRegistry(path, discardLogger())
	require.NoError(t, err)
	assert.Empty(t, registry.Devices())
}

func TestNewRegistryWithMalformedFileFails(t *testing.T) {
	registry, err := NewRegistry(writeDevicesFixture(t, "{not yaml"), discardLogger())

	assert.Error(t, err)
	assert.Nil(t, registry)
}

func TestRegistryUpsertPersistsDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	registry, err := NewRegistry(path, discardLogger())
	require.NoError(t, err)

	device := entities.Device{
		ID:     "fridge-01",
		Name:   "Fridge sensor",
		DevEUI: "0004A30B001A2B3C",
		Type:   entities.DeviceTypeTemperature,
	}
	require.NoError(t, registry.Upsert(device))

	stored, ok := registry.Get("fridge-01")
	require.True(t, ok)
	assert.Equal(t, entities.DeviceInactive, stored.Status)

	reloaded, err := NewRegistry(path, discardLogger())
	require.NoError(t, err)
	_, ok = reloaded.Get("fridge-01")
	assert.True(t, ok)
}

func TestRegistryUpsertRejectsInvalidDevice(t *testing.T) {
	registry, err := NewRegistry(filepath.Join(t.TempDir(), "devices.yaml"), discardLogger())
	require.NoError(t, err)

	assert.Error(t, registry.Upsert(entities.Device{DevEUI: "0004A30B001A2B3C"}))
	assert.Error(t, registry.Upsert(entities.Device{ID: "a", DevEUI: "not-an-eui"}))
	assert.Error(t, registry.Upsert(entities.Device{ID: "a", DevEUI: "0004A30B001A2B3C", Status: "sleeping"}))
	assert.Empty(t, registry.Devices())
}

func TestRegistrySetStatus(t *testing.T) {
	registry, err := NewRegistry(writeDevicesFixture(t, devicesFixture), discardLogger())
	require.NoError(t, err)

	require.NoError(t, registry.SetStatus("door-01", entities.DeviceActive))
	door, _ := registry.Get("door-01")
	assert.True(t, door.Active())

	assert.Error(t, registry.SetStatus("door-01", "sleeping"))
	assert.Error(t, registry.SetStatus("ghost", entities.DeviceActive))
}

func TestRegistryDelete(t *testing.T) {
	registry, err := NewRegistry(writeDevicesFixture(t, devicesFixture), discardLogger())
	require.NoError(t, err)

	require.NoError(t, registry.Delete("door-01"))
	_, ok := registry.Get("door-01")
	assert.False(t, ok)

	assert.Error(t, registry.Delete("door-01"))
}

func TestRegistryUpsertWhenWriteFailsReturnsError(t *testing.T) {
	registry, err := NewRegistry(filepath.Join(t.TempDir(), "devices.yaml"), discardLogger())
	require.NoError(t, err)

	fileMock := new(fileManagementMock)
	fileMock.On("writeDevicesFile").Return(errors.New("disk full"))
	registry.fileManagement = fileMock

	device := entities.Device{ID: "a", DevEUI: "0004A30B001A2B3C"}
	assert.ErrorContains(t, registry.Upsert(device), "disk full")
}
