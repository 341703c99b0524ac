package ttn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bloomFilter "github.com/bits-and-blooms/bloom/v3"
	"github.com/sirupsen/logrus"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
)

const (
	StatusStopped = "stopped"
	StatusRunning = "running"
	StatusError   = "error"
)

const DefaultInterval = 60 * time.Second

// ErrNoActiveDevices is the guard notice for operations that need at
// least one active device. It is an expected, recoverable condition, not
// a fault.
var ErrNoActiveDevices = errors.New("no active devices")

// EmulatorConfig tunes the scheduler. Zero values fall back to defaults.
type EmulatorConfig struct {
	DefaultInterval time.Duration
	MaxLogs         int

	// Optional duplicate-reading suppression. Off by default; when on,
	// a reading whose (timestamp, device) pair was already emitted is
	// dropped before it consumes a frame count.
	DuplicationFilter      bool
	FilterCapacity         uint
	DuplicationProbability float64
	FilterResetUsage       float32
}

type deviceTimer struct {
	cancel   chan struct{}
	interval time.Duration
}

// Emulator owns the per-device continuous-emulation loops: it generates
// readings, dispatches them through the transport and keeps the outcome
// bookkeeping. All shared state is guarded by one mutex; timers are
// cancelled under that same lock so no timer fires mid-removal.
type Emulator struct {
	mutex         sync.Mutex
	status        string
	running       bool
	readingsCount int
	lastError     string
	frameCounters map[string]uint32
	timers        map[string]*deviceTimer
	devices       map[string]entities.Device

	dispatcher      Dispatcher
	log             *EmulationLog
	defaultInterval time.Duration
	logger          *logrus.Entry
	wg              sync.WaitGroup

	dedupEnabled           bool
	filters                map[string]*bloomFilter.BloomFilter
	filterCapacity         uint
	duplicationProbability float64
	filterResetUsage       float32
}

func NewEmulator(dispatcher Dispatcher, conf EmulatorConfig, logger *logrus.Entry) *Emulator {
	interval := conf.DefaultInterval
	if interval <= 0 {
		interval = DefaultInterval
	}
	filterCapacity := conf.FilterCapacity
	if filterCapacity == 0 {
		filterCapacity = 1000000
	}
	duplicationProbability := conf.DuplicationProbability
	if duplicationProbability == 0 {
		duplicationProbability = 0.01
	}
	filterResetUsage := conf.FilterResetUsage
	if filterResetUsage == 0 {
		filterResetUsage = 75
	}

	return &Emulator{
		status:                 StatusStopped,
		frameCounters:          make(map[string]uint32),
		timers:                 make(map[string]*deviceTimer),
		devices:                make(map[string]entities.Device),
		dispatcher:             dispatcher,
		log:                    NewEmulationLog(conf.MaxLogs),
		defaultInterval:        interval,
		logger:                 logger,
		dedupEnabled:           conf.DuplicationFilter,
		filters:                make(map[string]*bloomFilter.BloomFilter),
		filterCapacity:         filterCapacity,
		duplicationProbability: duplicationProbability,
		filterResetUsage:       filterResetUsage,
	}
}

func (e *Emulator) Status() string {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.status
}

func (e *Emulator) ReadingsCount() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.readingsCount
}

func (e *Emulator) LastError() string {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.lastError
}

// Log exposes the outcome log for snapshots and subscriptions.
func (e *Emulator) Log() *EmulationLog {
	return e.log
}

func (e *Emulator) Logs() []EmulationLogEntry {
	return e.log.Entries()
}

func (e *Emulator) ActiveDeviceCount() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return len(e.activeDevicesLocked())
}

func (e *Emulator) activeDevicesLocked() []entities.Device {
	var active []entities.Device
	for _, device := range e.devices {
		if device.Active() {
			active = append(active, device)
		}
	}
	return active
}

// SendSingleReading dispatches one reading for every active device,
// concurrently, and waits for every outcome to be recorded. With no
// active devices it dispatches nothing and returns ErrNoActiveDevices.
func (e *Emulator) SendSingleReading(ctx context.Context) error {
	e.mutex.Lock()
	devices := e.activeDevicesLocked()
	e.mutex.Unlock()

	if len(devices) == 0 {
		return ErrNoActiveDevices
	}

	var wg sync.WaitGroup
	for _, device := range devices {
		wg.Add(1)
		go func(device entities.Device) {
			defer wg.Done()
			e.attempt(ctx, device)
		}(device)
	}
	wg.Wait()

	return nil
}

// StartEmulation sends one immediate reading for every active device and
// then runs an independent recurring timer per device. With no active
// devices nothing changes and ErrNoActiveDevices is returned.
func (e *Emulator) StartEmulation(ctx context.Context) error {
	e.mutex.Lock()
	devices := e.activeDevicesLocked()
	if len(devices) == 0 {
		e.mutex.Unlock()
		return ErrNoActiveDevices
	}
	e.running = true
	e.status = StatusRunning
	for _, device := range devices {
		e.startTimerLocked(ctx, device)
	}
	e.mutex.Unlock()

	for _, device := range devices {
		e.asyncAttempt(ctx, device)
	}

	return nil
}

// StopEmulation cancels every device timer and clears the timer map.
// In-flight dispatches are allowed to complete and are still recorded.
func (e *Emulator) StopEmulation() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	for id, timer := range e.timers {
		close(timer.cancel)
		delete(e.timers, id)
	}
	e.running = false
	e.status = StatusStopped
}

// ResetEmulation clears the counters, the log buffer, the per-device
// frame counters and the last error. Running timers are not affected.
func (e *Emulator) ResetEmulation() {
	e.mutex.Lock()
	e.readingsCount = 0
	e.lastError = ""
	e.frameCounters = make(map[string]uint32)
	e.mutex.Unlock()
	e.log.Clear()
}

// Reconcile applies a changed device set. While running, timers for
// devices that are gone or no longer active are cancelled, and every
// newly active device gets one immediate reading plus its own timer.
// Devices whose active-set membership is unchanged keep their timer
// untouched. While stopped only the device snapshot is updated.
func (e *Emulator) Reconcile(ctx context.Context, devices map[string]entities.Device) {
	e.mutex.Lock()
	e.devices = make(map[string]entities.Device, len(devices))
	for id, device := range devices {
		e.devices[id] = device
	}

	if !e.running {
		e.mutex.Unlock()
		return
	}

	for id, timer := range e.timers {
		device, ok := devices[id]
		if !ok || !device.Active() {
			close(timer.cancel)
			delete(e.timers, id)
			e.logger.WithField("device", id).Info("emulation timer removed")
		}
	}

	var added []entities.Device
	for _, device := range devices {
		if !device.Active() {
			continue
		}
		if _, ok := e.timers[device.ID]; ok {
			continue
		}
		e.startTimerLocked(ctx, device)
		added = append(added, device)
	}
	e.mutex.Unlock()

	for _, device := range added {
		e.asyncAttempt(ctx, device)
	}
}

// Close tears the scheduler down: no timer fires afterwards and every
// in-flight attempt has been recorded by the time it returns.
func (e *Emulator) Close() {
	e.StopEmulation()
	e.wg.Wait()
}

func (e *Emulator) intervalFor(device entities.Device) time.Duration {
	if seconds := device.SimulationParams.IntervalSeconds; seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return e.defaultInterval
}

// startTimerLocked replaces any prior handle for the device before
// creating a new one, so a device never has two concurrent timers.
func (e *Emulator) startTimerLocked(ctx context.Context, device entities.Device) {
	if timer, ok := e.timers[device.ID]; ok {
		close(timer.cancel)
	}
	timer := &deviceTimer{
		cancel:   make(chan struct{}),
		interval: e.intervalFor(device),
	}
	e.timers[device.ID] = timer

	e.wg.Add(1)
	go e.runDeviceLoop(ctx, device, timer.interval, timer.cancel)
}

func (e *Emulator) runDeviceLoop(ctx context.Context, device entities.Device, interval time.Duration, cancel <-chan struct{}) {
	defer e.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.attempt(ctx, device)
		}
	}
}

func (e *Emulator) asyncAttempt(ctx context.Context, device entities.Device) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.attempt(ctx, device)
	}()
}

// attempt generates one reading, dispatches it and records the outcome.
// The frame counter increments on every attempt, success or failure.
func (e *Emulator) attempt(ctx context.Context, device entities.Device) {
	bounds := BoundsForDevice(device)
	reading := GenerateRandomReading(device.Type, &bounds)

	if e.isDuplicated(device.ID, reading) {
		e.logger.WithField("device", device.ID).Debug("duplicate reading suppressed")
		return
	}

	fCnt := e.nextFrameCount(device.ID)
	result, err := e.dispatcher.Dispatch(ctx, device, reading, fCnt)
	e.record(device, reading, result, err)
}

func (e *Emulator) nextFrameCount(deviceID string) uint32 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.frameCounters[deviceID]++
	return e.frameCounters[deviceID]
}

func (e *Emulator) record(device entities.Device, reading entities.SensorReading, result DispatchResult, err error) {
	success := err == nil && result.Success
	message := result.Message
	if err != nil {
		message = err.Error()
	}
	if message == "" {
		if success {
			message = "uplink dispatched"
		} else {
			message = "uplink dispatch failed"
		}
	}

	e.mutex.Lock()
	e.readingsCount++
	if !success {
		e.lastError = message
		// Advisory: timers keep running, the status flag just surfaces
		// the most recent failure.
		e.status = StatusError
	}
	e.mutex.Unlock()

	if success {
		e.logger.WithFields(logrus.Fields{"device": device.ID}).Info(message)
	} else {
		e.logger.WithFields(logrus.Fields{"device": device.ID}).Errorln(message)
	}

	e.log.Append(newLogEntry(device, reading, success, message))
}

func (e *Emulator) isDuplicated(deviceID string, reading entities.SensorReading) bool {
	if !e.dedupEnabled || reading.Timestamp == nil {
		return false
	}
	key := []byte(fmt.Sprintf("%d_%s", *reading.Timestamp, deviceID))

	e.mutex.Lock()
	defer e.mutex.Unlock()
	filter, ok := e.filters[deviceID]
	if !ok {
		filter = bloomFilter.NewWithEstimates(e.filterCapacity, e.duplicationProbability)
		e.filters[deviceID] = filter
	}
	if filter.Test(key) {
		return true
	}
	e.resetFilterLocked(deviceID)
	e.filters[deviceID].Add(key)
	return false
}

func (e *Emulator) resetFilterLocked(deviceID string) {
	filter := e.filters[deviceID]
	usage := (float32(filter.ApproximatedSize()) / float32(filter.Cap())) * 100
	if usage >= e.filterResetUsage {
		filter.ClearAll()
	}
}
