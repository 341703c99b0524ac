package ttn

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
)

const DefaultMaxLogs = 100

// EmulationLogEntry records the outcome of one dispatch attempt.
type EmulationLogEntry struct {
	ID         string                 `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	DeviceID   string                 `json:"device_id"`
	DeviceName string                 `json:"device_name"`
	DeviceType entities.DeviceType    `json:"device_type"`
	Reading    entities.SensorReading `json:"reading"`
	Success    bool                   `json:"success"`
	Message    string                 `json:"message"`
}

// EmulationLog is a bounded, newest-first ring buffer of dispatch
// outcomes with subscribe/notify semantics.
type EmulationLog struct {
	mutex      sync.RWMutex
	maxEntries int
	entries    []EmulationLogEntry
	listeners  []func(EmulationLogEntry)
}

func NewEmulationLog(maxEntries int) *EmulationLog {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxLogs
	}
	return &EmulationLog{maxEntries: maxEntries}
}

func newLogEntry(device entities.Device, reading entities.SensorReading, success bool, message string) EmulationLogEntry {
	return EmulationLogEntry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		DeviceID:   device.ID,
		DeviceName: device.Name,
		DeviceType: device.Type,
		Reading:    reading,
		Success:    success,
		Message:    message,
	}
}

// Append prepends the entry and trims the tail to the configured bound,
// then notifies subscribers outside the lock.
func (l *EmulationLog) Append(entry EmulationLogEntry) {
	l.mutex.Lock()
	l.entries = append([]EmulationLogEntry{entry}, l.entries...)
	if len(l.entries) > l.maxEntries {
		l.entries = l.entries[:l.maxEntries]
	}
	listeners := make([]func(EmulationLogEntry), len(l.listeners))
	copy(listeners, l.listeners)
	l.mutex.Unlock()

	for _, notify := range listeners {
		notify(entry)
	}
}

// Entries returns a newest-first snapshot.
func (l *EmulationLog) Entries() []EmulationLogEntry {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	snapshot := make([]EmulationLogEntry, len(l.entries))
	copy(snapshot, l.entries)
	return snapshot
}

func (l *EmulationLog) Len() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return len(l.entries)
}

func (l *EmulationLog) Clear() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.entries = nil
}

// Subscribe registers a listener invoked for every appended entry.
// Listeners run on the appending goroutine and must not block.
func (l *EmulationLog) Subscribe(listener func(EmulationLogEntry)) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.listeners = append(l.listeners, listener)
}
