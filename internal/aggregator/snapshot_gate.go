// Package aggregator tracks per-device snapshot state for the broker loop.
package aggregator

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/protikmukherjee/fire-prediction-api/internal/models"
)

// Reasons a snapshot is not scored
const (
	SkipRateLimited = "rate_limited"
	SkipUnchanged   = "unchanged"
)

// GateConfig controls when a device snapshot is scored again
type GateConfig struct {
	// MinInterval is the shortest gap between two scored snapshots of one device. 0 disables it.
	MinInterval time.Duration

	// RepeatInterval is how long an identical payload stays suppressed. 0 never suppresses.
	RepeatInterval time.Duration
}

// DefaultGateConfig returns default gate configuration
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinInterval:    5 * time.Second,
		RepeatInterval: 1 * time.Minute,
	}
}

// DeviceState holds what the gate remembers about one device
type DeviceState struct {
	DeviceID   string
	LastHash   string
	LastScored time.Time
	Skipped    int
}

// SnapshotGate decides which broker snapshots are worth scoring
type SnapshotGate struct {
	config  GateConfig
	devices map[string]*DeviceState
	mu      sync.Mutex
}

// NewSnapshotGate creates a new snapshot gate
func NewSnapshotGate(config GateConfig) *SnapshotGate {
	return &SnapshotGate{
		config:  config,
		devices: make(map[string]*DeviceState),
	}
}

// Allow reports whether msg should be scored, and why not when it shouldn't.
// An allowed snapshot becomes the device's reference for later ones.
func (g *SnapshotGate) Allow(msg *models.SnapshotMessage) (bool, string) {
	at := msg.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}
	hash := PayloadHash(msg.Payload)

	g.mu.Lock()
	defer g.mu.Unlock()

	device, exists := g.devices[msg.DeviceID]
	if !exists {
		g.devices[msg.DeviceID] = &DeviceState{DeviceID: msg.DeviceID, LastHash: hash, LastScored: at}
		return true, ""
	}

	since := at.Sub(device.LastScored)
	if g.config.MinInterval > 0 && since < g.config.MinInterval {
		device.Skipped++
		return false, SkipRateLimited
	}
	if g.config.RepeatInterval > 0 && hash == device.LastHash && since < g.config.RepeatInterval {
		device.Skipped++
		return false, SkipUnchanged
	}

	device.LastHash = hash
	device.LastScored = at
	return true, ""
}

// Forget drops a device's state so its next snapshot is always scored
func (g *SnapshotGate) Forget(deviceID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.devices, deviceID)
}

// GetDeviceState returns a copy of a device's state
func (g *SnapshotGate) GetDeviceState(deviceID string) (DeviceState, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	device, ok := g.devices[deviceID]
	if !ok {
		return DeviceState{}, false
	}
	return *device, true
}

// GetAllDevices returns all known device IDs, sorted
func (g *SnapshotGate) GetAllDevices() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	devices := make([]string, 0, len(g.devices))
	for deviceID := range g.devices {
		devices = append(devices, deviceID)
	}
	sort.Strings(devices)
	return devices
}

// PayloadHash computes the SHA256 hash of a snapshot payload
func PayloadHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
