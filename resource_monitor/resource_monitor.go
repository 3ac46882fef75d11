package resource_monitor

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Snapshot is one point-in-time reading of the resources the usage guard
// checks before admitting external work.
type Snapshot struct {
	DiskFreeMB        float64
	MemoryUsedPct     float64
	MemoryAvailableMB float64
}

// Interface reports current host resource headroom.
type Interface interface {
	Snapshot() (Snapshot, error)
}

type monitorImpl struct {
	path string
}

type Config struct {
	// Path is the mount whose free space matters: where history and audio
	// spills are written.
	Path string
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	path := cfg.Path
	if path == "" {
		path = "/"
	}

	return &monitorImpl{path: path}, nil
}

func (m *monitorImpl) Snapshot() (Snapshot, error) {
	usage, err := disk.Usage(m.path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("disk usage: %w", err)
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return Snapshot{}, fmt.Errorf("virtual memory: %w", err)
	}

	return Snapshot{
		DiskFreeMB:        float64(usage.Free) / (1024 * 1024),
		MemoryUsedPct:     vm.UsedPercent,
		MemoryAvailableMB: float64(vm.Available) / (1024 * 1024),
	}, nil
}

// Static returns a monitor that always reports the given snapshot. Tests and
// dry runs use it in place of live host probes.
func Static(s Snapshot) Interface {
	return staticImpl{snapshot: s}
}

type staticImpl struct {
	snapshot Snapshot
}

func (s staticImpl) Snapshot() (Snapshot, error) {
	return s.snapshot, nil
}
