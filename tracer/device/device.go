// Package device provides the data-parallel execution substrate for the
// wavefront kernels. A Device owns a fixed pool of workers; a Kernel is a
// named body dispatched over a 1D or 2D index range with one logical thread
// per record. The package mirrors the contract of a GPU command queue:
// kernels are launched, run to completion and report their elapsed time.
package device

import (
	"fmt"
	"runtime"
)

// Wrapper around a pool of compute workers.
type Device struct {
	Name string

	workers int
}

// A list of devices.
type DeviceList []*Device

// Create a device with the given number of workers. A non-positive worker
// count selects one worker per logical CPU.
func New(name string, workers int) *Device {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Device{
		Name:    name,
		workers: workers,
	}
}

// Create a device backed by every logical CPU.
func Default() *Device {
	return New("cpu", 0)
}

// The number of workers available to kernel launches. Persistent kernels
// launch exactly this many bodies and pull work via an atomic counter.
func (d *Device) Workers() int {
	return d.workers
}

// Implements Stringer.
func (d *Device) String() string {
	return fmt.Sprintf("Name: %s\nSpecs: %d workers, %d logical CPUs", d.Name, d.workers, runtime.NumCPU())
}

// Create a named kernel bound to this device.
func (d *Device) Kernel(name string, body Body) *Kernel {
	return &Kernel{
		device: d,
		name:   name,
		body:   body,
	}
}
