package device

import (
	"sync/atomic"
	"testing"
)

func TestExec1DCoversEveryIndexOnce(t *testing.T) {
	dev := New("test", 4)

	const n = 10000
	var hits [n]atomic.Int32
	kernel := dev.Kernel("count", func(x, y int) {
		hits[x].Add(1)
	})

	if _, err := kernel.Exec1D(0, n); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < n; i++ {
		if hits[i].Load() != 1 {
			t.Fatalf("index %d visited %d times", i, hits[i].Load())
		}
	}
}

func TestExec1DOffset(t *testing.T) {
	dev := New("test", 2)

	var min, max atomic.Int32
	min.Store(1 << 30)
	kernel := dev.Kernel("range", func(x, y int) {
		for {
			cur := min.Load()
			if int32(x) >= cur || min.CompareAndSwap(cur, int32(x)) {
				break
			}
		}
		for {
			cur := max.Load()
			if int32(x) <= cur || max.CompareAndSwap(cur, int32(x)) {
				break
			}
		}
	})

	if _, err := kernel.Exec1D(100, 50); err != nil {
		t.Fatal(err)
	}
	if min.Load() != 100 || max.Load() != 149 {
		t.Fatalf("expected index range [100,149]; got [%d,%d]", min.Load(), max.Load())
	}
}

func TestExec2DCoverage(t *testing.T) {
	dev := New("test", 3)

	const w, h = 33, 17
	var hits [w * h]atomic.Int32
	kernel := dev.Kernel("count2d", func(x, y int) {
		hits[y*w+x].Add(1)
	})

	if _, err := kernel.Exec2D(w, h); err != nil {
		t.Fatal(err)
	}

	for i := range hits {
		if hits[i].Load() != 1 {
			t.Fatalf("cell %d visited %d times", i, hits[i].Load())
		}
	}
}

func TestKernelPanicSurfacesAsError(t *testing.T) {
	dev := New("test", 2)

	kernel := dev.Kernel("boom", func(x, y int) {
		if x == 7 {
			panic("queue overflow")
		}
	})

	if _, err := kernel.Exec1D(0, 16); err == nil {
		t.Fatal("expected a kernel panic to surface as an error")
	}
}

func TestEmptyLaunch(t *testing.T) {
	dev := New("test", 2)
	kernel := dev.Kernel("noop", func(x, y int) {
		t.Error("body must not run for an empty launch")
	})

	if _, err := kernel.Exec1D(0, 0); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultDeviceWorkers(t *testing.T) {
	dev := Default()
	if dev.Workers() <= 0 {
		t.Fatalf("expected a positive worker count; got %d", dev.Workers())
	}
}
