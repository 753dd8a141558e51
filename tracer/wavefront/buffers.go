package wavefront

import (
	"fmt"
	"sync/atomic"

	"github.com/achilleasa/helios/types"
)

// Hard cap on the number of path bounces; per-bounce counters are sized to
// this.
const MaxBounces = 16

// Default queue capacity (pixels per batch).
const DefaultBatchSize = 1 << 16

// Sentinel triangle id for rays that miss the scene.
const InvalidID int32 = -1

// The pixel index occupies the low 31 bits; bit 31 marks the ray as
// MIS-eligible (the previous bounce sampled a direction whose light
// contribution could be double counted by next event estimation).
const misEligibleFlag int32 = -1 << 31

func packPixelIndex(pixelIndex int32, misEligible bool) int32 {
	if misEligible {
		return pixelIndex | misEligibleFlag
	}
	return pixelIndex
}

func unpackPixelIndex(packed int32) (pixelIndex int32, misEligible bool) {
	return packed & 0x7fffffff, packed&misEligibleFlag != 0
}

// Per-bounce queue occupancy counters. Producer kernels allocate output slots
// with an atomic increment on the destination counter; this is the only
// shared mutable state written concurrently by the shade kernels. The
// retired-ray counters distribute work among the persistent trace and shadow
// kernels.
type bufferSizes struct {
	// One extra slot: the shade kernels at the deepest bounce still
	// allocate next-bounce rays even though they are never traced.
	trace      [MaxBounces + 1]atomic.Int32
	diffuse    [MaxBounces]atomic.Int32
	dielectric [MaxBounces]atomic.Int32
	glossy     [MaxBounces]atomic.Int32
	shadow     [MaxBounces]atomic.Int32

	raysRetired       [MaxBounces]atomic.Int32
	raysRetiredShadow [MaxBounces]atomic.Int32
}

// Zero every counter and seed the bounce 0 extension queue with the batch
// size.
func (bs *bufferSizes) resetFrame(batchCount int32) {
	for b := 0; b < MaxBounces; b++ {
		bs.trace[b].Store(0)
		bs.diffuse[b].Store(0)
		bs.dielectric[b].Store(0)
		bs.glossy[b].Store(0)
		bs.shadow[b].Store(0)
		bs.raysRetired[b].Store(0)
		bs.raysRetiredShadow[b].Store(0)
	}
	bs.trace[MaxBounces].Store(0)
	bs.trace[0].Store(batchCount)
}

// Extension rays pending (or holding the result of) intersection. One
// instance per ping-pong parity; stage b writes the b+1 queue while stage
// b+1 reads it.
type traceBuffer struct {
	origin    []types.Vec3
	direction []types.Vec3

	// Hit record, written by the trace kernel.
	hitT       []float32
	hitU       []float32
	hitV       []float32
	meshID     []int32
	triangleID []int32

	pixelAndFlags []int32
	throughput    []types.Vec3
	lastPDF       []float32

	coneAngle []float32
	coneWidth []float32
}

func newTraceBuffer(capacity int32) traceBuffer {
	return traceBuffer{
		origin:        make([]types.Vec3, capacity),
		direction:     make([]types.Vec3, capacity),
		hitT:          make([]float32, capacity),
		hitU:          make([]float32, capacity),
		hitV:          make([]float32, capacity),
		meshID:        make([]int32, capacity),
		triangleID:    make([]int32, capacity),
		pixelAndFlags: make([]int32, capacity),
		throughput:    make([]types.Vec3, capacity),
		lastPDF:       make([]float32, capacity),
		coneAngle:     make([]float32, capacity),
		coneWidth:     make([]float32, capacity),
	}
}

// Classified hits pending shading by one of the material kernels.
type materialBuffer struct {
	direction []types.Vec3

	triangleID []int32
	hitU       []float32
	hitV       []float32
	hitT       []float32

	pixelAndFlags []int32
	throughput    []types.Vec3

	coneAngle []float32
	coneWidth []float32
}

func newMaterialBuffer(capacity int32) materialBuffer {
	return materialBuffer{
		direction:     make([]types.Vec3, capacity),
		triangleID:    make([]int32, capacity),
		hitU:          make([]float32, capacity),
		hitV:          make([]float32, capacity),
		hitT:          make([]float32, capacity),
		pixelAndFlags: make([]int32, capacity),
		throughput:    make([]types.Vec3, capacity),
		coneAngle:     make([]float32, capacity),
		coneWidth:     make([]float32, capacity),
	}
}

// Shadow rays carrying their precomputed, unclamped radiance. The radiance is
// deposited only when the any-hit test finds no occluder within maxDistance.
type shadowBuffer struct {
	origin    []types.Vec3
	direction []types.Vec3

	maxDistance []float32

	pixelIndex   []int32
	illumination []types.Vec3
}

func newShadowBuffer(capacity int32) shadowBuffer {
	return shadowBuffer{
		origin:       make([]types.Vec3, capacity),
		direction:    make([]types.Vec3, capacity),
		maxDistance:  make([]float32, capacity),
		pixelIndex:   make([]int32, capacity),
		illumination: make([]types.Vec3, capacity),
	}
}

// The full SoA queue set for one batch. The dielectric and glossy queues
// share the specular buffer and grow toward each other: dielectric from slot
// 0 upward, glossy from the last slot downward. Their combined occupancy must
// never exceed the capacity.
type rayBuffers struct {
	batchSize int32

	trace    [2]traceBuffer
	diffuse  materialBuffer
	specular materialBuffer
	shadow   shadowBuffer

	sizes bufferSizes
}

func newRayBuffers(batchSize int32) *rayBuffers {
	return &rayBuffers{
		batchSize: batchSize,
		trace:     [2]traceBuffer{newTraceBuffer(batchSize), newTraceBuffer(batchSize)},
		diffuse:   newMaterialBuffer(batchSize),
		specular:  newMaterialBuffer(batchSize),
		shadow:    newShadowBuffer(batchSize),
	}
}

// The extension queue read at the given bounce.
func (rb *rayBuffers) traceIn(bounce int) *traceBuffer {
	return &rb.trace[bounce&1]
}

// The extension queue written for the next bounce.
func (rb *rayBuffers) traceOut(bounce int) *traceBuffer {
	return &rb.trace[(bounce+1)&1]
}

// Allocate a unique slot in the next-bounce extension queue.
func (rb *rayBuffers) allocTrace(bounce int) int32 {
	slot := rb.sizes.trace[bounce+1].Add(1) - 1
	if slot >= rb.batchSize {
		panic(fmt.Sprintf("wavefront: trace queue overflow at bounce %d", bounce+1))
	}
	return slot
}

// Allocate a unique slot in the diffuse queue.
func (rb *rayBuffers) allocDiffuse(bounce int) int32 {
	slot := rb.sizes.diffuse[bounce].Add(1) - 1
	if slot >= rb.batchSize {
		panic(fmt.Sprintf("wavefront: diffuse queue overflow at bounce %d", bounce))
	}
	return slot
}

// Allocate a unique slot at the dielectric end of the shared specular
// buffer.
func (rb *rayBuffers) allocDielectric(bounce int) int32 {
	slot := rb.sizes.dielectric[bounce].Add(1) - 1
	if slot+rb.sizes.glossy[bounce].Load() >= rb.batchSize {
		panic(fmt.Sprintf("wavefront: dielectric/glossy queue collision at bounce %d", bounce))
	}
	return slot
}

// Allocate a unique slot at the glossy end of the shared specular buffer.
func (rb *rayBuffers) allocGlossy(bounce int) int32 {
	n := rb.sizes.glossy[bounce].Add(1)
	if n+rb.sizes.dielectric[bounce].Load() > rb.batchSize {
		panic(fmt.Sprintf("wavefront: dielectric/glossy queue collision at bounce %d", bounce))
	}
	return rb.batchSize - n
}

// Allocate a unique slot in the shadow queue.
func (rb *rayBuffers) allocShadow(bounce int) int32 {
	slot := rb.sizes.shadow[bounce].Add(1) - 1
	if slot >= rb.batchSize {
		panic(fmt.Sprintf("wavefront: shadow queue overflow at bounce %d", bounce))
	}
	return slot
}
