package wavefront

import (
	"fmt"
	"sync"
	"time"

	"github.com/achilleasa/helios/log"
	"github.com/achilleasa/helios/scene"
	"github.com/achilleasa/helios/tracer"
	"github.com/achilleasa/helios/tracer/device"
	"github.com/achilleasa/helios/types"
)

// Tuning options for a wavefront tracer instance.
type Options struct {
	// Queue capacity; frames with more pixels are processed in batches.
	// Defaults to DefaultBatchSize.
	BatchSize int32

	// The on-device BVH layout.
	Layout BvhLayout

	// Optional blue-noise sampler tables.
	BlueNoise *BlueNoise

	// Number of aperture blades for the thin lens model; values below 3
	// select a circular aperture.
	ApertureBlades int
}

type wfTracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	id     string
	device *device.Device

	sc    *scene.Scene
	accel *accel
	bn    *BlueNoise

	scheduler      tracer.BatchScheduler
	batchSize      int32
	apertureBlades int

	width  int32
	height int32

	frame   *frameBuffers
	rays    *rayBuffers
	gbuffer *GBuffer

	settings               tracer.Settings
	framesSinceCameraMoved uint32
	firstFrame             bool

	sceneHasDiffuse    bool
	sceneHasDielectric bool
	sceneHasGlossy     bool
	sceneHasLights     bool

	kernels struct {
		generate        *device.Kernel
		primary         *device.Kernel
		trace           *device.Kernel
		sort            *device.Kernel
		shadeDiffuse    *device.Kernel
		shadeDielectric *device.Kernel
		shadeGlossy     *device.Kernel
		shadowTrace     *device.Kernel

		svgfTemporal *device.Kernel
		svgfVariance *device.Kernel
		svgfAtrous   *device.Kernel
		svgfFinalize *device.Kernel
		taa          *device.Kernel
		taaFinalize  *device.Kernel
		accumulate   *device.Kernel
	}

	// Per-launch parameters. The host drives the device stages one at a
	// time so these are never written concurrently with a running kernel.
	launch struct {
		bounce      int
		pixelOffset int32
		batchCount  int32
		seed        uint32

		atrousStep        int32
		directIn          []types.Vec4
		indirectIn        []types.Vec4
		directOut         []types.Vec4
		indirectOut       []types.Vec4
		finalizeTargetTAA bool
	}

	// A buffer for queuing updates. Updates are grouped by type and latest
	// updates always overwrite the previous ones.
	updateBuffer map[tracer.UpdateType]interface{}

	frameReqChan chan tracer.FrameRequest
	closeChan    chan struct{}

	stats *tracer.Stats
}

// Create a new wavefront tracer bound to a compute device. The scene must
// carry a camera and the BVH emitted by the external builder; the tracer
// refuses to initialize otherwise.
func New(id string, dev *device.Device, sc *scene.Scene, opts Options) (tracer.Tracer, error) {
	if sc == nil || sc.Camera == nil {
		return nil, fmt.Errorf("wavefront tracer (%s): no scene or camera supplied", id)
	}
	if len(sc.Triangles) > 0 && len(sc.BvhNodes) == 0 {
		return nil, fmt.Errorf("wavefront tracer (%s): scene carries no acceleration structure", id)
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	acc, err := newAccel(opts.Layout, sc)
	if err != nil {
		return nil, fmt.Errorf("wavefront tracer (%s): %s", id, err)
	}

	tr := &wfTracer{
		logger:         log.New(fmt.Sprintf("wavefront tracer (%s)", dev.Name)),
		id:             id,
		device:         dev,
		sc:             sc,
		accel:          acc,
		bn:             opts.BlueNoise,
		scheduler:      tracer.NewFixedScheduler(uint32(batchSize)),
		batchSize:      batchSize,
		apertureBlades: opts.ApertureBlades,
		settings:       tracer.DefaultSettings(),
		updateBuffer:   make(map[tracer.UpdateType]interface{}),
		frameReqChan:   make(chan tracer.FrameRequest),
		stats:          &tracer.Stats{},
	}

	for i := range sc.Materials {
		switch sc.Materials[i].Type {
		case scene.MaterialDiffuse:
			tr.sceneHasDiffuse = true
		case scene.MaterialDielectric:
			tr.sceneHasDielectric = true
		case scene.MaterialGlossy:
			tr.sceneHasGlossy = true
		case scene.MaterialLight:
			tr.sceneHasLights = true
		}
	}
	tr.logger.Infof("scene materials: diffuse=%t dielectric=%t glossy=%t lights=%t layout=%s",
		tr.sceneHasDiffuse, tr.sceneHasDielectric, tr.sceneHasGlossy, tr.sceneHasLights, opts.Layout)

	tr.kernels.generate = dev.Kernel("generate", tr.generateBody)
	tr.kernels.primary = dev.Kernel("primary", tr.primaryBody)
	tr.kernels.trace = dev.Kernel("trace", tr.traceBody)
	tr.kernels.sort = dev.Kernel("sort", tr.sortBody)
	tr.kernels.shadeDiffuse = dev.Kernel("shade_diffuse", tr.shadeDiffuseBody)
	tr.kernels.shadeDielectric = dev.Kernel("shade_dielectric", tr.shadeDielectricBody)
	tr.kernels.shadeGlossy = dev.Kernel("shade_glossy", tr.shadeGlossyBody)
	tr.kernels.shadowTrace = dev.Kernel("shadow_trace", tr.shadowTraceBody)
	tr.kernels.svgfTemporal = dev.Kernel("svgf_temporal", tr.svgfTemporalBody)
	tr.kernels.svgfVariance = dev.Kernel("svgf_variance", tr.svgfVarianceBody)
	tr.kernels.svgfAtrous = dev.Kernel("svgf_atrous", tr.svgfAtrousBody)
	tr.kernels.svgfFinalize = dev.Kernel("svgf_finalize", tr.svgfFinalizeBody)
	tr.kernels.taa = dev.Kernel("taa", tr.taaBody)
	tr.kernels.taaFinalize = dev.Kernel("taa_finalize", tr.taaFinalizeBody)
	tr.kernels.accumulate = dev.Kernel("accumulate", tr.accumulateBody)

	return tr, nil
}

// Get tracer id.
func (tr *wfTracer) Id() string {
	return tr.id
}

// Allocate all frame-sized state and start the request worker.
func (tr *wfTracer) Init(frameW, frameH uint32) error {
	tr.Lock()
	defer tr.Unlock()

	if err := tr.resizeLocked(frameW, frameH); err != nil {
		return err
	}

	if tr.closeChan == nil {
		tr.startWorker()
	}
	return nil
}

// Release frame-sized state and reallocate it for the new dimensions. All
// temporal history is discarded; the first frame after a resize carries no
// ghosting.
func (tr *wfTracer) Resize(frameW, frameH uint32) error {
	tr.Lock()
	defer tr.Unlock()
	return tr.resizeLocked(frameW, frameH)
}

func (tr *wfTracer) resizeLocked(frameW, frameH uint32) error {
	if frameW == 0 || frameH == 0 {
		return fmt.Errorf("wavefront tracer (%s): invalid frame dimensions %dx%d", tr.id, frameW, frameH)
	}

	tr.width = int32(frameW)
	tr.height = int32(frameH)

	// Drop the previous allocation before creating the new one.
	tr.frame = nil
	tr.frame = newFrameBuffers(tr.width, tr.height)
	if tr.rays == nil {
		tr.rays = newRayBuffers(tr.batchSize)
	}

	tr.sc.Camera.Resize(int(frameW), int(frameH))
	tr.framesSinceCameraMoved = 0
	tr.firstFrame = true

	tr.logger.Infof("allocated frame buffers for %dx%d (pitch %d)", tr.width, tr.height, tr.frame.pitch)
	return nil
}

// Shutdown and cleanup tracer.
func (tr *wfTracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	if tr.closeChan != nil {
		tr.closeChan <- struct{}{}
		<-tr.closeChan
		close(tr.closeChan)
		tr.closeChan = nil
	}

	tr.frame = nil
	tr.rays = nil
}

// Enqueue frame request.
func (tr *wfTracer) Enqueue(req tracer.FrameRequest) {
	select {
	case tr.frameReqChan <- req:
	default:
		// drop the request if worker is not listening
		tr.logger.Error("request processor did not receive frame request")
	}
}

// Append a change to the tracer's update buffer.
func (tr *wfTracer) Update(updateType tracer.UpdateType, data interface{}) {
	tr.Lock()
	defer tr.Unlock()
	tr.updateBuffer[updateType] = data
}

// The output surface.
func (tr *wfTracer) Accumulator() []types.Vec4 {
	return tr.frame.accumulator
}

// Row pitch of the output surface in pixels.
func (tr *wfTracer) Pitch() uint32 {
	return uint32(tr.frame.pitch)
}

// Retrieve last frame statistics.
func (tr *wfTracer) Stats() *tracer.Stats {
	return tr.stats
}

// Commit queued changes. Called at the start of a frame with the lock held.
func (tr *wfTracer) commitUpdates() error {
	for updateType, data := range tr.updateBuffer {
		switch updateType {
		case tracer.UpdateCamera:
			cam, ok := data.(*scene.Camera)
			if !ok {
				return fmt.Errorf("wavefront tracer (%s): unsupported camera payload", tr.id)
			}
			tr.sc.Camera = cam
		case tracer.UpdateGBuffer:
			gb, ok := data.(*GBuffer)
			if !ok && data != nil {
				return fmt.Errorf("wavefront tracer (%s): unsupported gbuffer payload", tr.id)
			}
			tr.gbuffer = gb
		default:
			return fmt.Errorf("wavefront tracer (%s): unsupported update type %d", tr.id, updateType)
		}
	}

	tr.updateBuffer = make(map[tracer.UpdateType]interface{})
	return nil
}

// Spawn a go-routine to process frame render requests.
func (tr *wfTracer) startWorker() {
	if tr.closeChan != nil {
		return
	}
	tr.closeChan = make(chan struct{})

	readyChan := make(chan struct{})
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		close(readyChan)
		for {
			select {
			case req := <-tr.frameReqChan:
				if err := tr.renderFrame(&req); err != nil {
					if req.ErrChan != nil {
						req.ErrChan <- err
					}
					continue
				}
				if req.DoneChan != nil {
					req.DoneChan <- struct{}{}
				}
			case <-tr.closeChan:
				// Ack close
				tr.closeChan <- struct{}{}
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

// Render a single frame: apply pending updates, advance the temporal state
// machine, run the batch/bounce pipeline and reconstruct the output.
func (tr *wfTracer) renderFrame(req *tracer.FrameRequest) error {
	tr.Lock()
	defer tr.Unlock()

	if tr.frame == nil {
		return fmt.Errorf("wavefront tracer (%s): not initialized", tr.id)
	}

	start := time.Now()
	if len(tr.updateBuffer) != 0 {
		if err := tr.commitUpdates(); err != nil {
			return err
		}
		tr.stats.UpdateTime = time.Since(start)
	}

	settings := req.Settings
	if settings.NumBounces < 1 {
		settings.NumBounces = 1
	} else if settings.NumBounces > MaxBounces {
		settings.NumBounces = MaxBounces
	}

	// The first frame after init/resize behaves like a settings change:
	// there is no history to carry forward.
	settingsChanged := settings != tr.settings || tr.firstFrame
	tr.firstFrame = false
	tr.settings = settings

	camera := tr.sc.Camera
	cameraMoved := camera.Moved
	camera.Moved = false
	camera.Aperture = settings.CameraAperture
	camera.FocalDistance = settings.CameraFocalDistance
	camera.Update(settings.EnableTAA)

	if settingsChanged {
		// Stale history would blend results produced under different
		// settings into the new ones.
		tr.frame.clearHistory()
	}

	switch {
	case settingsChanged:
		tr.framesSinceCameraMoved = 0
	case settings.EnableSVGF:
		tr.framesSinceCameraMoved = (tr.framesSinceCameraMoved + 1) & 255
	case cameraMoved:
		tr.framesSinceCameraMoved = 0
	default:
		tr.framesSinceCameraMoved++
	}

	stages := tr.stats.Stages[:0]
	run := func(category, name string, kernel *device.Kernel, exec func(*device.Kernel) (time.Duration, error)) error {
		elapsed, err := exec(kernel)
		stages = append(stages, tracer.StageTime{Category: category, Name: name, Elapsed: elapsed})
		return err
	}

	tr.frame.clearFrame()
	tr.launch.seed = req.Seed

	useRaster := settings.EnableRasterization && tr.gbuffer != nil
	useSvgf := settings.EnableSVGF && tr.gbuffer != nil
	if settings.EnableSVGF && tr.gbuffer == nil {
		tr.logger.Warning("svgf requested without a gbuffer; falling back to plain accumulation")
	}

	for _, batch := range tr.scheduler.Schedule(uint32(tr.width * tr.height)) {
		tr.rays.sizes.resetFrame(int32(batch.Count))
		tr.launch.pixelOffset = int32(batch.Offset)
		tr.launch.batchCount = int32(batch.Count)

		var err error
		if useRaster {
			err = run("Primary", "Primary", tr.kernels.primary, func(k *device.Kernel) (time.Duration, error) {
				return k.Exec1D(0, int(batch.Count))
			})
		} else {
			err = run("Primary", "Generate", tr.kernels.generate, func(k *device.Kernel) (time.Duration, error) {
				return k.Exec1D(0, int(batch.Count))
			})
		}
		if err != nil {
			return err
		}

		for bounce := 0; bounce < settings.NumBounces; bounce++ {
			tr.launch.bounce = bounce
			category := fmt.Sprintf("Bounce %d", bounce)

			numRays := tr.rays.sizes.trace[bounce].Load()
			if numRays == 0 {
				break
			}

			// The primary kernel already produced bounce 0 hits when
			// rasterization is on; only the intersection test is skipped.
			if !(bounce == 0 && useRaster) {
				// Extend all rays that are still alive to their next
				// triangle intersection.
				err = run(category, "Trace", tr.kernels.trace, func(k *device.Kernel) (time.Duration, error) {
					return k.Exec1D(0, tr.device.Workers())
				})
				if err != nil {
					return err
				}
			}

			err = run(category, "Sort", tr.kernels.sort, func(k *device.Kernel) (time.Duration, error) {
				return k.Exec1D(0, int(numRays))
			})
			if err != nil {
				return err
			}

			// Process the various material types in different kernels.
			if tr.sceneHasDiffuse {
				if n := tr.rays.sizes.diffuse[bounce].Load(); n > 0 {
					err = run(category, "Diffuse", tr.kernels.shadeDiffuse, func(k *device.Kernel) (time.Duration, error) {
						return k.Exec1D(0, int(n))
					})
					if err != nil {
						return err
					}
				}
			}

			if tr.sceneHasDielectric {
				if n := tr.rays.sizes.dielectric[bounce].Load(); n > 0 {
					err = run(category, "Dielectric", tr.kernels.shadeDielectric, func(k *device.Kernel) (time.Duration, error) {
						return k.Exec1D(0, int(n))
					})
					if err != nil {
						return err
					}
				}
			}

			if tr.sceneHasGlossy {
				if n := tr.rays.sizes.glossy[bounce].Load(); n > 0 {
					err = run(category, "Glossy", tr.kernels.shadeGlossy, func(k *device.Kernel) (time.Duration, error) {
						return k.Exec1D(0, int(n))
					})
					if err != nil {
						return err
					}
				}
			}

			if tr.sceneHasLights {
				if n := tr.rays.sizes.shadow[bounce].Load(); n > 0 {
					err = run(category, "Shadow", tr.kernels.shadowTrace, func(k *device.Kernel) (time.Duration, error) {
						return k.Exec1D(0, tr.device.Workers())
					})
					if err != nil {
						return err
					}
				}
			}
		}
	}

	if err := tr.reconstruct(useSvgf, run); err != nil {
		return err
	}

	tr.stats.Stages = stages
	tr.stats.RenderTime = time.Since(start)
	return nil
}

// Run the image-space reconstruction pipeline: SVGF (+TAA) or plain
// progressive accumulation.
func (tr *wfTracer) reconstruct(useSvgf bool, run func(string, string, *device.Kernel, func(*device.Kernel) (time.Duration, error)) error) error {
	w, h := int(tr.width), int(tr.height)
	exec2D := func(k *device.Kernel) (time.Duration, error) {
		return k.Exec2D(w, h)
	}

	if !useSvgf {
		return run("Post", "Accumulate", tr.kernels.accumulate, exec2D)
	}

	settings := &tr.settings

	if err := run("SVGF", "Temporal", tr.kernels.svgfTemporal, exec2D); err != nil {
		return err
	}

	directIn, indirectIn := tr.frame.direct, tr.frame.indirect
	directOut, indirectOut := tr.frame.directAlt, tr.frame.indirectAlt

	if settings.EnableSpatialVariance {
		tr.launch.directIn, tr.launch.indirectIn = directIn, indirectIn
		tr.launch.directOut, tr.launch.indirectOut = directOut, indirectOut
		if err := run("SVGF", "Variance", tr.kernels.svgfVariance, exec2D); err != nil {
			return err
		}
	} else {
		directIn, directOut = directOut, directIn
		indirectIn, indirectOut = indirectOut, indirectIn
	}

	for i := 0; i < settings.Svgf.AtrousIterations; i++ {
		// Ping-pong the frame buffers.
		directIn, directOut = directOut, directIn
		indirectIn, indirectOut = indirectOut, indirectIn

		tr.launch.atrousStep = 1 << uint(i)
		tr.launch.directIn, tr.launch.indirectIn = directIn, indirectIn
		tr.launch.directOut, tr.launch.indirectOut = directOut, indirectOut

		if err := run("SVGF", fmt.Sprintf("A-Trous %d", i), tr.kernels.svgfAtrous, exec2D); err != nil {
			return err
		}
	}

	tr.launch.directIn, tr.launch.indirectIn = directOut, indirectOut
	tr.launch.finalizeTargetTAA = settings.EnableTAA
	if err := run("SVGF", "Finalize", tr.kernels.svgfFinalize, exec2D); err != nil {
		return err
	}

	if settings.EnableTAA {
		if err := run("Post", "TAA", tr.kernels.taa, exec2D); err != nil {
			return err
		}
		if err := run("Post", "TAA Finalize", tr.kernels.taaFinalize, exec2D); err != nil {
			return err
		}
	}
	return nil
}
