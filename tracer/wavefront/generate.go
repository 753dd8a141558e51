package wavefront

import (
	"github.com/achilleasa/helios/tracer"
	"github.com/achilleasa/helios/types"
)

// Sample dimensions used by the generate kernel.
const (
	dimJitterX = iota
	dimJitterY
	dimApertureX
	dimApertureY
)

// Produce one extension ray per pixel of the current batch. Sub-pixel jitter
// uses the camera's Halton cycle under TAA and a per-pixel box or Gaussian
// sample otherwise; a non-zero aperture samples the thin lens. Rays start
// with unit throughput and a cleared MIS flag.
func (tr *wfTracer) generateBody(index, _ int) {
	camera := tr.sc.Camera
	settings := &tr.settings

	pixel := tr.launch.pixelOffset + int32(index)
	x := pixel % tr.width
	y := pixel / tr.width
	pixelIndex := x + y*tr.frame.pitch

	sampler := newPixelSampler(tr.bn, pixelIndex, tr.frame.pitch, tr.framesSinceCameraMoved, tr.launch.seed)

	var jitterX, jitterY float32
	switch {
	case settings.EnableTAA:
		// The camera jitter is expressed as a NDC offset; recover the
		// sub-pixel position shared by the whole frame.
		jitterX = camera.Jitter[0]*float32(tr.width)*0.5 + 0.5
		jitterY = camera.Jitter[1]*float32(tr.height)*0.5 + 0.5
	case settings.ReconstructionFilter == tracer.FilterGaussian:
		jitterX, jitterY = sampleGaussianJitter(sampler.sample(dimJitterX), sampler.sample(dimJitterY))
	default:
		jitterX = sampler.sample(dimJitterX)
		jitterY = sampler.sample(dimJitterY)
	}

	// Point on the viewing plane, rotated into world space.
	planeX := float32(x) + jitterX
	planeY := float32(y) + jitterY
	target := camera.BottomLeftCornerRotated.
		Add(camera.XAxisRotated.Mul(planeX)).
		Add(camera.YAxisRotated.Mul(planeY))

	origin := camera.Position
	direction := target.Normalize()

	if camera.Aperture > 0 {
		// Thin lens: focus on the focal plane and offset the origin within
		// the aperture polygon.
		focalPoint := origin.Add(direction.Mul(camera.FocalDistance))
		lensU, lensV := sampleApertureNGon(tr.apertureBlades, sampler.sample(dimApertureX), sampler.sample(dimApertureY))

		offset := camera.XAxisRotated.Mul(lensU * camera.Aperture).
			Add(camera.YAxisRotated.Mul(lensV * camera.Aperture))
		origin = origin.Add(offset)
		direction = focalPoint.Sub(origin).Normalize()
	}

	buf := tr.rays.traceIn(0)
	buf.origin[index] = origin
	buf.direction[index] = direction
	buf.pixelAndFlags[index] = packPixelIndex(pixelIndex, false)
	buf.throughput[index] = types.Vec3{1, 1, 1}
	buf.lastPDF[index] = 0
	buf.coneAngle[index] = primaryConeAngle(camera.FOV, tr.height)
	buf.coneWidth[index] = 0
}
