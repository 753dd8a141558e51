package wavefront

import "github.com/achilleasa/helios/types"

// Re-lift the rasterized G-buffers into bounce 0 hits: the trace kernel is
// skipped for the first bounce and the sort kernel consumes these records
// directly, preserving specular responses on subsequent bounces.
func (tr *wfTracer) primaryBody(index, _ int) {
	camera := tr.sc.Camera

	pixel := tr.launch.pixelOffset + int32(index)
	x := pixel % tr.width
	y := pixel / tr.width
	pixelIndex := x + y*tr.frame.pitch
	gbIndex := x + y*tr.gbuffer.Width

	buf := tr.rays.traceIn(0)
	buf.pixelAndFlags[index] = packPixelIndex(pixelIndex, false)
	buf.throughput[index] = types.Vec3{1, 1, 1}
	buf.lastPDF[index] = 0
	buf.coneAngle[index] = primaryConeAngle(camera.FOV, tr.height)

	triangleID := tr.gbuffer.TriangleID[gbIndex]
	if triangleID == InvalidID {
		// Background: record a miss so sort folds in the sky.
		dir := camera.BottomLeftCornerRotated.
			Add(camera.XAxisRotated.Mul(float32(x) + 0.5)).
			Add(camera.YAxisRotated.Mul(float32(y) + 0.5)).
			Normalize()
		buf.origin[index] = camera.Position
		buf.direction[index] = dir
		buf.triangleID[index] = InvalidID
		buf.meshID[index] = InvalidID
		buf.coneWidth[index] = 0
		return
	}

	// The rasterizer interpolated the barycentric vertex attributes.
	bary := tr.gbuffer.UV[gbIndex]
	tri := &tr.sc.Triangles[triangleID]

	hitPoint := tri.PositionAt(bary[0], bary[1])
	toHit := hitPoint.Sub(camera.Position)
	t := toHit.Len()

	buf.origin[index] = camera.Position
	buf.direction[index] = toHit.Mul(1.0 / t)
	buf.hitT[index] = t
	buf.hitU[index] = bary[0]
	buf.hitV[index] = bary[1]
	buf.triangleID[index] = triangleID
	buf.meshID[index] = tri.MeshID
	buf.coneWidth[index] = 0
}
