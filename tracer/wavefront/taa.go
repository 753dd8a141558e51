package wavefront

import "github.com/achilleasa/helios/types"

// Blend factor for the current frame against the clipped history.
const taaBlend = 0.1

// Temporal anti-aliasing: clip the history pixel into the 3x3 min/max
// neighborhood of the current frame and blend.
func (tr *wfTracer) taaBody(x, y int) {
	pixel := int32(x) + int32(y)*tr.frame.pitch

	cur := tr.frame.taaCurr[pixel].Vec3()

	boxMin := cur
	boxMax := cur
	for dy := int32(-1); dy <= 1; dy++ {
		for dx := int32(-1); dx <= 1; dx++ {
			qx, qy := int32(x)+dx, int32(y)+dy
			if qx < 0 || qx >= tr.width || qy < 0 || qy >= tr.height {
				continue
			}
			q := tr.frame.taaCurr[qx+qy*tr.frame.pitch].Vec3()
			boxMin = types.MinVec3(boxMin, q)
			boxMax = types.MaxVec3(boxMax, q)
		}
	}

	history := tr.frame.taaPrev[pixel].Vec3()
	history = types.MaxVec3(boxMin, types.MinVec3(boxMax, history))

	out := types.LerpVec3(history, cur, taaBlend)
	tr.frame.accumulator[pixel] = sanitizeRadiance(out).Vec4(1)
}

// Publish the blended frame as the next frame's history.
func (tr *wfTracer) taaFinalizeBody(x, y int) {
	pixel := int32(x) + int32(y)*tr.frame.pitch
	tr.frame.taaPrev[pixel] = tr.frame.accumulator[pixel]
}
