package wavefront

import "math"

// The persistent extension tracer. One body runs per device worker; each
// pulls ray indices from the retired counter until the queue drains, which
// balances traversal cost evenly regardless of ray coherence.
func (tr *wfTracer) traceBody(_, _ int) {
	bounce := tr.launch.bounce
	buf := tr.rays.traceIn(bounce)
	total := tr.rays.sizes.trace[bounce].Load()
	retired := &tr.rays.sizes.raysRetired[bounce]

	for {
		index := retired.Add(1) - 1
		if index >= total {
			return
		}

		r := makeRay(buf.origin[index], buf.direction[index])
		h := tr.accel.trace(r, float32(math.Inf(1)))

		buf.hitT[index] = h.t
		buf.hitU[index] = h.u
		buf.hitV[index] = h.v
		buf.meshID[index] = h.meshID
		buf.triangleID[index] = h.triangleID
	}
}
