package wavefront

import (
	"math"

	"github.com/achilleasa/helios/types"
)

// Shade one record of the dielectric queue: Fresnel-weighted reflect or
// refract with Lambert-Beer absorption while inside the medium. The
// interaction is delta-like, so the produced ray clears its MIS flag and no
// next-event shadow ray is emitted.
func (tr *wfTracer) shadeDielectricBody(index, _ int) {
	bounce := tr.launch.bounce
	mb := &tr.rays.specular

	dir := mb.direction[index]
	triangleID := mb.triangleID[index]
	u, v := mb.hitU[index], mb.hitV[index]
	hitT := mb.hitT[index]
	pixelIndex, _ := unpackPixelIndex(mb.pixelAndFlags[index])
	throughput := mb.throughput[index]

	tri := &tr.sc.Triangles[triangleID]
	mat := tr.sc.TriangleMaterial(triangleID)

	normal := tri.NormalAt(u, v)
	if normal.Len() == 0 {
		return
	}
	hitPoint := tri.PositionAt(u, v)

	if bounce == 0 && tr.albedoBufferActive() {
		tr.frame.albedo[pixelIndex] = types.Vec4{1, 1, 1, 0}
	}

	// Facing test decides whether the ray enters or leaves the medium.
	cosIn := -dir.Dot(normal)
	var eta float32
	if cosIn >= 0 {
		// Entering: air to medium.
		eta = 1.0 / mat.IndexOfRefraction
	} else {
		// Leaving: flip the frame and attenuate by the distance travelled
		// inside the medium.
		normal = normal.Mul(-1)
		cosIn = -cosIn
		eta = mat.IndexOfRefraction

		throughput = types.Vec3{
			throughput[0] * expf(-mat.Absorption[0]*hitT),
			throughput[1] * expf(-mat.Absorption[1]*hitT),
			throughput[2] * expf(-mat.Absorption[2]*hitT),
		}
	}
	cosIn = clampf(cosIn, 0, 1)

	k := 1 - eta*eta*(1-cosIn*cosIn)

	var nextDir types.Vec3
	if k <= 0 {
		// Total internal reflection; k == 0 is folded in so the grazing
		// transmit direction never divides by zero.
		nextDir = dir.Reflect(normal)
	} else {
		cosOut := float32(math.Sqrt(float64(k)))

		// Fresnel with the transmitted angle when leaving the denser
		// medium.
		cosFresnel := cosIn
		if mat.IndexOfRefraction > 1 && eta > 1 {
			cosFresnel = cosOut
		}
		reflectance := schlick(cosFresnel, fresnelR0(mat.IndexOfRefraction))

		sampler := newPixelSampler(tr.bn, pixelIndex, tr.frame.pitch, tr.framesSinceCameraMoved, tr.launch.seed)
		if sampler.sample(dimBase(bounce)+dimOffsetFresnel) < reflectance {
			nextDir = dir.Reflect(normal)
		} else {
			nextDir = dir.Mul(eta).Add(normal.Mul(eta*cosIn - cosOut)).Normalize()
		}
	}

	// Offset along the outgoing side of the surface.
	side := normal
	if nextDir.Dot(normal) < 0 {
		side = normal.Mul(-1)
	}

	out := tr.rays.traceOut(bounce)
	slot := tr.rays.allocTrace(bounce)
	out.origin[slot] = hitPoint.Add(side.Mul(1e-4))
	out.direction[slot] = nextDir
	out.pixelAndFlags[slot] = packPixelIndex(pixelIndex, false)
	out.throughput[slot] = throughput
	out.lastPDF[slot] = 0
	out.coneAngle[slot] = mb.coneAngle[index]
	out.coneWidth[slot] = mb.coneWidth[index]
}

func expf(v float32) float32 {
	return float32(math.Exp(float64(v)))
}
