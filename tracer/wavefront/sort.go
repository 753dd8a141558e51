package wavefront

import (
	"github.com/achilleasa/helios/scene"
	"github.com/achilleasa/helios/types"
)

// Per-bounce sample dimension base; the generate kernel owns the first four
// dimensions.
func dimBase(bounce int) uint32 {
	return 4 + uint32(bounce)*8
}

const (
	dimOffsetRR = iota
	dimOffsetBRDF0
	dimOffsetBRDF1
	dimOffsetNEELight
	dimOffsetNEEU
	dimOffsetNEEV
	dimOffsetFresnel
)

// Classify every post-trace extension ray: fold sky and emissive hits into
// the frame buffers, apply the Russian roulette gate and route surviving
// surface hits into the per-material queues. Each hit reaches at most one
// queue.
func (tr *wfTracer) sortBody(index, _ int) {
	bounce := tr.launch.bounce
	buf := tr.rays.traceIn(bounce)
	settings := &tr.settings

	packed := buf.pixelAndFlags[index]
	pixelIndex, misEligible := unpackPixelIndex(packed)

	// Throughput is unit on the camera bounce; deeper bounces carry the
	// accumulated BRDF weights.
	throughput := types.Vec3{1, 1, 1}
	if bounce > 0 {
		throughput = buf.throughput[index]
	}

	dir := buf.direction[index]
	triangleID := buf.triangleID[index]

	if triangleID == InvalidID {
		if bounce == 0 && tr.albedoBufferActive() {
			tr.frame.albedo[pixelIndex] = types.Vec4{1, 1, 1, 0}
		}
		tr.frame.deposit(bounce, pixelIndex, throughput.MulVec3(tr.sc.Sky.Sample(dir)))
		return
	}

	tri := &tr.sc.Triangles[triangleID]
	mat := &tr.sc.Materials[tri.MaterialID]

	if mat.Type == scene.MaterialLight {
		if bounce == 0 {
			if tr.albedoBufferActive() {
				tr.frame.albedo[pixelIndex] = types.Vec4{1, 1, 1, 0}
			}
			tr.frame.deposit(bounce, pixelIndex, mat.Emission)
			return
		}

		neeActive := settings.EnableNextEventEstimation && !tr.sc.Lights.Empty()
		switch {
		case !neeActive || !misEligible:
			// NEE never sampled this vertex (or is off); count the full
			// emission.
			tr.frame.deposit(bounce, pixelIndex, throughput.MulVec3(mat.Emission))
		case settings.EnableMultipleImportanceSampling:
			lightNormal := tri.GeometricNormal()
			cosL := absf(lightNormal.Dot(dir))
			brdfPdf := buf.lastPDF[index]
			if cosL > 1e-6 && brdfPdf > 0 {
				d := buf.hitT[index]
				lightPdf := d * d / (cosL * tr.sc.Lights.TotalArea)
				weight := brdfPdf / (brdfPdf + lightPdf)
				tr.frame.deposit(bounce, pixelIndex, throughput.MulVec3(mat.Emission).Mul(weight))
			}
		}
		// Otherwise the NEE path accounted for this light already.
		return
	}

	// Russian roulette after classification but before the queue write, so
	// killed paths never occupy a material queue slot. Bounce 0 always
	// survives.
	if bounce >= 1 {
		albedoEstimate := mat.Diffuse
		if mat.Type == scene.MaterialDielectric {
			albedoEstimate = types.Vec3{1, 1, 1}
		}
		survival := clampf(throughput.MulVec3(albedoEstimate).MaxComponent(), 0, 1)

		sampler := newPixelSampler(tr.bn, pixelIndex, tr.frame.pitch, tr.framesSinceCameraMoved, tr.launch.seed)
		if sampler.sample(dimBase(bounce)+dimOffsetRR) >= survival {
			return
		}
		throughput = throughput.Mul(1.0 / survival)
	}

	coneAngle := buf.coneAngle[index]
	coneWidth := coneWidthAt(coneAngle, buf.coneWidth[index], buf.hitT[index])

	var mb *materialBuffer
	var slot int32
	switch mat.Type {
	case scene.MaterialDiffuse:
		mb, slot = &tr.rays.diffuse, tr.rays.allocDiffuse(bounce)
	case scene.MaterialDielectric:
		mb, slot = &tr.rays.specular, tr.rays.allocDielectric(bounce)
	default:
		mb, slot = &tr.rays.specular, tr.rays.allocGlossy(bounce)
	}

	mb.direction[slot] = dir
	mb.triangleID[slot] = triangleID
	mb.hitU[slot] = buf.hitU[index]
	mb.hitV[slot] = buf.hitV[index]
	mb.hitT[slot] = buf.hitT[index]
	mb.pixelAndFlags[slot] = packPixelIndex(pixelIndex, false)
	mb.throughput[slot] = throughput
	mb.coneAngle[slot] = coneAngle
	mb.coneWidth[slot] = coneWidth
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
