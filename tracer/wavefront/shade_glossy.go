package wavefront

import (
	"math"

	"github.com/achilleasa/helios/types"
)

// GGX normal distribution.
func ggxD(alpha, cosM float32) float32 {
	if cosM <= 0 {
		return 0
	}
	a2 := alpha * alpha
	d := cosM*cosM*(a2-1) + 1
	return a2 / (math.Pi * d * d)
}

// Smith GGX masking term for one direction.
func smithG1(alpha, cosV float32) float32 {
	if cosV <= 0 {
		return 0
	}
	tan2 := (1 - cosV*cosV) / (cosV * cosV)
	return 2.0 / (1 + float32(math.Sqrt(float64(1+alpha*alpha*tan2))))
}

// Shade one record of the glossy queue: GGX importance sampling with Schlick
// Fresnel, next-event estimation and MIS as in the diffuse kernel. Records
// are stored from the top of the shared specular buffer downward.
func (tr *wfTracer) shadeGlossyBody(index, _ int) {
	bounce := tr.launch.bounce
	settings := &tr.settings
	mb := &tr.rays.specular
	slot := tr.rays.batchSize - 1 - int32(index)

	dir := mb.direction[slot]
	triangleID := mb.triangleID[slot]
	u, v := mb.hitU[slot], mb.hitV[slot]
	pixelIndex, _ := unpackPixelIndex(mb.pixelAndFlags[slot])
	throughput := mb.throughput[slot]

	tri := &tr.sc.Triangles[triangleID]
	mat := tr.sc.TriangleMaterial(triangleID)

	normal := tri.NormalAt(u, v)
	if normal.Len() == 0 {
		return
	}
	if normal.Dot(dir) > 0 {
		normal = normal.Mul(-1)
	}
	hitPoint := tri.PositionAt(u, v)

	coneAngle := mb.coneAngle[slot] + 2*triangleCurvature(tri)
	coneWidth := mb.coneWidth[slot]

	albedo := tr.sampleAlbedo(mat, tri, u, v, bounce, pixelIndex, coneWidth, normal.Dot(dir))
	if bounce == 0 {
		if tr.albedoBufferActive() {
			tr.frame.albedo[pixelIndex] = albedo.Vec4(0)
		}
	} else {
		throughput = throughput.MulVec3(albedo)
	}

	// Direction towards the viewer.
	toView := dir.Mul(-1)
	cosI := toView.Dot(normal)
	if cosI <= 0 {
		return
	}

	alpha := mat.Roughness * mat.Roughness
	if alpha < 1e-4 {
		alpha = 1e-4
	}
	r0 := fresnelR0(mat.IndexOfRefraction)

	sampler := newPixelSampler(tr.bn, pixelIndex, tr.frame.pitch, tr.framesSinceCameraMoved, tr.launch.seed)

	// Next event estimation with the microfacet evaluator.
	if settings.EnableNextEventEstimation && !tr.sc.Lights.Empty() {
		if light, ok := tr.sampleLight(&sampler, bounce, hitPoint); ok {
			cosO := normal.Dot(light.direction)
			if cosO > 0 {
				m := toView.Add(light.direction).Normalize()
				cosM := m.Dot(normal)
				iDotM := toView.Dot(m)

				d := ggxD(alpha, cosM)
				if d > 0 && iDotM > 0 {
					f := schlick(iDotM, r0)
					g := smithG1(alpha, cosI) * smithG1(alpha, cosO)
					brdf := d * f * g / (4 * cosI * cosO)

					weight := float32(1)
					if settings.EnableMultipleImportanceSampling {
						brdfPdf := d * cosM / (4 * iDotM)
						weight = misWeight(light.solidPdf, brdfPdf)
					}

					illumination := throughput.
						Mul(brdf * cosO / light.solidPdf * weight).
						MulVec3(light.emission)
					tr.stageShadowRay(bounce,
						hitPoint.Add(normal.Mul(1e-4)),
						light.direction, light.distance,
						pixelIndex, illumination)
				}
			}
		}
	}

	// Widen the lobe near grazing incidence to avoid firefly weights
	// (Walter et al. 2007).
	alphaPrime := (1.2 - 0.2*float32(math.Sqrt(float64(cosI)))) * alpha

	// Draw a microfacet normal from the GGX distribution in spherical
	// coordinates and reflect the view direction across it.
	r1 := sampler.sample(dimBase(bounce) + dimOffsetBRDF0)
	r2 := sampler.sample(dimBase(bounce) + dimOffsetBRDF1)
	if r1 >= 1 {
		r1 = 0.999999
	}
	thetaM := float32(math.Atan(float64(alphaPrime) * math.Sqrt(float64(r1)) / math.Sqrt(float64(1-r1))))
	phiM := 2 * math.Pi * float64(r2)

	sinTheta := float32(math.Sin(float64(thetaM)))
	localM := types.Vec3{
		sinTheta * float32(math.Cos(phiM)),
		sinTheta * float32(math.Sin(phiM)),
		float32(math.Cos(float64(thetaM))),
	}

	tangent, bitangent := orthonormalBasis(normal)
	m := localToWorld(localM, tangent, bitangent, normal)

	iDotM := toView.Dot(m)
	if iDotM <= 0 {
		return
	}
	nextDir := m.Mul(2 * iDotM).Sub(toView)

	cosO := nextDir.Dot(normal)
	if cosO <= 0 {
		// Sampled under the horizon; the path is absorbed.
		return
	}

	cosM := m.Dot(normal)
	if cosM <= 0 {
		return
	}

	f := schlick(iDotM, r0)
	g := smithG1(alpha, cosI) * smithG1(alpha, cosO)
	weight := iDotM * f * g / (cosI * cosM)
	if weight <= 0 || math.IsNaN(float64(weight)) {
		return
	}
	throughput = throughput.Mul(weight)

	out := tr.rays.traceOut(bounce)
	outSlot := tr.rays.allocTrace(bounce)
	out.origin[outSlot] = hitPoint.Add(normal.Mul(1e-4))
	out.direction[outSlot] = nextDir
	out.pixelAndFlags[outSlot] = packPixelIndex(pixelIndex, mat.Roughness >= glossyMISRoughnessCutoff)
	out.throughput[outSlot] = throughput
	out.lastPDF[outSlot] = ggxD(alphaPrime, cosM) * cosM / (4 * iDotM)
	out.coneAngle[outSlot] = coneAngle
	out.coneWidth[outSlot] = coneWidth
}
