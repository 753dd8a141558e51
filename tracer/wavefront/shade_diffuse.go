package wavefront

import "math"

// Shade one record of the diffuse queue: resolve albedo with the ray cone
// LOD, optionally stage a next-event shadow ray and emit the cosine sampled
// extension ray for the next bounce.
func (tr *wfTracer) shadeDiffuseBody(index, _ int) {
	bounce := tr.launch.bounce
	settings := &tr.settings
	mb := &tr.rays.diffuse

	dir := mb.direction[index]
	triangleID := mb.triangleID[index]
	u, v := mb.hitU[index], mb.hitV[index]
	pixelIndex, _ := unpackPixelIndex(mb.pixelAndFlags[index])
	throughput := mb.throughput[index]

	tri := &tr.sc.Triangles[triangleID]
	mat := tr.sc.TriangleMaterial(triangleID)

	normal := tri.NormalAt(u, v)
	if normal.Len() == 0 {
		// Degenerate shading frame; the path ends at this vertex.
		return
	}
	if normal.Dot(dir) > 0 {
		normal = normal.Mul(-1)
	}
	hitPoint := tri.PositionAt(u, v)

	coneAngle := mb.coneAngle[index] + 2*triangleCurvature(tri)
	coneWidth := mb.coneWidth[index]

	albedo := tr.sampleAlbedo(mat, tri, u, v, bounce, pixelIndex, coneWidth, normal.Dot(dir))

	// The camera bounce factors albedo out into its own buffer so SVGF can
	// denoise pure lighting and re-modulate afterwards.
	if bounce == 0 {
		if tr.albedoBufferActive() {
			tr.frame.albedo[pixelIndex] = albedo.Vec4(0)
		}
	} else {
		throughput = throughput.MulVec3(albedo)
	}

	sampler := newPixelSampler(tr.bn, pixelIndex, tr.frame.pitch, tr.framesSinceCameraMoved, tr.launch.seed)

	// Next event estimation.
	if settings.EnableNextEventEstimation && !tr.sc.Lights.Empty() {
		if light, ok := tr.sampleLight(&sampler, bounce, hitPoint); ok {
			cosSurface := normal.Dot(light.direction)
			if cosSurface > 0 {
				// f*cos/pdf with the Lambertian f folded into throughput.
				contribution := throughput.Mul(cosSurface / (math.Pi * light.solidPdf))

				weight := float32(1)
				if settings.EnableMultipleImportanceSampling {
					brdfPdf := cosSurface / math.Pi
					weight = misWeight(light.solidPdf, brdfPdf)
				}

				illumination := contribution.MulVec3(light.emission).Mul(weight)
				tr.stageShadowRay(bounce,
					hitPoint.Add(normal.Mul(1e-4)),
					light.direction, light.distance,
					pixelIndex, illumination)
			}
		}
	}

	// Cosine-weighted bounce direction.
	tangent, bitangent := orthonormalBasis(normal)
	local := sampleCosineHemisphere(
		sampler.sample(dimBase(bounce)+dimOffsetBRDF0),
		sampler.sample(dimBase(bounce)+dimOffsetBRDF1))
	nextDir := localToWorld(local, tangent, bitangent, normal)

	cosTheta := local[2]
	if cosTheta <= 0 {
		return
	}

	out := tr.rays.traceOut(bounce)
	slot := tr.rays.allocTrace(bounce)
	out.origin[slot] = hitPoint.Add(normal.Mul(1e-4))
	out.direction[slot] = nextDir
	out.pixelAndFlags[slot] = packPixelIndex(pixelIndex, true)
	out.throughput[slot] = throughput
	out.lastPDF[slot] = cosTheta / math.Pi
	out.coneAngle[slot] = coneAngle
	out.coneWidth[slot] = coneWidth
}
