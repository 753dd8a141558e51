package wavefront

import (
	"math"

	"github.com/achilleasa/helios/scene"
	"github.com/achilleasa/helios/types"
)

// Glossy lobes below this roughness behave like mirrors: their emission
// pickup is treated delta-like and excluded from MIS.
const glossyMISRoughnessCutoff = 0.2

// The albedo buffer is maintained whenever something consumes it: the SVGF
// demodulation path, the final modulation, or an explicit request to keep it
// populated while SVGF is off.
func (tr *wfTracer) albedoBufferActive() bool {
	return tr.settings.EnableSVGF || tr.settings.EnableAlbedo || tr.settings.ModulateAlbedo
}

// Build an orthonormal basis around a unit normal (Duff et al. 2017).
func orthonormalBasis(n types.Vec3) (tangent, bitangent types.Vec3) {
	sign := float32(1)
	if n[2] < 0 {
		sign = -1
	}
	a := -1.0 / (sign + n[2])
	b := n[0] * n[1] * a

	tangent = types.Vec3{1 + sign*n[0]*n[0]*a, sign * b, -sign * n[0]}
	bitangent = types.Vec3{b, sign + n[1]*n[1]*a, -n[1]}
	return tangent, bitangent
}

func localToWorld(v, tangent, bitangent, normal types.Vec3) types.Vec3 {
	return tangent.Mul(v[0]).Add(bitangent.Mul(v[1])).Add(normal.Mul(v[2]))
}

// Cosine-weighted hemisphere sample around +Z; pdf = cos(theta)/pi.
func sampleCosineHemisphere(r1, r2 float32) types.Vec3 {
	radius := float32(math.Sqrt(float64(r1)))
	theta := 2 * math.Pi * float64(r2)

	x := radius * float32(math.Cos(theta))
	y := radius * float32(math.Sin(theta))
	z := float32(math.Sqrt(math.Max(0, float64(1-r1))))
	return types.Vec3{x, y, z}
}

// Resolve the surface albedo at a hit, selecting the texture filter by
// bounce: anisotropic from the G-buffer footprint gradients on the camera
// bounce when a G-buffer is bound, trilinear from the ray cone width otherwise.
func (tr *wfTracer) sampleAlbedo(mat *scene.Material, tri *scene.Triangle, u, v float32, bounce int, pixelIndex int32, coneWidth, dirDotN float32) types.Vec3 {
	if mat.TextureID < 0 || int(mat.TextureID) >= len(tr.sc.Textures) {
		return mat.Diffuse
	}
	tex := tr.sc.Textures[mat.TextureID]
	uv := tri.TexCoordAt(u, v)

	if bounce == 0 && tr.gbuffer != nil {
		x := pixelIndex % tr.frame.pitch
		y := pixelIndex / tr.frame.pitch
		grad := tr.gbuffer.UVGradient[x+y*tr.gbuffer.Width]
		return mat.Diffuse.MulVec3(tex.SampleAnisotropic(uv[0], uv[1],
			types.Vec2{grad[0], grad[1]}, types.Vec2{grad[2], grad[3]}))
	}

	lod := textureLOD(tri, tex, coneWidth, dirDotN)
	return mat.Diffuse.MulVec3(tex.SampleTrilinear(uv[0], uv[1], lod))
}

// A single next-event sample: a point on a light triangle with its surface
// normal, emitted radiance and the solid-angle pdf of having picked it from
// the given shading point.
type neeSample struct {
	direction   types.Vec3
	distance    float32
	emission    types.Vec3
	solidPdf    float32
	lightNormal types.Vec3
}

// Pick a light proportional to area and sample a uniform point on it.
// Lights emit from both faces. Returns false when the sampled point is
// edge-on to the shading point or coincides with it.
func (tr *wfTracer) sampleLight(sampler *pixelSampler, bounce int, hitPoint types.Vec3) (neeSample, bool) {
	var out neeSample

	lightID := tr.sc.Lights.Pick(sampler.sample(dimBase(bounce) + dimOffsetNEELight))
	lightTri := &tr.sc.Triangles[lightID]

	// Uniform barycentric point on the light triangle.
	u := sampler.sample(dimBase(bounce) + dimOffsetNEEU)
	v := sampler.sample(dimBase(bounce) + dimOffsetNEEV)
	if u+v > 1 {
		u, v = 1-u, 1-v
	}
	lightPoint := lightTri.PositionAt(u, v)

	toLight := lightPoint.Sub(hitPoint)
	distance := toLight.Len()
	if distance <= scene.RayEpsilon {
		return out, false
	}
	direction := toLight.Mul(1.0 / distance)

	lightNormal := lightTri.GeometricNormal()
	cosLight := -lightNormal.Dot(direction)
	if cosLight < 0 {
		// Lights emit from both faces.
		lightNormal = lightNormal.Mul(-1)
		cosLight = -cosLight
	}
	if cosLight <= 1e-6 {
		return out, false
	}

	out.direction = direction
	out.distance = distance
	out.emission = tr.sc.Materials[lightTri.MaterialID].Emission
	out.lightNormal = lightNormal

	// Area pdf 1/total over all lights, converted to solid angle.
	out.solidPdf = distance * distance / (cosLight * tr.sc.Lights.TotalArea)
	return out, true
}

// Stage a shadow ray carrying its precomputed radiance; the shadow trace
// kernel deposits it if the path to the light is clear.
func (tr *wfTracer) stageShadowRay(bounce int, origin, direction types.Vec3, distance float32, pixelIndex int32, illumination types.Vec3) {
	slot := tr.rays.allocShadow(bounce)
	sb := &tr.rays.shadow

	sb.origin[slot] = origin
	sb.direction[slot] = direction
	sb.maxDistance[slot] = distance - scene.RayEpsilon
	sb.pixelIndex[slot] = pixelIndex
	sb.illumination[slot] = illumination
}

// Balance heuristic weight for strategy a against strategy b.
func misWeight(pdfA, pdfB float32) float32 {
	return pdfA / (pdfA + pdfB)
}

// Schlick's approximation of the Fresnel reflectance.
func schlick(cosTheta, r0 float32) float32 {
	m := 1 - cosTheta
	return r0 + (1-r0)*m*m*m*m*m
}

func fresnelR0(ior float32) float32 {
	r := (1 - ior) / (1 + ior)
	return r * r
}
