package scene

import "github.com/achilleasa/helios/types"

// The material kind tag. The sort kernel dispatches each intersection to a
// shade kernel based on this tag.
type MaterialType int32

const (
	MaterialDiffuse MaterialType = iota
	MaterialDielectric
	MaterialGlossy
	MaterialLight
)

func (mt MaterialType) String() string {
	switch mt {
	case MaterialDiffuse:
		return "diffuse"
	case MaterialDielectric:
		return "dielectric"
	case MaterialGlossy:
		return "glossy"
	case MaterialLight:
		return "light"
	}
	return "unknown"
}

// Materials are stored in packed form; the fields that apply depend on the
// Type tag:
//
//   - DIFFUSE:    Diffuse tint, optional TextureID
//   - DIELECTRIC: IndexOfRefraction and per-channel Absorption (Lambert-Beer)
//   - GLOSSY:     Diffuse tint, optional TextureID, Roughness, IndexOfRefraction
//   - LIGHT:      Emission radiance
type Material struct {
	Type MaterialType

	Diffuse   types.Vec3
	TextureID int32

	Emission types.Vec3

	IndexOfRefraction float32
	Absorption        types.Vec3

	Roughness float32
}

// Create a diffuse material with an optional texture.
func DiffuseMaterial(tint types.Vec3, textureID int32) Material {
	return Material{Type: MaterialDiffuse, Diffuse: tint, TextureID: textureID}
}

// Create a glass-like material.
func DielectricMaterial(ior float32, absorption types.Vec3) Material {
	return Material{Type: MaterialDielectric, IndexOfRefraction: ior, Absorption: absorption, TextureID: -1}
}

// Create a microfacet material.
func GlossyMaterial(tint types.Vec3, textureID int32, ior, roughness float32) Material {
	return Material{Type: MaterialGlossy, Diffuse: tint, TextureID: textureID, IndexOfRefraction: ior, Roughness: roughness}
}

// Create an emissive material.
func LightMaterial(emission types.Vec3) Material {
	return Material{Type: MaterialLight, Emission: emission, TextureID: -1}
}
