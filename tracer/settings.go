package tracer

// The reconstruction filter applied to sub-pixel jitter when TAA is off.
type ReconstructionFilter uint8

const (
	FilterBox ReconstructionFilter = iota
	FilterGaussian
)

// Edge-stopping and iteration parameters for the SVGF filter.
type SvgfSettings struct {
	AtrousIterations int

	PhiLuminance float32
	PhiNormal    float32
	PhiDepth     float32
}

// The per-frame render settings. Settings carries only comparable fields so
// the tracer can detect changes between frames with a plain comparison.
type Settings struct {
	// Number of path bounces, 1..MaxBounces.
	NumBounces int

	// Use the hybrid primary pass: re-lift rasterized G-buffers into rays
	// instead of tracing bounce 0.
	EnableRasterization bool

	// Enable the SVGF denoising pipeline.
	EnableSVGF bool

	// Estimate variance spatially when the temporal history is short.
	EnableSpatialVariance bool

	// Enable temporal anti-aliasing. Forces Halton jitter.
	EnableTAA bool

	// Modulate the final color by albedo.
	EnableAlbedo bool

	// Write the albedo buffer even when SVGF is off.
	ModulateAlbedo bool

	EnableNextEventEstimation        bool
	EnableMultipleImportanceSampling bool

	// Ignored when TAA is enabled.
	ReconstructionFilter ReconstructionFilter

	CameraAperture      float32
	CameraFocalDistance float32

	Svgf SvgfSettings
}

// The default per-frame settings.
func DefaultSettings() Settings {
	return Settings{
		NumBounces:                       4,
		EnableNextEventEstimation:        true,
		EnableMultipleImportanceSampling: true,
		EnableAlbedo:                     true,
		CameraFocalDistance:              1.0,
		Svgf: SvgfSettings{
			AtrousIterations: 4,
			PhiLuminance:     4.0,
			PhiNormal:        128.0,
			PhiDepth:         1.0,
		},
	}
}
