package wavefront

import (
	"math"

	"github.com/achilleasa/helios/types"
)

// History shorter than this falls back to spatial variance estimation.
const varianceHistoryThreshold = 4

// Temporal blend floor keeps the filter responsive to lighting changes even
// with a long history.
const temporalAlphaMin = 0.2

func luminance(v types.Vec3) float32 {
	return 0.2126*v[0] + 0.7152*v[1] + 0.0722*v[2]
}

// Consistency test between the current surface and a history tap.
func (tr *wfTracer) historyValid(x, y int32, normal types.Vec3, depth float32, depthGradient types.Vec2, offset types.Vec2) bool {
	if x < 0 || x >= tr.width || y < 0 || y >= tr.height {
		return false
	}

	prev := tr.frame.historyNormalAndDepth[x+y*tr.frame.pitch]
	prevNormal := prev.Vec3()
	if prevNormal.Dot(normal) < 0.9 {
		return false
	}

	expectedDelta := absf(depthGradient.Dot(offset)) + 1e-2
	return absf(prev[3]-depth) <= 2*expectedDelta
}

// Temporal reprojection: follow the G-buffer motion into the previous frame,
// validate the history taps against the current normal and depth, blend the
// direct/indirect lighting and the luminance moments and bump the history
// length (clamped to 255). Pixels without a valid history restart at length
// 1 and leave variance estimation to the spatial pass.
func (tr *wfTracer) svgfTemporalBody(x, y int) {
	pixel := int32(x) + int32(y)*tr.frame.pitch
	gbi := int32(x) + int32(y)*tr.gbuffer.Width

	curDirect := tr.frame.direct[pixel].Vec3()
	curIndirect := tr.frame.indirect[pixel].Vec3()

	lumD := luminance(curDirect)
	lumI := luminance(curIndirect)
	curMoments := types.Vec4{lumD, lumD * lumD, lumI, lumI * lumI}

	nd := tr.gbuffer.NormalAndDepth[gbi]
	normal := nd.Vec3()
	depth := nd[3]
	depthGradient := tr.gbuffer.DepthGradient[gbi]

	prevPos := tr.gbuffer.ScreenPositionPrev[gbi]

	// 2x2 bilinear tap around the reprojected position.
	fx := prevPos[0] - 0.5
	fy := prevPos[1] - 0.5
	x0 := int32(math.Floor(float64(fx)))
	y0 := int32(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	tapWeights := [4]float32{
		(1 - tx) * (1 - ty),
		tx * (1 - ty),
		(1 - tx) * ty,
		tx * ty,
	}
	tapOffsets := [4][2]int32{{0, 0}, {1, 0}, {0, 1}, {1, 1}}

	var histDirect, histIndirect types.Vec3
	var histMoments types.Vec4
	var histLength float32
	var weightSum float32

	for tap := 0; tap < 4; tap++ {
		tapX := x0 + tapOffsets[tap][0]
		tapY := y0 + tapOffsets[tap][1]
		offset := types.Vec2{float32(tapX) - float32(x), float32(tapY) - float32(y)}
		if !tr.historyValid(tapX, tapY, normal, depth, depthGradient, offset) {
			continue
		}

		w := tapWeights[tap]
		if w <= 0 {
			continue
		}
		tapPixel := tapX + tapY*tr.frame.pitch

		histDirect = histDirect.Add(tr.frame.historyDirect[tapPixel].Vec3().Mul(w))
		histIndirect = histIndirect.Add(tr.frame.historyIndirect[tapPixel].Vec3().Mul(w))
		histMoments = histMoments.Add(tr.frame.historyMoment[tapPixel].Mul(w))
		histLength += float32(tr.frame.historyLength[tapPixel]) * w
		weightSum += w
	}

	var newLength int32
	integratedDirect := curDirect
	integratedIndirect := curIndirect
	integratedMoments := curMoments

	if weightSum > 0.01 {
		invW := 1.0 / weightSum
		histDirect = histDirect.Mul(invW)
		histIndirect = histIndirect.Mul(invW)
		histMoments = histMoments.Mul(invW)

		newLength = int32(histLength*invW+0.5) + 1
		if newLength > 255 {
			newLength = 255
		}

		alpha := 1.0 / float32(newLength)
		if alpha < temporalAlphaMin {
			alpha = temporalAlphaMin
		}

		integratedDirect = types.LerpVec3(histDirect, curDirect, alpha)
		integratedIndirect = types.LerpVec3(histIndirect, curIndirect, alpha)
		integratedMoments = types.LerpVec4(histMoments, curMoments, alpha)
	} else {
		newLength = 1
	}

	var varDirect, varIndirect float32
	if newLength >= varianceHistoryThreshold {
		varDirect = maxf(0, integratedMoments[1]-integratedMoments[0]*integratedMoments[0])
		varIndirect = maxf(0, integratedMoments[3]-integratedMoments[2]*integratedMoments[2])
	}

	tr.frame.direct[pixel] = sanitizeRadiance(integratedDirect).Vec4(varDirect)
	tr.frame.indirect[pixel] = sanitizeRadiance(integratedIndirect).Vec4(varIndirect)
	tr.frame.moment[pixel] = integratedMoments

	tr.frame.historyLength[pixel] = newLength
	tr.frame.historyDirect[pixel] = tr.frame.direct[pixel]
	tr.frame.historyIndirect[pixel] = tr.frame.indirect[pixel]
	tr.frame.historyMoment[pixel] = integratedMoments
	tr.frame.historyNormalAndDepth[pixel] = nd
}

// Spatial variance estimation for pixels whose temporal history is too short
// to trust the integrated moments: a 7x7 edge-aware neighborhood estimate
// written into the alpha channel of the output color.
func (tr *wfTracer) svgfVarianceBody(x, y int) {
	pixel := int32(x) + int32(y)*tr.frame.pitch

	if tr.frame.historyLength[pixel] >= varianceHistoryThreshold {
		tr.launch.directOut[pixel] = tr.launch.directIn[pixel]
		tr.launch.indirectOut[pixel] = tr.launch.indirectIn[pixel]
		return
	}

	gbi := int32(x) + int32(y)*tr.gbuffer.Width
	nd := tr.gbuffer.NormalAndDepth[gbi]
	normal := nd.Vec3()
	depth := nd[3]
	depthGradient := tr.gbuffer.DepthGradient[gbi]

	var moments types.Vec4
	var sumDirect, sumIndirect types.Vec3
	var weightSum float32

	for dy := int32(-3); dy <= 3; dy++ {
		for dx := int32(-3); dx <= 3; dx++ {
			qx, qy := int32(x)+dx, int32(y)+dy
			if qx < 0 || qx >= tr.width || qy < 0 || qy >= tr.height {
				continue
			}
			q := qx + qy*tr.frame.pitch
			qgb := qx + qy*tr.gbuffer.Width

			qnd := tr.gbuffer.NormalAndDepth[qgb]
			wNormal := powf(maxf(0, qnd.Vec3().Dot(normal)), tr.settings.Svgf.PhiNormal)
			expectedDelta := absf(depthGradient.Dot(types.Vec2{float32(dx), float32(dy)})) + 1e-2
			wDepth := expf(-absf(qnd[3]-depth) / (tr.settings.Svgf.PhiDepth*expectedDelta + 1e-4))

			w := wNormal * wDepth
			if w <= 0 {
				continue
			}

			d := tr.launch.directIn[q].Vec3()
			i := tr.launch.indirectIn[q].Vec3()
			lumD := luminance(d)
			lumI := luminance(i)

			moments = moments.Add(types.Vec4{lumD, lumD * lumD, lumI, lumI * lumI}.Mul(w))
			sumDirect = sumDirect.Add(d.Mul(w))
			sumIndirect = sumIndirect.Add(i.Mul(w))
			weightSum += w
		}
	}

	if weightSum <= 0 {
		tr.launch.directOut[pixel] = tr.launch.directIn[pixel]
		tr.launch.indirectOut[pixel] = tr.launch.indirectIn[pixel]
		return
	}

	invW := 1.0 / weightSum
	moments = moments.Mul(invW)
	varDirect := maxf(0, moments[1]-moments[0]*moments[0])
	varIndirect := maxf(0, moments[3]-moments[2]*moments[2])

	tr.launch.directOut[pixel] = sumDirect.Mul(invW).Vec4(varDirect)
	tr.launch.indirectOut[pixel] = sumIndirect.Mul(invW).Vec4(varIndirect)
}

// B3 spline taps for the a-trous wavelet.
var atrousKernel = [5]float32{1.0 / 16.0, 1.0 / 4.0, 3.0 / 8.0, 1.0 / 4.0, 1.0 / 16.0}

// One a-trous wavelet iteration with luminance, normal and depth edge stops.
// The step size doubles every iteration; variance rides in the alpha channel
// and is filtered with squared weights.
func (tr *wfTracer) svgfAtrousBody(x, y int) {
	pixel := int32(x) + int32(y)*tr.frame.pitch
	gbi := int32(x) + int32(y)*tr.gbuffer.Width
	step := tr.launch.atrousStep
	svgf := &tr.settings.Svgf

	nd := tr.gbuffer.NormalAndDepth[gbi]
	normal := nd.Vec3()
	depth := nd[3]
	depthGradient := tr.gbuffer.DepthGradient[gbi]

	centerDirect := tr.launch.directIn[pixel]
	centerIndirect := tr.launch.indirectIn[pixel]
	lumDirect := luminance(centerDirect.Vec3())
	lumIndirect := luminance(centerIndirect.Vec3())

	sigmaDirect := svgf.PhiLuminance*sqrtf(maxf(0, centerDirect[3])) + 1e-4
	sigmaIndirect := svgf.PhiLuminance*sqrtf(maxf(0, centerIndirect[3])) + 1e-4

	var sumDirect, sumIndirect types.Vec3
	var sumVarDirect, sumVarIndirect float32
	var weightSumDirect, weightSumIndirect float32

	for ky := 0; ky < 5; ky++ {
		for kx := 0; kx < 5; kx++ {
			dx := int32(kx-2) * step
			dy := int32(ky-2) * step
			qx, qy := int32(x)+dx, int32(y)+dy
			if qx < 0 || qx >= tr.width || qy < 0 || qy >= tr.height {
				continue
			}
			q := qx + qy*tr.frame.pitch
			qgb := qx + qy*tr.gbuffer.Width

			h := atrousKernel[kx] * atrousKernel[ky]

			qnd := tr.gbuffer.NormalAndDepth[qgb]
			wNormal := powf(maxf(0, qnd.Vec3().Dot(normal)), svgf.PhiNormal)
			expectedDelta := absf(depthGradient.Dot(types.Vec2{float32(dx), float32(dy)})) + 1e-2
			wDepth := expf(-absf(qnd[3]-depth) / (svgf.PhiDepth*expectedDelta + 1e-4))

			qDirect := tr.launch.directIn[q]
			qIndirect := tr.launch.indirectIn[q]

			wDirect := h * wNormal * wDepth * expf(-absf(luminance(qDirect.Vec3())-lumDirect)/sigmaDirect)
			wIndirect := h * wNormal * wDepth * expf(-absf(luminance(qIndirect.Vec3())-lumIndirect)/sigmaIndirect)

			sumDirect = sumDirect.Add(qDirect.Vec3().Mul(wDirect))
			sumVarDirect += qDirect[3] * wDirect * wDirect
			weightSumDirect += wDirect

			sumIndirect = sumIndirect.Add(qIndirect.Vec3().Mul(wIndirect))
			sumVarIndirect += qIndirect[3] * wIndirect * wIndirect
			weightSumIndirect += wIndirect
		}
	}

	outDirect := centerDirect
	if weightSumDirect > 0 {
		outDirect = sumDirect.Mul(1.0 / weightSumDirect).Vec4(sumVarDirect / (weightSumDirect * weightSumDirect))
	}
	outIndirect := centerIndirect
	if weightSumIndirect > 0 {
		outIndirect = sumIndirect.Mul(1.0 / weightSumIndirect).Vec4(sumVarIndirect / (weightSumIndirect * weightSumIndirect))
	}

	tr.launch.directOut[pixel] = outDirect
	tr.launch.indirectOut[pixel] = outIndirect
}

// Combine the filtered direct and indirect lighting, optionally re-modulate
// the albedo factored out on the camera bounce, and publish the result to
// the TAA input or straight to the accumulator surface.
func (tr *wfTracer) svgfFinalizeBody(x, y int) {
	pixel := int32(x) + int32(y)*tr.frame.pitch

	color := tr.launch.directIn[pixel].Vec3().Add(tr.launch.indirectIn[pixel].Vec3())
	if tr.settings.EnableAlbedo {
		color = color.MulVec3(tr.frame.albedo[pixel].Vec3())
	}
	color = sanitizeRadiance(color)

	if tr.launch.finalizeTargetTAA {
		tr.frame.taaCurr[pixel] = color.Vec4(1)
	} else {
		tr.frame.accumulator[pixel] = color.Vec4(1)
	}
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func sqrtf(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

func powf(base, exp float32) float32 {
	return float32(math.Pow(float64(base), float64(exp)))
}
