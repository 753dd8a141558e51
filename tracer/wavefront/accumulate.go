package wavefront

// Plain progressive reconstruction: an online average of the per-frame
// radiance over the frames rendered since the camera last moved. Frame 0
// replaces the accumulator contents.
func (tr *wfTracer) accumulateBody(x, y int) {
	pixel := int32(x) + int32(y)*tr.frame.pitch

	color := tr.frame.direct[pixel].Vec3().Add(tr.frame.indirect[pixel].Vec3())
	if tr.settings.EnableAlbedo {
		color = color.MulVec3(tr.frame.albedo[pixel].Vec3())
	}
	color = sanitizeRadiance(color)

	n := tr.framesSinceCameraMoved
	if n == 0 {
		tr.frame.accumulator[pixel] = color.Vec4(1)
		return
	}

	prev := tr.frame.accumulator[pixel].Vec3()
	mean := prev.Add(color.Sub(prev).Mul(1.0 / float32(n+1)))
	tr.frame.accumulator[pixel] = mean.Vec4(1)
}
