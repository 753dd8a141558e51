package scene

import (
	"math"

	"github.com/achilleasa/helios/types"
)

type CameraDirection uint8

// Camera movement directions.
const (
	Forward CameraDirection = iota
	Backward
	Left
	Right
	Up
	Down
)

// The 4-entry Halton cycle used for sub-pixel jitter under TAA.
var haltonX = [4]float32{0.3, 0.7, 0.2, 0.8}
var haltonY = [4]float32{0.2, 0.8, 0.7, 0.3}

// The camera describes a viewing pyramid: a bottom-left corner ray plus the
// per-pixel X/Y axis steps, rotated by the orientation quaternion. Primary
// ray generation interpolates inside the pyramid; the thin lens model uses
// Aperture and FocalDistance.
type Camera struct {
	Position types.Vec3
	Rotation types.Quat

	// Field of view in radians.
	FOV float32

	Aperture      float32
	FocalDistance float32

	InvWidth  float32
	InvHeight float32

	BottomLeftCorner types.Vec3
	XAxis            types.Vec3
	YAxis            types.Vec3

	BottomLeftCornerRotated types.Vec3
	XAxisRotated            types.Vec3
	YAxisRotated            types.Vec3

	Projection         types.Mat4
	ViewProjection     types.Mat4
	ViewProjectionPrev types.Mat4

	Jitter      types.Vec2
	jitterIndex int

	// Set by Move/LookAround; consumed once per frame by the tracer.
	Moved bool
}

// Create a camera with the given vertical field of view in degrees.
func NewCamera(fovDegrees float32) *Camera {
	return &Camera{
		Rotation:      types.QuatIdent(),
		FOV:           fovDegrees * math.Pi / 180.0,
		FocalDistance: 1.0,
	}
}

// Recompute the viewing pyramid for new frame dimensions.
func (c *Camera) Resize(width, height int) {
	c.InvWidth = 1.0 / float32(width)
	c.InvHeight = 1.0 / float32(height)

	halfWidth := 0.5 * float32(width)
	halfHeight := 0.5 * float32(height)

	// Distance to the viewing plane
	d := halfHeight / float32(math.Tan(0.5*float64(c.FOV)))

	c.BottomLeftCorner = types.Vec3{-halfWidth, -halfHeight, -d}
	c.XAxis = types.Vec3{1, 0, 0}
	c.YAxis = types.Vec3{0, 1, 0}

	c.Projection = types.Perspective4(c.FOV, halfWidth/halfHeight, 0.1, 300.0)
	c.Update(false)
}

// Advance the jitter cycle and recompute the rotated pyramid and the view
// projection matrices. The previous view projection is kept for TAA
// reprojection; the jitter is not applied to either matrix.
func (c *Camera) Update(applyJitter bool) {
	if applyJitter {
		c.Jitter = types.Vec2{
			(haltonX[c.jitterIndex]*2.0 - 1.0) * c.InvWidth,
			(haltonY[c.jitterIndex]*2.0 - 1.0) * c.InvHeight,
		}
	} else {
		c.Jitter = types.Vec2{}
	}
	c.jitterIndex = (c.jitterIndex + 1) & 3

	c.ViewProjectionPrev = c.ViewProjection

	c.BottomLeftCornerRotated = c.Rotation.Rotate(c.BottomLeftCorner)
	c.XAxisRotated = c.Rotation.Rotate(c.XAxis)
	c.YAxisRotated = c.Rotation.Rotate(c.YAxis)

	view := c.Rotation.Conjugate().Mat4().Mul4(types.Translate4(c.Position.Mul(-1)))
	c.ViewProjection = c.Projection.Mul4(view)
}

// Translate the camera along its local axes.
func (c *Camera) Move(dir CameraDirection, amount float32) {
	right := c.Rotation.Rotate(types.Vec3{1, 0, 0})
	forward := c.Rotation.Rotate(types.Vec3{0, 0, -1})

	switch dir {
	case Forward:
		c.Position = c.Position.Add(forward.Mul(amount))
	case Backward:
		c.Position = c.Position.Sub(forward.Mul(amount))
	case Left:
		c.Position = c.Position.Sub(right.Mul(amount))
	case Right:
		c.Position = c.Position.Add(right.Mul(amount))
	case Up:
		c.Position = c.Position.Add(types.Vec3{0, amount, 0})
	case Down:
		c.Position = c.Position.Sub(types.Vec3{0, amount, 0})
	}
	c.Moved = true
}

// Rotate the camera by yaw (around world Y) and pitch (around the local
// right axis) angles in radians.
func (c *Camera) LookAround(deltaYaw, deltaPitch float32) {
	right := c.Rotation.Rotate(types.Vec3{1, 0, 0})

	yawQuat := types.QuatFromAxisAngle(types.Vec3{0, 1, 0}, deltaYaw)
	pitchQuat := types.QuatFromAxisAngle(right, deltaPitch)

	c.Rotation = yawQuat.Mul(pitchQuat).Mul(c.Rotation).Normalize()
	c.Moved = true
}
