package models

import (
	"math"

	"github.com/ianremmler/ode"

	"github.com/smart-home-league/simulation/protocol"
)

// VacuumDEF is the definition name the robot body is registered under.
// The physics plugin resolves the chassis by this name every step.
const VacuumDEF = "VACUUM"

// Yaw extracts the rotation about the vertical axis from a body quaternion
// (w, x, y, z ordering).
func Yaw(q ode.Quaternion) float64 {
	return math.Atan2(2*(q[0]*q[3]+q[1]*q[2]), 1-2*(q[2]*q[2]+q[3]*q[3]))
}

// Wheel ...
type Wheel struct {
	ode.HingeJoint
	body ode.Body
	geom ode.Geom
}

// NewWheel builds one driven wheel and hinges it to the chassis. The wheel
// is a sphere so no geom reorientation is needed; the hinge axis is the
// robot's lateral axis at spawn (the robot spawns facing +x).
func NewWheel(ctx *Context, r *Robot, profile protocol.RobotProfile, offsetY float64) *Wheel {
	radius := profile.WheelDiameter / 2
	mass := ode.NewMass()
	mass.SetSphere(profile.WheelDensity, radius)
	body := ctx.NewBody()
	body.SetMass(mass)
	geom := ctx.Space.NewSphere(radius)
	geom.SetBody(body)

	cp := r.body.Position()
	body.SetPosition(ode.V3(cp[0], cp[1]+offsetY, radius))

	hinge := ctx.World.NewHingeJoint(ode.JointGroup(0))
	hinge.Attach(r.body, body)
	hinge.SetAnchor(ode.V3(cp[0], cp[1]+offsetY, radius))
	hinge.SetAxis(ode.V3(0, 1, 0))
	hinge.SetParam(ode.FMaxJtParam, profile.MotorTorque)
	return &Wheel{HingeJoint: hinge, body: body, geom: geom}
}

// Angle returns the accumulated hinge angle, the encoder reading.
func (w *Wheel) Angle() float64 {
	return w.HingeJoint.Angle()
}

func (w *Wheel) destroy() {
	w.HingeJoint.Destroy()
	w.geom.Destroy()
	w.body.Destroy()
}

// Robot is the differential-drive vacuum: a cylindrical chassis with two
// driven wheels. Created by the supervisor after the simulation starts and
// destroyed on game over, so its body comes and goes under the physics
// plugin.
type Robot struct {
	ctx     *Context
	profile protocol.RobotProfile
	body    ode.Body
	geom    ode.Geom
	wheels  [2]*Wheel

	led         bool
	customData  string
	bumperLeft  bool
	bumperRight bool
}

// NewRobot spawns the robot at translation and registers its chassis under
// VacuumDEF.
func NewRobot(ctx *Context, profile protocol.RobotProfile, translation []float64) *Robot {
	mass := ode.NewMass()
	mass.SetCylinder(profile.ChassisDensity, 3, profile.ChassisRadius, profile.ChassisHeight)
	body := ctx.NewBody()
	body.SetMass(mass)
	geom := ctx.Space.NewCylinder(profile.ChassisRadius, profile.ChassisHeight)
	geom.SetBody(body)
	body.SetPosition(ode.V3(translation[0], translation[1], translation[2]))

	r := &Robot{ctx: ctx, profile: profile, body: body, geom: geom}
	r.wheels[0] = NewWheel(ctx, r, profile, profile.AxleLength/2)
	r.wheels[1] = NewWheel(ctx, r, profile, -profile.AxleLength/2)
	ctx.RegisterDEF(VacuumDEF, body)
	return r
}

// Destroy removes joints, geoms and bodies and unbinds the DEF name.
func (r *Robot) Destroy() {
	r.ctx.UnregisterDEF(VacuumDEF)
	for _, w := range r.wheels {
		w.destroy()
	}
	r.geom.Destroy()
	r.body.Destroy()
}

// Body ...
func (r *Robot) Body() ode.Body {
	return r.body
}

// Position ...
func (r *Robot) Position() ode.Vector3 {
	return r.body.Position()
}

// Yaw ...
func (r *Robot) Yaw() float64 {
	return Yaw(r.body.Quaternion())
}

// SetVelocities sets the wheel velocity servos, clamped to the profile's
// top speed. Index 0 is the left wheel.
func (r *Robot) SetVelocities(left, right float64) {
	max := r.profile.MaxWheelSpeed
	r.wheels[0].SetParam(ode.VelJtParam, clamp(left, -max, max))
	r.wheels[1].SetParam(ode.VelJtParam, clamp(right, -max, max))
}

// Encoders returns the left and right wheel hinge angles.
func (r *Robot) Encoders() (float64, float64) {
	return r.wheels[0].Angle(), r.wheels[1].Angle()
}

// SetLED ...
func (r *Robot) SetLED(on bool) {
	r.led = on
}

// LED ...
func (r *Robot) LED() bool {
	return r.led
}

// SetCustomData stores the free-form payload shared between controller and
// supervisor (team name, room stats, battery).
func (r *Robot) SetCustomData(data string) {
	r.customData = data
}

// CustomData ...
func (r *Robot) CustomData() string {
	return r.customData
}

// MoveTo teleports the robot in the plane, preserving wheel placement, and
// zeroes all velocities, matching the engine's physics reset on relocation.
func (r *Robot) MoveTo(x, y float64) {
	p := r.body.Position()
	dx, dy := x-p[0], y-p[1]
	for _, b := range []ode.Body{r.body, r.wheels[0].body, r.wheels[1].body} {
		bp := b.Position()
		b.SetPosition(ode.V3(bp[0]+dx, bp[1]+dy, bp[2]))
		b.SetLinearVel(ode.V3(0, 0, 0))
		b.SetAngularVel(ode.V3(0, 0, 0))
	}
}

// MarkContact latches a bumper from a chassis contact point. The contact is
// assigned to the left or right bumper by its lateral offset in the robot
// frame; rear contacts are ignored.
func (r *Robot) MarkContact(pos ode.Vector3) {
	p := r.body.Position()
	yaw := r.Yaw()
	dx, dy := pos[0]-p[0], pos[1]-p[1]
	forward := dx*math.Cos(yaw) + dy*math.Sin(yaw)
	lateral := -dx*math.Sin(yaw) + dy*math.Cos(yaw)
	if forward < 0 {
		return
	}
	if lateral >= 0 {
		r.bumperLeft = true
	} else {
		r.bumperRight = true
	}
}

// Bumpers returns and clears the latched bumper flags. Controllers read
// them once per tick, matching the one-shot contact latch.
func (r *Robot) Bumpers() (left, right bool) {
	left, right = r.bumperLeft, r.bumperRight
	r.bumperLeft, r.bumperRight = false, false
	return left, right
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
