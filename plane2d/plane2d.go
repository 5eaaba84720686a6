// Package plane2d constrains the vacuum robot to planar motion. A plane-2d
// joint locks vertical translation and the two horizontal rotation axes, and
// a per-step pass corrects the residual drift the joint does not suppress:
// height, roll/pitch, and roll/pitch spin.
package plane2d

import (
	"math"

	"github.com/ianremmler/ode"

	"github.com/smart-home-league/simulation/models"
)

// RideHeight is the chassis ground clearance. The plane-2d joint pins the
// body to its construction plane at z=0; the robot rests this far above it.
const RideHeight = 0.0442

// Handler tracks the robot body by definition name. The body is created by
// the supervisor after the simulation starts and is replaced wholesale on
// reset, so every step re-resolves the name and compares handles: a new
// handle means a fresh attach, an unbound name means the robot is gone.
type Handler struct {
	body  ode.Body
	joint ode.Plane2DJoint
	world ode.World

	def    string
	height float64
}

// NewHandler ...
func NewHandler() *Handler {
	return &Handler{def: models.VacuumDEF, height: RideHeight}
}

// Init implements models.Plugin. The robot does not exist at load time, so
// all setup is deferred to the first Step that observes it.
func (h *Handler) Init(ctx *models.Context) {}

// Step implements models.Plugin.
func (h *Handler) Step(ctx *models.Context) {
	body, world := ctx.BodyFromDEF(h.def)
	if body == 0 {
		if h.body != 0 {
			h.detach()
		}
		return
	}
	if h.body == 0 {
		h.attach(body, world)
	} else if body != h.body {
		// Handle changed: new robot instance after a reset.
		h.detach()
		h.attach(body, world)
	}

	// The joint holds z at its construction plane, not at ride height.
	pos := h.body.Position()
	h.body.SetPosition(ode.V3(pos[0], pos[1], h.height))

	// Re-square the attitude to yaw only. The joint bounds translation but
	// roll/pitch still drift under repeated integration.
	q := h.body.Quaternion()
	yaw := math.Atan2(2*(q[0]*q[3]+q[1]*q[2]), 1-2*(q[2]*q[2]+q[3]*q[3]))
	h.body.SetQuaternion(ode.Quaternion{math.Cos(yaw / 2), 0, 0, math.Sin(yaw / 2)})

	avel := h.body.AngularVel()
	h.body.SetAngularVel(ode.V3(0, 0, avel[2]))
}

// Collide implements models.Plugin; zero defers every pair to the default
// contact handling.
func (h *Handler) Collide(g1, g2 ode.Geom) int {
	return 0
}

// Cleanup implements models.Plugin.
func (h *Handler) Cleanup(ctx *models.Context) {
	if h.body != 0 {
		h.detach()
	}
}

// Tracking reports whether a robot body is currently constrained.
func (h *Handler) Tracking() bool {
	return h.body != 0
}

func (h *Handler) attach(body ode.Body, world ode.World) {
	h.body = body
	h.world = world
	h.joint = h.world.NewPlane2DJoint(ode.JointGroup(0))
	h.joint.Attach(h.body, ode.Body(0))
}

func (h *Handler) detach() {
	var none ode.Plane2DJoint
	h.joint.Destroy()
	h.joint = none
	h.body = 0
	h.world = 0
}
