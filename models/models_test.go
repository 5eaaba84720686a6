package models

import (
	"math"
	"testing"
	"time"

	"github.com/ianremmler/ode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-home-league/simulation/protocol"
)

func callback(data interface{}, obj1, obj2 ode.Geom) {
	ctx := data.(*Context)
	body1, body2 := obj1.Body(), obj2.Body()
	if body1 != 0 && body2 != 0 && body1.Connected(body2) {
		return
	}
	cts := obj1.Collide(obj2, 1, 0)
	if len(cts) > 0 {
		contact := ode.NewContact()
		contact.Surface.Mode = 0
		contact.Surface.Mu = 0.9
		contact.Surface.Mu2 = 0
		contact.Geom = cts[0]
		ct := ctx.World.NewContactJoint(ctx.JointGroup, contact)
		ct.Attach(body1, body2)
	}
}

func testProfile() protocol.RobotProfile {
	return protocol.RobotProfile{
		ChassisDensity: 0.4,
		ChassisRadius:  0.17,
		ChassisHeight:  0.06,
		WheelDensity:   0.1,
		WheelDiameter:  0.062,
		AxleLength:     0.271756,
		RideHeight:     0.0442,
		MaxWheelSpeed:  25.0,
		MotorTorque:    5.0,
	}
}

func newTestContext() *Context {
	ctx := NewContext()
	ctx.World.SetGravity(ode.V3(0, 0, -9.81))
	ctx.World.SetAutoDisable(false)
	return ctx
}

func TestRobotSettles(t *testing.T) {
	ctx := newTestContext()
	NewArena(ctx, nil)
	robot := NewRobot(ctx, testProfile(), []float64{0, 0, 0.0442})
	for i := 0; i < 1000; i++ {
		ctx.Iter(16*time.Millisecond, callback)
	}
	pos := robot.Position()
	assert.False(t, math.IsNaN(pos[0]))
	assert.False(t, math.IsNaN(pos[1]))
	assert.Greater(t, pos[2], 0.0)
	assert.Less(t, pos[2], 0.5)
}

func TestDriveAdvancesEncoders(t *testing.T) {
	ctx := newTestContext()
	NewArena(ctx, nil)
	robot := NewRobot(ctx, testProfile(), []float64{0, 0, 0.0442})
	start := robot.Position()
	robot.SetVelocities(10, 10)
	for i := 0; i < 200; i++ {
		ctx.Iter(16*time.Millisecond, callback)
	}
	pos := robot.Position()
	assert.Greater(t, math.Hypot(pos[0]-start[0], pos[1]-start[1]), 0.05)
	left, right := robot.Encoders()
	assert.False(t, left == 0 && right == 0)
}

func TestDEFRegistry(t *testing.T) {
	ctx := newTestContext()
	body, world := ctx.BodyFromDEF("VACUUM")
	assert.EqualValues(t, 0, body)
	assert.EqualValues(t, 0, world)

	first := ctx.NewBody()
	ctx.RegisterDEF("VACUUM", first)
	body, world = ctx.BodyFromDEF("VACUUM")
	assert.Equal(t, first, body)
	assert.Equal(t, ctx.World, world)

	second := ctx.NewBody()
	ctx.RegisterDEF("VACUUM", second)
	body, _ = ctx.BodyFromDEF("VACUUM")
	assert.Equal(t, second, body)

	ctx.UnregisterDEF("VACUUM")
	body, _ = ctx.BodyFromDEF("VACUUM")
	assert.EqualValues(t, 0, body)
}

func TestRobotDestroyUnbindsDEF(t *testing.T) {
	ctx := newTestContext()
	robot := NewRobot(ctx, testProfile(), []float64{0, 0, 0.0442})
	body, _ := ctx.BodyFromDEF(VacuumDEF)
	require.Equal(t, robot.Body(), body)

	robot.Destroy()
	body, _ = ctx.BodyFromDEF(VacuumDEF)
	assert.EqualValues(t, 0, body)
}

func TestYaw(t *testing.T) {
	for _, want := range []float64{0, 0.25, -1.2, math.Pi / 2, 3.0} {
		q := ode.Quaternion{math.Cos(want / 2), 0, 0, math.Sin(want / 2)}
		assert.InDelta(t, want, Yaw(q), 1e-9)
	}
}

func TestMoveToZeroesVelocity(t *testing.T) {
	ctx := newTestContext()
	NewArena(ctx, nil)
	robot := NewRobot(ctx, testProfile(), []float64{0, 0, 0.0442})
	robot.SetVelocities(20, 20)
	for i := 0; i < 100; i++ {
		ctx.Iter(16*time.Millisecond, callback)
	}

	robot.MoveTo(3, -2)
	pos := robot.Position()
	assert.InDelta(t, 3, pos[0], 1e-9)
	assert.InDelta(t, -2, pos[1], 1e-9)
	vel := robot.Body().LinearVel()
	assert.InDelta(t, 0, vel[0], 1e-9)
	assert.InDelta(t, 0, vel[1], 1e-9)
	assert.InDelta(t, 0, vel[2], 1e-9)
}
