package supervisor

import (
	"testing"
	"time"

	"github.com/ianremmler/ode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smart-home-league/simulation/config"
	"github.com/smart-home-league/simulation/dashboard"
	"github.com/smart-home-league/simulation/models"
)

const dt = 0.016

func testSetup(t *testing.T, mutate func(*config.Profile)) (*models.Context, *dashboard.State, *Supervisor) {
	t.Helper()
	ctx := models.NewContext()
	ctx.World.SetGravity(ode.V3(0, 0, -9.81))
	ctx.World.SetAutoDisable(false)
	models.NewArena(ctx, nil)

	profile := config.Default()
	profile.RelocatePositions = [][]float64{{0, 0, 0.0442}, {5, 5, 0.0442}}
	if mutate != nil {
		mutate(&profile)
	}
	dash := dashboard.NewState()
	sup, err := New(ctx, profile, dash, zap.NewNop())
	require.NoError(t, err)
	return ctx, dash, sup
}

func startRun(t *testing.T, dash *dashboard.State, sup *Supervisor) {
	t.Helper()
	dash.RequestRun()
	sup.Step(dt)
	require.True(t, sup.Running())
	require.NotNil(t, sup.Robot())
}

func TestIdleUntilRunRequested(t *testing.T) {
	ctx, _, sup := testSetup(t, nil)
	for i := 0; i < 5; i++ {
		sup.Step(dt)
	}
	assert.False(t, sup.Running())
	assert.Nil(t, sup.Robot())
	body, _ := ctx.BodyFromDEF(models.VacuumDEF)
	assert.EqualValues(t, 0, body)
}

func TestRunSpawnsRobot(t *testing.T) {
	ctx, dash, sup := testSetup(t, nil)
	startRun(t, dash, sup)

	body, world := ctx.BodyFromDEF(models.VacuumDEF)
	assert.Equal(t, sup.Robot().Body(), body)
	assert.Equal(t, ctx.World, world)

	snap, _ := dash.Snapshot()
	assert.NotEmpty(t, snap.RunID)
	assert.False(t, snap.GameOver)
	require.NotNil(t, snap.Battery, "U19 shows the battery gauge")
	assert.InDelta(t, 100, *snap.Battery, 1e-9)
}

func TestSecondRunGetsFreshRobotAndRunID(t *testing.T) {
	ctx, dash, sup := testSetup(t, nil)
	startRun(t, dash, sup)
	firstBody, _ := ctx.BodyFromDEF(models.VacuumDEF)
	first, _ := dash.Snapshot()

	dash.RequestEnd()
	sup.Step(dt)
	require.False(t, sup.Running())

	startRun(t, dash, sup)
	secondBody, _ := ctx.BodyFromDEF(models.VacuumDEF)
	second, _ := dash.Snapshot()
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.NotEqual(t, firstBody, secondBody)
}

func TestBatteryEmptyEndsRun(t *testing.T) {
	ctx, dash, sup := testSetup(t, func(p *config.Profile) {
		p.BatteryDrainRate = 10000 // empties on the first tick
		p.BatteryPositions = nil
	})
	startRun(t, dash, sup)

	sup.Step(dt)
	assert.False(t, sup.Running())
	assert.Nil(t, sup.Robot())
	body, _ := ctx.BodyFromDEF(models.VacuumDEF)
	assert.EqualValues(t, 0, body)

	snap, _ := dash.Snapshot()
	assert.True(t, snap.GameOver)
	assert.Nil(t, snap.Battery)
}

func TestTimeLimitEndsRun(t *testing.T) {
	_, dash, sup := testSetup(t, func(p *config.Profile) {
		p.RunTimeLimit = 0.02
	})
	startRun(t, dash, sup)

	sup.Step(dt)
	sup.Step(dt)
	assert.False(t, sup.Running())
	snap, _ := dash.Snapshot()
	assert.True(t, snap.GameOver)
}

func TestRelocateMovesRobotAndLogsPenalty(t *testing.T) {
	_, dash, sup := testSetup(t, nil)
	startRun(t, dash, sup)

	dash.RequestRelocate()
	sup.Step(dt)
	pos := sup.Robot().Position()
	// Nearest pad to the spawn translation (1.8761, -6.3738).
	assert.InDelta(t, 0, pos[0], 1e-6)
	assert.InDelta(t, 0, pos[1], 1e-6)

	// The penalty shows up in the published score log.
	for i := 0; i < 70; i++ {
		sup.Step(dt)
	}
	snap, _ := dash.Snapshot()
	require.NotEmpty(t, snap.ScoreLog)
	assert.Equal(t, "relocate", snap.ScoreLog[0].Source)
	assert.Equal(t, -40, snap.ScoreLog[0].Points)
}

func TestBoostPadScoresOnce(t *testing.T) {
	_, dash, sup := testSetup(t, func(p *config.Profile) {
		p.Subleague = "U14"
		p.BoostPositions = [][]float64{{1.8761, -6.3738, 0}}
	})
	startRun(t, dash, sup)

	for i := 0; i < 70; i++ {
		sup.Step(dt)
	}
	snap, _ := dash.Snapshot()
	require.NotEmpty(t, snap.ScoreLog)
	assert.Equal(t, "boost", snap.ScoreLog[0].Source)
	assert.Equal(t, 200, snap.ScoreLog[0].Points)
	assert.Len(t, snap.ScoreLog, 1, "each pad scores once")
	assert.Nil(t, snap.Battery, "no battery gauge outside U19")
}

func TestTeamNameFromCustomData(t *testing.T) {
	ctx, dash, sup := testSetup(t, nil)
	startRun(t, dash, sup)

	ctx.Lock()
	sup.Robot().SetCustomData(`{"team": "Dust Busters"}`)
	ctx.Unlock()
	sup.Step(dt)

	snap, _ := dash.Snapshot()
	assert.Equal(t, "Dust Busters", snap.TeamName)
}

func TestTeamNameParsing(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"team": "Alpha"}`, "Alpha"},
		{`{"battery": 50}`, ""},
		{"team:Beta", "Beta"},
		{"led:on, team:Gamma", "Gamma"},
		{"", ""},
		{"nonsense", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, teamNameFrom(tt.raw), "raw=%q", tt.raw)
	}
}

func TestWithRobotTracksLifecycle(t *testing.T) {
	_, dash, sup := testSetup(t, nil)
	assert.False(t, sup.WithRobot(func(*models.Robot) {}), "no robot before the first run")

	startRun(t, dash, sup)
	var seen *models.Robot
	require.True(t, sup.WithRobot(func(r *models.Robot) { seen = r }))
	assert.Equal(t, sup.Robot(), seen)

	dash.RequestEnd()
	sup.Step(dt)
	assert.False(t, sup.WithRobot(func(*models.Robot) {}), "no callback after the run ends")
}

func TestControllerIODuringTeardown(t *testing.T) {
	ctx, dash, sup := testSetup(t, func(p *config.Profile) {
		p.BatteryDrainRate = 10000 // the run dies on the first tick
		p.BatteryPositions = nil
	})
	startRun(t, dash, sup)

	// Controller-style traffic racing the step loop through the teardown:
	// every callback invocation must see a live robot or none at all.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			sup.WithRobot(func(r *models.Robot) {
				r.SetVelocities(5, 5)
				r.Encoders()
			})
		}
	}()
	for i := 0; i < 50; i++ {
		ctx.Iter(16*time.Millisecond, func(data interface{}, obj1, obj2 ode.Geom) {})
		sup.Step(dt)
	}
	<-done
	assert.False(t, sup.Running())
	assert.Nil(t, sup.Robot())
}

func TestStagedProfileAppliesAtNextRun(t *testing.T) {
	_, dash, sup := testSetup(t, nil)
	startRun(t, dash, sup)

	next := config.Default()
	next.Subleague = "U14"
	sup.SetProfile(next)

	// Still the old profile mid-run.
	assert.NotNil(t, sup.Battery())

	dash.RequestEnd()
	sup.Step(dt)
	startRun(t, dash, sup)
	assert.Nil(t, sup.Battery(), "staged U14 profile active")
}
