// Package supervisor runs the competition: it spawns and removes the vacuum
// robot, tracks cleaning and scoring, and feeds the web dashboard. Robot
// creation happens here, after the simulation has started, which is why the
// physics plugin has to pick the body up mid-run.
package supervisor

import (
	"encoding/json"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smart-home-league/simulation/config"
	"github.com/smart-home-league/simulation/dashboard"
	"github.com/smart-home-league/simulation/models"
)

const baseScore = 1000

// robotPayload is the JSON written into the robot's custom data each update.
type robotPayload struct {
	Battery     *float64        `json:"battery,omitempty"`
	RoomNumbers []int           `json:"roomNumbers,omitempty"`
	RoomPcts    map[int]float64 `json:"roomPcts,omitempty"`
	CurrentRoom *int            `json:"currentRoom,omitempty"`
	Team        string          `json:"team,omitempty"`
}

// Supervisor ...
type Supervisor struct {
	ctx  *models.Context
	dash *dashboard.State
	log  *zap.Logger

	mu      sync.Mutex
	profile config.Profile
	pending *config.Profile
	rooms   []Polygon
	grid    *Grid

	// robot only transitions while the physics lock is held, so anyone
	// holding that lock sees either nil or a live body.
	robot atomic.Pointer[models.Robot]

	running    bool
	runID      string
	teamName   string
	battery    float64
	usedBoost  []bool
	scoreLog   []dashboard.ScoreEntry
	simTime    float64
	startTime  float64
	lastUpdate float64
}

// New ...
func New(ctx *models.Context, profile config.Profile, dash *dashboard.State, log *zap.Logger) (*Supervisor, error) {
	s := &Supervisor{ctx: ctx, dash: dash, log: log}
	if err := s.apply(profile); err != nil {
		return nil, err
	}
	dash.SetSubleague(profile.Subleague)
	return s, nil
}

// apply installs a profile and rebuilds the room layout and grid.
func (s *Supervisor) apply(profile config.Profile) error {
	rooms := make([]Polygon, 0, len(profile.RoomPolygons))
	for _, poly := range profile.RoomPolygons {
		p := make(Polygon, 0, len(poly))
		for _, v := range poly {
			p = append(p, [2]float64{v[0], v[1]})
		}
		rooms = append(rooms, p)
	}
	if profile.FloorPlan != "" {
		loaded, err := models.LoadFloorPlan(profile.FloorPlan)
		if err != nil {
			return err
		}
		for _, room := range loaded {
			rooms = append(rooms, Polygon(room.Polygon))
		}
	}
	if profile.Subleague == "U19" {
		// U19 scores the whole house, not per room.
		rooms = nil
	}

	s.profile = profile
	s.rooms = rooms
	s.grid = NewGrid(
		profile.GridCells[0], profile.GridCells[1],
		profile.GroundSize[0], profile.GroundSize[1],
		rooms,
	)
	return nil
}

// SetProfile stages a profile edit; it takes effect at the next run.
func (s *Supervisor) SetProfile(profile config.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &profile
	s.log.Info("profile staged for next run", zap.String("subleague", profile.Subleague))
}

// Robot returns the live robot, nil between runs. Callers that will touch
// the body must use WithRobot instead: the pointer returned here can be
// destroyed by the step loop at any moment.
func (s *Supervisor) Robot() *models.Robot {
	return s.robot.Load()
}

// WithRobot runs fn with the live robot under the physics lock and reports
// whether a robot existed. Because the robot pointer only changes while the
// physics lock is held, fn never operates on destroyed joints or bodies.
func (s *Supervisor) WithRobot(fn func(*models.Robot)) bool {
	s.ctx.Lock()
	defer s.ctx.Unlock()
	robot := s.robot.Load()
	if robot == nil {
		return false
	}
	fn(robot)
	return true
}

// Running ...
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Remaining returns the seconds left in the current run.
func (s *Supervisor) Remaining() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked()
}

func (s *Supervisor) remainingLocked() float64 {
	if !s.running {
		return 0
	}
	return math.Max(0, s.profile.RunTimeLimit-(s.simTime-s.startTime))
}

// Battery returns the battery level for U19 runs, nil otherwise.
func (s *Supervisor) Battery() *float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile.Subleague != "U19" || !s.running {
		return nil
	}
	level := s.battery
	return &level
}

// Step advances the competition by dt seconds of simulation time. Called
// from the step loop after each physics iteration.
func (s *Supervisor) Step(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simTime += dt

	if !s.running {
		if s.dash.ConsumeRunRequest() {
			s.reset()
		}
		return
	}
	if s.dash.ConsumeRelocateRequest() {
		s.relocate()
	}
	if s.dash.ConsumeEndRequest() {
		s.finish("ended from dashboard")
		return
	}
	robot := s.robot.Load()
	if robot == nil {
		return
	}

	s.ctx.Lock()
	pos := robot.Position()
	raw := robot.CustomData()
	s.ctx.Unlock()

	if team := teamNameFrom(raw); team != "" && team != s.teamName {
		s.teamName = team
		s.dash.SetTeamName(team)
	}

	s.grid.Clean(pos[0], pos[1], s.profile.CleanRadiusCell)
	currentRoom := s.grid.RoomAt(pos[0], pos[1])

	switch s.profile.Subleague {
	case "U19":
		s.updateBattery(pos[0], pos[1], dt)
	default:
		s.updateBoost(pos[0], pos[1])
	}
	if !s.running {
		// Battery ran out this tick; finish already published.
		return
	}

	if s.remainingLocked() <= 0 {
		s.finish("time limit reached")
		return
	}

	if s.lastUpdate == 0 || s.simTime-s.lastUpdate >= 1.0 {
		s.publish(currentRoom)
		s.lastUpdate = s.simTime
	}
}

// reset starts a fresh run: new grid, full battery, new run ID, new robot.
func (s *Supervisor) reset() {
	if s.pending != nil {
		if err := s.apply(*s.pending); err != nil {
			s.log.Error("staged profile rejected", zap.Error(err))
		} else {
			s.dash.SetSubleague(s.profile.Subleague)
		}
		s.pending = nil
	}

	s.grid.Reset()
	s.battery = 100
	s.usedBoost = make([]bool, len(s.profile.BoostPositions))
	s.scoreLog = nil
	s.teamName = ""
	s.runID = uuid.NewString()
	s.startTime = s.simTime
	s.lastUpdate = 0
	s.running = true

	s.ctx.Lock()
	s.robot.Store(models.NewRobot(s.ctx, s.profile.Robot, s.profile.RobotTranslation))
	s.ctx.Unlock()

	s.dash.SetRunID(s.runID)
	s.dash.SetTeamName("")
	if s.profile.Subleague == "U19" {
		level := s.battery
		s.dash.SetBattery(&level)
	} else {
		s.dash.SetBattery(nil)
	}
	s.dash.UpdateScore(baseScore, 0, s.profile.RunTimeLimit, false, nil)
	s.log.Info("run started",
		zap.String("run", s.runID),
		zap.String("subleague", s.profile.Subleague),
	)
}

// relocate moves the robot to the nearest relocate pad and logs the penalty.
func (s *Supervisor) relocate() {
	robot := s.robot.Load()
	if robot == nil || len(s.profile.RelocatePositions) == 0 {
		return
	}
	s.ctx.Lock()
	pos := robot.Position()
	best := s.profile.RelocatePositions[0]
	bestDist := math.Hypot(pos[0]-best[0], pos[1]-best[1])
	for _, pad := range s.profile.RelocatePositions[1:] {
		if d := math.Hypot(pos[0]-pad[0], pos[1]-pad[1]); d < bestDist {
			best, bestDist = pad, d
		}
	}
	robot.MoveTo(best[0], best[1])
	s.ctx.Unlock()

	s.scoreLog = append(s.scoreLog, dashboard.ScoreEntry{
		Source: "relocate",
		Points: -s.profile.RelocatePenalty,
	})
	s.log.Info("robot relocated", zap.Float64("x", best[0]), zap.Float64("y", best[1]))
}

func (s *Supervisor) updateBattery(x, y, dt float64) {
	s.battery = math.Max(0, s.battery-s.profile.BatteryDrainRate*dt)
	for _, pad := range s.profile.BatteryPositions {
		if math.Hypot(x-pad[0], y-pad[1]) <= s.profile.BatteryChargeRadius {
			s.battery = 100
			break
		}
	}
	if s.battery <= 0 {
		s.finish("battery empty")
	}
}

func (s *Supervisor) updateBoost(x, y float64) {
	for i, pad := range s.profile.BoostPositions {
		if i >= len(s.usedBoost) || s.usedBoost[i] {
			continue
		}
		if math.Hypot(x-pad[0], y-pad[1]) <= s.profile.BoostRadius {
			s.usedBoost[i] = true
			s.scoreLog = append(s.scoreLog, dashboard.ScoreEntry{
				Source: "boost",
				Points: s.profile.BoostPadPoints,
			})
		}
	}
}

// finish ends the run: the robot is removed and the final score published.
func (s *Supervisor) finish(reason string) {
	score := s.scoreLocked()
	ratio := s.grid.CleanedRatio()
	s.removeRobotLocked()
	s.running = false
	s.dash.SetBattery(nil)
	s.dash.UpdateScore(score, ratio*100, 0, true, s.scoreLog)
	s.log.Info("run finished",
		zap.String("run", s.runID),
		zap.String("reason", reason),
		zap.Int("score", score),
	)
}

func (s *Supervisor) removeRobotLocked() {
	robot := s.robot.Load()
	if robot == nil {
		return
	}
	s.ctx.Lock()
	s.robot.Store(nil)
	robot.Destroy()
	s.ctx.Unlock()
}

func (s *Supervisor) scoreLocked() int {
	score := baseScore + int(s.grid.CleanedRatio()*100*float64(s.profile.PointsPerPercent))
	for _, e := range s.scoreLog {
		score += e.Points
	}
	return score
}

// publish refreshes the dashboard and the robot's custom data payload.
func (s *Supervisor) publish(currentRoom int) {
	roomPcts := s.grid.RoomPercents()
	if roomPcts != nil {
		s.dash.SetRoomStats(roomPcts, currentRoom)
	}
	if s.profile.Subleague == "U19" {
		level := s.battery
		s.dash.SetBattery(&level)
	}
	s.dash.UpdateScore(s.scoreLocked(), s.grid.CleanedRatio()*100, s.remainingLocked(), false, s.scoreLog)

	payload := robotPayload{Team: s.teamName}
	if s.profile.Subleague == "U19" {
		level := math.Round(s.battery*100) / 100
		payload.Battery = &level
	}
	if roomPcts != nil {
		numbers := make([]int, 0, len(roomPcts))
		for r := range s.rooms {
			numbers = append(numbers, r)
		}
		payload.RoomNumbers = numbers
		payload.RoomPcts = roomPcts
		room := currentRoom
		payload.CurrentRoom = &room
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if robot := s.robot.Load(); robot != nil {
		s.ctx.Lock()
		robot.SetCustomData(string(data))
		s.ctx.Unlock()
	}
}

// teamNameFrom parses the team name out of the robot custom data, accepting
// the JSON payload form and the legacy "team:Name" form.
func teamNameFrom(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err == nil {
		if team, ok := data["team"].(string); ok {
			return strings.TrimSpace(team)
		}
		return ""
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "team:") {
			return strings.TrimSpace(strings.TrimPrefix(part, "team:"))
		}
	}
	return ""
}
