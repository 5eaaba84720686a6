// Package dashboard holds the scoreboard state shared between the
// supervisor and the local web dashboard, and serves it over a websocket.
package dashboard

import "sync"

// ScoreEntry ...
type ScoreEntry struct {
	Source string `json:"source"`
	Points int    `json:"points"`
}

// Snapshot is one dashboard frame, pushed to every connected browser.
type Snapshot struct {
	TeamName         string          `json:"teamName"`
	Points           int             `json:"points"`
	Percent          float64         `json:"percent"`
	RemainingSeconds float64         `json:"remainingSeconds"`
	GameOver         bool            `json:"gameOver"`
	RoomPcts         map[int]float64 `json:"roomPcts"`
	CurrentRoom      int             `json:"currentRoom"`
	ScoreLog         []ScoreEntry    `json:"scoreLog"`
	Battery          *float64        `json:"battery"` // nil hides the gauge
	Subleague        string          `json:"subleague"`
	RunID            string          `json:"runId"`
}

// State is the thread-safe scoreboard. The supervisor writes it from the
// simulation loop; the websocket server reads snapshots and posts command
// requests that the supervisor consumes one-shot.
type State struct {
	mu   sync.Mutex
	snap Snapshot
	seq  uint64

	runRequested      bool
	relocateRequested bool
	endRequested      bool
}

// NewState ...
func NewState() *State {
	return &State{snap: Snapshot{CurrentRoom: -1}}
}

// SetSubleague ...
func (s *State) SetSubleague(subleague string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Subleague = subleague
	s.seq++
}

// SetTeamName ...
func (s *State) SetTeamName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.TeamName = name
	s.seq++
}

// SetRunID ...
func (s *State) SetRunID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.RunID = id
	s.seq++
}

// SetBattery sets the battery gauge; nil hides it (non-U19 leagues).
func (s *State) SetBattery(battery *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Battery = battery
	s.seq++
}

// SetRoomStats ...
func (s *State) SetRoomStats(roomPcts map[int]float64, currentRoom int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.RoomPcts = roomPcts
	s.snap.CurrentRoom = currentRoom
	s.seq++
}

// UpdateScore ...
func (s *State) UpdateScore(points int, percent, remaining float64, gameOver bool, log []ScoreEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Points = points
	s.snap.Percent = percent
	if remaining < 0 {
		remaining = 0
	}
	s.snap.RemainingSeconds = remaining
	s.snap.GameOver = gameOver
	s.snap.ScoreLog = append([]ScoreEntry(nil), log...)
	s.seq++
}

// Snapshot returns a copy of the current frame and its change sequence.
func (s *State) Snapshot() (Snapshot, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snap
	snap.ScoreLog = append([]ScoreEntry(nil), s.snap.ScoreLog...)
	if s.snap.RoomPcts != nil {
		snap.RoomPcts = make(map[int]float64, len(s.snap.RoomPcts))
		for k, v := range s.snap.RoomPcts {
			snap.RoomPcts[k] = v
		}
	}
	return snap, s.seq
}

// RequestRun ...
func (s *State) RequestRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runRequested = true
}

// RequestRelocate ...
func (s *State) RequestRelocate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relocateRequested = true
}

// RequestEnd ...
func (s *State) RequestEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endRequested = true
}

// ConsumeRunRequest returns true once per posted run request.
func (s *State) ConsumeRunRequest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	requested := s.runRequested
	s.runRequested = false
	return requested
}

// ConsumeRelocateRequest ...
func (s *State) ConsumeRelocateRequest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	requested := s.relocateRequested
	s.relocateRequested = false
	return requested
}

// ConsumeEndRequest ...
func (s *State) ConsumeEndRequest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	requested := s.endRequested
	s.endRequested = false
	return requested
}
