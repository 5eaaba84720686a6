package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/smart-home-league/simulation/protocol"
)

// Wall ...
type Wall struct {
	Center []float64 `yaml:"center"` // length=3
	Size   []float64 `yaml:"size"`   // length=3
}

// Profile is the world profile: arena layout, pads, rooms, physics and
// scoring constants. Loaded from YAML with the competition defaults filled
// in for anything unset.
type Profile struct {
	Subleague        string    `yaml:"subleague"` // U14, U19 or FS
	TimeStepMs       int       `yaml:"time_step_ms"`
	Gravity          float64   `yaml:"gravity"`
	Mu               float64   `yaml:"mu"`
	RobotTranslation []float64 `yaml:"robot_translation"`

	GroundSize      []float64 `yaml:"ground_size"` // meters, x y
	GridCells       []int     `yaml:"grid_cells"`  // cells, x y
	CleanRadiusCell int       `yaml:"clean_radius_cells"`

	RunTimeLimit        float64 `yaml:"run_time_limit"` // seconds
	BatteryDrainRate    float64 `yaml:"battery_drain_rate"`
	BatteryChargeRadius float64 `yaml:"battery_charge_radius"`
	BoostRadius         float64 `yaml:"boost_radius"`
	PointsPerPercent    int     `yaml:"points_per_percent"`
	BoostPadPoints      int     `yaml:"boost_pad_points"`
	RelocatePenalty     int     `yaml:"relocate_penalty"`

	BatteryPositions  [][]float64   `yaml:"battery_positions"`
	RelocatePositions [][]float64   `yaml:"relocate_positions"`
	BoostPositions    [][]float64   `yaml:"boost_positions"`
	RoomPolygons      [][][]float64 `yaml:"room_polygons"`
	FloorPlan         string        `yaml:"floor_plan"` // COLLADA file, alternative to room_polygons

	Walls []Wall `yaml:"walls"`

	Robot protocol.RobotProfile `yaml:"robot"`
}

// Default returns the competition defaults: U19 house, 20x20m ground at
// 200x200 cells, six-minute runs.
func Default() Profile {
	return Profile{
		Subleague:        "U19",
		TimeStepMs:       16,
		Gravity:          -9.81,
		Mu:               0.9,
		RobotTranslation: []float64{1.8761, -6.3738, 0.0442},

		GroundSize:      []float64{20, 20},
		GridCells:       []int{200, 200},
		CleanRadiusCell: 1,

		RunTimeLimit:        60 * 6,
		BatteryDrainRate:    1.0,
		BatteryChargeRadius: 0.3,
		BoostRadius:         0.35,
		PointsPerPercent:    40,
		BoostPadPoints:      200,
		RelocatePenalty:     40,

		Robot: protocol.RobotProfile{
			ChassisDensity: 0.4,
			ChassisRadius:  0.17,
			ChassisHeight:  0.06,
			WheelDensity:   0.1,
			WheelDiameter:  0.062,
			AxleLength:     0.271756,
			RideHeight:     0.0442,
			MaxWheelSpeed:  25.0,
			MotorTorque:    5.0,
		},
	}
}

// Load reads a profile, layering the file over Default.
func Load(path string) (Profile, error) {
	profile := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return profile, nil
}
