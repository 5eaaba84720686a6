package protocol

// WorldProfile ...
type WorldProfile struct {
	Gravity    float64 `json:"gravity"`
	TimeStepMs int     `json:"timeStepMs"`
	Mu         float64 `json:"mu"`
}

// RobotProfile ...
type RobotProfile struct {
	ChassisDensity float64 `yaml:"chassis_density"` // default 0.4
	ChassisRadius  float64 `yaml:"chassis_radius"`  // default 0.17m
	ChassisHeight  float64 `yaml:"chassis_height"`  // default 0.06m
	WheelDensity   float64 `yaml:"wheel_density"`   // default 0.1
	WheelDiameter  float64 `yaml:"wheel_diameter"`  // default 0.062m
	AxleLength     float64 `yaml:"axle_length"`     // default 0.271756m
	RideHeight     float64 `yaml:"ride_height"`     // default 0.0442m
	MaxWheelSpeed  float64 `yaml:"max_wheel_speed"` // rad/s, default 25.0
	MotorTorque    float64 `yaml:"motor_torque"`    // joint fmax, default 5.0
}

// Profile ...
type Profile struct {
	World     WorldProfile
	Robot     RobotProfile
	Subleague string
}

// Input ...
type Input struct {
	Name          string  `json:"name"`
	LeftVelocity  float64 `json:"leftVelocity"`
	RightVelocity float64 `json:"rightVelocity"`
	LED           bool    `json:"led"`
	CustomData    string  `json:"customData"`
}

// Pose ...
type Pose struct {
	Position []float64 `json:"position"` // length=3
	Yaw      float64   `json:"yaw"`
}

// Sensors ...
type Sensors struct {
	LeftEncoder  float64 `json:"leftEncoder"`
	RightEncoder float64 `json:"rightEncoder"`
	BumperLeft   bool    `json:"bumperLeft"`
	BumperRight  bool    `json:"bumperRight"`
}

// Output ...
type Output struct {
	Pose       Pose     `json:"pose"`
	Sensors    Sensors  `json:"sensors"`
	Battery    *float64 `json:"battery,omitempty"` // U19 only
	Remaining  float64  `json:"remaining"`
	Running    bool     `json:"running"`
	CustomData string   `json:"customData"` // supervisor payload (team, rooms, battery)
}
